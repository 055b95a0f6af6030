package chunk

import "testing"

func TestOutputSectionRegistryDedupesByNameTypeFlags(t *testing.T) {
	ctx := newTestCtx()

	a := ctx.GetOutputSection(".text", SHT_PROGBITS, SHF_ALLOC)
	b := ctx.GetOutputSection(".text", SHT_PROGBITS, SHF_ALLOC)
	if a != b {
		t.Fatalf("same (name,type,flags) returned distinct OutputSections")
	}

	rw := ctx.GetOutputSection(".text", SHT_PROGBITS, SHF_ALLOC|SHF_WRITE)
	if rw == a {
		t.Errorf("a writable and read-only section with the same name must not merge")
	}

	nobits := ctx.GetOutputSection(".text", SHT_NOBITS, SHF_ALLOC)
	if nobits == a {
		t.Errorf("PROGBITS and NOBITS sections with the same name must not merge")
	}
}

func TestContextDynstrDedupRoundTrip(t *testing.T) {
	ctx := newTestCtx()

	if _, ok := ctx.dedupKey("libc.so.6"); ok {
		t.Fatalf("dedupKey found an entry before any was remembered")
	}
	ctx.rememberDedup("libc.so.6", 42)
	off, ok := ctx.dedupKey("libc.so.6")
	if !ok || off != 42 {
		t.Errorf("dedupKey(%q) = %d, %v; want 42, true", "libc.so.6", off, ok)
	}
}
