package chunk

import "testing"

func TestMergedSectionInsertDeduplicates(t *testing.T) {
	m := NewMergedSection(".rodata.str1.1", SHT_PROGBITS, SHF_ALLOC|SHF_MERGE|SHF_STRINGS)

	a := m.Insert("hello\x00", 0)
	b := m.Insert("hello\x00", 2)
	c := m.Insert("world\x00", 0)

	if a != b {
		t.Fatalf("Insert with identical content returned distinct fragments")
	}
	if a.P2Align != 2 {
		t.Errorf("P2Align = %d, want 2 (max of the two Insert calls)", a.P2Align)
	}
	if c == a {
		t.Fatalf("Insert with different content returned the same fragment")
	}
}

func TestMergedSectionConstructAndCopyBuf(t *testing.T) {
	ctx := newTestCtx()
	m := NewMergedSection(".rodata.str1.1", SHT_PROGBITS, SHF_ALLOC|SHF_MERGE|SHF_STRINGS)

	f1 := m.Insert("abc\x00", 0)
	f2 := m.Insert("defg\x00", 1)

	if err := m.Construct(ctx); err != nil {
		t.Fatalf("Construct: %v", err)
	}
	if m.Shdr.Size == 0 {
		t.Fatalf("Shdr.Size = 0 after Construct")
	}

	buf := make([]byte, m.Shdr.Offset+m.Shdr.Size)
	if err := m.CopyBuf(ctx, buf); err != nil {
		t.Fatalf("CopyBuf: %v", err)
	}

	got1 := string(buf[m.Shdr.Offset+f1.Offset : m.Shdr.Offset+f1.Offset+uint64(len(f1.Data))])
	if got1 != f1.Data {
		t.Errorf("fragment 1 bytes = %q, want %q", got1, f1.Data)
	}
	got2 := string(buf[m.Shdr.Offset+f2.Offset : m.Shdr.Offset+f2.Offset+uint64(len(f2.Data))])
	if got2 != f2.Data {
		t.Errorf("fragment 2 bytes = %q, want %q", got2, f2.Data)
	}
}

func TestMergedSectionConcurrentInsert(t *testing.T) {
	m := NewMergedSection(".rodata.str1.1", SHT_PROGBITS, SHF_ALLOC|SHF_MERGE|SHF_STRINGS)
	done := make(chan *SectionFragment, 2)
	go func() { done <- m.Insert("shared\x00", 0) }()
	go func() { done <- m.Insert("shared\x00", 3) }()
	f1, f2 := <-done, <-done
	if f1 != f2 {
		t.Fatalf("concurrent Insert of identical content produced distinct fragments")
	}
}
