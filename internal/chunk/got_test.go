package chunk

import "testing"

func TestGotSectionRegularSlotDispatch(t *testing.T) {
	ctx := newTestCtx()
	got := NewGotSection()

	local := NewSymbol("data")
	local.Kind, local.Value = SymRegular, 0x2000
	imported := NewSymbol("printf")
	imported.IsImported = true
	ifunc := NewSymbol("memcpy")
	ifunc.Kind, ifunc.Value = SymIFunc, 0x3000

	got.AddRegularSymbol(local)
	got.AddRegularSymbol(imported)
	got.AddRegularSymbol(ifunc)
	got.AddRegularSymbol(local) // second call must be a no-op (HasGot)

	if err := got.UpdateShdr(ctx); err != nil {
		t.Fatalf("UpdateShdr: %v", err)
	}
	if got.Shdr.Size != 3*uint64(ctx.Profile.WordSize) {
		t.Fatalf("Shdr.Size = %d, want %d (duplicate AddRegularSymbol must not grow slots)", got.Shdr.Size, 3*uint64(ctx.Profile.WordSize))
	}

	entries := got.GetEntries(ctx, false, false)
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	if entries[0].RelType != ctx.Profile.Reloc.Relative {
		t.Errorf("local symbol got RelType %d, want R_RELATIVE", entries[0].RelType)
	}
	if entries[1].RelType != ctx.Profile.Reloc.GlobDat {
		t.Errorf("imported symbol got RelType %d, want R_GLOB_DAT", entries[1].RelType)
	}
	if entries[2].RelType != ctx.Profile.Reloc.IRelative {
		t.Errorf("ifunc symbol got RelType %d, want R_IRELATIVE", entries[2].RelType)
	}
}

func TestGotSectionStaticLinkFillsRegularEntryAtLinkTime(t *testing.T) {
	ctx := newTestCtx()
	got := NewGotSection()
	sym := NewSymbol("x")
	sym.Kind, sym.Value = SymRegular, 0x4000
	got.AddRegularSymbol(sym)

	entries := got.GetEntries(ctx, true, false)
	if entries[0].RelType != ctx.Profile.Reloc.None {
		t.Errorf("static-link regular entry RelType = %d, want R_NONE (link-time filled)", entries[0].RelType)
	}
	if entries[0].Val != 0x4000 {
		t.Errorf("entry Val = %#x, want 0x4000", entries[0].Val)
	}
}

func TestGotSectionCopyBufLeavesIfuncSlotZero(t *testing.T) {
	ctx := newTestCtx()
	got := NewGotSection()
	sym := NewSymbol("x")
	sym.Kind, sym.Value = SymIFunc, 0x5000
	got.AddRegularSymbol(sym)
	if err := got.UpdateShdr(ctx); err != nil {
		t.Fatalf("UpdateShdr: %v", err)
	}

	buf := make([]byte, got.Shdr.Size)
	if err := got.CopyBuf(ctx, buf); err != nil {
		t.Fatalf("CopyBuf: %v", err)
	}
	// ifunc entries are R_IRELATIVE, not R_NONE, so CopyBuf leaves the
	// slot zero; the dynamic relocation writer fills it at load time.
	for _, b := range buf {
		if b != 0 {
			t.Fatalf("ifunc GOT slot should stay zero until relocated, got %v", buf)
		}
	}
}

func TestGotPltSectionReservedSlots(t *testing.T) {
	ctx := newTestCtx()
	dyn := NewDynamicSection()
	dyn.Shdr.Addr = 0x1000

	gp := NewGotPltSection()
	gp.Dynamic = dyn

	if err := gp.UpdateShdr(ctx); err != nil {
		t.Fatalf("UpdateShdr: %v", err)
	}
	if gp.Shdr.Size != 3*uint64(ctx.Profile.WordSize) {
		t.Fatalf("Shdr.Size = %d, want 3 reserved slots", gp.Shdr.Size)
	}

	buf := make([]byte, gp.Shdr.Size)
	if err := gp.CopyBuf(ctx, buf); err != nil {
		t.Fatalf("CopyBuf: %v", err)
	}
	if got := leUint64(buf[:8]); got != 0x1000 {
		t.Errorf("slot 0 = %#x, want the .dynamic address (0x1000)", got)
	}
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
