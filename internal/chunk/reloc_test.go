package chunk

import "testing"

func TestRelDynSectionOrdersRelativeBeforeOthers(t *testing.T) {
	ctx := newTestCtx()
	got := NewGotSection()

	rel := NewSymbol("relsym")
	rel.Kind, rel.Value = SymRegular, 0x1000
	imp := NewSymbol("impsym")
	imp.IsImported = true
	ifunc := NewSymbol("ifuncsym")
	ifunc.Kind, ifunc.Value = SymIFunc, 0x2000

	got.AddRegularSymbol(imp)
	got.AddRegularSymbol(ifunc)
	got.AddRegularSymbol(rel)
	got.Shdr.Addr = 0x8000

	r := NewRelDynSection(got, nil)
	if err := r.UpdateShdr(ctx); err != nil {
		t.Fatalf("UpdateShdr: %v", err)
	}
	if len(r.entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(r.entries))
	}
	if r.entries[0].Type != ctx.Profile.Reloc.Relative {
		t.Errorf("entries[0].Type = %d, want R_RELATIVE first", r.entries[0].Type)
	}
	if r.entries[len(r.entries)-1].Type != ctx.Profile.Reloc.IRelative {
		t.Errorf("last entry Type = %d, want R_IRELATIVE last", r.entries[len(r.entries)-1].Type)
	}

	buf := make([]byte, r.Shdr.Offset+r.Shdr.Size)
	if err := r.CopyBuf(ctx, buf); err != nil {
		t.Fatalf("CopyBuf: %v", err)
	}
}

func TestRelPltSectionOneEntryPerPltSymbol(t *testing.T) {
	ctx := newTestCtx()
	plt := NewPltSection()
	s1, s2 := NewSymbol("a"), NewSymbol("b")
	plt.Add(s1)
	plt.Add(s2)

	gotPlt := NewGotPltSection()
	gotPlt.Plt = plt
	gotPlt.Shdr.Addr = 0x9000

	r := NewRelPltSection(plt, gotPlt, nil)
	if err := r.UpdateShdr(ctx); err != nil {
		t.Fatalf("UpdateShdr: %v", err)
	}
	if r.Shdr.Size != 2*RelaSize {
		t.Fatalf("Shdr.Size = %d, want %d", r.Shdr.Size, 2*RelaSize)
	}
	if r.Shdr.Info != uint32(plt.Shndx()) {
		t.Errorf("Shdr.Info = %d, want plt.Shndx() (%d)", r.Shdr.Info, plt.Shndx())
	}

	buf := make([]byte, r.Shdr.Offset+r.Shdr.Size)
	if err := r.CopyBuf(ctx, buf); err != nil {
		t.Fatalf("CopyBuf: %v", err)
	}
}
