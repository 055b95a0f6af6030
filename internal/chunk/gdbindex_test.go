package chunk

import "testing"

func TestGdbIndexSectionSkipsWithoutDebugInfo(t *testing.T) {
	ctx := newTestCtx()
	g := NewGdbIndexSection()
	g.Files = []*ObjectFile{{Name: "a.o"}}

	if err := g.Construct(ctx); err != nil {
		t.Fatalf("Construct: %v", err)
	}
	if g.Shdr.Size != 0 {
		t.Errorf("Shdr.Size = %d, want 0 for a file with no compilation units", g.Shdr.Size)
	}
}

func TestGdbIndexSectionUniquifiesAndPicksLowestPriority(t *testing.T) {
	ctx := newTestCtx()

	fileLow := &ObjectFile{
		Name:      "low.o",
		Priority:  1,
		CompUnits: []CompUnitSpan{{Offset: 0, Size: 32}},
		Pubnames:  []GdbIndexName{{Name: "main", Hash: 1, Attr: 0x10}},
	}
	fileHigh := &ObjectFile{
		Name:      "high.o",
		Priority:  5,
		CompUnits: []CompUnitSpan{{Offset: 32, Size: 16}},
		Pubnames:  []GdbIndexName{{Name: "main", Hash: 1, Attr: 0x20}},
	}

	g := NewGdbIndexSection()
	g.Files = []*ObjectFile{fileHigh, fileLow} // deliberately out of priority order

	if err := g.Construct(ctx); err != nil {
		t.Fatalf("Construct: %v", err)
	}
	if len(g.entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1 (two files' \"main\" must uniquify)", len(g.entries))
	}
	ent := g.entries[0]
	if ent.owner != fileLow {
		t.Errorf("owner = %q, want the lower-priority file %q", ent.owner.Name, fileLow.Name)
	}
	if len(ent.attrs) != 2 {
		t.Errorf("len(attrs) = %d, want 2 (attrs accumulate from every contributing file)", len(ent.attrs))
	}
	if g.Shdr.Size == 0 {
		t.Fatalf("Shdr.Size = 0, want nonzero once debug info is present")
	}

	buf := make([]byte, g.Shdr.Offset+g.Shdr.Size)
	if err := g.CopyBuf(ctx, buf); err != nil {
		t.Fatalf("CopyBuf: %v", err)
	}
}
