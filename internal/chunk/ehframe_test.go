package chunk

import "testing"

func TestEhFrameSectionConstructDedupsCIEs(t *testing.T) {
	ctx := newTestCtx()

	cieA := &CieRecord{Contents: []byte{1, 2, 3, 4}, Augmentation: "zR", FdePtrFormat: 0x1b}
	cieB := &CieRecord{Contents: []byte{1, 2, 3, 4}, Augmentation: "zR", FdePtrFormat: 0x1b}

	fileA := &ObjectFile{CIEs: []*CieRecord{cieA}, FDEs: []*FdeRecord{
		{Contents: make([]byte, 16), IsAlive: true, CieIdx: 0},
	}}
	fileB := &ObjectFile{CIEs: []*CieRecord{cieB}, FDEs: []*FdeRecord{
		{Contents: make([]byte, 16), IsAlive: true, CieIdx: 0},
	}}

	e := NewEhFrameSection()
	e.Files = []*ObjectFile{fileA, fileB}

	if err := e.Construct(ctx); err != nil {
		t.Fatalf("Construct: %v", err)
	}
	if !cieA.isLeader {
		t.Errorf("first CIE should be the leader")
	}
	if cieB.isLeader {
		t.Errorf("identical second CIE should not become its own leader")
	}
	if cieB.outputOffset != cieA.outputOffset {
		t.Errorf("deduplicated CIE offset = %d, want %d (shared with leader)", cieB.outputOffset, cieA.outputOffset)
	}

	// One CIE (4 bytes) + two FDEs (16 bytes each) + trailing null word (4 bytes).
	wantSize := uint64(4 + 16 + 16 + 4)
	if e.Shdr.Size != wantSize {
		t.Errorf("Shdr.Size = %d, want %d", e.Shdr.Size, wantSize)
	}
}

func TestEhFrameSectionDropsDeadFDEs(t *testing.T) {
	ctx := newTestCtx()
	cie := &CieRecord{Contents: []byte{1, 2, 3, 4}}
	f := &ObjectFile{
		CIEs: []*CieRecord{cie},
		FDEs: []*FdeRecord{
			{Contents: make([]byte, 16), IsAlive: true, CieIdx: 0},
			{Contents: make([]byte, 16), IsAlive: false, CieIdx: 0},
		},
	}
	e := NewEhFrameSection()
	e.Files = []*ObjectFile{f}
	if err := e.Construct(ctx); err != nil {
		t.Fatalf("Construct: %v", err)
	}
	if len(f.FDEs) != 1 {
		t.Fatalf("len(f.FDEs) = %d, want 1 (dead FDE dropped)", len(f.FDEs))
	}
}

func TestEhFrameHdrSectionCopyBuf(t *testing.T) {
	ctx := newTestCtx()
	e := NewEhFrameSection()
	e.Files = nil
	if err := e.Construct(ctx); err != nil {
		t.Fatalf("Construct: %v", err)
	}
	e.Shdr.Addr = 0x2000

	hdr := NewEhFrameHdrSection()
	hdr.EhFrame = e
	hdr.Shdr.Addr = 0x3000

	if err := hdr.UpdateShdr(ctx); err != nil {
		t.Fatalf("UpdateShdr: %v", err)
	}
	if hdr.Shdr.Size != ehFrameHdrHeaderSize {
		t.Fatalf("Shdr.Size = %d, want %d (no FDEs)", hdr.Shdr.Size, ehFrameHdrHeaderSize)
	}

	buf := make([]byte, hdr.Shdr.Size)
	if err := hdr.CopyBuf(ctx, buf); err != nil {
		t.Fatalf("CopyBuf: %v", err)
	}
	if buf[0] != 1 {
		t.Errorf("version byte = %d, want 1", buf[0])
	}
}
