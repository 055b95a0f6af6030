package chunk

import "testing"

func TestHashSectionLayout(t *testing.T) {
	ctx := newTestCtx()
	dynsym := NewDynsymSection()
	a, b := NewSymbol("alpha"), NewSymbol("beta")
	dynsym.Exported = []*Symbol{a, b}
	if err := dynsym.UpdateShdr(ctx); err != nil {
		t.Fatalf("dynsym.UpdateShdr: %v", err)
	}

	h := NewHashSection(dynsym)
	if err := h.UpdateShdr(ctx); err != nil {
		t.Fatalf("UpdateShdr: %v", err)
	}
	wantChain := uint32(1 + len(dynsym.Order))
	if h.nbucket != wantChain {
		t.Errorf("nbucket = %d, want %d (one bucket per chain entry)", h.nbucket, wantChain)
	}

	buf := make([]byte, h.Shdr.Size)
	if err := h.CopyBuf(ctx, buf); err != nil {
		t.Fatalf("CopyBuf: %v", err)
	}
	if le32(buf[0:4]) != h.nbucket {
		t.Errorf("header nbucket = %d, want %d", le32(buf[0:4]), h.nbucket)
	}
	if le32(buf[4:8]) != wantChain {
		t.Errorf("header nchain = %d, want %d", le32(buf[4:8]), wantChain)
	}
}

func TestGnuHashSectionOnlyCoversExportedSuffix(t *testing.T) {
	ctx := newTestCtx()
	dynsym := NewDynsymSection()
	local := NewSymbol("loc")
	local.IsLocal = true
	hidden := NewSymbol("hid")
	exp := NewSymbol("pub")
	dynsym.Locals = []*Symbol{local}
	dynsym.NonExported = []*Symbol{hidden}
	dynsym.Exported = []*Symbol{exp}
	if err := dynsym.UpdateShdr(ctx); err != nil {
		t.Fatalf("dynsym.UpdateShdr: %v", err)
	}

	g := NewGnuHashSection(dynsym)
	if err := g.UpdateShdr(ctx); err != nil {
		t.Fatalf("UpdateShdr: %v", err)
	}
	if len(g.exported()) != 1 {
		t.Fatalf("len(exported()) = %d, want 1", len(g.exported()))
	}
	wantOffset := uint32(dynsym.ExportedOffset()) + 1
	if g.symoffset != wantOffset {
		t.Errorf("symoffset = %d, want %d", g.symoffset, wantOffset)
	}

	buf := make([]byte, g.Shdr.Size)
	if err := g.CopyBuf(ctx, buf); err != nil {
		t.Fatalf("CopyBuf: %v", err)
	}
	if le32(buf[0:4]) != g.numBuckets {
		t.Errorf("header numBuckets = %d, want %d", le32(buf[0:4]), g.numBuckets)
	}
	if le32(buf[4:8]) != g.symoffset {
		t.Errorf("header symoffset = %d, want %d", le32(buf[4:8]), g.symoffset)
	}
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
