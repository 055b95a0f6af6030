package chunk

import (
	"reflect"
	"testing"
)

func TestEncodeDecodeRelrRoundTrip(t *testing.T) {
	cases := [][]uint64{
		{},
		{0x1000},
		{0x1000, 0x1008, 0x1010},
		{0x1000, 0x1008, 0x2000},               // gap forces a new bitmap base
		{0x1000, 0x1008, 0x1010, 0x1018, 0x4000, 0x4008},
	}
	for _, pos := range cases {
		enc := EncodeRelr(pos, 8)
		got := DecodeRelr(enc, 8)
		if len(pos) == 0 {
			if len(got) != 0 {
				t.Errorf("DecodeRelr(EncodeRelr(%v)) = %v, want empty", pos, got)
			}
			continue
		}
		if !reflect.DeepEqual(got, pos) {
			t.Errorf("DecodeRelr(EncodeRelr(%v)) = %v, want %v", pos, got, pos)
		}
	}
}

func TestRelrDynSectionUpdateShdr(t *testing.T) {
	ctx := newTestCtx()
	r := NewRelrDynSection()
	r.Providers = []RelrProvider{
		fakeRelrProvider{offs: []uint64{0x1000, 0x1008, 0x1010}},
	}
	if err := r.UpdateShdr(ctx); err != nil {
		t.Fatalf("UpdateShdr: %v", err)
	}
	if r.Shdr.Size == 0 {
		t.Fatalf("Shdr.Size = 0 for a non-empty provider")
	}
	if r.Shdr.Entsize != 0 {
		t.Errorf("Shdr.Entsize = %d, want 0 (RELR has no fixed record size)", r.Shdr.Entsize)
	}

	buf := make([]byte, r.Shdr.Offset+r.Shdr.Size)
	if err := r.CopyBuf(ctx, buf); err != nil {
		t.Fatalf("CopyBuf: %v", err)
	}
}

type fakeRelrProvider struct{ offs []uint64 }

func (f fakeRelrProvider) RelrOffsets(ctx *Context) []uint64 { return f.offs }
