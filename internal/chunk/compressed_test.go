package chunk

import (
	"bytes"
	"compress/zlib"
	"io"
	"testing"
)

func TestCompressedSectionZlibRoundTrip(t *testing.T) {
	ctx := newTestCtx()
	inner := NewInterpSection("/lib64/ld-linux-x86-64.so.2")

	c := NewCompressedSection(inner, CompressZlib)
	if err := c.UpdateShdr(ctx); err != nil {
		t.Fatalf("UpdateShdr: %v", err)
	}
	if c.Shdr.Flags&SHF_COMPRESSED == 0 {
		t.Errorf("Shdr.Flags missing SHF_COMPRESSED")
	}
	if c.ChunkName() != inner.ChunkName() {
		t.Errorf("ChunkName() = %q, want inner's %q", c.ChunkName(), inner.ChunkName())
	}

	buf := make([]byte, c.Shdr.Offset+c.Shdr.Size)
	if err := c.CopyBuf(ctx, buf); err != nil {
		t.Fatalf("CopyBuf: %v", err)
	}

	r, err := zlib.NewReader(bytes.NewReader(buf[ChdrSize:]))
	if err != nil {
		t.Fatalf("zlib.NewReader: %v", err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading decompressed bytes: %v", err)
	}
	want := inner.Path + "\x00"
	if string(got) != want {
		t.Errorf("decompressed = %q, want %q", got, want)
	}
}

func TestCompressedSectionZstdProducesNonEmptyOutput(t *testing.T) {
	ctx := newTestCtx()
	inner := NewInterpSection("/lib/ld-musl-x86_64.so.1")

	c := NewCompressedSection(inner, CompressZstd)
	if err := c.UpdateShdr(ctx); err != nil {
		t.Fatalf("UpdateShdr: %v", err)
	}
	if c.Shdr.Size <= ChdrSize {
		t.Errorf("Shdr.Size = %d, want more than the bare Chdr (%d)", c.Shdr.Size, ChdrSize)
	}

	buf := make([]byte, c.Shdr.Offset+c.Shdr.Size)
	if err := c.CopyBuf(ctx, buf); err != nil {
		t.Fatalf("CopyBuf: %v", err)
	}
	if binLE32(buf[0:4]) != ELFCOMPRESS_ZSTD {
		t.Errorf("ch_type = %d, want ELFCOMPRESS_ZSTD", binLE32(buf[0:4]))
	}
}

func binLE32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
