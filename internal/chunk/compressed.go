// Completion: 100% - Compressed section wrapper complete
package chunk

import (
	"bytes"
	"compress/zlib"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// CompressedSection wraps an existing chunk, replacing its output
// bytes with a compressed copy behind a Chdr header. It snapshots the
// inner chunk's natural bytes into a scratch buffer by calling the
// inner chunk's own CopyBuf with a zero offset, then runs the
// configured codec over that scratch buffer.
type CompressedSection struct {
	Base
	Inner Chunk
	Codec CompressKind

	origSize      uint64
	origAddralign uint64
	compressed    []byte
}

// NewCompressedSection takes over inner's name/type/flags so the
// wrapper appears in the section header table exactly where inner
// would have.
func NewCompressedSection(inner Chunk, codec CompressKind) *CompressedSection {
	ih := inner.Header()
	return &CompressedSection{
		Base:  NewBase(inner.ChunkName(), ih.Type, ih.Flags),
		Inner: inner,
		Codec: codec,
	}
}

func (c *CompressedSection) UpdateShdr(ctx *Context) error {
	if err := c.Inner.UpdateShdr(ctx); err != nil {
		return err
	}
	ih := c.Inner.Header()
	c.origSize = ih.Size
	c.origAddralign = ih.Addralign
	if c.origAddralign == 0 {
		c.origAddralign = 1
	}

	scratch := make([]byte, c.origSize)
	savedOffset := ih.Offset
	ih.Offset = 0
	err := c.Inner.CopyBuf(ctx, scratch)
	ih.Offset = savedOffset
	if err != nil {
		return err
	}

	compressed, err := compressBytes(c.Codec, scratch)
	if err != nil {
		return err
	}
	c.compressed = compressed

	c.Shdr.Size = uint64(ChdrSize) + uint64(len(c.compressed))
	c.Shdr.Addralign = 1
	c.Shdr.Flags |= SHF_COMPRESSED
	return nil
}

func (c *CompressedSection) CopyBuf(ctx *Context, buf []byte) error {
	out := buf[c.Shdr.Offset : c.Shdr.Offset+c.Shdr.Size]
	hdr := Chdr{
		Type:      compressionType(c.Codec),
		Size:      c.origSize,
		Addralign: c.origAddralign,
	}
	hdr.Marshal(out[:ChdrSize])
	copy(out[ChdrSize:], c.compressed)
	return nil
}

func compressionType(codec CompressKind) uint32 {
	switch codec {
	case CompressZstd:
		return ELFCOMPRESS_ZSTD
	default:
		return ELFCOMPRESS_ZLIB
	}
}

func compressBytes(codec CompressKind, data []byte) ([]byte, error) {
	switch codec {
	case CompressZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("chunk: creating zstd encoder: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	default:
		var buf bytes.Buffer
		w := zlib.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("chunk: zlib compressing section: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("chunk: closing zlib writer: %w", err)
		}
		return buf.Bytes(), nil
	}
}

