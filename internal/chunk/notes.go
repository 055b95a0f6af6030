// Completion: 100% - Build-ID, package and property notes complete
package chunk

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"

	"github.com/google/uuid"
)

// BuildIDMode selects how BuildIdSection.WriteBuildID fills the note's
// digest: explicit hex bytes, a content hash computed after every
// other byte of the file is final, or a random UUID.
type BuildIDMode int

const (
	BuildIDNone BuildIDMode = iota
	BuildIDHex
	BuildIDHash
	BuildIDUUID
)

const buildIDHeaderSize = 16 // namesz(4) + descsz(4) + type(4) + "GNU\0"(4)

// BuildIdSection is .note.gnu.build-id. Its digest cannot be computed
// during the normal CopyBuf pass because a content hash must see every
// other chunk's final bytes; the driver calls WriteBuildID once the
// rest of the output file is written, after CopyBuf but before the
// file is finalized.
type BuildIdSection struct {
	Base
	Mode    BuildIDMode
	HexBytes []byte
	HashSize int // digest bytes to keep when Mode == BuildIDHash
}

func NewBuildIdSection() *BuildIdSection {
	return &BuildIdSection{Base: NewBase(".note.gnu.build-id", SHT_NOTE, SHF_ALLOC)}
}

func (b *BuildIdSection) descSize() int {
	switch b.Mode {
	case BuildIDHex:
		return len(b.HexBytes)
	case BuildIDHash:
		return b.HashSize
	case BuildIDUUID:
		return 16
	default:
		return 0
	}
}

func (b *BuildIdSection) UpdateShdr(ctx *Context) error {
	b.Shdr.Size = uint64(buildIDHeaderSize + b.descSize())
	b.Shdr.Addralign = 4
	return nil
}

// CopyBuf writes the note header and zeroes the descriptor area; the
// descriptor itself is filled by WriteBuildID once the rest of the
// file's bytes are in place (BuildIDHash mode needs that order).
func (b *BuildIdSection) CopyBuf(ctx *Context, buf []byte) error {
	out := buf[b.Shdr.Offset : b.Shdr.Offset+b.Shdr.Size]
	for i := range out {
		out[i] = 0
	}
	le := binary.LittleEndian
	le.PutUint32(out[0:4], 4)
	le.PutUint32(out[4:8], uint32(b.descSize()))
	le.PutUint32(out[8:12], NT_GNU_BUILD_ID)
	copy(out[12:16], "GNU\x00")

	switch b.Mode {
	case BuildIDHex:
		copy(out[buildIDHeaderSize:], b.HexBytes)
	case BuildIDUUID:
		id := uuid.New()
		copy(out[buildIDHeaderSize:], id[:])
	case BuildIDHash:
		// Left zero; WriteBuildID fills it after the full file is written.
	}
	return nil
}

// WriteBuildID computes a sharded SHA-256 over the finished output
// file and writes the first HashSize bytes into the descriptor area:
// hash fixed-size shards in parallel, then hash the concatenation of
// shard digests. Only meaningful when Mode == BuildIDHash; a no-op
// otherwise.
func (b *BuildIdSection) WriteBuildID(ctx *Context, file []byte) error {
	if b.Mode != BuildIDHash {
		return nil
	}
	const shardSize = 4 * 1024 * 1024
	descOff := b.Shdr.Offset + buildIDHeaderSize

	numShards := (len(file) + shardSize - 1) / shardSize
	if numShards == 0 {
		numShards = 1
	}
	shardDigests := make([][sha256.Size]byte, numShards)
	err := ctx.Par.ForEach(numShards, func(i int) error {
		start := i * shardSize
		end := start + shardSize
		if end > len(file) {
			end = len(file)
		}
		shardDigests[i] = sha256.Sum256(file[start:end])
		return nil
	})
	if err != nil {
		return err
	}

	flat := make([]byte, 0, numShards*sha256.Size)
	for _, d := range shardDigests {
		flat = append(flat, d[:]...)
	}
	digest := sha256.Sum256(flat)
	copy(file[descOff:descOff+uint64(b.HashSize)], digest[:b.HashSize])
	return nil
}

// PackageNoteSection is .note.package: a NUL-terminated JSON payload
// describing the package that produced this binary, following the FDO
// packaging-metadata note convention.
type PackageNoteSection struct {
	Base
	Metadata json.RawMessage
}

func NewPackageNoteSection(metadata json.RawMessage) *PackageNoteSection {
	return &PackageNoteSection{Base: NewBase(".note.package", SHT_NOTE, SHF_ALLOC), Metadata: metadata}
}

func (p *PackageNoteSection) payload() []byte {
	payload := append([]byte{}, p.Metadata...)
	return append(payload, 0)
}

func (p *PackageNoteSection) UpdateShdr(ctx *Context) error {
	p.Shdr.Size = uint64(16 + len(p.payload()))
	p.Shdr.Addralign = 4
	return nil
}

func (p *PackageNoteSection) CopyBuf(ctx *Context, buf []byte) error {
	out := buf[p.Shdr.Offset : p.Shdr.Offset+p.Shdr.Size]
	payload := p.payload()
	le := binary.LittleEndian
	le.PutUint32(out[0:4], 4)
	le.PutUint32(out[4:8], uint32(len(payload)))
	le.PutUint32(out[8:12], NT_FDO_PACKAGING_METADATA)
	copy(out[12:16], "FDO\x00")
	copy(out[16:], payload)
	return nil
}

// GNUPropertySection is .note.gnu.property: a single
// GNU_PROPERTY_X86_FEATURE_1_AND descriptor. X86Features carries the
// bitwise-AND of every input object's feature bits.
type GNUPropertySection struct {
	Base
	X86Features uint32
}

func NewGNUPropertySection(features uint32) *GNUPropertySection {
	return &GNUPropertySection{Base: NewBase(".note.gnu.property", SHT_NOTE, SHF_ALLOC), X86Features: features}
}

func (g *GNUPropertySection) UpdateShdr(ctx *Context) error {
	// name("GNU\0")=4, descsz=16 (type+datasz+value+pad for a 64-bit
	// target; is64 targets always pad pr_datasz's 4-byte value to 8).
	g.Shdr.Size = 12 + 4 + 16
	g.Shdr.Addralign = 8
	return nil
}

func (g *GNUPropertySection) CopyBuf(ctx *Context, buf []byte) error {
	out := buf[g.Shdr.Offset : g.Shdr.Offset+g.Shdr.Size]
	for i := range out {
		out[i] = 0
	}
	le := binary.LittleEndian
	le.PutUint32(out[0:4], 4)
	le.PutUint32(out[4:8], 16)
	le.PutUint32(out[8:12], NT_GNU_PROPERTY_TYPE_0)
	copy(out[12:16], "GNU\x00")
	le.PutUint32(out[16:20], GNU_PROPERTY_X86_FEATURE_1_AND)
	le.PutUint32(out[20:24], 4)
	le.PutUint32(out[24:28], g.X86Features)
	return nil
}
