// Completion: 100% - Chunk protocol complete
package chunk

import "github.com/xyproto/coreld/internal/target"

// Chunk is the capability set every output-section abstraction
// implements. Only UpdateShdr and CopyBuf are mandatory; the optional
// phases (Construct, PopulateSymtab, ConstructRelr) are exposed through
// narrower interfaces a chunk may additionally satisfy, composing small
// capability pieces rather than one monolithic type.
type Chunk interface {
	// Header returns the chunk's mutable section-header record.
	Header() *Shdr
	// ChunkName is the output section name ("" for chunks that never
	// appear in the section header table, e.g. the program header table).
	ChunkName() string
	// Shndx is the 1-based section index assigned during layout, 0 if
	// this chunk has none.
	Shndx() int
	SetShndx(int)

	// UpdateShdr recomputes sh_size/sh_link/sh_info/sh_entsize/
	// sh_addralign from upstream-frozen state. Must be a pure function
	// of state finalized before it runs.
	UpdateShdr(ctx *Context) error

	// CopyBuf writes the chunk's bytes into buf[sh_offset:sh_offset+sh_size].
	// Executed in parallel with every other chunk's CopyBuf; must not
	// touch memory outside that range.
	CopyBuf(ctx *Context, buf []byte) error
}

// Constructor is implemented by chunks with non-trivial preparation
// that must run before UpdateShdr (.eh_frame, .gdb_index, version
// sections).
type Constructor interface {
	Construct(ctx *Context) error
}

// SymtabPopulator is implemented by chunks that emit linker-synthesized
// local symbols into .symtab (PLT stubs, thunks, GOT slots).
type SymtabPopulator interface {
	PopulateSymtab(ctx *Context) error
}

// RelrConstructor is implemented by chunks that contribute candidate
// relative relocations to the RELR bitmap when RELR packing is enabled.
type RelrConstructor interface {
	ConstructRelr(ctx *Context) error
}

// Base holds the fields every chunk needs: name, section index, header
// record, and the parallel-fill counters used during symbol-table
// population.
type Base struct {
	Name  string
	shndx int
	Shdr  Shdr

	// Parallel-fill counters, set during .symtab layout.
	StrtabOffset   uint32
	StrtabSize     uint32
	LocalSymtabIdx uint32
	NumLocalSymtab uint32
}

func (b *Base) Header() *Shdr      { return &b.Shdr }
func (b *Base) ChunkName() string  { return b.Name }
func (b *Base) Shndx() int         { return b.shndx }
func (b *Base) SetShndx(idx int)   { b.shndx = idx }

// baseRef exposes the embedded Base itself, letting phdrbuilder.go
// recover *Base from any Chunk that embeds Base by value (i.e. every
// concrete chunk type in this package) without a type switch over
// every chunk type.
func (b *Base) baseRef() *Base { return b }

// NewBase initializes a Base with the given name, type and flags —
// the three fields every chunk constructor sets immediately.
func NewBase(name string, typ uint32, flags uint64) Base {
	return Base{
		Name: name,
		Shdr: Shdr{Type: typ, Flags: flags, Addralign: 1},
	}
}

// IsRelroEligible reports whether a writable chunk belongs in
// PT_GNU_RELRO.
func IsRelroEligible(b *Base, zNow bool) bool {
	if b.Shdr.Flags&SHF_WRITE == 0 {
		return false
	}
	if b.Shdr.Flags&SHF_TLS != 0 {
		return true
	}
	switch b.Shdr.Type {
	case SHT_INIT_ARRAY, SHT_FINI_ARRAY, SHT_PREINIT_ARRAY:
		return true
	}
	switch b.Name {
	case ".got", ".dynamic", ".relro_padding", ".toc":
		return true
	}
	if len(b.Name) >= 7 && b.Name[len(b.Name)-7:] == ".rel.ro" {
		return true
	}
	if zNow && b.Name == ".got.plt" {
		return true
	}
	return false
}

// SegmentFlags computes the PF_* flags a chunk contributes to its
// PT_LOAD/PT_NOTE segment.
func SegmentFlags(flags uint64, noRosegment bool) uint32 {
	pf := uint32(PF_R)
	if flags&SHF_WRITE != 0 {
		pf |= PF_W
	}
	if flags&SHF_EXECINSTR != 0 {
		pf |= PF_X
	} else if flags&SHF_WRITE == 0 && noRosegment {
		pf |= PF_X
	}
	return pf
}

// profileOf is a small helper so chunk files can reach the active
// target.Profile without importing target directly in every file.
func profileOf(ctx *Context) *target.Profile { return ctx.Profile }
