// Completion: 100% - String table family complete
package chunk

// The three string-table varieties below all start with a NUL byte at
// offset 0 (so "no name" = offset 0) and otherwise differ in who is
// allowed to insert and when.

// StrtabSection is .strtab: regular (non-dynamic) symbol names. Space
// is reserved per input file during UpdateShdr (cheap: just summing
// name lengths), so CopyBuf can write every file's names in parallel
// into disjoint subranges without any lock.
type StrtabSection struct {
	Base
	Files []*ObjectFile

	fileBase []uint32 // fileBase[i] = byte offset where Files[i]'s names start
}

func NewStrtabSection() *StrtabSection {
	return &StrtabSection{Base: NewBase(".strtab", SHT_STRTAB, 0)}
}

func (s *StrtabSection) UpdateShdr(ctx *Context) error {
	size := uint32(1) // leading NUL
	s.fileBase = make([]uint32, len(s.Files))
	for i, f := range s.Files {
		s.fileBase[i] = size
		for _, sym := range f.Locals {
			size += uint32(len(sym.Name)) + 1
		}
		for _, sym := range f.Globals {
			size += uint32(len(sym.Name)) + 1
		}
	}
	s.Shdr.Size = uint64(size)
	s.Shdr.Addralign = 1
	s.Shdr.Entsize = 0
	return nil
}

func (s *StrtabSection) CopyBuf(ctx *Context, buf []byte) error {
	out := buf[s.Shdr.Offset : s.Shdr.Offset+s.Shdr.Size]
	return ctx.Par.ForEach(len(s.Files), func(i int) error {
		f := s.Files[i]
		off := s.fileBase[i]
		for _, sym := range f.Locals {
			sym.StrtabOff = off
			off += uint32(copy(out[off:], sym.Name))
			out[off] = 0
			off++
		}
		for _, sym := range f.Globals {
			sym.StrtabOff = off
			off += uint32(copy(out[off:], sym.Name))
			out[off] = 0
			off++
		}
		return nil
	})
}

// ShstrtabSection is .shstrtab: section names, one entry per chunk,
// inserted in chunk-registration order, not alphabetically, for
// reproducibility.
type ShstrtabSection struct {
	Base
	Chunks []Chunk

	buf []byte
}

func NewShstrtabSection() *ShstrtabSection {
	return &ShstrtabSection{Base: NewBase(".shstrtab", SHT_STRTAB, 0)}
}

func (s *ShstrtabSection) UpdateShdr(ctx *Context) error {
	s.buf = []byte{0}
	for _, c := range s.Chunks {
		name := c.ChunkName()
		if name == "" {
			continue
		}
		c.Header().Name = uint32(len(s.buf))
		s.buf = append(s.buf, name...)
		s.buf = append(s.buf, 0)
	}
	s.Shdr.Size = uint64(len(s.buf))
	s.Shdr.Addralign = 1
	return nil
}

func (s *ShstrtabSection) CopyBuf(ctx *Context, buf []byte) error {
	copy(buf[s.Shdr.Offset:s.Shdr.Offset+s.Shdr.Size], s.buf)
	return nil
}

// DynstrSection is .dynstr: dynamic-symbol names, SONAME, RUNPATH and
// DT_NEEDED entries, and version strings, with a deduplication map for
// those non-symbol "tag" strings.
type DynstrSection struct {
	Base
	Dynsym *DynsymSection

	buf         []byte
	dynsymBase  uint32
}

func NewDynstrSection(dynsym *DynsymSection) *DynstrSection {
	return &DynstrSection{
		Base:   NewBase(".dynstr", SHT_STRTAB, SHF_ALLOC),
		Dynsym: dynsym,
	}
}

// ReserveTag inserts s (a SONAME/RUNPATH/NEEDED/version string) if not
// already present, returning its stable byte offset.
func (s *DynstrSection) ReserveTag(ctx *Context, str string) uint32 {
	if off, ok := ctx.dedupKey(str); ok {
		return off
	}
	if len(s.buf) == 0 {
		s.buf = []byte{0}
	}
	off := uint32(len(s.buf))
	s.buf = append(s.buf, str...)
	s.buf = append(s.buf, 0)
	ctx.rememberDedup(str, off)
	return off
}

func (s *DynstrSection) UpdateShdr(ctx *Context) error {
	if len(s.buf) == 0 {
		s.buf = []byte{0}
	}
	s.dynsymBase = uint32(len(s.buf))
	if s.Dynsym != nil {
		for _, sym := range s.Dynsym.Order {
			sym.DynstrOff = uint32(len(s.buf))
			s.buf = append(s.buf, sym.Name...)
			s.buf = append(s.buf, 0)
		}
	}
	s.Shdr.Size = uint64(len(s.buf))
	s.Shdr.Addralign = 1
	return nil
}

func (s *DynstrSection) CopyBuf(ctx *Context, buf []byte) error {
	copy(buf[s.Shdr.Offset:s.Shdr.Offset+s.Shdr.Size], s.buf)
	return nil
}
