// Completion: 100% - Section header table chunk complete
package chunk

// ShdrSection is the section header table: row 0 is the mandatory
// all-zero SHN_UNDEF entry, followed by one row per chunk that carries
// a section index, in ascending Shndx order. Like PhdrSection it has
// no ChunkName of its own.
type ShdrSection struct {
	Base
	Chunks []Chunk // every chunk with Shndx() > 0, any order; sorted here by Shndx
}

func NewShdrSection() *ShdrSection {
	return &ShdrSection{Base: NewBase("", SHT_NULL, 0)}
}

func (s *ShdrSection) ordered() []Chunk {
	max := 0
	for _, c := range s.Chunks {
		if idx := c.Shndx(); idx > max {
			max = idx
		}
	}
	rows := make([]Chunk, max+1)
	for _, c := range s.Chunks {
		if idx := c.Shndx(); idx > 0 {
			rows[idx] = c
		}
	}
	return rows
}

func (s *ShdrSection) UpdateShdr(ctx *Context) error {
	s.Shdr.Size = uint64(len(s.ordered())) * ShdrSize
	s.Shdr.Addralign = uint64(ctx.Profile.WordSize)
	s.Shdr.Entsize = ShdrSize
	return nil
}

func (s *ShdrSection) CopyBuf(ctx *Context, buf []byte) error {
	rows := s.ordered()
	out := buf[s.Shdr.Offset : s.Shdr.Offset+s.Shdr.Size]
	for i, c := range rows {
		if c == nil {
			continue // row 0, and any unused index left by a gap
		}
		c.Header().Marshal(out[i*ShdrSize : (i+1)*ShdrSize])
	}
	return nil
}

// Shnum is the row count (including the reserved row 0) the last
// UpdateShdr computed, for Ehdr.
func (s *ShdrSection) Shnum() int { return len(s.ordered()) }
