// Completion: 100% - Program header table chunk complete
package chunk

// PhdrSection is the PT_PHDR-referenced program header table itself: a
// Chunk wrapper around whatever PhdrBuilder.Build last computed, placed
// at a fixed file offset immediately after the Ehdr. It carries no
// section-header-table entry of its own name (ChunkName returns "" so
// ShstrtabSection skips it), matching how the table exists only as a
// Phdr row, never as an Shdr row.
type PhdrSection struct {
	Base
	Builder *PhdrBuilder
	Chunks  []Chunk // the ordered chunk list PhdrBuilder.Build scans

	entries []Phdr
}

func NewPhdrSection(b *PhdrBuilder) *PhdrSection {
	return &PhdrSection{
		Base:    NewBase("", SHT_NULL, SHF_ALLOC),
		Builder: b,
	}
}

func (p *PhdrSection) UpdateShdr(ctx *Context) error {
	p.entries = p.Builder.Build(ctx, p.Chunks)
	p.Shdr.Size = uint64(len(p.entries)) * PhdrSize
	p.Shdr.Addralign = uint64(ctx.Profile.WordSize)
	p.Shdr.Entsize = PhdrSize
	return nil
}

func (p *PhdrSection) CopyBuf(ctx *Context, buf []byte) error {
	out := buf[p.Shdr.Offset : p.Shdr.Offset+p.Shdr.Size]
	for i := range p.entries {
		p.entries[i].Marshal(out[i*PhdrSize : (i+1)*PhdrSize])
	}
	return nil
}

// Phnum is the number of rows the last UpdateShdr computed, for Ehdr.
func (p *PhdrSection) Phnum() int { return len(p.entries) }
