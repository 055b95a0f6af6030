// Completion: 100% - ELF header chunk complete
package chunk

// EhdrSection is the 64-byte ELF file header at offset 0: a chunk like
// any other, just one with no ChunkName. It reads PhdrTable/ShdrTable's
// already-computed counts and the link's entry point rather than
// recomputing them.
type EhdrSection struct {
	Base
	PhdrTable *PhdrSection
	ShdrTable *ShdrSection
	Shstrtab  *ShstrtabSection
	EntrySym  string // symbol name resolved against ctx.Symbols, or "" for none
}

func NewEhdrSection(p *PhdrSection, s *ShdrSection, shstrtab *ShstrtabSection) *EhdrSection {
	return &EhdrSection{
		Base:      NewBase("", SHT_NULL, SHF_ALLOC),
		PhdrTable: p,
		ShdrTable: s,
		Shstrtab:  shstrtab,
	}
}

func (e *EhdrSection) UpdateShdr(ctx *Context) error {
	e.Shdr.Size = EhdrSize
	e.Shdr.Addralign = uint64(ctx.Profile.WordSize)
	return nil
}

func (e *EhdrSection) CopyBuf(ctx *Context, buf []byte) error {
	var entry uint64
	if e.EntrySym != "" {
		if sym, ok := ctx.Symbols.Lookup(e.EntrySym); ok {
			entry = sym.Value
		}
	}

	eType := uint16(ET_EXEC)
	if ctx.Options.Output != OutputExec {
		eType = ET_DYN
	}

	dataEnc := byte(ELFDATA2LSB)
	if !ctx.Profile.LittleEndian {
		dataEnc = ELFDATA2MSB
	}
	class := byte(ELFCLASS64)
	if ctx.Profile.WordSize == 4 {
		class = ELFCLASS32
	}

	hdr := Ehdr{
		Type:      eType,
		Machine:   ctx.Profile.EMachine,
		Version:   EV_CURRENT,
		Entry:     entry,
		Phoff:     e.PhdrTable.Shdr.Offset,
		Shoff:     e.ShdrTable.Shdr.Offset,
		Ehsize:    EhdrSize,
		Phentsize: PhdrSize,
		Phnum:     uint16(e.PhdrTable.Phnum()),
		Shentsize: ShdrSize,
		Shnum:     uint16(e.ShdrTable.Shnum()),
		Shstrndx:  uint16(e.Shstrtab.Shndx()),
	}
	hdr.Ident[0] = ELFMAG0
	hdr.Ident[1] = ELFMAG1
	hdr.Ident[2] = ELFMAG2
	hdr.Ident[3] = ELFMAG3
	hdr.Ident[EI_CLASS] = class
	hdr.Ident[EI_DATA] = dataEnc
	hdr.Ident[EI_VERSION] = EV_CURRENT
	hdr.Ident[EI_OSABI] = ELFOSABI_NONE

	hdr.Marshal(buf[e.Shdr.Offset : e.Shdr.Offset+EhdrSize])
	return nil
}
