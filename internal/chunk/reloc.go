// Completion: 100% - Relocation section chunks complete
package chunk

// relocRank assigns the three-way sort key .rel.dyn entries use:
// 0=R_RELATIVE, 2=R_IRELATIVE, 1=everything else.
func relocRank(relType, relativeType, irelativeType uint32) int {
	switch relType {
	case relativeType:
		return 0
	case irelativeType:
		return 2
	default:
		return 1
	}
}

// DynRel is one pending dynamic relocation, gathered from GOT entries
// and copy relocations before a final file-order pass of per-object
// relocation blocks.
type DynRel struct {
	Offset uint64
	Sym    *Symbol
	Type   uint32
	Addend int64
}

// RelDynSection is .rel.dyn / .rela.dyn. UpdateShdr gathers the
// GOT-derived relocations, the copy relocations and the per-object-file
// relocation blocks, then stable-sorts them all: R_RELATIVE first,
// R_IRELATIVE last, other types between, each group ordered by dynsym
// index and then by offset.
type RelDynSection struct {
	Base
	Got        *GotSection
	Dynsym     *DynsymSection
	CopyRels   []DynRel
	FileBlocks [][]DynRel // one slice per object file, in file order

	staticLink   bool
	sharedOutput bool

	entries []DynRel
}

func NewRelDynSection(got *GotSection, dynsym *DynsymSection) *RelDynSection {
	return &RelDynSection{
		Base:   NewBase(".rela.dyn", SHT_RELA, SHF_ALLOC),
		Got:    got,
		Dynsym: dynsym,
	}
}

func (r *RelDynSection) gather(ctx *Context) []DynRel {
	p := ctx.Profile
	var out []DynRel
	for _, e := range r.Got.GetEntries(ctx, r.staticLink, r.sharedOutput) {
		if e.RelType == p.Reloc.None {
			continue
		}
		offset := r.Got.Shdr.Addr + uint64(e.Idx)*uint64(p.WordSize)
		out = append(out, DynRel{Offset: offset, Sym: e.Sym, Type: e.RelType, Addend: int64(e.Val)})
	}
	out = append(out, r.CopyRels...)
	for _, block := range r.FileBlocks {
		out = append(out, block...)
	}
	return out
}

func (r *RelDynSection) UpdateShdr(ctx *Context) error {
	r.entries = r.gather(ctx)
	p := ctx.Profile

	ctx.Par.SortStable(len(r.entries),
		func(i, j int) bool {
			a, b := r.entries[i], r.entries[j]
			ra := relocRank(a.Type, p.Reloc.Relative, p.Reloc.IRelative)
			rb := relocRank(b.Type, p.Reloc.Relative, p.Reloc.IRelative)
			if ra != rb {
				return ra < rb
			}
			aIdx, bIdx := symIndexOf(a.Sym), symIndexOf(b.Sym)
			if aIdx != bIdx {
				return aIdx < bIdx
			}
			return a.Offset < b.Offset
		},
		func(i, j int) { r.entries[i], r.entries[j] = r.entries[j], r.entries[i] })

	r.Shdr.Size = uint64(len(r.entries)) * RelaSize
	r.Shdr.Entsize = RelaSize
	r.Shdr.Addralign = 8
	if r.Dynsym != nil {
		r.Shdr.Link = uint32(r.Dynsym.Shndx())
	}
	return nil
}

func symIndexOf(s *Symbol) uint32 {
	if s == nil {
		return 0
	}
	return s.DynsymIdx
}

func (r *RelDynSection) CopyBuf(ctx *Context, buf []byte) error {
	out := buf[r.Shdr.Offset : r.Shdr.Offset+r.Shdr.Size]
	return ctx.Par.ForEach(len(r.entries), func(i int) error {
		e := r.entries[i]
		rec := Rela{Offset: e.Offset, Sym: symIndexOf(e.Sym), Type: e.Type, Addend: e.Addend}
		rec.Marshal(out[i*RelaSize : (i+1)*RelaSize])
		return nil
	})
}

// RelPltSection is .rel.plt / .rela.plt: one R_JUMP_SLOT per PLT
// entry, pointing at the .got.plt slot.
type RelPltSection struct {
	Base
	Plt    *PltSection
	GotPlt *GotPltSection
	Dynsym *DynsymSection
}

func NewRelPltSection(plt *PltSection, gotPlt *GotPltSection, dynsym *DynsymSection) *RelPltSection {
	return &RelPltSection{
		Base:   NewBase(".rela.plt", SHT_RELA, SHF_ALLOC|SHF_INFO_LINK),
		Plt:    plt,
		GotPlt: gotPlt,
		Dynsym: dynsym,
	}
}

func (r *RelPltSection) UpdateShdr(ctx *Context) error {
	r.Shdr.Size = uint64(len(r.Plt.Symbols)) * RelaSize
	r.Shdr.Entsize = RelaSize
	r.Shdr.Addralign = 8
	if r.Dynsym != nil {
		r.Shdr.Link = uint32(r.Dynsym.Shndx())
	}
	if r.Plt != nil {
		r.Shdr.Info = uint32(r.Plt.Shndx())
	}
	return nil
}

func (r *RelPltSection) CopyBuf(ctx *Context, buf []byte) error {
	out := buf[r.Shdr.Offset : r.Shdr.Offset+r.Shdr.Size]
	jumpSlot := ctx.Profile.Reloc.JumpSlot
	return ctx.Par.ForEach(len(r.Plt.Symbols), func(i int) error {
		sym := r.Plt.Symbols[i]
		slotAddr := r.GotPlt.Shdr.Addr + uint64(3+i)*uint64(ctx.Profile.WordSize)
		rec := Rela{Offset: slotAddr, Sym: symIndexOf(sym), Type: jumpSlot}
		rec.Marshal(out[i*RelaSize : (i+1)*RelaSize])
		return nil
	})
}
