// Completion: 100% - Symbol table chunks complete
package chunk

import "math/bits"

// ToElfSym translates a Symbol into its on-disk ElfSym record by
// trying each case in turn: copy relocation, DSO/undefined, regular
// output-chunk-relative, merged fragment, absolute, TLS, else
// undefined. By the time this runs, Symbol.Value already holds the
// link's final resolved address; the address-assignment pass that
// sets each chunk's sh_addr/sh_offset is also responsible for
// resolving a symbol's final value.
func ToElfSym(sym *Symbol, ctx *Context, pltAddr uint64, inheritedGlobal bool) Sym {
	bind := sym.Binding(inheritedGlobal)
	typ := byte(STT_NOTYPE)
	if sym.Kind == SymIFunc {
		typ = STT_GNU_IFUNC
	} else if sym.Kind == SymTLS {
		typ = STT_TLS
	}

	switch {
	case sym.HasCopyRel:
		shndx := uint16(0)
		if sym.OutputChunk != nil {
			shndx = uint16(sym.OutputChunk.Shndx())
		}
		return Sym{Name: sym.DynstrOff, Info: stInfo(bind, typ), Shndx: shndx, Value: sym.Value, Size: sym.Size}

	case sym.Kind == SymDSO || sym.Kind == SymUndefined:
		val := uint64(0)
		if sym.CanonicalPLT {
			val = pltAddr
		}
		return Sym{Name: sym.DynstrOff, Info: stInfo(bind, typ), Shndx: SHN_UNDEF, Value: val, Size: 0}

	case sym.OutputChunk != nil:
		shndx := uint16(sym.OutputChunk.Shndx())
		return Sym{Name: sym.DynstrOff, Info: stInfo(bind, typ), Shndx: shndx, Value: sym.Value, Size: sym.Size}

	case sym.Fragment != nil:
		shndx := uint16(0)
		if sym.Fragment.Output != nil {
			shndx = uint16(sym.Fragment.Output.Shndx())
		}
		return Sym{Name: sym.DynstrOff, Info: stInfo(bind, typ), Shndx: shndx, Value: sym.Value, Size: 0}

	case sym.Kind == SymAbs:
		return Sym{Name: sym.DynstrOff, Info: stInfo(bind, typ), Shndx: SHN_ABS, Value: sym.Value, Size: sym.Size}

	case sym.Kind == SymTLS:
		return Sym{Name: sym.DynstrOff, Info: stInfo(bind, typ), Shndx: SHN_UNDEF, Value: sym.Value - ctx.TLSBegin, Size: sym.Size}

	default:
		return Sym{Name: sym.DynstrOff, Info: stInfo(bind, typ), Shndx: SHN_UNDEF, Value: sym.Value, Size: sym.Size}
	}
}

// SymtabSection is .symtab. Final order: NUL, section symbols,
// linker-synthesized locals, per-file locals, per-file global objects,
// per-file global DSO symbols. sh_info is the index of the first
// non-local (global) symbol.
type SymtabSection struct {
	Base
	Strtab *StrtabSection

	SectionSymbols []Chunk   // one per allocated output section
	LinkerLocals   []*Symbol // PLT stubs, thunks, synthesized locals
	Files          []*ObjectFile

	order    []*Symbol
	firstGlobal uint32
}

func NewSymtabSection(strtab *StrtabSection) *SymtabSection {
	return &SymtabSection{Base: NewBase(".symtab", SHT_SYMTAB, 0), Strtab: strtab}
}

func (s *SymtabSection) UpdateShdr(ctx *Context) error {
	s.order = s.order[:0]
	s.order = append(s.order, s.LinkerLocals...)
	for _, f := range s.Files {
		s.order = append(s.order, f.Locals...)
	}
	s.firstGlobal = uint32(1 + len(s.SectionSymbols) + len(s.order))
	for _, dso := range []bool{false, true} {
		for _, f := range s.Files {
			if f.IsDSO != dso {
				continue
			}
			for _, g := range f.Globals {
				if !g.IsLocal {
					s.order = append(s.order, g)
				}
			}
		}
	}

	s.Shdr.Size = uint64(1+len(s.SectionSymbols)+len(s.order)) * SymSize
	s.Shdr.Entsize = SymSize
	s.Shdr.Addralign = 8
	s.Shdr.Info = s.firstGlobal
	if s.Strtab != nil {
		s.Shdr.Link = uint32(s.Strtab.Shndx())
	}
	return nil
}

func (s *SymtabSection) CopyBuf(ctx *Context, buf []byte) error {
	out := buf[s.Shdr.Offset : s.Shdr.Offset+s.Shdr.Size]
	var null Sym
	null.Marshal(out[0:SymSize])

	idx := 1
	for _, c := range s.SectionSymbols {
		sym := Sym{Name: 0, Info: stInfo(STB_LOCAL, STT_SECTION), Shndx: uint16(c.Shndx()), Value: c.Header().Addr}
		sym.Marshal(out[idx*SymSize : (idx+1)*SymSize])
		idx++
	}
	for _, sym := range s.order {
		isLocalSlot := idx < int(s.firstGlobal)
		rec := ToElfSym(sym, ctx, 0, !isLocalSlot)
		rec.Name = sym.StrtabOff
		rec.Marshal(out[idx*SymSize : (idx+1)*SymSize])
		idx++
	}
	return nil
}

// gnuHashNumBuckets implements the bucket-count rule shared by
// DynsymSection's sort key and GnuHashSection's header: a simple,
// deterministic next-power-of-two sizing, rather than the
// prime-ish bucket-count heuristics some linkers use.
func gnuHashNumBuckets(numExported int) uint32 {
	if numExported == 0 {
		return 1
	}
	n := uint32(numExported)
	pow := uint32(1) << bits.Len32(n-1)
	if pow < 1 {
		pow = 1
	}
	return pow
}

// DynsymSection is .dynsym. Stable sort order:
// (is_local?0:1), (is_exported?1:0), hash%num_buckets, original_index.
type DynsymSection struct {
	Base
	Dynstr *DynstrSection

	Locals []*Symbol // local dynsyms (rare: STT_SECTION-like helper entries)
	Exported []*Symbol
	NonExported []*Symbol // global but not exported (e.g. hidden visibility)

	Order         []*Symbol
	exportedStart int
}

func NewDynsymSection() *DynsymSection {
	return &DynsymSection{Base: NewBase(".dynsym", SHT_DYNSYM, SHF_ALLOC)}
}

// ExportedOffset returns the index of the first exported symbol in
// Order: exported symbols always form a contiguous suffix, and
// .gnu.hash relies on that invariant. DynsymSection is the single
// owner of it.
func (d *DynsymSection) ExportedOffset() int { return d.exportedStart }

func (d *DynsymSection) UpdateShdr(ctx *Context) error {
	numBuckets := gnuHashNumBuckets(len(d.Exported))

	all := make([]*Symbol, 0, len(d.Locals)+len(d.NonExported)+len(d.Exported))
	all = append(all, d.Locals...)
	all = append(all, d.NonExported...)
	all = append(all, d.Exported...)

	ctx.Par.SortStable(len(all),
		func(i, j int) bool {
			a, b := all[i], all[j]
			ak, bk := dynsymRank(a), dynsymRank(b)
			if ak != bk {
				return ak < bk
			}
			if ak == 2 { // both exported: bucket, then original index
				ha, hb := djbHash(a.Name)%numBuckets, djbHash(b.Name)%numBuckets
				if ha != hb {
					return ha < hb
				}
			}
			return a.OriginalIndex < b.OriginalIndex
		},
		func(i, j int) { all[i], all[j] = all[j], all[i] })

	d.Order = all
	d.exportedStart = len(all) - len(d.Exported)
	for i, sym := range d.Order {
		sym.DynsymIdx = uint32(i + 1) // row 0 is the NUL entry
	}

	d.Shdr.Size = uint64(1+len(d.Order)) * SymSize
	d.Shdr.Entsize = SymSize
	d.Shdr.Addralign = 8
	// First global dynsym is index 1 (after the NUL entry) unless the
	// rare local-dynsym case applies.
	d.Shdr.Info = uint32(1 + len(d.Locals))
	if d.Dynstr != nil {
		d.Shdr.Link = uint32(d.Dynstr.Shndx())
	}
	return nil
}

// dynsymRank implements the (is_local ? 0 : 1), (is_exported ? 1 : 0)
// compound key as a single ordinal: 0=local, 1=global-non-exported,
// 2=global-exported.
func dynsymRank(s *Symbol) int {
	if s.IsLocal {
		return 0
	}
	if s.IsExported {
		return 2
	}
	return 1
}

func (d *DynsymSection) CopyBuf(ctx *Context, buf []byte) error {
	out := buf[d.Shdr.Offset : d.Shdr.Offset+d.Shdr.Size]
	var null Sym
	null.Marshal(out[0:SymSize])
	for i, sym := range d.Order {
		rec := ToElfSym(sym, ctx, 0, !sym.IsLocal)
		rec.Name = sym.DynstrOff
		rec.Marshal(out[(i+1)*SymSize : (i+2)*SymSize])
	}
	return nil
}
