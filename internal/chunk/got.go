// Completion: 100% - GOT/PLT family complete
package chunk

import (
	"github.com/xyproto/coreld/internal/target"
)

// GotEntry is one slot's worth of content: either a link-time-filled
// value (RelType == profile.Reloc.None) or a value that needs a
// dynamic relocation applied at load time.
type GotEntry struct {
	Idx    int
	Val    uint64
	RelType uint32 // target.Profile.Reloc.None if link-time-filled
	Sym    *Symbol
}

// IsRelrCandidate reports whether this entry is a candidate for RELR
// packing: r_type is R_RELATIVE and the target offset is word-aligned.
func (e *GotEntry) IsRelrCandidate(p *target.Profile, wordSize uint64) bool {
	return e.RelType == p.Reloc.Relative && e.Val%wordSize == 0
}

// GotSection is .got: one additive slot per add_*_symbol call. Slot
// kinds are resolved into concrete entries by GetEntries.
type GotSection struct {
	Base

	regular []*Symbol // imported / ifunc / regular GOT slots
	gottp   []*Symbol
	tlsgd   []*Symbol
	tlsdesc []*Symbol
	tlsld   bool
}

func NewGotSection() *GotSection {
	return &GotSection{Base: NewBase(".got", SHT_PROGBITS, SHF_ALLOC|SHF_WRITE)}
}

func (g *GotSection) AddRegularSymbol(s *Symbol) {
	if s.HasGot() {
		return
	}
	s.GotIdx = uint32(len(g.regular))
	g.regular = append(g.regular, s)
}

func (g *GotSection) AddGotTpSymbol(s *Symbol) {
	if s.HasGotTp() {
		return
	}
	s.GotTpIdx = uint32(len(g.gottp))
	g.gottp = append(g.gottp, s)
}

func (g *GotSection) AddTlsGdSymbol(s *Symbol) {
	if s.HasTlsGd() {
		return
	}
	s.TlsGdIdx = uint32(len(g.tlsgd))
	g.tlsgd = append(g.tlsgd, s)
}

func (g *GotSection) AddTlsDescSymbol(s *Symbol) {
	if s.HasTlsDesc() {
		return
	}
	s.TlsDescIdx = uint32(len(g.tlsdesc))
	g.tlsdesc = append(g.tlsdesc, s)
}

func (g *GotSection) AddTlsLd() { g.tlsld = true }

func (g *GotSection) regularSlots() int { return len(g.regular) }
func (g *GotSection) gottpSlots() int   { return len(g.gottp) }
func (g *GotSection) tlsgdSlots() int   { return 2 * len(g.tlsgd) }
func (g *GotSection) tlsdescSlots() int { return 2 * len(g.tlsdesc) }
func (g *GotSection) tlsldSlots() int {
	if g.tlsld {
		return 2
	}
	return 0
}

func (g *GotSection) UpdateShdr(ctx *Context) error {
	n := g.regularSlots() + g.gottpSlots() + g.tlsgdSlots() + g.tlsdescSlots() + g.tlsldSlots()
	g.Shdr.Size = uint64(n) * uint64(ctx.Profile.WordSize)
	g.Shdr.Addralign = uint64(ctx.Profile.WordSize)
	g.Shdr.Entsize = uint64(ctx.Profile.WordSize)
	return nil
}

// GetEntries synthesizes one GotEntry per slot, dispatching on symbol
// kind. staticLink/sharedOutput select between the static and dynamic
// variants of the TLS rows.
func (g *GotSection) GetEntries(ctx *Context, staticLink, sharedOutput bool) []GotEntry {
	p := ctx.Profile
	var entries []GotEntry
	idx := 0

	for _, sym := range g.regular {
		e := GotEntry{Idx: idx, Sym: sym}
		switch {
		case sym.IsImported:
			e.RelType = p.Reloc.GlobDat
		case sym.Kind == SymIFunc:
			e.Val = sym.Value
			e.RelType = p.Reloc.IRelative
		default:
			e.Val = sym.Value
			e.RelType = p.Reloc.Relative
			if staticLink {
				e.RelType = p.Reloc.None
			}
		}
		entries = append(entries, e)
		idx++
	}

	for _, sym := range g.gottp {
		e := GotEntry{Idx: idx, Sym: sym}
		switch {
		case sym.IsImported:
			e.RelType = p.Reloc.TPOff
		case sharedOutput:
			e.Val = sym.Value - ctx.TLSBegin
			e.RelType = p.Reloc.TPOff
		default:
			e.Val = sym.Value - p.TPAddr(ctx.TLSBegin, ctx.TLSMemsz, ctx.TLSAlign)
			e.RelType = p.Reloc.None
		}
		entries = append(entries, e)
		idx++
	}

	for _, sym := range g.tlsgd {
		if staticLink {
			entries = append(entries,
				GotEntry{Idx: idx, Val: 1, RelType: p.Reloc.None},
				GotEntry{Idx: idx + 1, Val: sym.Value - ctx.TLSBegin - p.TLSDTVOffset, RelType: p.Reloc.None})
		} else {
			entries = append(entries,
				GotEntry{Idx: idx, Val: 0, RelType: p.Reloc.DTPMod, Sym: sym},
				GotEntry{Idx: idx + 1, Val: 0, RelType: p.Reloc.DTPOff, Sym: sym})
		}
		idx += 2
	}

	for _, sym := range g.tlsdesc {
		entries = append(entries,
			GotEntry{Idx: idx, Val: 0, RelType: p.Reloc.TLSDesc, Sym: sym},
			GotEntry{Idx: idx + 1, Val: 0, RelType: p.Reloc.None})
		idx += 2
	}

	if g.tlsld {
		if staticLink {
			entries = append(entries, GotEntry{Idx: idx, Val: 1, RelType: p.Reloc.None})
		} else {
			entries = append(entries, GotEntry{Idx: idx, Val: 0, RelType: p.Reloc.DTPMod})
		}
		entries = append(entries, GotEntry{Idx: idx + 1, Val: 0, RelType: p.Reloc.None})
		idx += 2
	}

	return entries
}

func (g *GotSection) CopyBuf(ctx *Context, buf []byte) error {
	out := buf[g.Shdr.Offset : g.Shdr.Offset+g.Shdr.Size]
	w := target.NewWord(ctx.Profile)
	for _, e := range g.GetEntries(ctx, false, false) {
		off := e.Idx * w.Size()
		if e.RelType == ctx.Profile.Reloc.None {
			w.Put(out[off:], e.Val)
		}
		// Entries needing a dynamic relocation are left zero here;
		// RelDynSection's CopyBuf fills both the relocation record and
		// (for non-IRELATIVE entries that the loader processes eagerly)
		// leaves the slot's link-time-visible value at zero, matching a
		// lazily-bound loader's expectations.
	}
	return nil
}

// RelrOffsets returns this GOT's word-offsets eligible for RELR
// packing, i.e. every slot GetEntries resolved to R_RELATIVE at link
// time. RelrDynSection sorts nothing further: GetEntries already walks
// slots in ascending index order.
func (g *GotSection) RelrOffsets(ctx *Context) []uint64 {
	p := ctx.Profile
	w := uint64(ctx.Profile.WordSize)
	var pos []uint64
	for _, e := range g.GetEntries(ctx, false, false) {
		if e.RelType == p.Reloc.Relative {
			pos = append(pos, g.Shdr.Addr+uint64(e.Idx)*w)
		}
	}
	return pos
}

// GotPltSection is .got.plt. Slots 0-2 are reserved; slot 3.. holds
// one resolved-or-stub address per PLT-using symbol.
type GotPltSection struct {
	Base
	Dynamic *DynamicSection
	Plt     *PltSection
}

func NewGotPltSection() *GotPltSection {
	return &GotPltSection{Base: NewBase(".got.plt", SHT_PROGBITS, SHF_ALLOC|SHF_WRITE)}
}

func (g *GotPltSection) UpdateShdr(ctx *Context) error {
	n := 3
	if g.Plt != nil {
		n += len(g.Plt.Symbols)
	}
	g.Shdr.Size = uint64(n) * uint64(ctx.Profile.WordSize)
	g.Shdr.Addralign = uint64(ctx.Profile.WordSize)
	g.Shdr.Entsize = uint64(ctx.Profile.WordSize)
	return nil
}

func (g *GotPltSection) CopyBuf(ctx *Context, buf []byte) error {
	out := buf[g.Shdr.Offset : g.Shdr.Offset+g.Shdr.Size]
	w := target.NewWord(ctx.Profile)
	dynAddr := uint64(0)
	if g.Dynamic != nil {
		dynAddr = g.Dynamic.Shdr.Addr
	}
	w.Put(out[0:], dynAddr)
	w.Put(out[w.Size():], 0)
	w.Put(out[2*w.Size():], 0)
	if g.Plt != nil {
		pltHdrAddr := g.Plt.Shdr.Addr
		for i := range g.Plt.Symbols {
			off := (3 + i) * w.Size()
			w.Put(out[off:], pltHdrAddr)
		}
	}
	return nil
}

// PltSection is .plt: one header stub followed by one stub per
// imported function symbol.
type PltSection struct {
	Base
	Symbols []*Symbol
	GotPlt  *GotPltSection
}

func NewPltSection() *PltSection {
	return &PltSection{Base: NewBase(".plt", SHT_PROGBITS, SHF_ALLOC|SHF_EXECINSTR)}
}

func (p *PltSection) Add(s *Symbol) {
	if s.HasPlt() {
		return
	}
	s.PltIdx = uint32(len(p.Symbols))
	p.Symbols = append(p.Symbols, s)
}

func (p *PltSection) UpdateShdr(ctx *Context) error {
	prof := ctx.Profile
	p.Shdr.Size = uint64(prof.PltHdrSize + len(p.Symbols)*prof.PltSize)
	p.Shdr.Addralign = 16
	return nil
}

func (p *PltSection) CopyBuf(ctx *Context, buf []byte) error {
	prof := ctx.Profile
	out := buf[p.Shdr.Offset : p.Shdr.Offset+p.Shdr.Size]
	gotPltAddr := uint64(0)
	if p.GotPlt != nil {
		gotPltAddr = p.GotPlt.Shdr.Addr
	}
	prof.WritePltHeader(out[:prof.PltHdrSize], gotPltAddr, p.Shdr.Addr, 0)
	return ctx.Par.ForEach(len(p.Symbols), func(i int) error {
		off := prof.PltHdrSize + i*prof.PltSize
		prof.WritePltEntry(out[off:off+prof.PltSize], gotPltAddr, p.Shdr.Addr, i)
		return nil
	})
}

func (p *PltSection) PopulateSymtab(ctx *Context) error { return nil }

// PltGotSection is .plt.got: an alternate PLT for symbols that already
// have a regular .got entry, used for JIT-friendly binaries.
type PltGotSection struct {
	Base
	Symbols []*Symbol
	Got     *GotSection
}

func NewPltGotSection(got *GotSection) *PltGotSection {
	return &PltGotSection{Base: NewBase(".plt.got", SHT_PROGBITS, SHF_ALLOC|SHF_EXECINSTR), Got: got}
}

func (p *PltGotSection) Add(s *Symbol) {
	if s.HasPltGot() {
		return
	}
	s.PltGotIdx = uint32(len(p.Symbols))
	p.Symbols = append(p.Symbols, s)
}

func (p *PltGotSection) UpdateShdr(ctx *Context) error {
	p.Shdr.Size = uint64(len(p.Symbols) * ctx.Profile.PltGotSize)
	p.Shdr.Addralign = 16
	return nil
}

func (p *PltGotSection) CopyBuf(ctx *Context, buf []byte) error {
	prof := ctx.Profile
	out := buf[p.Shdr.Offset : p.Shdr.Offset+p.Shdr.Size]
	return ctx.Par.ForEach(len(p.Symbols), func(i int) error {
		sym := p.Symbols[i]
		gotAddr := p.Got.Shdr.Addr + uint64(sym.GotIdx)*uint64(prof.WordSize)
		off := i * prof.PltGotSize
		prof.WritePltGotEntry(out[off:off+prof.PltGotSize], gotAddr, p.Shdr.Addr, i)
		return nil
	})
}
