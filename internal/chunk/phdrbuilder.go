// Completion: 100% - Program header table construction complete
package chunk

import "sort"

// PhdrBuilder scans an ordered chunk list and emits the PT_* segment
// table. It is not itself a Chunk: its output feeds PhdrSection, which
// is just a thin Chunk wrapper around whatever Build last produced.
type PhdrBuilder struct {
	Phdr       Chunk // PT_PHDR self-reference, nil if absent
	Interp     Chunk
	Dynamic    *DynamicSection
	EhFrameHdr *EhFrameHdrSection
	ArmExidx   Chunk // SHT_ARM_EXIDX chunk, nil unless targeting ARM32

	PageSize    uint64
	ZRelro      bool
	ZExecstack  bool
	NoRosegment bool
}

func isNoteChunk(c Chunk) bool {
	h := c.Header()
	return h.Type == SHT_NOTE && h.Flags&SHF_ALLOC != 0
}

func isBSS(c Chunk) bool {
	h := c.Header()
	return h.Type == SHT_NOBITS && h.Flags&SHF_TLS == 0
}

func isTBSS(c Chunk) bool {
	h := c.Header()
	return h.Type == SHT_NOBITS && h.Flags&SHF_TLS != 0
}

// Build walks chunks (already ordered and address-assigned by the
// layout pass) and returns the final PT_* table. Each Phdr's
// Filesz/Memsz/Align are mutated in place as successive chunks are
// folded into the segment via the define/appendChunk closures below.
func (b *PhdrBuilder) Build(ctx *Context, chunks []Chunk) []Phdr {
	var vec []Phdr

	define := func(typ uint32, flags uint32, minAlign uint64, c Chunk) {
		h := c.Header()
		align := minAlign
		if h.Addralign > align {
			align = h.Addralign
		}
		filesz := h.Size
		if h.Type == SHT_NOBITS {
			filesz = 0
		}
		vec = append(vec, Phdr{
			Type: typ, Flags: flags, Align: align,
			Offset: h.Offset, Vaddr: h.Addr, Paddr: h.Addr,
			Filesz: filesz, Memsz: h.Size,
		})
	}
	appendChunk := func(c Chunk) {
		p := &vec[len(vec)-1]
		h := c.Header()
		if h.Addralign > p.Align {
			p.Align = h.Addralign
		}
		if h.Type != SHT_NOBITS {
			p.Filesz = h.Addr + h.Size - p.Vaddr
		}
		p.Memsz = h.Addr + h.Size - p.Vaddr
	}

	if b.Phdr != nil {
		wordSize := uint64(8)
		if ctx.Profile != nil {
			wordSize = uint64(ctx.Profile.WordSize)
		}
		define(PT_PHDR, PF_R, wordSize, b.Phdr)
	}
	if b.Interp != nil {
		define(PT_INTERP, PF_R, 1, b.Interp)
	}

	// PT_NOTE runs: maximal runs of identically-flagged SHT_NOTE|SHF_ALLOC chunks.
	for i := 0; i < len(chunks); {
		first := chunks[i]
		i++
		if !isNoteChunk(first) {
			continue
		}
		flags := segFlags(first, b.NoRosegment)
		define(PT_NOTE, flags, first.Header().Addralign, first)
		for i < len(chunks) && isNoteChunk(chunks[i]) && segFlags(chunks[i], b.NoRosegment) == flags {
			appendChunk(chunks[i])
			i++
		}
	}

	// PT_LOAD: greedy grouping of allocated, non-TBSS chunks.
	{
		loadStart := len(vec)
		var loadable []Chunk
		for _, c := range chunks {
			if !isTBSS(c) {
				loadable = append(loadable, c)
			}
		}

		for i := 0; i < len(loadable); {
			first := loadable[i]
			i++
			if first.Header().Flags&SHF_ALLOC == 0 {
				break
			}
			flags := segFlags(first, b.NoRosegment)
			define(PT_LOAD, flags, b.PageSize, first)

			if !isBSS(first) {
				for i < len(loadable) && !isBSS(loadable[i]) &&
					segFlags(loadable[i], b.NoRosegment) == flags &&
					loadable[i].Header().Offset-first.Header().Offset == loadable[i].Header().Addr-first.Header().Addr {
					appendChunk(loadable[i])
					i++
				}
			}
			for i < len(loadable) && isBSS(loadable[i]) && segFlags(loadable[i], b.NoRosegment) == flags {
				appendChunk(loadable[i])
				i++
			}
		}

		// "Loadable segment entries in the program header table appear
		// in ascending order, sorted on the p_vaddr member" (ELF spec).
		sort.SliceStable(vec[loadStart:], func(i, j int) bool {
			return vec[loadStart+i].Vaddr < vec[loadStart+j].Vaddr
		})
	}

	// PT_TLS: contiguous run of SHF_TLS chunks.
	for i := 0; i < len(chunks); i++ {
		if chunks[i].Header().Flags&SHF_TLS == 0 {
			continue
		}
		define(PT_TLS, PF_R, 1, chunks[i])
		i++
		for i < len(chunks) && chunks[i].Header().Flags&SHF_TLS != 0 {
			appendChunk(chunks[i])
			i++
		}
		tls := vec[len(vec)-1]
		ctx.TLSBegin, ctx.TLSMemsz, ctx.TLSAlign = tls.Vaddr, tls.Memsz, tls.Align
		break
	}

	if b.Dynamic != nil && b.Dynamic.Shdr.Size > 0 {
		define(PT_DYNAMIC, PF_R|PF_W, 1, b.Dynamic)
	}
	if b.EhFrameHdr != nil {
		define(PT_GNU_EH_FRAME, PF_R, 1, b.EhFrameHdr)
	}

	stackFlags := uint32(PF_R | PF_W)
	if b.ZExecstack {
		stackFlags |= PF_X
	}
	vec = append(vec, Phdr{Type: PT_GNU_STACK, Flags: stackFlags, Align: 1})

	if b.ZRelro {
		for i := 0; i < len(chunks); {
			c := chunks[i]
			i++
			base, ok := baseOf(c)
			if !ok || !IsRelroEligible(base, true) {
				continue
			}
			define(PT_GNU_RELRO, PF_R, 1, c)
			for i < len(chunks) {
				nb, ok := baseOf(chunks[i])
				if !ok || !IsRelroEligible(nb, true) {
					break
				}
				appendChunk(chunks[i])
				i++
			}
			vec[len(vec)-1].Align = 1
		}
	}

	if b.ArmExidx != nil {
		define(PT_ARM_EXIDX, PF_R, 4, b.ArmExidx)
	}

	return vec
}

func segFlags(c Chunk, noRosegment bool) uint32 {
	return SegmentFlags(c.Header().Flags, noRosegment)
}

// baseOf extracts *Base from a Chunk when possible, since
// IsRelroEligible takes *Base rather than the Chunk interface.
func baseOf(c Chunk) (*Base, bool) {
	if bh, ok := c.(interface{ baseRef() *Base }); ok {
		return bh.baseRef(), true
	}
	return nil, false
}
