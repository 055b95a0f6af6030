// Completion: 100% - Output section (of input sections) complete
package chunk

import "github.com/xyproto/coreld/internal/target"

// RangeExtensionThunk is a short-branch trampoline, needed on
// architectures whose call/branch instructions cannot reach an
// arbitrary PLT or output-section address (ARM32, ARM64, and PPC all
// have short branch displacements). The layout pass decides where
// thunks are needed and fills TargetAddr; this core only owns writing
// their bytes out in parallel after member copy.
type RangeExtensionThunk struct {
	Offset     uint64
	TargetAddr uint64
	Write      func(loc []byte, thunkAddr, targetAddr uint64)
}

// OutputSection is the chunk that holds a list of input-section
// members: a non-owning, ordered view over InputSections placed here
// by the layout pass, plus any range-extension thunks appended after
// them. The dedup-by-(name, type, flags) factory lives on
// Context/OutputSectionRegistry; this type is what that registry hands
// back.
type OutputSection struct {
	Base
	Members []*InputSection
	Thunks  []*RangeExtensionThunk

	index int

	relr []uint64
}

func newOutputSection(name string, typ uint32, flags uint64) *OutputSection {
	return &OutputSection{Base: NewBase(name, typ, flags)}
}

// AddMember appends isec to this output section's member list. Offset
// assignment is the layout pass's job; this just keeps the ordered
// reference the parallel copy walks.
func (o *OutputSection) AddMember(isec *InputSection) {
	o.Members = append(o.Members, isec)
}

func (o *OutputSection) UpdateShdr(ctx *Context) error {
	if len(o.Members) == 0 {
		return nil
	}
	last := o.Members[len(o.Members)-1]
	o.Shdr.Size = last.Offset + uint64(len(last.Data))
	for _, t := range o.Thunks {
		end := t.Offset + uint64(thunkSize(ctx.Profile))
		if end > o.Shdr.Size {
			o.Shdr.Size = end
		}
	}
	return nil
}

func thunkSize(p *target.Profile) int {
	switch p.Machine {
	case target.MachineARM64:
		return 12
	default:
		return 16
	}
}

// isInitOrFini reports whether name is one of the two pseudo-sections
// that get NOP padding instead of zero padding. This is a name check,
// not a machine check: .init/.fini can appear in any ELF input
// regardless of target ISA, even one where NOP padding is moot.
func isInitOrFini(name string) bool {
	return name == ".init" || name == ".fini"
}

// CopyBuf copies each member's (possibly relocated) bytes into the
// output buffer in parallel, clearing the gap after each member up to
// the next member's offset (or the section end for the last member).
func (o *OutputSection) CopyBuf(ctx *Context, buf []byte) error {
	if o.Shdr.Type == SHT_NOBITS {
		return nil
	}
	out := buf[o.Shdr.Offset : o.Shdr.Offset+o.Shdr.Size]

	pad := isInitOrFini(o.Name)
	err := ctx.Par.ForEach(len(o.Members), func(i int) error {
		isec := o.Members[i]
		n := copy(out[isec.Offset:], isec.Data)

		thisEnd := isec.Offset + uint64(n)
		var nextStart uint64
		if i == len(o.Members)-1 {
			nextStart = o.Shdr.Size
		} else {
			nextStart = o.Members[i+1].Offset
		}
		clearPadding(out[thisEnd:nextStart], pad)
		return nil
	})
	if err != nil {
		return err
	}

	return ctx.Par.ForEach(len(o.Thunks), func(i int) error {
		t := o.Thunks[i]
		t.Write(out[t.Offset:t.Offset+uint64(thunkSize(ctx.Profile))], o.Shdr.Addr+t.Offset, t.TargetAddr)
		return nil
	})
}

func clearPadding(b []byte, nop bool) {
	if !nop {
		for i := range b {
			b[i] = 0
		}
		return
	}
	for i := 0; i+1 < len(b); i += 2 {
		b[i], b[i+1] = 0x00, 0x07
	}
}

// RelrOffsets implements RelrProvider: an allocated, non-executable,
// word-aligned section contributes one candidate per R_ABS relocation
// against a member whose alignment is at least the word size and whose
// target symbol is neither absolute nor imported.
func (o *OutputSection) RelrOffsets(ctx *Context) []uint64 {
	if o.Shdr.Flags&SHF_ALLOC == 0 || o.Shdr.Flags&SHF_EXECINSTR != 0 {
		return nil
	}
	w := uint64(ctx.Profile.WordSize)
	if o.Shdr.Addralign%w != 0 {
		return nil
	}

	var pos []uint64
	for _, isec := range o.Members {
		if isec.Addralign < w {
			continue
		}
		for _, r := range isec.Relocs {
			if r.Type != ctx.Profile.Reloc.Abs || r.Offset%w != 0 {
				continue
			}
			if r.Sym == nil || r.Sym.Kind == SymAbs || r.Sym.IsImported {
				continue
			}
			pos = append(pos, o.Shdr.Addr+isec.Offset+r.Offset)
		}
	}
	return pos
}
