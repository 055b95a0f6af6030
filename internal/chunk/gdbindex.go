// Completion: 100% - GDB index complete
package chunk

import (
	"encoding/binary"
	"math/bits"
	"sort"
)

const gdbIndexHeaderSize = 24 // version + 5 u32 section offsets
const gdbIndexVersion = 8

// gdbMapEntry is one uniquified pubname: owner is the file whose
// priority is lowest among all files contributing this name.
// GdbIndexSection.Construct walks files in order and keeps the minimum
// directly (single-threaded, so no compare-and-swap is needed).
type gdbMapEntry struct {
	name       string
	hash       uint32
	owner      *ObjectFile
	attrs      []uint32
	nameOffset uint32
	attrOffset uint32
}

// GdbIndexSection is .gdb_index: a version-8 index built from per-file
// DWARF compilation-unit and pubname data a DWARF reader has already
// extracted into ObjectFile.
type GdbIndexSection struct {
	Base
	Files []*ObjectFile

	entries        []*gdbMapEntry
	byName         map[string]*gdbMapEntry
	numSymtabEntries uint32

	cuListOffset    uint32
	areasOffset     uint32
	symtabOffset    uint32
	constPoolOffset uint32

	attrsOffset []uint32 // per-file
	attrsSize   []uint32
	namesOffset []uint32
	namesSize   []uint32
	areaOffset  []uint32

	fileIdx map[*ObjectFile]int
}

func NewGdbIndexSection() *GdbIndexSection {
	return &GdbIndexSection{Base: NewBase(".gdb_index", SHT_PROGBITS, 0)}
}

// Construct implements Constructor: collect every file's pubnames into
// a uniquifying map, assign each unique name's owner (lowest Priority),
// lay out per-file name/attribute offsets, then size the on-disk hash
// table.
func (g *GdbIndexSection) Construct(ctx *Context) error {
	hasDebugInfo := false
	for _, f := range g.Files {
		if len(f.CompUnits) > 0 {
			hasDebugInfo = true
			break
		}
	}
	if !hasDebugInfo {
		g.Shdr.Size = 0
		return nil
	}

	g.byName = make(map[string]*gdbMapEntry)
	g.entries = nil

	for _, f := range g.Files {
		for i := range f.Pubnames {
			name := &f.Pubnames[i]
			ent, ok := g.byName[name.Name]
			if !ok {
				ent = &gdbMapEntry{name: name.Name, hash: name.Hash, owner: f}
				g.byName[name.Name] = ent
				g.entries = append(g.entries, ent)
			}
			if f.Priority < ent.owner.Priority {
				ent.owner = f
			}
			ent.attrs = append(ent.attrs, name.Attr)
		}
	}

	// Sort entries by name so the per-file name/attribute offsets below
	// are assigned in name order.
	sort.Slice(g.entries, func(i, j int) bool { return g.entries[i].name < g.entries[j].name })

	n := len(g.Files)
	g.attrsOffset = make([]uint32, n)
	g.attrsSize = make([]uint32, n)
	g.namesOffset = make([]uint32, n)
	g.namesSize = make([]uint32, n)
	g.areaOffset = make([]uint32, n)

	g.fileIdx = make(map[*ObjectFile]int, n)
	for i, f := range g.Files {
		g.fileIdx[f] = i
	}

	for _, ent := range g.entries {
		i := g.fileIdx[ent.owner]
		ent.attrOffset = g.attrsSize[i]
		g.attrsSize[i] += uint32(len(ent.attrs)+1) * 4
		ent.nameOffset = g.namesSize[i]
		g.namesSize[i] += uint32(len(ent.name)) + 1
	}

	for i := 1; i < n; i++ {
		g.attrsOffset[i] = g.attrsOffset[i-1] + g.attrsSize[i-1]
	}
	lastAttrsEnd := uint32(0)
	if n > 0 {
		lastAttrsEnd = g.attrsOffset[n-1] + g.attrsSize[n-1]
	}
	if n > 0 {
		g.namesOffset[0] = lastAttrsEnd
	}
	for i := 1; i < n; i++ {
		g.namesOffset[i] = g.namesOffset[i-1] + g.namesSize[i-1]
	}

	for i := 1; i < n; i++ {
		g.areaOffset[i] = g.areaOffset[i-1] + uint32(len(g.Files[i-1].AddressAreas))
	}

	numNames := uint32(len(g.entries))
	g.numSymtabEntries = nextPow2(max32(numNames*4/3, 16))

	cuSize := uint32(0)
	for _, f := range g.Files {
		cuSize += uint32(len(f.CompUnits)) * 16
	}
	areasSize := uint32(0)
	if n > 0 {
		areasSize = g.areaOffset[n-1] + uint32(len(g.Files[n-1].AddressAreas))
	}

	offset := uint32(gdbIndexHeaderSize)
	g.cuListOffset = offset
	offset += cuSize
	g.areasOffset = offset
	offset += areasSize
	g.symtabOffset = offset
	offset += g.numSymtabEntries * 8
	g.constPoolOffset = offset

	lastNamesEnd := uint32(0)
	if n > 0 {
		lastNamesEnd = g.namesOffset[n-1] + g.namesSize[n-1]
	}
	offset += lastNamesEnd

	g.Shdr.Size = uint64(offset)
	return nil
}

func nextPow2(v uint32) uint32 {
	if v <= 1 {
		return 1
	}
	return 1 << bits.Len32(v-1)
}

func max32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

func (g *GdbIndexSection) UpdateShdr(ctx *Context) error {
	g.Shdr.Addralign = 4
	return nil
}

func (g *GdbIndexSection) CopyBuf(ctx *Context, buf []byte) error {
	if g.Shdr.Size == 0 {
		return nil
	}
	out := buf[g.Shdr.Offset : g.Shdr.Offset+g.Shdr.Size]
	le := binary.LittleEndian

	le.PutUint32(out[0:4], gdbIndexVersion)
	le.PutUint32(out[4:8], g.cuListOffset)
	le.PutUint32(out[8:12], g.areasOffset) // cu_types_offset == areas_offset: empty types list
	le.PutUint32(out[12:16], g.areasOffset)
	le.PutUint32(out[16:20], g.symtabOffset)
	le.PutUint32(out[20:24], g.constPoolOffset)

	cuOff := g.cuListOffset
	for _, f := range g.Files {
		o := f.DebugInfoOffset
		for _, cu := range f.CompUnits {
			le.PutUint64(out[cuOff:cuOff+8], o)
			le.PutUint64(out[cuOff+8:cuOff+16], cu.Size)
			cuOff += 16
			o += cu.Size
		}
	}

	areaOff := g.areasOffset
	for i, f := range g.Files {
		copy(out[areaOff+g.areaOffset[i]:], f.AddressAreas)
	}

	symtabSize := g.constPoolOffset - g.symtabOffset
	symtab := out[g.symtabOffset:g.constPoolOffset]
	for i := range symtab {
		symtab[i] = 0
	}
	mask := symtabSize/8 - 1

	for _, ent := range g.entries {
		step := (ent.hash & mask) | 1
		j := ent.hash & mask
		for le.Uint32(symtab[j*8:j*8+4]) != 0 {
			j = (j + step) & mask
		}
		fi := g.fileIdx[ent.owner]
		le.PutUint32(symtab[j*8:j*8+4], g.namesOffset[fi]+ent.nameOffset)
		le.PutUint32(symtab[j*8+4:j*8+8], g.attrsOffset[fi]+ent.attrOffset)
	}

	constPool := out[g.constPoolOffset:]
	for _, ent := range g.entries {
		fi := g.fileIdx[ent.owner]
		attrBase := g.attrsOffset[fi] + ent.attrOffset
		sorted := append([]uint32{}, ent.attrs...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		le.PutUint32(constPool[attrBase:attrBase+4], uint32(len(sorted)))
		for k, a := range sorted {
			off := attrBase + 4 + uint32(k)*4
			le.PutUint32(constPool[off:off+4], a)
		}

		nameBase := g.namesOffset[fi] + ent.nameOffset
		copy(constPool[nameBase:], ent.name)
		constPool[nameBase+uint32(len(ent.name))] = 0
	}
	return nil
}
