// Completion: 100% - Symbol versioning complete
package chunk

// NeededVersion is one version string a DSO exports that this link
// actually references.
type NeededVersion struct {
	DSOSoname string
	Versions  []string
}

// VerneedSection is .gnu.version_r: one Verneed record per DSO that
// contributes used versions, each followed by one Vernaux per version
// string that DSO provides and this link uses. Assigning veridx here
// (rather than in DynsymSection) keeps index assignment in the chunk
// that emits the Vernaux records; VersymSection reads the result
// through VersionIndex.
type VerneedSection struct {
	Base
	Dynstr *DynstrSection

	Needed []NeededVersion

	// veridx[dso][version] -> assigned index, for VersymSection to read.
	veridx map[string]map[string]uint16
	files  int

	buf []byte
}

func NewVerneedSection(dynstr *DynstrSection) *VerneedSection {
	return &VerneedSection{Base: NewBase(".gnu.version_r", SHT_GNU_VERNEED, SHF_ALLOC), Dynstr: dynstr}
}

func (v *VerneedSection) NumFiles() int { return v.files }

// VersionIndex returns the assigned .gnu.version index for (soname,
// version), or 0 if unknown (VER_NDX_LOCAL).
func (v *VerneedSection) VersionIndex(soname, version string) uint16 {
	if m, ok := v.veridx[soname]; ok {
		return m[version]
	}
	return VER_NDX_LOCAL
}

func (v *VerneedSection) UpdateShdr(ctx *Context) error {
	v.files = len(v.Needed)
	v.veridx = make(map[string]map[string]uint16, len(v.Needed))

	next := uint16(VER_NDX_LAST_RESERVED + 1)
	for _, nv := range v.Needed {
		m := make(map[string]uint16, len(nv.Versions))
		for _, ver := range nv.Versions {
			m[ver] = next
			next++
		}
		v.veridx[nv.DSOSoname] = m
	}

	v.buf = v.rebuild(ctx)
	v.Shdr.Size = uint64(len(v.buf))
	v.Shdr.Info = uint32(v.files)
	v.Shdr.Addralign = 4
	if v.Dynstr != nil {
		v.Shdr.Link = uint32(v.Dynstr.Shndx())
	}
	return nil
}

// rebuild re-walks Needed/veridx to produce the final linear buffer.
// Verneed.Aux/Next and Vernaux.Next are byte offsets relative to the
// current record, computed from the fixed record sizes.
func (v *VerneedSection) rebuild(ctx *Context) []byte {
	var buf []byte
	for i, nv := range v.Needed {
		vn := Verneed{
			Version: 1,
			Cnt:     uint16(len(nv.Versions)),
			File:    v.reserveStr(ctx, nv.DSOSoname),
			Aux:     uint32(VerneedSize),
		}
		if i != len(v.Needed)-1 {
			vn.Next = uint32(VerneedSize + len(nv.Versions)*VernauxSize)
		}
		rec := make([]byte, VerneedSize)
		vn.Marshal(rec)
		buf = append(buf, rec...)

		for j, ver := range nv.Versions {
			idx := v.veridx[nv.DSOSoname][ver]
			vx := Vernaux{
				Hash:  elfHash(ver),
				Other: idx,
				Name:  v.reserveStr(ctx, ver),
			}
			if j != len(nv.Versions)-1 {
				vx.Next = VernauxSize
			}
			arec := make([]byte, VernauxSize)
			vx.Marshal(arec)
			buf = append(buf, arec...)
		}
	}
	return buf
}

func (v *VerneedSection) reserveStr(ctx *Context, s string) uint32 {
	if v.Dynstr == nil {
		return 0
	}
	return v.Dynstr.ReserveTag(ctx, s)
}

func (v *VerneedSection) CopyBuf(ctx *Context, buf []byte) error {
	copy(buf[v.Shdr.Offset:v.Shdr.Offset+v.Shdr.Size], v.buf)
	return nil
}

// VerdefSection is .gnu.version_d: a base entry for the output's own
// soname at index VER_NDX_GLOBAL (flagged VER_FLG_BASE), followed by
// one entry per user-defined version script version at indices
// starting from VER_NDX_LAST_RESERVED+1.
type VerdefSection struct {
	Base
	Dynstr *DynstrSection

	BaseName string
	Defs     []string // user-defined version names, in index order

	buf []byte
}

func NewVerdefSection(dynstr *DynstrSection) *VerdefSection {
	return &VerdefSection{Base: NewBase(".gnu.version_d", SHT_GNU_VERDEF, SHF_ALLOC), Dynstr: dynstr}
}

func (v *VerdefSection) UpdateShdr(ctx *Context) error {
	var buf []byte
	total := 1 + len(v.Defs)
	idx := uint16(VER_NDX_GLOBAL)

	for i := 0; i < total; i++ {
		name := v.BaseName
		flags := uint16(VER_FLG_BASE)
		if i > 0 {
			name = v.Defs[i-1]
			flags = 0
		}
		nameOff := uint32(0)
		if v.Dynstr != nil {
			nameOff = v.Dynstr.ReserveTag(ctx, name)
		}

		vd := Verdef{
			Version: 1,
			Flags:   flags,
			Ndx:     idx,
			Cnt:     1,
			Hash:    elfHash(name),
			Aux:     VerdefSize,
		}
		if i != total-1 {
			vd.Next = uint32(VerdefSize + VerdauxSize)
		}
		rec := make([]byte, VerdefSize)
		vd.Marshal(rec)
		buf = append(buf, rec...)

		aux := Verdaux{Name: nameOff}
		arec := make([]byte, VerdauxSize)
		aux.Marshal(arec)
		buf = append(buf, arec...)

		idx++
	}

	v.buf = buf
	v.Shdr.Size = uint64(len(buf))
	v.Shdr.Info = uint32(total)
	v.Shdr.Addralign = 4
	if v.Dynstr != nil {
		v.Shdr.Link = uint32(v.Dynstr.Shndx())
	}
	return nil
}

func (v *VerdefSection) CopyBuf(ctx *Context, buf []byte) error {
	copy(buf[v.Shdr.Offset:v.Shdr.Offset+v.Shdr.Size], v.buf)
	return nil
}

// VersymSection is .gnu.version: one uint16 per .dynsym entry (NUL
// entry included), resolved through VerneedSection/VerdefSection.
type VersymSection struct {
	Base
	Dynsym  *DynsymSection
	Verneed *VerneedSection

	// SonameOf maps an imported symbol's owning DSO soname; local/
	// exported-defined symbols resolve to VER_NDX_GLOBAL.
	SonameOf func(sym *Symbol) (soname, version string, ok bool)
}

func NewVersymSection(dynsym *DynsymSection, verneed *VerneedSection) *VersymSection {
	return &VersymSection{Base: NewBase(".gnu.version", SHT_GNU_VERSYM, SHF_ALLOC), Dynsym: dynsym, Verneed: verneed}
}

func (v *VersymSection) UpdateShdr(ctx *Context) error {
	v.Shdr.Size = uint64(1+len(v.Dynsym.Order)) * 2
	v.Shdr.Entsize = 2
	v.Shdr.Addralign = 2
	if v.Dynsym != nil {
		v.Shdr.Link = uint32(v.Dynsym.Shndx())
	}
	return nil
}

func (v *VersymSection) CopyBuf(ctx *Context, buf []byte) error {
	out := buf[v.Shdr.Offset : v.Shdr.Offset+v.Shdr.Size]
	le16Put(out[0:2], VER_NDX_LOCAL)
	for i, sym := range v.Dynsym.Order {
		idx := uint16(VER_NDX_GLOBAL)
		if v.SonameOf != nil {
			if soname, version, ok := v.SonameOf(sym); ok && v.Verneed != nil {
				idx = v.Verneed.VersionIndex(soname, version)
			}
		}
		le16Put(out[(i+1)*2:(i+2)*2], idx)
	}
	return nil
}

func le16Put(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}
