// Completion: 100% - Dynamic section complete
package chunk

// dynTag is one (tag, value) pair in the .dynamic tag stream.
type dynTag struct {
	Tag   int64
	Value uint64
}

// DynamicSection is .dynamic: an ordered tagged sequence built fresh by
// both UpdateShdr and CopyBuf, asserting the two passes agree on size.
// Every optional tag group sits behind a nil/zero/empty check on the
// collaborator that would populate it.
type DynamicSection struct {
	Base

	Needed         []string
	RunPath        string
	EnableNewDtags bool
	Soname         string
	Auxiliary      []string
	Filter         []string

	RelDyn  *RelDynSection
	RelrDyn *RelrDynSection
	RelPlt  *RelPltSection
	GotPlt  *GotPltSection
	Dynsym  *DynsymSection
	Dynstr  *DynstrSection

	InitArray    Chunk
	PreinitArray Chunk
	FiniArray    Chunk

	VerNeed *VerneedSection
	VerDef  *VerdefSection
	VerSym  *VersymSection

	InitAddr uint64
	FiniAddr uint64
	HasInit  bool
	HasFini  bool

	Hash    *HashSection
	GnuHash *GnuHashSection

	TextRel  bool
	FlagsBits uint64
	Flags1Bits uint64

	PPC64Glink uint64
	HasPPC64Glink bool

	IsExecutable bool // sets DT_DEBUG

	SpareNullCount int

	byteSize uint64
}

func NewDynamicSection() *DynamicSection {
	return &DynamicSection{Base: NewBase(".dynamic", SHT_DYNAMIC, SHF_ALLOC|SHF_WRITE)}
}

// reserveDynstr resolves s to a .dynstr offset through the tag-string
// dedup path, returning 0 ("no string") if s is empty.
func (d *DynamicSection) reserveDynstr(ctx *Context, s string) uint32 {
	if s == "" || d.Dynstr == nil {
		return 0
	}
	return d.Dynstr.ReserveTag(ctx, s)
}

// buildTags constructs the tag sequence. Called identically from
// UpdateShdr (to learn the size) and CopyBuf (to learn the bytes); the
// two must agree, which CopyBuf verifies.
func (d *DynamicSection) buildTags(ctx *Context) []dynTag {
	var tags []dynTag
	add := func(tag int64, val uint64) { tags = append(tags, dynTag{tag, val}) }

	for _, n := range d.Needed {
		add(DT_NEEDED, uint64(d.reserveDynstr(ctx, n)))
	}
	if d.RunPath != "" {
		off := uint64(d.reserveDynstr(ctx, d.RunPath))
		if d.EnableNewDtags {
			add(DT_RUNPATH, off)
		} else {
			add(DT_RPATH, off)
		}
	}
	if d.Soname != "" {
		add(DT_SONAME, uint64(d.reserveDynstr(ctx, d.Soname)))
	}
	for _, a := range d.Auxiliary {
		add(DT_AUXILIARY, uint64(d.reserveDynstr(ctx, a)))
	}
	for _, f := range d.Filter {
		add(DT_FILTER, uint64(d.reserveDynstr(ctx, f)))
	}

	if d.RelDyn != nil && d.RelDyn.Shdr.Size > 0 {
		if ctx.Profile.IsRela {
			add(DT_RELA, d.RelDyn.Shdr.Addr)
			add(DT_RELASZ, d.RelDyn.Shdr.Size)
			add(DT_RELAENT, RelaSize)
		} else {
			add(DT_REL, d.RelDyn.Shdr.Addr)
			add(DT_RELSZ, d.RelDyn.Shdr.Size)
			add(DT_RELENT, RelSize)
		}
	}
	if d.RelrDyn != nil && d.RelrDyn.Shdr.Size > 0 {
		add(DT_RELR, d.RelrDyn.Shdr.Addr)
		add(DT_RELRSZ, d.RelrDyn.Shdr.Size)
		add(DT_RELRENT, uint64(ctx.Profile.WordSize))
	}
	if d.RelPlt != nil && d.RelPlt.Shdr.Size > 0 {
		add(DT_JMPREL, d.RelPlt.Shdr.Addr)
		add(DT_PLTRELSZ, d.RelPlt.Shdr.Size)
		if ctx.Profile.IsRela {
			add(DT_PLTREL, uint64(DT_RELA))
		} else {
			add(DT_PLTREL, uint64(DT_REL))
		}
	}
	if d.GotPlt != nil {
		add(DT_PLTGOT, d.GotPlt.Shdr.Addr)
	}
	if d.Dynsym != nil {
		add(DT_SYMTAB, d.Dynsym.Shdr.Addr)
		add(DT_SYMENT, SymSize)
	}
	if d.Dynstr != nil {
		add(DT_STRTAB, d.Dynstr.Shdr.Addr)
		add(DT_STRSZ, d.Dynstr.Shdr.Size)
	}

	if d.PreinitArray != nil {
		add(DT_PREINIT_ARRAY, d.PreinitArray.Header().Addr)
		add(DT_PREINIT_ARRAYSZ, d.PreinitArray.Header().Size)
	}
	if d.InitArray != nil {
		add(DT_INIT_ARRAY, d.InitArray.Header().Addr)
		add(DT_INIT_ARRAYSZ, d.InitArray.Header().Size)
	}
	if d.FiniArray != nil {
		add(DT_FINI_ARRAY, d.FiniArray.Header().Addr)
		add(DT_FINI_ARRAYSZ, d.FiniArray.Header().Size)
	}

	if d.VerNeed != nil && d.VerNeed.Shdr.Size > 0 {
		add(DT_VERNEED, d.VerNeed.Shdr.Addr)
		add(DT_VERNEEDNUM, uint64(d.VerNeed.NumFiles()))
	}
	if d.VerDef != nil && d.VerDef.Shdr.Size > 0 {
		add(DT_VERDEF, d.VerDef.Shdr.Addr)
		add(DT_VERDEFNUM, uint64(len(d.VerDef.Defs)))
	}
	if d.VerSym != nil {
		add(DT_VERSYM, d.VerSym.Shdr.Addr)
	}

	if d.HasInit {
		add(DT_INIT, d.InitAddr)
	}
	if d.HasFini {
		add(DT_FINI, d.FiniAddr)
	}
	if d.Hash != nil {
		add(DT_HASH, d.Hash.Shdr.Addr)
	}
	if d.GnuHash != nil {
		add(DT_GNU_HASH, d.GnuHash.Shdr.Addr)
	}
	if d.TextRel {
		add(DT_TEXTREL, 0)
	}
	if d.FlagsBits != 0 {
		add(DT_FLAGS, d.FlagsBits)
	}
	if d.Flags1Bits != 0 {
		add(DT_FLAGS_1, d.Flags1Bits)
	}
	if d.HasPPC64Glink {
		add(DT_PPC64_GLINK, d.PPC64Glink)
	}
	if d.IsExecutable {
		add(DT_DEBUG, 0)
	}

	for i := 0; i < 1+d.SpareNullCount; i++ {
		add(DT_NULL, 0)
	}
	return tags
}

func (d *DynamicSection) UpdateShdr(ctx *Context) error {
	tags := d.buildTags(ctx)
	d.byteSize = uint64(len(tags)) * DynSize
	d.Shdr.Size = d.byteSize
	d.Shdr.Entsize = DynSize
	d.Shdr.Addralign = uint64(ctx.Profile.WordSize)
	if d.Dynstr != nil {
		d.Shdr.Link = uint32(d.Dynstr.Shndx())
	}
	return nil
}

func (d *DynamicSection) CopyBuf(ctx *Context, buf []byte) error {
	tags := d.buildTags(ctx)
	size := uint64(len(tags)) * DynSize
	if size != d.byteSize {
		return errDynamicSizeMismatch
	}
	out := buf[d.Shdr.Offset : d.Shdr.Offset+d.Shdr.Size]
	for i, t := range tags {
		rec := Dyn{Tag: t.Tag, Val: t.Value}
		rec.Marshal(out[i*DynSize : (i+1)*DynSize])
	}
	return nil
}

var errDynamicSizeMismatch = dynamicSizeMismatchError{}

type dynamicSizeMismatchError struct{}

func (dynamicSizeMismatchError) Error() string {
	return "chunk: .dynamic tag sequence size changed between update_shdr and copy_buf"
}
