// Completion: 100% - EH frame / eh_frame_hdr complete
package chunk

import (
	"encoding/binary"
	"sort"
)

// CieRecord is one Common Information Entry read from an input file's
// .eh_frame section. Equals compares by content, augmentation string,
// and FDE-pointer-encoding byte so distinct CIEs that happen to
// serialize identically collapse into one leader.
type CieRecord struct {
	Contents      []byte
	Augmentation  string
	FdePtrFormat  byte
	Relocs        []InputReloc
	InputOffset   uint64

	isLeader     bool
	outputOffset uint64
}

// Equals reports whether c and other would produce byte-identical
// .eh_frame output, making them candidates to share one leader.
func (c *CieRecord) Equals(other *CieRecord) bool {
	return c.Augmentation == other.Augmentation &&
		c.FdePtrFormat == other.FdePtrFormat &&
		string(c.Contents) == string(other.Contents)
}

// FdeRecord is one Frame Description Entry. CieIdx indexes into the
// owning ObjectFile's CIEs slice.
type FdeRecord struct {
	Contents    []byte
	Relocs      []InputReloc
	InputOffset uint64
	CieIdx      int
	IsAlive     bool

	outputOffset uint64
}

func (f *FdeRecord) size() int { return len(f.Contents) }

// EhFrameHdrEntry is one binary-search-table row of .eh_frame_hdr:
// (initial-location, fde-address), both stored pc-relative to the
// header's own address once Construct/CopyBuf runs.
type EhFrameHdrEntry struct {
	InitAddr int32
	FdeAddr  int32
}

// EhFrameSection is .eh_frame: CIE-deduplicated, FDE-packed unwind
// info, plus an emitted trailing null word.
type EhFrameSection struct {
	Base
	Files []*ObjectFile
	Hdr   *EhFrameHdrSection

	fileFDEOffset []uint64 // per-file byte offset where that file's FDEs start
	fileFDEIdx    []int    // per-file starting index into the flattened hdr-entry table
	numFDEs       int
}

func NewEhFrameSection() *EhFrameSection {
	return &EhFrameSection{Base: NewBase(".eh_frame", SHT_PROGBITS, SHF_ALLOC)}
}

// Construct implements Constructor: drop dead FDEs, assign per-file FDE
// offsets, uniquify CIEs across all files by content equality, and
// compute where each file's FDE block starts in the final section.
func (e *EhFrameSection) Construct(ctx *Context) error {
	for _, f := range e.Files {
		alive := f.FDEs[:0]
		for _, fde := range f.FDEs {
			if fde.IsAlive {
				alive = append(alive, fde)
			}
		}
		f.FDEs = alive

		off := uint64(0)
		for _, fde := range f.FDEs {
			fde.outputOffset = off
			off += uint64(fde.size())
		}
	}

	var leaders []*CieRecord
	findLeader := func(cie *CieRecord) *CieRecord {
		for _, l := range leaders {
			if cie.Equals(l) {
				return l
			}
		}
		return nil
	}

	offset := uint64(0)
	for _, f := range e.Files {
		for _, cie := range f.CIEs {
			if leader := findLeader(cie); leader != nil {
				cie.outputOffset = leader.outputOffset
			} else {
				cie.outputOffset = offset
				cie.isLeader = true
				offset += uint64(len(cie.Contents))
				leaders = append(leaders, cie)
			}
		}
	}

	e.fileFDEOffset = make([]uint64, len(e.Files))
	e.fileFDEIdx = make([]int, len(e.Files))
	idx := 0
	for i, f := range e.Files {
		e.fileFDEIdx[i] = idx
		idx += len(f.FDEs)

		e.fileFDEOffset[i] = offset
		for _, fde := range f.FDEs {
			offset += uint64(fde.size())
		}
	}
	e.numFDEs = idx

	e.Shdr.Size = offset + 4
	return nil
}

func (e *EhFrameSection) UpdateShdr(ctx *Context) error {
	e.Shdr.Addralign = uint64(ctx.Profile.WordSize)
	return nil
}

func (e *EhFrameSection) CopyBuf(ctx *Context, buf []byte) error {
	base := buf[e.Shdr.Offset : e.Shdr.Offset+e.Shdr.Size]

	var hdrEntries []EhFrameHdrEntry
	var hdrBase []byte
	if e.Hdr != nil {
		hdrEntries = make([]EhFrameHdrEntry, e.numFDEs)
		hdrBase = buf[e.Hdr.Shdr.Offset+ehFrameHdrHeaderSize:]
	}

	err := ctx.Par.ForEach(len(e.Files), func(fi int) error {
		f := e.Files[fi]

		for _, cie := range f.CIEs {
			if !cie.isLeader {
				continue
			}
			dst := base[cie.outputOffset:]
			copy(dst, cie.Contents)
			for _, r := range cie.Relocs {
				if r.Type == ctx.Profile.Reloc.None {
					continue
				}
				loc := cie.outputOffset + r.Offset - cie.InputOffset
				val := uint64(0)
				if r.Sym != nil {
					val = r.Sym.Value
				}
				ctx.Profile.ApplyReloc(r.Type, base[loc:], val+uint64(r.Addend))
			}
		}

		for i, fde := range f.FDEs {
			offset := e.fileFDEOffset[fi] + fde.outputOffset
			dst := base[offset:]
			copy(dst, fde.Contents)

			cie := f.CIEs[fde.CieIdx]
			binary.LittleEndian.PutUint32(dst[4:8], uint32(offset+4-cie.outputOffset))

			isFirst := true
			for _, r := range fde.Relocs {
				if r.Type == ctx.Profile.Reloc.None {
					continue
				}
				loc := offset + r.Offset - fde.InputOffset
				val := uint64(0)
				if r.Sym != nil {
					val = r.Sym.Value
				}
				addend := uint64(r.Addend)
				ctx.Profile.ApplyReloc(r.Type, base[loc:], val+addend)

				if hdrEntries != nil && isFirst {
					shAddr := e.Hdr.Shdr.Addr
					hdrEntries[e.fileFDEIdx[fi]+i] = EhFrameHdrEntry{
						InitAddr: int32(int64(val+addend) - int64(shAddr)),
						FdeAddr:  int32(int64(e.Shdr.Addr+offset) - int64(shAddr)),
					}
					isFirst = false
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	binary.LittleEndian.PutUint32(base[e.Shdr.Size-4:], 0)

	if hdrEntries != nil {
		sort.Slice(hdrEntries, func(i, j int) bool { return hdrEntries[i].InitAddr < hdrEntries[j].InitAddr })
		for i, ent := range hdrEntries {
			off := i * 8
			binary.LittleEndian.PutUint32(hdrBase[off:off+4], uint32(ent.InitAddr))
			binary.LittleEndian.PutUint32(hdrBase[off+4:off+8], uint32(ent.FdeAddr))
		}
	}
	return nil
}

const ehFrameHdrHeaderSize = 12

// DWARF exception-header encoding constants used by the fixed
// .eh_frame_hdr preamble.
const (
	dwEhPePcrel   = 0x10
	dwEhPEsdata4  = 0x0b
	dwEhPEudata4  = 0x03
	dwEhPEdatarel = 0x30
)

// EhFrameHdrSection is .eh_frame_hdr: a fixed 12-byte preamble followed
// by the binary-search table EhFrameSection.CopyBuf sorts and fills in.
type EhFrameHdrSection struct {
	Base
	EhFrame *EhFrameSection
}

func NewEhFrameHdrSection() *EhFrameHdrSection {
	return &EhFrameHdrSection{Base: NewBase(".eh_frame_hdr", SHT_PROGBITS, SHF_ALLOC)}
}

func (h *EhFrameHdrSection) UpdateShdr(ctx *Context) error {
	h.Shdr.Size = uint64(ehFrameHdrHeaderSize + h.EhFrame.numFDEs*8)
	h.Shdr.Addralign = 4
	return nil
}

func (h *EhFrameHdrSection) CopyBuf(ctx *Context, buf []byte) error {
	base := buf[h.Shdr.Offset : h.Shdr.Offset+h.Shdr.Size]
	base[0] = 1
	base[1] = dwEhPePcrel | dwEhPEsdata4
	base[2] = dwEhPEudata4
	base[3] = dwEhPEdatarel | dwEhPEsdata4
	binary.LittleEndian.PutUint32(base[4:8], uint32(int64(h.EhFrame.Shdr.Addr)-int64(h.Shdr.Addr)-4))
	binary.LittleEndian.PutUint32(base[8:12], uint32(h.EhFrame.numFDEs))
	return nil
}
