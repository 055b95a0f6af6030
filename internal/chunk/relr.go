// Completion: 100% - RELR relative-relocation packing complete
package chunk

import "github.com/xyproto/coreld/internal/target"

// EncodeRelr packs a sorted list of word-aligned relative-relocation
// offsets into the RELR bitstream. Each address group is a start word
// followed by zero or more bitmap words: the start word's
// LSB is always 0 (offsets are word-aligned, so this holds for free),
// a bitmap word's LSB is always 1, and bit N of a bitmap word (counting
// from bit 1) marks that base+N*wordSize also needs fixing up. A
// bitmap word covers up to (8*wordSize-1) following slots before the
// base address has to advance by max_delta and a fresh bitmap word
// opens the next window.
func EncodeRelr(pos []uint64, wordSize uint64) []uint64 {
	numBits := wordSize*8 - 1
	maxDelta := numBits * wordSize

	var out []uint64
	i := 0
	for i < len(pos) {
		out = append(out, pos[i])
		base := pos[i] + wordSize
		i++

		for {
			var bits uint64
			for i < len(pos) && pos[i]-base < maxDelta {
				bits |= 1 << ((pos[i] - base) / wordSize)
				i++
			}
			if bits == 0 {
				break
			}
			out = append(out, (bits<<1)|1)
			base += maxDelta
		}
	}
	return out
}

// DecodeRelr is the inverse of EncodeRelr, used by round-trip tests:
// it recovers the original sorted offset list from a RELR bitstream.
func DecodeRelr(words []uint64, wordSize uint64) []uint64 {
	numBits := wordSize*8 - 1
	maxDelta := numBits * wordSize

	var out []uint64
	i := 0
	for i < len(words) {
		start := words[i]
		out = append(out, start)
		base := start + wordSize
		i++

		for i < len(words) && words[i]&1 == 1 {
			bits := words[i] >> 1
			for n := uint64(0); n < numBits; n++ {
				if bits&(1<<n) != 0 {
					out = append(out, base+n*wordSize)
				}
			}
			base += maxDelta
			i++
		}
	}
	return out
}

// RelrProvider is implemented by chunks that can contribute a sorted
// list of relative-relocation offsets to be RELR-packed: GotSection and
// OutputSection.
type RelrProvider interface {
	RelrOffsets(ctx *Context) []uint64
}

// RelrDynSection is .relr.dyn: the RELR-encoded concatenation of every
// provider's offsets, one encoded run per provider so that a provider's
// own base-address groups never straddle another provider's output
// range.
type RelrDynSection struct {
	Base
	Providers []RelrProvider

	encoded [][]uint64
}

func NewRelrDynSection() *RelrDynSection {
	return &RelrDynSection{Base: NewBase(".relr.dyn", SHT_RELR, SHF_ALLOC)}
}

func (r *RelrDynSection) UpdateShdr(ctx *Context) error {
	w := uint64(target.NewWord(ctx.Profile).Size())
	r.encoded = r.encoded[:0]
	total := 0
	for _, p := range r.Providers {
		offs := p.RelrOffsets(ctx)
		enc := EncodeRelr(offs, w)
		r.encoded = append(r.encoded, enc)
		total += len(enc)
	}
	r.Shdr.Size = uint64(total) * w
	r.Shdr.Addralign = w
	// sh_entsize is deliberately left zero: the RELR format has no
	// fixed record size, only a fixed word size.
	r.Shdr.Entsize = 0
	return nil
}

func (r *RelrDynSection) CopyBuf(ctx *Context, buf []byte) error {
	w := target.NewWord(ctx.Profile)
	out := buf[r.Shdr.Offset : r.Shdr.Offset+r.Shdr.Size]
	off := 0
	for _, enc := range r.encoded {
		for _, v := range enc {
			w.Put(out[off:], v)
			off += w.Size()
		}
	}
	return nil
}
