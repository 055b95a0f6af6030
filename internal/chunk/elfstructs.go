// Completion: 100% - ELF on-disk record layouts complete
package chunk

import "encoding/binary"

// Ehdr is the ELF64 file header, gABI-exact.
type Ehdr struct {
	Ident     [16]byte
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint64
	Phoff     uint64
	Shoff     uint64
	Flags     uint32
	Ehsize    uint16
	Phentsize uint16
	Phnum     uint16
	Shentsize uint16
	Shnum     uint16
	Shstrndx  uint16
}

const EhdrSize = 64

func (e *Ehdr) Marshal(b []byte) {
	copy(b[0:16], e.Ident[:])
	le := binary.LittleEndian
	le.PutUint16(b[16:18], e.Type)
	le.PutUint16(b[18:20], e.Machine)
	le.PutUint32(b[20:24], e.Version)
	le.PutUint64(b[24:32], e.Entry)
	le.PutUint64(b[32:40], e.Phoff)
	le.PutUint64(b[40:48], e.Shoff)
	le.PutUint32(b[48:52], e.Flags)
	le.PutUint16(b[52:54], e.Ehsize)
	le.PutUint16(b[54:56], e.Phentsize)
	le.PutUint16(b[56:58], e.Phnum)
	le.PutUint16(b[58:60], e.Shentsize)
	le.PutUint16(b[60:62], e.Shnum)
	le.PutUint16(b[62:64], e.Shstrndx)
}

// Phdr is an ELF64 program header entry.
type Phdr struct {
	Type   uint32
	Flags  uint32
	Offset uint64
	Vaddr  uint64
	Paddr  uint64
	Filesz uint64
	Memsz  uint64
	Align  uint64
}

const PhdrSize = 56

func (p *Phdr) Marshal(b []byte) {
	le := binary.LittleEndian
	le.PutUint32(b[0:4], p.Type)
	le.PutUint32(b[4:8], p.Flags)
	le.PutUint64(b[8:16], p.Offset)
	le.PutUint64(b[16:24], p.Vaddr)
	le.PutUint64(b[24:32], p.Paddr)
	le.PutUint64(b[32:40], p.Filesz)
	le.PutUint64(b[40:48], p.Memsz)
	le.PutUint64(b[48:56], p.Align)
}

// Shdr is an ELF64 section header entry.
type Shdr struct {
	Name      uint32
	Type      uint32
	Flags     uint64
	Addr      uint64
	Offset    uint64
	Size      uint64
	Link      uint32
	Info      uint32
	Addralign uint64
	Entsize   uint64
}

const ShdrSize = 64

func (s *Shdr) Marshal(b []byte) {
	le := binary.LittleEndian
	le.PutUint32(b[0:4], s.Name)
	le.PutUint32(b[4:8], s.Type)
	le.PutUint64(b[8:16], s.Flags)
	le.PutUint64(b[16:24], s.Addr)
	le.PutUint64(b[24:32], s.Offset)
	le.PutUint64(b[32:40], s.Size)
	le.PutUint32(b[40:44], s.Link)
	le.PutUint32(b[44:48], s.Info)
	le.PutUint64(b[48:56], s.Addralign)
	le.PutUint64(b[56:64], s.Entsize)
}

// IsAllocated reports whether this section occupies address space.
func (s *Shdr) IsAllocated() bool { return s.Flags&SHF_ALLOC != 0 }

// Sym is an ELF64 symbol table entry.
type Sym struct {
	Name  uint32
	Info  byte
	Other byte
	Shndx uint16
	Value uint64
	Size  uint64
}

const SymSize = 24

func (s *Sym) Marshal(b []byte) {
	le := binary.LittleEndian
	le.PutUint32(b[0:4], s.Name)
	b[4] = s.Info
	b[5] = s.Other
	le.PutUint16(b[6:8], s.Shndx)
	le.PutUint64(b[8:16], s.Value)
	le.PutUint64(b[16:24], s.Size)
}

func NewSym(name uint32, bind, typ byte, shndx uint16, value, size uint64) Sym {
	return Sym{Name: name, Info: stInfo(bind, typ), Other: 0, Shndx: shndx, Value: value, Size: size}
}

// Rela is an ELF64 relocation-with-addend entry.
type Rela struct {
	Offset uint64
	Sym    uint32
	Type   uint32
	Addend int64
}

const RelaSize = 24

func (r *Rela) Info() uint64 { return uint64(r.Sym)<<32 | uint64(r.Type) }

func (r *Rela) Marshal(b []byte) {
	le := binary.LittleEndian
	le.PutUint64(b[0:8], r.Offset)
	le.PutUint64(b[8:16], r.Info())
	le.PutUint64(b[16:24], uint64(r.Addend))
}

// Rel is an ELF64 relocation entry without an addend (REL-style ABIs).
type Rel struct {
	Offset uint64
	Sym    uint32
	Type   uint32
}

const RelSize = 16

func (r *Rel) Info() uint64 { return uint64(r.Sym)<<32 | uint64(r.Type) }

func (r *Rel) Marshal(b []byte) {
	le := binary.LittleEndian
	le.PutUint64(b[0:8], r.Offset)
	le.PutUint64(b[8:16], r.Info())
}

// Dyn is one (tag, value) entry of the .dynamic section.
type Dyn struct {
	Tag int64
	Val uint64
}

const DynSize = 16

func (d *Dyn) Marshal(b []byte) {
	le := binary.LittleEndian
	le.PutUint64(b[0:8], uint64(d.Tag))
	le.PutUint64(b[8:16], d.Val)
}

// Verneed / Vernaux: .gnu.version_r records.
type Verneed struct {
	Version uint16
	Cnt     uint16
	File    uint32
	Aux     uint32
	Next    uint32
}

const VerneedSize = 16

func (v *Verneed) Marshal(b []byte) {
	le := binary.LittleEndian
	le.PutUint16(b[0:2], v.Version)
	le.PutUint16(b[2:4], v.Cnt)
	le.PutUint32(b[4:8], v.File)
	le.PutUint32(b[8:12], v.Aux)
	le.PutUint32(b[12:16], v.Next)
}

type Vernaux struct {
	Hash  uint32
	Flags uint16
	Other uint16
	Name  uint32
	Next  uint32
}

const VernauxSize = 16

func (v *Vernaux) Marshal(b []byte) {
	le := binary.LittleEndian
	le.PutUint32(b[0:4], v.Hash)
	le.PutUint16(b[4:6], v.Flags)
	le.PutUint16(b[6:8], v.Other)
	le.PutUint32(b[8:12], v.Name)
	le.PutUint32(b[12:16], v.Next)
}

// Verdef / Verdaux: .gnu.version_d records.
type Verdef struct {
	Version uint16
	Flags   uint16
	Ndx     uint16
	Cnt     uint16
	Hash    uint32
	Aux     uint32
	Next    uint32
}

const VerdefSize = 20

func (v *Verdef) Marshal(b []byte) {
	le := binary.LittleEndian
	le.PutUint16(b[0:2], v.Version)
	le.PutUint16(b[2:4], v.Flags)
	le.PutUint16(b[4:6], v.Ndx)
	le.PutUint16(b[6:8], v.Cnt)
	le.PutUint32(b[8:12], v.Hash)
	le.PutUint32(b[12:16], v.Aux)
	le.PutUint32(b[16:20], v.Next)
}

type Verdaux struct {
	Name uint32
	Next uint32
}

const VerdauxSize = 8

func (v *Verdaux) Marshal(b []byte) {
	le := binary.LittleEndian
	le.PutUint32(b[0:4], v.Name)
	le.PutUint32(b[4:8], v.Next)
}

// Chdr is the SHF_COMPRESSED section-compression header (gABI Ch_type).
type Chdr struct {
	Type      uint32
	Reserved  uint32
	Size      uint64
	Addralign uint64
}

const ChdrSize = 24

// Compression type values for Chdr.Type.
const (
	ELFCOMPRESS_ZLIB = 1
	ELFCOMPRESS_ZSTD = 2
)

func (c *Chdr) Marshal(b []byte) {
	le := binary.LittleEndian
	le.PutUint32(b[0:4], c.Type)
	le.PutUint32(b[4:8], c.Reserved)
	le.PutUint64(b[8:16], c.Size)
	le.PutUint64(b[16:24], c.Addralign)
}
