// Completion: 100% - Input collaborator facades complete
package chunk

// Input-file and input-section parsing lives outside this package:
// these types are the narrow contract the core consumes from that
// subsystem. A real driver constructs these from its object/shared-
// library readers; the core never parses bytes to produce them.

// InputSection is one section of one input object file, already
// decided (by the out-of-scope GC/ICF/layout passes) to be alive and
// placed in some OutputSection.
type InputSection struct {
	Name      string
	Data      []byte
	Flags     uint64
	Addralign uint64
	// Offset is this member's byte offset within its OutputSection,
	// assigned by the (external) layout pass.
	Offset uint64
	// Relocations to apply against Data before it is copied out, when
	// the output keeps relocations live (shared objects, --emit-relocs).
	Relocs []InputReloc
	File   *ObjectFile
	IsAlive bool
}

// InputReloc is one relocation record read from an input file's
// .rela.<name> section, prior to the (out-of-scope) arithmetic pass.
type InputReloc struct {
	Offset uint64
	Type   uint32
	Sym    *Symbol
	Addend int64
}

// ObjectFile is the parsed-object-file facade: a source of
// InputSections, local symbols, CIE/FDE lists, and DWARF pubnames for
// one input file. Priority orders files for gdb-index name ownership
// (lower wins).
type ObjectFile struct {
	Name     string
	Priority int
	Index    int // stable per-link numbering, used for reproducible sorts

	Sections []*InputSection
	Locals   []*Symbol
	Globals  []*Symbol
	IsDSO    bool

	CIEs []*CieRecord
	FDEs []*FdeRecord

	// DWARF pubname candidates for .gdb_index construction.
	Pubnames []GdbIndexName
	NumCUs   int

	// DebugInfoOffset/CompUnits describe this file's compilation units
	// as already read from .debug_info by the out-of-scope DWARF
	// reader: CompUnits[i] is (byte offset within .debug_info, size).
	DebugInfoOffset uint64
	CompUnits       []CompUnitSpan

	// AddressAreas is the already-built (offset, end, cu_index) byte
	// blob for this file's address-areas table, read from
	// .debug_ranges/.debug_rnglists/.debug_addr by the DWARF reader;
	// each entry is 20 bytes.
	AddressAreas []byte
}

// CompUnitSpan is one compilation unit's byte range within an input
// file's .debug_info section.
type CompUnitSpan struct {
	Offset uint64
	Size   uint64
}

// GdbIndexName is one pubname/pubtype candidate read from
// .debug_gnu_pubnames/.debug_gnu_pubtypes. Attr is the raw cu-vector
// attribute word (DWARF tag bits packed with a CU index by the DWARF
// reader); this core treats it as opaque and only sorts/deduplicates
// by it.
type GdbIndexName struct {
	Name string
	Hash uint32
	Attr uint32
}
