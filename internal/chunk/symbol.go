// Completion: 100% - Symbol registry complete
package chunk

import "math"

// slotUnset is the sentinel for an unassigned GOT/PLT/TLS slot index.
const slotUnset = math.MaxUint32

// SymbolKind narrows a Symbol to the categories the symtab-ordering
// and GOT-entry dispatch logic switch on.
type SymbolKind int

const (
	SymRegular SymbolKind = iota
	SymUndefined
	SymDSO   // defined in a shared object
	SymIFunc // STT_GNU_IFUNC, resolved by a runtime resolver
	SymAbs
	SymTLS
)

// Symbol is the identity of a defined/undefined/imported name. A
// single SymbolTable owns all symbols for a link; chunks hold
// non-owning pointers into it.
type Symbol struct {
	Name string
	Kind SymbolKind

	IsLocal    bool
	IsWeak     bool
	IsExported bool // appears in .dynsym, visible to the dynamic linker
	IsImported bool // resolved from a DSO (needs PLT/GOT runtime binding)

	HasCopyRel bool
	CopyRelRO  bool // the copy relocation lives in .copyrel.relro, not .copyrel

	// Value/size as seen by the static link (before PLT canonicalization).
	Value uint64
	Size  uint64

	// OutputChunk is the chunk this symbol is defined relative to, nil
	// if the symbol is attached to a merged fragment or is absolute.
	OutputChunk Chunk
	// Fragment is set instead of OutputChunk for symbols attached to a
	// mergeable-section fragment.
	Fragment *SectionFragment
	FragOffset uint64

	// Slot indices; slotUnset means "this symbol has no such slot".
	GotIdx     uint32
	GotTpIdx   uint32
	TlsGdIdx   uint32
	TlsDescIdx uint32
	PltIdx     uint32
	PltGotIdx  uint32
	DynsymIdx  uint32

	// Name-table offsets, filled in by StrtabSection/DynstrSection
	// during their UpdateShdr/CopyBuf passes.
	StrtabOff uint32
	DynstrOff uint32

	// CanonicalPLT is true if a function pointer comparison requires
	// this imported symbol's address to equal its PLT entry address.
	CanonicalPLT bool

	OriginalIndex int // registration order, used as the final tie-breaker
}

// NewSymbol returns a Symbol with every slot sentinel-initialized.
func NewSymbol(name string) *Symbol {
	return &Symbol{
		Name:       name,
		GotIdx:     slotUnset,
		GotTpIdx:   slotUnset,
		TlsGdIdx:   slotUnset,
		TlsDescIdx: slotUnset,
		PltIdx:     slotUnset,
		PltGotIdx:  slotUnset,
		DynsymIdx:  slotUnset,
	}
}

func (s *Symbol) HasGot() bool     { return s.GotIdx != slotUnset }
func (s *Symbol) HasGotTp() bool   { return s.GotTpIdx != slotUnset }
func (s *Symbol) HasTlsGd() bool   { return s.TlsGdIdx != slotUnset }
func (s *Symbol) HasTlsDesc() bool { return s.TlsDescIdx != slotUnset }
func (s *Symbol) HasPlt() bool     { return s.PltIdx != slotUnset }
func (s *Symbol) HasPltGot() bool  { return s.PltGotIdx != slotUnset }
func (s *Symbol) HasDynsym() bool  { return s.DynsymIdx != slotUnset }

// Binding returns the ELF symbol binding for this symbol: local for
// locals, weak for weak symbols, global for DSO symbols, else
// inherited.
func (s *Symbol) Binding(inheritedGlobal bool) byte {
	switch {
	case s.IsLocal:
		return STB_LOCAL
	case s.IsWeak:
		return STB_WEAK
	case s.Kind == SymDSO:
		return STB_GLOBAL
	case inheritedGlobal:
		return STB_GLOBAL
	default:
		return STB_LOCAL
	}
}

// SymbolTable owns every Symbol for one link.
type SymbolTable struct {
	byName  map[string]*Symbol
	ordered []*Symbol
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{byName: make(map[string]*Symbol)}
}

// GetOrAdd returns the existing Symbol for name, or registers and
// returns a new one.
func (t *SymbolTable) GetOrAdd(name string) *Symbol {
	if s, ok := t.byName[name]; ok {
		return s
	}
	s := NewSymbol(name)
	s.OriginalIndex = len(t.ordered)
	t.byName[name] = s
	t.ordered = append(t.ordered, s)
	return s
}

func (t *SymbolTable) Lookup(name string) (*Symbol, bool) {
	s, ok := t.byName[name]
	return s, ok
}

func (t *SymbolTable) All() []*Symbol { return t.ordered }
