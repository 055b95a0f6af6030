// Completion: 100% - Link context complete
package chunk

import (
	"log/slog"
	"strconv"
	"sync"

	"github.com/xyproto/coreld/internal/target"
)

// OutputKind selects the ELF e_type the link produces.
type OutputKind int

const (
	OutputExec OutputKind = iota // ET_EXEC
	OutputPIE                    // ET_DYN (position-independent executable)
	OutputShared                 // ET_DYN (shared object)
)

// Options mirrors the subset of driver configuration the output-chunk
// core actually reads. cmd/coreld populates this struct from stdlib
// flag plus github.com/xyproto/env/v2 overrides.
type Options struct {
	Output         OutputKind
	Entry          string
	DynamicLinker  string
	Soname         string
	Needed         []string
	RunPath        string
	EnableNewDtags bool
	ZNow           bool
	NoRosegment    bool
	PackDynRelocs  bool // emit .relr.dyn instead of R_RELATIVE in .rel.dyn
	EmitRelocs     bool
	BuildIDMode    BuildIDMode
	BuildIDHex     []byte
	BuildIDSize    int
	CompressDebug  CompressKind
	SpareDynTags   int
	StackFlags     uint32 // PF_* for PT_GNU_STACK
	PackageMeta    string // raw JSON payload for .note.package
	GNUPropertyX86Features uint32
}

// CompressKind selects the codec used by the compressed-section
// wrapper.
type CompressKind int

const (
	CompressNone CompressKind = iota
	CompressZlib
	CompressZstd
)

// Context is the borrowed, threaded-through record every chunk method
// receives. It owns the symbol table, the chunk registry, the parallel
// runtime, and a structured logger.
type Context struct {
	Options Options
	Profile *target.Profile
	Symbols *SymbolTable
	Par     Parallel
	Log     *slog.Logger

	registry *OutputSectionRegistry

	Chunks []Chunk

	// TLS layout, filled in by the PT_TLS builder before any chunk
	// that needs tp_addr runs its UpdateShdr/CopyBuf.
	TLSBegin uint64
	TLSMemsz uint64
	TLSAlign uint64

	// dynstrDedup records the strings already inserted into .dynstr for
	// DT_NEEDED/DT_SONAME/DT_RUNPATH/DT_RPATH, so duplicates are
	// deduplicated.
	dynstrDedup map[string]uint32
}

// NewContext builds an empty link context for the given target.
func NewContext(p *target.Profile, opts Options, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		Options:     opts,
		Profile:     p,
		Symbols:     NewSymbolTable(),
		Par:         Parallel{},
		Log:         logger,
		registry:    newOutputSectionRegistry(),
		dynstrDedup: make(map[string]uint32),
	}
}

// OutputSectionRegistry deduplicates OutputSection instances by
// (name, type, flags) behind a shared-mutex-guarded factory: a shared
// lock for the common (found) case, an exclusive lock only to insert a
// new output section.
type OutputSectionRegistry struct {
	mu   sync.RWMutex
	byKey map[string]*OutputSection
}

func newOutputSectionRegistry() *OutputSectionRegistry {
	return &OutputSectionRegistry{byKey: make(map[string]*OutputSection)}
}

func registryKey(name string, typ uint32, flags uint64) string {
	// A writable and a read-only section with the same name must not
	// merge, nor should PROGBITS/NOBITS; flags and type are therefore
	// part of the key, not just the name.
	return name + "\x00" + strconv.FormatUint(uint64(typ), 10) + "\x00" + strconv.FormatUint(flags, 10)
}

// GetInstance returns the OutputSection for (name, type, flags),
// creating it on first use.
func (r *OutputSectionRegistry) GetInstance(name string, typ uint32, flags uint64) *OutputSection {
	key := registryKey(name, typ, flags)

	r.mu.RLock()
	if os, ok := r.byKey[key]; ok {
		r.mu.RUnlock()
		return os
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if os, ok := r.byKey[key]; ok {
		return os
	}
	os := newOutputSection(name, typ, flags)
	r.byKey[key] = os
	return os
}

// GetOutputSection is the Context-level convenience wrapper used by
// input-section assignment.
func (ctx *Context) GetOutputSection(name string, typ uint32, flags uint64) *OutputSection {
	return ctx.registry.GetInstance(name, typ, flags)
}

// dedupKey looks up s in .dynstr's deduplication map, returning its
// byte offset if present. The actual DynstrSection owns the backing
// bytes; this just tracks identity so repeated DT_NEEDED/SONAME/RUNPATH
// strings are not duplicated.
func (ctx *Context) dedupKey(s string) (uint32, bool) {
	off, ok := ctx.dynstrDedup[s]
	return off, ok
}

func (ctx *Context) rememberDedup(s string, off uint32) {
	ctx.dynstrDedup[s] = off
}
