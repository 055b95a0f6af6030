// Completion: 100% - Diagnostics module complete
// Package diag implements the linker's diagnostic taxonomy: fatal
// input inconsistencies, resource exhaustion, and internal invariant
// violations all surface as a single-line diagnostic naming the link
// stage, the offending chunk or file, and a short reason.
package diag

import (
	"fmt"

	"github.com/pkg/errors"
)

// Level orders diagnostic severity: warnings never abort the link,
// errors and fatals do.
type Level int

const (
	LevelWarning Level = iota
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal error"
	default:
		return "unknown"
	}
}

// Category classifies the failing subsystem by linker stage rather
// than by compiler-frontend stage (no Syntax/Semantic/Codegen split
// applies here).
type Category int

const (
	CategoryInput     Category = iota // malformed DWARF, impossible alignment, CIE cycles
	CategoryResource                  // mmap/allocation failure
	CategoryInternal                  // assertion failure: a linker bug
)

func (c Category) String() string {
	switch c {
	case CategoryInput:
		return "input"
	case CategoryResource:
		return "resource"
	case CategoryInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Diagnostic is a single link-time failure: which stage produced it,
// which chunk or file it names, and why.
type Diagnostic struct {
	Level    Level
	Category Category
	Stage    string // e.g. "writing eh_frame", "sorting dynamic relocs"
	Chunk    string // chunk or input-file name, "" if not applicable
	Err      error
}

func (d *Diagnostic) Error() string {
	if d.Chunk == "" {
		return fmt.Sprintf("%s: %s: %s", d.Level, d.Stage, d.Err)
	}
	return fmt.Sprintf("%s: %s: %s: %s", d.Level, d.Stage, d.Chunk, d.Err)
}

func (d *Diagnostic) Unwrap() error { return d.Err }

// New builds a Diagnostic, wrapping err with github.com/pkg/errors so a
// stack trace survives to the driver's top-level error report.
func New(level Level, cat Category, stage, chunk string, err error) *Diagnostic {
	return &Diagnostic{
		Level:    level,
		Category: cat,
		Stage:    stage,
		Chunk:    chunk,
		Err:      errors.WithStack(err),
	}
}

// Fatalf is a convenience constructor for CategoryInput fatal errors,
// the most common case (malformed input discovered mid-chunk).
func Fatalf(stage, chunk, format string, args ...any) *Diagnostic {
	return New(LevelFatal, CategoryInput, stage, chunk, errors.Errorf(format, args...))
}

// Internalf reports an impossible-internal-invariant failure: this
// indicates a linker bug. Callers should treat this as a panic-worthy
// condition; it is returned as an error instead so tests can assert on
// it without crashing the test binary.
func Internalf(stage, chunk, format string, args ...any) *Diagnostic {
	return New(LevelFatal, CategoryInternal, stage, chunk, errors.Errorf(format, args...))
}

// Resourcef reports a resource-exhaustion failure (mmap/allocation).
func Resourcef(stage string, err error) *Diagnostic {
	return New(LevelFatal, CategoryResource, stage, "", err)
}
