// Package werr collects the weaver's fatal error kinds (spec.md §7). Every
// kind is its own type so callers can discriminate with errors.As, mirroring
// the original Rust WeaveError enum (weaver.rs) as a closed set of Go types
// rather than reaching for a third-party errors/multierror package — the
// teacher itself never pulls one in for this.
package werr

import (
	"fmt"

	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasm"
)

// TypeIndexOutOfBounds reports a type cross-reference outside the type
// namespace.
type TypeIndexOutOfBounds struct{ Index uint32 }

func (e *TypeIndexOutOfBounds) Error() string {
	return fmt.Sprintf("type index out of bounds: %d", e.Index)
}

// FunctionIndexOutOfBounds reports a function cross-reference outside the
// function namespace.
type FunctionIndexOutOfBounds struct{ Index uint32 }

func (e *FunctionIndexOutOfBounds) Error() string {
	return fmt.Sprintf("function index out of bounds: %d", e.Index)
}

// TableIndexOutOfBounds reports a table cross-reference outside the table
// namespace.
type TableIndexOutOfBounds struct{ Index uint32 }

func (e *TableIndexOutOfBounds) Error() string {
	return fmt.Sprintf("table index out of bounds: %d", e.Index)
}

// GlobalIndexOutOfBounds reports a global cross-reference outside the
// global namespace.
type GlobalIndexOutOfBounds struct{ Index uint32 }

func (e *GlobalIndexOutOfBounds) Error() string {
	return fmt.Sprintf("global index out of bounds: %d", e.Index)
}

// FunctionTypeIsNotFunction reports that a type referenced as a function's
// signature is a non-function composite (array/struct/cont).
type FunctionTypeIsNotFunction struct{ Index uint32 }

func (e *FunctionTypeIsNotFunction) Error() string {
	return fmt.Sprintf("function type is not function: %d", e.Index)
}

// ReturnsMarkerIsNotFunction reports that a `__export_returns` import was
// not function-typed.
type ReturnsMarkerIsNotFunction struct{ Name string }

func (e *ReturnsMarkerIsNotFunction) Error() string {
	return fmt.Sprintf("returns marker is not of type function: %s", e.Name)
}

// UnexpectedMarkerFunctionCall reports a call to a stripped stub from a
// location the return-stub transform did not rewrite. Func is the calling
// function's index when known.
type UnexpectedMarkerFunctionCall struct{ Func *uint32 }

func (e *UnexpectedMarkerFunctionCall) Error() string {
	if e.Func == nil {
		return "unexpected marker function call at function <unknown>"
	}
	return fmt.Sprintf("unexpected marker function call at function %d", *e.Func)
}

// ImportNotFound reports that a `__table` import name is not in the slab's
// vocabulary.
type ImportNotFound struct{ Name string }

func (e *ImportNotFound) Error() string {
	return fmt.Sprintf("import not found: %s", e.Name)
}

// UnknownMeta reports a signature meta tag that is neither NONE, EXRo nor
// EXRr.
type UnknownMeta struct{ Tag wasm.ValueTypeMeta }

func (e *UnknownMeta) Error() string {
	return fmt.Sprintf("unknown meta tag: %s", e.Tag)
}

// IncompatibleMetaType reports an externref meta tag applied to a slot
// whose wire type isn't i32 (e.g. EXRo on an f64 parameter).
type IncompatibleMetaType struct {
	Tag      wasm.ValueTypeMeta
	WireType wasm.ValueType
}

func (e *IncompatibleMetaType) Error() string {
	return fmt.Sprintf("incompatible meta type: %s on wire type %s", e.Tag, wasm.ValueTypeName(e.WireType))
}

// Decode wraps an error surfaced while parsing the input binary.
type Decode struct{ Err error }

func (e *Decode) Error() string { return fmt.Sprintf("decode: %s", e.Err) }
func (e *Decode) Unwrap() error { return e.Err }

// Validate wraps an error surfaced by the external post-validation step.
type Validate struct{ Err error }

func (e *Validate) Error() string { return fmt.Sprintf("validate: %s", e.Err) }
func (e *Validate) Unwrap() error { return e.Err }
