// Package returnstub implements the return-stub transform (C7): detecting
// fabricated `__export_returns` function-import stubs whose parameter list
// is really the multi-value result list a source-language frontend could
// not express any other way, stripping those stubs, and rewriting the
// calls that invoked them into plain `return`s.
//
// Ground: original_source's weaver.rs (the `returns_lookup` map built while
// scanning imports, and the `replace_return`-gated instruction() override
// that turns a matching call into Instruction::Return unconditionally —
// the source toolchain only ever places the marker call where a multi-value
// return already belongs, so no branch-depth bookkeeping is needed).
package returnstub

import (
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/lookup"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasm"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasmbinary"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/werr"
)

// Stub describes one detected `__export_returns` marker import: its
// original function index and the result types its param list encodes.
type Stub struct {
	ImportIndex uint32
	Results     []wasm.ValueType
}

// Plan is the set of stubs found in a module, keyed by the export name
// they apply to (the marker import's own Name field, per spec.md §6 — the
// source toolchain names each marker after the export it augments).
type Plan struct {
	ByExportName map[string]Stub
	// StubImportIndices holds every marker import's original function
	// index, for filtering them out of the woven import section.
	StubImportIndices map[uint32]bool
}

// IsStub reports whether an import is a return-stub marker.
func IsStub(imp wasm.Import) bool {
	return imp.Type == wasm.ExternTypeFunc && imp.Module == wasm.ReturnStubModuleName
}

// Detect scans m's imports for return-stub markers, resolving each one's
// declared function type to its result-type list via types.
func Detect(m *wasm.Module, types *lookup.TypeTable) (*Plan, error) {
	plan := &Plan{
		ByExportName:      map[string]Stub{},
		StubImportIndices: map[uint32]bool{},
	}
	funcImportIndex := uint32(0)
	for _, imp := range m.ImportSection {
		if imp.Type != wasm.ExternTypeFunc {
			continue
		}
		if IsStub(imp) {
			entry, err := types.TryGet(imp.DescFunc)
			if err != nil {
				return nil, err
			}
			ft, err := entry.FuncType()
			if err != nil {
				return nil, &werr.ReturnsMarkerIsNotFunction{Name: imp.Name}
			}
			if len(ft.Results) != 0 {
				return nil, &werr.ReturnsMarkerIsNotFunction{Name: imp.Name}
			}
			plan.StubImportIndices[funcImportIndex] = true
			plan.ByExportName[imp.Name] = Stub{ImportIndex: funcImportIndex, Results: ft.Params}
		}
		funcImportIndex++
	}
	return plan, nil
}

// ResultsFor returns the replacement result-type list for a function body
// exported under name, and whether one was found.
func (p *Plan) ResultsFor(exportName string) ([]wasm.ValueType, bool) {
	s, ok := p.ByExportName[exportName]
	return s.Results, ok
}

// RewriteBody replaces every call to the stub import (identified by its
// already-source-space function index, stubFuncIndex) with a bare return.
// The caller is expected to invoke this only for bodies exported under a
// name this plan recognizes.
func RewriteBody(body []byte, stubFuncIndex uint32) ([]byte, error) {
	return wasmbinary.RewriteBody(body, func(ins wasmbinary.Instruction) (wasmbinary.Instruction, bool) {
		if ins.Opcode == wasm.OpcodeCall && ins.Prefix == 0 && ins.FuncIndex == stubFuncIndex {
			return wasmbinary.Return(), true
		}
		return ins, false
	})
}
