package weave

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/leb128"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasm"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasmbinary"
)

func funcSub(params, results []wasm.ValueType) wasm.SubType {
	return wasm.SubType{
		IsFinal: true,
		Composite: wasm.CompositeType{
			Kind: wasm.CompositeTypeFunc,
			Func: &wasm.FuncType{Params: params, Results: results},
		},
	}
}

// weaveModule's source-side wasm.Module fixtures are built directly (rather
// than decoded from bytes) so each test isolates one transform concern; the
// wasmbinary decode/encode round trip itself is not exercised here.

func TestWeaveModulePassesThroughPlainExport(t *testing.T) {
	src := &wasm.Module{
		RecGroups: []wasm.RecGroup{
			{Types: []wasm.SubType{funcSub([]wasm.ValueType{wasm.ValueTypeI32}, []wasm.ValueType{wasm.ValueTypeI32})}},
		},
		FunctionSection: []uint32{0},
		CodeSection: []wasm.Code{
			{Body: wasmbinary.BuildBody([]wasmbinary.Instruction{wasmbinary.LocalGet(0), wasmbinary.End()})},
		},
		ExportSection: []wasm.Export{{Name: "identity", Kind: wasm.ExternalKindFunc, Index: 0}},
		Signatures:    map[wasm.SignatureKey][]wasm.ValueTypeMeta{},
	}

	out, err := weaveModule(src, Options{})
	require.NoError(t, err)

	var foundExport bool
	for _, e := range out.ExportSection {
		if e.Name == "identity" {
			foundExport = true
			require.Equal(t, uint32(0), e.Index)
		}
	}
	require.True(t, foundExport)
	require.Len(t, out.CodeSection, 1)

	for _, e := range out.ExportSection {
		require.NotEqual(t, "__slab_alloc", e.Name, "no externref tag is present, so the slab must stay out of the output")
	}
	require.Len(t, out.TableSection, 0)
}

func TestWeaveModuleRewritesReturnStubExport(t *testing.T) {
	src := &wasm.Module{
		RecGroups: []wasm.RecGroup{
			{Types: []wasm.SubType{
				funcSub([]wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32}, nil), // marker param list == result list
				funcSub(nil, nil),                                                    // "run"'s declared (bogus MVP) type
			}},
		},
		ImportSection: []wasm.Import{
			{Type: wasm.ExternTypeFunc, Module: wasm.ReturnStubModuleName, Name: "run", DescFunc: 0},
		},
		FunctionSection: []uint32{1},
		CodeSection: []wasm.Code{
			{Body: wasmbinary.BuildBody([]wasmbinary.Instruction{
				wasmbinary.I32Const(1),
				wasmbinary.I32Const(2),
				wasmbinary.Call(0), // calls the marker import
				wasmbinary.End(),
			})},
		},
		ExportSection: []wasm.Export{{Name: "run", Kind: wasm.ExternalKindFunc, Index: 1}},
		Signatures:    map[wasm.SignatureKey][]wasm.ValueTypeMeta{},
	}

	out, err := weaveModule(src, Options{})
	require.NoError(t, err)

	// The marker import must not survive into the output.
	for _, imp := range out.ImportSection {
		require.NotEqual(t, wasm.ReturnStubModuleName, imp.Module)
	}

	var runIdx uint32
	var found bool
	for _, e := range out.ExportSection {
		if e.Name == "run" {
			runIdx, found = e.Index, true
		}
	}
	require.True(t, found)

	ft, err := woveFuncType(out, runIdx)
	require.NoError(t, err)
	require.Equal(t, []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32}, ft.Results)
}

// TestWeaveModuleMapsHostGlobalAndTable covers a module that declares its
// own mutable global and table and exports both directly, plus a body that
// reads and writes the global: the scenario a
// wasm32-unknown-unknown cdylib's shadow-stack-pointer global and exported
// heap-boundary globals exercise, and which a bare Reserve (with no
// recorded source->target mapping) previously left unresolved.
func TestWeaveModuleMapsHostGlobalAndTable(t *testing.T) {
	src := &wasm.Module{
		RecGroups: []wasm.RecGroup{
			{Types: []wasm.SubType{funcSub([]wasm.ValueType{wasm.ValueTypeI32}, []wasm.ValueType{wasm.ValueTypeI32})}},
		},
		FunctionSection: []uint32{0},
		TableSection:    []wasm.Table{{ElemType: wasm.ValueTypeFuncref, Limits: wasm.Limits{Min: 1}}},
		GlobalSection: []wasm.Global{
			{
				Type: wasm.GlobalType{ValType: wasm.ValueTypeI32, Mutable: true},
				Init: wasm.ConstantExpression{Opcode: wasm.OpcodeI32Const, Data: leb128.EncodeInt32(65536)},
			},
		},
		CodeSection: []wasm.Code{
			{Body: wasmbinary.BuildBody([]wasmbinary.Instruction{
				wasmbinary.GlobalGet(0),
				wasmbinary.GlobalSet(0),
				wasmbinary.LocalGet(0),
				wasmbinary.End(),
			})},
		},
		ExportSection: []wasm.Export{
			{Name: "run", Kind: wasm.ExternalKindFunc, Index: 0},
			{Name: "__stack_pointer", Kind: wasm.ExternalKindGlobal, Index: 0},
			{Name: "__indirect_function_table", Kind: wasm.ExternalKindTable, Index: 0},
		},
		Signatures: map[wasm.SignatureKey][]wasm.ValueTypeMeta{},
	}

	out, err := weaveModule(src, Options{})
	require.NoError(t, err)
	require.Len(t, out.GlobalSection, 1)
	require.Len(t, out.TableSection, 1)

	var sawGlobal, sawTable bool
	for _, e := range out.ExportSection {
		switch e.Name {
		case "__stack_pointer":
			sawGlobal = true
			require.Equal(t, uint32(0), e.Index)
		case "__indirect_function_table":
			sawTable = true
			require.Equal(t, uint32(0), e.Index)
		}
	}
	require.True(t, sawGlobal)
	require.True(t, sawTable)
}

// woveFuncType resolves a woven module's function index back to its
// function type, skipping past any imported functions in the index space.
func woveFuncType(m *wasm.Module, funcIdx uint32) (*wasm.FuncType, error) {
	numFuncImports := uint32(0)
	for _, imp := range m.ImportSection {
		if imp.Type == wasm.ExternTypeFunc {
			numFuncImports++
		}
	}
	bodyIdx := funcIdx - numFuncImports
	typeIdx := m.FunctionSection[bodyIdx]

	var base uint32
	for gi := range m.RecGroups {
		g := &m.RecGroups[gi]
		if typeIdx >= base && typeIdx < base+uint32(len(g.Types)) {
			sub := &g.Types[typeIdx-base]
			ft, ok := sub.FuncType()
			if !ok {
				return nil, errors.New("type is not a function type")
			}
			return ft, nil
		}
		base += uint32(len(g.Types))
	}
	return nil, errors.New("function type not found")
}
