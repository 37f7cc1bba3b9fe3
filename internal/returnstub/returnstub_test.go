package returnstub

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/lookup"
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

func TestDetectFindsMarkerAndRecordsResults(t *testing.T) {
	m := &wasm.Module{
		RecGroups: []wasm.RecGroup{
			{Types: []wasm.SubType{funcSub([]wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI64}, nil)}},
		},
		ImportSection: []wasm.Import{
			{Type: wasm.ExternTypeFunc, Module: wasm.ReturnStubModuleName, Name: "do_thing", DescFunc: 0},
		},
	}
	types := lookup.NewTypeTable(m.RecGroups)

	plan, err := Detect(m, types)
	require.NoError(t, err)
	require.True(t, plan.StubImportIndices[0])

	results, ok := plan.ResultsFor("do_thing")
	require.True(t, ok)
	require.Equal(t, []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI64}, results)
}

func TestDetectIgnoresOrdinaryImports(t *testing.T) {
	m := &wasm.Module{
		RecGroups: []wasm.RecGroup{{Types: []wasm.SubType{funcSub(nil, nil)}}},
		ImportSection: []wasm.Import{
			{Type: wasm.ExternTypeFunc, Module: "env", Name: "log", DescFunc: 0},
		},
	}
	types := lookup.NewTypeTable(m.RecGroups)

	plan, err := Detect(m, types)
	require.NoError(t, err)
	require.Empty(t, plan.StubImportIndices)
	_, ok := plan.ResultsFor("log")
	require.False(t, ok)
}

func TestDetectRejectsMarkerWithResults(t *testing.T) {
	m := &wasm.Module{
		RecGroups: []wasm.RecGroup{{Types: []wasm.SubType{funcSub(nil, []wasm.ValueType{wasm.ValueTypeI32})}}},
		ImportSection: []wasm.Import{
			{Type: wasm.ExternTypeFunc, Module: wasm.ReturnStubModuleName, Name: "bad", DescFunc: 0},
		},
	}
	types := lookup.NewTypeTable(m.RecGroups)

	_, err := Detect(m, types)
	require.Error(t, err)
}

func TestRewriteBodyReplacesMarkerCallWithReturn(t *testing.T) {
	body := wasmbinary.BuildBody([]wasmbinary.Instruction{
		wasmbinary.LocalGet(0),
		wasmbinary.Call(3),
		wasmbinary.End(),
	})
	out, err := RewriteBody(body, 3)
	require.NoError(t, err)

	expected := wasmbinary.BuildBody([]wasmbinary.Instruction{
		wasmbinary.LocalGet(0),
		wasmbinary.Return(),
		wasmbinary.End(),
	})
	require.Equal(t, expected, out)
}

func TestRewriteBodyLeavesOtherCallsAlone(t *testing.T) {
	body := wasmbinary.BuildBody([]wasmbinary.Instruction{wasmbinary.Call(9), wasmbinary.End()})
	out, err := RewriteBody(body, 3)
	require.NoError(t, err)
	require.Equal(t, body, out)
}
