package lookup

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasm"
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

func TestTypeTableFlattensRecGroups(t *testing.T) {
	groups := []wasm.RecGroup{
		{Types: []wasm.SubType{funcSub(nil, nil)}},
		{Types: []wasm.SubType{funcSub([]wasm.ValueType{wasm.ValueTypeI32}, nil), funcSub(nil, []wasm.ValueType{wasm.ValueTypeI64})}},
	}
	table := NewTypeTable(groups)

	e0, ok := table.Get(0)
	require.True(t, ok)
	require.Equal(t, uint32(0), e0.GroupBase)
	require.Equal(t, uint32(0), e0.GroupOffset)

	e1, ok := table.Get(1)
	require.True(t, ok)
	require.Equal(t, uint32(1), e1.GroupBase)
	require.Equal(t, uint32(0), e1.GroupOffset)
	require.Same(t, &groups[1], e1.Group)

	e2, ok := table.Get(2)
	require.True(t, ok)
	require.Equal(t, uint32(1), e2.GroupBase)
	require.Equal(t, uint32(1), e2.GroupOffset)

	_, ok = table.Get(3)
	require.False(t, ok)

	ft, err := e1.FuncType()
	require.NoError(t, err)
	require.Equal(t, []wasm.ValueType{wasm.ValueTypeI32}, ft.Params)
}

func TestTypeTableFuncTypeErrorsOnNonFunc(t *testing.T) {
	groups := []wasm.RecGroup{
		{Types: []wasm.SubType{{IsFinal: true, Composite: wasm.CompositeType{Kind: wasm.CompositeTypeArray, Array: &wasm.ArrayType{FieldType: wasm.ValueTypeI32}}}}},
	}
	table := NewTypeTable(groups)
	e, ok := table.Get(0)
	require.True(t, ok)
	_, err := e.FuncType()
	require.Error(t, err)
}

func TestFuncTableOrdersImportsBeforeBodies(t *testing.T) {
	m := &wasm.Module{
		ImportSection: []wasm.Import{
			{Type: wasm.ExternTypeFunc, Module: "env", Name: "log", DescFunc: 0},
			{Type: wasm.ExternTypeTable, Module: "env", Name: "tbl"},
		},
		FunctionSection: []uint32{1},
		CodeSection:     []wasm.Code{{}},
		ExportSection: []wasm.Export{
			{Name: "run", Kind: wasm.ExternalKindFunc, Index: 1},
		},
	}
	table := NewFuncTable(m)
	require.Equal(t, 2, table.Count())

	imp, ok := table.Get(0)
	require.True(t, ok)
	require.Equal(t, FuncOriginImport, imp.Origin)

	body, ok := table.Get(1)
	require.True(t, ok)
	require.Equal(t, FuncOriginBody, body.Origin)
	require.Equal(t, "run", body.ExportName)
	require.Equal(t, uint32(1), table.IndexOfBody(0))
}
