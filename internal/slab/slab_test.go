package slab

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/interner"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/mapper"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasm"
)

func TestIncludeAppendsAfterHostReservations(t *testing.T) {
	out := &wasm.Module{
		Signatures:      map[wasm.SignatureKey][]wasm.ValueTypeMeta{},
		FunctionSection: []uint32{0},
		TableSection:    []wasm.Table{{ElemType: wasm.ValueTypeFuncref, Limits: wasm.Limits{Min: 1}}},
	}
	ind := &mapper.Indices{}
	// Simulate the host namespace already being laid out before Include
	// runs, matching how internal/weave orders it (spec.md §5).
	ind.Funcs.MapReserve(0)
	ind.Tables.MapReserve(0)

	tyIn := interner.New()
	source := ^uint32(0)
	internType := func(sub wasm.SubType) uint32 {
		idx := tyIn.InternSingle(source, sub)
		source--
		return idx
	}

	api := Include(out, ind, internType)

	require.Equal(t, uint32(1), api.AllocFn)
	require.Equal(t, uint32(2), api.FreeFn)
	require.Equal(t, uint32(3), api.TakeFn)
	require.Equal(t, uint32(1), api.ItemsTable)

	require.Equal(t, []uint32{0, tyIn.Count() - 3, tyIn.Count() - 2, tyIn.Count() - 1}, out.FunctionSection)
	require.Len(t, out.TableSection, 2)
	require.Len(t, out.CodeSection, 3)
}

func TestIncludeInternsDistinctSignatures(t *testing.T) {
	out := &wasm.Module{Signatures: map[wasm.SignatureKey][]wasm.ValueTypeMeta{}}
	ind := &mapper.Indices{}
	tyIn := interner.New()
	source := ^uint32(0)
	internType := func(sub wasm.SubType) uint32 {
		idx := tyIn.InternSingle(source, sub)
		source--
		return idx
	}

	Include(out, ind, internType)

	require.Equal(t, uint32(3), tyIn.Count(), "alloc/free/take each have a distinct signature")

	groups := tyIn.Groups()
	allocFt, ok := groups[out.FunctionSection[0]].Types[0].FuncType()
	require.True(t, ok)
	require.Equal(t, []wasm.ValueType{wasm.ValueTypeExternref}, allocFt.Params)
	require.Equal(t, []wasm.ValueType{wasm.ValueTypeI32}, allocFt.Results)
}

func TestMapFreeImportOnlyMatchesTableRedirectFree(t *testing.T) {
	require.True(t, MapFreeImport(wasm.TableRedirectModuleName, "free"))
	require.False(t, MapFreeImport(wasm.TableRedirectModuleName, "alloc"))
	require.False(t, MapFreeImport("env", "free"))
}
