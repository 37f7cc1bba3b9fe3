package externref

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/interner"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/mapper"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/slab"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasm"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasmbinary"
)

// newTestSlab mirrors how internal/weave wires slab.Include: a fresh
// interner backs the slab's own type indices, one synthetic source index
// per call so repeated test fixtures never collide.
func newTestSlab(out *wasm.Module, ind *mapper.Indices) slab.API {
	tyIn := interner.New()
	source := ^uint32(0)
	internType := func(sub wasm.SubType) uint32 {
		idx := tyIn.InternSingle(source, sub)
		source--
		return idx
	}
	return slab.Include(out, ind, internType)
}

func TestSplitTagsDividesAtParamCount(t *testing.T) {
	tags := []wasm.ValueTypeMeta{wasm.MetaNone, wasm.MetaExternrefOwned, wasm.MetaExternrefBorrow}
	params, results := SplitTags(tags, 2)
	require.Equal(t, []wasm.ValueTypeMeta{wasm.MetaNone, wasm.MetaExternrefOwned}, params)
	require.Equal(t, []wasm.ValueTypeMeta{wasm.MetaExternrefBorrow}, results)
}

func TestBuildPlanCollectsExternrefSlots(t *testing.T) {
	paramTags := []wasm.ValueTypeMeta{wasm.MetaNone, wasm.MetaExternrefOwned}
	resultTags := []wasm.ValueTypeMeta{wasm.MetaExternrefBorrow}
	paramTypes := []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32}
	resultTypes := []wasm.ValueType{wasm.ValueTypeI32}

	plan, has, err := BuildPlan(paramTags, resultTags, paramTypes, resultTypes)
	require.NoError(t, err)
	require.True(t, has)
	require.Equal(t, []Slot{{Index: 1, Owned: true}}, plan.Params)
	require.Equal(t, []Slot{{Index: 0, Owned: false}}, plan.Results)
}

func TestBuildPlanNoSlotsReportsFalse(t *testing.T) {
	paramTags := []wasm.ValueTypeMeta{wasm.MetaNone}
	paramTypes := []wasm.ValueType{wasm.ValueTypeI32}

	plan, has, err := BuildPlan(paramTags, nil, paramTypes, nil)
	require.NoError(t, err)
	require.False(t, has)
	require.Empty(t, plan.Params)
	require.Empty(t, plan.Results)
}

func TestBuildPlanRejectsIncompatibleWireType(t *testing.T) {
	paramTags := []wasm.ValueTypeMeta{wasm.MetaExternrefOwned}
	paramTypes := []wasm.ValueType{wasm.ValueTypeF64}

	_, _, err := BuildPlan(paramTags, nil, paramTypes, nil)
	require.Error(t, err)
}

func TestBuildPlanRejectsUnknownTag(t *testing.T) {
	paramTags := []wasm.ValueTypeMeta{{'b', 'o', 'g', 'u'}}
	paramTypes := []wasm.ValueType{wasm.ValueTypeI32}

	_, _, err := BuildPlan(paramTags, nil, paramTypes, nil)
	require.Error(t, err)
}

func TestRewriteTypeOverridesPlannedSlots(t *testing.T) {
	original := wasm.FuncType{
		Params:  []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32},
		Results: []wasm.ValueType{wasm.ValueTypeI32},
	}
	plan := Plan{
		Params:  []Slot{{Index: 1, Owned: true}},
		Results: []Slot{{Index: 0, Owned: false}},
	}
	out := RewriteType(original, plan)
	require.Equal(t, []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeExternref}, out.Params)
	require.Equal(t, []wasm.ValueType{wasm.ValueTypeExternref}, out.Results)
	// original untouched
	require.Equal(t, wasm.ValueTypeI32, original.Params[1])
}

func TestWrapBodyOwnedParamNoResult(t *testing.T) {
	out := &wasm.Module{Signatures: map[wasm.SignatureKey][]wasm.ValueTypeMeta{}}
	ind := &mapper.Indices{}
	api := newTestSlab(out, ind)

	original := wasm.FuncType{Params: []wasm.ValueType{wasm.ValueTypeI32}}
	plan := Plan{Params: []Slot{{Index: 0, Owned: true}}}

	locals, body, err := WrapBody(original, plan, 42, api)
	require.NoError(t, err)
	require.Len(t, locals, 1)
	require.NotEmpty(t, body)
}

func TestWrapBodyBorrowedParamFreesAfterCall(t *testing.T) {
	out := &wasm.Module{Signatures: map[wasm.SignatureKey][]wasm.ValueTypeMeta{}}
	ind := &mapper.Indices{}
	api := newTestSlab(out, ind)

	original := wasm.FuncType{Params: []wasm.ValueType{wasm.ValueTypeI32}}
	plan := Plan{Params: []Slot{{Index: 0, Owned: false}}}

	_, body, err := WrapBody(original, plan, 42, api)
	require.NoError(t, err)
	require.NotEmpty(t, body)
	require.Equal(t, wasmbinary.BuildBody([]wasmbinary.Instruction{
		wasmbinary.LocalGet(0), api.AllocExtern(), wasmbinary.LocalTee(1),
		wasmbinary.Call(42),
		wasmbinary.LocalGet(1), api.Free(),
		wasmbinary.End(),
	}), body)
}

func TestWrapBodyRejectsMultiResultExternref(t *testing.T) {
	out := &wasm.Module{Signatures: map[wasm.SignatureKey][]wasm.ValueTypeMeta{}}
	ind := &mapper.Indices{}
	api := newTestSlab(out, ind)

	original := wasm.FuncType{Results: []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32}}
	plan := Plan{Results: []Slot{{Index: 0, Owned: true}, {Index: 1, Owned: true}}}

	_, _, err := WrapBody(original, plan, 42, api)
	require.Error(t, err)
}
