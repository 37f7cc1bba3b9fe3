package interner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasm"
)

func fn(params, results []wasm.ValueType) wasm.SubType {
	return wasm.SubType{
		IsFinal: true,
		Composite: wasm.CompositeType{
			Kind: wasm.CompositeTypeFunc,
			Func: &wasm.FuncType{Params: params, Results: results},
		},
	}
}

func TestInternSingleDeduplicatesByShape(t *testing.T) {
	in := New()
	a := in.InternSingle(0, fn([]wasm.ValueType{wasm.ValueTypeI32}, nil))
	b := in.InternSingle(5, fn([]wasm.ValueType{wasm.ValueTypeI32}, nil))
	require.Equal(t, a, b)
	require.Equal(t, uint32(1), in.Count())

	idx, ok := in.Lookup(5)
	require.True(t, ok)
	require.Equal(t, a, idx)
}

func TestInternSingleDistinctShapesGetDistinctIndices(t *testing.T) {
	in := New()
	a := in.InternSingle(0, fn([]wasm.ValueType{wasm.ValueTypeI32}, nil))
	b := in.InternSingle(1, fn([]wasm.ValueType{wasm.ValueTypeI64}, nil))
	require.NotEqual(t, a, b)
	require.Equal(t, uint32(2), in.Count())
}

func TestInternGroupNeverDeduplicatesAcrossGroups(t *testing.T) {
	in := New()
	group := wasm.RecGroup{Types: []wasm.SubType{fn(nil, nil)}}
	first := in.InternGroup([]uint32{0}, group)
	second := in.InternGroup([]uint32{1}, group)
	require.NotEqual(t, first, second, "rec groups must re-emit even when structurally identical")
	require.Equal(t, uint32(2), in.Count())
}

func TestInternGroupMembersAreIndividuallyMemoized(t *testing.T) {
	in := New()
	group := wasm.RecGroup{Types: []wasm.SubType{
		fn([]wasm.ValueType{wasm.ValueTypeI32}, nil),
		fn(nil, []wasm.ValueType{wasm.ValueTypeI64}),
	}}
	base := in.InternGroup([]uint32{10, 11}, group)

	idx, ok := in.Lookup(11)
	require.True(t, ok)
	require.Equal(t, base+1, idx)
}

func TestInternSingleCanReuseAGroupMemberShape(t *testing.T) {
	in := New()
	group := wasm.RecGroup{Types: []wasm.SubType{fn([]wasm.ValueType{wasm.ValueTypeI32}, nil)}}
	base := in.InternGroup([]uint32{0}, group)

	reused := in.InternSingle(99, fn([]wasm.ValueType{wasm.ValueTypeI32}, nil))
	require.Equal(t, base, reused)
	require.Equal(t, uint32(1), in.Count())
}
