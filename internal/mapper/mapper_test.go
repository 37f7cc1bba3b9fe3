package mapper

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndexMapperReserveAndMap(t *testing.T) {
	var im IndexMapper

	slabIdx := im.Reserve()
	require.Equal(t, uint32(0), slabIdx)

	target := im.MapReserve(5)
	require.Equal(t, uint32(1), target)

	got, ok := im.Map(5)
	require.True(t, ok)
	require.Equal(t, uint32(1), got)

	_, ok = im.Map(6)
	require.False(t, ok)

	require.Equal(t, uint32(2), im.Len())
}

func TestIndexMapperReserveMany(t *testing.T) {
	var im IndexMapper
	first := im.ReserveMany(3)
	require.Equal(t, uint32(0), first)
	require.Equal(t, uint32(3), im.Len())

	next := im.Reserve()
	require.Equal(t, uint32(3), next)
}

func TestIndexMapperAddMappingPanicsOnUnreservedTarget(t *testing.T) {
	var im IndexMapper
	require.Panics(t, func() { im.AddMapping(0, 0) })
}

func TestIndexMapperAddMappingPanicsOnDuplicateSource(t *testing.T) {
	var im IndexMapper
	im.MapReserve(1)
	im.Reserve()
	require.Panics(t, func() { im.AddMapping(1, 1) })
}

func TestIndexMapperMustMapPanicsWhenUnmapped(t *testing.T) {
	var im IndexMapper
	require.Panics(t, func() { im.MustMap(42) })
}
