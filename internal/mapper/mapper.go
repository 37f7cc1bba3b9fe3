// Package mapper tracks how the source module's index spaces (types,
// functions, tables, globals) relocate into the woven output, with the slab
// module's own declarations appended after them.
//
// Ground: original_source's weaver/indices.rs Indices/IndexMapper.
package mapper

import "fmt"

// IndexMapper allocates unique target indices and records the mapping from
// a source module's index to its target index. Indices reserved for the
// slab's own declarations (never present in the source map) are allocated
// the same way, just without a call to AddMapping.
type IndexMapper struct {
	next uint32
	m    map[uint32]uint32
}

// Reserve allocates and returns one fresh target index.
func (im *IndexMapper) Reserve() uint32 {
	return im.ReserveMany(1)
}

// ReserveMany allocates count consecutive target indices and returns the
// first one.
func (im *IndexMapper) ReserveMany(count uint32) uint32 {
	i := im.next
	im.next += count
	return i
}

// MapReserve reserves one fresh index and records it as source's target.
func (im *IndexMapper) MapReserve(source uint32) uint32 {
	i := im.Reserve()
	im.AddMapping(source, i)
	return i
}

// AddMapping records that source maps to target. target must already have
// been reserved. Panics if source was already mapped, since that would mean
// silently dropping a prior mapping.
func (im *IndexMapper) AddMapping(source, target uint32) {
	if target >= im.next {
		panic(fmt.Sprintf("mapper: target %d is not reserved (next unreserved is %d)", target, im.next))
	}
	if im.m == nil {
		im.m = make(map[uint32]uint32)
	}
	if _, exists := im.m[source]; exists {
		panic(fmt.Sprintf("mapper: index %d already has a registered mapping", source))
	}
	im.m[source] = target
}

// Map returns the target index for source, and whether one was registered.
func (im *IndexMapper) Map(source uint32) (uint32, bool) {
	v, ok := im.m[source]
	return v, ok
}

// MustMap is Map but panics if source has no registered mapping, for call
// sites where an unmapped index means the re-encoder has a bug.
func (im *IndexMapper) MustMap(source uint32) uint32 {
	v, ok := im.Map(source)
	if !ok {
		panic(fmt.Sprintf("mapper: no mapping registered for index %d", source))
	}
	return v
}

// Len returns the number of indices reserved so far, i.e. the size the
// corresponding index space will have in the output.
func (im *IndexMapper) Len() uint32 { return im.next }

// Indices groups the three index-space mappers the re-encoder threads
// through a module rewrite. Tags are deliberately absent: the slab never
// declares a tag, so tag indices are always identity-mapped and need no
// mapper (spec.md §3). Types are not tracked here either: the output's type
// space is driven entirely by internal/interner.Interner, which dedupes
// structurally rather than by source index.
type Indices struct {
	Funcs   IndexMapper
	Tables  IndexMapper
	Globals IndexMapper
}
