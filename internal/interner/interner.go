// Package interner implements the type interner (C2): structural-equality
// deduplication of subtypes, with on-demand emission so a rewrite only ever
// materializes the types actually referenced by the output.
//
// Ground: original_source's type_allocator.rs HashableType (structural
// equality) and weaver.rs's type_index/new_ty (on-demand emission, memoized
// per source index in type_map and per structural shape in type_indices).
package interner

import "github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasm"

// Interner accumulates the output module's type section, deduplicating by
// structural equality and memoizing the source-index-to-target-index
// mapping so a type referenced from many places is only emitted once.
type Interner struct {
	groups []wasm.RecGroup

	// bySource memoizes a source type index once its target index (or that
	// of its enclosing rec group) has been decided, so repeat references to
	// the same source index are O(1) instead of re-walking the structural
	// index.
	bySource map[uint32]uint32

	// byShape deduplicates structurally-equal singleton subtypes emitted
	// one at a time (not as part of an explicit rec group): two distinct
	// source indices that happen to describe the same signature collapse
	// to one output type.
	byShape []shapeEntry
}

type shapeEntry struct {
	sub wasm.SubType
	idx uint32
}

// New returns an empty interner ready to accumulate an output type section.
func New() *Interner {
	return &Interner{bySource: make(map[uint32]uint32)}
}

// Groups returns the accumulated output type section, in emission order.
func (in *Interner) Groups() []wasm.RecGroup { return in.groups }

// Count returns the number of type indices emitted so far.
func (in *Interner) Count() uint32 {
	var n uint32
	for _, g := range in.groups {
		n += uint32(len(g.Types))
	}
	return n
}

// Lookup returns the target index already assigned to a source index, if
// any.
func (in *Interner) Lookup(sourceIndex uint32) (uint32, bool) {
	v, ok := in.bySource[sourceIndex]
	return v, ok
}

// InternSingle emits sub as a standalone type (no rec group wrapper) unless
// a structurally-identical type was already emitted, reusing its index.
// sourceIndex is memoized against the result so future lookups for the same
// source index are free.
func (in *Interner) InternSingle(sourceIndex uint32, sub wasm.SubType) uint32 {
	if idx, ok := in.findShape(&sub); ok {
		in.bySource[sourceIndex] = idx
		return idx
	}
	idx := in.Count()
	in.groups = append(in.groups, wasm.RecGroup{Types: []wasm.SubType{sub}})
	in.byShape = append(in.byShape, shapeEntry{sub: sub, idx: idx})
	in.bySource[sourceIndex] = idx
	return idx
}

// InternGroup emits an entire rec group as a unit: rec groups are never
// deduplicated against each other (spec.md §3, "rec-groups are the atomic
// unit of emission"), though each of their member subtypes is registered in
// the structural index so a later singleton reference to an
// identically-shaped type can still collapse onto one of these members.
// sourceIndices gives, in order, the source type index of each member;
// every one is memoized to its corresponding output index.
func (in *Interner) InternGroup(sourceIndices []uint32, group wasm.RecGroup) uint32 {
	base := in.Count()
	in.groups = append(in.groups, group)
	for i, sub := range group.Types {
		idx := base + uint32(i)
		in.byShape = append(in.byShape, shapeEntry{sub: sub, idx: idx})
		in.bySource[sourceIndices[i]] = idx
	}
	return base
}

func (in *Interner) findShape(sub *wasm.SubType) (uint32, bool) {
	for _, e := range in.byShape {
		s := e.sub
		if s.Equal(sub) {
			return e.idx, true
		}
	}
	return 0, false
}
