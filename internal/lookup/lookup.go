// Package lookup flattens a module's rec-group and function index spaces
// into random-access tables, so the re-encoder can resolve a source index
// to its declaring rec group (for types) or its import/body origin (for
// functions) without a linear scan.
//
// Ground: original_source's parse.rs TypeLookup/FunctionLookup.
package lookup

import (
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasm"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/werr"
)

// TypeEntry describes one type index's place within the rec-group vector:
// which group it belongs to, the group's base index, and this type's
// offset within the group. Rec groups are the atomic unit of re-emission
// (spec.md §3), so the re-encoder needs group_base/group_offset to emit an
// entire referenced group at once and still answer "what index did the
// specific subtype I originally wanted land at".
type TypeEntry struct {
	Group       *wasm.RecGroup
	GroupBase   uint32
	GroupOffset uint32
	SubType     *wasm.SubType
}

// FuncType returns the entry's composite type as a function type, or an
// error if the composite type this index names isn't one (spec.md §7
// FunctionTypeIsNotFunction).
func (e TypeEntry) FuncType() (*wasm.FuncType, error) {
	ft, ok := e.SubType.FuncType()
	if !ok {
		return nil, &werr.FunctionTypeIsNotFunction{Index: e.GroupBase + e.GroupOffset}
	}
	return ft, nil
}

// TypeTable is a flattened, randomly indexable view over a module's rec
// groups.
type TypeTable struct {
	entries []TypeEntry
}

// NewTypeTable flattens groups into one entry per subtype, in declaration
// order, which is exactly core wasm's type index order.
func NewTypeTable(groups []wasm.RecGroup) *TypeTable {
	var entries []TypeEntry
	var base uint32
	for gi := range groups {
		g := &groups[gi]
		size := uint32(len(g.Types))
		for off := uint32(0); off < size; off++ {
			entries = append(entries, TypeEntry{
				Group:       g,
				GroupBase:   base,
				GroupOffset: off,
				SubType:     &g.Types[off],
			})
		}
		base += size
	}
	return &TypeTable{entries: entries}
}

// Get returns the entry for index, and whether it was in bounds.
func (t *TypeTable) Get(index uint32) (TypeEntry, bool) {
	if int(index) >= len(t.entries) {
		return TypeEntry{}, false
	}
	return t.entries[index], true
}

// TryGet is Get but returns an error for an out-of-bounds index.
func (t *TypeTable) TryGet(index uint32) (TypeEntry, error) {
	e, ok := t.Get(index)
	if !ok {
		return TypeEntry{}, &werr.TypeIndexOutOfBounds{Index: index}
	}
	return e, nil
}

// FuncOrigin distinguishes whether a function index names an import or a
// defined body.
type FuncOrigin byte

const (
	FuncOriginImport FuncOrigin = iota
	FuncOriginBody
)

// FuncEntry describes one function index, whether it's an imported or
// locally-defined function, and (for a body) the export name it was given,
// if any — the return-stub transform needs this to recognize which bodies
// are exported entry points worth rewriting.
type FuncEntry struct {
	Origin FuncOrigin
	Index  uint32
	Type   uint32

	Import *wasm.Import // set iff Origin == FuncOriginImport

	BodyIndex  uint32 // index into Module.CodeSection, set iff Origin == FuncOriginBody
	ExportName string // "" if this body is not exported under any name
}

// FuncTable is a flattened view spanning both imported and defined
// functions under a single index space, matching core wasm's function
// index numbering (every func import, then every function body).
type FuncTable struct {
	entries    []FuncEntry
	numImports uint32
}

// NewFuncTable builds the table from a module's import, function and
// export sections.
func NewFuncTable(m *wasm.Module) *FuncTable {
	var entries []FuncEntry
	var numImports uint32
	for i, imp := range m.ImportSection {
		if imp.Type != wasm.ExternTypeFunc {
			continue
		}
		idx := uint32(len(entries))
		entries = append(entries, FuncEntry{
			Origin: FuncOriginImport,
			Index:  idx,
			Type:   imp.DescFunc,
			Import: &m.ImportSection[i],
		})
		numImports++
	}
	for i := range m.CodeSection {
		idx := uint32(len(entries))
		entries = append(entries, FuncEntry{
			Origin:    FuncOriginBody,
			Index:     idx,
			Type:      m.FunctionSection[i],
			BodyIndex: uint32(i),
		})
	}
	for _, exp := range m.ExportSection {
		if exp.Kind != wasm.ExternalKindFunc {
			continue
		}
		if int(exp.Index) >= len(entries) {
			continue
		}
		if entries[exp.Index].Origin == FuncOriginBody {
			entries[exp.Index].ExportName = exp.Name
		}
	}
	return &FuncTable{entries: entries, numImports: numImports}
}

// Count returns the total number of entries (imports plus bodies).
func (t *FuncTable) Count() int { return len(t.entries) }

// IndexOfBody converts a CodeSection-relative index into a function index.
func (t *FuncTable) IndexOfBody(bodyIndex uint32) uint32 { return t.numImports + bodyIndex }

// Get returns the entry for index, and whether it was in bounds.
func (t *FuncTable) Get(index uint32) (FuncEntry, bool) {
	if int(index) >= len(t.entries) {
		return FuncEntry{}, false
	}
	return t.entries[index], true
}

// TryGet is Get but returns an error for an out-of-bounds index.
func (t *FuncTable) TryGet(index uint32) (FuncEntry, error) {
	e, ok := t.Get(index)
	if !ok {
		return FuncEntry{}, &werr.FunctionIndexOutOfBounds{Index: index}
	}
	return e, nil
}
