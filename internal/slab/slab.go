// Package slab provides the auxiliary "slab" module the externref
// transform (C8) merges into the woven output: an items table of externref
// plus alloc/free/take functions that let code built against the source
// module's i32-tagged resource-handle ABI interoperate with a real
// externref export boundary.
//
// Ground: original_source's weaver/table_slab.rs, which embeds a
// precompiled github.com/ColinTimBarndt/wasm-table-slab binary via
// include_bytes! and re-encodes it into the output with Reencode. No
// precompiled slab binary is available in this toolchain's inputs, and
// nothing here may invoke an external compiler (spec.md Non-goals), so the
// slab's IR is constructed directly in Go instead of parsed from a .wasm
// blob; see DESIGN.md for the semantics this assigns to alloc/free/take.
package slab

import (
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/mapper"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasm"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasmbinary"
)

// API exposes the merged-in slab's resolved function and table indices,
// already translated into the output module's index space, for the
// externref transform to call into while it rewrites export bodies.
//
// Ground: original_source's TableSlabApi, minus its parser-driven
// map_import glue: MapFreeImport below only recognizes the import, and the
// caller records the mapping to FreeFn through mapper.Indices.Funcs itself.
type API struct {
	AllocFn    uint32
	FreeFn     uint32
	TakeFn     uint32
	ItemsTable uint32
}

// AllocExtern consumes an externref on the stack, stores it in a fresh slab
// slot, and produces that slot's i32 index.
func (a API) AllocExtern() wasmbinary.Instruction { return wasmbinary.Call(a.AllocFn) }

// Free consumes an i32 slab index and clears that slot.
func (a API) Free() wasmbinary.Instruction { return wasmbinary.Call(a.FreeFn) }

// TakeExtern consumes an i32 slab index, produces the externref stored
// there, and clears the slot: ownership moves to whoever receives the
// result.
func (a API) TakeExtern() wasmbinary.Instruction { return wasmbinary.Call(a.TakeFn) }

// GetExtern reads the slab slot at the i32 index already on the stack
// without clearing it — the slab continues to own the value, the caller
// only borrows it for the duration of the call.
func (a API) GetExtern() []wasmbinary.Instruction {
	return []wasmbinary.Instruction{
		wasmbinary.TableGet(a.ItemsTable),
		wasmbinary.ExternConvertAny(),
	}
}

// Module builds the slab's own module IR: one rec group per function
// signature, three function bodies, one externref table and the
// alloc/free/take/items exports.
//
// alloc grows the table by one slot (filling the new slot with a null
// first, since table.grow requires a fill value), stores the incoming
// externref there, and returns the new slot's index — the previous table
// size, which table.grow itself produces. free clears a slot back to
// ref.null. take reads a slot, clears it, and returns what was read,
// leaving the caller as sole owner.
func Module() *wasm.Module {
	allocSig := funcSubType([]wasm.ValueType{wasm.ValueTypeExternref}, []wasm.ValueType{wasm.ValueTypeI32})
	freeSig := funcSubType([]wasm.ValueType{wasm.ValueTypeI32}, nil)
	takeSig := funcSubType([]wasm.ValueType{wasm.ValueTypeI32}, []wasm.ValueType{wasm.ValueTypeExternref})

	return &wasm.Module{
		RecGroups: []wasm.RecGroup{
			{Types: []wasm.SubType{allocSig}},
			{Types: []wasm.SubType{freeSig}},
			{Types: []wasm.SubType{takeSig}},
		},
		FunctionSection: []uint32{0, 1, 2},
		TableSection: []wasm.Table{
			{ElemType: wasm.ValueTypeExternref, Limits: wasm.Limits{Min: 0}},
		},
		ExportSection: []wasm.Export{
			{Name: "alloc", Kind: wasm.ExternalKindFunc, Index: 0},
			{Name: "free", Kind: wasm.ExternalKindFunc, Index: 1},
			{Name: "take", Kind: wasm.ExternalKindFunc, Index: 2},
			{Name: "items", Kind: wasm.ExternalKindTable, Index: 0},
		},
		CodeSection: []wasm.Code{
			{LocalTypes: []wasm.ValueType{wasm.ValueTypeI32}, Body: allocBody()},
			{Body: freeBody()},
			{LocalTypes: []wasm.ValueType{wasm.ValueTypeExternref}, Body: takeBody()},
		},
		Signatures: map[wasm.SignatureKey][]wasm.ValueTypeMeta{},
	}
}

func funcSubType(params, results []wasm.ValueType) wasm.SubType {
	return wasm.SubType{IsFinal: true, Composite: wasm.CompositeType{
		Kind: wasm.CompositeTypeFunc,
		Func: &wasm.FuncType{Params: params, Results: results},
	}}
}

// allocBody: param 0 is the externref, local 1 an i32 scratch for the
// fresh index.
func allocBody() []byte {
	return wasmbinary.BuildBody([]wasmbinary.Instruction{
		wasmbinary.RefNullExtern(),
		wasmbinary.I32Const(1),
		wasmbinary.TableGrow(0),
		wasmbinary.LocalTee(1),
		wasmbinary.LocalGet(0),
		wasmbinary.TableSet(0),
		wasmbinary.LocalGet(1),
		wasmbinary.End(),
	})
}

// freeBody: param 0 is the i32 index.
func freeBody() []byte {
	return wasmbinary.BuildBody([]wasmbinary.Instruction{
		wasmbinary.LocalGet(0),
		wasmbinary.RefNullExtern(),
		wasmbinary.TableSet(0),
		wasmbinary.End(),
	})
}

// takeBody: param 0 is the i32 index, local 1 an externref scratch holding
// the value read before the slot is cleared.
func takeBody() []byte {
	return wasmbinary.BuildBody([]wasmbinary.Instruction{
		wasmbinary.LocalGet(0),
		wasmbinary.TableGet(0),
		wasmbinary.LocalSet(1),
		wasmbinary.LocalGet(0),
		wasmbinary.RefNullExtern(),
		wasmbinary.TableSet(0),
		wasmbinary.LocalGet(1),
		wasmbinary.End(),
	})
}

// Include merges the slab module into dst, reserving fresh function and
// table indices through ind, interning the slab's own types through
// internType (the same interner the rest of the weave threads its type
// space through; mapper.Indices has no type index space), and returns an
// API with those indices resolved for the caller to emit calls against.
// The slab's functions are appended to dst.FunctionSection and
// dst.CodeSection as they are, so dst must already hold every function
// body that precedes funcBase for positions and indices to agree.
//
// Callers must invoke this only after every host-visible function and
// table index has already been reserved: spec.md §5's determinism clause
// requires slab entities to always sort after host-visible reservations of
// the same kind.
func Include(dst *wasm.Module, ind *mapper.Indices, internType func(wasm.SubType) uint32) API {
	src := Module()

	// Each of the three rec groups built by Module is a bare singleton, so
	// interning its one member directly (rather than going through
	// InternGroup) is enough.
	typeIdx := make([]uint32, len(src.RecGroups))
	for i, g := range src.RecGroups {
		typeIdx[i] = internType(g.Types[0])
	}

	tableBase := ind.Tables.ReserveMany(uint32(len(src.TableSection)))
	dst.TableSection = append(dst.TableSection, src.TableSection...)

	funcBase := ind.Funcs.ReserveMany(uint32(len(src.FunctionSection)))
	for _, ty := range src.FunctionSection {
		dst.FunctionSection = append(dst.FunctionSection, typeIdx[ty])
	}
	// Module's bodies address the slab table as table 0; re-point them at
	// the table index reserved for it in dst.
	for _, c := range src.CodeSection {
		body, err := wasmbinary.RewriteBody(c.Body, func(ins wasmbinary.Instruction) (wasmbinary.Instruction, bool) {
			isTableOp := ins.Prefix == 0 && (ins.Opcode == wasm.OpcodeTableGet || ins.Opcode == wasm.OpcodeTableSet) ||
				ins.Prefix == wasm.OpcodeMiscPrefix && ins.Opcode == wasm.MiscTableGrow
			ins.TableIndex += tableBase
			return ins, isTableOp
		})
		if err != nil {
			panic(err) // Module builds these bodies with BuildBody, so they always decode
		}
		dst.CodeSection = append(dst.CodeSection, wasm.Code{LocalTypes: c.LocalTypes, Body: body})
	}

	return API{
		AllocFn:    funcBase + 0,
		FreeFn:     funcBase + 1,
		TakeFn:     funcBase + 2,
		ItemsTable: tableBase + 0,
	}
}

// MapFreeImport reports whether an import names the slab's "free" function
// via the reserved __table module (spec.md §6), in which case the importing
// call site should be redirected to api.FreeFn instead of getting its own
// fresh function index.
func MapFreeImport(module, name string) bool {
	return module == wasm.TableRedirectModuleName && name == "free"
}
