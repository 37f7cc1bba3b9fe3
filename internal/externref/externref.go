// Package externref implements the externref boundary transform (C8): for
// every exported function whose `__signature.export.<name>` tags mark a
// parameter or result as an externref slot, rewrite the function (and its
// type) to trade real externref values at the export boundary while the
// function body keeps working with the i32 slab-index ABI it was compiled
// against (frooxengine-rs's `externref` guest wrapper and its "__table"
// alloc/free/get imports, per original_source).
//
// Ownership follows the tag's mode:
//   - an owned externref parameter is alloc'd into a fresh slab slot and
//     the slot index is what the body receives; the slab now owns the
//     value on the body's behalf.
//   - a borrowed externref parameter is alloc'd the same way for the call,
//     then freed again once the call returns: the body never takes
//     ownership, it only gets to look the value up via its index for the
//     duration of one call.
//   - an owned externref result is taken out of the slab (clearing the
//     slot) after the inner body returns its i32 index, handing the
//     caller sole ownership of the returned value.
//   - a borrowed externref result is read with table.get+extern.convert_any
//     without clearing the slot: the slab keeps owning it, the caller only
//     gets a view.
//
// This call-site ownership split is not present in the retrieved
// original_source fragments (only the slab primitives and the guest-side
// wrapper are); see DESIGN.md for why this is the chosen design.
package externref

import (
	"fmt"

	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/slab"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasm"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasmbinary"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/werr"
)

// Slot describes one parameter or result position's externref mode.
type Slot struct {
	Index int
	Owned bool
}

// Plan is the externref rewrite plan for a single exported function.
type Plan struct {
	Params  []Slot // positions (into the *original* i32-ABI param list) that become externref
	Results []Slot // positions (into the *original* i32-ABI result list) that become externref
}

// SplitTags divides a signature section's flat tag sequence (params then
// results, matching the function type's own param/result concatenation)
// at paramCount.
func SplitTags(tags []wasm.ValueTypeMeta, paramCount int) (params, results []wasm.ValueTypeMeta) {
	if paramCount > len(tags) {
		paramCount = len(tags)
	}
	return tags[:paramCount], tags[paramCount:]
}

// BuildPlan reads a function's param/result meta tags (as recorded in
// wasm.Module.Signatures under SignatureKeyExport, split with SplitTags)
// against the function's actual wire-level param/result types, and reports
// the slots that need externref treatment, plus whether any do. A tag that
// is neither MetaNone nor an externref mode, or an externref tag applied
// to a non-i32 slot, is a hard error (werr.UnknownMeta /
// werr.IncompatibleMetaType) rather than a silently ignored annotation.
func BuildPlan(paramTags, resultTags []wasm.ValueTypeMeta, paramTypes, resultTypes []wasm.ValueType) (Plan, bool, error) {
	var plan Plan
	params, err := scanSlots(paramTags, paramTypes)
	if err != nil {
		return Plan{}, false, err
	}
	results, err := scanSlots(resultTags, resultTypes)
	if err != nil {
		return Plan{}, false, err
	}
	plan.Params = params
	plan.Results = results
	return plan, len(plan.Params) != 0 || len(plan.Results) != 0, nil
}

func scanSlots(tags []wasm.ValueTypeMeta, wireTypes []wasm.ValueType) ([]Slot, error) {
	var slots []Slot
	for i, tag := range tags {
		switch {
		case tag == wasm.MetaNone:
			continue
		case tag.IsExternref():
			if i < len(wireTypes) && wireTypes[i] != wasm.ValueTypeI32 {
				return nil, &werr.IncompatibleMetaType{Tag: tag, WireType: wireTypes[i]}
			}
			slots = append(slots, Slot{Index: i, Owned: tag == wasm.MetaExternrefOwned})
		default:
			return nil, &werr.UnknownMeta{Tag: tag}
		}
	}
	return slots, nil
}

// RewriteType returns the new externref-boundary func type: every planned
// param/result position's i32 slot becomes externref.
func RewriteType(original wasm.FuncType, plan Plan) wasm.FuncType {
	params := append([]wasm.ValueType(nil), original.Params...)
	for _, s := range plan.Params {
		params[s.Index] = wasm.ValueTypeExternref
	}
	results := append([]wasm.ValueType(nil), original.Results...)
	for _, s := range plan.Results {
		results[s.Index] = wasm.ValueTypeExternref
	}
	return wasm.FuncType{Params: params, Results: results}
}

// WrapBody builds a small wrapper function that presents the externref
// boundary type to the outside world, translating each externref slot
// through api around a plain call to innerFuncIndex (the original i32-ABI
// body, kept under its own, no-longer-exported function index).
//
// Locals layout: one fresh i32 local per externref param slot (holding the
// alloc'd index for the epilogue's free), plus one i32 local for the inner
// call's result when a result slot is planned, matching the compact,
// purpose-built local allocation style the slab bodies already use.
func WrapBody(original wasm.FuncType, plan Plan, innerFuncIndex uint32, api slab.API) (locals []wasm.ValueType, body []byte, err error) {
	localBase := uint32(len(original.Params))
	isExternParam := make(map[int]Slot, len(plan.Params))
	for _, s := range plan.Params {
		isExternParam[s.Index] = s
	}

	var instrs []wasmbinary.Instruction
	// Borrowed params need their slab index freed again after the call;
	// remember which locals to free in the epilogue.
	var toFree []uint32

	for i, p := range original.Params {
		if s, ok := isExternParam[i]; ok {
			_ = p
			idxLocal := localBase + uint32(len(locals))
			locals = append(locals, wasm.ValueTypeI32)
			instrs = append(instrs,
				wasmbinary.LocalGet(uint32(i)),
				api.AllocExtern(),
				wasmbinary.LocalTee(idxLocal),
			)
			// LocalTee leaves the alloc'd index on the stack as the
			// inner call's argument i and keeps a copy in idxLocal for
			// the epilogue's free.
			if !s.Owned {
				toFree = append(toFree, idxLocal)
			}
		} else {
			instrs = append(instrs, wasmbinary.LocalGet(uint32(i)))
		}
	}

	instrs = append(instrs, wasmbinary.Call(innerFuncIndex))

	if len(plan.Results) == 0 {
		for _, l := range toFree {
			instrs = append(instrs, wasmbinary.LocalGet(l), api.Free())
		}
		instrs = append(instrs, wasmbinary.End())
		return locals, wasmbinary.BuildBody(instrs), nil
	}

	if len(original.Results) != 1 || len(plan.Results) != 1 || plan.Results[0].Index != 0 {
		return nil, nil, fmt.Errorf("externref result slots are only supported for single-result functions")
	}
	resultLocal := localBase + uint32(len(locals))
	locals = append(locals, wasm.ValueTypeI32)
	instrs = append(instrs, wasmbinary.LocalSet(resultLocal))
	for _, l := range toFree {
		instrs = append(instrs, wasmbinary.LocalGet(l), api.Free())
	}
	instrs = append(instrs, wasmbinary.LocalGet(resultLocal))
	if plan.Results[0].Owned {
		instrs = append(instrs, api.TakeExtern())
	} else {
		instrs = append(instrs, asInstrs(api.GetExtern())...)
	}
	instrs = append(instrs, wasmbinary.End())
	return locals, wasmbinary.BuildBody(instrs), nil
}

func asInstrs(ins []wasmbinary.Instruction) []wasmbinary.Instruction { return ins }
