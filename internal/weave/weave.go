// Package weave orchestrates the whole transform pipeline (C1-C10): decode,
// detect return-stub markers and externref signature tags, merge in the
// slab module, re-encode every section through the index mappers, and
// encode the result.
//
// Ground: original_source's weaver.rs Weaver::encode, which runs the same
// sequence (strip marker imports while copying the rest, retype exported
// bodies that have a returns-lookup entry, weave each body, then copy
// tables/memories/tags/globals/start/elements/data verbatim through the
// same index translation).
package weave

import (
	"fmt"

	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/externref"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/interner"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/lookup"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/mapper"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/reencode"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/returnstub"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/slab"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasm"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasmbinary"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/werr"
)

// Options controls optional weave behavior.
type Options struct {
	// SkipExternref disables the externref boundary transform, leaving
	// signature-tagged functions at their original i32 ABI. Used by
	// callers that only want the return-stub rewrite.
	SkipExternref bool
}

// Weave runs the full transform over a decoded source binary and returns
// the re-encoded output binary.
func Weave(src []byte, opts Options) ([]byte, error) {
	m, warnings, err := wasmbinary.Decode(src)
	if err != nil {
		return nil, &werr.Decode{Err: err}
	}
	for _, w := range warnings {
		logWarning(w)
	}

	out, err := weaveModule(m, opts)
	if err != nil {
		return nil, err
	}
	return wasmbinary.Encode(out), nil
}

// logWarning is overridable by cmd/wazweave so decode-time warnings reach
// the structured logger instead of being dropped.
var logWarning = func(string) {}

// SetWarningSink lets the CLI driver install its own logger for
// decode-time warnings (spec.md §4.1 malformed-custom-section handling).
func SetWarningSink(f func(string)) { logWarning = f }

func weaveModule(m *wasm.Module, opts Options) (*wasm.Module, error) {
	types := lookup.NewTypeTable(m.RecGroups)
	funcs := lookup.NewFuncTable(m)

	stubs, err := returnstub.Detect(m, types)
	if err != nil {
		return nil, err
	}

	out := &wasm.Module{Signatures: map[wasm.SignatureKey][]wasm.ValueTypeMeta{}}
	ind := &mapper.Indices{}
	tyIn := interner.New()

	internType := func(sub wasm.SubType) uint32 {
		return tyIn.InternSingle(noSource(), sub)
	}

	typeIndexFn := func(source uint32) (uint32, error) {
		if idx, ok := tyIn.Lookup(source); ok {
			return idx, nil
		}
		entry, err := types.TryGet(source)
		if err != nil {
			return 0, err
		}
		if entry.Group.Explicit() {
			groupIndices := make([]uint32, len(entry.Group.Types))
			for i := range groupIndices {
				groupIndices[i] = entry.GroupBase + uint32(i)
			}
			base := tyIn.InternGroup(groupIndices, *entry.Group)
			return base + entry.GroupOffset, nil
		}
		return tyIn.InternSingle(source, *entry.SubType), nil
	}

	// Imports: drop return-stub markers, defer "__table"/"free" imports to
	// the slab's own free function (resolved once the slab is included
	// below), copy everything else while reserving fresh function/table/
	// global indices in declaration order. Table and global imports are
	// mapped here with MapReserve, not a bare Reserve, so the source index
	// a body or export later references actually resolves (spec.md §5).
	var newImports []wasm.Import
	var freeImportSources []uint32
	funcImportSource := uint32(0)
	tableImportSource := uint32(0)
	globalImportSource := uint32(0)
	for _, imp := range m.ImportSection {
		switch imp.Type {
		case wasm.ExternTypeTable:
			ind.Tables.MapReserve(tableImportSource)
			tableImportSource++
			newImports = append(newImports, imp)
			continue
		case wasm.ExternTypeGlobal:
			ind.Globals.MapReserve(globalImportSource)
			globalImportSource++
			newImports = append(newImports, imp)
			continue
		case wasm.ExternTypeMemory, wasm.ExternTypeTag:
			newImports = append(newImports, imp)
			continue
		}

		sourceIdx := funcImportSource
		funcImportSource++

		if returnstub.IsStub(imp) {
			// Marker import: stripped, never mapped. A call site
			// referencing it is only valid inside a body this plan has
			// already rewritten to `return`; weaveBody enforces that.
			continue
		}
		if slab.MapFreeImport(imp.Module, imp.Name) {
			// api.FreeFn does not exist yet: the slab is only included
			// (if at all) once every export's externref plan is known, so
			// the mapping for this source index is recorded after that.
			freeImportSources = append(freeImportSources, sourceIdx)
			continue
		}
		if imp.Module == wasm.TableRedirectModuleName {
			return nil, &werr.ImportNotFound{Name: imp.Name}
		}

		newTypeIdx, err := typeIndexFn(imp.DescFunc)
		if err != nil {
			return nil, err
		}
		ind.Funcs.MapReserve(sourceIdx)
		newImports = append(newImports, wasm.Import{
			Type: imp.Type, Module: imp.Module, Name: imp.Name, DescFunc: newTypeIdx,
		})
	}
	out.ImportSection = newImports

	// Function bodies: retype exported+return-stub'd functions, and
	// reserve their (possibly doubled, for externref wrapping) function
	// indices up front so call sites elsewhere can resolve them.
	type bodyPlan struct {
		sourceFuncIdx uint32
		newTypeIdx    uint32
		funcIdx       uint32
		results       returnstub.Stub
		hasReturns    bool
		ext           externref.Plan
		hasExt        bool
		origFuncType  wasm.FuncType
		exportName    string
	}
	plans := make([]bodyPlan, len(m.CodeSection))

	for i := range m.CodeSection {
		sourceFuncIdx := funcs.IndexOfBody(uint32(i))
		entry, err := funcs.TryGet(sourceFuncIdx)
		if err != nil {
			return nil, err
		}
		tyEntry, err := types.TryGet(entry.Type)
		if err != nil {
			return nil, err
		}
		origFt, err := tyEntry.FuncType()
		if err != nil {
			return nil, err
		}

		bp := bodyPlan{sourceFuncIdx: sourceFuncIdx, origFuncType: *origFt, exportName: entry.ExportName}

		effectiveFt := *origFt
		if entry.ExportName != "" {
			if stub, ok := stubs.ByExportName[entry.ExportName]; ok {
				effectiveFt.Results = stub.Results
				bp.results = stub
				bp.hasReturns = true
			}
			if !opts.SkipExternref {
				if tags, ok := m.Signatures[wasm.SignatureKey{Kind: wasm.SignatureKeyExport, Name: entry.ExportName}]; ok {
					pt, rt := externref.SplitTags(tags, len(effectiveFt.Params))
					plan, has, err := externref.BuildPlan(pt, rt, effectiveFt.Params, effectiveFt.Results)
					if err != nil {
						return nil, fmt.Errorf("export %q: %w", entry.ExportName, err)
					}
					if has {
						bp.ext = plan
						bp.hasExt = true
					}
				}
			}
		}

		newTypeIdx, err := typeIndexFn(entry.Type)
		if err != nil {
			return nil, err
		}
		if bp.hasReturns {
			newTypeIdx, err = internFuncType(tyIn, effectiveFt)
			if err != nil {
				return nil, err
			}
		}
		bp.newTypeIdx = newTypeIdx
		bp.funcIdx = ind.Funcs.MapReserve(sourceFuncIdx)
		plans[i] = bp
	}

	// Externref wrapping needs a second function index per wrapped body
	// (the public wrapper) while the original body keeps its mapped
	// index but stops being directly exported.
	wrapperIdx := make(map[int]uint32)
	for i, bp := range plans {
		if !bp.hasExt {
			continue
		}
		wrapperIdx[i] = ind.Funcs.Reserve()
	}

	funcIndexFn := func(source uint32) (uint32, error) {
		if t, ok := ind.Funcs.Map(source); ok {
			return t, nil
		}
		// A call targeting an unmapped function index can only be a
		// stripped return-stub marker that weaveBody failed to rewrite.
		return 0, &werr.UnexpectedMarkerFunctionCall{Func: &source}
	}
	tableIndexFn := func(source uint32) (uint32, error) {
		if t, ok := ind.Tables.Map(source); ok {
			return t, nil
		}
		return 0, &werr.TableIndexOutOfBounds{Index: source}
	}
	globalIndexFn := func(source uint32) (uint32, error) {
		if t, ok := ind.Globals.Map(source); ok {
			return t, nil
		}
		return 0, &werr.GlobalIndexOutOfBounds{Index: source}
	}

	// Tables and globals are reserved and copied before the body-weave loop
	// below: a body's global.get/table.get, or a global initializer's
	// ref.func/global.get, needs the mapping to already exist, and an
	// export can target a locally-defined table or global too. Source
	// indices continue right after the import-space counters so the two
	// loops together number each space exactly the way core wasm does.
	for i, t := range m.TableSection {
		ind.Tables.MapReserve(tableImportSource + uint32(i))
		out.TableSection = append(out.TableSection, t)
	}
	out.MemorySection = append(out.MemorySection, m.MemorySection...)
	out.TagSection = append(out.TagSection, m.TagSection...)

	for i, g := range m.GlobalSection {
		ind.Globals.MapReserve(globalImportSource + uint32(i))
		init, err := wasmbinary.RemapConstExprIndices(g.Init, funcIndexFn, globalIndexFn)
		if err != nil {
			return nil, fmt.Errorf("global initializer: %w", err)
		}
		out.GlobalSection = append(out.GlobalSection, wasm.Global{Type: g.Type, Init: init})
	}

	// The slab is activated lazily (spec.md §2/§4.6): only once some
	// export's signature actually carries an externref tag, or the source
	// imported "__table"/"free" directly. Its own function/table
	// reservations are made only now, after every host-visible function
	// and table index above has already been claimed, so slab entities
	// always sort after host-visible reservations of the same kind
	// (spec.md §5).
	needsSlab := len(freeImportSources) > 0
	for _, bp := range plans {
		if bp.hasExt {
			needsSlab = true
			break
		}
	}
	// Include writes into slabOut: the slab table joins out's tables now,
	// while its functions are appended after every host body and wrapper
	// below, so each code entry's position matches its reserved index.
	var api slab.API
	slabOut := &wasm.Module{}
	if needsSlab {
		api = slab.Include(slabOut, ind, internType)
		out.TableSection = append(out.TableSection, slabOut.TableSection...)
	}
	for _, src := range freeImportSources {
		ind.Funcs.AddMapping(src, api.FreeFn)
	}

	r := &reencode.Base{MapType: typeIndexFn, MapFunc: funcIndexFn, MapTable: tableIndexFn, MapGlobal: globalIndexFn}

	var wrapFuncs []uint32
	var wrapCode []wasm.Code
	for i, bp := range plans {
		var stubFunc uint32
		if bp.hasReturns {
			stubFunc = bp.results.ImportIndex
		}
		body, err := weaveBody(r, m.CodeSection[i], bp.hasReturns, stubFunc)
		if err != nil {
			return nil, fmt.Errorf("function %d: %w", bp.sourceFuncIdx, err)
		}
		out.FunctionSection = append(out.FunctionSection, bp.newTypeIdx)
		out.CodeSection = append(out.CodeSection, wasm.Code{LocalTypes: m.CodeSection[i].LocalTypes, Body: body})

		if bp.hasExt {
			// The inner (now non-exported) body's callable signature: its
			// params are unchanged, but its results were already retyped
			// by the return-stub pass if this export also had one.
			innerFt := bp.origFuncType
			if bp.hasReturns {
				innerFt.Results = bp.results.Results
			}
			wrapFt := externref.RewriteType(innerFt, bp.ext)
			wrapLocals, wrapBody, err := externref.WrapBody(innerFt, bp.ext, bp.funcIdx, api)
			if err != nil {
				return nil, fmt.Errorf("function %d externref wrapper: %w", bp.sourceFuncIdx, err)
			}
			wrapTypeIdx, err := internFuncType(tyIn, wrapFt)
			if err != nil {
				return nil, err
			}
			wrapFuncs = append(wrapFuncs, wrapTypeIdx)
			wrapCode = append(wrapCode, wasm.Code{LocalTypes: wrapLocals, Body: wrapBody})
		}
	}
	out.FunctionSection = append(append(out.FunctionSection, wrapFuncs...), slabOut.FunctionSection...)
	out.CodeSection = append(append(out.CodeSection, wrapCode...), slabOut.CodeSection...)

	// Exports: redirect exported function indices to each body's
	// externref wrapper (if any), otherwise to its own mapped index.
	for _, exp := range m.ExportSection {
		if exp.Kind != wasm.ExternalKindFunc {
			newIdx, err := remapNonFuncExportIndex(exp, ind)
			if err != nil {
				return nil, err
			}
			out.ExportSection = append(out.ExportSection, wasm.Export{Name: exp.Name, Kind: exp.Kind, Index: newIdx})
			continue
		}
		entry, err := funcs.TryGet(exp.Index)
		if err != nil {
			return nil, err
		}
		if entry.Origin != lookup.FuncOriginBody {
			newIdx, err := funcIndexFn(exp.Index)
			if err != nil {
				return nil, err
			}
			out.ExportSection = append(out.ExportSection, wasm.Export{Name: exp.Name, Kind: exp.Kind, Index: newIdx})
			continue
		}
		bp := plans[entry.BodyIndex]
		target := bp.funcIdx
		if wi, ok := wrapperIdx[int(entry.BodyIndex)]; ok {
			target = wi
		}
		out.ExportSection = append(out.ExportSection, wasm.Export{Name: exp.Name, Kind: exp.Kind, Index: target})
	}
	if needsSlab {
		out.ExportSection = append(out.ExportSection, wasm.Export{Name: "__slab_alloc", Kind: wasm.ExternalKindFunc, Index: api.AllocFn})
	}

	if m.StartSection != nil {
		idx, err := funcIndexFn(*m.StartSection)
		if err != nil {
			return nil, err
		}
		out.StartSection = &idx
	}

	for _, el := range m.ElementSection {
		newEl := el
		if el.Active {
			newTableIdx, err := tableIndexFn(el.TableIndex)
			if err != nil {
				return nil, err
			}
			newEl.TableIndex = newTableIdx
			newOffset, err := wasmbinary.RemapConstExprIndices(el.Offset, funcIndexFn, globalIndexFn)
			if err != nil {
				return nil, err
			}
			newEl.Offset = newOffset
		}
		if el.FuncIndexes != nil {
			newEl.FuncIndexes = make([]uint32, len(el.FuncIndexes))
			for i, fi := range el.FuncIndexes {
				nfi, err := funcIndexFn(fi)
				if err != nil {
					return nil, err
				}
				newEl.FuncIndexes[i] = nfi
			}
		}
		if el.Init != nil {
			newEl.Init = make([]wasm.ConstantExpression, len(el.Init))
			for i, c := range el.Init {
				nc, err := wasmbinary.RemapConstExprIndices(c, funcIndexFn, globalIndexFn)
				if err != nil {
					return nil, err
				}
				newEl.Init[i] = nc
			}
		}
		out.ElementSection = append(out.ElementSection, newEl)
	}

	for _, d := range m.DataSection {
		newD := d
		if d.Active {
			newOffset, err := wasmbinary.RemapConstExprIndices(d.Offset, funcIndexFn, globalIndexFn)
			if err != nil {
				return nil, err
			}
			newD.Offset = newOffset
		}
		out.DataSection = append(out.DataSection, newD)
	}
	out.HasDataCount = m.HasDataCount
	out.RecGroups = tyIn.Groups()

	if m.NameSection != nil {
		out.NameSection = remapNames(m.NameSection, ind)
	}

	return out, nil
}

func internFuncType(tyIn *interner.Interner, ft wasm.FuncType) (uint32, error) {
	sub := wasm.SubType{IsFinal: true, Composite: wasm.CompositeType{Kind: wasm.CompositeTypeFunc, Func: &ft}}
	return tyIn.InternSingle(noSource(), sub), nil
}

// noSource mints a source index outside any real module's range so
// synthesized types (retyped return-stub signatures, externref wrappers)
// never collide with a genuine source type index in the interner's
// bySource map. Each call returns a fresh value.
var syntheticSource = ^uint32(0)

func noSource() uint32 {
	syntheticSource--
	return syntheticSource
}

func weaveBody(r *reencode.Base, code wasm.Code, hasReturns bool, stubFunc uint32) ([]byte, error) {
	if !hasReturns {
		return reencode.RewriteBody(r, code.Body)
	}
	return wasmbinary.RewriteBodyErr(code.Body, func(ins wasmbinary.Instruction) (wasmbinary.Instruction, error) {
		if ins.Opcode == wasm.OpcodeCall && ins.Prefix == 0 && ins.FuncIndex == stubFunc {
			return wasmbinary.Return(), nil
		}
		return r.Instruction(ins)
	})
}

func remapNonFuncExportIndex(exp wasm.Export, ind *mapper.Indices) (uint32, error) {
	switch exp.Kind {
	case wasm.ExternalKindTable:
		if v, ok := ind.Tables.Map(exp.Index); ok {
			return v, nil
		}
	case wasm.ExternalKindMemory:
		return exp.Index, nil
	case wasm.ExternalKindGlobal:
		if v, ok := ind.Globals.Map(exp.Index); ok {
			return v, nil
		}
	case wasm.ExternalKindTag:
		return exp.Index, nil
	}
	return 0, fmt.Errorf("export %q: index %d has no mapping", exp.Name, exp.Index)
}

func remapNames(n *wasm.NameSection, ind *mapper.Indices) *wasm.NameSection {
	out := &wasm.NameSection{ModuleName: n.ModuleName}
	if n.FunctionNames != nil {
		out.FunctionNames = make(map[uint32]string, len(n.FunctionNames))
		for idx, name := range n.FunctionNames {
			if newIdx, ok := ind.Funcs.Map(idx); ok {
				out.FunctionNames[newIdx] = name
			}
		}
	}
	if n.LocalNames != nil {
		out.LocalNames = make(map[uint32]map[uint32]string, len(n.LocalNames))
		for idx, locals := range n.LocalNames {
			if newIdx, ok := ind.Funcs.Map(idx); ok {
				out.LocalNames[newIdx] = locals
			}
		}
	}
	return out
}
