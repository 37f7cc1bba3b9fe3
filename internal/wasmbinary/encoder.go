package wasmbinary

import (
	"fmt"
	"sort"

	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasm"
)

// Encode serializes a module's IR back into a core WebAssembly binary,
// emitting sections in the fixed order the spec mandates. Custom sections
// (name, signatures) are always placed last, mirroring how a toolchain
// appends debug info after the semantically load-bearing sections.
func Encode(m *wasm.Module) []byte {
	out := newWriter()
	out.writeBytes(magic)
	out.writeBytes(version)

	if len(m.RecGroups) > 0 {
		w := newWriter()
		writeVec(w, m.RecGroups, EncodeRecGroup)
		writeSection(out, wasm.SectionIDType, w.Bytes())
	}
	if len(m.ImportSection) > 0 {
		w := newWriter()
		writeVec(w, m.ImportSection, EncodeImport)
		writeSection(out, wasm.SectionIDImport, w.Bytes())
	}
	if len(m.FunctionSection) > 0 {
		w := newWriter()
		writeVec(w, m.FunctionSection, func(w *writer, idx uint32) { w.writeU32(idx) })
		writeSection(out, wasm.SectionIDFunction, w.Bytes())
	}
	if len(m.TableSection) > 0 {
		w := newWriter()
		writeVec(w, m.TableSection, EncodeTable)
		writeSection(out, wasm.SectionIDTable, w.Bytes())
	}
	if len(m.MemorySection) > 0 {
		w := newWriter()
		writeVec(w, m.MemorySection, encodeMemory)
		writeSection(out, wasm.SectionIDMemory, w.Bytes())
	}
	if len(m.TagSection) > 0 {
		w := newWriter()
		writeVec(w, m.TagSection, encodeTag)
		writeSection(out, wasm.SectionIDTag, w.Bytes())
	}
	if len(m.GlobalSection) > 0 {
		w := newWriter()
		writeVec(w, m.GlobalSection, EncodeGlobal)
		writeSection(out, wasm.SectionIDGlobal, w.Bytes())
	}
	if len(m.ExportSection) > 0 {
		w := newWriter()
		writeVec(w, m.ExportSection, EncodeExport)
		writeSection(out, wasm.SectionIDExport, w.Bytes())
	}
	if m.StartSection != nil {
		w := newWriter()
		w.writeU32(*m.StartSection)
		writeSection(out, wasm.SectionIDStart, w.Bytes())
	}
	if len(m.ElementSection) > 0 {
		w := newWriter()
		writeVec(w, m.ElementSection, encodeElementSegment)
		writeSection(out, wasm.SectionIDElement, w.Bytes())
	}
	if m.HasDataCount {
		w := newWriter()
		w.writeU32(uint32(len(m.DataSection)))
		writeSection(out, wasm.SectionIDDataCount, w.Bytes())
	}
	if len(m.CodeSection) > 0 {
		w := newWriter()
		writeVec(w, m.CodeSection, encodeCodeEntry)
		writeSection(out, wasm.SectionIDCode, w.Bytes())
	}
	if len(m.DataSection) > 0 {
		w := newWriter()
		writeVec(w, m.DataSection, encodeDataSegment)
		writeSection(out, wasm.SectionIDData, w.Bytes())
	}

	if m.NameSection != nil {
		w := newWriter()
		w.writeString("name")
		w.writeBytes(EncodeNameSection(*m.NameSection))
		writeSection(out, wasm.SectionIDCustom, w.Bytes())
	}
	for _, key := range sortedSignatureKeys(m.Signatures) {
		w := newWriter()
		w.writeString(signatureSectionName(key))
		w.writeBytes(wasm.MetaToBytes(m.Signatures[key]))
		writeSection(out, wasm.SectionIDCustom, w.Bytes())
	}

	return out.Bytes()
}

func signatureSectionName(key wasm.SignatureKey) string {
	kind := "export"
	if key.Kind == wasm.SignatureKeyImport {
		kind = "import"
	}
	return fmt.Sprintf("%s%s.%s", wasm.SignatureSectionPrefix, kind, key.Name)
}

// sortedSignatureKeys orders signature sections deterministically so
// re-encoding the same module twice always produces byte-identical output.
func sortedSignatureKeys(m map[wasm.SignatureKey][]wasm.ValueTypeMeta) []wasm.SignatureKey {
	out := make([]wasm.SignatureKey, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out
}
