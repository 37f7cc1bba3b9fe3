package wasmbinary

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/wasm"
)

// Decode parses a core WebAssembly binary module. It returns the module's
// IR, a list of human-readable warnings for malformed custom sections that
// were skipped rather than treated as fatal (spec.md §4.1's "warn and skip"
// rule for `__signature.*` sections), and an error for anything that makes
// the rest of the module unreadable.
func Decode(data []byte) (*wasm.Module, []string, error) {
	r := newReader(data)

	if len(data) < 8 || !bytes.Equal(data[:4], magic) {
		return nil, nil, fmt.Errorf("missing wasm magic bytes")
	}
	if _, err := r.readBytes(4); err != nil {
		return nil, nil, err
	}
	ver, err := r.readBytes(4)
	if err != nil {
		return nil, nil, err
	}
	if !bytes.Equal(ver, version) {
		return nil, nil, fmt.Errorf("unsupported binary version %v", ver)
	}

	m := &wasm.Module{Signatures: map[wasm.SignatureKey][]wasm.ValueTypeMeta{}}
	var warnings []string
	// sectionRank orders non-custom sections the way the binary format lays
	// them out, which is not numeric id order: the tag section sits between
	// memory and global, and the data count section between element and code.
	sectionRank := func(id wasm.SectionID) int {
		switch id {
		case wasm.SectionIDTag:
			return 2*int(wasm.SectionIDMemory) + 1
		case wasm.SectionIDDataCount:
			return 2*int(wasm.SectionIDElement) + 1
		}
		return 2 * int(id)
	}
	lastRank := 0

	for !r.atEOF() {
		hdr, err := readSectionHeader(r)
		if err != nil {
			return nil, warnings, err
		}
		payload, err := r.readBytes(int(hdr.size))
		if err != nil {
			return nil, warnings, fmt.Errorf("reading %s section payload: %w", wasm.SectionIDName(hdr.id), err)
		}
		sr := newReader(payload)

		if hdr.id == wasm.SectionIDCustom {
			name, err := sr.readString()
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("skipping unreadable custom section: %v", err))
				continue
			}
			if err := decodeCustomSection(m, name, payload[sr.pos:]); err != nil {
				warnings = append(warnings, fmt.Sprintf("skipping custom section %q: %v", name, err))
			}
			continue
		}

		if sectionRank(hdr.id) < lastRank {
			return nil, warnings, fmt.Errorf("%s section out of order", wasm.SectionIDName(hdr.id))
		}
		lastRank = sectionRank(hdr.id)

		switch hdr.id {
		case wasm.SectionIDType:
			groups, err := readTypeSection(sr)
			if err != nil {
				return nil, warnings, fmt.Errorf("reading type section: %w", err)
			}
			m.RecGroups = groups
		case wasm.SectionIDImport:
			m.ImportSection, err = readImportSection(sr)
		case wasm.SectionIDFunction:
			m.FunctionSection, err = readFunctionSection(sr)
		case wasm.SectionIDTable:
			m.TableSection, err = readTableSection(sr)
		case wasm.SectionIDMemory:
			m.MemorySection, err = readMemorySection(sr)
		case wasm.SectionIDGlobal:
			m.GlobalSection, err = readGlobalSection(sr)
		case wasm.SectionIDExport:
			m.ExportSection, err = readExportSection(sr)
		case wasm.SectionIDStart:
			var idx uint32
			idx, err = sr.readU32()
			if err == nil {
				m.StartSection = &idx
			}
		case wasm.SectionIDElement:
			m.ElementSection, err = readElementSection(sr)
		case wasm.SectionIDCode:
			m.CodeSection, err = readCodeSection(sr)
		case wasm.SectionIDData:
			m.DataSection, err = readDataSection(sr)
		case wasm.SectionIDDataCount:
			m.HasDataCount = true
		case wasm.SectionIDTag:
			m.TagSection, err = readTagSection(sr)
		default:
			return nil, warnings, fmt.Errorf("unknown section id %d", hdr.id)
		}
		if err != nil {
			return nil, warnings, fmt.Errorf("reading %s section: %w", wasm.SectionIDName(hdr.id), err)
		}
	}

	if len(m.FunctionSection) != len(m.CodeSection) {
		return nil, warnings, fmt.Errorf("function section has %d entries but code section has %d", len(m.FunctionSection), len(m.CodeSection))
	}

	return m, warnings, nil
}

func readTypeSection(r *reader) ([]wasm.RecGroup, error) {
	count, err := r.readU32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.RecGroup, count)
	for i := range out {
		out[i], err = readRecGroup(r)
		if err != nil {
			return nil, fmt.Errorf("reading rec group %d: %w", i, err)
		}
	}
	return out, nil
}

func readFunctionSection(r *reader) ([]uint32, error) {
	count, err := r.readU32()
	if err != nil {
		return nil, err
	}
	out := make([]uint32, count)
	for i := range out {
		out[i], err = r.readU32()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// decodeCustomSection dispatches a custom section by name: "name" for debug
// names, any "__signature.<kind>.<name>" for the source toolchain's
// annotation sections (spec.md §4.1), everything else is ignored (kept out
// of the IR, re-emitted verbatim only if a future pass-through mode needs
// it, which this weaver does not implement since it always rewrites).
func decodeCustomSection(m *wasm.Module, name string, payload []byte) error {
	switch {
	case name == "name":
		ns := DecodeNameSection(payload)
		m.NameSection = &ns
		return nil
	case strings.HasPrefix(name, wasm.SignatureSectionPrefix):
		key, err := parseSignatureSectionName(name)
		if err != nil {
			return err
		}
		tags, err := decodeSignatureTags(payload)
		if err != nil {
			return err
		}
		m.Signatures[key] = tags
		return nil
	default:
		return nil
	}
}

// parseSignatureSectionName splits "__signature.export.foo" into its kind
// and name parts. The name itself may contain dots, so only the first two
// segments are significant.
func parseSignatureSectionName(name string) (wasm.SignatureKey, error) {
	rest := strings.TrimPrefix(name, wasm.SignatureSectionPrefix)
	parts := strings.SplitN(rest, ".", 2)
	if len(parts) != 2 {
		return wasm.SignatureKey{}, fmt.Errorf("malformed signature section name %q", name)
	}
	var kind wasm.SignatureKeyKind
	switch parts[0] {
	case "export":
		kind = wasm.SignatureKeyExport
	case "import":
		kind = wasm.SignatureKeyImport
	default:
		return wasm.SignatureKey{}, fmt.Errorf("unknown signature section kind %q", parts[0])
	}
	return wasm.SignatureKey{Kind: kind, Name: parts[1]}, nil
}

func decodeSignatureTags(payload []byte) ([]wasm.ValueTypeMeta, error) {
	if len(payload)%4 != 0 {
		return nil, fmt.Errorf("signature payload length %d is not a multiple of 4", len(payload))
	}
	return wasm.MetaFromBytes(payload), nil
}
