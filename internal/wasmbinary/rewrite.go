package wasmbinary

// RewriteBody walks body (a function's post-locals instruction stream,
// terminal `end` included) instruction by instruction, calling rewrite for
// each one. If rewrite reports a change, its returned Instruction is
// encoded in place of the original; otherwise the original is re-encoded
// unchanged from its decoded fields. This is the shared primitive the
// return-stub and externref transforms both build their body rewrites on.
func RewriteBody(body []byte, rewrite func(Instruction) (Instruction, bool)) ([]byte, error) {
	r := newReader(body)
	w := newWriter()
	for !r.atEOF() {
		ins, err := decodeInstruction(r)
		if err != nil {
			return nil, err
		}
		if replacement, changed := rewrite(ins); changed {
			encodeInstruction(w, replacement)
		} else {
			encodeInstruction(w, ins)
		}
	}
	return w.Bytes(), nil
}

// RewriteBodyErr is RewriteBody for rewrite functions that can themselves
// fail (e.g. an index remap missing an entry), such as reencode.Base.
func RewriteBodyErr(body []byte, rewrite func(Instruction) (Instruction, error)) ([]byte, error) {
	r := newReader(body)
	w := newWriter()
	for !r.atEOF() {
		ins, err := decodeInstruction(r)
		if err != nil {
			return nil, err
		}
		replacement, err := rewrite(ins)
		if err != nil {
			return nil, err
		}
		encodeInstruction(w, replacement)
	}
	return w.Bytes(), nil
}

// DecodeInstructions parses every instruction in body without rewriting,
// for callers that only need to inspect a body (e.g. checking whether it
// consists solely of a tail call to a known function index).
func DecodeInstructions(body []byte) ([]Instruction, error) {
	r := newReader(body)
	var out []Instruction
	for !r.atEOF() {
		ins, err := decodeInstruction(r)
		if err != nil {
			return nil, err
		}
		out = append(out, ins)
	}
	return out, nil
}
