// Package validate shells out to an external wasm validator after a weave
// completes, matching spec.md §6's "post-validates the output with an
// external wasm validator". The original in-process validated its own
// output with wasmparser::validate; this Go rendition is produced by a
// toolchain that may never itself link a wasm validator, so the check is
// delegated to the `wasm-tools validate` binary via os/exec instead,
// mirroring how cargo.rs already shells out to `cargo` rather than driving
// rustc in-process.
package validate

import (
	"bytes"
	"errors"
	"os/exec"

	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/werr"
)

// Validator runs an external validator binary against a wasm file.
type Validator struct {
	// Bin is the validator executable name or path. Defaults to
	// "wasm-tools" when zero-valued.
	Bin string
}

// Run invokes `<Bin> validate <path>` and returns a non-nil error
// describing the validator's stderr output if the module is invalid or
// the validator could not be run at all.
func (v Validator) Run(path string) error {
	bin := v.Bin
	if bin == "" {
		bin = "wasm-tools"
	}
	cmd := exec.Command(bin, "validate", path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return &werr.Validate{Err: errors.New(stderr.String())}
		}
		return &werr.Validate{Err: err}
	}
	return nil
}
