// Package cargobuild invokes `cargo build` against a guest Rust project
// targeting wasm32-unknown-unknown and recovers the produced cdylib's
// .wasm path from cargo's NDJSON artifact stream.
//
// Ground: original_source's cargo.rs (Command construction, the
// CargoMessage/CompilerArtifact/Target/TargetKind shapes, and the
// "cdylib artifact with a .wasm filename" selection rule). encoding/json
// stands in for serde_json here: decodeMessage below interprets the same
// "reason" tag discriminant serde_json::from_str(&line) would, and
// json.Unmarshal into an untyped payload plays the role of #[serde(other)]
// for message kinds this tool doesn't care about.
package cargobuild

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// BuildArgs mirrors the original's BuildArgs: optional package selection,
// extra features, and a pass-through tail of raw cargo arguments.
type BuildArgs struct {
	Project   string
	Features  []string
	CargoArgs []string
}

// Build runs `cargo build --lib --target wasm32-unknown-unknown --release
// --message-format json-render-diagnostics` (plus args' overrides) and
// returns the path to the produced cdylib .wasm artifact. An empty path with
// a nil error means the build finished successfully but produced no
// matching artifact; a non-nil error means cargo itself failed to run or
// its stdout could not be parsed.
func Build(args BuildArgs) (string, error) {
	cmdArgs := []string{"build"}
	if args.Project != "" {
		cmdArgs = append(cmdArgs, "--package", args.Project)
	}
	if len(args.Features) > 0 {
		cmdArgs = append(cmdArgs, "--features", strings.Join(args.Features, ","))
	}
	cmdArgs = append(cmdArgs,
		"--lib",
		"--target", "wasm32-unknown-unknown",
		"--release",
		"--message-format", "json-render-diagnostics",
	)
	cmdArgs = append(cmdArgs, args.CargoArgs...)

	cmd := exec.Command("cargo", cmdArgs...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = os.Stderr // inherited from the caller's process, same as the original's Stdio::inherit()

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return "", fmt.Errorf("running cargo: %w", err)
		}
	}

	return ParseArtifactStream(stdout.Bytes())
}

// message is the subset of cargo's artifact-stream JSON shape this tool
// cares about; every field it doesn't recognize is left for Go's decoder
// to silently ignore, matching the original's #[serde(other)] catch-all.
type message struct {
	Reason    string   `json:"reason"`
	Success   *bool    `json:"success"`
	Target    target   `json:"target"`
	Filenames []string `json:"filenames"`
}

type target struct {
	Kind []string `json:"kind"`
}

// ParseArtifactStream walks cargo's NDJSON output line by line, same as
// the original's output.stdout.lines(), and returns the first cdylib
// artifact's .wasm filename seen before a successful "build-finished"
// message (or "", nil if the build reported failure).
func ParseArtifactStream(stdout []byte) (string, error) {
	var wasmPath string
	scanner := bufio.NewScanner(bytes.NewReader(stdout))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var msg message
		if err := json.Unmarshal(line, &msg); err != nil {
			return "", fmt.Errorf("parsing cargo artifact stream: %w", err)
		}
		switch msg.Reason {
		case "compiler-artifact":
			if !hasCdylibKind(msg.Target.Kind) {
				continue
			}
			if f := findWasmFilename(msg.Filenames); f != "" && wasmPath == "" {
				wasmPath = f
			}
		case "build-finished":
			if msg.Success == nil || !*msg.Success {
				return "", nil
			}
			return wasmPath, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading cargo artifact stream: %w", err)
	}
	return wasmPath, nil
}

func hasCdylibKind(kinds []string) bool {
	for _, k := range kinds {
		if k == "cdylib" {
			return true
		}
	}
	return false
}

func findWasmFilename(filenames []string) string {
	for _, f := range filenames {
		if filepath.Ext(f) == ".wasm" {
			return f
		}
	}
	return ""
}
