// Command wazweave builds a guest Rust project and weaves its compiled
// wasm module into one with return-stub and externref boundaries resolved
// (spec.md §6 "Command line interface").
//
// Ground: original_source's args.rs (RootArgs/BuildArgs/WeaveArgs shape,
// reimagined as cobra subcommands since that's how this toolchain's
// teacher builds its CLIs) and main.rs's top-level build-then-weave flow.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/cargobuild"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/validate"
	"github.com/ColinTimBarndt/resonite-wasm-experiments/internal/weave"
)

var log = logrus.New()

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "wazweave",
		Short:         "Builds and weaves Resonite WebAssembly mods",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newBuildCmd(), newWeaveCmd())
	return root
}

func newBuildCmd() *cobra.Command {
	var (
		project       string
		features      []string
		outputPath    string
		validateBin   string
		skipExternref bool
	)

	cmd := &cobra.Command{
		Use:   "build [-- cargo-args...]",
		Short: "Builds a Rust project and weaves its cdylib output",
		RunE: func(cmd *cobra.Command, args []string) error {
			artifact, err := cargobuild.Build(cargobuild.BuildArgs{
				Project:   project,
				Features:  features,
				CargoArgs: args,
			})
			if err != nil {
				return fmt.Errorf("cargo build: %w", err)
			}
			if artifact == "" {
				return fmt.Errorf("cargo build did not produce a cdylib wasm artifact")
			}
			log.WithField("artifact", artifact).Info("build finished")
			return weaveAndWrite(artifact, outputPath, validateBin, skipExternref)
		},
	}
	cmd.Flags().StringVarP(&project, "project", "p", "", "cargo package to build")
	cmd.Flags().StringSliceVarP(&features, "feature", "f", nil, "cargo feature to enable (repeatable)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "woven output path")
	cmd.Flags().StringVar(&validateBin, "validator", "wasm-tools", "external validator binary")
	cmd.Flags().BoolVar(&skipExternref, "skip-externref", false, "skip the externref boundary transform")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newWeaveCmd() *cobra.Command {
	var (
		outputPath    string
		validateBin   string
		skipExternref bool
	)

	cmd := &cobra.Command{
		Use:   "weave <input.wasm>",
		Short: "Weaves the specified WebAssembly file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return weaveAndWrite(args[0], outputPath, validateBin, skipExternref)
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "woven output path")
	cmd.Flags().StringVar(&validateBin, "validator", "wasm-tools", "external validator binary")
	cmd.Flags().BoolVar(&skipExternref, "skip-externref", false, "skip the externref boundary transform")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func weaveAndWrite(inputPath, outputPath, validatorBin string, skipExternref bool) error {
	weave.SetWarningSink(func(msg string) { log.Warn(msg) })

	src, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inputPath, err)
	}

	out, err := weave.Weave(src, weave.Options{SkipExternref: skipExternref})
	if err != nil {
		return fmt.Errorf("weaving %s: %w", inputPath, err)
	}

	if err := os.WriteFile(outputPath, out, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outputPath, err)
	}
	log.WithField("output", outputPath).Info("wove module")

	v := validate.Validator{Bin: validatorBin}
	if err := v.Run(outputPath); err != nil {
		return fmt.Errorf("validating woven module: %w", err)
	}
	log.Info("woven module validated")
	return nil
}
