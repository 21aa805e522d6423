package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/weiihann/wasmbench/harness"
)

func newBuildCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "build [source...]",
		Short: "Compile bundled module sources to WebAssembly",
		Long: `Compile module sources under the modules directory. Go sources are
built as wasip1 reactors (GOOS=wasip1 GOARCH=wasm -buildmode=c-shared),
Rust sources with cargo for the wasm32-unknown-unknown target. Without
arguments every bundled source is built.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			modulesDir, err := filepath.Abs(a.cfg.ModulesDir)
			if err != nil {
				return fmt.Errorf("resolve modules dir: %w", err)
			}

			sources := args
			if len(sources) == 0 {
				sources = harness.KnownModules()
			}

			for _, source := range sources {
				binPath, err := harness.Build(ctx, a.logger, modulesDir, source)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n",
					SuccessStyle.Render("built"), binPath)
			}

			return nil
		},
	}
}
