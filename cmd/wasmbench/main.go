// Package main provides the CLI entry point for wasmbench, a harness that
// times one call into parser modules compiled from different languages.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/weiihann/wasmbench/config"
)

// Version is set via -ldflags.
var Version = "dev"

func main() {
	root := newRootCmd(&app{})

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(Version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

// app carries state shared by every subcommand once the root command has
// loaded the configuration.
type app struct {
	cfgFile    string
	cfg        *config.Config
	cfgPath    string
	logger     *slog.Logger
	stdinIsTTY func() bool
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "wasmbench",
		Short: "Time parser modules compiled to WebAssembly",
		Long: TitleStyle.Render("wasmbench") + SubtitleStyle.Render(" - cross-language WebAssembly parser benchmarks") + `

wasmbench loads parser modules compiled from different languages into one
process and measures the wall-clock latency of a single call with the
same input. Modules are WebAssembly binaries using the linear-memory or
WASI calling convention, plus an in-process Go reference parser.

` + SubtitleStyle.Render("Examples:") + `
  wasmbench build                       Build the bundled parser modules
  wasmbench modules                     List loaded modules
  wasmbench run go-parser --file cars.json
  wasmbench compare --cars 5000         Compare every module on generated data
  wasmbench serve                       Serve the JSON API on :9090`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "",
		"Config file (default: ./wasmbench.yaml or $XDG_CONFIG_HOME/wasmbench/wasmbench.yaml)")
	flags.String("log-level", "info",
		"Log level: debug, info, warn, error")
	flags.String("modules-dir", "modules",
		"Directory holding the module sources and binaries")
	flags.String("cache-dir", "",
		"Directory for the wazero compilation cache (disabled when empty)")

	root.AddCommand(
		newRunCmd(a),
		newCompareCmd(a),
		newModulesCmd(a),
		newBuildCmd(a),
		newGenerateCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
	)

	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, path, err := config.Load(config.LoadOptions{
		ConfigFile: a.cfgFile,
		Flags:      cmd.Flags(),
	})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	a.cfg = cfg
	a.cfgPath = path

	handler := log.NewWithOptions(os.Stderr, log.Options{
		Level:           cfg.Level(),
		ReportTimestamp: true,
	})
	a.logger = slog.New(handler)

	if path != "" {
		a.logger.Debug("config loaded", slog.String("path", path))
	}

	return nil
}
