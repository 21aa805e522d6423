package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/weiihann/wasmbench/workload"
)

func newGenerateCmd(a *app) *cobra.Command {
	var (
		cars         int
		seed         int64
		distribution string
		output       string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a deterministic car document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			if seed == 0 {
				seed = time.Now().UnixNano()
			}

			cfg := workload.DefaultConfig(cars, seed)
			cfg.Distribution = distribution

			var w io.Writer = cmd.OutOrStdout()

			if output != "" {
				f, createErr := os.Create(output)
				if createErr != nil {
					return fmt.Errorf("create output: %w", createErr)
				}
				defer func() {
					if closeErr := f.Close(); closeErr != nil && err == nil {
						err = fmt.Errorf("close output: %w", closeErr)
					}
				}()

				w = f
			}

			summary, err := workload.NewGenerator(cfg).Generate(w)
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}

			a.logger.InfoContext(cmd.Context(), "document generated",
				slog.Int("cars", summary.Records),
				slog.Int64("seed", seed),
				slog.String("size", units.HumanSize(float64(summary.Bytes))),
				slog.Int("missing_years", summary.MissingYears),
				slog.Int("quoted_displacements", summary.QuotedDisplacements),
			)

			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&cars, "cars", 1000,
		"Number of car records")
	flags.Int64Var(&seed, "seed", 0,
		"Random seed (0 = use current time)")
	flags.StringVar(&distribution, "distribution", "power-law",
		"Horsepower distribution: power-law, uniform, exponential")
	flags.StringVarP(&output, "output", "o", "",
		"Write to a file instead of stdout")

	return cmd
}
