package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/weiihann/wasmbench/bench"
	"github.com/weiihann/wasmbench/report"
)

func newCompareCmd(a *app) *cobra.Command {
	var (
		input      inputFlags
		entryPoint string
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "compare [module...]",
		Short: "Time the same input across several modules",
		Long: `Call the entry point of each module once with the same input and
print a comparison table. Without arguments every loaded module is
compared. Modules that fail are reported and skipped.`,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()

			text, err := input.read(cmd, a.stdinIsTTY)
			if err != nil {
				return err
			}

			sess, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := sess.Close(ctx); closeErr != nil && err == nil {
					err = closeErr
				}
			}()

			modules := args
			if len(modules) == 0 {
				modules = sess.registry.Names()
			}

			a.logger.InfoContext(ctx, "comparing modules",
				slog.Any("modules", modules),
				slog.Int("input_bytes", len(text)),
			)

			results, runErr := bench.Compare(ctx, sess.orch, modules, entryPoint, text)
			if len(results) == 0 {
				return runErr
			}
			if runErr != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("some modules failed: ")+runErr.Error())
			}

			out := cmd.OutOrStdout()

			if outputJSON {
				return report.GenerateJSON(out, results)
			}

			if err := writeReport(out, results); err != nil {
				return err
			}

			printFastest(cmd.ErrOrStderr(), results)

			return runErr
		},
	}

	input.register(cmd)

	flags := cmd.Flags()
	flags.StringVarP(&entryPoint, "entry", "e", bench.DefaultEntryPoint,
		"Entry point to call")
	flags.BoolVar(&outputJSON, "json", false,
		"Output results as JSON instead of table")

	return cmd
}

// writeReport renders the markdown report through glamour on a terminal
// and writes it raw otherwise.
func writeReport(w io.Writer, results []bench.Result) error {
	var md bytes.Buffer
	if err := report.Generate(&md, results); err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	if !stdoutIsTTY(w) {
		_, err := w.Write(md.Bytes())
		return err
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(terminalWidth(w)),
	)
	if err != nil {
		return fmt.Errorf("create markdown renderer: %w", err)
	}

	rendered, err := renderer.Render(md.String())
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	_, err = io.WriteString(w, rendered)

	return err
}

func printFastest(w io.Writer, results []bench.Result) {
	fastest := results[0]
	for _, r := range results[1:] {
		if r.ElapsedMs < fastest.ElapsedMs {
			fastest = r
		}
	}

	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	fmt.Fprintf(w, "fastest: %s (%s)\n", green(fastest.Module), report.FormatMs(fastest.ElapsedMs))
}
