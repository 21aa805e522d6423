package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/weiihann/wasmbench/bench"
	"github.com/weiihann/wasmbench/report"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		input      inputFlags
		entryPoint string
		outputJSON bool
		quiet      bool
	)

	cmd := &cobra.Command{
		Use:   "run <module>",
		Short: "Time one call into a module",
		Long: `Call an entry point of a loaded module once with the input document
and report the elapsed wall-clock time. The module output is written to
stdout unless --quiet is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := input.read(cmd, a.stdinIsTTY)
			if err != nil {
				return err
			}

			return a.runOnce(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), bench.Request{
				Module:     args[0],
				EntryPoint: entryPoint,
				Input:      text,
			}, outputJSON, quiet)
		},
	}

	input.register(cmd)

	flags := cmd.Flags()
	flags.StringVarP(&entryPoint, "entry", "e", bench.DefaultEntryPoint,
		"Entry point to call")
	flags.BoolVar(&outputJSON, "json", false,
		"Print the result as JSON")
	flags.BoolVarP(&quiet, "quiet", "q", false,
		"Do not print the module output")

	return cmd
}

func (a *app) runOnce(ctx context.Context, stdout, stderr io.Writer, req bench.Request, outputJSON, quiet bool) (err error) {
	sess, err := a.openSession(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := sess.Close(ctx); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	res, err := sess.orch.Run(ctx, req)
	if err != nil {
		fmt.Fprintln(stderr, ErrorStyle.Render("failed: ")+err.Error())
		return err
	}

	if outputJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(res)
	}

	if !quiet {
		fmt.Fprintln(stdout, res.Output)
	}

	fmt.Fprintf(stderr, "%s %s.%s in %s\n",
		SuccessStyle.Render("completed"),
		ModuleStyle.Render(res.Module),
		ModuleStyle.Render(res.EntryPoint),
		TitleStyle.Render(report.FormatMs(res.ElapsedMs)),
	)

	return nil
}
