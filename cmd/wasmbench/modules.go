package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newModulesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List loaded modules and their entry points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx := cmd.Context()

			sess, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := sess.Close(ctx); closeErr != nil && err == nil {
					err = closeErr
				}
			}()

			out := cmd.OutOrStdout()

			for _, info := range sess.orch.Modules() {
				fmt.Fprintf(out, "%s %s %s\n",
					ModuleStyle.Render(info.Name),
					SubtitleStyle.Render("("+string(info.Convention)+")"),
					strings.Join(info.EntryPoints, ", "),
				)
			}

			return nil
		},
	}
}
