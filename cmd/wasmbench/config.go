package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfgPath != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), SubtitleStyle.Render("# loaded from "+a.cfgPath))
			}

			return a.cfg.WriteTOML(cmd.OutOrStdout())
		},
	})

	return cmd
}
