package main

import (
	"fmt"
	"net"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/weiihann/wasmbench/server"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the benchmark JSON API",
		Long: `Load the modules and serve GET /api/modules, GET /api/state and
POST /api/run until interrupted. When an assets directory is configured
its files are served at /.`,
		Args: cobra.NoArgs,
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

			srv := server.New(sess.orch, server.Options{
				Addr:      a.cfg.Listen,
				AssetsDir: a.cfg.AssetsDir,
				Logger:    a.logger,
			})

			red := color.New(color.FgRed).SprintFunc()

			return srv.ListenAndServe(ctx, func(addr net.Addr) {
				fmt.Fprintf(cmd.ErrOrStderr(), "Serving on -> %s\n", red(addr.String()))
			})
		},
	}

	// Bound to the listen and assets_dir config keys.
	flags := cmd.Flags()
	flags.String("listen", ":9090",
		"Listen address")
	flags.String("assets-dir", "",
		"Directory of static files served at /")

	return cmd
}
