package main

import (
	"github.com/spf13/cobra"

	"github.com/ayusman/formcoach/internal/app"
)

func newServeCmd(g *globals) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session history API without training",
		Example: `  # Browse history on the default address
  formcoach serve

  # Listen on all interfaces
  formcoach serve --addr :8420`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				g.cfg.Server.Addr = addr
			}

			a, err := app.New(g.cfg, app.WithLogger(g.logger), app.WithStaticDir(findWebDir()))
			if err != nil {
				return err
			}
			defer a.Close()

			return a.Serve(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr from config)")

	return cmd
}
