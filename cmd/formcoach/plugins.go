package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayusman/formcoach/internal/plugin"
)

func newPluginsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List event plugins found in the plugin directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := plugin.NewManager(g.cfg.Plugins.Dir, g.logger)
			if err := m.Discover(); err != nil {
				return fmt.Errorf("discover plugins: %w", err)
			}

			out := cmd.OutOrStdout()
			plugins := m.List()
			if len(plugins) == 0 {
				fmt.Fprintf(out, "No plugins in %s\n", m.PluginDir())
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tVERSION\tEVENTS\tDESCRIPTION")
			for _, p := range plugins {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Manifest.Name, p.Manifest.Version,
					strings.Join(p.Manifest.Events, ","), p.Manifest.Description)
			}
			return tw.Flush()
		},
	}
}
