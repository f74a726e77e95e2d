package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayusman/formcoach/internal/analyzer"
)

func newExercisesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exercises",
		Short: "List supported exercises and how to set up the camera",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "EXERCISE\tNAME\tCAMERA\tWATCHES")
			for _, info := range analyzer.All() {
				fmt.Fprintf(tw, "%s\t%s\t%s view, %s\t%s\n",
					info.Type, info.DisplayName, info.View, info.Orientation,
					strings.Join(info.KeyBodyParts, ", "))
			}
			return tw.Flush()
		},
	}
}
