package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ayusman/formcoach/internal/analyzer"
	"github.com/ayusman/formcoach/internal/store"
)

func newHistoryCmd(g *globals) *cobra.Command {
	var (
		exercise string
		since    time.Duration
		limit    int
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved training sessions",
		Example: `  # Last week's squat sessions
  formcoach history --exercise squat --since 168h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := store.ListOptions{Limit: limit}
			if exercise != "" {
				t, err := analyzer.ParseExerciseType(exercise)
				if err != nil {
					return err
				}
				opts.Exercise = t
			}
			if since > 0 {
				opts.Since = time.Now().Add(-since)
			}

			st, err := store.New(g.cfg.Database.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			records, err := st.Sessions().List(opts)
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}
			if len(records) == 0 {
				fmt.Fprintln(out, "No sessions yet.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tEXERCISE\tSETS\tREPS\tSCORE\tOUTCOME\tID")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%d\t%.0f\t%s\t%s\n",
					r.StartedAt.Local().Format("2006-01-02 15:04"), r.ExerciseType,
					r.Sets, r.TargetSets, r.TotalReps, r.AverageScore, r.Outcome, r.ID)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&exercise, "exercise", "e", "", "Only sessions of this exercise")
	cmd.Flags().DurationVar(&since, "since", 0, "Only sessions started within this long")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of sessions, 0 for all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")

	cmd.AddCommand(newHistoryShowCmd(g), newHistoryDeleteCmd(g))

	return cmd
}

func newHistoryShowCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show the sets and form issues of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid session id: %w", err)
			}

			st, err := store.New(g.cfg.Database.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			sum, err := st.Sessions().Get(id)
			if err != nil {
				return fmt.Errorf("get session %s: %w", id, err)
			}
			printSummary(cmd.OutOrStdout(), *sum)
			return nil
		},
	}
}

func newHistoryDeleteCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a saved session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid session id: %w", err)
			}

			st, err := store.New(g.cfg.Database.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Sessions().Delete(id); err != nil {
				return fmt.Errorf("delete session %s: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			return nil
		},
	}
}
