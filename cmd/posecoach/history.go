package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	historyLimit  int
	historyDelete bool
)

var historyCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "List recorded sessions, or the verdicts of one session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return listSessions(cmd)
		}
		if historyDelete {
			if err := history.Sessions().Delete(args[0]); err != nil {
				return fmt.Errorf("delete session %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
			return nil
		}
		return listEvaluations(cmd, args[0])
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of sessions to list (0 for all)")
	historyCmd.Flags().BoolVar(&historyDelete, "delete", false, "delete the given session and its verdicts")
	rootCmd.AddCommand(historyCmd)
}

func listSessions(cmd *cobra.Command) error {
	sessions, err := history.Sessions().List(historyLimit)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tSOURCE\tREFERENCE\tFRAMES\tGOOD")
	fmt.Fprintln(w, "--\t-------\t------\t---------\t------\t----")

	for _, s := range sessions {
		sum, err := history.Evaluations().Summary(s.ID)
		if err != nil {
			return fmt.Errorf("summarize session %s: %w", s.ID, err)
		}
		kind := s.ReferenceKind
		if kind == "" {
			kind = "none"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.0f%%\n",
			s.ID, s.StartedAt.Local().Format("2006-01-02 15:04"), s.Source, kind,
			sum.Total, 100*sum.GoodRatio())
	}
	return w.Flush()
}

func listEvaluations(cmd *cobra.Command, id string) error {
	if _, err := history.Sessions().GetByID(id); err != nil {
		return fmt.Errorf("session %s: %w", id, err)
	}
	evals, err := history.Evaluations().ListBySession(id)
	if err != nil {
		return fmt.Errorf("list verdicts: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FRAME\tTIME\tREF\tCONDITION\tFEEDBACK\tREASON\tAVG\tCONFIDENCE")
	for _, e := range evals {
		avg, conf := "-", "-"
		if e.AvgDistance != nil {
			avg = fmt.Sprintf("%.3f", *e.AvgDistance)
		}
		if e.Confidence != nil {
			conf = fmt.Sprintf("%.2f", *e.Confidence)
		}
		feedback := e.Feedback
		if e.Advised {
			feedback += "*"
		}
		fmt.Fprintf(w, "%d\t%.2fs\t%d\t%s\t%s\t%s\t%s\t%s\n",
			e.Frame, e.Elapsed.Seconds(), e.ReferenceIndex, e.Condition, feedback, e.Reason, avg, conf)
	}
	return w.Flush()
}
