package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/voxa/internal/progression"
)

var historyCmd = &cobra.Command{
	Use:   "history <user>",
	Short: "List a user's sessions, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		since, _ := cmd.Flags().GetDuration("since")
		if limit < 0 {
			return fmt.Errorf("--limit must not be negative")
		}
		opts := progression.HistoryOpts{Limit: limit}
		if since > 0 {
			opts.From = time.Now().Add(-since)
		}

		st, ledger, err := openLedger(cmd, cfg, progression.Options{})
		if err != nil {
			return err
		}
		defer st.Close()

		entries, err := ledger.GetHistoryPage(cmd.Context(), args[0], opts)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No sessions recorded.")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "WHEN\tDIFFICULTY\tTONE\tGRAMMAR\tTONE\tFLUENCY\tXP\tTRANSCRIPT")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
				e.Timestamp.Local().Format(time.DateTime), e.Difficulty, e.Tone,
				e.Scores.Grammar, e.Scores.Tone, e.Scores.Fluency, e.Experience,
				truncate(e.Transcript, 48))
		}
		return tw.Flush()
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Maximum sessions to show (0 = all)")
	historyCmd.Flags().Duration("since", 0, "Only show sessions newer than this, e.g. 72h (0 = all)")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
