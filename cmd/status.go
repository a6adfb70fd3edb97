package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/voxa/internal/progression"
)

var statusCmd = &cobra.Command{
	Use:   "status <user>",
	Short: "Show a user's session count and latest scores",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		st, ledger, err := openLedger(cmd, cfg, progression.Options{})
		if err != nil {
			return err
		}
		defer st.Close()

		status, err := ledger.GetStatus(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Sessions: %d\n", status.TotalSessions)
		if status.TotalSessions > 0 {
			s := status.LatestScores
			fmt.Fprintf(w, "Latest:   grammar %d  tone %d  fluency %d  xp %d\n", s.Grammar, s.Tone, s.Fluency, s.Experience)
		}
		return nil
	},
}
