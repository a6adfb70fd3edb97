package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/voxa/internal/progression"
)

var progressCmd = &cobra.Command{
	Use:   "progress <user>",
	Short: "Show a user's level, experience and streak",
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

		p, err := ledger.GetProgression(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		toNext := int64(p.Level)*progression.ExperiencePerLevel - p.TotalExperience
		fmt.Fprintf(w, "Level:      %d (%d xp to level %d)\n", p.Level, toNext, p.Level+1)
		fmt.Fprintf(w, "Experience: %d\n", p.TotalExperience)
		fmt.Fprintf(w, "Sessions:   %d\n", p.SessionCount)
		fmt.Fprintf(w, "Streak:     %d day(s), longest %d, next milestone %d\n", p.Streak, p.LongestStreak, p.NextStreakMilestone)
		if !p.LastActiveAt.IsZero() {
			fmt.Fprintf(w, "Last active: %s\n", p.LastActiveAt.Local().Format(time.DateTime))
		}
		return nil
	},
}
