package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/voxa/internal/progression"
)

var profileCmd = &cobra.Command{
	Use:   "profile <user>",
	Short: "Show or update a user's coaching profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		st, profiles, err := openProfiles(cmd, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		var p progression.Profile
		if cmd.Flags().Changed("voice") || cmd.Flags().Changed("baseline-tone") {
			voice, _ := cmd.Flags().GetString("voice")
			tone, _ := cmd.Flags().GetString("baseline-tone")
			p, err = profiles.Update(cmd.Context(), args[0], progression.ProfileUpdate{
				PreferredVoice: voice,
				BaselineTone:   tone,
			})
		} else {
			p, err = profiles.Get(cmd.Context(), args[0])
		}
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "User:          %s\n", p.UserID)
		fmt.Fprintf(w, "Voice:         %s\n", p.PreferredVoice)
		fmt.Fprintf(w, "Baseline tone: %s\n", p.BaselineTone)
		if !p.UpdatedAt.IsZero() {
			fmt.Fprintf(w, "Updated:       %s\n", p.UpdatedAt.Local().Format(time.DateTime))
		}
		return nil
	},
}

func init() {
	profileCmd.Flags().String("voice", "", "Set the preferred TTS voice")
	profileCmd.Flags().String("baseline-tone", "", "Set the baseline tone")
}
