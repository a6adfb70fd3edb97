package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/voxa/internal/evaluation"
	"github.com/abhisek/voxa/internal/progression"
	"github.com/abhisek/voxa/internal/signals"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [transcript]",
	Short: "Evaluate one practice session and record it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		userID, _ := cmd.Flags().GetString("user")
		tone, _ := cmd.Flags().GetString("tone")
		issues, _ := cmd.Flags().GetStringArray("issue")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		asJSON, _ := cmd.Flags().GetBool("json")

		req := evaluation.Request{
			UserID:        userID,
			Transcript:    strings.Join(args, " "),
			GrammarIssues: issues,
			Tone:          tone,
		}
		if cmd.Flags().Changed("empathy") || cmd.Flags().Changed("pacing") || cmd.Flags().Changed("clarity") {
			empathy, _ := cmd.Flags().GetFloat64("empathy")
			pacing, _ := cmd.Flags().GetString("pacing")
			clarity, _ := cmd.Flags().GetString("clarity")
			req.Signals = &signals.EmotionalSignals{
				Empathy: empathy,
				Pacing:  signals.Pacing(pacing),
				Clarity: signals.Clarity(clarity),
			}
		}

		var res evaluation.Result
		if dryRun {
			if err := evaluation.ValidatePreview(req); err != nil {
				return err
			}
			res = evaluation.NewService(nil, evaluation.Options{EstimateSignals: cfg.Evaluation.EstimateSignals}).Preview(req)
		} else {
			st, ledger, err := openLedger(cmd, cfg, progression.Options{})
			if err != nil {
				return err
			}
			defer st.Close()

			svc := evaluation.NewService(ledger, evaluation.Options{EstimateSignals: cfg.Evaluation.EstimateSignals})
			res, err = svc.Evaluate(cmd.Context(), req)
			if err != nil {
				return err
			}
		}

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		printResult(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	f := evaluateCmd.Flags()
	f.String("user", "local", "User ID the session belongs to")
	f.String("tone", "neutral", "Tone label reported by the emotion analyzer")
	f.StringArray("issue", nil, "Grammar issue reported by the grammar checker (repeatable)")
	f.Float64("empathy", signals.DefaultEmpathy, "Empathy signal in [0,1]")
	f.String("pacing", string(signals.DefaultPacing), "Pacing signal: slow, moderate or fast")
	f.String("clarity", string(signals.DefaultClarity), "Clarity signal: low, medium or high")
	f.Bool("dry-run", false, "Score and coach without recording the session")
	f.Bool("json", false, "Print the result as JSON")
}

func printResult(w io.Writer, res evaluation.Result) {
	fmt.Fprintf(w, "Difficulty: %s\n", res.Difficulty)
	fmt.Fprintf(w, "Scores:     grammar %d  tone %d  fluency %d  xp %d\n",
		res.Scores.Grammar, res.Scores.Tone, res.Scores.Fluency, res.Scores.Experience)
	fmt.Fprintf(w, "Signals:    empathy %.2f  pacing %s  clarity %s",
		res.Signals.Empathy, res.Signals.Pacing, res.Signals.Clarity)
	if res.SignalsEstimated {
		fmt.Fprint(w, " (estimated)")
	}
	fmt.Fprintln(w)

	if res.Progression != nil {
		if res.Duplicate {
			fmt.Fprintln(w, "Duplicate:  this session was already recorded; no experience added")
		}
		p := res.Progression
		fmt.Fprintf(w, "Progress:   level %d  total xp %d  streak %d\n", p.Level, p.TotalExperience, p.Streak)
	}

	fmt.Fprintln(w)
	fmt.Fprint(w, res.Report.Message)
	fmt.Fprintln(w)
}
