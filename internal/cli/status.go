package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"packforge/internal/packfs"
	"packforge/internal/state"
	"packforge/internal/workflow"
)

func newStatusCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status <pack>",
		Short: "Show a pack's workflow progress",
		Long:  `Print the persisted workflow state for a pack: completed rounds, score trend, and the completion verdict if the workflow has finished.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			packName := args[0]
			packDir := packfs.PackDir(packName)
			if _, err := os.Stat(packDir); err != nil {
				app.Printer.Errorf("pack directory not found: %s", packDir)
				return NewExitError(1)
			}

			st, err := state.NewStore(packDir).Load()
			if err != nil {
				app.Printer.Errorf("failed to read workflow state: %v", err)
				return NewExitError(1)
			}
			if st == nil {
				app.Printer.Infof("no workflow state for %s, run \"packforge run %s\" to start", packName, packName)
				return nil
			}

			app.Printer.Banner("workflow status: "+packName,
				fmt.Sprintf("started: %s", st.StartedAt.Format("2006-01-02 15:04 MST")),
				fmt.Sprintf("rounds: %d/%d", len(st.Rounds), st.MaxRounds),
				fmt.Sprintf("threshold: %.1f", st.QualityThreshold))

			for _, round := range st.Rounds {
				if round.Evaluation == nil {
					app.Printer.Infof("round %d: no evaluation", round.RoundNum)
					continue
				}
				app.Printer.Infof("round %d: %.1f/10, %d critical issue(s), %d delta(s)",
					round.RoundNum, round.Evaluation.OverallScore,
					len(round.Evaluation.CriticalIssues), len(round.Evaluation.Deltas))
			}
			app.Printer.Trend(st.ScoreTrend())

			if st.Completed {
				app.Printer.Successf("completed: %s", st.CompletionReason)
			} else {
				outcome := workflow.EvaluateStopping(st)
				app.Printer.Infof("in progress, next round %d (%s)", st.CurrentRound(), outcome.Reason)
			}
			return nil
		},
	}
}
