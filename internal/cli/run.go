package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"packforge/internal/agents"
	"packforge/internal/etsy"
	"packforge/internal/llm"
	"packforge/internal/workflow"
)

func newRunCommand(app *App) *cobra.Command {
	var maxRounds int
	var threshold float64
	var seed int64
	var dryRun bool
	var upload bool

	cmd := &cobra.Command{
		Use:   "run <pack>",
		Short: "Run the multi-round workflow for a pack",
		Long: `Run the full workflow for a pack: generate variants, evaluate them
against the quality rubric, refine prompts and brand tokens from the
critique, and repeat until the pack passes, is blocked, or the round
budget runs out. An interrupted workflow resumes from its saved state.

With --upload the finished pack is published as a marketplace listing;
--dry-run uses placeholder images and mock evaluations and skips the
finishing stages.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			packName := args[0]

			driver := app.newDriver(dryRun, seed)
			st, err := driver.Run(cmd.Context(), packName, workflow.RunOptions{
				MaxRounds:  maxRounds,
				Threshold:  threshold,
				Upload:     upload,
				SkipFinish: dryRun,
			})
			if err != nil {
				app.Printer.Errorf("workflow failed: %v", err)
				return NewExitError(exitCodeForRunError(err))
			}

			if outcome := workflow.EvaluateStopping(st); outcome.Decision == workflow.DecisionBlocked {
				return NewExitError(1)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxRounds, "max-rounds", app.Config.Workflow.MaxRounds, "maximum improvement rounds")
	cmd.Flags().Float64Var(&threshold, "threshold", app.Config.Workflow.QualityThreshold, "overall score required to pass")
	cmd.Flags().Int64Var(&seed, "seed", 0, "generation seed for reproducible output (0 = random)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "placeholder images and mock evaluations, no finishing")
	cmd.Flags().BoolVar(&upload, "upload", false, "publish the finished pack as a marketplace listing")
	return cmd
}

// newDriver assembles the workflow driver with live or dry-run collaborators.
func (app *App) newDriver(dryRun bool, seed int64) *workflow.Driver {
	llmClient := llm.NewClient(app.Config.LLM.BaseURL, app.Config.LLM.APIKey, app.Logger)

	var completer agents.Completer
	if llmClient.Available() {
		completer = llmClient
	}

	exec := &workflow.Executor{
		Generator: app.imageGenerator(dryRun),
		Critic:    agents.NewCritic(completer, app.Config.LLM.CriticModel, dryRun, app.Logger),
		Refiner:   agents.NewPromptRefiner(completer, app.Config.LLM.RefinerModel, app.Logger),
		Adjuster:  agents.NewBrandAdjuster(completer, app.Config.LLM.RefinerModel, app.Logger),
		Printer:   app.Printer,
		Logger:    app.Logger,
		Seed:      seed,
	}

	return &workflow.Driver{
		Exec:     exec,
		Printer:  app.Printer,
		Logger:   app.Logger,
		Finisher: etsy.NewPipeline(app.Config.Etsy, app.Printer, app.Logger),
	}
}

// exitCodeForRunError keeps "pack not found" distinguishable for scripts.
func exitCodeForRunError(err error) int {
	if errors.Is(err, workflow.ErrPackNotFound) || errors.Is(err, workflow.ErrConfigNotFound) {
		return 2
	}
	return 1
}
