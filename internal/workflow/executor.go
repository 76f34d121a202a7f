package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"packforge/internal/agents"
	"packforge/internal/config"
	"packforge/internal/gen"
	"packforge/internal/output"
	"packforge/internal/rubric"
	"packforge/internal/state"
)

// Evaluator judges a pack's final images. Implemented by [agents.Critic];
// tests substitute stubs.
type Evaluator interface {
	Evaluate(ctx context.Context, packName string, cfg *config.PackConfig, packDir string) (*rubric.PackEvaluation, error)
}

// Executor runs one workflow round end to end with injected collaborators.
type Executor struct {
	Generator gen.ImageGenerator
	Critic    Evaluator
	Refiner   agents.PromptRefiner
	Adjuster  agents.BrandAdjuster
	Printer   *output.Printer
	Logger    *slog.Logger

	// Seed, when non-zero, makes image generation reproducible.
	Seed int64
}

// RunRound executes the next round for the workflow: brief, prompt
// refinement, brand token adjustment, generation, selection, postprocessing
// and evaluation. The pack config file is updated in place when prompts or
// tokens change, so the refined versions carry into later rounds.
func (e *Executor) RunRound(ctx context.Context, packDir, configPath string, st *state.WorkflowState) (state.RoundState, error) {
	round := st.CurrentRound()
	start := time.Now()

	e.Printer.RoundHeader(round, st.MaxRounds)
	e.Logger.Info("round start", "pack", st.PackName, "round", round)

	cfg, err := config.LoadPack(configPath)
	if err != nil {
		return state.RoundState{}, err
	}

	brief := PrepareBrief(round, cfg, st)
	e.Printer.Stage("pm", brief.Context)

	variants := VariantCount(round)
	e.Printer.Stage("pm", fmt.Sprintf("variants to generate: %d", variants))

	if cfg, err = e.refinePrompts(ctx, configPath, cfg, st, round); err != nil {
		return state.RoundState{}, err
	}
	if cfg, err = e.adjustBrandTokens(ctx, configPath, cfg, st, round); err != nil {
		return state.RoundState{}, err
	}

	e.Printer.Stage("executor", fmt.Sprintf("generating %d variants per screen type", variants))
	if err := gen.BuildPack(ctx, e.Generator, cfg, packDir, variants, e.Seed, e.Logger); err != nil {
		return state.RoundState{}, err
	}

	selected, err := gen.AutoSelect(packDir, e.Logger)
	if err != nil {
		return state.RoundState{}, err
	}
	e.Printer.Stage("executor", fmt.Sprintf("auto-selected %d images", selected))

	if err := gen.PostprocessSelected(cfg, packDir, e.Logger); err != nil {
		return state.RoundState{}, err
	}

	e.Printer.Stage("critic", "evaluating pack")
	eval, err := e.Critic.Evaluate(ctx, st.PackName, cfg, packDir)
	if err != nil {
		return state.RoundState{}, fmt.Errorf("evaluate round %d: %w", round, err)
	}

	e.Printer.Stage("critic", fmt.Sprintf("overall score: %.1f/10", eval.OverallScore))
	for _, issue := range eval.CriticalIssues {
		e.Printer.Errorf("critical: %s", issue)
	}

	roundState := state.RoundState{
		RoundNum:          round,
		Timestamp:         time.Now().UTC(),
		PromptsUsed:       cfg.Prompts,
		Evaluation:        eval,
		VariantsGenerated: variants,
	}

	// The report reflects the decision as it will stand once this round is
	// recorded.
	outcome := EvaluateStopping(withRound(st, roundState))
	if _, err := WriteRoundReport(packDir, round, eval, outcome, time.Since(start)); err != nil {
		return state.RoundState{}, err
	}

	e.Logger.Info("round complete", "round", round, "score", eval.OverallScore,
		"decision", outcome.Decision, "duration", time.Since(start).Round(time.Second))
	return roundState, nil
}

// refinePrompts applies the previous round's deltas through the prompt
// engineer. Round 1 always keeps the original prompts.
func (e *Executor) refinePrompts(ctx context.Context, configPath string, cfg *config.PackConfig, st *state.WorkflowState, round int) (*config.PackConfig, error) {
	deltas := st.LatestDeltas()
	if round <= 1 || len(deltas) == 0 {
		e.Printer.Stage("prompt-engineer", "using original prompts")
		return cfg, nil
	}

	e.Printer.Stage("prompt-engineer", fmt.Sprintf("applying %d deltas", len(deltas)))
	refined, err := e.Refiner.RefinePrompts(ctx, agents.RefineInput{
		Prompts:         cfg.Prompts,
		Deltas:          deltas,
		DimensionScores: dimensionScores(st.LatestEvaluation()),
		Round:           round,
	})
	if err != nil {
		return nil, fmt.Errorf("refine prompts: %w", err)
	}

	for _, warning := range agents.ValidatePrompts(refined) {
		e.Printer.Warnf("prompt validation: %s", warning)
	}

	cfg.Prompts = refined
	if err := config.SavePack(configPath, cfg); err != nil {
		return nil, err
	}
	return config.LoadPack(configPath)
}

// adjustBrandTokens initializes default tokens on round 1 and evolves them
// from critic feedback on later rounds.
func (e *Executor) adjustBrandTokens(ctx context.Context, configPath string, cfg *config.PackConfig, st *state.WorkflowState, round int) (*config.PackConfig, error) {
	if round == 1 {
		if cfg.BrandTokens != nil {
			return cfg, nil
		}
		e.Printer.Stage("art-director", "initializing default brand tokens")
		tokens := agents.DefaultBrandTokens(cfg.Theme)
		cfg.BrandTokens = &tokens
		if err := config.SavePack(configPath, cfg); err != nil {
			return nil, err
		}
		return config.LoadPack(configPath)
	}

	eval := st.LatestEvaluation()
	if eval == nil {
		return cfg, nil
	}

	tokens := agents.DefaultBrandTokens(cfg.Theme)
	if cfg.BrandTokens != nil {
		tokens = *cfg.BrandTokens
	}

	e.Printer.Stage("art-director", "adjusting brand tokens from critic feedback")
	adjusted, changes, err := e.Adjuster.AdjustTokens(ctx, agents.AdjustInput{
		Tokens:          tokens,
		Deltas:          st.LatestDeltas(),
		DimensionScores: dimensionScores(eval),
		Round:           round,
	})
	if err != nil {
		return nil, fmt.Errorf("adjust brand tokens: %w", err)
	}

	for _, change := range changes {
		e.Printer.Stage("art-director", fmt.Sprintf("%s: %s", change.Token, change.Action))
	}
	for _, warning := range agents.ValidateBrandTokens(adjusted) {
		e.Printer.Warnf("brand token validation: %s", warning)
	}

	cfg.BrandTokens = &adjusted
	if err := config.SavePack(configPath, cfg); err != nil {
		return nil, err
	}
	return config.LoadPack(configPath)
}

func dimensionScores(eval *rubric.PackEvaluation) map[string]float64 {
	if eval == nil {
		return nil
	}
	scores := make(map[string]float64, len(eval.DimensionScores))
	for _, ds := range eval.DimensionScores {
		scores[ds.Dimension] = ds.Score
	}
	return scores
}

// withRound returns a shallow copy of the state with one extra round, for
// decision previews that must not mutate the real state.
func withRound(s *state.WorkflowState, r state.RoundState) *state.WorkflowState {
	preview := *s
	preview.Rounds = append(append([]state.RoundState{}, s.Rounds...), r)
	return &preview
}
