package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"packforge/internal/config"
	"packforge/internal/output"
	"packforge/internal/packfs"
	"packforge/internal/state"
)

var (
	// ErrPackNotFound indicates the named pack directory does not exist.
	ErrPackNotFound = errors.New("workflow: pack directory not found")

	// ErrConfigNotFound indicates the pack has no config.yaml.
	ErrConfigNotFound = errors.New("workflow: pack config not found")
)

// PackConfigFile is the per-pack configuration document.
const PackConfigFile = "config.yaml"

// Finisher produces marketplace deliverables once the round loop ends.
// Implemented by the etsy pipeline; nil skips the finishing phase.
type Finisher interface {
	Finish(ctx context.Context, packDir string, cfg *config.PackConfig, st *state.WorkflowState, upload bool) error
}

// RunOptions control one workflow run.
type RunOptions struct {
	MaxRounds int
	Threshold float64

	// Upload publishes the finished listing to the marketplace.
	Upload bool

	// SkipFinish leaves out deliverable packaging and upload, as dry runs do.
	SkipFinish bool
}

// Driver owns the multi-round loop: it loads or creates the workflow state,
// runs rounds until a stopping rule fires, persists state after every round
// and hands the finished pack to the [Finisher].
type Driver struct {
	Exec     *Executor
	Printer  *output.Printer
	Logger   *slog.Logger
	Finisher Finisher
}

// Run executes the workflow for a pack under the packs root and returns the
// final state. An existing state file resumes the workflow at its next round.
func (d *Driver) Run(ctx context.Context, packName string, opts RunOptions) (*state.WorkflowState, error) {
	packDir := packfs.PackDir(packName)
	if _, err := os.Stat(packDir); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPackNotFound, packDir)
	}
	configPath := filepath.Join(packDir, PackConfigFile)
	if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
	}

	store := state.NewStore(packDir)
	st, err := store.Load()
	if err != nil {
		return nil, err
	}
	if st != nil {
		d.Logger.Info("resuming workflow", "pack", packName, "rounds_completed", len(st.Rounds))
	} else {
		st = state.New(packName, opts.MaxRounds, opts.Threshold)
		d.Logger.Info("starting workflow", "pack", packName,
			"max_rounds", st.MaxRounds, "threshold", st.QualityThreshold)
	}

	d.Printer.Banner("packforge workflow: "+packName,
		fmt.Sprintf("max rounds: %d", st.MaxRounds),
		fmt.Sprintf("quality threshold: %.1f", st.QualityThreshold))

	start := time.Now()
	for {
		if err := ctx.Err(); err != nil {
			return st, err
		}

		if outcome := EvaluateStopping(st); outcome.Terminal() {
			d.finalize(st, outcome)
			break
		}

		roundState, err := d.Exec.RunRound(ctx, packDir, configPath, st)
		if err != nil {
			return st, err
		}
		if err := st.AddRound(roundState); err != nil {
			return st, err
		}
		if err := store.Save(st); err != nil {
			return st, err
		}

		if outcome := EvaluateStopping(st); outcome.Terminal() {
			d.finalize(st, outcome)
			break
		}
	}

	if err := store.Save(st); err != nil {
		return st, err
	}
	if _, err := WriteSummaryReport(packDir, st); err != nil {
		return st, err
	}

	d.Printer.Trend(st.ScoreTrend())
	d.Printer.Infof("workflow finished in %s after %d round(s)", time.Since(start).Round(time.Second), len(st.Rounds))

	if !opts.SkipFinish && d.Finisher != nil {
		cfg, err := config.LoadPack(configPath)
		if err != nil {
			return st, err
		}
		if err := d.Finisher.Finish(ctx, packDir, cfg, st, opts.Upload); err != nil {
			return st, fmt.Errorf("finish pack: %w", err)
		}
	}

	return st, nil
}

func (d *Driver) finalize(st *state.WorkflowState, outcome Outcome) {
	if !st.Completed {
		st.Finalize(fmt.Sprintf("%s: %s", outcome.Decision, outcome.Reason))
	}

	switch outcome.Decision {
	case DecisionPass:
		d.Printer.Successf("%s", outcome.Reason)
	case DecisionBlocked:
		d.Printer.Errorf("%s", outcome.Reason)
	case DecisionExhausted:
		if outcome.AcceptableQuality {
			d.Printer.Successf("%s", outcome.Reason)
		} else {
			d.Printer.Warnf("%s", outcome.Reason)
		}
	default:
		d.Printer.Infof("%s", outcome.Reason)
	}
	d.Logger.Info("workflow stopped", "pack", st.PackName,
		"decision", outcome.Decision, "reason", outcome.Reason)
}
