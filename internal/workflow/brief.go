package workflow

import (
	"fmt"

	"packforge/internal/config"
	"packforge/internal/state"
)

// Brief is the round context prepared before any agent runs.
type Brief struct {
	Round     int
	PackName  string
	Theme     string
	MaxRounds int
	Threshold float64

	// Context is a one-line description of what this round is for.
	Context string

	// PreviousScore holds the last round's overall score when
	// HasPreviousScore is set.
	PreviousScore    float64
	HasPreviousScore bool

	// Deltas carries the previous evaluation's improvement suggestions.
	Deltas []string

	// TrendDelta is the score change between the last two rounds when
	// HasTrend is set.
	TrendDelta float64
	HasTrend   bool
}

// PrepareBrief assembles the briefing for the given round from the pack
// config and accumulated state.
func PrepareBrief(round int, cfg *config.PackConfig, s *state.WorkflowState) Brief {
	brief := Brief{
		Round:     round,
		PackName:  s.PackName,
		Theme:     cfg.Theme,
		MaxRounds: s.MaxRounds,
		Threshold: s.QualityThreshold,
	}

	if round == 1 {
		brief.Context = "Initial generation round. Focus on establishing baseline quality."
		return brief
	}

	eval := s.LatestEvaluation()
	if eval == nil {
		brief.Context = "Continuing workflow (no previous evaluation)"
		return brief
	}

	brief.Context = fmt.Sprintf("Improvement round. Previous score: %.1f/10", eval.OverallScore)
	brief.PreviousScore = eval.OverallScore
	brief.HasPreviousScore = true
	brief.Deltas = eval.Deltas

	if trend := s.ScoreTrend(); len(trend) >= 2 {
		brief.TrendDelta = trend[len(trend)-1] - trend[len(trend)-2]
		brief.HasTrend = true
	}
	return brief
}
