// Package state holds the durable record of a multi-round workflow.
//
// A [WorkflowState] aggregates one [RoundState] per completed round together
// with the control parameters (round budget, quality threshold) the stopping
// logic needs. The state is persisted as JSON after every round (see
// [Store]) so an interrupted workflow resumes from its current round instead
// of starting over.
//
// Key invariants:
//   - Rounds are append-only and 1-indexed with no gaps: Rounds[i].RoundNum
//     is always i+1, and CurrentRound is always len(Rounds)+1.
//   - Once Completed is set via [WorkflowState.Finalize], no further rounds
//     may be appended.
package state

import (
	"errors"
	"fmt"
	"time"

	"packforge/internal/rubric"
)

// Sentinel errors for workflow state mutation.
var (
	// ErrWorkflowCompleted indicates an append was attempted after the
	// workflow was finalized.
	ErrWorkflowCompleted = errors.New("workflow already completed")

	// ErrRoundMismatch indicates the appended round's number does not match
	// the expected current round.
	ErrRoundMismatch = errors.New("round number does not match current round")
)

// RoundState captures one round's inputs and outputs. It is owned
// exclusively by a [WorkflowState] and never mutated after being appended.
type RoundState struct {
	// RoundNum is the 1-indexed round number.
	RoundNum int `json:"round_num"`

	// Timestamp records when the round completed.
	Timestamp time.Time `json:"timestamp"`

	// PromptsUsed is the exact per-screen-type prompt set used for this
	// round's generation, keyed by screen type.
	PromptsUsed map[string]string `json:"prompts_used"`

	// Evaluation is the round's critic result. Nil only transiently, before
	// evaluation completes.
	Evaluation *rubric.PackEvaluation `json:"evaluation"`

	// VariantsGenerated counts images generated this round.
	VariantsGenerated int `json:"variants_generated"`

	// CostUSD is the accumulated API cost attributed to this round.
	CostUSD float64 `json:"cost_usd"`
}

// WorkflowState is the complete durable state for one pack's workflow.
type WorkflowState struct {
	PackName         string       `json:"pack_name"`
	StartedAt        time.Time    `json:"started_at"`
	MaxRounds        int          `json:"max_rounds"`
	QualityThreshold float64      `json:"quality_threshold"`
	Rounds           []RoundState `json:"rounds"`
	Completed        bool         `json:"completed"`
	CompletionReason string       `json:"completion_reason"`
}

// New creates a fresh workflow state for a pack with an empty round list.
// A non-positive threshold falls back to [rubric.DefaultThreshold].
func New(packName string, maxRounds int, qualityThreshold float64) *WorkflowState {
	if qualityThreshold <= 0 {
		qualityThreshold = rubric.DefaultThreshold
	}
	return &WorkflowState{
		PackName:         packName,
		StartedAt:        time.Now().UTC(),
		MaxRounds:        maxRounds,
		QualityThreshold: qualityThreshold,
	}
}

// CurrentRound returns the 1-indexed number of the next round to run.
func (s *WorkflowState) CurrentRound() int {
	return len(s.Rounds) + 1
}

// LatestEvaluation returns the most recent round's evaluation, or nil when
// no round has an evaluation yet.
func (s *WorkflowState) LatestEvaluation() *rubric.PackEvaluation {
	if len(s.Rounds) == 0 {
		return nil
	}
	return s.Rounds[len(s.Rounds)-1].Evaluation
}

// LatestDeltas returns the improvement suggestions from the latest
// evaluation, or nil if none exists.
func (s *WorkflowState) LatestDeltas() []string {
	if eval := s.LatestEvaluation(); eval != nil {
		return eval.Deltas
	}
	return nil
}

// LatestScore returns the latest overall score. The second return value is
// false when no evaluation has been recorded.
func (s *WorkflowState) LatestScore() (float64, bool) {
	if eval := s.LatestEvaluation(); eval != nil {
		return eval.OverallScore, true
	}
	return 0, false
}

// ScoreTrend returns the overall score of each evaluated round in order.
func (s *WorkflowState) ScoreTrend() []float64 {
	var trend []float64
	for _, r := range s.Rounds {
		if r.Evaluation != nil {
			trend = append(trend, r.Evaluation.OverallScore)
		}
	}
	return trend
}

// AddRound appends a completed round. It enforces the append-only
// invariants: no appends after finalization, and strictly contiguous
// 1-indexed round numbers.
func (s *WorkflowState) AddRound(r RoundState) error {
	if s.Completed {
		return ErrWorkflowCompleted
	}
	if r.RoundNum != s.CurrentRound() {
		return fmt.Errorf("%w: got %d, expected %d", ErrRoundMismatch, r.RoundNum, s.CurrentRound())
	}
	s.Rounds = append(s.Rounds, r)
	return nil
}

// Finalize marks the workflow completed with a human-readable reason and
// freezes further mutation.
func (s *WorkflowState) Finalize(reason string) {
	s.Completed = true
	s.CompletionReason = reason
}
