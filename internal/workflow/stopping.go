// Package workflow drives the multi-round pack production loop: plan the
// round, refine prompts and brand tokens from the previous evaluation,
// generate and postprocess images, evaluate, persist, and decide whether to
// run another round.
package workflow

import (
	"fmt"

	"packforge/internal/state"
)

// Decision is the workflow-level verdict after a round.
type Decision string

const (
	// DecisionContinue means another round should run.
	DecisionContinue Decision = "CONTINUE"

	// DecisionPass means the pack met the quality threshold with no
	// critical issues.
	DecisionPass Decision = "PASS"

	// DecisionBlocked means critical issues require human intervention
	// before the workflow can proceed.
	DecisionBlocked Decision = "BLOCKED"

	// DecisionExhausted means the round budget ran out before the pack
	// passed.
	DecisionExhausted Decision = "EXHAUSTED"
)

// Outcome is the result of evaluating the stopping rules.
type Outcome struct {
	Decision Decision
	Reason   string

	// AcceptableQuality is set on an exhausted workflow whose final score
	// still reaches the threshold, so callers can treat it as a soft pass.
	AcceptableQuality bool
}

// Terminal reports whether the workflow should stop.
func (o Outcome) Terminal() bool {
	return o.Decision != DecisionContinue
}

// EvaluateStopping applies the stopping rules to the current state. Rules
// are checked in order: no evaluation yet, critical issues, threshold pass,
// round budget.
func EvaluateStopping(s *state.WorkflowState) Outcome {
	eval := s.LatestEvaluation()
	if eval == nil {
		return Outcome{Decision: DecisionContinue, Reason: "No evaluation yet"}
	}

	if len(eval.CriticalIssues) > 0 {
		return Outcome{
			Decision: DecisionBlocked,
			Reason:   fmt.Sprintf("BLOCKED by %d critical issue(s)", len(eval.CriticalIssues)),
		}
	}

	score, _ := s.LatestScore()
	if eval.PassesThreshold(s.QualityThreshold) {
		return Outcome{
			Decision: DecisionPass,
			Reason:   fmt.Sprintf("Score %.1f >= threshold %.1f", score, s.QualityThreshold),
		}
	}

	if s.CurrentRound() > s.MaxRounds {
		if score >= s.QualityThreshold {
			return Outcome{
				Decision:          DecisionExhausted,
				Reason:            fmt.Sprintf("Max rounds reached, but quality acceptable (%.1f/10)", score),
				AcceptableQuality: true,
			}
		}
		return Outcome{
			Decision: DecisionExhausted,
			Reason:   fmt.Sprintf("Max rounds (%d) reached with score %.1f/10", s.MaxRounds, score),
		}
	}

	return Outcome{
		Decision: DecisionContinue,
		Reason:   fmt.Sprintf("Score %.1f < threshold %.1f", score, s.QualityThreshold),
	}
}

// VariantCount returns how many variants to generate for a round: broad
// exploration first, then narrowing refinement, then single-image polish.
func VariantCount(round int) int {
	switch round {
	case 1:
		return 3
	case 2:
		return 2
	default:
		return 1
	}
}
