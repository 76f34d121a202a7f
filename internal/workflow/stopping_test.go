package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packforge/internal/rubric"
	"packforge/internal/state"
)

func evalWith(score float64, criticals, deltas []string) *rubric.PackEvaluation {
	return &rubric.PackEvaluation{
		PackName:     "test-pack",
		OverallScore: score,
		DimensionScores: []rubric.Score{{
			Dimension: rubric.DimTechnicalQuality,
			Score:     score,
			Weight:    1.0,
		}},
		CriticalIssues: criticals,
		Deltas:         deltas,
	}
}

func stateWithScores(t *testing.T, maxRounds int, threshold float64, evals ...*rubric.PackEvaluation) *state.WorkflowState {
	t.Helper()
	s := state.New("test-pack", maxRounds, threshold)
	for i, eval := range evals {
		require.NoError(t, s.AddRound(state.RoundState{
			RoundNum:   i + 1,
			Timestamp:  time.Now().UTC(),
			Evaluation: eval,
		}))
	}
	return s
}

func TestEvaluateStopping(t *testing.T) {
	tests := []struct {
		name           string
		state          *state.WorkflowState
		wantDecision   Decision
		wantTerminal   bool
		wantAcceptable bool
	}{
		{
			name:         "no evaluation yet continues",
			state:        state.New("p", 3, 8.5),
			wantDecision: DecisionContinue,
		},
		{
			name:         "critical issues block",
			state:        stateWithScores(t, 3, 8.5, evalWith(9.5, []string{"CRITICAL: wrong resolution"}, nil)),
			wantDecision: DecisionBlocked,
			wantTerminal: true,
		},
		{
			name:         "threshold pass",
			state:        stateWithScores(t, 3, 8.5, evalWith(8.5, nil, nil)),
			wantDecision: DecisionPass,
			wantTerminal: true,
		},
		{
			name:         "below threshold continues",
			state:        stateWithScores(t, 3, 8.5, evalWith(7.0, nil, nil)),
			wantDecision: DecisionContinue,
		},
		{
			name:         "round budget exhausted",
			state:        stateWithScores(t, 2, 8.5, evalWith(6.0, nil, nil), evalWith(7.0, nil, nil)),
			wantDecision: DecisionExhausted,
			wantTerminal: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := EvaluateStopping(tt.state)
			assert.Equal(t, tt.wantDecision, outcome.Decision)
			assert.Equal(t, tt.wantTerminal, outcome.Terminal())
			assert.Equal(t, tt.wantAcceptable, outcome.AcceptableQuality)
			assert.NotEmpty(t, outcome.Reason)
		})
	}
}

func TestEvaluateStopping_CriticalBeatsThreshold(t *testing.T) {
	// A perfect score with critical issues still blocks.
	s := stateWithScores(t, 3, 8.5, evalWith(10.0, []string{"text unreadable"}, nil))
	outcome := EvaluateStopping(s)

	assert.Equal(t, DecisionBlocked, outcome.Decision)
}

func TestVariantCount(t *testing.T) {
	assert.Equal(t, 3, VariantCount(1))
	assert.Equal(t, 2, VariantCount(2))
	assert.Equal(t, 1, VariantCount(3))
	assert.Equal(t, 1, VariantCount(7))
}
