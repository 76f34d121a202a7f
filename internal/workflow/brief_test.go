package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"packforge/internal/config"
	"packforge/internal/state"
)

func briefConfig() *config.PackConfig {
	return &config.PackConfig{
		Theme:      "neon cyberpunk cityscape",
		Prompts:    map[string]string{"starting": "a neon screen"},
		Resolution: config.Resolution{Width: 1920, Height: 1080},
	}
}

func TestPrepareBrief_FirstRound(t *testing.T) {
	s := state.New("neon-pack", 3, 8.5)

	brief := PrepareBrief(1, briefConfig(), s)

	assert.Equal(t, 1, brief.Round)
	assert.Equal(t, "neon-pack", brief.PackName)
	assert.Equal(t, "neon cyberpunk cityscape", brief.Theme)
	assert.Contains(t, brief.Context, "Initial generation round")
	assert.False(t, brief.HasPreviousScore)
	assert.Empty(t, brief.Deltas)
}

func TestPrepareBrief_ImprovementRound(t *testing.T) {
	s := stateWithScores(t, 3, 8.5,
		evalWith(6.0, nil, nil),
		evalWith(7.5, nil, []string{"prompts.starting → Add: 'glow'"}),
	)

	brief := PrepareBrief(3, briefConfig(), s)

	assert.Contains(t, brief.Context, "7.5/10")
	assert.True(t, brief.HasPreviousScore)
	assert.InDelta(t, 7.5, brief.PreviousScore, 1e-9)
	assert.Equal(t, []string{"prompts.starting → Add: 'glow'"}, brief.Deltas)
	assert.True(t, brief.HasTrend)
	assert.InDelta(t, 1.5, brief.TrendDelta, 1e-9)
}

func TestPrepareBrief_SingleEvaluatedRoundHasNoTrend(t *testing.T) {
	s := stateWithScores(t, 3, 8.5, evalWith(6.0, nil, nil))

	brief := PrepareBrief(2, briefConfig(), s)

	assert.True(t, brief.HasPreviousScore)
	assert.False(t, brief.HasTrend)
}
