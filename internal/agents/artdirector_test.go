package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packforge/internal/config"
	"packforge/internal/llm"
)

func TestDefaultBrandTokens(t *testing.T) {
	cyber := DefaultBrandTokens("neon cyberpunk cityscape")
	assert.Equal(t, []string{"#FF00FF", "#00FFFF", "#FFD700"}, cyber.PrimaryColors)
	assert.Contains(t, cyber.Mood, "cyberpunk")

	fantasy := DefaultBrandTokens("Magic forest glade")
	assert.Contains(t, fantasy.Mood, "magical")

	generic := DefaultBrandTokens("cozy coffee shop")
	assert.Contains(t, generic.Mood, "professional")
	assert.NotEmpty(t, generic.PrimaryColors)
}

func TestRuleAdjuster_EnhancesMatchingTokens(t *testing.T) {
	a := &RuleAdjuster{logger: discardLogger()}

	tokens := config.BrandTokens{
		PrimaryColors: []string{"#FF00FF"},
		Texture:       "wet glass",
		Lighting:      "neon glow",
		Composition:   "rule of thirds",
		Mood:          "energetic",
	}
	refined, changes, err := a.AdjustTokens(context.Background(), AdjustInput{
		Tokens: tokens,
		Deltas: []string{"add more rim lighting to the background"},
	})
	require.NoError(t, err)

	require.Len(t, changes, 1)
	assert.Equal(t, "lighting", changes[0].Token)
	assert.Equal(t, "enhanced", changes[0].Action)
	assert.Equal(t, "neon glow, rim lighting to the background", refined.Lighting)
	// Untouched fields carry over.
	assert.Equal(t, "wet glass", refined.Texture)
}

func TestRuleAdjuster_IgnoresUnrelatedDeltas(t *testing.T) {
	a := &RuleAdjuster{logger: discardLogger()}

	tokens := config.BrandTokens{Texture: "wet glass"}
	refined, changes, err := a.AdjustTokens(context.Background(), AdjustInput{
		Tokens: tokens,
		Deltas: []string{"prompts.starting → Add: 'golden ratio'"},
	})
	require.NoError(t, err)

	assert.Empty(t, changes)
	assert.Equal(t, tokens, refined)
}

func TestRuleAdjuster_NoDeltas(t *testing.T) {
	a := &RuleAdjuster{logger: discardLogger()}

	tokens := config.BrandTokens{Mood: "calm"}
	refined, changes, err := a.AdjustTokens(context.Background(), AdjustInput{Tokens: tokens})
	require.NoError(t, err)

	assert.Empty(t, changes)
	assert.Equal(t, tokens, refined)
}

func TestLLMAdjuster_ParsesResponse(t *testing.T) {
	stub := &stubCompleter{
		available: true,
		resp: &llm.ChatResponse{Content: `{
			"refined_tokens": {
				"primary_colors": ["#AA00FF"],
				"secondary_colors": ["#101020"],
				"texture": "frosted glass",
				"composition": "centered",
				"lighting": "soft glow",
				"mood": "serene"
			},
			"changes": [{"token": "texture", "action": "adjusted", "before": "wet", "after": "frosted", "rationale": "less noise"}],
			"confidence": 0.8
		}`},
	}
	a := NewBrandAdjuster(stub, "gpt-4o-mini", nil)
	assert.IsType(t, &LLMAdjuster{}, a)

	refined, changes, err := a.AdjustTokens(context.Background(), AdjustInput{
		Tokens: config.BrandTokens{Texture: "wet glass"},
		Deltas: []string{"reduce texture noise"},
	})
	require.NoError(t, err)

	assert.Equal(t, "frosted glass", refined.Texture)
	require.Len(t, changes, 1)
	assert.Equal(t, "texture", changes[0].Token)
}

func TestLLMAdjuster_FallsBackOnError(t *testing.T) {
	stub := &stubCompleter{available: true, err: errors.New("api down")}
	a := NewBrandAdjuster(stub, "gpt-4o-mini", nil)

	tokens := config.BrandTokens{Lighting: "neon glow"}
	refined, changes, err := a.AdjustTokens(context.Background(), AdjustInput{
		Tokens: tokens,
		Deltas: []string{"add more rim lighting please"},
	})
	require.NoError(t, err)

	require.Len(t, changes, 1)
	assert.Contains(t, refined.Lighting, "neon glow,")
}

func TestValidateBrandTokens(t *testing.T) {
	valid := DefaultBrandTokens("neon")
	assert.Empty(t, ValidateBrandTokens(valid))

	invalid := config.BrandTokens{
		PrimaryColors: []string{"FF00FF"},
		Texture:       "x",
		Composition:   "y",
		Lighting:      "z",
	}
	warnings := ValidateBrandTokens(invalid)

	assert.Contains(t, warnings, "invalid color format in primary_colors: FF00FF")
	assert.Contains(t, warnings, "missing required token: secondary_colors")
	assert.Contains(t, warnings, "missing required token: mood")
}
