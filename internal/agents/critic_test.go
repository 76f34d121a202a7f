package agents

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packforge/internal/config"
	"packforge/internal/llm"
	"packforge/internal/packfs"
	"packforge/internal/rubric"
)

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))))
}

func criticPackDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTestPNG(t, filepath.Join(dir, packfs.FinalDir, "starting_01.png"), 1920, 1080)
	writeTestPNG(t, filepath.Join(dir, packfs.FinalDir, "starting_02.png"), 1920, 1080)
	writeTestPNG(t, filepath.Join(dir, packfs.FinalDir, "brb_01.png"), 1920, 1080)
	return dir
}

func testPackConfig() *config.PackConfig {
	return &config.PackConfig{
		Theme: "neon cyberpunk cityscape",
		Prompts: map[string]string{
			"starting": "neon cityscape at night",
			"brb":      "rainy neon street",
		},
		Resolution: config.Resolution{Width: 1920, Height: 1080},
	}
}

func TestScreenTypeOf(t *testing.T) {
	assert.Equal(t, "starting", ScreenTypeOf("starting_01.png"))
	assert.Equal(t, "thumbnail_background", ScreenTypeOf("thumbnail_background_03.png"))
	assert.Equal(t, "banner", ScreenTypeOf("banner.png"))
}

func TestCritic_Evaluate_DryRun(t *testing.T) {
	dir := criticPackDir(t)
	c := NewCritic(nil, "gpt-4o", true, nil)

	eval, err := c.Evaluate(context.Background(), "neon-pack", testPackConfig(), dir)
	require.NoError(t, err)

	assert.Equal(t, "neon-pack", eval.PackName)
	assert.Len(t, eval.DimensionScores, 4)
	assert.True(t, eval.AutomatedChecksPassed)
	assert.Empty(t, eval.CriticalIssues)
	assert.Equal(t, "starting_01.png", eval.SelectedImages["starting"])
	assert.Equal(t, "brb_01.png", eval.SelectedImages["brb"])
	assert.InDelta(t, rubric.Overall(eval.DimensionScores), eval.OverallScore, 1e-9)
	require.NotEmpty(t, eval.Deltas)
	assert.Contains(t, eval.Deltas[0], "DRY RUN")
}

func TestCritic_Evaluate_MissingFinalDir(t *testing.T) {
	c := NewCritic(nil, "gpt-4o", true, nil)

	_, err := c.Evaluate(context.Background(), "p", testPackConfig(), t.TempDir())
	assert.ErrorIs(t, err, ErrNoFinalImages)
}

func TestCritic_Evaluate_NoModelDegradesToAutomated(t *testing.T) {
	dir := criticPackDir(t)
	c := NewCritic(&stubCompleter{available: false}, "gpt-4o", false, nil)

	eval, err := c.Evaluate(context.Background(), "p", testPackConfig(), dir)
	require.NoError(t, err)
	require.Len(t, eval.DimensionScores, 1)
	assert.Equal(t, rubric.DimTechnicalQuality, eval.DimensionScores[0].Dimension)
	assert.InDelta(t, 10.0, eval.OverallScore, 1e-9)
	assert.True(t, eval.AutomatedChecksPassed)
}

func TestCritic_Evaluate_ParsesModelResponse(t *testing.T) {
	dir := criticPackDir(t)
	stub := &stubCompleter{
		available: true,
		resp: &llm.ChatResponse{Content: "```json\n" + `{
			"overall_score": 8.7,
			"dimension_scores": [
				{"dimension": "brand_consistency", "score": 9.0, "weight": 0.30, "justification": "palette matches"},
				{"dimension": "technical_quality", "score": 8.5, "weight": 0.25, "justification": "sharp"},
				{"dimension": "marketplace_compliance", "score": 8.0, "weight": 0.20, "justification": "compliant"},
				{"dimension": "visual_appeal", "score": 8.8, "weight": 0.25, "justification": "striking"}
			],
			"critical_issues": ["text unreadable in brb"],
			"selected_images": {"starting": "starting_02.png", "brb": "brb_01.png"},
			"deltas": ["prompts.brb → Add: 'larger text margin'"]
		}` + "\n```"},
	}
	c := NewCritic(stub, "gpt-4o", false, nil)

	eval, err := c.Evaluate(context.Background(), "neon-pack", testPackConfig(), dir)
	require.NoError(t, err)

	assert.InDelta(t, 8.7, eval.OverallScore, 1e-9)
	assert.Len(t, eval.DimensionScores, 4)
	assert.Equal(t, []string{"text unreadable in brb"}, eval.CriticalIssues)
	assert.Equal(t, "starting_02.png", eval.SelectedImages["starting"])
	assert.True(t, eval.AutomatedChecksPassed)

	// The request carried the prompt plus one image part per final image.
	require.Len(t, stub.lastReq.Messages, 2)
	parts := stub.lastReq.Messages[1].Parts
	require.Len(t, parts, 4)
	assert.Contains(t, parts[0].Text, "neon cyberpunk cityscape")
	assert.Contains(t, parts[1].ImageURL, "data:image/png;base64,")
}

func TestCritic_Evaluate_FallbackOnUnparseableResponse(t *testing.T) {
	dir := criticPackDir(t)
	stub := &stubCompleter{available: true, resp: &llm.ChatResponse{Content: "I refuse to answer in JSON"}}
	c := NewCritic(stub, "gpt-4o", false, nil)

	eval, err := c.Evaluate(context.Background(), "neon-pack", testPackConfig(), dir)
	require.NoError(t, err)

	require.Len(t, eval.DimensionScores, 1)
	assert.Equal(t, rubric.DimTechnicalQuality, eval.DimensionScores[0].Dimension)
	assert.InDelta(t, 1.0, eval.DimensionScores[0].Weight, 1e-9)
	assert.Equal(t, "starting_01.png", eval.SelectedImages["starting"])
	require.NotEmpty(t, eval.Deltas)
	assert.Contains(t, eval.Deltas[0], "ERROR")
}
