package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"packforge/internal/config"
	"packforge/internal/llm"
)

const artDirectorSystemPrompt = `You are an expert art director managing brand tokens for
visual consistency across a streaming overlay pack. You adjust color palettes, textures,
composition, lighting and mood descriptors based on critic feedback.`

// TokenChange records one brand token adjustment for the round report.
type TokenChange struct {
	Token     string `json:"token"`
	Action    string `json:"action"`
	Before    string `json:"before"`
	After     string `json:"after"`
	Rationale string `json:"rationale"`
}

// AdjustInput carries critic feedback into a brand token adjustment.
type AdjustInput struct {
	Tokens          config.BrandTokens
	Deltas          []string
	DimensionScores map[string]float64
	Round           int
}

// BrandAdjuster evolves brand tokens between rounds.
type BrandAdjuster interface {
	AdjustTokens(ctx context.Context, in AdjustInput) (config.BrandTokens, []TokenChange, error)
}

// NewBrandAdjuster selects the adjustment strategy the same way
// [NewPromptRefiner] does.
func NewBrandAdjuster(client Completer, model string, logger *slog.Logger) BrandAdjuster {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	rule := &RuleAdjuster{logger: logger}
	if client != nil && client.Available() {
		return &LLMAdjuster{client: client, model: model, logger: logger, fallback: rule}
	}
	logger.Info("art director using rule-based mode")
	return rule
}

// DefaultBrandTokens derives starter tokens from the pack theme. Themes
// without a recognized style keyword get neutral defaults.
func DefaultBrandTokens(theme string) config.BrandTokens {
	lower := strings.ToLower(theme)
	switch {
	case strings.Contains(lower, "cyberpunk") || strings.Contains(lower, "neon"):
		return config.BrandTokens{
			PrimaryColors:   []string{"#FF00FF", "#00FFFF", "#FFD700"},
			SecondaryColors: []string{"#1A1A2E", "#16213E", "#0F3460"},
			Texture:         "wet glass with specular highlights, chrome reflections",
			Composition:     "rule of thirds, golden ratio focal point, dynamic asymmetry",
			Lighting:        "neon glow, strong backlight, volumetric fog, rim lighting",
			Mood:            "cyberpunk, energetic, futuristic, mysterious",
		}
	case strings.Contains(lower, "fantasy") || strings.Contains(lower, "magic"):
		return config.BrandTokens{
			PrimaryColors:   []string{"#8B00FF", "#FF1493", "#FFD700"},
			SecondaryColors: []string{"#2C003E", "#4B0082", "#6A0DAD"},
			Texture:         "ethereal glow, particle effects, magical sparkles",
			Composition:     "centered symmetry, mystical framing, depth of field",
			Lighting:        "soft ambient glow, magical aura, ethereal backlight",
			Mood:            "magical, enchanting, mystical, dreamlike",
		}
	default:
		return config.BrandTokens{
			PrimaryColors:   []string{"#FF6B6B", "#4ECDC4", "#FFE66D"},
			SecondaryColors: []string{"#2C2C2C", "#3D3D3D", "#4E4E4E"},
			Texture:         "clean surface, subtle gradients",
			Composition:     "balanced layout, clear focal point",
			Lighting:        "soft natural light, balanced shadows",
			Mood:            "modern, professional, engaging",
		}
	}
}

// brandKeywords maps each adjustable text token to the vocabulary that
// identifies related critic deltas.
var brandKeywords = map[string][]string{
	"texture":     {"texture", "surface", "material", "finish"},
	"composition": {"composition", "layout", "framing", "focal"},
	"lighting":    {"lighting", "glow", "backlight", "shadow", "brightness"},
	"mood":        {"mood", "atmosphere", "feeling", "tone"},
}

// RuleAdjuster applies keyword-matched deltas to text tokens without an LLM.
// Color palettes are left untouched in rule-based mode.
type RuleAdjuster struct {
	logger *slog.Logger
}

func (a *RuleAdjuster) AdjustTokens(_ context.Context, in AdjustInput) (config.BrandTokens, []TokenChange, error) {
	refined := in.Tokens
	if len(in.Deltas) == 0 {
		return refined, nil, nil
	}

	fields := map[string]*string{
		"texture":     &refined.Texture,
		"composition": &refined.Composition,
		"lighting":    &refined.Lighting,
		"mood":        &refined.Mood,
	}

	var changes []TokenChange
	for _, delta := range in.Deltas {
		lower := strings.ToLower(delta)
		for token, keywords := range brandKeywords {
			if !containsAny(lower, keywords) {
				continue
			}
			if !strings.Contains(lower, "add") && !strings.Contains(lower, "more") {
				continue
			}
			field := fields[token]
			before := *field
			*field = before + ", " + lastWords(delta, 5)
			changes = append(changes, TokenChange{
				Token:     token,
				Action:    "enhanced",
				Before:    truncate(before, 50),
				After:     truncate(*field, 50),
				Rationale: truncate(delta, 100),
			})
			a.logger.Info("adjusted brand token", "token", token)
		}
	}
	return refined, changes, nil
}

// LLMAdjuster asks the model for a refreshed token set, falling back to the
// rule-based adjuster when the call or parse fails.
type LLMAdjuster struct {
	client   Completer
	model    string
	logger   *slog.Logger
	fallback *RuleAdjuster
}

func (a *LLMAdjuster) AdjustTokens(ctx context.Context, in AdjustInput) (config.BrandTokens, []TokenChange, error) {
	if len(in.Deltas) == 0 {
		return in.Tokens, nil, nil
	}

	resp, err := a.client.Complete(ctx, llm.ChatRequest{
		Model: a.model,
		Messages: []llm.Message{
			{Role: "system", Text: artDirectorSystemPrompt},
			{Role: "user", Text: buildAdjustMessage(in)},
		},
		Temperature: 0.7,
		JSONMode:    true,
	})
	if err != nil {
		a.logger.Warn("llm brand adjustment failed, falling back to rule-based", "error", err)
		return a.fallback.AdjustTokens(ctx, in)
	}

	var result struct {
		RefinedTokens *config.BrandTokens `json:"refined_tokens"`
		Changes       []TokenChange       `json:"changes"`
		Confidence    float64             `json:"confidence"`
	}
	if err := unmarshalLenient(resp.Content, &result); err != nil || result.RefinedTokens == nil {
		a.logger.Warn("could not parse art director response, falling back to rule-based", "error", err)
		return a.fallback.AdjustTokens(ctx, in)
	}

	a.logger.Info("llm brand adjustment completed",
		"changes", len(result.Changes), "confidence", result.Confidence)
	return *result.RefinedTokens, result.Changes, nil
}

func buildAdjustMessage(in AdjustInput) string {
	tokensJSON, _ := json.MarshalIndent(in.Tokens, "", "  ")
	scoresJSON, _ := json.MarshalIndent(in.DimensionScores, "", "  ")

	var b strings.Builder
	b.WriteString("# Brand Token Adjustment Request\n\n")
	b.WriteString("## Current Brand Tokens\n```json\n")
	b.Write(tokensJSON)
	b.WriteString("\n```\n\n## Critic Evaluation\n\n")
	fmt.Fprintf(&b, "**Round:** %d\n\n**Dimension Scores:**\n%s\n\n", in.Round, scoresJSON)
	b.WriteString("**Improvement Suggestions (Deltas):**\n")
	for i, d := range in.Deltas {
		fmt.Fprintf(&b, "%d. %s\n", i+1, d)
	}
	b.WriteString("\n## Your Task\n\n")
	b.WriteString("Adjust the brand tokens to address brand-related critic feedback. ")
	b.WriteString("Return ONLY a valid JSON object:\n\n")
	b.WriteString("```json\n{\n  \"refined_tokens\": {\"primary_colors\": [\"#...\"], \"secondary_colors\": [\"#...\"], ")
	b.WriteString("\"texture\": \"...\", \"composition\": \"...\", \"lighting\": \"...\", \"mood\": \"...\"},\n")
	b.WriteString("  \"changes\": [{\"token\": \"...\", \"action\": \"...\", \"before\": \"...\", \"after\": \"...\", \"rationale\": \"...\"}],\n")
	b.WriteString("  \"confidence\": 0.85\n}\n```\n\n")
	b.WriteString("Focus on brand-related deltas. If no brand issues are mentioned, maintain current tokens.\n")
	return b.String()
}

// ValidateBrandTokens reports structural problems with a token set.
func ValidateBrandTokens(tokens config.BrandTokens) []string {
	var warnings []string

	for name, colors := range map[string][]string{
		"primary_colors":   tokens.PrimaryColors,
		"secondary_colors": tokens.SecondaryColors,
	} {
		if len(colors) == 0 {
			warnings = append(warnings, fmt.Sprintf("missing required token: %s", name))
			continue
		}
		for _, c := range colors {
			if !strings.HasPrefix(c, "#") {
				warnings = append(warnings, fmt.Sprintf("invalid color format in %s: %s", name, c))
			}
		}
	}

	for name, value := range map[string]string{
		"texture":     tokens.Texture,
		"composition": tokens.Composition,
		"lighting":    tokens.Lighting,
		"mood":        tokens.Mood,
	} {
		if strings.TrimSpace(value) == "" {
			warnings = append(warnings, fmt.Sprintf("missing required token: %s", name))
		} else if len(value) > 200 {
			warnings = append(warnings, fmt.Sprintf("%s exceeds 200 characters (%d)", name, len(value)))
		}
	}
	return warnings
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func lastWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}
