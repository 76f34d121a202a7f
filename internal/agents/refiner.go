package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"packforge/internal/llm"
)

const refinerSystemPrompt = `You are an expert prompt engineer for AI image generation.
You refine prompts for streaming overlay packs based on critic feedback while
preserving theme and brand consistency across all screen types.`

// RefineInput carries everything the prompt engineer needs for one round.
type RefineInput struct {
	Prompts         map[string]string
	Deltas          []string
	DimensionScores map[string]float64
	Round           int
}

// PromptRefiner rewrites generation prompts from critic deltas.
type PromptRefiner interface {
	RefinePrompts(ctx context.Context, in RefineInput) (map[string]string, error)
}

// NewPromptRefiner selects the refinement strategy. With a configured LLM
// client it returns an [LLMRefiner]; otherwise the rule-based fallback.
func NewPromptRefiner(client Completer, model string, logger *slog.Logger) PromptRefiner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	rule := &RuleRefiner{logger: logger}
	if client != nil && client.Available() {
		return &LLMRefiner{client: client, model: model, logger: logger, fallback: rule}
	}
	logger.Info("prompt refiner using rule-based mode")
	return rule
}

// RuleRefiner applies critic deltas mechanically, without an LLM.
type RuleRefiner struct {
	logger *slog.Logger
}

// RefinePrompts applies each prompt-targeted delta in order. Deltas aimed at
// non-prompt targets or unknown screen types are skipped.
func (r *RuleRefiner) RefinePrompts(_ context.Context, in RefineInput) (map[string]string, error) {
	refined := make(map[string]string, len(in.Prompts))
	for k, v := range in.Prompts {
		refined[k] = v
	}
	if len(in.Deltas) == 0 {
		return refined, nil
	}

	for _, delta := range in.Deltas {
		target, action, content := ParseDelta(delta)
		if !strings.HasPrefix(target, "prompts.") {
			continue
		}
		kind := strings.TrimPrefix(target, "prompts.")
		original, ok := refined[kind]
		if !ok {
			r.logger.Warn("delta targets unknown prompt", "kind", kind)
			continue
		}
		refined[kind] = ApplyDelta(original, action, content)
		r.logger.Info("applied prompt delta", "kind", kind, "action", action)
	}
	return refined, nil
}

// LLMRefiner asks an LLM to rewrite the prompts, falling back to rule-based
// refinement when the call or the response parse fails.
type LLMRefiner struct {
	client   Completer
	model    string
	logger   *slog.Logger
	fallback *RuleRefiner
}

// RefinePrompts sends current prompts plus critic feedback to the model and
// parses the refined set out of its JSON response.
func (r *LLMRefiner) RefinePrompts(ctx context.Context, in RefineInput) (map[string]string, error) {
	if len(in.Deltas) == 0 {
		refined := make(map[string]string, len(in.Prompts))
		for k, v := range in.Prompts {
			refined[k] = v
		}
		return refined, nil
	}

	resp, err := r.client.Complete(ctx, llm.ChatRequest{
		Model: r.model,
		Messages: []llm.Message{
			{Role: "system", Text: refinerSystemPrompt},
			{Role: "user", Text: buildRefineMessage(in)},
		},
		Temperature: 0.7,
		JSONMode:    true,
	})
	if err != nil {
		r.logger.Warn("llm prompt refinement failed, falling back to rule-based", "error", err)
		return r.fallback.RefinePrompts(ctx, in)
	}

	var result struct {
		RefinedPrompts map[string]string `json:"refined_prompts"`
		Changes        []struct {
			ScreenType string `json:"screen_type"`
			ChangeType string `json:"change_type"`
			Rationale  string `json:"rationale"`
		} `json:"changes"`
		Confidence float64 `json:"confidence"`
	}
	if err := unmarshalLenient(resp.Content, &result); err != nil || len(result.RefinedPrompts) == 0 {
		r.logger.Warn("could not parse refiner response, falling back to rule-based", "error", err)
		return r.fallback.RefinePrompts(ctx, in)
	}

	r.logger.Info("llm prompt refinement completed",
		"changes", len(result.Changes), "confidence", result.Confidence)

	// The model must not invent or drop screen types.
	refined := make(map[string]string, len(in.Prompts))
	for kind, original := range in.Prompts {
		if updated, ok := result.RefinedPrompts[kind]; ok && strings.TrimSpace(updated) != "" {
			refined[kind] = updated
		} else {
			refined[kind] = original
		}
	}
	return refined, nil
}

func buildRefineMessage(in RefineInput) string {
	promptsJSON, _ := json.MarshalIndent(in.Prompts, "", "  ")
	scoresJSON, _ := json.MarshalIndent(in.DimensionScores, "", "  ")

	var b strings.Builder
	b.WriteString("# Prompt Refinement Request\n\n")
	b.WriteString("## Current Prompts\n```json\n")
	b.Write(promptsJSON)
	b.WriteString("\n```\n\n## Critic Evaluation\n\n")
	fmt.Fprintf(&b, "**Round:** %d\n\n**Dimension Scores:**\n%s\n\n", in.Round, scoresJSON)
	b.WriteString("**Improvement Suggestions (Deltas):**\n")
	for i, d := range in.Deltas {
		fmt.Fprintf(&b, "%d. %s\n", i+1, d)
	}
	b.WriteString("\n## Your Task\n\n")
	b.WriteString("Refine the image generation prompts to address the critic feedback. ")
	b.WriteString("Return ONLY a valid JSON object:\n\n")
	b.WriteString("```json\n{\n  \"refined_prompts\": {\"<screen_type>\": \"...\"},\n")
	b.WriteString("  \"changes\": [{\"screen_type\": \"...\", \"change_type\": \"major|minor|polish\", \"rationale\": \"...\"}],\n")
	b.WriteString("  \"confidence\": 0.85\n}\n```\n\n")
	b.WriteString("Focus on actionable deltas. Maintain consistency across all prompts.\n")
	return b.String()
}

// ValidatePrompts reports non-fatal quality issues with a prompt set.
func ValidatePrompts(prompts map[string]string) []string {
	var warnings []string
	kinds := make([]string, 0, len(prompts))
	for kind := range prompts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		text := prompts[kind]
		switch {
		case strings.TrimSpace(text) == "":
			warnings = append(warnings, fmt.Sprintf("%s: empty prompt", kind))
		case len(text) < 10:
			warnings = append(warnings, fmt.Sprintf("%s: prompt too short (%d chars)", kind, len(text)))
		case len(text) > 2000:
			warnings = append(warnings, fmt.Sprintf("%s: prompt very long (%d chars, may hit API limits)", kind, len(text)))
		}
	}
	return warnings
}

// unmarshalLenient parses model output as JSON, stripping markdown code
// fences and repairing malformed JSON before giving up.
func unmarshalLenient(text string, v any) error {
	cleaned := stripCodeFence(text)
	if err := json.Unmarshal([]byte(cleaned), v); err == nil {
		return nil
	}
	repaired, err := jsonrepair.JSONRepair(cleaned)
	if err != nil {
		return fmt.Errorf("repair json: %w", err)
	}
	return json.Unmarshal([]byte(repaired), v)
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, "```json"); idx != -1 {
		text = text[idx+len("```json"):]
	} else if idx := strings.Index(text, "```"); idx != -1 {
		text = text[idx+3:]
	} else {
		return text
	}
	if end := strings.Index(text, "```"); end != -1 {
		text = text[:end]
	}
	return strings.TrimSpace(text)
}
