// Package agents implements the collaborating roles of the pack production
// workflow: the critic evaluates generated images against the rubric, the
// prompt engineer rewrites generation prompts from critic feedback, and the
// art director keeps brand tokens consistent across rounds.
//
// Each role that can use an LLM also has a deterministic rule-based
// implementation. The constructor picks the strategy once, based on whether
// credentials are configured, so callers never branch on availability.
package agents

import (
	"context"

	"packforge/internal/llm"
)

// Completer is the subset of [llm.Client] the agents need. Tests substitute
// a stub.
type Completer interface {
	Complete(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
	Available() bool
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
