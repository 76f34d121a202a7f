package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDelta(t *testing.T) {
	tests := []struct {
		name        string
		delta       string
		wantTarget  string
		wantAction  string
		wantContent string
	}{
		{
			name:        "structured add",
			delta:       "prompts.starting → Add: 'strong central focal glow, golden ratio'",
			wantTarget:  "prompts.starting",
			wantAction:  "Add",
			wantContent: "strong central focal glow, golden ratio",
		},
		{
			name:        "structured change on brand token",
			delta:       "brand_tokens.texture → Change: 'wet glass with specular highlights'",
			wantTarget:  "brand_tokens.texture",
			wantAction:  "Change",
			wantContent: "wet glass with specular highlights",
		},
		{
			name:        "double quotes",
			delta:       `prompts.brb → Adjust: "vary the background"`,
			wantTarget:  "prompts.brb",
			wantAction:  "Adjust",
			wantContent: "vary the background",
		},
		{
			name:        "unstructured falls back to general adjust",
			delta:       "make everything brighter",
			wantTarget:  "prompts.general",
			wantAction:  "Adjust",
			wantContent: "make everything brighter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, action, content := ParseDelta(tt.delta)
			assert.Equal(t, tt.wantTarget, target)
			assert.Equal(t, tt.wantAction, action)
			assert.Equal(t, tt.wantContent, content)
		})
	}
}

func TestApplyDelta(t *testing.T) {
	tests := []struct {
		name    string
		prompt  string
		action  string
		content string
		want    string
	}{
		{
			name:    "add appends with comma",
			prompt:  "neon cityscape",
			action:  "Add",
			content: "volumetric fog",
			want:    "neon cityscape, volumetric fog",
		},
		{
			name:    "adjust appends refinement",
			prompt:  "neon cityscape",
			action:  "Adjust",
			content: "wider framing",
			want:    "neon cityscape. Refinement: wider framing",
		},
		{
			name:    "remove drops matching sentences",
			prompt:  "neon cityscape. heavy rain. chrome towers",
			action:  "Remove",
			content: "rain",
			want:    "neon cityscape.  chrome towers.",
		},
		{
			name:    "change replaces prompt entirely",
			prompt:  "neon cityscape",
			action:  "Change",
			content: "minimal pastel skyline",
			want:    "minimal pastel skyline",
		},
		{
			name:    "unknown action appends note",
			prompt:  "neon cityscape",
			action:  "Rework",
			content: "try again",
			want:    "neon cityscape. Note: try again",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ApplyDelta(tt.prompt, tt.action, tt.content))
		})
	}
}
