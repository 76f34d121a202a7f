package agents

import (
	"regexp"
	"strings"
)

// deltaPattern matches the structured delta format emitted by the critic,
// e.g. "prompts.starting → Add: 'strong central focal glow'".
var deltaPattern = regexp.MustCompile(`^(.+?)\s*→\s*(\w+):\s*['"](.+?)['"]`)

// ParseDelta splits a critic delta into target, action and content.
// Deltas that do not match the structured format are treated as a general
// prompt adjustment so feedback is never silently dropped.
func ParseDelta(delta string) (target, action, content string) {
	if m := deltaPattern.FindStringSubmatch(delta); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), strings.TrimSpace(m[3])
	}
	return "prompts.general", "Adjust", delta
}

// ApplyDelta applies one parsed delta to a prompt and returns the result.
func ApplyDelta(prompt, action, content string) string {
	switch strings.ToLower(action) {
	case "add":
		return strings.TrimRight(prompt, " \t\n") + ", " + content
	case "adjust":
		return strings.TrimRight(prompt, " \t\n") + ". Refinement: " + content
	case "remove":
		sentences := strings.Split(prompt, ".")
		kept := sentences[:0]
		for _, s := range sentences {
			if !strings.Contains(strings.ToLower(s), strings.ToLower(content)) {
				kept = append(kept, s)
			}
		}
		return strings.TrimSpace(strings.Join(kept, ". ")) + "."
	case "change":
		return content
	default:
		return strings.TrimRight(prompt, " \t\n") + ". Note: " + content
	}
}
