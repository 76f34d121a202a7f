package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"packforge/internal/packfs"
	"packforge/internal/rubric"
	"packforge/internal/state"
)

// WriteRoundReport renders the round's QA report to qa/roundNN.md and
// returns its path.
func WriteRoundReport(packDir string, round int, eval *rubric.PackEvaluation, outcome Outcome, runtime time.Duration) (string, error) {
	qaDir := filepath.Join(packDir, packfs.QADir)
	if err := packfs.EnsureDir(qaDir); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Round %02d - Quality Assurance Report\n\n", round)
	fmt.Fprintf(&b, "**Pack:** %s\n", eval.PackName)
	fmt.Fprintf(&b, "**Date:** %s\n\n", time.Now().UTC().Format(time.RFC3339))

	b.WriteString("## Critic Evaluation\n\n")
	fmt.Fprintf(&b, "- **Overall Score:** %.1f/10\n", eval.OverallScore)
	for _, ds := range eval.DimensionScores {
		fmt.Fprintf(&b, "- **%s:** %.1f/10 - %s\n", dimensionTitle(ds.Dimension), ds.Score, ds.Justification)
	}

	b.WriteString("\n## Critical Issues\n\n")
	if len(eval.CriticalIssues) > 0 {
		for _, issue := range eval.CriticalIssues {
			fmt.Fprintf(&b, "- %s\n", issue)
		}
	} else {
		b.WriteString("None\n")
	}

	b.WriteString("\n## Selected Images (Auto-Curated)\n\n")
	if len(eval.SelectedImages) > 0 {
		kinds := make([]string, 0, len(eval.SelectedImages))
		for kind := range eval.SelectedImages {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			fmt.Fprintf(&b, "- %s: %s\n", kind, eval.SelectedImages[kind])
		}
	} else {
		b.WriteString("(No images selected)\n")
	}

	b.WriteString("\n## Deltas for Next Round\n\n")
	if len(eval.Deltas) > 0 {
		for i, delta := range eval.Deltas {
			fmt.Fprintf(&b, "%d. %s\n", i+1, delta)
		}
	} else {
		b.WriteString("(No improvements suggested)\n")
	}

	b.WriteString("\n## Next Steps\n\n")
	fmt.Fprintf(&b, "**Decision:** %s\n**Reason:** %s\n", outcome.Decision, outcome.Reason)

	b.WriteString("\n---\n")
	fmt.Fprintf(&b, "**Runtime:** %s\n", runtime.Round(time.Second))

	path := filepath.Join(qaDir, fmt.Sprintf("round%02d.md", round))
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write round report: %w", err)
	}
	return path, nil
}

// WriteSummaryReport renders the cross-round summary to qa/summary.md.
func WriteSummaryReport(packDir string, s *state.WorkflowState) (string, error) {
	qaDir := filepath.Join(packDir, packfs.QADir)
	if err := packfs.EnsureDir(qaDir); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("# Multi-Round Evaluation Summary\n\n")
	fmt.Fprintf(&b, "**Pack:** %s\n", s.PackName)
	fmt.Fprintf(&b, "**Total Rounds:** %d\n", len(s.Rounds))
	fmt.Fprintf(&b, "**Date:** %s\n\n", time.Now().UTC().Format(time.RFC3339))

	b.WriteString("## Score Progression\n\n")
	if len(s.Rounds) > 0 {
		b.WriteString("| Round | Overall | Brand | Technical | Compliance | Visual | Decision |\n")
		b.WriteString("|-------|---------|-------|-----------|------------|--------|----------|\n")
		for _, r := range s.Rounds {
			if r.Evaluation == nil {
				continue
			}
			dims := make(map[string]float64, len(r.Evaluation.DimensionScores))
			for _, ds := range r.Evaluation.DimensionScores {
				dims[ds.Dimension] = ds.Score
			}
			fmt.Fprintf(&b, "| %02d | %.1f | %.1f | %.1f | %.1f | %.1f | %s |\n",
				r.RoundNum,
				r.Evaluation.OverallScore,
				dims[rubric.DimBrandConsistency],
				dims[rubric.DimTechnicalQuality],
				dims[rubric.DimMarketplaceCompliance],
				dims[rubric.DimVisualAppeal],
				roundDecision(r.Evaluation, s.QualityThreshold))
		}
	}

	b.WriteString("\n## Final Result\n\n")
	if eval := s.LatestEvaluation(); eval != nil {
		switch {
		case eval.PassesThreshold(s.QualityThreshold):
			fmt.Fprintf(&b, "**PASSED** with score %.1f/10 (Round %d)\n", eval.OverallScore, len(s.Rounds))
		case len(eval.CriticalIssues) > 0:
			fmt.Fprintf(&b, "**BLOCKED** due to critical issues (Round %d)\n", len(s.Rounds))
		default:
			fmt.Fprintf(&b, "**INCOMPLETE** - stopped at Round %d with score %.1f/10\n", len(s.Rounds), eval.OverallScore)
		}
	} else {
		b.WriteString("(No evaluations recorded)\n")
	}

	if s.CompletionReason != "" {
		fmt.Fprintf(&b, "\n**Completion Reason:** %s\n", s.CompletionReason)
	}

	path := filepath.Join(qaDir, "summary.md")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write summary report: %w", err)
	}
	return path, nil
}

func roundDecision(eval *rubric.PackEvaluation, threshold float64) string {
	switch {
	case eval.PassesThreshold(threshold):
		return "PASS"
	case len(eval.CriticalIssues) > 0:
		return "BLOCKED"
	default:
		return "CONTINUE"
	}
}

func dimensionTitle(dim string) string {
	words := strings.Split(dim, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
