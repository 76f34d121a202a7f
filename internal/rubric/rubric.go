// Package rubric defines the quality rubric for pack evaluation.
//
// A pack is scored along a fixed set of weighted dimensions. Each [Score]
// carries one dimension's result; [PackEvaluation] aggregates them together
// with critical issues, selected images, and improvement deltas for the next
// round. The package also contains the automated technical checker (see
// checks.go), which produces a deterministic score from on-disk artifacts
// independent of any AI judgment.
package rubric

// Dimension names used across evaluations. The critic is instructed to score
// exactly this set; the aggregator tolerates partial sets.
const (
	DimBrandConsistency      = "brand_consistency"
	DimTechnicalQuality      = "technical_quality"
	DimMarketplaceCompliance = "marketplace_compliance"
	DimVisualAppeal          = "visual_appeal"
)

// DefaultThreshold is the overall score required to pass, on a 0-10 scale.
const DefaultThreshold = 8.5

// DimensionSpec describes one rubric dimension.
type DimensionSpec struct {
	// Weight is the dimension's share of the overall score, in [0,1].
	Weight float64

	// Description tells the critic what the dimension covers.
	Description string
}

// Dimensions is the canonical rubric: dimension name to spec. Weights sum
// to 1.0, though [Overall] does not depend on that.
var Dimensions = map[string]DimensionSpec{
	DimBrandConsistency: {
		Weight:      0.30,
		Description: "Colors match brand palette, texture and feel reflect tokens, composition follows guidelines",
	},
	DimTechnicalQuality: {
		Weight:      0.25,
		Description: "Overlay resolution 1920x1080, no compression artifacts, clarity and sharpness",
	},
	DimMarketplaceCompliance: {
		Weight:      0.20,
		Description: "Listing photos >=2000px, first photo landscape or square, archives within size limits",
	},
	DimVisualAppeal: {
		Weight:      0.25,
		Description: "Professional finish, clear focal point, appropriate margins for overlays",
	},
}

// Score is a single dimension's evaluation result. Immutable once created.
type Score struct {
	// Dimension is one of the Dim* constants.
	Dimension string `json:"dimension"`

	// Score is the dimension score in [0,10].
	Score float64 `json:"score"`

	// Weight is the dimension weight in [0,1].
	Weight float64 `json:"weight"`

	// Justification explains the score in the critic's words.
	Justification string `json:"justification"`

	// Issues lists concrete problems found on this dimension.
	Issues []string `json:"issues"`
}

// PackEvaluation is the structured result of one evaluation pass over a pack.
//
// It is produced once per round by the critic (or by the automated fallback
// when the critic's response cannot be parsed) and is read-only afterwards.
type PackEvaluation struct {
	// PackName identifies the evaluated pack.
	PackName string `json:"pack_name"`

	// OverallScore is the weighted average of DimensionScores, computed
	// via [Overall].
	OverallScore float64 `json:"overall_score"`

	// DimensionScores holds the per-dimension results, in rubric order.
	DimensionScores []Score `json:"dimension_scores"`

	// CriticalIssues are ship-blocking defects. A non-empty list vetoes
	// passing regardless of OverallScore.
	CriticalIssues []string `json:"critical_issues"`

	// SelectedImages maps screen type to the best variant's filename.
	SelectedImages map[string]string `json:"selected_images"`

	// Deltas are improvement suggestions consumed by the refiners next round.
	Deltas []string `json:"deltas"`

	// AutomatedChecksPassed is true when the technical checker found no issues.
	AutomatedChecksPassed bool `json:"automated_checks_passed"`
}

// PassesThreshold reports whether the evaluation meets the quality bar:
// overall score at or above threshold (>=, not >) and no critical issues.
func (e *PackEvaluation) PassesThreshold(threshold float64) bool {
	return e.OverallScore >= threshold && len(e.CriticalIssues) == 0
}

// Overall computes the weighted average of the given dimension scores.
//
// The divisor is the observed total weight, not an assumed 1.0, so partial or
// malformed dimension sets still aggregate sensibly (e.g. a degraded
// evaluation with a single dimension at weight 1.0). An empty slice or a zero
// total weight yields 0.0, treated as "no data" rather than an error.
func Overall(scores []Score) float64 {
	if len(scores) == 0 {
		return 0.0
	}

	var totalWeight, weightedSum float64
	for _, s := range scores {
		totalWeight += s.Weight
		weightedSum += s.Score * s.Weight
	}

	if totalWeight == 0 {
		return 0.0
	}
	return weightedSum / totalWeight
}
