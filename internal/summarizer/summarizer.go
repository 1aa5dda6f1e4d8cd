// Package summarizer renders the narrative portion of a risk report.
// Two implementations exist: a deterministic template and an LLM-backed
// generator. The orchestrator picks one up front via configuration; the
// template is the reference behaviour.
package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/releasegate/riskadvisor/internal/models"
)

// Summarizer produces a narrative summary for an assessment.
type Summarizer interface {
	Summarize(ctx context.Context, assessment models.RiskAssessment, feature, service, platform string) (models.Summary, error)
}

// Template renders a structured, deterministic summary without any
// external dependency. It never fails.
type Template struct{}

// NewTemplate constructs the template summarizer.
func NewTemplate() *Template {
	return &Template{}
}

// Summarize renders the headline, recommendation, top drivers, matched
// incidents and score breakdown as plain text.
func (t *Template) Summarize(_ context.Context, a models.RiskAssessment, feature, service, platform string) (models.Summary, error) {
	if platform == "" {
		platform = "all platforms"
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Risk assessment for %q on %s (%s): %s - score %d/100\n",
		feature, service, platform, riskLabel(a.Recommendation), a.RiskScore)
	fmt.Fprintf(&b, "\nRecommendation: %s\n", strings.ToUpper(string(a.Recommendation)))
	fmt.Fprintf(&b, "  %s\n", a.RolloutGuidance)

	if len(a.TopRiskDrivers) > 0 {
		b.WriteString("\nTop risk drivers:\n")
		limit := len(a.TopRiskDrivers)
		if limit > 3 {
			limit = 3
		}
		for i, driver := range a.TopRiskDrivers[:limit] {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, driver)
		}
	}

	if len(a.MatchedSignatures) > 0 {
		b.WriteString("\nSimilar past incidents:\n")
		limit := len(a.MatchedSignatures)
		if limit > 2 {
			limit = 2
		}
		for _, m := range a.MatchedSignatures[:limit] {
			fmt.Fprintf(&b, "  - %s - %q (%s)\n", m.RevertID, m.Feature, truncateDate(m.Date))
			fmt.Fprintf(&b, "    Similarity: %.0f%% | Severity: %s | Impacted: %s\n",
				m.Similarity*100, m.Severity, strings.Join(m.ImpactedSLIs, ", "))
		}
	}

	b.WriteString("\nScore breakdown:\n")
	fmt.Fprintf(&b, "  Pattern similarity: %.1f/50\n", a.SimilarityScore)
	fmt.Fprintf(&b, "  SLI volatility: %.1f/30\n", a.VolatilityScore)
	fmt.Fprintf(&b, "  Current anomalies: %.1f/20\n", a.AnomalyScore)

	return models.Summary{Text: b.String(), Source: models.SummaryTemplate}, nil
}

func riskLabel(rec models.Recommendation) string {
	switch rec {
	case models.RecommendShip:
		return "LOW RISK"
	case models.RecommendRamp:
		return "MODERATE RISK"
	case models.RecommendHold:
		return "HIGH RISK"
	default:
		return "UNKNOWN"
	}
}

func truncateDate(date string) string {
	if len(date) > 10 {
		return date[:10]
	}
	return date
}
