package signature

import (
	"testing"

	"github.com/releasegate/riskadvisor/internal/config"
	"github.com/releasegate/riskadvisor/internal/models"
)

func TestSimilarityFullContextMatch(t *testing.T) {
	m := NewMatcher(config.DefaultScoring())

	sig := models.FailureSignature{
		Service:  "playback-service",
		Platform: "ios",
		Tags:     []string{"video"},
	}
	ctx := Context{
		Service:  "playback-service",
		Platform: "ios",
		Tags:     []string{"video"},
	}

	// 0.30 service + 0.15 platform + 0.25 full tag overlap, no SLI data.
	if got := m.Similarity(sig, ctx); got != 0.70 {
		t.Fatalf("expected similarity 0.70, got %v", got)
	}
}

func TestSimilarityServiceViaTag(t *testing.T) {
	m := NewMatcher(config.DefaultScoring())

	sig := models.FailureSignature{
		Service: "edge-cache",
		Tags:    []string{"playback-api"},
	}
	ctx := Context{Service: "playback-api"}

	if got := m.Similarity(sig, ctx); got != 0.15 {
		t.Fatalf("expected half-weight service match via tags, got %v", got)
	}
}

func TestSimilarityPlatformVariants(t *testing.T) {
	m := NewMatcher(config.DefaultScoring())

	all := models.FailureSignature{Service: "svc", Platform: "all"}
	if got := m.Similarity(all, Context{Service: "svc", Platform: "android"}); got != 0.45 {
		t.Errorf("platform all should match any declared platform, got %v", got)
	}

	other := models.FailureSignature{Service: "svc", Platform: "ios"}
	if got := m.Similarity(other, Context{Service: "svc", Platform: "all"}); got != 0.40 {
		t.Errorf("context all should earn the loose platform weight, got %v", got)
	}
	if got := m.Similarity(other, Context{Service: "svc"}); got != 0.30 {
		t.Errorf("missing context platform should skip the factor, got %v", got)
	}
}

func TestSimilarityDuplicateSignatureTags(t *testing.T) {
	m := NewMatcher(config.DefaultScoring())

	sig := models.FailureSignature{
		Tags: []string{"video", "video", "ads"},
	}
	ctx := Context{Service: "other", Tags: []string{"video"}}

	// Duplicates collapse: 1 of 2 distinct tags overlap.
	if got := m.Similarity(sig, ctx); got != 0.125 {
		t.Fatalf("expected 0.125, got %v", got)
	}
}

func TestSimilaritySLIOverlap(t *testing.T) {
	m := NewMatcher(config.DefaultScoring())

	sig := models.FailureSignature{
		ImpactedSLIs: map[string]models.SLIImpact{
			"error_rate":  {Baseline: 1, Peak: 3},
			"p99_latency": {Baseline: 100, Peak: 300},
		},
	}
	ctx := Context{
		Service: "other",
		SLIHealth: map[string]models.SLICurrentHealth{
			"error_rate":  {IsAnomalous: true},
			"p99_latency": {DeviationPct: 10},
		},
	}

	// 1 of 2 impacted SLIs currently degraded: 0.30 * 0.5.
	if got := m.Similarity(sig, ctx); got != 0.15 {
		t.Fatalf("expected 0.15, got %v", got)
	}
}

func TestRankOrderAndTruncation(t *testing.T) {
	m := NewMatcher(config.DefaultScoring())

	sigs := make([]models.FailureSignature, 0, 7)
	for i := 0; i < 6; i++ {
		sigs = append(sigs, models.FailureSignature{RevertID: "weak", Service: "other"})
	}
	sigs = append(sigs, models.FailureSignature{RevertID: "strong", Service: "playback-api"})

	ranked := m.Rank(sigs, Context{Service: "playback-api"}, 5)

	if len(ranked) != 5 {
		t.Fatalf("expected top 5, got %d", len(ranked))
	}
	if ranked[0].Signature.RevertID != "strong" {
		t.Errorf("expected the service match first, got %q", ranked[0].Signature.RevertID)
	}
	if ranked[0].Similarity != 0.30 {
		t.Errorf("expected similarity 0.30, got %v", ranked[0].Similarity)
	}
}

func TestRankStableForEqualSimilarity(t *testing.T) {
	m := NewMatcher(config.DefaultScoring())

	sigs := []models.FailureSignature{
		{RevertID: "first", Service: "playback-api"},
		{RevertID: "second", Service: "playback-api"},
		{RevertID: "third", Service: "playback-api"},
	}

	ranked := m.Rank(sigs, Context{Service: "playback-api"}, 5)
	if len(ranked) != 3 {
		t.Fatalf("expected 3 ranked signatures, got %d", len(ranked))
	}
	for i, want := range []string{"first", "second", "third"} {
		if got := ranked[i].Signature.RevertID; got != want {
			t.Errorf("position %d: expected %q, got %q", i, want, got)
		}
	}
}

func TestRankEmptyCorpus(t *testing.T) {
	m := NewMatcher(config.DefaultScoring())
	if ranked := m.Rank(nil, Context{Service: "svc"}, 5); len(ranked) != 0 {
		t.Fatalf("expected empty ranking, got %d", len(ranked))
	}
}
