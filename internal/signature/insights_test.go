package signature

import (
	"testing"

	"github.com/releasegate/riskadvisor/internal/models"
)

func TestMineInsightsAggregation(t *testing.T) {
	sigs := Build([]models.RevertRecord{
		{
			ID: "REV-1", Service: "playback-api", Date: "2026-07-14T09:42:00Z",
			ImpactedSLIs: map[string]models.SLIImpact{"p99_latency": {Baseline: 100, Peak: 300}},
			Tags:         []string{"playback"},
		},
		{
			ID: "REV-2", Service: "playback-api", Date: "2026-08-02T10:00:00Z",
			ImpactedSLIs: map[string]models.SLIImpact{"p99_latency": {Baseline: 100, Peak: 500}},
			Tags:         []string{"playback", "drm"},
		},
		{
			ID: "REV-3", Service: "ads-service", Date: "2026-08-10T12:00:00Z",
			ImpactedSLIs: map[string]models.SLIImpact{"ad_error_rate": {Baseline: 1, Peak: 6}},
			Tags:         []string{"ads"},
		},
	})

	insights := MineInsights(sigs)
	if len(insights) != 2 {
		t.Fatalf("expected 2 services, got %d", len(insights))
	}

	top := insights[0]
	if top.Service != "playback-api" {
		t.Fatalf("expected playback-api first by prevalence, got %s", top.Service)
	}
	if top.RevertCount != 2 {
		t.Errorf("expected 2 reverts, got %d", top.RevertCount)
	}
	if top.Prevalence < 0.66 || top.Prevalence > 0.67 {
		t.Errorf("expected prevalence 2/3, got %v", top.Prevalence)
	}
	// (3 + 5) / 2 spike ratios.
	if top.AvgSpikeRatio != 4.0 {
		t.Errorf("expected avg spike ratio 4.0, got %v", top.AvgSpikeRatio)
	}
	if top.LastRevert != "2026-08-02T10:00:00Z" {
		t.Errorf("expected the newest revert date, got %s", top.LastRevert)
	}
	if len(top.TopSLIs) != 1 || top.TopSLIs[0] != "p99_latency" {
		t.Errorf("unexpected top SLIs: %v", top.TopSLIs)
	}
	if len(top.TopTags) != 2 || top.TopTags[0] != "playback" {
		t.Errorf("tags should order by frequency: %v", top.TopTags)
	}
}

func TestMineInsightsEmptyCorpus(t *testing.T) {
	if insights := MineInsights(nil); insights != nil {
		t.Fatalf("expected nil for an empty corpus, got %v", insights)
	}
}
