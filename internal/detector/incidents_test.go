package detector

import (
	"strings"
	"testing"
	"time"

	"github.com/releasegate/riskadvisor/internal/models"
)

func TestDetectIncidentsClassification(t *testing.T) {
	now := time.Now()
	health := map[string]models.SLICurrentHealth{
		"crash_rate": {SLI: "crash_rate", IsAnomalous: true, CurrentValue: 0.66, BaselineAvg: 0.1},
		"error_rate": {SLI: "error_rate", IsAnomalous: true, CurrentValue: 3.2, BaselineAvg: 0.9},
		"p95_latency": {
			SLI: "p95_latency", IsAnomalous: false, CurrentValue: 700, BaselineAvg: 610,
		},
	}

	incidents := DetectIncidents(now, "playback-api", health)
	if len(incidents) != 2 {
		t.Fatalf("expected 2 incidents, got %d", len(incidents))
	}

	// Sorted by SLI name: crash_rate first.
	crash := incidents[0]
	if crash.Type != "crash" {
		t.Errorf("crash_rate should classify as crash, got %s", crash.Type)
	}
	if crash.Severity != models.SeverityCritical {
		t.Errorf("6.6x spike should be critical, got %s", crash.Severity)
	}
	if crash.SpikeRatio != 6.6 {
		t.Errorf("expected spike ratio 6.6, got %v", crash.SpikeRatio)
	}

	errSpike := incidents[1]
	if errSpike.Type != "error_spike" {
		t.Errorf("error_rate should classify as error_spike, got %s", errSpike.Type)
	}
	if errSpike.Severity != models.SeverityHigh {
		t.Errorf("3.6x spike should be high, got %s", errSpike.Severity)
	}
	if !strings.Contains(errSpike.Description, "error_rate spike detected") {
		t.Errorf("unexpected description: %q", errSpike.Description)
	}
}

func TestDetectIncidentsQuietService(t *testing.T) {
	health := map[string]models.SLICurrentHealth{
		"error_rate": {SLI: "error_rate", IsAnomalous: false},
	}
	if incidents := DetectIncidents(time.Now(), "svc", health); len(incidents) != 0 {
		t.Fatalf("expected no incidents, got %d", len(incidents))
	}
}
