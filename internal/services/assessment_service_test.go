package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/releasegate/riskadvisor/internal/config"
	"github.com/releasegate/riskadvisor/internal/engine"
	"github.com/releasegate/riskadvisor/internal/models"
	"github.com/releasegate/riskadvisor/internal/runs"
	"github.com/releasegate/riskadvisor/internal/signature"
)

type stubBackend struct{}

func (stubBackend) FetchRevertEvents(context.Context, string, string, int) ([]models.RevertRecord, error) {
	return []models.RevertRecord{
		{
			ID: "REV-1", Service: "playback-api", Date: "2026-07-14T09:42:00Z",
			ImpactedSLIs: map[string]models.SLIImpact{"p99_latency": {Baseline: 800, Peak: 2400}},
			Tags:         []string{"playback"},
		},
	}, nil
}

func (stubBackend) FetchBaseline(_ context.Context, service, sli string, windowDays int) (models.SLIBaseline, error) {
	return models.SLIBaseline{SLI: sli, Service: service, WindowDays: windowDays, Avg: 1.0, P99: 2.0, StdDev: 0.1}, nil
}

func (stubBackend) FetchCurrentHealth(_ context.Context, service, sli string, windowMinutes int) (models.SLICurrentHealth, error) {
	return models.SLICurrentHealth{SLI: sli, Service: service, CurrentValue: 1.0, BaselineAvg: 1.0, WindowMinutes: windowMinutes}, nil
}

func serviceForTest() *AssessmentService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	scoring := config.DefaultScoring()
	advisor := engine.NewAdvisor(
		stubBackend{},
		signature.NewMatcher(scoring),
		engine.NewScorer(scoring),
		nil,
		config.AdvisorConfig{
			KeySLIs:           []string{"error_rate", "p99_latency"},
			HistoryWindowDays: 30,
			PostDeployMinutes: 60,
		},
		logger,
	)
	return NewAssessmentService(logger, advisor, runs.NewStore("", 10, logger))
}

func TestAssessValidation(t *testing.T) {
	svc := serviceForTest()

	cases := []models.AssessmentRequest{
		{},
		{FeatureName: "f"},
		{Service: "svc"},
		{FeatureName: "f", Service: "svc", TimeWindowDays: -1},
		{FeatureName: "f", Service: "svc", PostDeployMinutes: -1},
	}
	for i, req := range cases {
		if _, err := svc.Assess(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("case %d: expected ErrInvalidRequest, got %v", i, err)
		}
	}
}

func TestAssessStoresRun(t *testing.T) {
	svc := serviceForTest()

	report, err := svc.Assess(context.Background(), models.AssessmentRequest{
		FeatureName: "prefetch-v3",
		Service:     "playback-api",
	})
	if err != nil {
		t.Fatalf("assess failed: %v", err)
	}
	if report.RunID == "" {
		t.Fatal("expected a run ID")
	}

	stored, err := svc.Run(report.RunID)
	if err != nil {
		t.Fatalf("stored run lookup failed: %v", err)
	}
	if stored.RiskScore != report.RiskScore {
		t.Errorf("stored run differs: %d vs %d", stored.RiskScore, report.RiskScore)
	}

	if len(svc.Runs()) != 1 {
		t.Errorf("expected 1 retained run, got %d", len(svc.Runs()))
	}
	if _, err := svc.Run("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestServiceInsightsAndIncidents(t *testing.T) {
	svc := serviceForTest()

	insights, err := svc.Insights(context.Background())
	if err != nil {
		t.Fatalf("insights failed: %v", err)
	}
	if len(insights) != 1 || insights[0].Service != "playback-api" {
		t.Fatalf("unexpected insights: %+v", insights)
	}

	incidents, err := svc.Incidents(context.Background(), "playback-api", 60)
	if err != nil {
		t.Fatalf("incidents failed: %v", err)
	}
	if len(incidents) != 0 {
		t.Errorf("healthy telemetry should yield no incidents, got %d", len(incidents))
	}
}
