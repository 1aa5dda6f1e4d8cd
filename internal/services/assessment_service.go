package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/releasegate/riskadvisor/internal/engine"
	"github.com/releasegate/riskadvisor/internal/metrics"
	"github.com/releasegate/riskadvisor/internal/models"
	"github.com/releasegate/riskadvisor/internal/runs"
	"github.com/releasegate/riskadvisor/internal/utils"
)

// ErrInvalidRequest marks requests rejected before any backend work.
var ErrInvalidRequest = errors.New("invalid assessment request")

// ErrRunNotFound marks lookups of unknown run IDs.
var ErrRunNotFound = errors.New("run not found")

// AssessmentService fronts the advisor pipeline: request validation, run
// retention, latency accounting, and Prometheus observation.
type AssessmentService struct {
	logger    *slog.Logger
	advisor   *engine.Advisor
	store     *runs.Store
	latencies *utils.LatencyTracker
}

// NewAssessmentService constructs the service facade.
func NewAssessmentService(logger *slog.Logger, advisor *engine.Advisor, store *runs.Store) *AssessmentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AssessmentService{
		logger:    logger,
		advisor:   advisor,
		store:     store,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// Assess validates and runs one release assessment, retaining the report.
func (s *AssessmentService) Assess(ctx context.Context, req models.AssessmentRequest) (models.Report, error) {
	if err := validateRequest(req); err != nil {
		return models.Report{}, err
	}

	start := time.Now()
	report, err := s.advisor.Run(ctx, req)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveAssessment(duration, metrics.OutcomeError)
		s.logger.Error("assessment failed",
			slog.String("service", req.Service),
			slog.String("feature", req.FeatureName),
			slog.Any("error", err))
		return models.Report{}, err
	}

	s.latencies.Observe(duration)
	metrics.ObserveAssessment(duration, string(report.Recommendation))
	metrics.AddBackendQueries(report.AgentMetrics.BackendQueryCount)
	metrics.SetRiskScore(req.Service, report.RiskScore)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		p95 := s.latencies.Percentile(95)
		s.logger.Info("assessment latency", slog.Duration("p95", p95), slog.Int("samples", count))
	}

	s.store.Add(report)
	return report, nil
}

// Runs lists retained reports, newest first.
func (s *AssessmentService) Runs() []models.Report {
	return s.store.List()
}

// Run fetches one retained report by ID.
func (s *AssessmentService) Run(runID string) (models.Report, error) {
	report, ok := s.store.Get(runID)
	if !ok {
		return models.Report{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return report, nil
}

// Insights aggregates the revert corpus per service.
func (s *AssessmentService) Insights(ctx context.Context) ([]models.CorpusInsight, error) {
	return s.advisor.Insights(ctx)
}

// History lists raw revert records, optionally filtered by service.
func (s *AssessmentService) History(ctx context.Context, service string) ([]models.RevertRecord, error) {
	return s.advisor.History(ctx, service)
}

// Telemetry reports current key-SLI health for a service.
func (s *AssessmentService) Telemetry(ctx context.Context, service string, windowMinutes int) (map[string]models.SLICurrentHealth, error) {
	return s.advisor.Telemetry(ctx, service, windowMinutes)
}

// Incidents flags live anomalies in a service's current telemetry.
func (s *AssessmentService) Incidents(ctx context.Context, service string, windowMinutes int) ([]models.Incident, error) {
	return s.advisor.Incidents(ctx, service, windowMinutes)
}

// LatencyP95 returns the current p95 assessment latency.
func (s *AssessmentService) LatencyP95() time.Duration {
	return s.latencies.Percentile(95)
}

func validateRequest(req models.AssessmentRequest) error {
	if strings.TrimSpace(req.FeatureName) == "" {
		return fmt.Errorf("%w: feature_name is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Service) == "" {
		return fmt.Errorf("%w: service is required", ErrInvalidRequest)
	}
	if req.TimeWindowDays < 0 {
		return fmt.Errorf("%w: time_window_days cannot be negative", ErrInvalidRequest)
	}
	if req.PostDeployMinutes < 0 {
		return fmt.Errorf("%w: post_deploy_minutes cannot be negative", ErrInvalidRequest)
	}
	return nil
}
