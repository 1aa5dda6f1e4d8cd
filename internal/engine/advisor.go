package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/releasegate/riskadvisor/internal/config"
	"github.com/releasegate/riskadvisor/internal/detector"
	"github.com/releasegate/riskadvisor/internal/models"
	"github.com/releasegate/riskadvisor/internal/repo"
	"github.com/releasegate/riskadvisor/internal/signature"
	"github.com/releasegate/riskadvisor/internal/summarizer"
)

// broadenFactor widens the history window when the initial corpus query
// comes back empty. Sparse services still deserve whatever precedent
// exists.
const broadenFactor = 4

// insightWindowDays bounds corpus-wide queries (insights, service
// listings) to roughly ten years, effectively "everything".
const insightWindowDays = 3650

// Advisor runs the full assessment: gather history, rank signatures,
// collect telemetry, score, and narrate. Each Run call is independent;
// all state lives in the request-scoped locals.
type Advisor struct {
	backend  repo.Backend
	matcher  *signature.Matcher
	scorer   *Scorer
	narrator summarizer.Summarizer
	fallback summarizer.Summarizer
	cfg      config.AdvisorConfig
	logger   *slog.Logger
}

// NewAdvisor wires the assessment pipeline. narrator may be nil, in which
// case every summary comes from the deterministic template.
func NewAdvisor(
	backend repo.Backend,
	matcher *signature.Matcher,
	scorer *Scorer,
	narrator summarizer.Summarizer,
	cfg config.AdvisorConfig,
	logger *slog.Logger,
) *Advisor {
	return &Advisor{
		backend:  backend,
		matcher:  matcher,
		scorer:   scorer,
		narrator: narrator,
		fallback: summarizer.NewTemplate(),
		cfg:      cfg,
		logger:   logger,
	}
}

// Run assesses one pending release and returns the complete report.
func (a *Advisor) Run(ctx context.Context, req models.AssessmentRequest) (models.Report, error) {
	started := time.Now()
	queries := 0

	windowDays := req.TimeWindowDays
	if windowDays <= 0 {
		windowDays = a.cfg.HistoryWindowDays
	}
	postMinutes := req.PostDeployMinutes
	if postMinutes <= 0 {
		postMinutes = a.cfg.PostDeployMinutes
	}

	records, fetchQueries, err := a.gatherHistory(ctx, req.Service, req.Platform, req.Tags, windowDays)
	queries += fetchQueries
	if err != nil {
		return models.Report{}, err
	}

	baselines, health, telemetryQueries := a.gatherTelemetry(ctx, req.Service, windowDays, postMinutes)
	queries += telemetryQueries

	sigs := signature.Build(records)
	ranked := a.matcher.Rank(sigs, signature.Context{
		Service:   req.Service,
		Platform:  req.Platform,
		Tags:      req.Tags,
		SLIHealth: health,
	}, 5)

	assessment := a.scorer.Assess(ranked, baselines, health, req.Service, req.Platform)
	summary := a.narrate(ctx, assessment, req)

	report := models.Report{
		RunID:              uuid.NewString(),
		FeatureName:        req.FeatureName,
		Service:            req.Service,
		Platform:           req.Platform,
		RiskScore:          assessment.RiskScore,
		Recommendation:     assessment.Recommendation,
		Summary:            summary,
		RiskDrivers:        assessment.TopRiskDrivers,
		MonitoringChecks:   assessment.MonitoringChecks,
		RollbackThresholds: assessment.RollbackThresholds,
		RolloutGuidance:    assessment.RolloutGuidance,
		MatchedPatterns:    assessment.MatchedSignatures,
		ScoringBreakdown: models.ScoringBreakdown{
			Similarity: assessment.SimilarityScore,
			Volatility: assessment.VolatilityScore,
			Anomaly:    assessment.AnomalyScore,
		},
		Evidence: assessment.Evidence,
		AgentMetrics: models.RunMetrics{
			LatencyMs:         float64(time.Since(started).Microseconds()) / 1000,
			BackendQueryCount: queries,
			SignaturesMatched: len(ranked),
		},
		Timestamp: time.Now().UTC(),
	}

	a.logger.Info("assessment complete",
		"run_id", report.RunID,
		"service", req.Service,
		"feature", req.FeatureName,
		"risk_score", report.RiskScore,
		"recommendation", report.Recommendation,
		"signatures", len(ranked),
		"queries", queries,
		"latency_ms", report.AgentMetrics.LatencyMs)

	return report, nil
}

// gatherHistory fetches revert events, broadening the search when the
// direct query finds nothing: first a wider window, then one query per
// release tag. Duplicate events are collapsed by ID.
func (a *Advisor) gatherHistory(ctx context.Context, service, platform string, tags []string, windowDays int) ([]models.RevertRecord, int, error) {
	queries := 1
	records, err := a.backend.FetchRevertEvents(ctx, service, platform, windowDays)
	if err != nil {
		return nil, queries, err
	}
	if len(records) > 0 {
		return records, queries, nil
	}

	a.logger.Debug("no revert history in window, broadening search",
		"service", service, "window_days", windowDays)

	queries++
	records, err = a.backend.FetchRevertEvents(ctx, service, platform, windowDays*broadenFactor)
	if err != nil {
		return nil, queries, err
	}
	if len(records) > 0 {
		return records, queries, nil
	}

	seen := make(map[string]struct{})
	merged := make([]models.RevertRecord, 0)
	for _, tag := range tags {
		queries++
		tagged, err := a.backend.FetchRevertEvents(ctx, tag, platform, windowDays*broadenFactor)
		if err != nil {
			a.logger.Warn("tag history query failed", "tag", tag, "error", err)
			continue
		}
		for _, rec := range tagged {
			if _, dup := seen[rec.ID]; dup {
				continue
			}
			seen[rec.ID] = struct{}{}
			merged = append(merged, rec)
		}
	}
	return merged, queries, nil
}

// gatherTelemetry collects baseline and current health for every key SLI.
// A failed or empty lookup drops that SLI from scoring rather than
// failing the run.
func (a *Advisor) gatherTelemetry(ctx context.Context, service string, windowDays, postMinutes int) (map[string]models.SLIBaseline, map[string]models.SLICurrentHealth, int) {
	queries := 0
	baselines := make(map[string]models.SLIBaseline, len(a.cfg.KeySLIs))
	health := make(map[string]models.SLICurrentHealth, len(a.cfg.KeySLIs))

	for _, sli := range a.cfg.KeySLIs {
		queries++
		baseline, err := a.backend.FetchBaseline(ctx, service, sli, windowDays)
		if err != nil {
			a.logger.Warn("baseline fetch failed", "service", service, "sli", sli, "error", err)
			continue
		}
		if baseline.Avg == 0 && baseline.P99 == 0 {
			continue
		}
		baselines[sli] = baseline

		queries++
		current, err := a.backend.FetchCurrentHealth(ctx, service, sli, postMinutes)
		if err != nil {
			a.logger.Warn("health fetch failed", "service", service, "sli", sli, "error", err)
			continue
		}
		health[sli] = current
	}
	return baselines, health, queries
}

// narrate prefers the generated summary and falls back to the template on
// any failure, so a report always carries a narrative.
func (a *Advisor) narrate(ctx context.Context, assessment models.RiskAssessment, req models.AssessmentRequest) models.Summary {
	if a.narrator != nil {
		summary, err := a.narrator.Summarize(ctx, assessment, req.FeatureName, req.Service, req.Platform)
		if err == nil {
			return summary
		}
		a.logger.Warn("summary generation failed, using template", "error", err)
	}
	summary, _ := a.fallback.Summarize(ctx, assessment, req.FeatureName, req.Service, req.Platform)
	return summary
}

// Insights aggregates the whole revert corpus per service.
func (a *Advisor) Insights(ctx context.Context) ([]models.CorpusInsight, error) {
	records, err := a.backend.FetchRevertEvents(ctx, "", "", insightWindowDays)
	if err != nil {
		return nil, err
	}
	return signature.MineInsights(signature.Build(records)), nil
}

// History lists the raw revert records for one service, or all services
// when service is empty.
func (a *Advisor) History(ctx context.Context, service string) ([]models.RevertRecord, error) {
	return a.backend.FetchRevertEvents(ctx, service, "", insightWindowDays)
}

// Telemetry reports current health for every key SLI of a service.
func (a *Advisor) Telemetry(ctx context.Context, service string, windowMinutes int) (map[string]models.SLICurrentHealth, error) {
	if windowMinutes <= 0 {
		windowMinutes = a.cfg.PostDeployMinutes
	}
	_, health, _ := a.gatherTelemetry(ctx, service, a.cfg.HistoryWindowDays, windowMinutes)
	return health, nil
}

// Incidents flags live anomalies in a service's current telemetry.
func (a *Advisor) Incidents(ctx context.Context, service string, windowMinutes int) ([]models.Incident, error) {
	health, err := a.Telemetry(ctx, service, windowMinutes)
	if err != nil {
		return nil, err
	}
	return detector.DetectIncidents(time.Now().UTC(), service, health), nil
}
