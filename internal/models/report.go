package models

import "time"

// SummarySource discriminates how the narrative summary was produced.
type SummarySource string

const (
	// SummaryGenerated marks a summary produced by the LLM backend.
	SummaryGenerated SummarySource = "generated"
	// SummaryTemplate marks the deterministic template fallback.
	SummaryTemplate SummarySource = "template"
)

// Summary is the narrative portion of a report.
type Summary struct {
	Text   string        `json:"text"`
	Source SummarySource `json:"source"`
}

// AssessmentRequest describes the release under evaluation.
type AssessmentRequest struct {
	FeatureName       string   `json:"feature_name"`
	Service           string   `json:"service"`
	Platform          string   `json:"platform,omitempty"`
	TimeWindowDays    int      `json:"time_window_days,omitempty"`
	Tags              []string `json:"tags,omitempty"`
	PostDeployMinutes int      `json:"post_deploy_minutes,omitempty"`
}

// RunMetrics carries per-run agent telemetry.
type RunMetrics struct {
	LatencyMs         float64 `json:"latency_ms"`
	BackendQueryCount int     `json:"backend_query_count"`
	SignaturesMatched int     `json:"signatures_matched"`
}

// Report is the final response object: the assessment plus its narrative
// summary and run metadata.
type Report struct {
	RunID              string              `json:"run_id"`
	FeatureName        string              `json:"feature_name"`
	Service            string              `json:"service"`
	Platform           string              `json:"platform"`
	RiskScore          int                 `json:"risk_score"`
	Recommendation     Recommendation      `json:"recommendation"`
	Summary            Summary             `json:"summary"`
	RiskDrivers        []string            `json:"risk_drivers"`
	MonitoringChecks   []string            `json:"monitoring_checks"`
	RollbackThresholds []RollbackThreshold `json:"rollback_thresholds"`
	RolloutGuidance    string              `json:"rollout_guidance"`
	MatchedPatterns    []MatchedSignature  `json:"matched_patterns"`
	ScoringBreakdown   ScoringBreakdown    `json:"scoring_breakdown"`
	Evidence           []string            `json:"evidence"`
	AgentMetrics       RunMetrics          `json:"agent_metrics"`
	Timestamp          time.Time           `json:"timestamp"`
}

// ScoringBreakdown exposes the three weighted sub-scores.
type ScoringBreakdown struct {
	Similarity float64 `json:"similarity"`
	Volatility float64 `json:"volatility"`
	Anomaly    float64 `json:"anomaly"`
}

// Incident is a live anomaly detected from current telemetry, used to
// trigger downstream reproduction testing.
type Incident struct {
	Type         string    `json:"type"`
	Severity     Severity  `json:"severity"`
	Service      string    `json:"service"`
	SLI          string    `json:"sli"`
	Timestamp    time.Time `json:"timestamp"`
	CurrentValue float64   `json:"current_value"`
	BaselineAvg  float64   `json:"baseline_avg"`
	SpikeRatio   float64   `json:"spike_ratio"`
	Description  string    `json:"description"`
}

// CorpusInsight aggregates the revert history for one service.
type CorpusInsight struct {
	Service       string   `json:"service"`
	RevertCount   int      `json:"revert_count"`
	Prevalence    float64  `json:"prevalence"`
	AvgSpikeRatio float64  `json:"avg_spike_ratio"`
	TopSLIs       []string `json:"top_slis"`
	TopTags       []string `json:"top_tags"`
	LastRevert    string   `json:"last_revert"`
}
