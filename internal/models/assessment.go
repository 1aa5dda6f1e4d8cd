package models

// Recommendation is the actionable outcome of a risk assessment.
type Recommendation string

const (
	RecommendShip Recommendation = "ship"
	RecommendRamp Recommendation = "ramp"
	RecommendHold Recommendation = "hold"
)

// MatchedSignature is the display projection of a ranked signature
// included in the assessment output.
type MatchedSignature struct {
	RevertID      string   `json:"revert_id"`
	Date          string   `json:"date"`
	Feature       string   `json:"feature"`
	Service       string   `json:"service"`
	Platform      string   `json:"platform"`
	Similarity    float64  `json:"similarity"`
	Severity      Severity `json:"severity"`
	RootCause     string   `json:"root_cause"`
	Description   string   `json:"description"`
	ImpactedSLIs  []string `json:"impacted_slis"`
	MaxSpikeRatio float64  `json:"max_spike_ratio"`
}

// RollbackThreshold suggests automatic rollback trigger levels for one SLI.
type RollbackThreshold struct {
	SLI               string  `json:"sli"`
	BaselineAvg       float64 `json:"baseline_avg"`
	WarnThreshold     float64 `json:"warn_threshold"`
	RollbackThreshold float64 `json:"rollback_threshold"`
	CurrentValue      float64 `json:"current_value"`
	Status            string  `json:"status"`
}

// Threshold status values.
const (
	ThresholdOK      = "OK"
	ThresholdWarning = "WARNING"
	ThresholdBreach  = "BREACH"
)

// RiskAssessment is the complete scored output for a pending release.
// RiskScore always equals round(similarity+volatility+anomaly) clamped
// to [0,100], and Recommendation is a pure function of RiskScore.
type RiskAssessment struct {
	RiskScore          int                 `json:"risk_score"`
	Recommendation     Recommendation      `json:"recommendation"`
	SimilarityScore    float64             `json:"similarity_score"`
	VolatilityScore    float64             `json:"volatility_score"`
	AnomalyScore       float64             `json:"anomaly_score"`
	TopRiskDrivers     []string            `json:"top_risk_drivers"`
	MatchedSignatures  []MatchedSignature  `json:"matched_signatures"`
	MonitoringChecks   []string            `json:"monitoring_checks"`
	RollbackThresholds []RollbackThreshold `json:"rollback_thresholds"`
	RolloutGuidance    string              `json:"rollout_guidance"`
	Evidence           []string            `json:"evidence"`
}
