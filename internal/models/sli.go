package models

// SLIBaseline describes the historical distribution of one SLI on one
// service over a lookback window.
type SLIBaseline struct {
	SLI        string  `json:"sli"`
	Service    string  `json:"service"`
	WindowDays int     `json:"window_days"`
	Avg        float64 `json:"avg"`
	P95        float64 `json:"p95"`
	P99        float64 `json:"p99"`
	StdDev     float64 `json:"stddev"`
}

// SLICurrentHealth captures the post-deploy state of one SLI. IsAnomalous
// is set by the supplying collaborator; the scoring core treats it as
// opaque.
type SLICurrentHealth struct {
	SLI           string  `json:"sli"`
	Service       string  `json:"service"`
	CurrentValue  float64 `json:"current_value"`
	BaselineAvg   float64 `json:"baseline_avg"`
	DeviationPct  float64 `json:"deviation_pct"`
	IsAnomalous   bool    `json:"is_anomalous"`
	WindowMinutes int     `json:"window_minutes"`
}
