// Package detector derives SLI baseline statistics and current-health
// classifications from raw metric series, and flags live incidents that
// warrant reproduction testing.
package detector

import (
	"math"
	"sort"

	"github.com/releasegate/riskadvisor/internal/models"
)

// BaselineStats summarises a metric series into the baseline shape the
// risk scorer consumes: mean, p95, p99 and standard deviation. An empty
// series yields a zero-valued baseline.
func BaselineStats(sli, service string, windowDays int, points []models.MetricPoint) models.SLIBaseline {
	baseline := models.SLIBaseline{
		SLI:        sli,
		Service:    service,
		WindowDays: windowDays,
	}
	if len(points) == 0 {
		return baseline
	}

	values := make([]float64, 0, len(points))
	for _, p := range points {
		values = append(values, p.Value)
	}

	baseline.Avg = round3(mean(values))
	baseline.P95 = round3(percentile(values, 0.95))
	baseline.P99 = round3(percentile(values, 0.99))
	baseline.StdDev = round3(stddev(values))
	return baseline
}

// CurrentHealth compares the post-deploy series against a baseline. The
// deviation threshold declares the SLI anomalous when the absolute
// deviation percentage exceeds it.
func CurrentHealth(baseline models.SLIBaseline, windowMinutes int, deviationThresholdPct float64, points []models.MetricPoint) models.SLICurrentHealth {
	health := models.SLICurrentHealth{
		SLI:           baseline.SLI,
		Service:       baseline.Service,
		BaselineAvg:   baseline.Avg,
		WindowMinutes: windowMinutes,
	}
	if len(points) == 0 {
		return health
	}

	values := make([]float64, 0, len(points))
	for _, p := range points {
		values = append(values, p.Value)
	}
	current := mean(values)

	base := baseline.Avg
	if base == 0 {
		base = 1
	}
	deviation := (current - base) / base * 100

	health.CurrentValue = round3(current)
	health.DeviationPct = round1(deviation)
	health.IsAnomalous = math.Abs(deviation) > deviationThresholdPct
	return health
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	variance := 0.0
	for _, v := range values {
		variance += (v - m) * (v - m)
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

func percentile(values []float64, p float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	idx := int(p * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
