package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/releasegate/riskadvisor/internal/config"
	"github.com/releasegate/riskadvisor/internal/models"
)

// Scorer combines ranked signature similarity, baseline volatility and
// live anomaly presence into a bounded 0-100 risk score with supporting
// evidence. It is pure: no I/O, no shared state, fresh output per call.
type Scorer struct {
	cfg config.ScoringConfig
}

// NewScorer constructs a Scorer with the supplied scoring constants.
func NewScorer(cfg config.ScoringConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Assess produces a complete risk assessment. Empty inputs degrade the
// affected sub-score to zero; the function never fails on well-typed
// input.
func (s *Scorer) Assess(
	ranked []models.RankedSignature,
	baselines map[string]models.SLIBaseline,
	health map[string]models.SLICurrentHealth,
	service, platform string,
) models.RiskAssessment {
	similarityScore := s.similarityScore(ranked)

	volSignals := s.classifyVolatility(baselines)
	volatilityScore := s.volatilityScore(volSignals)

	anomalous, elevated := s.partitionHealth(health)
	anomalyScore := s.anomalyScore(anomalous, elevated, len(health))

	riskScore := int(math.Round(similarityScore + volatilityScore + anomalyScore))
	if riskScore < 0 {
		riskScore = 0
	}
	if riskScore > 100 {
		riskScore = 100
	}

	recommendation, guidance := s.recommend(riskScore, anomalous)

	highVol := make([]string, 0)
	highCount, medCount := 0, 0
	for _, sig := range volSignals {
		switch sig.level {
		case volHigh:
			highCount++
			highVol = append(highVol, sig.sli)
		case volMedium:
			medCount++
		}
	}

	evidence := []string{
		fmt.Sprintf("Similarity score: %.1f/%g (top match: %s)",
			similarityScore, s.cfg.WeightSimilarity, topMatchID(ranked)),
		fmt.Sprintf("Volatility score: %.1f/%g (%d high, %d medium volatility SLIs)",
			volatilityScore, s.cfg.WeightVolatility, highCount, medCount),
		fmt.Sprintf("Anomaly score: %.1f/%g (%d anomalous, %d elevated SLIs)",
			anomalyScore, s.cfg.WeightAnomaly, len(anomalous), len(elevated)),
	}

	return models.RiskAssessment{
		RiskScore:          riskScore,
		Recommendation:     recommendation,
		SimilarityScore:    similarityScore,
		VolatilityScore:    volatilityScore,
		AnomalyScore:       anomalyScore,
		TopRiskDrivers:     s.buildRiskDrivers(ranked, anomalous, elevated, highVol),
		MatchedSignatures:  s.matchedSignatures(ranked),
		MonitoringChecks:   s.buildMonitoringChecks(anomalous, elevated, baselines, ranked),
		RollbackThresholds: s.buildRollbackThresholds(baselines, health),
		RolloutGuidance:    guidance,
		Evidence:           evidence,
	}
}

// similarityScore blends the top match with the average of the top three,
// scaled to the similarity weight.
func (s *Scorer) similarityScore(ranked []models.RankedSignature) float64 {
	if len(ranked) == 0 {
		return 0
	}
	top := ranked[0].Similarity
	n := len(ranked)
	if n > 3 {
		n = 3
	}
	sum := 0.0
	for _, r := range ranked[:n] {
		sum += r.Similarity
	}
	raw := 0.6*top + 0.4*sum/float64(n)
	return round1(raw * s.cfg.WeightSimilarity)
}

type volLevel int

const (
	volLow volLevel = iota
	volMedium
	volHigh
)

type volSignal struct {
	sli   string
	cv    float64
	level volLevel
}

// classifyVolatility computes the coefficient of variation per baseline
// SLI, flooring the denominator at 1. SLIs are visited in sorted name
// order so driver output stays deterministic.
func (s *Scorer) classifyVolatility(baselines map[string]models.SLIBaseline) []volSignal {
	signals := make([]volSignal, 0, len(baselines))
	for _, sli := range sortedKeys(baselines) {
		bl := baselines[sli]
		denom := bl.Avg
		if denom < 1 {
			denom = 1
		}
		cv := bl.StdDev / denom
		level := volLow
		if cv > s.cfg.CVHigh {
			level = volHigh
		} else if cv > s.cfg.CVMedium {
			level = volMedium
		}
		signals = append(signals, volSignal{sli: sli, cv: cv, level: level})
	}
	return signals
}

func (s *Scorer) volatilityScore(signals []volSignal) float64 {
	if len(signals) == 0 {
		return 0
	}
	weighted := 0.0
	for _, sig := range signals {
		switch sig.level {
		case volHigh:
			weighted += 1.0
		case volMedium:
			weighted += 0.5
		}
	}
	ratio := weighted / float64(len(signals))
	if ratio > 1 {
		ratio = 1
	}
	return round1(ratio * s.cfg.WeightVolatility)
}

// partitionHealth splits current health into anomalous SLIs and elevated
// (flagged below the anomaly bar but deviating past the watch threshold).
// Both lists come back in sorted name order.
func (s *Scorer) partitionHealth(health map[string]models.SLICurrentHealth) (anomalous, elevated []string) {
	for _, sli := range sortedKeys(health) {
		h := health[sli]
		if h.IsAnomalous {
			anomalous = append(anomalous, sli)
		} else if h.DeviationPct > s.cfg.WatchDeviationPct {
			elevated = append(elevated, sli)
		}
	}
	return anomalous, elevated
}

func (s *Scorer) anomalyScore(anomalous, elevated []string, total int) float64 {
	if total < 1 {
		total = 1
	}
	ratio := (float64(len(anomalous))*1.0 + float64(len(elevated))*0.4) / float64(total)
	if ratio > 1 {
		ratio = 1
	}
	return round1(ratio * s.cfg.WeightAnomaly)
}

func (s *Scorer) recommend(riskScore int, anomalous []string) (models.Recommendation, string) {
	switch {
	case riskScore <= s.cfg.ShipMax:
		return models.RecommendShip,
			"Safe to proceed with standard rollout. Continue monitoring key SLIs for 30 minutes post-deploy."
	case riskScore <= s.cfg.RampMax:
		return models.RecommendRamp,
			"Proceed with gradual ramp: 1% -> 5% -> 25% -> 100%. Hold at each stage for 15 minutes and validate SLIs. Set automatic rollback triggers on anomalous metrics."
	default:
		flagged := "flagged SLIs"
		if len(anomalous) > 0 {
			limit := len(anomalous)
			if limit > 3 {
				limit = 3
			}
			flagged = strings.Join(anomalous[:limit], ", ")
		}
		return models.RecommendHold, fmt.Sprintf(
			"Hold release until the following are validated: %s return to baseline, and the similarity to past rollback patterns is addressed. Consider additional load testing before proceeding.",
			flagged)
	}
}

// buildRiskDrivers appends drivers in fixed priority order and truncates
// to five; a missing category is simply omitted.
func (s *Scorer) buildRiskDrivers(ranked []models.RankedSignature, anomalous, elevated, highVol []string) []string {
	drivers := make([]string, 0, 5)

	if len(ranked) > 0 {
		top := ranked[0].Signature
		drivers = append(drivers, fmt.Sprintf(
			"High similarity to past rollback %s (%s, %s): %s",
			top.RevertID, top.Feature, truncateDate(top.Date), top.Description))
	}
	if len(anomalous) > 0 {
		drivers = append(drivers, fmt.Sprintf(
			"Current anomalies detected in: %s", strings.Join(anomalous, ", ")))
	}
	if len(elevated) > 0 {
		drivers = append(drivers, fmt.Sprintf(
			"Elevated (but not anomalous) metrics: %s", strings.Join(elevated, ", ")))
	}
	if len(highVol) > 0 {
		drivers = append(drivers, fmt.Sprintf(
			"High baseline volatility in: %s (harder to detect regressions quickly)",
			strings.Join(highVol, ", ")))
	}
	if len(ranked) >= 2 {
		second := ranked[1].Signature
		drivers = append(drivers, fmt.Sprintf(
			"Secondary pattern match: %s (%s)", second.RevertID, second.Feature))
	}

	if len(drivers) > 5 {
		drivers = drivers[:5]
	}
	return drivers
}

func (s *Scorer) matchedSignatures(ranked []models.RankedSignature) []models.MatchedSignature {
	limit := len(ranked)
	if limit > 3 {
		limit = 3
	}
	matched := make([]models.MatchedSignature, 0, limit)
	for _, r := range ranked[:limit] {
		sig := r.Signature
		names := make([]string, 0, len(sig.ImpactedSLIs))
		for name := range sig.ImpactedSLIs {
			names = append(names, name)
		}
		sort.Strings(names)
		matched = append(matched, models.MatchedSignature{
			RevertID:      sig.RevertID,
			Date:          sig.Date,
			Feature:       sig.Feature,
			Service:       sig.Service,
			Platform:      sig.Platform,
			Similarity:    math.Round(r.Similarity*1000) / 1000,
			Severity:      models.SeverityTierFor(sig.MaxSpikeRatio(), s.cfg.SpikeCritical, s.cfg.SpikeHigh, s.cfg.SpikeMedium),
			RootCause:     sig.RootCause,
			Description:   sig.Description,
			ImpactedSLIs:  names,
			MaxSpikeRatio: round1(sig.MaxSpikeRatio()),
		})
	}
	return matched
}

// buildMonitoringChecks emits one CRITICAL line per anomalous SLI, one
// WARNING line per elevated SLI, and one WATCH line per SLI impacted in
// the top-2 matched rollbacks that is in neither set. When nothing needs
// watching, a single standard-monitoring line is returned.
func (s *Scorer) buildMonitoringChecks(
	anomalous, elevated []string,
	baselines map[string]models.SLIBaseline,
	ranked []models.RankedSignature,
) []string {
	checks := make([]string, 0)

	for _, sli := range anomalous {
		checks = append(checks, fmt.Sprintf(
			"CRITICAL: Monitor %s - currently anomalous (baseline avg: %s)",
			sli, baselineAvg(baselines, sli)))
	}
	for _, sli := range elevated {
		checks = append(checks, fmt.Sprintf(
			"WARNING: Watch %s - elevated above baseline (baseline avg: %s)",
			sli, baselineAvg(baselines, sli)))
	}

	covered := make(map[string]struct{}, len(anomalous)+len(elevated))
	for _, sli := range anomalous {
		covered[sli] = struct{}{}
	}
	for _, sli := range elevated {
		covered[sli] = struct{}{}
	}

	sigSLIs := make(map[string]struct{})
	limit := len(ranked)
	if limit > 2 {
		limit = 2
	}
	for _, r := range ranked[:limit] {
		for name := range r.Signature.ImpactedSLIs {
			sigSLIs[name] = struct{}{}
		}
	}
	watch := make([]string, 0, len(sigSLIs))
	for name := range sigSLIs {
		if _, ok := covered[name]; !ok {
			watch = append(watch, name)
		}
	}
	sort.Strings(watch)
	for _, sli := range watch {
		checks = append(checks, fmt.Sprintf(
			"WATCH: Monitor %s - impacted in similar past rollback", sli))
	}

	if len(checks) == 0 {
		checks = append(checks, "Standard monitoring: all key SLIs within normal range")
	}
	return checks
}

// buildRollbackThresholds derives warn and rollback levels per baseline
// SLI: warn at p99, rollback at p99 plus two standard deviations.
func (s *Scorer) buildRollbackThresholds(
	baselines map[string]models.SLIBaseline,
	health map[string]models.SLICurrentHealth,
) []models.RollbackThreshold {
	thresholds := make([]models.RollbackThreshold, 0, len(baselines))
	for _, sli := range sortedKeys(baselines) {
		bl := baselines[sli]
		p99 := bl.P99
		if p99 == 0 {
			p99 = bl.Avg * 2
		}
		stddev := bl.StdDev
		if stddev == 0 {
			stddev = bl.Avg * 0.1
		}
		warnAt := round2(p99)
		rollbackAt := round2(p99 + 2*stddev)

		current := bl.Avg
		if h, ok := health[sli]; ok {
			current = h.CurrentValue
		}

		status := models.ThresholdOK
		if current > rollbackAt {
			status = models.ThresholdBreach
		} else if current > warnAt {
			status = models.ThresholdWarning
		}

		thresholds = append(thresholds, models.RollbackThreshold{
			SLI:               sli,
			BaselineAvg:       bl.Avg,
			WarnThreshold:     warnAt,
			RollbackThreshold: rollbackAt,
			CurrentValue:      current,
			Status:            status,
		})
	}
	return thresholds
}

func baselineAvg(baselines map[string]models.SLIBaseline, sli string) string {
	bl, ok := baselines[sli]
	if !ok {
		return "?"
	}
	return fmt.Sprintf("%g", bl.Avg)
}

func topMatchID(ranked []models.RankedSignature) string {
	if len(ranked) == 0 {
		return "none"
	}
	return ranked[0].Signature.RevertID
}

func truncateDate(date string) string {
	if len(date) > 10 {
		return date[:10]
	}
	return date
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
