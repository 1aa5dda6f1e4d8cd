package models

// SLIImpact records how far one SLI moved during a revert incident.
type SLIImpact struct {
	Baseline float64 `yaml:"baseline" json:"baseline"`
	Peak     float64 `yaml:"peak" json:"peak"`
	Unit     string  `yaml:"unit,omitempty" json:"unit,omitempty"`
}

// RevertRecord is a raw historical revert event as supplied by the
// monitoring backend or the YAML fixture. Missing keys take zero values
// and are defaulted during signature building; a field of the wrong type
// fails in the decoder before it reaches the builder.
type RevertRecord struct {
	ID                  string               `yaml:"id" json:"id"`
	Date                string               `yaml:"date" json:"date"`
	Feature             string               `yaml:"feature" json:"feature"`
	Service             string               `yaml:"service" json:"service"`
	Platform            string               `yaml:"platform" json:"platform"`
	Description         string               `yaml:"description" json:"description"`
	RootCause           string               `yaml:"root_cause" json:"root_cause"`
	Trigger             string               `yaml:"trigger" json:"trigger"`
	TimeToDetectionMin  int                  `yaml:"time_to_detection_min" json:"time_to_detection_min"`
	TimeToRollbackMin   int                  `yaml:"time_to_rollback_min" json:"time_to_rollback_min"`
	ImpactedSLIs        map[string]SLIImpact `yaml:"impacted_slis" json:"impacted_slis"`
	Tags                []string             `yaml:"tags" json:"tags"`
}

// Severity captures impact levels derived from spike magnitude.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// FailureSignature is the structured fingerprint of one historical
// rollback, immutable after construction.
type FailureSignature struct {
	RevertID           string               `json:"revert_id"`
	Date               string               `json:"date"`
	Feature            string               `json:"feature"`
	Service            string               `json:"service"`
	Platform           string               `json:"platform"`
	Description        string               `json:"description"`
	RootCause          string               `json:"root_cause"`
	Trigger            string               `json:"trigger"`
	TimeToDetectionMin int                  `json:"time_to_detection_min"`
	TimeToRollbackMin  int                  `json:"time_to_rollback_min"`
	ImpactedSLIs       map[string]SLIImpact `json:"impacted_slis"`
	Tags               []string             `json:"tags"`
}

// SLINames returns the set of impacted SLI names.
func (s FailureSignature) SLINames() map[string]struct{} {
	names := make(map[string]struct{}, len(s.ImpactedSLIs))
	for name := range s.ImpactedSLIs {
		names[name] = struct{}{}
	}
	return names
}

// spikeRatios computes peak/baseline per impacted SLI, flooring the
// baseline at 1 so a zero baseline never divides.
func (s FailureSignature) spikeRatios() []float64 {
	ratios := make([]float64, 0, len(s.ImpactedSLIs))
	for _, impact := range s.ImpactedSLIs {
		baseline := impact.Baseline
		if baseline == 0 {
			baseline = 1
		}
		peak := impact.Peak
		if peak == 0 {
			peak = baseline
		}
		ratios = append(ratios, peak/baseline)
	}
	return ratios
}

// MaxSpikeRatio returns the largest peak/baseline ratio across impacted SLIs.
func (s FailureSignature) MaxSpikeRatio() float64 {
	ratios := s.spikeRatios()
	if len(ratios) == 0 {
		return 1.0
	}
	max := ratios[0]
	for _, r := range ratios[1:] {
		if r > max {
			max = r
		}
	}
	return max
}

// AvgSpikeRatio returns the mean peak/baseline ratio across impacted SLIs.
func (s FailureSignature) AvgSpikeRatio() float64 {
	ratios := s.spikeRatios()
	if len(ratios) == 0 {
		return 1.0
	}
	sum := 0.0
	for _, r := range ratios {
		sum += r
	}
	return sum / float64(len(ratios))
}

// SeverityTier categorises the incident by its maximum spike ratio.
// The 10/4/2 boundaries are empirical; SeverityTierFor allows callers to
// supply tuned values.
func (s FailureSignature) SeverityTier() Severity {
	return SeverityTierFor(s.MaxSpikeRatio(), 10, 4, 2)
}

// SeverityTierFor maps a spike ratio onto a severity tier given the three
// tier boundaries.
func SeverityTierFor(ratio, critical, high, medium float64) Severity {
	switch {
	case ratio >= critical:
		return SeverityCritical
	case ratio >= high:
		return SeverityHigh
	case ratio >= medium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// RankedSignature pairs a signature with its similarity to the current
// release context. Rankings are ordered descending by similarity with
// corpus order preserved among ties.
type RankedSignature struct {
	Signature  FailureSignature `json:"signature"`
	Similarity float64          `json:"similarity"`
}
