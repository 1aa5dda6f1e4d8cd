package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeError labels assessments that failed before producing a score.
	OutcomeError = "error"
)

var (
	assessmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "risk_advisor",
			Name:      "assessments_total",
			Help:      "Total number of assessments handled, partitioned by recommendation.",
		},
		[]string{"recommendation"},
	)

	assessmentDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "risk_advisor",
			Name:      "assessment_seconds",
			Help:      "Assessment latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 10},
		},
	)

	backendQueriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "risk_advisor",
			Name:      "backend_queries_total",
			Help:      "Total monitoring backend queries issued by assessment runs.",
		},
	)

	riskScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "risk_advisor",
			Name:      "risk_score",
			Help:      "Most recent risk score per service.",
		},
		[]string{"service"},
	)
)

// Register attaches risk-advisor collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		assessmentsTotal,
		assessmentDurationSeconds,
		backendQueriesTotal,
		riskScore,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveAssessment records one assessment's duration and recommendation label.
func ObserveAssessment(duration time.Duration, recommendation string) {
	assessmentsTotal.WithLabelValues(recommendation).Inc()
	if duration < 0 {
		duration = 0
	}
	assessmentDurationSeconds.Observe(duration.Seconds())
}

// AddBackendQueries counts monitoring backend round-trips.
func AddBackendQueries(n int) {
	if n > 0 {
		backendQueriesTotal.Add(float64(n))
	}
}

// SetRiskScore publishes the latest score for a service.
func SetRiskScore(service string, score int) {
	riskScore.WithLabelValues(service).Set(float64(score))
}
