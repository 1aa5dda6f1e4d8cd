package models

import "time"

// MetricPoint is a single metric sample returned by the monitoring backend.
type MetricPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}
