package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"
)

type revertEvent struct {
	ID                 string                        `json:"id"`
	Date               string                        `json:"date"`
	Feature            string                        `json:"feature"`
	Service            string                        `json:"service"`
	Platform           string                        `json:"platform"`
	Description        string                        `json:"description"`
	RootCause          string                        `json:"root_cause"`
	Trigger            string                        `json:"trigger"`
	TimeToDetectionMin int                           `json:"time_to_detection_min"`
	TimeToRollbackMin  int                           `json:"time_to_rollback_min"`
	ImpactedSLIs       map[string]map[string]float64 `json:"impacted_slis"`
	Tags               []string                      `json:"tags"`
}

type seriesPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/v1/events", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		writeJSON(w, map[string]any{
			"events": []revertEvent{
				{
					ID:                 "REV-2041",
					Date:               time.Now().AddDate(0, 0, -12).Format(time.RFC3339),
					Feature:            "playback-prefetch",
					Service:            "playback-api",
					Platform:           "android",
					Description:        "prefetch flood pushed p99 latency past SLO",
					RootCause:          "unbounded prefetch queue on cold start",
					Trigger:            "latency_alert",
					TimeToDetectionMin: 14,
					TimeToRollbackMin:  32,
					ImpactedSLIs: map[string]map[string]float64{
						"p99_latency": {"baseline": 820, "peak": 2400},
						"error_rate":  {"baseline": 0.8, "peak": 2.1},
					},
					Tags: []string{"playback", "prefetch", "android"},
				},
				{
					ID:                 "REV-2044",
					Date:               time.Now().AddDate(0, 0, -5).Format(time.RFC3339),
					Feature:            "ads-beacon-batching",
					Service:            "playback-api",
					Platform:           "all",
					Description:        "beacon batching dropped ad impressions",
					RootCause:          "batch flush skipped on session end",
					Trigger:            "business_metric_alert",
					TimeToDetectionMin: 45,
					TimeToRollbackMin:  20,
					ImpactedSLIs: map[string]map[string]float64{
						"ad_error_rate": {"baseline": 1.2, "peak": 6.8},
					},
					Tags: []string{"ads", "beacons"},
				},
			},
		})
	})

	mux.HandleFunc("/api/v1/query", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		now := time.Now()
		series := make([]seriesPoint, 0, 30)
		for i := 29; i >= 0; i-- {
			value := 1.0 + 0.02*float64(30-i)
			if i < 5 {
				value += 0.6
			}
			series = append(series, seriesPoint{Timestamp: now.Add(-time.Duration(i) * time.Minute), Value: value})
		}
		writeJSON(w, map[string]any{"series": series})
	})

	logger := log.New(log.Writer(), "monitor-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    ":9090",
		Handler: logRequests(logger, mux),
	}

	logger.Println("listening on :9090")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func enforcePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
