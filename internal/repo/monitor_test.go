package repo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/releasegate/riskadvisor/internal/config"
)

func monitorForTest(t *testing.T, handler http.Handler) (*MonitorClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewMonitorClient(config.MonitorConfig{
		BaseURL:     srv.URL,
		EventsPath:  "/api/v1/events",
		MetricsPath: "/api/v1/query",
		APIKey:      "test-key",
		Timeout:     2 * time.Second,
	}, 35, 30, testFixtureLogger())
	return client, srv
}

func TestMonitorFetchRevertEvents(t *testing.T) {
	var gotPayload map[string]any
	client, _ := monitorForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/events" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("DD-API-KEY") != "test-key" {
			t.Errorf("missing api key header")
		}
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		_, _ = w.Write([]byte(`{"events":[{"id":"REV-9","service":"playback-api","impacted_slis":{"error_rate":{"baseline":1,"peak":4}}}]}`))
	}))

	events, err := client.FetchRevertEvents(context.Background(), "playback-api", "android", 30)
	if err != nil {
		t.Fatalf("fetch events: %v", err)
	}
	if len(events) != 1 || events[0].ID != "REV-9" {
		t.Fatalf("unexpected events: %+v", events)
	}
	if events[0].ImpactedSLIs["error_rate"].Peak != 4 {
		t.Errorf("impacted SLIs lost in decode: %+v", events[0].ImpactedSLIs)
	}
	if gotPayload["service"] != "playback-api" || gotPayload["window_days"] != float64(30) {
		t.Errorf("unexpected request payload: %v", gotPayload)
	}
}

func TestMonitorFetchBaselineFromSeries(t *testing.T) {
	client, _ := monitorForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC()
		resp := map[string]any{"series": []map[string]any{
			{"timestamp": now.Add(-2 * time.Minute).Format(time.RFC3339), "value": 1.0},
			{"timestamp": now.Add(-1 * time.Minute).Format(time.RFC3339), "value": 2.0},
			{"timestamp": now.Format(time.RFC3339), "value": 3.0},
		}}
		_ = json.NewEncoder(w).Encode(resp)
	}))

	baseline, err := client.FetchBaseline(context.Background(), "playback-api", "error_rate", 30)
	if err != nil {
		t.Fatalf("fetch baseline: %v", err)
	}
	if baseline.Avg != 2.0 {
		t.Errorf("expected avg 2.0, got %v", baseline.Avg)
	}
	if baseline.SLI != "error_rate" || baseline.WindowDays != 30 {
		t.Errorf("identity fields lost: %+v", baseline)
	}
}

func TestMonitorEmptySeriesYieldsZeroBaseline(t *testing.T) {
	client, _ := monitorForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"series":[]}`))
	}))

	baseline, err := client.FetchBaseline(context.Background(), "svc", "error_rate", 30)
	if err != nil {
		t.Fatalf("empty series should not error: %v", err)
	}
	if baseline.Avg != 0 || baseline.P99 != 0 {
		t.Errorf("expected zero baseline, got %+v", baseline)
	}
}

func TestMonitorBackendError(t *testing.T) {
	client, _ := monitorForTest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	if _, err := client.FetchRevertEvents(context.Background(), "svc", "", 30); err == nil {
		t.Fatal("expected an error on HTTP 500")
	}
}

func TestMonitorUnconfigured(t *testing.T) {
	client := NewMonitorClient(config.MonitorConfig{}, 35, 30, testFixtureLogger())
	if _, err := client.FetchRevertEvents(context.Background(), "svc", "", 30); err == nil {
		t.Fatal("expected an error without a base URL")
	}
}
