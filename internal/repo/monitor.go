package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/releasegate/riskadvisor/internal/config"
	"github.com/releasegate/riskadvisor/internal/detector"
	"github.com/releasegate/riskadvisor/internal/models"
)

// Backend serves the three lookups an assessment run needs: historical
// revert events, SLI baselines, and current SLI health. An empty service
// in FetchRevertEvents means "all services".
type Backend interface {
	FetchRevertEvents(ctx context.Context, service, platform string, windowDays int) ([]models.RevertRecord, error)
	FetchBaseline(ctx context.Context, service, sli string, windowDays int) (models.SLIBaseline, error)
	FetchCurrentHealth(ctx context.Context, service, sli string, windowMinutes int) (models.SLICurrentHealth, error)
}

// MonitorClient talks to the monitoring backend that records deploy and
// rollback events and serves raw metric series. Baselines and health are
// derived locally from the fetched series.
type MonitorClient struct {
	baseURL     string
	eventsPath  string
	metricsPath string
	apiKey      string
	appKey      string

	anomalousDeviationPct float64
	baselineWindowDays    int

	httpClient *http.Client
	logger     *slog.Logger
}

// NewMonitorClient constructs a client targeting the configured backend.
func NewMonitorClient(cfg config.MonitorConfig, anomalousDeviationPct float64, baselineWindowDays int, logger *slog.Logger) *MonitorClient {
	return &MonitorClient{
		baseURL:               strings.TrimRight(cfg.BaseURL, "/"),
		eventsPath:            cfg.EventsPath,
		metricsPath:           cfg.MetricsPath,
		apiKey:                cfg.APIKey,
		appKey:                cfg.AppKey,
		anomalousDeviationPct: anomalousDeviationPct,
		baselineWindowDays:    baselineWindowDays,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// FetchRevertEvents queries the backend for rollback events in the window.
// A malformed event fails the whole fetch: partial corpora produce
// misleading risk scores.
func (c *MonitorClient) FetchRevertEvents(ctx context.Context, service, platform string, windowDays int) ([]models.RevertRecord, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("monitor backend not configured")
	}

	payload := map[string]interface{}{
		"service":     service,
		"platform":    platform,
		"window_days": windowDays,
	}

	var response struct {
		Events []models.RevertRecord `json:"events"`
	}
	if err := c.postJSON(ctx, c.resolvePath(c.eventsPath), payload, &response); err != nil {
		return nil, fmt.Errorf("monitor events request failed: %w", err)
	}
	return response.Events, nil
}

// FetchMetricSeries queries the backend for raw samples of one SLI. An
// empty series is not an error: callers skip SLIs with no data.
func (c *MonitorClient) FetchMetricSeries(ctx context.Context, service, sli string, start, end time.Time) ([]models.MetricPoint, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("monitor backend not configured")
	}

	payload := map[string]interface{}{
		"service": service,
		"sli":     sli,
		"start":   start.Format(time.RFC3339),
		"end":     end.Format(time.RFC3339),
	}

	var response struct {
		Series []struct {
			Timestamp time.Time `json:"timestamp"`
			Value     float64   `json:"value"`
		} `json:"series"`
	}
	if err := c.postJSON(ctx, c.resolvePath(c.metricsPath), payload, &response); err != nil {
		return nil, fmt.Errorf("monitor metrics request failed: %w", err)
	}

	points := make([]models.MetricPoint, 0, len(response.Series))
	for _, sample := range response.Series {
		points = append(points, models.MetricPoint{Timestamp: sample.Timestamp, Value: sample.Value})
	}
	return points, nil
}

// FetchBaseline derives the historical distribution of one SLI from the
// backend's raw series.
func (c *MonitorClient) FetchBaseline(ctx context.Context, service, sli string, windowDays int) (models.SLIBaseline, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -windowDays)
	points, err := c.FetchMetricSeries(ctx, service, sli, start, end)
	if err != nil {
		return models.SLIBaseline{}, err
	}
	return detector.BaselineStats(sli, service, windowDays, points), nil
}

// FetchCurrentHealth compares the post-deploy window against the SLI's
// baseline average.
func (c *MonitorClient) FetchCurrentHealth(ctx context.Context, service, sli string, windowMinutes int) (models.SLICurrentHealth, error) {
	baseline, err := c.FetchBaseline(ctx, service, sli, c.baselineWindowDays)
	if err != nil {
		return models.SLICurrentHealth{}, err
	}

	end := time.Now().UTC()
	start := end.Add(-time.Duration(windowMinutes) * time.Minute)
	points, err := c.FetchMetricSeries(ctx, service, sli, start, end)
	if err != nil {
		return models.SLICurrentHealth{}, err
	}
	return detector.CurrentHealth(baseline, windowMinutes, c.anomalousDeviationPct, points), nil
}

func (c *MonitorClient) resolvePath(p string) string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (c *MonitorClient) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	if endpoint == "" {
		return fmt.Errorf("empty endpoint")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("DD-API-KEY", c.apiKey)
	}
	if c.appKey != "" {
		req.Header.Set("DD-APPLICATION-KEY", c.appKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("monitor backend returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
