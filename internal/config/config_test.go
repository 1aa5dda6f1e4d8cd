package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.Server.Address != ":8080" || cfg.Server.MetricsAddress != ":2112" {
		t.Errorf("unexpected default addresses: %+v", cfg.Server)
	}
	if cfg.Advisor.HistoryWindowDays != 30 || cfg.Advisor.PostDeployMinutes != 60 {
		t.Errorf("unexpected advisor defaults: %+v", cfg.Advisor)
	}
	if len(cfg.Advisor.KeySLIs) != 6 {
		t.Errorf("expected 6 default key SLIs, got %v", cfg.Advisor.KeySLIs)
	}
	if cfg.Scoring.WeightSimilarity != 50 || cfg.Scoring.WeightVolatility != 30 || cfg.Scoring.WeightAnomaly != 20 {
		t.Errorf("unexpected scoring weights: %+v", cfg.Scoring)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  address: ":9999"
advisor:
  historyWindowDays: 14
scoring:
  weightSimilarity: 40
  weightVolatility: 40
  weightAnomaly: 20
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("RISK_ADVISOR_LOG_LEVEL", "debug")
	t.Setenv("RISK_ADVISOR_CACHE_BASELINE_TTL", "5m")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":9999" {
		t.Errorf("file override lost: %s", cfg.Server.Address)
	}
	if cfg.Advisor.HistoryWindowDays != 14 {
		t.Errorf("expected window 14, got %d", cfg.Advisor.HistoryWindowDays)
	}
	if cfg.Scoring.WeightSimilarity != 40 {
		t.Errorf("scoring override lost: %+v", cfg.Scoring)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("env override lost: %s", cfg.Logging.Level)
	}
	if cfg.Cache.BaselineTTL != 5*time.Minute {
		t.Errorf("ttl override lost: %v", cfg.Cache.BaselineTTL)
	}
	// Partial file keeps untouched defaults.
	if cfg.Server.MetricsAddress != ":2112" {
		t.Errorf("default metrics address lost: %s", cfg.Server.MetricsAddress)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestScoringValidate(t *testing.T) {
	bad := DefaultScoring()
	bad.WeightAnomaly = 25
	if err := bad.Validate(); err == nil {
		t.Error("weights not summing to 100 should fail validation")
	}

	inverted := DefaultScoring()
	inverted.RampMax = 20
	if err := inverted.Validate(); err == nil {
		t.Error("rampMax below shipMax should fail validation")
	}

	if err := DefaultScoring().Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}
