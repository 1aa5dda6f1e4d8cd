package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the risk advisor.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	History    HistoryConfig    `yaml:"history"`
	Advisor    AdvisorConfig    `yaml:"advisor"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Logging    LoggingConfig    `yaml:"logging"`
	Cache      CacheConfig      `yaml:"cache"`
}

// ServerConfig controls HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// MonitorConfig configures access to the monitoring backend that serves
// revert events and metric series. When BaseURL is empty the advisor
// runs off the YAML fixture alone.
type MonitorConfig struct {
	BaseURL     string        `yaml:"baseURL"`
	EventsPath  string        `yaml:"eventsPath"`
	MetricsPath string        `yaml:"metricsPath"`
	APIKey      string        `yaml:"apiKey"`
	AppKey      string        `yaml:"appKey"`
	Timeout     time.Duration `yaml:"timeout"`
}

// HistoryConfig locates the revert-history fixture corpus.
type HistoryConfig struct {
	Path   string `yaml:"path"`
	Reload bool   `yaml:"reload"`
}

// AdvisorConfig groups assessment run defaults.
type AdvisorConfig struct {
	KeySLIs           []string `yaml:"keySLIs"`
	HistoryWindowDays int      `yaml:"historyWindowDays"`
	PostDeployMinutes int      `yaml:"postDeployMinutes"`
	EvalsDir          string   `yaml:"evalsDir"`
}

// ScoringConfig exposes every scoring constant as tunable configuration.
// The defaults reproduce the reference behaviour; weights must sum to 100.
type ScoringConfig struct {
	WeightSimilarity float64 `yaml:"weightSimilarity"`
	WeightVolatility float64 `yaml:"weightVolatility"`
	WeightAnomaly    float64 `yaml:"weightAnomaly"`

	// Similarity factor weights.
	ServiceWeight        float64 `yaml:"serviceWeight"`
	ServiceTagWeight     float64 `yaml:"serviceTagWeight"`
	PlatformWeight       float64 `yaml:"platformWeight"`
	PlatformLooseWeight  float64 `yaml:"platformLooseWeight"`
	TagOverlapWeight     float64 `yaml:"tagOverlapWeight"`
	SLIOverlapWeight     float64 `yaml:"sliOverlapWeight"`
	ElevatedDeviationPct float64 `yaml:"elevatedDeviationPct"`

	// Volatility classification (coefficient of variation).
	CVHigh   float64 `yaml:"cvHigh"`
	CVMedium float64 `yaml:"cvMedium"`

	// Anomaly classification.
	AnomalousDeviationPct float64 `yaml:"anomalousDeviationPct"`
	WatchDeviationPct     float64 `yaml:"watchDeviationPct"`

	// Severity tier spike-ratio boundaries.
	SpikeCritical float64 `yaml:"spikeCritical"`
	SpikeHigh     float64 `yaml:"spikeHigh"`
	SpikeMedium   float64 `yaml:"spikeMedium"`

	// Recommendation tier boundaries (inclusive upper bound of the tier).
	ShipMax int `yaml:"shipMax"`
	RampMax int `yaml:"rampMax"`
}

// SummarizerConfig selects the narrative generator. The LLM path is only
// used when Enabled is true and an API key is present; otherwise the
// deterministic template renders the summary.
type SummarizerConfig struct {
	Enabled bool          `yaml:"enabled"`
	Model   string        `yaml:"model"`
	APIKey  string        `yaml:"apiKey"`
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// CacheConfig controls Redis-backed caching of baseline and health lookups.
type CacheConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Addr        string        `yaml:"addr"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	DialTimeout time.Duration `yaml:"dialTimeout"`
	BaselineTTL time.Duration `yaml:"baselineTTL"`
	HealthTTL   time.Duration `yaml:"healthTTL"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("RISK_ADVISOR_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Scoring.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultScoring returns the reference scoring constants.
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		WeightSimilarity:      50,
		WeightVolatility:      30,
		WeightAnomaly:         20,
		ServiceWeight:         0.30,
		ServiceTagWeight:      0.15,
		PlatformWeight:        0.15,
		PlatformLooseWeight:   0.10,
		TagOverlapWeight:      0.25,
		SLIOverlapWeight:      0.30,
		ElevatedDeviationPct:  20,
		CVHigh:                0.3,
		CVMedium:              0.15,
		AnomalousDeviationPct: 35,
		WatchDeviationPct:     15,
		SpikeCritical:         10,
		SpikeHigh:             4,
		SpikeMedium:           2,
		ShipMax:               30,
		RampMax:               60,
	}
}

// Validate rejects weight combinations that break the 0-100 score bound.
func (s ScoringConfig) Validate() error {
	if s.WeightSimilarity+s.WeightVolatility+s.WeightAnomaly != 100 {
		return fmt.Errorf("scoring weights must sum to 100, got %.1f",
			s.WeightSimilarity+s.WeightVolatility+s.WeightAnomaly)
	}
	if s.ShipMax <= 0 || s.RampMax <= s.ShipMax {
		return fmt.Errorf("recommendation boundaries must satisfy 0 < shipMax < rampMax")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Monitor: MonitorConfig{
			EventsPath:  "/api/v1/events",
			MetricsPath: "/api/v1/query",
			Timeout:     5 * time.Second,
		},
		History: HistoryConfig{
			Path: "data/revert_history.yaml",
		},
		Advisor: AdvisorConfig{
			KeySLIs: []string{
				"error_rate",
				"crash_rate",
				"p95_latency",
				"p99_latency",
				"playback_start_failures",
				"ad_error_rate",
			},
			HistoryWindowDays: 30,
			PostDeployMinutes: 60,
			EvalsDir:          "evals",
		},
		Scoring: DefaultScoring(),
		Summarizer: SummarizerConfig{
			Model:   "gpt-4o-mini",
			Timeout: 20 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Cache: CacheConfig{
			Enabled:     false,
			DialTimeout: 2 * time.Second,
			BaselineTTL: 10 * time.Minute,
			HealthTTL:   time.Minute,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RISK_ADVISOR_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("RISK_ADVISOR_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("RISK_ADVISOR_MONITOR_URL"); v != "" {
		cfg.Monitor.BaseURL = v
	}
	if v := os.Getenv("RISK_ADVISOR_MONITOR_API_KEY"); v != "" {
		cfg.Monitor.APIKey = v
	}
	if v := os.Getenv("RISK_ADVISOR_MONITOR_APP_KEY"); v != "" {
		cfg.Monitor.AppKey = v
	}
	if v := os.Getenv("RISK_ADVISOR_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}
	if v := os.Getenv("RISK_ADVISOR_HISTORY_RELOAD"); v != "" {
		cfg.History.Reload = parseBool(v)
	}
	if v := os.Getenv("RISK_ADVISOR_EVALS_DIR"); v != "" {
		cfg.Advisor.EvalsDir = v
	}
	if v := os.Getenv("RISK_ADVISOR_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RISK_ADVISOR_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("RISK_ADVISOR_SUMMARIZER_ENABLED"); v != "" {
		cfg.Summarizer.Enabled = parseBool(v)
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.Summarizer.APIKey == "" {
		cfg.Summarizer.APIKey = v
	}
	if v := os.Getenv("RISK_ADVISOR_SUMMARIZER_MODEL"); v != "" {
		cfg.Summarizer.Model = v
	}
	if v := os.Getenv("RISK_ADVISOR_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = parseBool(v)
	}
	if v := os.Getenv("RISK_ADVISOR_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("RISK_ADVISOR_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("RISK_ADVISOR_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("RISK_ADVISOR_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("RISK_ADVISOR_CACHE_BASELINE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.BaselineTTL = d
		}
	}
	if v := os.Getenv("RISK_ADVISOR_CACHE_HEALTH_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.HealthTTL = d
		}
	}
}

func parseBool(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}
