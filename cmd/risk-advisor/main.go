package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/releasegate/riskadvisor/internal/api"
	"github.com/releasegate/riskadvisor/internal/cache"
	"github.com/releasegate/riskadvisor/internal/config"
	"github.com/releasegate/riskadvisor/internal/engine"
	"github.com/releasegate/riskadvisor/internal/metrics"
	"github.com/releasegate/riskadvisor/internal/models"
	"github.com/releasegate/riskadvisor/internal/repo"
	"github.com/releasegate/riskadvisor/internal/runs"
	"github.com/releasegate/riskadvisor/internal/services"
	"github.com/releasegate/riskadvisor/internal/signature"
	"github.com/releasegate/riskadvisor/internal/summarizer"
	"github.com/releasegate/riskadvisor/internal/utils"
)

const retainedRuns = 200

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "risk-advisor",
		Short:         "Release risk assessment from historical rollback signatures",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to configuration file")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newAssessCmd(&configPath))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the risk advisor HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
			logger.Info("starting risk-advisor", slog.String("address", cfg.Server.Address))

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			advisor, cleanup, err := buildAdvisor(ctx, cfg, logger, registry)
			if err != nil {
				return err
			}
			defer cleanup()

			store := runs.NewStore(cfg.Advisor.EvalsDir, retainedRuns, logger)
			svc := services.NewAssessmentService(logger, advisor, store)
			server := api.NewServer(cfg.Server, api.NewHandlers(svc, logger), registry, logger)

			if err := server.Run(ctx); err != nil {
				return fmt.Errorf("server: %w", err)
			}
			logger.Info("risk-advisor stopped")
			return nil
		},
	}
}

func newAssessCmd(configPath *string) *cobra.Command {
	var req models.AssessmentRequest
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Run one assessment and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			advisor, cleanup, err := buildAdvisor(ctx, cfg, logger, prometheus.NewRegistry())
			if err != nil {
				return err
			}
			defer cleanup()

			store := runs.NewStore(cfg.Advisor.EvalsDir, 1, logger)
			svc := services.NewAssessmentService(logger, advisor, store)

			report, err := svc.Assess(ctx, req)
			if err != nil {
				return err
			}

			if asJSON {
				raw, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(raw))
				return nil
			}
			printReport(report)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.FeatureName, "feature", "", "feature or release name (required)")
	cmd.Flags().StringVar(&req.Service, "service", "", "service under release (required)")
	cmd.Flags().StringVar(&req.Platform, "platform", "", "target platform")
	cmd.Flags().StringSliceVar(&req.Tags, "tags", nil, "release tags")
	cmd.Flags().IntVar(&req.TimeWindowDays, "window-days", 0, "history lookback window in days")
	cmd.Flags().IntVar(&req.PostDeployMinutes, "post-minutes", 0, "post-deploy health window in minutes")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON report")
	_ = cmd.MarkFlagRequired("feature")
	_ = cmd.MarkFlagRequired("service")
	return cmd
}

// buildAdvisor wires the backend, cache, and summarizer according to
// configuration. The returned cleanup closes whatever was opened.
func buildAdvisor(ctx context.Context, cfg *config.Config, logger *slog.Logger, registry *prometheus.Registry) (*engine.Advisor, func(), error) {
	if err := metrics.Register(registry); err != nil {
		return nil, nil, fmt.Errorf("register metrics: %w", err)
	}

	var backend repo.Backend
	cleanup := func() {}

	if cfg.Monitor.BaseURL != "" {
		backend = repo.NewMonitorClient(cfg.Monitor, cfg.Scoring.AnomalousDeviationPct, cfg.Advisor.HistoryWindowDays, logger)
		logger.Info("using monitor backend", slog.String("base_url", cfg.Monitor.BaseURL))
	} else {
		fixture, err := repo.NewFixtureRepo(cfg.History.Path, cfg.Scoring.AnomalousDeviationPct, logger)
		if err != nil {
			return nil, nil, err
		}
		if cfg.History.Reload {
			if err := fixture.Watch(ctx); err != nil {
				logger.Warn("fixture hot reload unavailable", slog.Any("error", err))
			}
		}
		backend = fixture
	}

	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewRedisProvider(cache.RedisConfig{
			Addr:        cfg.Cache.Addr,
			Username:    cfg.Cache.Username,
			Password:    cfg.Cache.Password,
			DB:          cfg.Cache.DB,
			DialTimeout: cfg.Cache.DialTimeout,
		})
		if err != nil {
			logger.Warn("redis cache unavailable", slog.Any("error", err))
		} else {
			backend = repo.NewCachedBackend(backend, provider, cfg.Cache.BaselineTTL, cfg.Cache.HealthTTL, logger)
			cleanup = func() { provider.Close() }
		}
	}

	var narrator summarizer.Summarizer
	if cfg.Summarizer.Enabled {
		llm, err := summarizer.NewOpenAI(cfg.Summarizer, logger)
		if err != nil {
			logger.Warn("llm summarizer unavailable, using template", slog.Any("error", err))
		} else {
			narrator = llm
		}
	}

	advisor := engine.NewAdvisor(
		backend,
		signature.NewMatcher(cfg.Scoring),
		engine.NewScorer(cfg.Scoring),
		narrator,
		cfg.Advisor,
		logger,
	)
	return advisor, cleanup, nil
}

func printReport(report models.Report) {
	fmt.Printf("Run %s\n", report.RunID)
	fmt.Printf("Risk score: %d/100 (%s)\n\n", report.RiskScore, report.Recommendation)
	fmt.Println(report.Summary.Text)
	if len(report.RollbackThresholds) > 0 {
		fmt.Println("\nRollback thresholds:")
		for _, t := range report.RollbackThresholds {
			fmt.Printf("  %-28s warn>%.2f rollback>%.2f current=%.2f [%s]\n",
				t.SLI, t.WarnThreshold, t.RollbackThreshold, t.CurrentValue, t.Status)
		}
	}
	if len(report.MonitoringChecks) > 0 {
		fmt.Println("\nMonitoring checks:")
		for _, check := range report.MonitoringChecks {
			fmt.Printf("  - %s\n", check)
		}
	}
}
