package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/releasegate/riskadvisor/internal/config"
)

// Server runs the public API listener and a separate metrics listener so
// Prometheus scrapes never contend with assessment traffic.
type Server struct {
	api             *http.Server
	metrics         *http.Server
	gracefulTimeout time.Duration
	logger          *slog.Logger
}

// NewServer builds both listeners. The registry carries the advisor's
// collectors; gatherer defaults to it.
func NewServer(cfg config.ServerConfig, handlers *Handlers, registry *prometheus.Registry, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))
	router.GET("/healthz", handlers.HandleHealth)

	v1 := router.Group("/api/v1")
	RegisterRoutes(v1, handlers)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &Server{
		api: &http.Server{
			Addr:              cfg.Address,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		metrics: &http.Server{
			Addr:              cfg.MetricsAddress,
			Handler:           metricsMux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		gracefulTimeout: cfg.GracefulTimeout,
		logger:          logger,
	}
}

// Run serves both listeners until ctx is cancelled, then drains in-flight
// requests within the graceful timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		s.logger.Info("api listening", "addr", s.api.Addr)
		if err := s.api.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		s.logger.Info("metrics listening", "addr", s.metrics.Addr)
		if err := s.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.gracefulTimeout)
	defer cancel()

	s.logger.Info("shutting down")
	err := s.api.Shutdown(shutdownCtx)
	if merr := s.metrics.Shutdown(shutdownCtx); err == nil {
		err = merr
	}
	return err
}

// requestLogger emits one structured line per request.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", float64(time.Since(start).Microseconds())/1000)
	}
}
