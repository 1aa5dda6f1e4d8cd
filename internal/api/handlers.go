package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/releasegate/riskadvisor/internal/models"
	"github.com/releasegate/riskadvisor/internal/services"
	"github.com/releasegate/riskadvisor/internal/utils"
)

// Handlers holds the HTTP handlers for the risk advisor API.
type Handlers struct {
	svc    *services.AssessmentService
	logger *slog.Logger
}

// NewHandlers creates handlers backed by the assessment service.
func NewHandlers(svc *services.AssessmentService, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{svc: svc, logger: logger}
}

// RegisterRoutes attaches the v1 API to the supplied router group.
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	rg.POST("/assess", h.HandleAssess)
	rg.GET("/runs", h.HandleRuns)
	rg.GET("/runs/:id", h.HandleRun)
	rg.GET("/services", h.HandleServices)
	rg.GET("/history", h.HandleHistory)
	rg.GET("/incidents", h.HandleIncidents)
	rg.GET("/telemetry", h.HandleTelemetry)
}

// HandleAssess runs a full release risk assessment.
func (h *Handlers) HandleAssess(c *gin.Context) {
	var req models.AssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body: " + err.Error()})
		return
	}

	report, err := h.svc.Assess(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("assess request failed", "service", req.Service, "op", utils.OpOf(err), "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "assessment failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// HandleRuns lists retained assessment reports, newest first.
func (h *Handlers) HandleRuns(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"runs": h.svc.Runs()})
}

// HandleRun fetches one retained report by run ID.
func (h *Handlers) HandleRun(c *gin.Context) {
	report, err := h.svc.Run(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// HandleServices aggregates the revert corpus per service.
func (h *Handlers) HandleServices(c *gin.Context) {
	insights, err := h.svc.Insights(c.Request.Context())
	if err != nil {
		h.logger.Error("insights request failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "corpus lookup failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": insights})
}

// HandleHistory lists raw revert records, optionally filtered by service.
func (h *Handlers) HandleHistory(c *gin.Context) {
	records, err := h.svc.History(c.Request.Context(), c.Query("service"))
	if err != nil {
		h.logger.Error("history request failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "history lookup failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reverts": records})
}

// HandleIncidents flags live anomalies in a service's current telemetry.
func (h *Handlers) HandleIncidents(c *gin.Context) {
	service := c.Query("service")
	if service == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "service query parameter is required"})
		return
	}
	window := intQuery(c, "window_minutes", 0)

	incidents, err := h.svc.Incidents(c.Request.Context(), service, window)
	if err != nil {
		h.logger.Error("incident detection failed", "service", service, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "incident detection failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"service": service, "incidents": incidents})
}

// HandleTelemetry reports current key-SLI health for a service plus agent
// run statistics.
func (h *Handlers) HandleTelemetry(c *gin.Context) {
	response := gin.H{
		"runs":           len(h.svc.Runs()),
		"latency_p95_ms": float64(h.svc.LatencyP95()) / float64(time.Millisecond),
	}

	if service := c.Query("service"); service != "" {
		window := intQuery(c, "window_minutes", 0)
		health, err := h.svc.Telemetry(c.Request.Context(), service, window)
		if err != nil {
			h.logger.Error("telemetry request failed", "service", service, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "telemetry lookup failed: " + err.Error()})
			return
		}
		response["service"] = service
		response["sli_health"] = health
	}
	c.JSON(http.StatusOK, response)
}

// HandleHealth reports liveness.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
