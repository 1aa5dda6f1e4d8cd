package detector

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/releasegate/riskadvisor/internal/models"
)

// DetectIncidents flags anomalous SLIs as live incidents for the
// crash-reproduction trigger surface. Crash-family SLIs classify as
// crashes, everything else as error spikes; severity follows the spike
// ratio against the baseline average (x5 critical, x3 high).
func DetectIncidents(now time.Time, service string, health map[string]models.SLICurrentHealth) []models.Incident {
	incidents := make([]models.Incident, 0)

	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, sli := range names {
		h := health[sli]
		if !h.IsAnomalous {
			continue
		}

		base := h.BaselineAvg
		if base == 0 {
			base = 1
		}
		ratio := h.CurrentValue / base

		incidentType := "error_spike"
		if strings.Contains(sli, "crash") {
			incidentType = "crash"
		}

		severity := models.SeverityMedium
		if ratio > 5 {
			severity = models.SeverityCritical
		} else if ratio > 3 {
			severity = models.SeverityHigh
		}

		incidents = append(incidents, models.Incident{
			Type:         incidentType,
			Severity:     severity,
			Service:      service,
			SLI:          sli,
			Timestamp:    now.UTC(),
			CurrentValue: h.CurrentValue,
			BaselineAvg:  h.BaselineAvg,
			SpikeRatio:   round1(ratio),
			Description: fmt.Sprintf("%s spike detected: %.4f vs baseline %.4f",
				sli, h.CurrentValue, h.BaselineAvg),
		})
	}
	return incidents
}
