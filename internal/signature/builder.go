package signature

import (
	"github.com/releasegate/riskadvisor/internal/models"
)

// Build converts raw revert records into failure signatures. It is a
// pass-through transformation: one signature per record, same order, no
// filtering or deduplication. Genuinely absent fields take documented
// defaults; a malformed field never reaches this function because the
// record decoder rejects it first.
func Build(records []models.RevertRecord) []models.FailureSignature {
	sigs := make([]models.FailureSignature, 0, len(records))
	for _, rec := range records {
		sigs = append(sigs, fromRecord(rec))
	}
	return sigs
}

func fromRecord(rec models.RevertRecord) models.FailureSignature {
	sig := models.FailureSignature{
		RevertID:           rec.ID,
		Date:               rec.Date,
		Feature:            rec.Feature,
		Service:            rec.Service,
		Platform:           rec.Platform,
		Description:        rec.Description,
		RootCause:          rec.RootCause,
		Trigger:            rec.Trigger,
		TimeToDetectionMin: rec.TimeToDetectionMin,
		TimeToRollbackMin:  rec.TimeToRollbackMin,
		ImpactedSLIs:       rec.ImpactedSLIs,
		Tags:               rec.Tags,
	}
	if sig.RevertID == "" {
		sig.RevertID = "unknown"
	}
	if sig.Platform == "" {
		sig.Platform = "all"
	}
	if sig.Trigger == "" {
		sig.Trigger = "unknown"
	}
	if sig.TimeToDetectionMin < 0 {
		sig.TimeToDetectionMin = 0
	}
	if sig.TimeToRollbackMin < 0 {
		sig.TimeToRollbackMin = 0
	}
	if sig.ImpactedSLIs == nil {
		sig.ImpactedSLIs = map[string]models.SLIImpact{}
	}
	if sig.Tags == nil {
		sig.Tags = []string{}
	}
	return sig
}
