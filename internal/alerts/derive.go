package alerts

import "github.com/SkothaSec/project-mimir/pkg/models"

// Derive builds the display form of a raw record. It is pure and never fails.
func Derive(raw models.RawAlertRecord) models.AlertRecord {
	rec, _ := deriveWithShape(raw)
	return rec
}

// DeriveAll derives every record of a batch, keeping order.
func DeriveAll(raws []models.RawAlertRecord) []models.AlertRecord {
	out, _ := DeriveBatch(raws)
	return out
}

// BatchSummary counts what derivation had to fall back on.
type BatchSummary struct {
	BySeverity map[models.Severity]int
	ByShape    map[Shape]int
}

// DeriveBatch derives a batch and reports a summary for instrumentation.
func DeriveBatch(raws []models.RawAlertRecord) ([]models.AlertRecord, BatchSummary) {
	summary := BatchSummary{
		BySeverity: make(map[models.Severity]int),
		ByShape:    make(map[Shape]int),
	}
	out := make([]models.AlertRecord, 0, len(raws))
	for _, raw := range raws {
		rec, shape := deriveWithShape(raw)
		summary.BySeverity[rec.Severity]++
		summary.ByShape[shape]++
		out = append(out, rec)
	}
	return out, summary
}

func deriveWithShape(raw models.RawAlertRecord) (models.AlertRecord, Shape) {
	ev := DeriveEvidence(raw.RawLogs, raw.AlertName)
	return models.AlertRecord{
		RawAlertRecord:    raw,
		Severity:          Classify(raw.Verdict),
		ConfidenceDisplay: NormalizeConfidence(raw.VerdictConfidence),
		LogCount:          ev.LogCount,
		ResolvedAlertName: ev.ResolvedAlertName,
	}, ev.Shape
}
