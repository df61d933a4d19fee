package present

import (
	"fmt"
	"strconv"

	"github.com/SkothaSec/project-mimir/internal/alerts"
	"github.com/SkothaSec/project-mimir/internal/rules"
	"github.com/SkothaSec/project-mimir/pkg/models"
)

// Field is one labelled line of the detail view.
type Field struct {
	Label string
	Value string
	// Mono marks verbatim JSON that must be shown unaltered in a fixed-width block.
	Mono bool
}

// DetailView is everything shown for one selected record.
type DetailView struct {
	Record   models.AlertRecord
	Fields   []Field
	RuleHits []rules.RuleHit
}

// Detail returns the ordered field list for rec. Empty values become the placeholder;
// raw_logs and bias_analysis are passed through byte for byte.
func Detail(rec models.AlertRecord) []Field {
	return []Field{
		{Label: "Timestamp", Value: FormatTimestamp(rec.Timestamp)},
		{Label: "Group", Value: orPlaceholder(rec.AlertGroupID)},
		{Label: "Alert Name", Value: orPlaceholder(rec.ResolvedAlertName)},
		{Label: "Verdict", Value: fmt.Sprintf("%s (%s)", orPlaceholder(rec.Verdict), rawConfidence(rec.VerdictConfidence))},
		{Label: "Severity", Value: string(rec.Severity)},
		{Label: "Confidence", Value: strconv.Itoa(rec.ConfidenceDisplay)},
		{Label: "Log Count", Value: LogCount(rec.LogCount)},
		{Label: "Notes", Value: orPlaceholder(rec.Notes)},
		{Label: "Apophenia", Value: orPlaceholder(rec.Apophenia)},
		{Label: "Anchoring", Value: orPlaceholder(rec.Anchoring)},
		{Label: "Abductive Reasoning", Value: orPlaceholder(rec.Abduction)},
		{Label: "Raw Logs", Value: orPlaceholder(rec.RawLogs), Mono: true},
		{Label: "Bias JSON", Value: orPlaceholder(rec.BiasAnalysis), Mono: true},
	}
}

// NewDetailView builds the detail view, running each evidence log object through
// engine. A nil engine yields no rule hits.
func NewDetailView(rec models.AlertRecord, engine rules.Engine) DetailView {
	return DetailView{
		Record:   rec,
		Fields:   Detail(rec),
		RuleHits: RuleHits(rec, engine),
	}
}

// RuleHits evaluates every object in the record's raw_logs, keeping the first hit
// per rule.
func RuleHits(rec models.AlertRecord, engine rules.Engine) []rules.RuleHit {
	if engine == nil {
		return nil
	}
	seen := make(map[string]bool)
	var hits []rules.RuleHit
	for _, entry := range alerts.ClassifyLogs(rec.RawLogs).Entries() {
		for _, hit := range engine.Apply(entry) {
			if seen[hit.ID] {
				continue
			}
			seen[hit.ID] = true
			hits = append(hits, hit)
		}
	}
	return hits
}

// LogCount renders a possibly unknown count.
func LogCount(n *int) string {
	if n == nil {
		return models.Placeholder
	}
	return strconv.Itoa(*n)
}

func rawConfidence(v any) string {
	if v == nil {
		return models.Placeholder
	}
	s := models.FieldString(v)
	if s == "" {
		return models.Placeholder
	}
	return s
}

func orPlaceholder(s string) string {
	if s == "" {
		return models.Placeholder
	}
	return s
}
