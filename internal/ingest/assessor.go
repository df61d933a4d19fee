package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/SkothaSec/project-mimir/internal/rules"
	"github.com/SkothaSec/project-mimir/pkg/models"
)

// BiasAnalysis is the model's bias report, stored verbatim as bias_analysis.
type BiasAnalysis struct {
	AnchoringCheck string `json:"anchoring_check"`
	ApopheniaRisk  string `json:"apophenia_risk"`
	Reasoning      string `json:"reasoning"`
}

// Assessment is the verdict produced for one log.
type Assessment struct {
	Verdict    string
	Confidence any
	Notes      string
	Apophenia  string
	Anchoring  string
	Abduction  string
	Bias       BiasAnalysis
}

// Assessor produces an assessment for a validated log.
type Assessor interface {
	Assess(ctx context.Context, entry models.LogEntry) (Assessment, error)
}

// PlaceholderAssessor returns a fixed benign assessment. It stands in for the
// hosted model, which is not called from this repository.
type PlaceholderAssessor struct{}

// Assess returns the fixed assessment.
func (PlaceholderAssessor) Assess(ctx context.Context, entry models.LogEntry) (Assessment, error) {
	bias := BiasAnalysis{
		AnchoringCheck: "No bias detected",
		ApopheniaRisk:  "Low",
		Reasoning:      "Log appears benign.",
	}
	return Assessment{
		Verdict:    "Benign",
		Confidence: 0,
		Notes:      bias.Reasoning,
		Apophenia:  bias.ApopheniaRisk,
		Anchoring:  bias.AnchoringCheck,
		Abduction:  bias.Reasoning,
		Bias:       bias,
	}, nil
}

// RuleAssessor raises the verdict when Sigma rules match the log and defers
// to Next otherwise.
type RuleAssessor struct {
	Engine rules.Engine
	Next   Assessor
}

// Assess applies the rules, then the fallback assessor.
func (a RuleAssessor) Assess(ctx context.Context, entry models.LogEntry) (Assessment, error) {
	next := a.Next
	if next == nil {
		next = PlaceholderAssessor{}
	}
	base, err := next.Assess(ctx, entry)
	if err != nil {
		return Assessment{}, err
	}
	if a.Engine == nil {
		return base, nil
	}

	hits := a.Engine.Apply(entry)
	if len(hits) == 0 {
		return base, nil
	}

	top := hits[0]
	names := make([]string, 0, len(hits))
	for _, hit := range hits {
		names = append(names, hit.Name)
	}

	base.Verdict = verdictForLevel(top.Severity)
	base.Confidence = min(50+15*len(hits), 95)
	base.Notes = "Matched rules: " + strings.Join(names, ", ")
	base.Abduction = fmt.Sprintf("%s is the simplest explanation of the matched activity.", top.Name)
	if top.Technique != "" {
		base.Abduction = fmt.Sprintf("%s (%s) is the simplest explanation of the matched activity.", top.Name, top.Technique)
	}
	return base, nil
}

func verdictForLevel(level string) string {
	switch level {
	case "critical", "high":
		return "High Risk"
	case "medium":
		return "Medium - Warn"
	default:
		return "Low"
	}
}

// BuildRecord turns a log and its assessment into the stored record.
func BuildRecord(entry models.LogEntry, a Assessment) (models.RawAlertRecord, error) {
	rawLogs, err := json.Marshal(entry)
	if err != nil {
		return models.RawAlertRecord{}, errors.Wrap(err, "encode log")
	}
	bias, err := json.Marshal(a.Bias)
	if err != nil {
		return models.RawAlertRecord{}, errors.Wrap(err, "encode bias analysis")
	}

	group := entry.Field("alert_group_id")
	if group == "" {
		group = entry.LogID()
	}
	name := entry.Field("alert_name")
	if name == "" {
		name = entry.Field("event_type")
	}

	return models.RawAlertRecord{
		Timestamp:         entry.Field("timestamp"),
		Verdict:           a.Verdict,
		VerdictConfidence: a.Confidence,
		Notes:             a.Notes,
		Apophenia:         a.Apophenia,
		Anchoring:         a.Anchoring,
		Abduction:         a.Abduction,
		AlertGroupID:      group,
		AlertName:         name,
		RawLogs:           string(rawLogs),
		BiasAnalysis:      string(bias),
	}, nil
}
