package alerts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SkothaSec/project-mimir/pkg/models"
)

func TestDeriveHighRiskRecord(t *testing.T) {
	var raw models.RawAlertRecord
	require.NoError(t, json.Unmarshal([]byte(`{"verdict":"High Risk","verdict_confidence":137,"raw_logs":"[{}]"}`), &raw))

	rec := Derive(raw)
	assert.Equal(t, models.SeverityMalicious, rec.Severity)
	assert.Equal(t, 100, rec.ConfidenceDisplay)
	require.NotNil(t, rec.LogCount)
	assert.Equal(t, 1, *rec.LogCount)
	assert.Equal(t, models.Placeholder, rec.ResolvedAlertName)
	assert.Equal(t, "High Risk", rec.Verdict)
}

func TestDeriveIsDeterministicAndKeepsRawFields(t *testing.T) {
	raw := models.RawAlertRecord{
		Timestamp:         "2026-01-02T03:04:05Z",
		Verdict:           "Benign",
		VerdictConfidence: "64.6",
		Notes:             "routine login",
		Apophenia:         "no pattern forcing",
		Anchoring:         "first signal not over-weighted",
		Abduction:         "simplest explanation holds",
		AlertGroupID:      "grp-7",
		RawLogs:           `{"alert_name":"SSH Login"}`,
		BiasAnalysis:      `{"anchoring_check":"No bias detected"}`,
	}

	first := Derive(raw)
	second := Derive(raw)
	assert.Equal(t, first, second)
	assert.Equal(t, raw, first.RawAlertRecord)
	assert.Equal(t, 65, first.ConfidenceDisplay)
	assert.Equal(t, "SSH Login", first.ResolvedAlertName)
}

func TestDeriveBatchKeepsOrderAndSummarizes(t *testing.T) {
	raws := []models.RawAlertRecord{
		{Verdict: "Clean", RawLogs: "[]"},
		{Verdict: "???", RawLogs: "{broken"},
		{Verdict: "Medium"},
	}

	out, summary := DeriveBatch(raws)
	require.Len(t, out, 3)
	assert.Equal(t, models.SeverityBenign, out[0].Severity)
	assert.Equal(t, models.SeverityUnknown, out[1].Severity)
	assert.Equal(t, models.SeverityWarning, out[2].Severity)

	assert.Equal(t, 1, summary.ByShape[ShapeSequence])
	assert.Equal(t, 1, summary.ByShape[ShapeMalformed])
	assert.Equal(t, 1, summary.ByShape[ShapeOther])
	assert.Equal(t, 1, summary.BySeverity[models.SeverityUnknown])

	assert.Equal(t, out, DeriveAll(raws))
}
