package recordjson

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SkothaSec/project-mimir/internal/alerts"
	"github.com/SkothaSec/project-mimir/internal/input/resultsjson"
	"github.com/SkothaSec/project-mimir/internal/pipeline"
	"github.com/SkothaSec/project-mimir/pkg/models"
)

var _ pipeline.RecordWriter = (*Writer)(nil)

func TestWriteRecordsEmitsOneLinePerRecord(t *testing.T) {
	var buf bytes.Buffer
	w := NewStreamWriter(&buf)

	records := alerts.DeriveAll([]models.RawAlertRecord{
		{Verdict: "High Risk", VerdictConfidence: 137, RawLogs: "[{}]"},
		{Verdict: "clean", RawLogs: "<not json>"},
	})
	require.NoError(t, w.WriteRecords(records))
	require.NoError(t, w.Close())
	assert.Equal(t, 2, w.Count())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "malicious", first["severity"])
	assert.Equal(t, float64(100), first["confidence_display"])
	assert.Equal(t, float64(1), first["log_count"])
	assert.Equal(t, "—", first["resolved_alert_name"])

	assert.Contains(t, lines[1], `"log_count":null`)
	assert.Contains(t, lines[1], `"raw_logs":"<not json>"`)
}

func TestExportReplaysThroughFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "records.jsonl")
	w, err := NewWriter(path)
	require.NoError(t, err)

	records := alerts.DeriveAll([]models.RawAlertRecord{
		{Timestamp: "2025-03-01T10:00:00Z", Verdict: "Benign", AlertGroupID: "g1", RawLogs: `{"alert_name":"A"}`},
	})
	require.NoError(t, w.WriteRecords(records))
	require.NoError(t, w.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)

	src, err := resultsjson.NewSource(path)
	require.NoError(t, err)
	raws, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, raws, 1)
	assert.Equal(t, records[0].RawAlertRecord, raws[0])
	assert.Equal(t, records, alerts.DeriveAll(raws))
}
