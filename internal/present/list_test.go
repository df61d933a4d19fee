package present

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SkothaSec/project-mimir/internal/alerts"
	"github.com/SkothaSec/project-mimir/pkg/models"
)

func sampleRecords() []models.AlertRecord {
	return alerts.DeriveAll([]models.RawAlertRecord{
		{Timestamp: "2025-03-02T10:00:00Z", Verdict: "High Risk", VerdictConfidence: 90, AlertName: "Bravo", RawLogs: `[{},{},{}]`},
		{Timestamp: "2025-03-01T10:00:00Z", Verdict: "Benign", VerdictConfidence: "12", AlertName: "alpha", RawLogs: `{}`},
		{Timestamp: "", Verdict: "Medium - Warn", VerdictConfidence: 55, AlertName: "Charlie", RawLogs: "not json"},
		{Timestamp: "2025-03-03T10:00:00Z", Verdict: "odd", VerdictConfidence: nil, AlertName: "Delta", RawLogs: `[]`},
	})
}

func names(records []models.AlertRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ResolvedAlertName)
	}
	return out
}

func TestSortedByTimestampPutsUnparsableFirst(t *testing.T) {
	list := NewList(sampleRecords())

	asc := list.Sorted(ColumnTimestamp, Ascending)
	assert.Equal(t, []string{"Charlie", "alpha", "Bravo", "Delta"}, names(asc.Records()))

	desc := list.Sorted(ColumnTimestamp, Descending)
	assert.Equal(t, []string{"Delta", "Bravo", "alpha", "Charlie"}, names(desc.Records()))
}

func TestSortedByEachColumn(t *testing.T) {
	list := NewList(sampleRecords())

	tests := []struct {
		column Column
		want   []string
	}{
		{ColumnAlertName, []string{"alpha", "Bravo", "Charlie", "Delta"}},
		{ColumnVerdict, []string{"alpha", "Bravo", "Charlie", "Delta"}},
		{ColumnConfidence, []string{"Delta", "alpha", "Charlie", "Bravo"}},
		{ColumnLogCount, []string{"Charlie", "Delta", "alpha", "Bravo"}},
		{ColumnSeverity, []string{"Delta", "alpha", "Charlie", "Bravo"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.column), func(t *testing.T) {
			assert.Equal(t, tt.want, names(list.Sorted(tt.column, Ascending).Records()))
		})
	}
}

func TestSortedDoesNotMutate(t *testing.T) {
	records := sampleRecords()
	before := names(records)

	list := NewList(records)
	_ = list.Sorted(ColumnConfidence, Descending)
	_ = list.PageRows(0, 2)

	assert.Equal(t, before, names(records))
	assert.Equal(t, before, names(list.Records()))
}

func TestPage(t *testing.T) {
	list := NewList(sampleRecords())

	assert.Equal(t, 2, list.Pages(3))
	assert.Equal(t, []string{"Bravo", "alpha", "Charlie"}, names(records(list.PageRows(0, 3))))
	assert.Equal(t, []string{"Delta"}, names(records(list.PageRows(1, 3))))
	assert.Empty(t, records(list.PageRows(2, 3)))
	assert.Empty(t, records(list.PageRows(-1, 3)))

	assert.Len(t, records(list.PageRows(0, 0)), 4)
	assert.Equal(t, 1, NewList(nil).Pages(DefaultPageSize))
}

func TestAt(t *testing.T) {
	list := NewList(sampleRecords())
	rec, ok := list.At(1)
	require.True(t, ok)
	assert.Equal(t, "alpha", rec.ResolvedAlertName)

	_, ok = list.At(4)
	assert.False(t, ok)
}

func TestPageRowsKeepFetchIndex(t *testing.T) {
	sorted := NewList(sampleRecords()).Sorted(ColumnConfidence, Descending)

	rows := sorted.PageRows(0, 2)
	require.Len(t, rows, 2)
	assert.Equal(t, 0, rows[0].Index)
	assert.Equal(t, "Bravo", rows[0].Record.ResolvedAlertName)
	assert.Equal(t, 2, rows[1].Index)

	rec, ok := sorted.At(3)
	require.True(t, ok)
	assert.Equal(t, "Delta", rec.ResolvedAlertName)
}

func TestParseColumnAndDirection(t *testing.T) {
	c, err := ParseColumn(" Log_Count ")
	require.NoError(t, err)
	assert.Equal(t, ColumnLogCount, c)

	c, err = ParseColumn("")
	require.NoError(t, err)
	assert.Equal(t, ColumnTimestamp, c)

	_, err = ParseColumn("group")
	assert.Error(t, err)

	d, err := ParseDirection("DESC")
	require.NoError(t, err)
	assert.Equal(t, Descending, d)
	assert.Equal(t, Ascending, d.Reverse())

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}

func TestColumnNextWraps(t *testing.T) {
	assert.Equal(t, ColumnAlertName, ColumnTimestamp.Next())
	assert.Equal(t, ColumnTimestamp, ColumnSeverity.Next())
	assert.Equal(t, ColumnTimestamp, Column("bogus").Next())
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, models.Placeholder, FormatTimestamp(""))
	assert.Equal(t, "yesterday", FormatTimestamp("yesterday"))

	want := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC).Local().Format("2006-01-02 15:04:05")
	assert.Equal(t, want, FormatTimestamp("2025-03-01T10:00:00Z"))
}
