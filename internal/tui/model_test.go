package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SkothaSec/project-mimir/internal/present"
	"github.com/SkothaSec/project-mimir/internal/results"
	"github.com/SkothaSec/project-mimir/pkg/models"
)

type stubSource struct {
	calls   int
	records []models.RawAlertRecord
	err     error
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Fetch(ctx context.Context) ([]models.RawAlertRecord, error) {
	s.calls++
	return s.records, s.err
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, m tea.Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model
}

func loadedModel(t *testing.T, src *stubSource, pageSize int) Model {
	t.Helper()
	m := New(context.Background(), results.NewViewModel(src), nil, pageSize)
	assert.Contains(t, m.View(), "Loading results...")

	msg := m.load()()
	return send(t, m, msg)
}

func sampleSource() *stubSource {
	return &stubSource{records: []models.RawAlertRecord{
		{Timestamp: "2025-03-01T10:00:00Z", Verdict: "Benign", VerdictConfidence: 10, RawLogs: `{"alert_name":"Quiet login"}`},
		{Timestamp: "2025-03-01T11:00:00Z", Verdict: "High Risk", VerdictConfidence: 137, RawLogs: `[{"alert_name":"Root shell"}]`, Abduction: "attacker pivot"},
		{Timestamp: "2025-03-01T12:00:00Z", Verdict: "Medium - Warn", VerdictConfidence: 40, AlertName: "Odd DNS"},
	}}
}

func TestLoadShowsTable(t *testing.T) {
	src := sampleSource()
	m := loadedModel(t, src, 5)

	assert.Equal(t, results.Loaded, m.State().Phase)
	view := m.View()
	assert.Contains(t, view, "Root shell")
	assert.Contains(t, view, "Quiet login")
	assert.Contains(t, view, "sorted by timestamp desc")
	assert.Equal(t, 1, src.calls)

	// A second load message does not refetch.
	m = send(t, m, m.load()())
	assert.Equal(t, 1, src.calls)
}

func TestSortAndReverseKeys(t *testing.T) {
	m := loadedModel(t, sampleSource(), 5)
	require.Len(t, m.pageRows, 3)
	assert.Equal(t, "Odd DNS", m.pageRows[0].Record.ResolvedAlertName)

	m = send(t, m, runes("s"))
	assert.Equal(t, present.ColumnAlertName, m.column)
	assert.Equal(t, "Root shell", m.pageRows[0].Record.ResolvedAlertName)

	m = send(t, m, runes("r"))
	assert.Equal(t, present.Ascending, m.dir)
	assert.Equal(t, "Odd DNS", m.pageRows[0].Record.ResolvedAlertName)
}

func TestPagingKeys(t *testing.T) {
	m := loadedModel(t, sampleSource(), 2)
	assert.Equal(t, 2, m.paginator.TotalPages)
	require.Len(t, m.pageRows, 2)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, 1, m.paginator.Page)
	require.Len(t, m.pageRows, 1)
	assert.Equal(t, "Quiet login", m.pageRows[0].Record.ResolvedAlertName)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, 0, m.paginator.Page)
}

func TestEnterOpensDetailAndEscReturns(t *testing.T) {
	m := loadedModel(t, sampleSource(), 5)
	m = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.table.Cursor())

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, screenDetail, m.screen)
	assert.Equal(t, "Root shell", m.detail.Record.ResolvedAlertName)
	view := m.View()
	assert.Contains(t, view, "Abductive Reasoning")
	assert.Contains(t, view, "attacker pivot")

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, screenList, m.screen)
}

func TestFailedStateShowsMessageOnly(t *testing.T) {
	src := sampleSource()
	src.err = errors.New("connection refused")
	m := loadedModel(t, src, 5)

	assert.Equal(t, results.Failed, m.State().Phase)
	view := m.View()
	assert.Contains(t, view, "Failed to load results: connection refused")
	assert.NotContains(t, view, "Root shell")

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, screenList, m.screen)
}

func TestQuitCancelsContext(t *testing.T) {
	m := New(context.Background(), results.NewViewModel(sampleSource()), nil, 5)
	next, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Error(t, next.(Model).ctx.Err())
}

func TestEmptyBatch(t *testing.T) {
	m := loadedModel(t, &stubSource{}, 5)
	assert.Contains(t, m.View(), "No assessments yet.")
}
