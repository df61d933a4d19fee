package htmlview

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SkothaSec/project-mimir/internal/metrics"
	"github.com/SkothaSec/project-mimir/internal/rules"
	"github.com/SkothaSec/project-mimir/pkg/models"
)

type countingSource struct {
	calls   atomic.Int32
	records []models.RawAlertRecord
	err     error
}

func (s *countingSource) Name() string { return "stub" }

func (s *countingSource) Fetch(ctx context.Context) ([]models.RawAlertRecord, error) {
	s.calls.Add(1)
	return s.records, s.err
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func batch() []models.RawAlertRecord {
	return []models.RawAlertRecord{
		{Timestamp: "2025-03-01T10:00:00Z", Verdict: "Benign", VerdictConfidence: 10, RawLogs: `{"alert_name":"Quiet login"}`},
		{Timestamp: "2025-03-01T11:00:00Z", Verdict: "High Risk", VerdictConfidence: 137, RawLogs: `[{"user":"root","alert_name":"Root <script>"}]`, BiasAnalysis: `{"apophenia_risk":"Low"}`},
		{Timestamp: "2025-03-01T12:00:00Z", Verdict: "Medium - Warn", VerdictConfidence: "40", RawLogs: "oops"},
	}
}

func TestListPageRendersRecords(t *testing.T) {
	src := &countingSource{records: batch()}
	m := metrics.New()
	router := NewServer(src, nil, m, Config{PageSize: 2, MetricsPath: "/metrics"}).Router()

	rec := get(t, router, "/?sort=confidence&dir=desc")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, "Root &lt;script&gt;")
	assert.Contains(t, body, `chip malicious`)
	assert.Contains(t, body, "Page 1 of 2 (3 records)")
	assert.Contains(t, body, `href="/alerts/1"`)
	assert.NotContains(t, body, "Quiet login")
	assert.Less(t, strings.Index(body, "Root &lt;script&gt;"), strings.Index(body, `href="/alerts/2"`))

	rec = get(t, router, "/?sort=confidence&dir=desc&page=2")
	assert.Contains(t, rec.Body.String(), "Quiet login")

	assert.Equal(t, int32(2), src.calls.Load())

	scraped := get(t, router, "/metrics").Body.String()
	assert.Contains(t, scraped, `mimir_dashboard_views_total{state="loaded",view="list"} 2`)
}

func TestListRejectsUnknownSort(t *testing.T) {
	router := NewServer(&countingSource{}, nil, nil, Config{}).Router()
	assert.Equal(t, http.StatusBadRequest, get(t, router, "/?sort=bogus").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, router, "/?dir=up").Code)
}

func TestListEmptyBatch(t *testing.T) {
	router := NewServer(&countingSource{}, nil, nil, Config{}).Router()
	rec := get(t, router, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No assessments yet.")
}

func TestFailedFetchShowsErrorOnly(t *testing.T) {
	src := &countingSource{records: batch(), err: errors.New("connection refused")}
	router := NewServer(src, nil, nil, Config{}).Router()

	rec := get(t, router, "/")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Failed to load results: connection refused")
	assert.NotContains(t, body, "Quiet login")
	assert.NotContains(t, body, "<table>")
}

type rootEngine struct{}

func (rootEngine) Apply(entry models.LogEntry) []rules.RuleHit {
	if entry.Field("user") == "root" {
		return []rules.RuleHit{{ID: "r", Name: "Root activity", Severity: "high", Tactic: "privilege-escalation"}}
	}
	return nil
}

func TestDetailPage(t *testing.T) {
	router := NewServer(&countingSource{records: batch()}, rootEngine{}, nil, Config{}).Router()

	rec := get(t, router, "/alerts/1")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Abductive Reasoning")
	assert.Contains(t, body, "High Risk (137)")
	assert.Contains(t, body, `<div class="mono-block">[{&#34;user&#34;:&#34;root&#34;,&#34;alert_name&#34;:&#34;Root &lt;script&gt;&#34;}]</div>`)
	assert.Contains(t, body, "Rule Hits")
	assert.Contains(t, body, "privilege-escalation")

	assert.Equal(t, http.StatusNotFound, get(t, router, "/alerts/9").Code)
	assert.Equal(t, http.StatusNotFound, get(t, router, "/alerts/abc").Code)
}

func TestHealthz(t *testing.T) {
	router := NewServer(nil, nil, nil, Config{}).Router()
	rec := get(t, router, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
