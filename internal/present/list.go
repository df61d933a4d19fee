package present

import (
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/SkothaSec/project-mimir/pkg/models"
)

// DefaultPageSize matches the dashboard grid.
const DefaultPageSize = 5

// Column names a sortable list column.
type Column string

const (
	ColumnTimestamp  Column = "timestamp"
	ColumnAlertName  Column = "alert_name"
	ColumnVerdict    Column = "verdict"
	ColumnConfidence Column = "confidence"
	ColumnLogCount   Column = "log_count"
	ColumnSeverity   Column = "severity"
)

// Columns lists the sortable columns in cycling order.
var Columns = []Column{
	ColumnTimestamp,
	ColumnAlertName,
	ColumnVerdict,
	ColumnConfidence,
	ColumnLogCount,
	ColumnSeverity,
}

// ParseColumn accepts a column name; empty means timestamp.
func ParseColumn(s string) (Column, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ColumnTimestamp, nil
	}
	for _, c := range Columns {
		if string(c) == s {
			return c, nil
		}
	}
	return "", errors.Newf("unknown sort column %q", s)
}

// Next returns the column after c, wrapping around.
func (c Column) Next() Column {
	for i, col := range Columns {
		if col == c {
			return Columns[(i+1)%len(Columns)]
		}
	}
	return Columns[0]
}

// Direction is the sort order.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Reverse flips the direction.
func (d Direction) Reverse() Direction {
	if d == Descending {
		return Ascending
	}
	return Descending
}

// ParseDirection accepts "asc" or "desc"; empty means ascending.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc":
		return Ascending, nil
	case "desc":
		return Descending, nil
	}
	return Ascending, errors.Newf("unknown sort direction %q", s)
}

// Row is a record together with its position in the fetched batch.
type Row struct {
	Index  int
	Record models.AlertRecord
}

// List is a read-only view over a derived record set.
type List struct {
	rows []Row
}

// NewList copies records so later sorting cannot reach the caller's slice.
func NewList(records []models.AlertRecord) List {
	rows := make([]Row, len(records))
	for i, rec := range records {
		rows[i] = Row{Index: i, Record: rec}
	}
	return List{rows: rows}
}

// Len is the number of records.
func (l List) Len() int {
	return len(l.rows)
}

// Records returns a copy of the records in list order.
func (l List) Records() []models.AlertRecord {
	return records(l.rows)
}

// At returns the record fetched at index i, whatever the list order.
func (l List) At(i int) (models.AlertRecord, bool) {
	for _, row := range l.rows {
		if row.Index == i {
			return row.Record, true
		}
	}
	return models.AlertRecord{}, false
}

// Sorted returns a new List ordered by column. The sort is stable, so equal keys
// keep their fetch order.
func (l List) Sorted(column Column, dir Direction) List {
	out := List{rows: slices.Clone(l.rows)}
	less := lessFunc(column)
	sort.SliceStable(out.rows, func(i, j int) bool {
		if dir == Descending {
			return less(out.rows[j].Record, out.rows[i].Record)
		}
		return less(out.rows[i].Record, out.rows[j].Record)
	})
	return out
}

// Pages is the page count for size; an empty list still has one page.
func (l List) Pages(size int) int {
	size = pageSize(size)
	if len(l.rows) == 0 {
		return 1
	}
	return (len(l.rows) + size - 1) / size
}

// PageRows returns zero-based page n with each record's fetch index.
// Out-of-range pages are empty.
func (l List) PageRows(n, size int) []Row {
	size = pageSize(size)
	start := n * size
	if n < 0 || start >= len(l.rows) {
		return []Row{}
	}
	end := min(start+size, len(l.rows))
	return slices.Clone(l.rows[start:end])
}

func records(rows []Row) []models.AlertRecord {
	out := make([]models.AlertRecord, len(rows))
	for i, row := range rows {
		out[i] = row.Record
	}
	return out
}

func pageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	return size
}

func lessFunc(column Column) func(a, b models.AlertRecord) bool {
	switch column {
	case ColumnAlertName:
		return func(a, b models.AlertRecord) bool {
			return strings.ToLower(a.ResolvedAlertName) < strings.ToLower(b.ResolvedAlertName)
		}
	case ColumnVerdict:
		return func(a, b models.AlertRecord) bool {
			return strings.ToLower(a.Verdict) < strings.ToLower(b.Verdict)
		}
	case ColumnConfidence:
		return func(a, b models.AlertRecord) bool {
			return a.ConfidenceDisplay < b.ConfidenceDisplay
		}
	case ColumnLogCount:
		return func(a, b models.AlertRecord) bool {
			switch {
			case a.LogCount == nil:
				return b.LogCount != nil
			case b.LogCount == nil:
				return false
			}
			return *a.LogCount < *b.LogCount
		}
	case ColumnSeverity:
		return func(a, b models.AlertRecord) bool {
			return severityRank(a.Severity) < severityRank(b.Severity)
		}
	default:
		return func(a, b models.AlertRecord) bool {
			ta, okA := ParseTimestamp(a.Timestamp)
			tb, okB := ParseTimestamp(b.Timestamp)
			switch {
			case !okA:
				return okB
			case !okB:
				return false
			}
			return ta.Before(tb)
		}
	}
}

func severityRank(s models.Severity) int {
	switch s {
	case models.SeverityBenign:
		return 1
	case models.SeverityWarning:
		return 2
	case models.SeverityMalicious:
		return 3
	}
	return 0
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp accepts RFC3339 and the common naive layouts.
func ParseTimestamp(ts string) (time.Time, bool) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTimestamp renders a parsable timestamp in local time, otherwise the raw
// text, and the placeholder when empty.
func FormatTimestamp(ts string) string {
	if strings.TrimSpace(ts) == "" {
		return models.Placeholder
	}
	t, ok := ParseTimestamp(ts)
	if !ok {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
