package textview

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/SkothaSec/project-mimir/internal/present"
	"github.com/SkothaSec/project-mimir/internal/results"
	"github.com/SkothaSec/project-mimir/pkg/models"
)

var (
	colorBenign    = lipgloss.Color("#00ff00")
	colorWarning   = lipgloss.Color("#ffaa00")
	colorMalicious = lipgloss.Color("#ff0000")
	colorMuted     = lipgloss.Color("#666666")
	colorPrimary   = lipgloss.Color("#00ffff")
)

// SeverityColor is the palette entry for a severity.
func SeverityColor(s models.Severity) lipgloss.Color {
	switch s {
	case models.SeverityBenign:
		return colorBenign
	case models.SeverityWarning:
		return colorWarning
	case models.SeverityMalicious:
		return colorMalicious
	default:
		return colorMuted
	}
}

// ListOptions selects the page and order of a list rendering.
type ListOptions struct {
	Column    present.Column
	Direction present.Direction
	Page      int
	PageSize  int
	// Now anchors the relative age column; zero means time.Now.
	Now time.Time
}

// Renderer writes list and detail views to w.
type Renderer struct {
	w     io.Writer
	style *lipgloss.Renderer
}

// NewRenderer binds a renderer to w; colors follow w's terminal capabilities.
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{w: w, style: lipgloss.NewRenderer(w)}
}

// RenderState writes the list for a Loaded state, or the state's message otherwise.
func (r *Renderer) RenderState(state results.State, opts ListOptions) error {
	switch state.Phase {
	case results.Loading:
		_, err := fmt.Fprintln(r.w, r.style.NewStyle().Foreground(colorMuted).Render("Loading results..."))
		return err
	case results.Failed:
		_, err := fmt.Fprintln(r.w, r.style.NewStyle().Bold(true).Foreground(colorMalicious).Render(state.Message))
		return err
	}
	return r.RenderList(present.NewList(state.Records), opts)
}

// RenderList writes one sorted page as a table, with original indexes in the
// first column so a row can be opened with `mimir show`.
func (r *Renderer) RenderList(list present.List, opts ListOptions) error {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	page := list.Sorted(opts.Column, opts.Direction).PageRows(opts.Page, opts.PageSize)

	rows := make([][]string, 0, len(page))
	severities := make([]models.Severity, 0, len(page))
	for _, row := range page {
		rec := row.Record
		rows = append(rows, []string{
			strconv.Itoa(row.Index),
			present.FormatTimestamp(rec.Timestamp),
			age(rec.Timestamp, now),
			rec.ResolvedAlertName,
			orPlaceholder(rec.Verdict),
			string(rec.Severity),
			strconv.Itoa(rec.ConfidenceDisplay),
			present.LogCount(rec.LogCount),
		})
		severities = append(severities, rec.Severity)
	}

	header := r.style.NewStyle().Bold(true).Foreground(colorPrimary).Padding(0, 1)
	cell := r.style.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.style.NewStyle().Foreground(colorMuted)).
		Headers("#", "Timestamp", "Age", "Alert Name", "Verdict", "Severity", "Confidence", "Log Count").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			if col == 5 && row >= 0 && row < len(severities) {
				return cell.Foreground(SeverityColor(severities[row]))
			}
			return cell
		})

	footer := fmt.Sprintf("page %d/%d  sorted by %s %s  %d records",
		opts.Page+1, list.Pages(opts.PageSize), columnOrDefault(opts.Column), opts.Direction, list.Len())

	_, err := fmt.Fprintf(r.w, "%s\n%s\n", t.String(), r.style.NewStyle().Foreground(colorMuted).Render(footer))
	return err
}

// RenderDetail writes every detail field. Mono fields are written unstyled on
// their own lines: Style.Render pads lines and expands tabs.
func (r *Renderer) RenderDetail(view present.DetailView) error {
	label := r.style.NewStyle().Bold(true)

	var b strings.Builder
	for _, f := range view.Fields {
		if f.Mono {
			fmt.Fprintf(&b, "%s\n%s\n", label.Render(f.Label+":"), f.Value)
			continue
		}
		value := f.Value
		if f.Label == "Severity" {
			value = r.style.NewStyle().Foreground(SeverityColor(view.Record.Severity)).Render(value)
		}
		fmt.Fprintf(&b, "%s %s\n", label.Render(f.Label+":"), value)
	}

	if len(view.RuleHits) > 0 {
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("Rule", "Severity", "Tactic", "Technique")
		for _, hit := range view.RuleHits {
			t.Row(hit.Name, hit.Severity, orPlaceholder(hit.Tactic), orPlaceholder(hit.Technique))
		}
		fmt.Fprintf(&b, "%s\n%s\n", label.Render("Rule Hits:"), t.String())
	}

	_, err := io.WriteString(r.w, b.String())
	return err
}

func age(ts string, now time.Time) string {
	t, ok := present.ParseTimestamp(ts)
	if !ok {
		return models.Placeholder
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func columnOrDefault(c present.Column) present.Column {
	if c == "" {
		return present.ColumnTimestamp
	}
	return c
}

func orPlaceholder(s string) string {
	if s == "" {
		return models.Placeholder
	}
	return s
}
