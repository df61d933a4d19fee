package tui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/paginator"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/SkothaSec/project-mimir/internal/output/textview"
	"github.com/SkothaSec/project-mimir/internal/present"
	"github.com/SkothaSec/project-mimir/internal/results"
	"github.com/SkothaSec/project-mimir/internal/rules"
	"github.com/SkothaSec/project-mimir/pkg/models"
)

type screen int

const (
	screenList screen = iota
	screenDetail
)

// loadedMsg carries the settled state of the single fetch.
type loadedMsg struct {
	state results.State
}

// Model is the interactive dashboard. It owns one ViewModel and therefore
// fetches once per session.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	vm     *results.ViewModel
	engine rules.Engine

	keys   keyMap
	styles styles

	spinner   spinner.Model
	table     table.Model
	paginator paginator.Model
	viewport  viewport.Model

	state    results.State
	list     present.List
	pageRows []present.Row
	column   present.Column
	dir      present.Direction
	screen   screen
	detail   present.DetailView

	width  int
	height int
}

// New creates the dashboard model. engine may be nil.
func New(parent context.Context, vm *results.ViewModel, engine rules.Engine, pageSize int) Model {
	if pageSize <= 0 {
		pageSize = present.DefaultPageSize
	}
	ctx, cancel := context.WithCancel(parent)

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(colorPrimary)

	p := paginator.New()
	p.Type = paginator.Dots
	p.PerPage = pageSize
	p.ActiveDot = lipgloss.NewStyle().Foreground(colorPrimary).Render("•")
	p.InactiveDot = lipgloss.NewStyle().Foreground(colorMuted).Render("•")
	p.KeyMap = paginator.KeyMap{
		PrevPage: key.NewBinding(key.WithKeys("left", "h")),
		NextPage: key.NewBinding(key.WithKeys("right", "l")),
	}

	t := table.New(
		table.WithColumns(columns(100)),
		table.WithHeight(pageSize+1),
		table.WithFocused(true),
		table.WithStyles(tableStyles()),
	)

	return Model{
		ctx:       ctx,
		cancel:    cancel,
		vm:        vm,
		engine:    engine,
		keys:      defaultKeyMap(),
		styles:    newStyles(),
		spinner:   sp,
		table:     t,
		paginator: p,
		viewport:  viewport.New(100, 20),
		state:     vm.State(),
		column:    present.ColumnTimestamp,
		dir:       present.Descending,
	}
}

// Init starts the spinner and the fetch.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load())
}

func (m Model) load() tea.Cmd {
	vm, ctx := m.vm, m.ctx
	return func() tea.Msg {
		return loadedMsg{state: vm.Load(ctx)}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetColumns(columns(msg.Width))
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-4, 5)
		return m, nil

	case loadedMsg:
		m.state = msg.state
		if m.state.Phase == results.Loaded {
			m.list = present.NewList(m.state.Records)
			m.paginator.SetTotalPages(m.list.Len())
			m.refreshRows()
		}
		return m, nil

	case spinner.TickMsg:
		if m.state.Phase != results.Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.cancel()
			return m, tea.Quit
		}
		if m.state.Phase != results.Loaded {
			return m, nil
		}
		if m.screen == screenDetail {
			return m.updateDetail(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Sort):
		m.column = m.column.Next()
		m.paginator.Page = 0
		m.refreshRows()
		return m, nil
	case key.Matches(msg, m.keys.Reverse):
		m.dir = m.dir.Reverse()
		m.paginator.Page = 0
		m.refreshRows()
		return m, nil
	case key.Matches(msg, m.keys.Open):
		cursor := m.table.Cursor()
		if cursor < 0 || cursor >= len(m.pageRows) {
			return m, nil
		}
		m.detail = present.NewDetailView(m.pageRows[cursor].Record, m.engine)
		m.viewport.SetContent(renderDetail(m.detail))
		m.viewport.GotoTop()
		m.screen = screenDetail
		return m, nil
	case key.Matches(msg, m.paginator.KeyMap.PrevPage, m.paginator.KeyMap.NextPage):
		page := m.paginator.Page
		var cmd tea.Cmd
		m.paginator, cmd = m.paginator.Update(msg)
		if m.paginator.Page != page {
			m.refreshRows()
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Back) {
		m.screen = screenList
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// refreshRows reloads the visible page after a sort or page change.
func (m *Model) refreshRows() {
	m.pageRows = m.list.Sorted(m.column, m.dir).PageRows(m.paginator.Page, m.paginator.PerPage)
	rows := make([]table.Row, 0, len(m.pageRows))
	for _, row := range m.pageRows {
		rec := row.Record
		rows = append(rows, table.Row{
			strconv.Itoa(row.Index),
			present.FormatTimestamp(rec.Timestamp),
			rec.ResolvedAlertName,
			orPlaceholder(rec.Verdict),
			string(rec.Severity),
			strconv.Itoa(rec.ConfidenceDisplay),
			present.LogCount(rec.LogCount),
		})
	}
	m.table.SetRows(rows)
	m.table.SetCursor(0)
}

// View renders the current screen.
func (m Model) View() string {
	header := m.styles.title.Render("Mimir Investigator") + "\n" +
		m.styles.subtitle.Render("Latest Vertex assessments")

	switch m.state.Phase {
	case results.Loading:
		return fmt.Sprintf("%s\n%s %s\n", header, m.spinner.View(), "Loading results...")
	case results.Failed:
		return fmt.Sprintf("%s\n%s\n%s\n", header,
			m.styles.errorBox.Render(m.state.Message),
			m.styles.help.Render(helpLine(m.keys.Quit)))
	}

	if m.screen == screenDetail {
		title := severityStyle(m.detail.Record.Severity).Render(m.detail.Record.ResolvedAlertName)
		return fmt.Sprintf("%s\n%s\n%s\n", title, m.viewport.View(),
			m.styles.help.Render(helpLine(m.keys.Back, m.keys.Quit)))
	}

	if m.list.Len() == 0 {
		return fmt.Sprintf("%s\n%s\n%s\n", header,
			m.styles.muted.Render("No assessments yet."),
			m.styles.help.Render(helpLine(m.keys.Quit)))
	}

	status := m.styles.muted.Render(fmt.Sprintf("sorted by %s %s  %d records", m.column, m.dir, m.list.Len()))
	return fmt.Sprintf("%s\n%s\n%s  %s\n%s\n", header,
		m.styles.panel.Render(m.table.View()),
		m.paginator.View(), status,
		m.styles.help.Render(helpLine(m.keys.Open, m.keys.Sort, m.keys.Reverse, m.keys.Quit)))
}

// State exposes the view state, for callers that render after the program exits.
func (m Model) State() results.State {
	return m.state
}

func renderDetail(view present.DetailView) string {
	var buf bytes.Buffer
	if err := textview.NewRenderer(&buf).RenderDetail(view); err != nil {
		return err.Error()
	}
	return strings.TrimRight(buf.String(), "\n")
}

func columns(width int) []table.Column {
	name := max(width-4-6-20-16-10-11-10-16, 16)
	return []table.Column{
		{Title: "#", Width: 4},
		{Title: "Timestamp", Width: 20},
		{Title: "Alert Name", Width: name},
		{Title: "Verdict", Width: 16},
		{Title: "Severity", Width: 10},
		{Title: "Confidence", Width: 11},
		{Title: "Log Count", Width: 10},
	}
}

func orPlaceholder(s string) string {
	if s == "" {
		return models.Placeholder
	}
	return s
}
