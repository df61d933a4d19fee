package htmlview

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/mux"

	"github.com/SkothaSec/project-mimir/internal/logger"
	"github.com/SkothaSec/project-mimir/internal/metrics"
	"github.com/SkothaSec/project-mimir/internal/pipeline"
	"github.com/SkothaSec/project-mimir/internal/present"
	"github.com/SkothaSec/project-mimir/internal/results"
	"github.com/SkothaSec/project-mimir/internal/rules"
	"github.com/SkothaSec/project-mimir/pkg/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("mimir").Funcs(template.FuncMap{
	"timestamp":     present.FormatTimestamp,
	"logCount":      present.LogCount,
	"orPlaceholder": orPlaceholder,
}).ParseFS(templateFS, "templates/*.html"))

// Config tunes the dashboard.
type Config struct {
	PageSize    int
	MetricsPath string
}

// Server renders the dashboard. Every page request is its own view mount with
// its own ViewModel and single fetch.
type Server struct {
	source  pipeline.Source
	engine  rules.Engine
	metrics *metrics.Metrics
	cfg     Config
}

// NewServer creates the dashboard. engine and m may be nil.
func NewServer(source pipeline.Source, engine rules.Engine, m *metrics.Metrics, cfg Config) *Server {
	if cfg.PageSize <= 0 {
		cfg.PageSize = present.DefaultPageSize
	}
	return &Server{source: source, engine: engine, metrics: m, cfg: cfg}
}

// Router returns the dashboard routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/alerts/{index:[0-9]+}", s.handleDetail).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	if s.metrics != nil && s.cfg.MetricsPath != "" {
		r.Handle(s.cfg.MetricsPath, s.metrics.Handler()).Methods(http.MethodGet)
	}
	return r
}

type header struct {
	Label  string
	Column present.Column
	Href   string
	Active bool
}

type listPage struct {
	Title      string
	Headers    []header
	Arrow      string
	Rows       []present.Row
	PageNumber int
	Pages      int
	Total      int
	PrevHref   string
	NextHref   string
}

type detailPage struct {
	Title string
	View  present.DetailView
}

type failedPage struct {
	Title   string
	Message string
}

func (s *Server) load(r *http.Request, view string) results.State {
	vm := results.NewViewModel(s.source, results.WithMetrics(s.metrics))
	state := vm.Load(r.Context())
	if s.metrics != nil {
		s.metrics.ObserveView(view, state.Phase.String())
	}
	return state
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	column, err := present.ParseColumn(q.Get("sort"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	dir, err := present.ParseDirection(q.Get("dir"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}

	state := s.load(r, "list")
	if state.Phase != results.Loaded {
		s.renderFailed(w, state)
		return
	}

	list := present.NewList(state.Records).Sorted(column, dir)
	pages := list.Pages(s.cfg.PageSize)
	page = min(page, pages)

	data := listPage{
		Title:      "Mimir Investigator",
		Headers:    headers(column, dir),
		Arrow:      arrow(dir),
		Rows:       list.PageRows(page-1, s.cfg.PageSize),
		PageNumber: page,
		Pages:      pages,
		Total:      list.Len(),
	}
	if page > 1 {
		data.PrevHref = listHref(column, dir, page-1)
	}
	if page < pages {
		data.NextHref = listHref(column, dir, page+1)
	}
	s.render(w, http.StatusOK, "list", data)
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		http.NotFound(w, r)
		return
	}

	state := s.load(r, "detail")
	if state.Phase != results.Loaded {
		s.renderFailed(w, state)
		return
	}

	rec, ok := present.NewList(state.Records).At(index)
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.render(w, http.StatusOK, "detail", detailPage{
		Title: "Mimir Investigator - " + rec.ResolvedAlertName,
		View:  present.NewDetailView(rec, s.engine),
	})
}

func (s *Server) renderFailed(w http.ResponseWriter, state results.State) {
	msg := state.Message
	if msg == "" {
		msg = "Results are not available."
	}
	s.render(w, http.StatusBadGateway, "failed", failedPage{Title: "Mimir Investigator", Message: msg})
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		logger.Errorf("Failed to render %s page: %v", name, errors.Wrap(err, "execute template"))
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

var headerLabels = []struct {
	label  string
	column present.Column
}{
	{"Timestamp", present.ColumnTimestamp},
	{"Alert Name", present.ColumnAlertName},
	{"Verdict", present.ColumnVerdict},
	{"Confidence", present.ColumnConfidence},
	{"Log Count", present.ColumnLogCount},
	{"Severity", present.ColumnSeverity},
}

// headers links each column to its ascending sort, or flips the active one.
func headers(active present.Column, dir present.Direction) []header {
	out := make([]header, 0, len(headerLabels))
	for _, h := range headerLabels {
		next := present.Ascending
		if h.column == active {
			next = dir.Reverse()
		}
		out = append(out, header{
			Label:  h.label,
			Column: h.column,
			Href:   listHref(h.column, next, 1),
			Active: h.column == active,
		})
	}
	return out
}

func listHref(column present.Column, dir present.Direction, page int) string {
	q := url.Values{}
	q.Set("sort", string(column))
	q.Set("dir", dir.String())
	q.Set("page", strconv.Itoa(page))
	return "/?" + q.Encode()
}

func arrow(dir present.Direction) string {
	if dir == present.Descending {
		return "▼"
	}
	return "▲"
}

func orPlaceholder(s string) string {
	if s == "" {
		return models.Placeholder
	}
	return s
}
