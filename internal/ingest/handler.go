package ingest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/mux"

	"github.com/SkothaSec/project-mimir/internal/assessments"
	"github.com/SkothaSec/project-mimir/internal/logger"
	"github.com/SkothaSec/project-mimir/internal/metrics"
	"github.com/SkothaSec/project-mimir/pkg/models"
)

const (
	defaultMaxBodyBytes = 1 << 20
	defaultResultsLimit = 5
	maxResultsLimit     = 100
)

// Rejection messages returned as plain-text 400 responses.
const (
	msgNoMessage     = "no Pub/Sub message received"
	msgInvalidFormat = "invalid Pub/Sub message format"
	msgDataMissing   = "data missing"
	msgInvalidSchema = "invalid log schema"
)

// ErrInvalidSchema reports a log without a non-blank log_id and timestamp.
var ErrInvalidSchema = errors.New(msgInvalidSchema)

// Config tunes the push receiver and the results endpoint.
type Config struct {
	MaxBodyBytes int64
	ResultsLimit int64
}

// Handler receives Pub/Sub pushes, assesses each log and serves the latest
// assessments to the dashboard.
type Handler struct {
	store    assessments.Store
	assessor Assessor
	metrics  *metrics.Metrics
	cfg      Config
}

// Option configures a Handler.
type Option func(*Handler)

// WithMetrics records ingest outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// NewHandler creates a handler. A nil assessor means PlaceholderAssessor.
func NewHandler(store assessments.Store, assessor Assessor, cfg Config, opts ...Option) *Handler {
	if assessor == nil {
		assessor = PlaceholderAssessor{}
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.ResultsLimit <= 0 {
		cfg.ResultsLimit = defaultResultsLimit
	}
	h := &Handler{store: store, assessor: assessor, cfg: cfg}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the ingest routes on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/", h.handlePush).Methods(http.MethodPost)
	r.HandleFunc("/api/results", h.handleResults).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeText(w, http.StatusOK, "ok")
	}).Methods(http.MethodGet)
}

// Router returns a router with the ingest routes.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	h.Register(r)
	return r
}

// Process assesses a validated log and stores the resulting record.
func (h *Handler) Process(ctx context.Context, entry models.LogEntry) (models.RawAlertRecord, error) {
	if !ValidLog(entry) {
		return models.RawAlertRecord{}, ErrInvalidSchema
	}
	logger.Infof("Processing Log ID: %s", entry.LogID())

	assessment, err := h.assessor.Assess(ctx, entry)
	if err != nil {
		return models.RawAlertRecord{}, errors.Wrapf(err, "assess log %s", entry.LogID())
	}
	record, err := BuildRecord(entry, assessment)
	if err != nil {
		return models.RawAlertRecord{}, err
	}
	if err := h.store.Append(ctx, record); err != nil {
		return models.RawAlertRecord{}, errors.Wrapf(err, "store assessment for log %s", entry.LogID())
	}
	return record, nil
}

func (h *Handler) handlePush(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.reject(w, http.StatusRequestEntityTooLarge, "too_large", "request body too large")
			return
		}
		h.reject(w, http.StatusBadRequest, "rejected", msgNoMessage)
		return
	}

	entry, msg := decodePush(body)
	if msg != "" {
		h.reject(w, http.StatusBadRequest, "rejected", msg)
		return
	}
	if !ValidLog(entry) {
		h.reject(w, http.StatusBadRequest, "rejected", msgInvalidSchema)
		return
	}

	if _, err := h.Process(r.Context(), entry); err != nil {
		logger.Errorf("Encountered errors while storing assessment: %v", err)
		h.reject(w, http.StatusInternalServerError, "store_error", "store error")
		return
	}

	h.observe("processed")
	writeText(w, http.StatusOK, "Log Processed")
}

func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	limit := h.cfg.ResultsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			writeText(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxResultsLimit)
	}

	records, err := h.store.Latest(r.Context(), limit)
	if err != nil {
		logger.Errorf("Failed to read assessments: %v", err)
		writeText(w, http.StatusInternalServerError, "store error")
		return
	}
	if records == nil {
		records = []models.RawAlertRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		logger.Warnf("Failed to write results response: %v", err)
	}
}

func (h *Handler) reject(w http.ResponseWriter, status int, result, msg string) {
	logger.Warnf("Rejected push message: %s", msg)
	h.observe(result)
	writeText(w, status, msg)
}

func (h *Handler) observe(result string) {
	if h.metrics != nil {
		h.metrics.ObserveIngest(result)
	}
}

// decodePush unwraps a push envelope. A non-empty message is the rejection text.
func decodePush(body []byte) (models.LogEntry, string) {
	var envelope any
	if err := json.Unmarshal(body, &envelope); err != nil || isEmpty(envelope) {
		return nil, msgNoMessage
	}

	fields, ok := envelope.(map[string]any)
	if !ok {
		return nil, msgInvalidFormat
	}
	message, ok := fields["message"]
	if !ok {
		return nil, msgInvalidFormat
	}
	msgFields, ok := message.(map[string]any)
	if !ok {
		return nil, msgDataMissing
	}
	data, ok := msgFields["data"]
	if !ok {
		return nil, msgDataMissing
	}

	encoded, ok := data.(string)
	if !ok {
		return nil, "invalid data: data must be a base64 string"
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "invalid data: " + err.Error()
	}
	if !utf8.Valid(decoded) {
		return nil, "invalid data: payload is not valid UTF-8"
	}

	var payload any
	if err := json.Unmarshal(decoded, &payload); err != nil {
		return nil, "invalid data: " + err.Error()
	}
	entry, ok := payload.(map[string]any)
	if !ok {
		return nil, msgInvalidSchema
	}
	return models.LogEntry(entry), ""
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case map[string]any:
		return len(val) == 0
	case []any:
		return len(val) == 0
	case string:
		return val == ""
	case bool:
		return !val
	case float64:
		return val == 0
	}
	return false
}

// ValidLog reports whether log_id and timestamp are non-blank strings.
func ValidLog(entry models.LogEntry) bool {
	if entry == nil {
		return false
	}
	for _, field := range []string{"log_id", "timestamp"} {
		s, ok := entry[field].(string)
		if !ok || strings.TrimSpace(s) == "" {
			return false
		}
	}
	return true
}

// Envelope wraps a log in a Pub/Sub push body.
func Envelope(entry models.LogEntry) ([]byte, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, errors.Wrap(err, "encode log")
	}
	return json.Marshal(map[string]any{
		"message": map[string]any{
			"data": base64.StdEncoding.EncodeToString(data),
		},
	})
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, msg)
}
