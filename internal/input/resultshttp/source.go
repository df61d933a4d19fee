package resultshttp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/SkothaSec/project-mimir/pkg/models"
)

// maxBodyBytes bounds the results response; a batch is a handful of records.
const maxBodyBytes = 8 << 20

var (
	// ErrEmptyURL is returned when no results URL is configured.
	ErrEmptyURL = errors.New("results URL is empty")
	// ErrNotArray is returned when the endpoint body is not a JSON array.
	ErrNotArray = errors.New("results body is not a JSON array")
)

// Config configures the results endpoint client.
type Config struct {
	URL     string
	Timeout time.Duration
	Headers map[string]string
}

// Source reads assessment records from the results endpoint.
type Source struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// NewSource creates an HTTP results source.
func NewSource(cfg Config) (*Source, error) {
	if cfg.URL == "" {
		return nil, ErrEmptyURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Source{
		url:     cfg.URL,
		headers: cfg.Headers,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Name identifies the source in logs and metrics.
func (s *Source) Name() string {
	return "http"
}

// Fetch issues one GET and decodes the record array.
func (s *Source) Fetch(ctx context.Context) ([]models.RawAlertRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.WithHint(errors.Wrap(err, "results request failed"),
			"check that the results endpoint is reachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read results body")
	}

	if resp.StatusCode >= 300 {
		return nil, errors.Newf("results request failed with status %s", resp.Status)
	}

	return DecodeRecords(body)
}

// DecodeRecords decodes a JSON array of raw records.
func DecodeRecords(body []byte) ([]models.RawAlertRecord, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotArray
	}
	var records []models.RawAlertRecord
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, errors.Wrap(err, "failed to decode results")
	}
	return records, nil
}
