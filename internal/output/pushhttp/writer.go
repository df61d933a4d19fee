package pushhttp

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/SkothaSec/project-mimir/internal/ingest"
	"github.com/SkothaSec/project-mimir/pkg/models"
)

// Config configures the push writer.
type Config struct {
	URL     string
	Timeout time.Duration
	Headers map[string]string
}

// Writer delivers logs to an ingest endpoint wrapped in Pub/Sub push envelopes,
// one request per log.
type Writer struct {
	url     string
	headers map[string]string
	client  *http.Client
	sent    int
}

// NewWriter creates a push writer.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.URL == "" {
		return nil, errors.New("push URL is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Writer{
		url:     cfg.URL,
		headers: cfg.Headers,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// WriteLogs pushes logs in order and stops at the first rejection.
func (w *Writer) WriteLogs(ctx context.Context, logs []models.LogEntry) error {
	for _, entry := range logs {
		if err := w.push(ctx, entry); err != nil {
			return err
		}
		w.sent++
	}
	return nil
}

func (w *Writer) push(ctx context.Context, entry models.LogEntry) error {
	body, err := ingest.Envelope(entry)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "push log %s", entry.LogID())
	}
	reply, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	resp.Body.Close()

	// Pub/Sub treats any non-2xx as a nack; the receiver answers 200 on success.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Newf("push log %s: %s: %s", entry.LogID(), resp.Status, bytes.TrimSpace(reply))
	}
	return nil
}

// Sent reports how many logs were accepted.
func (w *Writer) Sent() int {
	return w.sent
}

// Close releases HTTP resources.
func (w *Writer) Close() error {
	w.client.CloseIdleConnections()
	return nil
}
