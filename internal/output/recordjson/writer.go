package recordjson

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/SkothaSec/project-mimir/internal/logger"
	"github.com/SkothaSec/project-mimir/pkg/models"
)

// Writer outputs derived records as JSON lines. The lines decode back into
// RawAlertRecords, so an export can be replayed through the file source.
type Writer struct {
	out     io.Writer
	closer  io.Closer
	encoder *json.Encoder
	mu      sync.Mutex
	count   int
}

// NewWriter creates a JSONL writer for path; "-" writes to stdout.
func NewWriter(path string) (*Writer, error) {
	if path == "-" {
		return NewStreamWriter(os.Stdout), nil
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(err, "failed to create output directory")
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create output file")
	}

	logger.Infof("Record JSON writer initialized: %s", path)
	w := NewStreamWriter(f)
	w.closer = f
	return w, nil
}

// NewStreamWriter writes to w without owning it.
func NewStreamWriter(w io.Writer) *Writer {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Writer{out: w, encoder: enc}
}

// WriteRecords writes a batch of records in order.
func (w *Writer) WriteRecords(records []models.AlertRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := range records {
		if err := w.encoder.Encode(records[i]); err != nil {
			return errors.Wrapf(err, "failed to encode record %d", w.count)
		}
		w.count++
	}
	return nil
}

// Count reports how many records were written.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close closes the output file, if the writer opened one.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closer != nil {
		err := w.closer.Close()
		w.closer = nil
		return err
	}
	return nil
}
