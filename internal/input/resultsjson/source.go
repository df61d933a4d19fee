package resultsjson

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/SkothaSec/project-mimir/internal/input/resultshttp"
	"github.com/SkothaSec/project-mimir/pkg/models"
)

// Source reads a batch from a local file holding either a JSON array of
// records or one record per line.
type Source struct {
	path string
}

// NewSource creates a file-backed results source.
func NewSource(path string) (*Source, error) {
	if path == "" {
		return nil, errors.New("results file path is empty")
	}
	return &Source{path: path}, nil
}

// Name identifies the source in logs and metrics.
func (s *Source) Name() string {
	return "file"
}

// Fetch reads and decodes the file.
func (s *Source) Fetch(ctx context.Context) ([]models.RawAlertRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read results file %s", s.path)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return resultshttp.DecodeRecords(trimmed)
	}
	return decodeLines(trimmed)
}

func decodeLines(data []byte) ([]models.RawAlertRecord, error) {
	var records []models.RawAlertRecord
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 8<<20)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var rec models.RawAlertRecord
		if err := json.Unmarshal(text, &rec); err != nil {
			return nil, errors.Wrapf(err, "failed to decode record on line %d", line)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to scan results file")
	}
	return records, nil
}
