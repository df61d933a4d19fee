package assessments

import (
	"context"
	"sync"

	"github.com/SkothaSec/project-mimir/internal/pipeline"
	"github.com/SkothaSec/project-mimir/pkg/models"
)

// Store is the assessment persistence used by the ingest service.
type Store interface {
	pipeline.RawWriter
	Latest(ctx context.Context, limit int64) ([]models.RawAlertRecord, error)
	Close() error
}

// MemoryStore is an in-process Store for local runs without Redis.
type MemoryStore struct {
	mu        sync.Mutex
	records   []models.RawAlertRecord
	retention int
}

// NewMemoryStore keeps at most retention records.
func NewMemoryStore(retention int64) *MemoryStore {
	if retention <= 0 {
		retention = 500
	}
	return &MemoryStore{retention: int(retention)}
}

// Append stores one assessment, dropping the oldest past the retention cap.
func (s *MemoryStore) Append(ctx context.Context, record models.RawAlertRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, record)
	if over := len(s.records) - s.retention; over > 0 {
		s.records = append([]models.RawAlertRecord(nil), s.records[over:]...)
	}
	return nil
}

// Latest returns up to limit assessments, newest first.
func (s *MemoryStore) Latest(ctx context.Context, limit int64) ([]models.RawAlertRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := min(int(limit), len(s.records))
	out := make([]models.RawAlertRecord, 0, n)
	for i := len(s.records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
