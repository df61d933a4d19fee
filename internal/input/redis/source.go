package redis

import (
	"context"

	"github.com/SkothaSec/project-mimir/pkg/models"
)

// Latester is the read side of the assessment store.
type Latester interface {
	Latest(ctx context.Context, limit int64) ([]models.RawAlertRecord, error)
}

// Source reads the latest assessments from the Redis store.
type Source struct {
	store Latester
	limit int64
}

// NewSource wraps a store; limit defaults to the last five records.
func NewSource(store Latester, limit int64) *Source {
	if limit <= 0 {
		limit = 5
	}
	return &Source{store: store, limit: limit}
}

// Name identifies the source in logs and metrics.
func (s *Source) Name() string {
	return "redis"
}

// Fetch returns the newest records.
func (s *Source) Fetch(ctx context.Context) ([]models.RawAlertRecord, error) {
	return s.store.Latest(ctx, s.limit)
}
