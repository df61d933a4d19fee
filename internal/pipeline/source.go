package pipeline

import (
	"context"

	"github.com/SkothaSec/project-mimir/pkg/models"
)

// Source fetches the most recent batch of raw assessment records.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]models.RawAlertRecord, error)
}

// RawWriter appends raw assessment records, newest last.
type RawWriter interface {
	Append(ctx context.Context, record models.RawAlertRecord) error
}
