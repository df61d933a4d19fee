package pipeline

import "github.com/SkothaSec/project-mimir/pkg/models"

// RecordWriter writes derived assessment records.
type RecordWriter interface {
	WriteRecords(records []models.AlertRecord) error
	Close() error
}
