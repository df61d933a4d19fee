package ingest

import (
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/SkothaSec/project-mimir/pkg/models"
)

// SSHTemplate is the default synthetic log shape.
var SSHTemplate = models.LogEntry{
	"event_type":     "ssh_login",
	"user":           "unknown",
	"source_ip":      "192.168.1.100",
	"destination_ip": "192.168.1.1",
	"status":         "FAILURE",
}

// Generator builds synthetic logs relative to a fixed start time.
type Generator struct {
	base  time.Time
	newID func() string
}

// NewGenerator anchors every generated timestamp to base.
func NewGenerator(base time.Time) *Generator {
	return &Generator{base: base.UTC(), newID: func() string { return uuid.NewString() }}
}

// BuildLog copies template, assigns a fresh log_id and a timestamp offset from
// the start time, then applies overrides. The template is never modified.
func (g *Generator) BuildLog(template models.LogEntry, offset time.Duration, overrides models.LogEntry) models.LogEntry {
	event := make(models.LogEntry, len(template)+2+len(overrides))
	maps.Copy(event, template)
	event["log_id"] = g.newID()
	event["timestamp"] = formatTimestamp(g.base.Add(offset))
	maps.Copy(event, overrides)
	return event
}

// BruteForceSequence is a run of failed SSH logins from one address followed by
// a success, spaced step apart.
func (g *Generator) BruteForceSequence(attempts int, step time.Duration) []models.LogEntry {
	if attempts < 1 {
		attempts = 1
	}
	out := make([]models.LogEntry, 0, attempts+1)
	for i := 0; i < attempts; i++ {
		out = append(out, g.BuildLog(SSHTemplate, time.Duration(i)*step, models.LogEntry{
			"user":           "admin",
			"source_ip":      "203.0.113.7",
			"alert_group_id": "ssh-bruteforce",
		}))
	}
	out = append(out, g.BuildLog(SSHTemplate, time.Duration(attempts)*step, models.LogEntry{
		"user":           "admin",
		"source_ip":      "203.0.113.7",
		"status":         "SUCCESS",
		"alert_group_id": "ssh-bruteforce",
		"alert_name":     "SSH login after repeated failures",
	}))
	return out
}

// formatTimestamp is ISO 8601 UTC with a Z suffix and microseconds when present.
func formatTimestamp(t time.Time) string {
	t = t.UTC().Truncate(time.Microsecond)
	if t.Nanosecond() == 0 {
		return t.Format("2006-01-02T15:04:05Z")
	}
	return t.Format("2006-01-02T15:04:05.000000Z")
}
