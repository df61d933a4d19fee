package alerts

import (
	"encoding/json"

	"github.com/SkothaSec/project-mimir/pkg/models"
)

// Shape tags the parsed form of a raw_logs payload.
type Shape int

const (
	// ShapeMalformed means the payload is not valid JSON.
	ShapeMalformed Shape = iota
	// ShapeSequence is a JSON array of log entries.
	ShapeSequence
	// ShapeRecord is a single JSON object.
	ShapeRecord
	// ShapeOther is any other valid JSON value, including null.
	ShapeOther
)

func (s Shape) String() string {
	switch s {
	case ShapeSequence:
		return "sequence"
	case ShapeRecord:
		return "record"
	case ShapeOther:
		return "other"
	default:
		return "malformed"
	}
}

// absentLogs is parsed in place of a missing raw_logs value.
const absentLogs = "null"

// ParsedLogs is the tagged result of ClassifyLogs. Items is set for ShapeSequence,
// Fields for ShapeRecord.
type ParsedLogs struct {
	Shape  Shape
	Items  []interface{}
	Fields map[string]interface{}
}

// Evidence summarizes the raw_logs payload of one record.
type Evidence struct {
	Shape             Shape
	LogCount          *int
	ResolvedAlertName string
}

// ClassifyLogs parses raw_logs once and tags its shape.
func ClassifyLogs(rawLogs string) ParsedLogs {
	if rawLogs == "" {
		rawLogs = absentLogs
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(rawLogs), &parsed); err != nil {
		return ParsedLogs{Shape: ShapeMalformed}
	}

	switch v := parsed.(type) {
	case []interface{}:
		return ParsedLogs{Shape: ShapeSequence, Items: v}
	case map[string]interface{}:
		return ParsedLogs{Shape: ShapeRecord, Fields: v}
	default:
		return ParsedLogs{Shape: ShapeOther}
	}
}

// Entries returns the object-valued log entries of the payload, in order.
func (p ParsedLogs) Entries() []models.LogEntry {
	switch p.Shape {
	case ShapeSequence:
		out := make([]models.LogEntry, 0, len(p.Items))
		for _, item := range p.Items {
			if m, ok := item.(map[string]interface{}); ok {
				out = append(out, models.LogEntry(m))
			}
		}
		return out
	case ShapeRecord:
		return []models.LogEntry{models.LogEntry(p.Fields)}
	default:
		return nil
	}
}

// DeriveEvidence computes the log count and the alert name shown for a record.
// An explicit name wins over one found in the logs; malformed input only
// degrades the count to nil.
func DeriveEvidence(rawLogs, explicitAlertName string) Evidence {
	parsed := ClassifyLogs(rawLogs)

	var count *int
	var candidate string
	switch parsed.Shape {
	case ShapeSequence:
		n := len(parsed.Items)
		count = &n
		if len(parsed.Items) > 0 {
			if first, ok := parsed.Items[0].(map[string]interface{}); ok {
				candidate = alertNameOf(first)
			}
		}
	case ShapeRecord:
		n := 1
		count = &n
		candidate = alertNameOf(parsed.Fields)
	}

	return Evidence{
		Shape:             parsed.Shape,
		LogCount:          count,
		ResolvedAlertName: resolveAlertName(explicitAlertName, candidate),
	}
}

// alertNameOf accepts any truthy alert_name, so numeric event IDs become names.
func alertNameOf(fields map[string]interface{}) string {
	switch v := fields["alert_name"].(type) {
	case nil:
		return ""
	case bool:
		if !v {
			return ""
		}
	case float64:
		if v == 0 {
			return ""
		}
	}
	return models.FieldString(fields["alert_name"])
}

func resolveAlertName(explicit, candidate string) string {
	if explicit != "" {
		return explicit
	}
	if candidate != "" {
		return candidate
	}
	return models.Placeholder
}
