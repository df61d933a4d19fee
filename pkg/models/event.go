package models

import (
	"encoding/json"
	"fmt"
)

// LogEntry is one evidence log object, as found inside raw_logs or received by ingest.
type LogEntry map[string]interface{}

// Field returns a top-level field rendered as text.
func (e LogEntry) Field(name string) string {
	if e == nil {
		return ""
	}
	v, ok := e[name]
	if !ok {
		return ""
	}
	return FieldString(v)
}

// LogID returns the log_id field.
func (e LogEntry) LogID() string {
	return e.Field("log_id")
}

// FieldString renders a decoded JSON value as display text.
func FieldString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	case int:
		return fmt.Sprintf("%d", val)
	case int64:
		return fmt.Sprintf("%d", val)
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}
