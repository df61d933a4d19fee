package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Severity is the normalized four-way classification of a verdict.
type Severity string

const (
	SeverityBenign    Severity = "benign"
	SeverityWarning   Severity = "warning"
	SeverityMalicious Severity = "malicious"
	SeverityUnknown   Severity = "unknown"
)

// Placeholder is shown wherever a value could not be determined.
const Placeholder = "—"

// RawAlertRecord is an assessment as received from the results endpoint.
// Every field is optional and untrusted.
type RawAlertRecord struct {
	Timestamp         string `json:"timestamp"`
	Verdict           string `json:"verdict"`
	VerdictConfidence any    `json:"verdict_confidence"`
	Notes             string `json:"notes"`
	Apophenia         string `json:"apophenia"`
	Anchoring         string `json:"anchoring"`
	Abduction         string `json:"abduction"`
	AlertGroupID      string `json:"alert_group_id"`
	AlertName         string `json:"alert_name"`
	RawLogs           string `json:"raw_logs"`
	BiasAnalysis      string `json:"bias_analysis"`
}

// UnmarshalJSON decodes a record leniently: a field of an unexpected JSON type is
// kept as its JSON text, and an element that is not an object decodes to an
// empty record, instead of failing the whole batch.
func (r *RawAlertRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if !isObject(data) {
		*r = RawAlertRecord{}
		return nil
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*r = RawAlertRecord{
		Timestamp:    textField(fields["timestamp"]),
		Verdict:      textField(fields["verdict"]),
		Notes:        textField(fields["notes"]),
		Apophenia:    textField(fields["apophenia"]),
		Anchoring:    textField(fields["anchoring"]),
		Abduction:    textField(fields["abduction"]),
		AlertGroupID: textField(fields["alert_group_id"]),
		AlertName:    textField(fields["alert_name"]),
		RawLogs:      textField(fields["raw_logs"]),
		BiasAnalysis: textField(fields["bias_analysis"]),
	}

	if raw, ok := fields["verdict_confidence"]; ok && !isNull(raw) {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err == nil {
			r.VerdictConfidence = v
		}
	}
	return nil
}

func textField(raw json.RawMessage) string {
	if len(raw) == 0 || isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return strings.TrimSpace(string(raw))
	}
	return buf.String()
}

func isObject(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// AlertRecord is the display-ready form of a RawAlertRecord.
type AlertRecord struct {
	RawAlertRecord

	Severity          Severity `json:"severity"`
	ConfidenceDisplay int      `json:"confidence_display"`
	LogCount          *int     `json:"log_count"`
	ResolvedAlertName string   `json:"resolved_alert_name"`
}

// UnmarshalJSON reads an exported record back. Without it the embedded
// RawAlertRecord decoder would be promoted and the derived fields dropped.
func (a *AlertRecord) UnmarshalJSON(data []byte) error {
	var raw RawAlertRecord
	if err := raw.UnmarshalJSON(data); err != nil {
		return err
	}
	if !isObject(data) {
		*a = AlertRecord{RawAlertRecord: raw}
		return nil
	}
	var derived struct {
		Severity          Severity `json:"severity"`
		ConfidenceDisplay int      `json:"confidence_display"`
		LogCount          *int     `json:"log_count"`
		ResolvedAlertName string   `json:"resolved_alert_name"`
	}
	if err := json.Unmarshal(data, &derived); err != nil {
		return err
	}
	*a = AlertRecord{
		RawAlertRecord:    raw,
		Severity:          derived.Severity,
		ConfidenceDisplay: derived.ConfidenceDisplay,
		LogCount:          derived.LogCount,
		ResolvedAlertName: derived.ResolvedAlertName,
	}
	return nil
}

// MarshalJSON flattens the embedded raw fields next to the derived ones.
// raw_logs and bias_analysis keep <, > and & unescaped.
func (a AlertRecord) MarshalJSON() ([]byte, error) {
	type flat struct {
		Timestamp         string   `json:"timestamp,omitempty"`
		Verdict           string   `json:"verdict,omitempty"`
		VerdictConfidence any      `json:"verdict_confidence,omitempty"`
		Notes             string   `json:"notes,omitempty"`
		Apophenia         string   `json:"apophenia,omitempty"`
		Anchoring         string   `json:"anchoring,omitempty"`
		Abduction         string   `json:"abduction,omitempty"`
		AlertGroupID      string   `json:"alert_group_id,omitempty"`
		AlertName         string   `json:"alert_name,omitempty"`
		RawLogs           string   `json:"raw_logs,omitempty"`
		BiasAnalysis      string   `json:"bias_analysis,omitempty"`
		Severity          Severity `json:"severity"`
		ConfidenceDisplay int      `json:"confidence_display"`
		LogCount          *int     `json:"log_count"`
		ResolvedAlertName string   `json:"resolved_alert_name"`
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(flat{
		Timestamp:         a.Timestamp,
		Verdict:           a.Verdict,
		VerdictConfidence: a.VerdictConfidence,
		Notes:             a.Notes,
		Apophenia:         a.Apophenia,
		Anchoring:         a.Anchoring,
		Abduction:         a.Abduction,
		AlertGroupID:      a.AlertGroupID,
		AlertName:         a.AlertName,
		RawLogs:           a.RawLogs,
		BiasAnalysis:      a.BiasAnalysis,
		Severity:          a.Severity,
		ConfidenceDisplay: a.ConfidenceDisplay,
		LogCount:          a.LogCount,
		ResolvedAlertName: a.ResolvedAlertName,
	})
	if err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
