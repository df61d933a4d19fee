package rules

import "github.com/SkothaSec/project-mimir/pkg/models"

// RuleHit names a rule that matched one evidence log entry.
type RuleHit struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Severity  string `json:"severity"`
	Tactic    string `json:"tactic,omitempty"`
	Technique string `json:"technique,omitempty"`
}

// Engine applies evidence rules to log entries.
type Engine interface {
	Apply(entry models.LogEntry) []RuleHit
}

// NoopEngine returns no hits.
type NoopEngine struct{}

// Apply returns an empty hit list.
func (n *NoopEngine) Apply(entry models.LogEntry) []RuleHit {
	return nil
}
