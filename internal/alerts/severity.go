package alerts

import (
	"strings"

	"github.com/SkothaSec/project-mimir/pkg/models"
)

// SeverityRule maps verdict keywords to a severity.
type SeverityRule struct {
	Keywords []string
	Severity models.Severity
}

// SeverityRules is evaluated top to bottom; the first rule with a matching
// keyword wins, so "high risk, now benign" classifies as benign.
var SeverityRules = []SeverityRule{
	{Keywords: []string{"low", "benign", "clean"}, Severity: models.SeverityBenign},
	{Keywords: []string{"medium", "warn"}, Severity: models.SeverityWarning},
	{Keywords: []string{"high", "malicious", "risk"}, Severity: models.SeverityMalicious},
}

// Classify maps a free-text verdict to a severity. An empty verdict is unknown.
func Classify(verdict string) models.Severity {
	val := strings.ToLower(verdict)
	for _, rule := range SeverityRules {
		for _, kw := range rule.Keywords {
			if strings.Contains(val, kw) {
				return rule.Severity
			}
		}
	}
	return models.SeverityUnknown
}
