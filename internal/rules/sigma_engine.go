package rules

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	sigma "github.com/bradleyjkemp/sigma-go"
	sigmaevaluator "github.com/bradleyjkemp/sigma-go/evaluator"
	"github.com/cockroachdb/errors"

	"github.com/SkothaSec/project-mimir/pkg/models"
)

var techniqueTag = regexp.MustCompile(`^t\d{4}(?:\.\d{3})?$`)

// LoadStats reports what happened to each rule file.
type LoadStats struct {
	Files   int
	Loaded  int
	Invalid int
	// Unsupported counts skipped rules by reason.
	Unsupported map[string]int
}

// Skipped is the number of files that did not produce a rule.
func (s LoadStats) Skipped() int {
	n := s.Invalid
	for _, c := range s.Unsupported {
		n += c
	}
	return n
}

type compiledRule struct {
	eval *sigmaevaluator.RuleEvaluator
	hit  RuleHit
}

// SigmaEngine evaluates single-event Sigma rules against evidence log entries.
type SigmaEngine struct {
	rules []compiledRule
}

// NewSigmaEngine compiles every .yml/.yaml rule under path (a file or a directory).
// Rules needing more than one event are skipped and counted in the stats.
func NewSigmaEngine(path string) (*SigmaEngine, LoadStats, error) {
	stats := LoadStats{Unsupported: make(map[string]int)}

	files, err := ruleFiles(path)
	if err != nil {
		return nil, stats, err
	}
	stats.Files = len(files)

	engine := &SigmaEngine{rules: make([]compiledRule, 0, len(files))}
	for _, file := range files {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, stats, errors.Wrapf(err, "read sigma rule %s", file)
		}
		rule, err := sigma.ParseRule(raw)
		if err != nil {
			stats.Invalid++
			continue
		}
		if reason := unsupportedReason(rule); reason != "" {
			stats.Unsupported[reason]++
			continue
		}
		engine.rules = append(engine.rules, compiledRule{
			eval: sigmaevaluator.ForRule(rule),
			hit:  hitFromRule(rule),
		})
		stats.Loaded++
	}

	return engine, stats, nil
}

func ruleFiles(path string) ([]string, error) {
	resolved, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "resolve rule path")
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, errors.Wrap(err, "stat rule path")
	}

	if !info.IsDir() {
		if !isYAMLFile(resolved) {
			return nil, errors.Newf("rule file must end with .yml or .yaml: %s", resolved)
		}
		return []string{resolved}, nil
	}

	var files []string
	err = filepath.WalkDir(resolved, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() && isYAMLFile(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "walk rule directory")
	}
	sort.Strings(files)
	return files, nil
}

func isYAMLFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return true
	}
	return false
}

// Len reports how many rules were compiled.
func (e *SigmaEngine) Len() int {
	if e == nil {
		return 0
	}
	return len(e.rules)
}

// Apply returns the rules matching one entry, most severe first.
func (e *SigmaEngine) Apply(entry models.LogEntry) []RuleHit {
	if e == nil || len(entry) == 0 || len(e.rules) == 0 {
		return nil
	}

	event := flatten(entry)
	ctx := context.Background()
	var hits []RuleHit
	for _, r := range e.rules {
		res, err := r.eval.Matches(ctx, event)
		if err != nil || !res.Match {
			continue
		}
		hits = append(hits, r.hit)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return levelRank(hits[i].Severity) > levelRank(hits[j].Severity)
	})
	return hits
}

// unsupportedReason explains why a rule cannot run against a single entry.
func unsupportedReason(rule sigma.Rule) string {
	if rule.Detection.Timeframe > 0 {
		return "timeframe"
	}
	for _, cond := range rule.Detection.Conditions {
		if cond.Aggregation != nil {
			return "aggregation"
		}
		if !plainSearch(cond.Search) {
			return "condition"
		}
	}
	for _, search := range rule.Detection.Searches {
		if len(search.Keywords) > 0 {
			return "keywords"
		}
		if len(search.EventMatchers) == 0 {
			return "empty search"
		}
	}
	return ""
}

func plainSearch(expr sigma.SearchExpr) bool {
	switch e := expr.(type) {
	case sigma.SearchIdentifier:
		return true
	case sigma.Not:
		return plainSearch(e.Expr)
	case sigma.And:
		return allPlain(e)
	case sigma.Or:
		return allPlain(e)
	}
	return false
}

func allPlain(children []sigma.SearchExpr) bool {
	for _, child := range children {
		if !plainSearch(child) {
			return false
		}
	}
	return true
}

// flatten keeps top-level fields and exposes nested objects under dotted
// names, so a rule can select "host.name".
func flatten(entry models.LogEntry) map[string]interface{} {
	out := make(map[string]interface{}, len(entry))
	var walk func(prefix string, fields map[string]interface{})
	walk = func(prefix string, fields map[string]interface{}) {
		for k, v := range fields {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if nested, ok := v.(map[string]interface{}); ok {
				walk(key, nested)
				continue
			}
			out[key] = v
		}
	}
	walk("", entry)
	return out
}

func hitFromRule(rule sigma.Rule) RuleHit {
	hit := RuleHit{
		ID:       strings.TrimSpace(rule.ID),
		Name:     strings.TrimSpace(rule.Title),
		Severity: strings.ToLower(strings.TrimSpace(rule.Level)),
	}
	if hit.ID == "" {
		hit.ID = hit.Name
	}
	if hit.Severity == "" {
		hit.Severity = "medium"
	}

	for _, raw := range rule.Tags {
		tag := strings.ToLower(strings.TrimSpace(raw))
		name, ok := strings.CutPrefix(tag, "attack.")
		if !ok {
			continue
		}
		switch {
		case techniqueTag.MatchString(name):
			if hit.Technique == "" {
				hit.Technique = strings.ToUpper(name)
			}
		case hit.Tactic == "" && !strings.HasPrefix(name, "t"):
			hit.Tactic = strings.ReplaceAll(name, "_", "-")
		}
	}
	return hit
}

func levelRank(level string) int {
	switch level {
	case "critical":
		return 4
	case "high":
		return 3
	case "medium":
		return 2
	case "low":
		return 1
	}
	return 0
}
