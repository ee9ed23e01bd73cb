// Package compliance evaluates detected PII and the strategies applied
// to it against named regulatory frameworks. Rule tables are static;
// every check is a pure lookup with no shared state, so the package is
// safe for concurrent use.
package compliance

import (
	"fmt"
	"sort"
	"strings"

	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/pii"
)

// Supported framework names, as they appear in policies and responses.
const (
	FrameworkGDPR   = "gdpr"
	FrameworkHIPAA  = "hipaa"
	FrameworkPCIDSS = "pci_dss"
	FrameworkCCPA   = "ccpa"
)

// Violation codes.
const (
	CodeMandatoryUnprotected = "mandatory_type_unprotected"
	CodeBelowMinimum         = "strategy_below_minimum"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

// Violation records one framework rule the processed content fell
// short of. FieldPath is populated only when the caller evaluated a
// single field; type-level checks leave it empty.
type Violation struct {
	Code        string   `json:"code"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	FieldPath   string   `json:"field_path,omitempty"`
}

// CheckResult is the verdict for one framework. Compliant is false
// only when a critical violation exists; warning-grade violations are
// reported but do not fail the check.
type CheckResult struct {
	Compliant  bool        `json:"compliant"`
	Violations []Violation `json:"violations"`
}

// Check evaluates the requested frameworks against what was detected
// and what was done about it. Results are keyed by normalized
// (lowercase) framework name. Unknown names are skipped, never an
// error. applied maps each detected type to the strategy name used on
// it; a type with no entry counts as unprotected.
func Check(names []string, detections []pii.Match, applied map[pii.Type]string) map[string]CheckResult {
	results := make(map[string]CheckResult, len(names))
	counts := countByType(detections)
	for _, name := range names {
		key := normalize(name)
		fw, ok := frameworkTable[key]
		if !ok {
			continue
		}
		results[key] = fw.evaluate(counts, applied)
	}
	return results
}

// RecommendedStrategy returns the strongest strategy any of the
// requested frameworks recommends for the given type, or "" when none
// of them cover it. Equal-strength ties keep the earlier framework's
// pick, so the caller's ordering is significant.
func RecommendedStrategy(t pii.Type, names []string) string {
	best := ""
	for _, name := range names {
		fw, ok := frameworkTable[normalize(name)]
		if !ok {
			continue
		}
		r, ok := fw.rules[t]
		if !ok || r.recommended == "" {
			continue
		}
		if best == "" || strategyStrength[r.recommended] > strategyStrength[best] {
			best = r.recommended
		}
	}
	return best
}

// RequiresMandatoryAnonymization reports whether any requested
// framework treats the given type as mandatory to anonymize.
func RequiresMandatoryAnonymization(t pii.Type, names []string) bool {
	for _, name := range names {
		fw, ok := frameworkTable[normalize(name)]
		if !ok {
			continue
		}
		if fw.rules[t].mandatory {
			return true
		}
	}
	return false
}

// Frameworks returns the supported framework names, sorted.
func Frameworks() []string {
	names := make([]string, 0, len(frameworkTable))
	for name := range frameworkTable {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f framework) evaluate(counts map[pii.Type]int, applied map[pii.Type]string) CheckResult {
	result := CheckResult{Compliant: true}
	for _, t := range sortedTypes(counts) {
		r, ok := f.rules[t]
		if !ok {
			continue
		}
		strategy := applied[t]
		if strategyStrength[strategy] >= r.min {
			continue
		}
		if strategy == "" {
			strategy = "none"
		}
		v := Violation{
			Code:     CodeBelowMinimum,
			Severity: SeverityWarning,
			Description: fmt.Sprintf("%s: %d %s span(s) protected with %q, requires %s-grade anonymization or stronger",
				f.label, counts[t], t, strategy, strengthNames[r.min]),
		}
		if r.mandatory {
			v.Code = CodeMandatoryUnprotected
			v.Severity = SeverityCritical
			result.Compliant = false
		}
		result.Violations = append(result.Violations, v)
	}
	return result
}

func countByType(detections []pii.Match) map[pii.Type]int {
	counts := make(map[pii.Type]int, len(detections))
	for _, m := range detections {
		counts[m.Type]++
	}
	return counts
}

func sortedTypes(counts map[pii.Type]int) []pii.Type {
	types := make([]pii.Type, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
