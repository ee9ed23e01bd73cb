package anonymize

import (
	"fmt"
	"sort"

	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/compliance"
	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/pii"
)

// traversal accumulates everything one invocation learns while walking
// a content payload. Nothing in here outlives or is shared between
// invocations, which is what makes concurrent Anonymize calls safe.
type traversal struct {
	policy        Policy
	dispatch      dispatchFunc
	detections    []pii.Match
	fields        []FieldResult
	processed     int
	anonymized    int
	warnings      []string
	applied       map[pii.Type]Strategy
	depthExceeded bool
}

func newTraversal(policy Policy, dispatch dispatchFunc) *traversal {
	return &traversal{
		policy:   policy,
		dispatch: dispatch,
		applied:  make(map[pii.Type]Strategy),
	}
}

// anonymizeValue walks an arbitrary decoded JSON value. Strings are
// scanned and rewritten, containers recurse with the field path
// extended, and every other scalar passes through untouched.
func (e *Engine) anonymizeValue(value interface{}, path string, depth int, tr *traversal) interface{} {
	if depth > tr.policy.maxDepth() {
		if !tr.depthExceeded {
			tr.warnings = append(tr.warnings,
				fmt.Sprintf("content exceeds max traversal depth %d at %s, deeper values left unscanned", tr.policy.maxDepth(), path))
			tr.depthExceeded = true
		}
		return value
	}

	switch v := value.(type) {
	case string:
		return e.anonymizeString(v, path, tr)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for _, key := range sortedKeys(v) {
			out[key] = e.anonymizeValue(v[key], joinPath(path, key), depth+1, tr)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = e.anonymizeValue(item, indexPath(path, i), depth+1, tr)
		}
		return out
	default:
		// numbers, booleans, null: nothing to scan
		return value
	}
}

// anonymizeString runs detection on one string field and splices in
// replacements. Replacements are applied right to left so that the
// recorded offsets of earlier matches stay valid while later spans
// are rewritten.
func (e *Engine) anonymizeString(text, path string, tr *traversal) string {
	tr.processed++
	if text == "" {
		return text
	}

	matches := filterConfidence(e.detector.Detect(text), tr.policy.MinConfidence)
	matches = resolveOverlaps(matches)
	if len(matches) == 0 {
		return text
	}

	tr.anonymized++
	tr.detections = append(tr.detections, matches...)
	originalHash := hashValue(text)

	for _, m := range matches {
		strategy := tr.resolveStrategy(m.Type)
		tr.applied[m.Type] = strategy
		tr.fields = append(tr.fields, FieldResult{
			FieldPath:    path,
			PIIType:      m.Type,
			Strategy:     strategy,
			Confidence:   m.Confidence,
			OriginalHash: originalHash,
		})
	}

	ordered := make([]pii.Match, len(matches))
	copy(ordered, matches)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Start > ordered[j].Start })

	out := text
	for _, m := range ordered {
		res := tr.dispatch(tr.applied[m.Type], out, m, tr.policy.StrategyConfig)
		out = out[:m.Start] + res.Replacement + out[m.End:]
	}
	return out
}

// resolveStrategy picks the effective strategy for a PII type: the
// policy's explicit per-type override wins, then the strongest
// framework recommendation, then the policy default. Unknown names
// normalize to redact at every step.
func (tr *traversal) resolveStrategy(t pii.Type) Strategy {
	if s, ok := tr.policy.TypeStrategies[t]; ok {
		norm, _ := ParseStrategy(string(s))
		return norm
	}
	if rec := compliance.RecommendedStrategy(t, tr.policy.Frameworks); rec != "" {
		norm, _ := ParseStrategy(rec)
		return norm
	}
	norm, _ := ParseStrategy(string(tr.policy.DefaultStrategy))
	return norm
}

func filterConfidence(matches []pii.Match, min float64) []pii.Match {
	if min <= 0 {
		return matches
	}
	var kept []pii.Match
	for _, m := range matches {
		if m.Confidence >= min {
			kept = append(kept, m)
		}
	}
	return kept
}

// resolveOverlaps drops the weaker of any two overlapping matches so
// that each byte of the input is rewritten by at most one strategy.
// Equal confidence keeps the earlier, longer span. Input must be
// sorted by ascending start offset, which is the detector's contract.
func resolveOverlaps(matches []pii.Match) []pii.Match {
	if len(matches) < 2 {
		return matches
	}
	kept := make([]pii.Match, 0, len(matches))
	kept = append(kept, matches[0])
	for _, m := range matches[1:] {
		last := &kept[len(kept)-1]
		if m.Start >= last.End {
			kept = append(kept, m)
			continue
		}
		if m.Confidence > last.Confidence {
			*last = m
		}
	}
	return kept
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func indexPath(parent string, i int) string {
	return fmt.Sprintf("%s[%d]", parent, i)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
