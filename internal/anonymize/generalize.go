package anonymize

import (
	"strconv"
	"strings"
	"time"

	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/pii"
)

// generalizeFunc is one level of a generalization hierarchy. ok=false
// means the span did not parse for this transform and the categorical
// placeholder applies instead.
type generalizeFunc func(span string) (string, bool)

// generalizers maps PII types to their hierarchy of increasingly coarse
// transforms, least coarse first. The final level of every hierarchy is
// the categorical placeholder; built once at process start, read-only
// afterwards. Types without an entry generalize straight to their
// placeholder.
var generalizers = map[pii.Type][]generalizeFunc{
	pii.TypeEmail: {
		generalizeEmailDomain,
		placeholderFunc(pii.TypeEmail),
	},
	pii.TypeIPAddress: {
		generalizeIPOctets(1),
		generalizeIPOctets(2),
		placeholderFunc(pii.TypeIPAddress),
	},
	pii.TypePhone: {
		generalizePhoneArea,
		placeholderFunc(pii.TypePhone),
	},
	pii.TypeZIPCode: {
		generalizeZIPPrefix,
		placeholderFunc(pii.TypeZIPCode),
	},
	pii.TypeDate: {
		generalizeDateYear,
		placeholderFunc(pii.TypeDate),
	},
}

// applyGeneralize reduces the precision of the span using the per-type
// hierarchy. The level (1-based) selects the transform; levels past the
// hierarchy depth clamp to the coarsest. Unknown types and unparseable
// spans fall back to the categorical placeholder, never an error.
func applyGeneralize(text string, m pii.Match, cfg StrategyConfig) StrategyResult {
	span := m.Span(text)

	hierarchy, ok := generalizers[m.Type]
	if !ok || len(hierarchy) == 0 {
		return StrategyResult{Replacement: typePlaceholder(m.Type)}
	}

	level := cfg.GeneralizeLevel
	if level < 1 {
		level = 1
	}
	if level > len(hierarchy) {
		level = len(hierarchy)
	}

	if out, parsed := hierarchy[level-1](span); parsed {
		return StrategyResult{Replacement: out}
	}
	return StrategyResult{Replacement: typePlaceholder(m.Type)}
}

// coarsestConfig forces the deepest generalization level; the
// statistical privacy labels resolve through it.
var coarsestConfig = StrategyConfig{GeneralizeLevel: 1 << 8}

// applyCoarsestGeneralize is the safe default for the statistical
// privacy labels (k-anonymity, l-diversity, t-closeness, differential
// privacy): no cohort statistics are computed, the span simply takes
// the coarsest generalization of its type.
func applyCoarsestGeneralize(text string, m pii.Match, cfg StrategyConfig) StrategyResult {
	return applyGeneralize(text, m, coarsestConfig)
}

func typePlaceholder(t pii.Type) string {
	return "[" + t.Label() + "]"
}

// placeholderFunc adapts a categorical placeholder into a hierarchy
// level that always parses.
func placeholderFunc(t pii.Type) generalizeFunc {
	placeholder := typePlaceholder(t)
	return func(string) (string, bool) {
		return placeholder, true
	}
}

// generalizeEmailDomain keeps the domain and drops the local part.
func generalizeEmailDomain(span string) (string, bool) {
	at := strings.LastIndex(span, "@")
	if at <= 0 || at == len(span)-1 {
		return "", false
	}
	return "***@" + span[at+1:], true
}

// generalizeIPOctets zeroes the last n octets of a dotted quad.
func generalizeIPOctets(n int) generalizeFunc {
	return func(span string) (string, bool) {
		parts := strings.Split(span, ".")
		if len(parts) != 4 {
			return "", false
		}
		for i := 4 - n; i < 4; i++ {
			parts[i] = "0"
		}
		return strings.Join(parts, "."), true
	}
}

// generalizePhoneArea keeps the area code and drops the subscriber
// number. Needs at least ten digits to locate the area code.
func generalizePhoneArea(span string) (string, bool) {
	digits := make([]byte, 0, len(span))
	for i := 0; i < len(span); i++ {
		if span[i] >= '0' && span[i] <= '9' {
			digits = append(digits, span[i])
		}
	}
	if len(digits) < 10 {
		return "", false
	}
	area := string(digits[len(digits)-10 : len(digits)-7])
	return "(" + area + ") ***-****", true
}

// generalizeZIPPrefix keeps the leading three digits of the ZIP.
func generalizeZIPPrefix(span string) (string, bool) {
	if len(span) < 3 {
		return "", false
	}
	for i := 0; i < 3; i++ {
		if span[i] < '0' || span[i] > '9' {
			return "", false
		}
	}
	return span[:3] + "**", true
}

// generalizeDateYear reduces a date to its year.
func generalizeDateYear(span string) (string, bool) {
	for _, layout := range []string{"2006-01-02", "1/2/2006", "01/02/2006"} {
		if t, err := time.Parse(layout, span); err == nil {
			return strconv.Itoa(t.Year()), true
		}
	}
	return "", false
}
