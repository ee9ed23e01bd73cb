package anonymize

import (
	"strings"

	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/pii"
)

const defaultMaskChar = "*"

// fixedMaskRun is the mask width used when the caller opts out of
// length preservation, so the output leaks neither value nor length.
const fixedMaskRun = 4

// applyMask replaces the matched span with a repeat character,
// optionally revealing a fixed number of leading/trailing characters,
// or with a categorical label when the config selects labeling.
func applyMask(text string, m pii.Match, cfg StrategyConfig) StrategyResult {
	span := m.Span(text)
	if span == "" {
		return StrategyResult{}
	}

	if cfg.UseLabel {
		return StrategyResult{Replacement: "[MASKED:" + m.Type.Label() + "]"}
	}

	maskChar := cfg.MaskChar
	if maskChar == "" {
		maskChar = defaultMaskChar
	}

	runes := []rune(span)
	first := cfg.RevealFirst
	last := cfg.RevealLast
	if first < 0 {
		first = 0
	}
	if last < 0 {
		last = 0
	}

	// At least one character is always masked.
	for first+last >= len(runes) {
		if last > 0 {
			last--
		} else if first > 0 {
			first--
		} else {
			break
		}
	}

	masked := len(runes) - first - last
	if masked < 1 {
		masked = 1
		first = 0
		last = 0
	}
	if !cfg.preserveLength() {
		masked = fixedMaskRun
	}

	var b strings.Builder
	b.WriteString(string(runes[:first]))
	b.WriteString(strings.Repeat(maskChar, masked))
	b.WriteString(string(runes[len(runes)-last:]))

	return StrategyResult{Replacement: b.String()}
}

// applyRedact replaces the span with a categorical placeholder built
// from the PII type name. This is also the fail-safe target for
// unknown strategy tags.
func applyRedact(text string, m pii.Match, cfg StrategyConfig) StrategyResult {
	return StrategyResult{Replacement: "[" + m.Type.Label() + "_REDACTED]"}
}

// applySuppress drops the span entirely.
func applySuppress(text string, m pii.Match, cfg StrategyConfig) StrategyResult {
	return StrategyResult{Replacement: ""}
}
