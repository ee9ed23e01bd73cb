package anonymize

import "github.com/LLM-Dev-Ops/data-vault-sub001/internal/pii"

// applyFunc is the uniform strategy signature: pure, side-effect free,
// operating on the full field text plus one match.
type applyFunc func(text string, m pii.Match, cfg StrategyConfig) StrategyResult

// strategyFuncs is the closed dispatch table, built at process start.
// The statistical privacy labels deliberately share one entry: no
// cohort statistics are implemented, they take the coarsest
// generalization as a safe default.
var strategyFuncs = map[Strategy]applyFunc{
	StrategyMask:                applyMask,
	StrategyRedact:              applyRedact,
	StrategySuppress:            applySuppress,
	StrategyHash:                applyHash,
	StrategyGeneralize:          applyGeneralize,
	StrategyNoise:               applyNoise,
	StrategyPseudonymize:        applySynthesize,
	StrategyTokenize:            applyTokenize,
	StrategyEncrypt:             applyEncrypt,
	StrategyKAnonymity:          applyCoarsestGeneralize,
	StrategyLDiversity:          applyCoarsestGeneralize,
	StrategyTCloseness:          applyCoarsestGeneralize,
	StrategyDifferentialPrivacy: applyCoarsestGeneralize,
}

// Apply routes one match to its strategy function. Unknown strategy
// tags fall back to redact: when in doubt, remove. Never an error.
func Apply(s Strategy, text string, m pii.Match, cfg StrategyConfig) StrategyResult {
	if fn, ok := strategyFuncs[s]; ok {
		return fn(text, m, cfg)
	}
	return applyRedact(text, m, cfg)
}

// ApplySync is the variant for call sites that cannot pay for a
// cryptographic digest: hash routes to the non-cryptographic fallback,
// every other strategy routes identically to Apply.
func ApplySync(s Strategy, text string, m pii.Match, cfg StrategyConfig) StrategyResult {
	if s == StrategyHash {
		return applyHashSync(text, m, cfg)
	}
	return Apply(s, text, m, cfg)
}
