package anonymize

// Strategy names the transformation applied to a PII match. The set is
// closed: dispatch is a static table built at process start, and the
// only runtime fallback is for unknown tags arriving over the wire,
// which resolve to redact (fail-safe: when in doubt, remove).
type Strategy string

const (
	StrategyMask                Strategy = "mask"
	StrategyRedact              Strategy = "redact"
	StrategySuppress            Strategy = "suppress"
	StrategyHash                Strategy = "hash"
	StrategyGeneralize          Strategy = "generalize"
	StrategyNoise               Strategy = "noise"
	StrategyPseudonymize        Strategy = "pseudonymize"
	StrategyTokenize            Strategy = "tokenize"
	StrategyEncrypt             Strategy = "encrypt"
	StrategyKAnonymity          Strategy = "k_anonymity"
	StrategyLDiversity          Strategy = "l_diversity"
	StrategyTCloseness          Strategy = "t_closeness"
	StrategyDifferentialPrivacy Strategy = "differential_privacy"
)

// String returns the wire name of the strategy.
func (s Strategy) String() string {
	return string(s)
}

// Valid reports whether s is a member of the closed strategy set.
func (s Strategy) Valid() bool {
	_, ok := strategyFuncs[s]
	return ok
}

// ParseStrategy maps a wire-level tag to a Strategy. Unknown tags parse
// to redact with ok=false so call sites keep the fail-safe default;
// "synthesize" is accepted as an alias for pseudonymize.
func ParseStrategy(name string) (Strategy, bool) {
	if name == "synthesize" {
		return StrategyPseudonymize, true
	}
	s := Strategy(name)
	if s.Valid() {
		return s, true
	}
	return StrategyRedact, false
}
