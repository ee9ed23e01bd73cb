package anonymize

import (
	"strings"

	"github.com/google/uuid"

	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/pii"
)

// applyTokenize emits an opaque placeholder bound to a freshly
// generated token id and marks the result reversible. No vault is
// integrated here: storing the original against the token id is the
// caller's responsibility, this strategy only produces the handle.
func applyTokenize(text string, m pii.Match, cfg StrategyConfig) StrategyResult {
	id := uuid.New()
	return StrategyResult{
		Replacement: "TOK_" + strings.ReplaceAll(id.String(), "-", ""),
		Reversible:  true,
		TokenID:     id.String(),
	}
}

// applyEncrypt mirrors tokenize: an opaque reversible placeholder with
// a fresh token id. Key-based encryption is out of scope; the ENC form
// only signals that an external keyholder could resolve it.
func applyEncrypt(text string, m pii.Match, cfg StrategyConfig) StrategyResult {
	id := uuid.New()
	return StrategyResult{
		Replacement: "ENC[" + strings.ReplaceAll(id.String(), "-", "")[:16] + "]",
		Reversible:  true,
		TokenID:     id.String(),
	}
}
