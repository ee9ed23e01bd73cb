package anonymize

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/pii"
)

// Digest markers distinguish cryptographic output from the clearly
// labeled non-cryptographic fallback; the fallback must never pose as
// anything stronger.
const (
	hashMarker     = "hash:"
	fastHashMarker = "xxh:"
)

const (
	HashAlgorithmSHA256  = "sha256"
	HashAlgorithmSHA512  = "sha512"
	HashAlgorithmBLAKE2b = "blake2b"
)

// minTruncateLength keeps truncated digests from collapsing into
// near-certain collisions.
const minTruncateLength = 8

type digestFunc func(data []byte) []byte

// digestFuncs is the closed algorithm table, built at process start.
// Unknown algorithm names fall back to sha256.
var digestFuncs = map[string]digestFunc{
	HashAlgorithmSHA256: func(data []byte) []byte {
		sum := sha256.Sum256(data)
		return sum[:]
	},
	HashAlgorithmSHA512: func(data []byte) []byte {
		sum := sha512.Sum512(data)
		return sum[:]
	},
	HashAlgorithmBLAKE2b: func(data []byte) []byte {
		sum := blake2b.Sum256(data)
		return sum[:]
	},
}

// applyHash replaces the span with a salted cryptographic digest:
// hex-encoded, optionally truncated, marker-prefixed. Deterministic for
// a fixed (salt, algorithm, truncation) triple.
func applyHash(text string, m pii.Match, cfg StrategyConfig) StrategyResult {
	span := m.Span(text)

	digest, ok := digestFuncs[cfg.HashAlgorithm]
	if !ok {
		digest = digestFuncs[HashAlgorithmSHA256]
	}

	encoded := hex.EncodeToString(digest([]byte(cfg.Salt + span)))
	return StrategyResult{Replacement: hashMarker + truncateDigest(encoded, cfg.TruncateLength)}
}

// applyHashSync is the synchronous-path variant: a non-cryptographic
// xxhash64 digest with its own marker. Fallback only; never a
// substitute where cryptographic strength is claimed.
func applyHashSync(text string, m pii.Match, cfg StrategyConfig) StrategyResult {
	span := m.Span(text)
	sum := xxhash.Sum64String(cfg.Salt + span)
	encoded := fmt.Sprintf("%016x", sum)
	return StrategyResult{Replacement: fastHashMarker + truncateDigest(encoded, cfg.TruncateLength)}
}

// truncateDigest shortens a hex digest to n characters, clamped to the
// minimum; n <= 0 keeps the full digest.
func truncateDigest(encoded string, n int) string {
	if n <= 0 || n >= len(encoded) {
		return encoded
	}
	if n < minTruncateLength {
		n = minTruncateLength
	}
	return encoded[:n]
}

// hashValue is the digest recorded in FieldResult.OriginalHash: a plain
// sha256 hex of the whole original field value.
func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// seedFor derives the deterministic per-span seed used by synthesis and
// noise: a non-cryptographic hash of the caller seed and the span.
func seedFor(seed uint64, span string) int64 {
	return int64(xxhash.Sum64String(strconv.FormatUint(seed, 10) + ":" + span))
}
