package anonymize

import (
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/pii"
)

const defaultNoiseScale = 0.1

// applyNoise perturbs a numeric span with deterministic Laplace-style
// jitter derived from the caller seed. Non-numeric spans fall back to
// the categorical placeholder; the strategy never errors.
func applyNoise(text string, m pii.Match, cfg StrategyConfig) StrategyResult {
	span := m.Span(text)

	value, err := strconv.ParseFloat(span, 64)
	if err != nil {
		return StrategyResult{Replacement: typePlaceholder(m.Type)}
	}

	scale := cfg.NoiseScale
	if scale <= 0 {
		scale = defaultNoiseScale
	}

	rng := rand.New(rand.NewSource(seedFor(cfg.Seed, span)))
	noise := laplaceSample(rng, scale)

	perturbed := value * (1 + noise)
	if value == 0 {
		perturbed = noise
	}

	// Integer inputs keep an integer shape.
	if !strings.ContainsAny(span, ".eE") {
		return StrategyResult{Replacement: strconv.FormatInt(int64(math.Round(perturbed)), 10)}
	}
	return StrategyResult{Replacement: strconv.FormatFloat(perturbed, 'f', -1, 64)}
}

// laplaceSample draws one Laplace(0, scale) sample via inverse CDF.
func laplaceSample(rng *rand.Rand, scale float64) float64 {
	u := rng.Float64() - 0.5
	sign := 1.0
	if u < 0 {
		sign = -1.0
	}
	return -scale * sign * math.Log(1-2*math.Abs(u))
}
