package anonymize

import (
	"math/rand"
	"strconv"
	"strings"

	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/pii"
)

// Synthetic value pools. Fixed at process start; the seeded generator
// indexes into them so the same original value always maps to the same
// synthetic identity.
var (
	syntheticFirstNames = []string{
		"alex", "casey", "jordan", "morgan", "riley", "taylor",
		"quinn", "avery", "cameron", "drew", "elliot", "finley",
	}
	syntheticLastNames = []string{
		"adams", "brooks", "carter", "dawson", "ellis", "foster",
		"gray", "hayes", "irwin", "jensen", "keller", "lawson",
	}
	syntheticDomains = []string{
		"example.com", "example.net", "example.org", "mail.test", "post.test",
	}
)

// genericSyntheticToken is emitted when no generator exists for a type.
const genericSyntheticToken = "[SYNTHETIC]"

type synthesizeFunc func(span string, rng *rand.Rand) string

// synthesizers is the per-type generator table, built once at process
// start. Every generator preserves the shape of its category.
var synthesizers = map[pii.Type]synthesizeFunc{
	pii.TypeEmail:      synthesizeEmail,
	pii.TypeName:       synthesizeName,
	pii.TypePhone:      synthesizeDigitShape,
	pii.TypeSSN:        synthesizeDigitShape,
	pii.TypeZIPCode:    synthesizeDigitShape,
	pii.TypeCreditCard: synthesizeCard,
	pii.TypeIPAddress:  synthesizeIP,
}

// applySynthesize derives a same-shaped synthetic replacement from a
// non-cryptographic hash of the original span, salted by the caller
// seed. Same seed and input always yield the same output; types
// without a generator emit the generic synthetic token.
func applySynthesize(text string, m pii.Match, cfg StrategyConfig) StrategyResult {
	span := m.Span(text)

	gen, ok := synthesizers[m.Type]
	if !ok {
		return StrategyResult{Replacement: genericSyntheticToken}
	}

	rng := rand.New(rand.NewSource(seedFor(cfg.Seed, span)))
	return StrategyResult{Replacement: gen(span, rng)}
}

func synthesizeEmail(span string, rng *rand.Rand) string {
	first := syntheticFirstNames[rng.Intn(len(syntheticFirstNames))]
	last := syntheticLastNames[rng.Intn(len(syntheticLastNames))]
	domain := syntheticDomains[rng.Intn(len(syntheticDomains))]
	return first + "." + last + "@" + domain
}

var salutations = map[string]bool{
	"Mr": true, "Mr.": true, "Mrs": true, "Mrs.": true,
	"Ms": true, "Ms.": true, "Dr": true, "Dr.": true,
	"Prof": true, "Prof.": true,
}

func synthesizeName(span string, rng *rand.Rand) string {
	first := titleCase(syntheticFirstNames[rng.Intn(len(syntheticFirstNames))])
	last := titleCase(syntheticLastNames[rng.Intn(len(syntheticLastNames))])

	// Keep the salutation when the original carried one.
	if fields := strings.Fields(span); len(fields) > 0 && salutations[fields[0]] {
		return fields[0] + " " + first + " " + last
	}
	return first + " " + last
}

// synthesizeDigitShape re-derives every digit and keeps all other
// characters, so grouping and punctuation survive exactly.
func synthesizeDigitShape(span string, rng *rand.Rand) string {
	out := []byte(span)
	for i, c := range out {
		if c >= '0' && c <= '9' {
			out[i] = byte('0' + rng.Intn(10))
		}
	}
	return string(out)
}

// synthesizeCard keeps the digit shape and then corrects the final
// digit so the synthetic number still passes the Luhn checksum.
func synthesizeCard(span string, rng *rand.Rand) string {
	out := []byte(synthesizeDigitShape(span, rng))

	digitIdx := make([]int, 0, len(out))
	for i, c := range out {
		if c >= '0' && c <= '9' {
			digitIdx = append(digitIdx, i)
		}
	}
	if len(digitIdx) < 2 {
		return string(out)
	}

	payload := make([]byte, 0, len(digitIdx)-1)
	for _, i := range digitIdx[:len(digitIdx)-1] {
		payload = append(payload, out[i])
	}
	out[digitIdx[len(digitIdx)-1]] = luhnCheckDigit(payload)
	return string(out)
}

// luhnCheckDigit computes the check digit for a digit-string payload.
func luhnCheckDigit(payload []byte) byte {
	sum := 0
	double := true
	for i := len(payload) - 1; i >= 0; i-- {
		d := int(payload[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return byte('0' + (10-sum%10)%10)
}

// synthesizeIP emits an address in 10.0.0.0/8 so synthetic output never
// names a routable host.
func synthesizeIP(span string, rng *rand.Rand) string {
	return "10." + strconv.Itoa(rng.Intn(256)) + "." +
		strconv.Itoa(rng.Intn(256)) + "." + strconv.Itoa(1+rng.Intn(254))
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
