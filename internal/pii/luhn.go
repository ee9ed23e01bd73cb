package pii

// Card number candidates are digit runs of 13 to 19 digits, optionally
// separated by single spaces or dashes. A candidate only becomes a match
// when the digits pass the Luhn checksum and carry enough variety to
// rule out filler sequences like 0000-0000-0000-0000.

// A lone repeated digit (0000-0000-0000-0000 passes Luhn) is filler,
// not a card; two distinct digits is the floor because real test and
// issuer numbers like 4111-1111-1111-1111 carry exactly two.
const (
	minCardDigits         = 13
	maxCardDigits         = 19
	minDistinctCardDigits = 2
)

// extractDigits strips every non-digit byte from s.
func extractDigits(s string) string {
	buf := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			buf = append(buf, s[i])
		}
	}
	return string(buf)
}

// validLuhn reports whether digits (a string of '0'-'9' bytes) passes
// the Luhn checksum. Alternate digits are doubled starting from the
// second-to-last and the total must be divisible by ten.
func validLuhn(digits string) bool {
	if len(digits) == 0 {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}

	return sum%10 == 0
}

// countDistinctDigits returns how many distinct digit values appear.
func countDistinctDigits(digits string) int {
	var seen [10]bool
	count := 0
	for i := 0; i < len(digits); i++ {
		d := digits[i] - '0'
		if d > 9 {
			continue
		}
		if !seen[d] {
			seen[d] = true
			count++
		}
	}
	return count
}

// validCardNumber gates a card number candidate span: digit count in
// range, digit variety, and a passing Luhn checksum.
func validCardNumber(span string) bool {
	digits := extractDigits(span)
	if len(digits) < minCardDigits || len(digits) > maxCardDigits {
		return false
	}
	if countDistinctDigits(digits) < minDistinctCardDigits {
		return false
	}
	return validLuhn(digits)
}
