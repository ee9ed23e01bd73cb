package pii

import "regexp"

// Confidence conventions per category. Structured identifiers with a
// checksum or rigid format score high, loose context-free formats score
// low; the traverser filters against the policy threshold.
const (
	confidenceEmail       = 0.95
	confidenceVendorToken = 0.95
	confidenceAPIKey      = 0.90
	confidenceChecksum    = 0.85
	confidenceSSN         = 0.85
	confidenceMAC         = 0.80
	confidenceIBAN        = 0.80
	confidenceMedical     = 0.80
	confidenceAddress     = 0.75
	confidenceIP          = 0.70
	confidenceDate        = 0.70
	confidenceName        = 0.70
	confidencePhone       = 0.65
	confidenceZIP         = 0.40
)

// defaultRules is the built-in detection table, compiled once at process
// start and never mutated afterwards. Order encodes priority: specific
// formats come before loose ones so equal-offset matches sort stably.
//
// Placeholder idempotence constraint: output produced by the strategy
// library (bracketed labels, TOK_<hex> tokens, hash:<hex> digests) must
// not re-match any rule here. Every pattern therefore anchors on a shape
// those placeholders cannot take: mandatory separators, checksums, or
// context keywords.
var defaultRules = buildDefaultRules()

func buildDefaultRules() []Rule {
	rules := []Rule{
		{
			Type:       TypeCreditCard,
			Pattern:    regexp.MustCompile(`\b\d(?:[ -]?\d){12,18}\b`),
			Confidence: confidenceChecksum,
			Validate:   validCardNumber,
		},
		{
			Type:       TypeIBAN,
			Pattern:    regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{11,30}\b`),
			Confidence: confidenceIBAN,
		},
		{
			Type:       TypeEmail,
			Pattern:    regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
			Confidence: confidenceEmail,
		},
		{
			Type:       TypeJWT,
			Pattern:    regexp.MustCompile(`\beyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]+\b`),
			Confidence: confidenceAPIKey,
		},
		{
			Type:       TypeGitHubToken,
			Pattern:    regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}\b`),
			Confidence: confidenceVendorToken,
		},
		{
			Type:       TypeAWSAccessKey,
			Pattern:    regexp.MustCompile(`\b(?:AKIA|ASIA|AGPA|AROA)[0-9A-Z]{16}\b`),
			Confidence: confidenceAPIKey,
		},
		{
			Type:       TypeAPIKey,
			Pattern:    regexp.MustCompile(`(?i)\b(?:api[_-]?key|secret[_-]?key|access[_-]?token)["'\s]*[:=]["'\s]*[A-Za-z0-9_\-./+]{16,}`),
			Confidence: confidenceAPIKey,
		},
		{
			Type:       TypeSSN,
			Pattern:    regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
			Confidence: confidenceSSN,
		},
		{
			Type:       TypeMACAddress,
			Pattern:    regexp.MustCompile(`\b(?:[0-9A-Fa-f]{2}[:-]){5}[0-9A-Fa-f]{2}\b`),
			Confidence: confidenceMAC,
		},
		{
			Type:       TypeIPv6Address,
			Pattern:    regexp.MustCompile(`\b(?:[0-9A-Fa-f]{1,4}:){7}[0-9A-Fa-f]{1,4}\b`),
			Confidence: confidenceIP,
		},
		{
			Type:       TypeIPAddress,
			Pattern:    regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)\.){3}(?:25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)\b`),
			Confidence: confidenceIP,
		},
		{
			Type:       TypeMedicalRecord,
			Pattern:    regexp.MustCompile(`(?i)\b(?:mrn|medical record(?: number)?)[#:\s]+\d{6,10}\b`),
			Confidence: confidenceMedical,
		},
		{
			Type:       TypePhone,
			Pattern:    regexp.MustCompile(`(?:\+\d{1,2}[\s.-]?)?(?:\(\d{3}\)[\s.-]?|\b\d{3}[\s.-])\d{3}[\s.-]?\d{4}\b`),
			Confidence: confidencePhone,
		},
		{
			Type:       TypeDate,
			Pattern:    regexp.MustCompile(`\b(?:\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{4})\b`),
			Confidence: confidenceDate,
		},
		{
			Type:       TypeAddress,
			Pattern:    regexp.MustCompile(`\b\d{1,5}\s+(?:[A-Z][A-Za-z]*\s+){1,3}(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr|Court|Ct|Place|Pl|Way)\b`),
			Confidence: confidenceAddress,
		},
		{
			Type:       TypeName,
			Pattern:    regexp.MustCompile(`\b(?:Mr|Mrs|Ms|Dr|Prof)\.?\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+)?\b`),
			Confidence: confidenceName,
		},
		{
			Type:       TypeZIPCode,
			Pattern:    regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`),
			Confidence: confidenceZIP,
		},
	}

	for i := range rules {
		rules[i].Priority = i
	}
	return rules
}

// DefaultRules returns the built-in detection table. Callers must not
// mutate the returned slice.
func DefaultRules() []Rule {
	return defaultRules
}
