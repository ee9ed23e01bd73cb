package pii

import (
	"regexp"
	"strings"
)

// Type identifies a category of personally identifiable information.
type Type string

const (
	TypeEmail         Type = "email"
	TypePhone         Type = "phone"
	TypeSSN           Type = "ssn"
	TypeCreditCard    Type = "credit_card"
	TypeIPAddress     Type = "ip_address"
	TypeIPv6Address   Type = "ipv6_address"
	TypeMACAddress    Type = "mac_address"
	TypeAWSAccessKey  Type = "aws_access_key"
	TypeAPIKey        Type = "api_key"
	TypeGitHubToken   Type = "github_token"
	TypeJWT           Type = "jwt_token"
	TypeIBAN          Type = "iban"
	TypeAddress       Type = "address"
	TypeZIPCode       Type = "zip_code"
	TypeDate          Type = "date"
	TypeName          Type = "name"
	TypeMedicalRecord Type = "medical_record"
)

// Label returns the uppercase token used when building categorical
// placeholders for this type, e.g. "CREDIT_CARD" for credit_card.
func (t Type) Label() string {
	if t == "" {
		return "PII"
	}
	return strings.ToUpper(string(t))
}

// Match is a single PII detection inside a string. Offsets are byte
// offsets into the scanned text, half-open: text[Start:End] is the
// matched span and 0 <= Start < End <= len(text).
type Match struct {
	Type       Type    `json:"pii_type"`
	Start      int     `json:"start_offset"`
	End        int     `json:"end_offset"`
	Confidence float64 `json:"confidence"`
}

// Span returns the matched substring of text. It returns "" when the
// offsets do not fit the given text.
func (m Match) Span(text string) string {
	if m.Start < 0 || m.End > len(text) || m.Start >= m.End {
		return ""
	}
	return text[m.Start:m.End]
}

// Rule is a single detection rule. Pattern proposes candidate spans and
// Validate, when set, gates them (checksum rules drop candidates that
// fail validation, so no garbage matches surface).
type Rule struct {
	Type       Type
	Pattern    *regexp.Regexp
	Confidence float64
	Validate   func(span string) bool
	Priority   int
}

// Config contains detector configuration.
type Config struct {
	// Detectors lists the detector names (Type values) to enable.
	// The single entry "all" enables every built-in rule.
	Detectors []string
}

// DefaultConfig returns a detector configuration with every rule enabled.
func DefaultConfig() Config {
	return Config{Detectors: []string{"all"}}
}
