package compliance

import "github.com/LLM-Dev-Ops/data-vault-sub001/internal/pii"

// Strength ranks run weakest to strongest. Partial reveal keeps most
// of the value, coarse keeps only category-level precision, removed
// destroys the value in place, opaque leaves nothing derivable without
// an external vault or key.
const (
	strengthPartial = 1
	strengthCoarse  = 2
	strengthRemoved = 3
	strengthOpaque  = 4
)

// strategyStrength maps strategy names to their protection rank.
// Strategies enter this package as plain strings so that framework
// rules stay decoupled from the dispatch layer. Unknown names rank 0,
// below every minimum.
var strategyStrength = map[string]int{
	"mask":                 strengthPartial,
	"generalize":           strengthCoarse,
	"noise":                strengthCoarse,
	"k_anonymity":          strengthCoarse,
	"l_diversity":          strengthCoarse,
	"t_closeness":          strengthCoarse,
	"differential_privacy": strengthCoarse,
	"redact":               strengthRemoved,
	"hash":                 strengthRemoved,
	"pseudonymize":         strengthRemoved,
	"synthesize":           strengthRemoved,
	"suppress":             strengthOpaque,
	"tokenize":             strengthOpaque,
	"encrypt":              strengthOpaque,
}

var strengthNames = map[int]string{
	strengthPartial: "masking",
	strengthCoarse:  "generalization",
	strengthRemoved: "removal",
	strengthOpaque:  "tokenization",
}

// rule states what a framework demands for one PII type: the minimum
// acceptable strength, whether falling short is a critical failure,
// and the strategy the framework prefers when the caller has none.
type rule struct {
	min         int
	mandatory   bool
	recommended string
}

type framework struct {
	label string
	rules map[pii.Type]rule
}

// frameworkTable holds the supported framework rule sets, keyed by
// their lowercase wire names. Credential material (API keys, cloud
// keys, JWTs) is deliberately absent: the detector still catches it,
// but no privacy regulation speaks to it, so only the policy default
// applies.
var frameworkTable = map[string]framework{
	FrameworkGDPR: {
		label: "GDPR",
		rules: map[pii.Type]rule{
			pii.TypeEmail:       {min: strengthRemoved, mandatory: true, recommended: "pseudonymize"},
			pii.TypeName:        {min: strengthRemoved, mandatory: true, recommended: "pseudonymize"},
			pii.TypeIBAN:        {min: strengthRemoved, recommended: "hash"},
			pii.TypePhone:       {min: strengthCoarse, recommended: "generalize"},
			pii.TypeAddress:     {min: strengthCoarse, recommended: "generalize"},
			pii.TypeIPAddress:   {min: strengthCoarse, recommended: "generalize"},
			pii.TypeIPv6Address: {min: strengthCoarse, recommended: "generalize"},
			pii.TypeDate:        {min: strengthCoarse, recommended: "generalize"},
			pii.TypeZIPCode:     {min: strengthCoarse, recommended: "generalize"},
		},
	},
	FrameworkHIPAA: {
		label: "HIPAA",
		rules: map[pii.Type]rule{
			pii.TypeSSN:           {min: strengthRemoved, mandatory: true, recommended: "redact"},
			pii.TypeMedicalRecord: {min: strengthRemoved, mandatory: true, recommended: "redact"},
			pii.TypeName:          {min: strengthRemoved, recommended: "pseudonymize"},
			pii.TypeEmail:         {min: strengthRemoved, recommended: "redact"},
			pii.TypePhone:         {min: strengthRemoved, recommended: "redact"},
			pii.TypeDate:          {min: strengthCoarse, recommended: "generalize"},
			pii.TypeZIPCode:       {min: strengthCoarse, recommended: "generalize"},
			pii.TypeAddress:       {min: strengthCoarse, recommended: "generalize"},
		},
	},
	FrameworkPCIDSS: {
		label: "PCI DSS",
		rules: map[pii.Type]rule{
			pii.TypeCreditCard: {min: strengthRemoved, mandatory: true, recommended: "tokenize"},
		},
	},
	FrameworkCCPA: {
		label: "CCPA",
		rules: map[pii.Type]rule{
			pii.TypeSSN:       {min: strengthRemoved, mandatory: true, recommended: "redact"},
			pii.TypeEmail:     {min: strengthPartial, recommended: "mask"},
			pii.TypeName:      {min: strengthPartial, recommended: "mask"},
			pii.TypePhone:     {min: strengthPartial, recommended: "mask"},
			pii.TypeIPAddress: {min: strengthPartial, recommended: "mask"},
			pii.TypeAddress:   {min: strengthCoarse, recommended: "generalize"},
		},
	},
}
