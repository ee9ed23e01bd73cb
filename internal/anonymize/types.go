package anonymize

import (
	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/compliance"
	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/pii"
)

// StrategyResult is the outcome of applying one strategy to one match.
// Consumed immediately by the splice step; reversible results carry the
// token id a caller-side vault would need to resolve them later.
type StrategyResult struct {
	Replacement string `json:"replacement"`
	Reversible  bool   `json:"is_reversible"`
	TokenID     string `json:"token_id,omitempty"`
}

// StrategyConfig carries the per-strategy knobs. A zero value is usable:
// every strategy falls back to its documented default.
type StrategyConfig struct {
	// Mask options
	MaskChar       string `json:"mask_char,omitempty" yaml:"mask_char" mapstructure:"mask_char"`
	RevealFirst    int    `json:"reveal_first,omitempty" yaml:"reveal_first" mapstructure:"reveal_first"`
	RevealLast     int    `json:"reveal_last,omitempty" yaml:"reveal_last" mapstructure:"reveal_last"`
	PreserveLength *bool  `json:"preserve_length,omitempty" yaml:"preserve_length" mapstructure:"preserve_length"`
	UseLabel       bool   `json:"use_label,omitempty" yaml:"use_label" mapstructure:"use_label"`

	// Hash options
	Salt           string `json:"salt,omitempty" yaml:"salt" mapstructure:"salt"`
	HashAlgorithm  string `json:"hash_algorithm,omitempty" yaml:"hash_algorithm" mapstructure:"hash_algorithm"`
	TruncateLength int    `json:"truncate_length,omitempty" yaml:"truncate_length" mapstructure:"truncate_length"`

	// Generalize options
	GeneralizeLevel int `json:"generalize_level,omitempty" yaml:"generalize_level" mapstructure:"generalize_level"`

	// Synthesis / noise options
	Seed       uint64  `json:"seed,omitempty" yaml:"seed" mapstructure:"seed"`
	NoiseScale float64 `json:"noise_scale,omitempty" yaml:"noise_scale" mapstructure:"noise_scale"`
}

// preserveLength resolves the PreserveLength knob; unset means true.
func (c StrategyConfig) preserveLength() bool {
	if c.PreserveLength == nil {
		return true
	}
	return *c.PreserveLength
}

// Policy is the read-only per-invocation anonymization policy. Nothing
// here is shared or mutated across invocations.
type Policy struct {
	DefaultStrategy Strategy              `json:"default_strategy" yaml:"default_strategy" mapstructure:"default_strategy"`
	TypeStrategies  map[pii.Type]Strategy `json:"pii_strategies,omitempty" yaml:"pii_strategies" mapstructure:"pii_strategies"`
	Frameworks      []string              `json:"compliance_frameworks,omitempty" yaml:"compliance_frameworks" mapstructure:"compliance_frameworks"`
	MinConfidence   float64               `json:"min_detection_confidence" yaml:"min_detection_confidence" mapstructure:"min_detection_confidence"`
	StrategyConfig  StrategyConfig        `json:"strategy_config,omitempty" yaml:"strategy_config" mapstructure:"strategy_config"`
	MaxDepth        int                   `json:"max_depth,omitempty" yaml:"max_depth" mapstructure:"max_depth"`
}

// DefaultMaxDepth bounds traversal recursion. The input is attacker
// influenced, so depth is capped even when the policy does not say so.
const DefaultMaxDepth = 64

// DefaultPolicy returns the policy applied when a request carries
// none: redact everything detected with at least 0.5 confidence. The
// floor sits below the phone and name confidences on purpose; a
// default that skips likely PII would fail open.
func DefaultPolicy() *Policy {
	return &Policy{
		DefaultStrategy: StrategyRedact,
		MinConfidence:   0.5,
		MaxDepth:        DefaultMaxDepth,
	}
}

// maxDepth resolves the recursion cap; unset means DefaultMaxDepth.
func (p *Policy) maxDepth() int {
	if p.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return p.MaxDepth
}

// FieldResult is the audit record for one anonymized match: the dotted
// field path, what was found, what was applied, and a digest of the
// field's original value. Never mutated after creation.
type FieldResult struct {
	FieldPath    string   `json:"field_path"`
	PIIType      pii.Type `json:"pii_type"`
	Strategy     Strategy `json:"strategy_applied"`
	Confidence   float64  `json:"confidence"`
	OriginalHash string   `json:"original_hash"`
}

// Metrics accumulates per-invocation counters. Built once per call,
// never shared.
type Metrics struct {
	FieldsProcessed    int            `json:"total_fields_processed"`
	FieldsAnonymized   int            `json:"fields_anonymized"`
	PIIDetections      int            `json:"pii_detections"`
	DetectionBreakdown map[string]int `json:"detection_breakdown"`
	AverageConfidence  float64        `json:"average_confidence"`
}

// Result is the full anonymization report for one invocation.
type Result struct {
	Content           interface{}                       `json:"content"`
	Metrics           Metrics                           `json:"metrics"`
	FieldResults      []FieldResult                     `json:"field_results,omitempty"`
	Compliance        map[string]compliance.CheckResult `json:"compliance,omitempty"`
	Warnings          []string                          `json:"warnings,omitempty"`
	OverallConfidence float64                           `json:"overall_confidence"`
}
