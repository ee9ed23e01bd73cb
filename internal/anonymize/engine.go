// Package anonymize is the content anonymization core. It walks
// scalar, record, or sequence payloads, locates PII spans with the
// detector, rewrites each span through a per-type strategy, and
// reports metrics, per-field outcomes, and compliance verdicts for
// the rewritten content.
package anonymize

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/compliance"
	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/logger"
	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/pii"
)

// highConfidence is the threshold below which surviving detections
// trigger a summary warning on the final report.
const highConfidence = 0.9

// Overall confidence blends detection quality with rewrite coverage.
const (
	detectionWeight = 0.6
	coverageWeight  = 0.4
)

type dispatchFunc func(s Strategy, text string, m pii.Match, cfg StrategyConfig) StrategyResult

// Engine ties the detector, the strategy dispatcher, and the
// compliance rules into the top-level anonymization entry point.
// Engines are stateless across calls and safe for concurrent use.
type Engine struct {
	detector *pii.Detector
	logger   *logger.Logger
}

func NewEngine(detector *pii.Detector, log *logger.Logger) *Engine {
	if log == nil {
		log = &logger.Logger{Logger: zap.NewNop()}
	}
	return &Engine{
		detector: detector,
		logger:   log.WithComponent("anonymize"),
	}
}

// Anonymize rewrites every detected PII span in content according to
// policy and reports what was found and what was done about it.
// Content may be a plain string, a decoded record, or a sequence of
// either; the result keeps the input's shape. A nil policy applies
// DefaultPolicy.
func (e *Engine) Anonymize(ctx context.Context, content interface{}, policy *Policy) (*Result, error) {
	return e.run(ctx, content, policy, Apply)
}

// AnonymizeFast is identical to Anonymize except that the hash
// strategy uses the non-cryptographic digest. Meant for bulk paths
// where digest cost dominates and linkability of hashed values is
// acceptable.
func (e *Engine) AnonymizeFast(ctx context.Context, content interface{}, policy *Policy) (*Result, error) {
	return e.run(ctx, content, policy, ApplySync)
}

func (e *Engine) run(ctx context.Context, content interface{}, policy *Policy, dispatch dispatchFunc) (*Result, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := policy
	if p == nil {
		p = DefaultPolicy()
	}
	tr := newTraversal(*p, dispatch)

	var anonymized interface{}
	switch v := content.(type) {
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out[i] = e.anonymizeValue(item, indexPath("", i), 0, tr)
		}
		anonymized = out
	case string:
		anonymized = e.anonymizeValue(v, "content", 0, tr)
	default:
		anonymized = e.anonymizeValue(content, "", 0, tr)
	}

	result := &Result{
		Content:      anonymized,
		Metrics:      tr.metrics(),
		FieldResults: tr.fields,
		Warnings:     tr.warnings,
	}

	if len(tr.policy.Frameworks) > 0 {
		applied := make(map[pii.Type]string, len(tr.applied))
		for t, s := range tr.applied {
			applied[t] = string(s)
		}
		result.Compliance = compliance.Check(tr.policy.Frameworks, tr.detections, applied)
		result.Warnings = append(result.Warnings, complianceWarnings(result.Compliance)...)
	}

	if n := countLowConfidence(tr.detections); n > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d detection(s) below the %.2f confidence threshold, manual review recommended", n, highConfidence))
	}

	result.OverallConfidence = overallConfidence(result.Metrics)

	e.logger.Debug("content anonymized",
		zap.Int("fields_processed", result.Metrics.FieldsProcessed),
		zap.Int("fields_anonymized", result.Metrics.FieldsAnonymized),
		zap.Int("pii_detections", result.Metrics.PIIDetections),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (tr *traversal) metrics() Metrics {
	m := Metrics{
		FieldsProcessed:    tr.processed,
		FieldsAnonymized:   tr.anonymized,
		PIIDetections:      len(tr.detections),
		DetectionBreakdown: make(map[string]int, len(tr.applied)),
		AverageConfidence:  1.0,
	}
	if len(tr.detections) == 0 {
		return m
	}
	sum := 0.0
	for _, d := range tr.detections {
		m.DetectionBreakdown[string(d.Type)]++
		sum += d.Confidence
	}
	m.AverageConfidence = sum / float64(len(tr.detections))
	return m
}

// overallConfidence weighs how sure the detector was against how much
// of the content actually got rewritten. Clean content scores 1.0.
func overallConfidence(m Metrics) float64 {
	if m.PIIDetections == 0 {
		return 1.0
	}
	coverage := 0.0
	if m.FieldsProcessed > 0 {
		coverage = float64(m.FieldsAnonymized) / float64(m.FieldsProcessed)
	}
	return detectionWeight*m.AverageConfidence + coverageWeight*coverage
}

// complianceWarnings surfaces warning-grade violations on the report's
// warning list. Critical violations stay on the check result itself.
func complianceWarnings(results map[string]compliance.CheckResult) []string {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	var warnings []string
	for _, name := range names {
		for _, v := range results[name].Violations {
			if v.Severity == compliance.SeverityCritical {
				continue
			}
			warnings = append(warnings, v.Description)
		}
	}
	return warnings
}

func countLowConfidence(detections []pii.Match) int {
	n := 0
	for _, d := range detections {
		if d.Confidence < highConfidence {
			n++
		}
	}
	return n
}
