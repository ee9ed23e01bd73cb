package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/anonymize"
)

// Event is one anonymization audit row. It records digests, counters
// and strategy names only; raw content never reaches the store.
type Event struct {
	ID               int64     `db:"id" json:"id"`
	RequestID        string    `db:"request_id" json:"request_id"`
	Source           string    `db:"source" json:"source"`
	ContentHash      string    `db:"content_hash" json:"content_hash"`
	PIIDetections    int       `db:"pii_detections" json:"pii_detections"`
	FieldsAnonymized int       `db:"fields_anonymized" json:"fields_anonymized"`
	Strategies       string    `db:"strategies" json:"strategies"`
	Frameworks       string    `db:"frameworks" json:"frameworks"`
	Compliant        bool      `db:"compliant" json:"compliant"`
	AuditHash        string    `db:"audit_hash" json:"audit_hash"`
	DurationMs       int64     `db:"duration_ms" json:"duration_ms"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// Stats represents aggregate audit statistics
type Stats struct {
	TotalEvents      int64   `json:"total_events"`
	TotalDetections  int64   `json:"total_detections"`
	FieldsAnonymized int64   `json:"total_fields_anonymized"`
	NonCompliant     int64   `json:"non_compliant_events"`
	AvgDurationMs    float64 `json:"avg_duration_ms"`
}

// BatchResult summarizes a batch insert
type BatchResult struct {
	Inserted   int64         `json:"inserted"`
	Duplicates int64         `json:"duplicates_skipped"`
	Failed     int64         `json:"failed"`
	Duration   time.Duration `json:"duration"`
}

// BuildEvent assembles the audit row for one anonymization. The
// content hash is computed by the caller from the raw input; the
// result contributes only counters and strategy names.
func BuildEvent(requestID, source, contentHash string, result *anonymize.Result, frameworks []string, duration time.Duration) *Event {
	strategies := appliedStrategies(result)

	compliant := true
	for _, check := range result.Compliance {
		if !check.Compliant {
			compliant = false
			break
		}
	}

	return &Event{
		RequestID:        requestID,
		Source:           source,
		ContentHash:      contentHash,
		PIIDetections:    result.Metrics.PIIDetections,
		FieldsAnonymized: result.Metrics.FieldsAnonymized,
		Strategies:       marshalStrategies(strategies),
		Frameworks:       strings.Join(frameworks, ","),
		Compliant:        compliant,
		AuditHash:        ComputeAuditHash(requestID, result.Metrics, strategies),
		DurationMs:       duration.Milliseconds(),
	}
}

// ComputeAuditHash derives the attestation digest for one request:
// sha256 over the request id, the metrics and the applied strategies.
// No raw content and no field values enter the hash.
func ComputeAuditHash(requestID string, metrics anonymize.Metrics, strategies map[string]string) string {
	payload := struct {
		RequestID  string            `json:"request_id"`
		Metrics    anonymize.Metrics `json:"metrics"`
		Strategies map[string]string `json:"strategies"`
	}{requestID, metrics, strategies}

	// Map keys marshal sorted, so the digest is deterministic.
	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// AppliedStrategies extracts the pii type -> strategy mapping from a
// result's field records.
func AppliedStrategies(result *anonymize.Result) map[string]string {
	return appliedStrategies(result)
}

func appliedStrategies(result *anonymize.Result) map[string]string {
	strategies := make(map[string]string)
	for _, fr := range result.FieldResults {
		strategies[string(fr.PIIType)] = string(fr.Strategy)
	}
	return strategies
}

func marshalStrategies(strategies map[string]string) string {
	data, err := json.Marshal(strategies)
	if err != nil {
		return "{}"
	}
	return string(data)
}
