package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/anonymize"
	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/audit"
	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/compliance"
	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/events"
	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/pii"
)

type anonymizeRequest struct {
	Content json.RawMessage   `json:"content"`
	Format  string            `json:"format,omitempty"`
	Policy  *anonymize.Policy `json:"policy,omitempty"`
	Options anonymizeOptions  `json:"options,omitempty"`
}

type anonymizeOptions struct {
	IncludeFieldResults bool `json:"include_field_results,omitempty"`
	SkipCache           bool `json:"skip_cache,omitempty"`
}

type attestation struct {
	Frameworks []string `json:"frameworks,omitempty"`
	Compliant  bool     `json:"compliant"`
	AuditHash  string   `json:"audit_hash"`
}

type anonymizeResponse struct {
	Content      interface{}                       `json:"content"`
	Metrics      anonymize.Metrics                 `json:"metrics"`
	FieldResults []anonymize.FieldResult           `json:"field_results,omitempty"`
	Compliance   map[string]compliance.CheckResult `json:"compliance,omitempty"`
	Attestation  attestation                       `json:"attestation"`
	Warnings     []string                          `json:"warnings,omitempty"`
	RequestID    string                            `json:"request_id"`
	DurationMs   float64                           `json:"duration_ms"`
	Cached       bool                              `json:"cached,omitempty"`
}

// handleAnonymize runs the engine over the request content and returns
// the anonymized value with metrics and attestation
func (s *Server) handleAnonymize(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := getRequestID(r.Context())
	s.requests.Add(1)

	var req anonymizeRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if len(req.Content) == 0 {
		s.writeError(w, r, http.StatusBadRequest, "content is required")
		return
	}

	var content interface{}
	if err := json.Unmarshal(req.Content, &content); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "content is not valid JSON")
		return
	}

	policy := req.Policy
	if policy == nil {
		policy = &s.cfg.Engine.Policy
	}

	// Cache lookup. The key digests content and policy; raw content
	// never reaches Redis.
	var cacheKey string
	if s.cache != nil && !req.Options.SkipCache {
		policyBytes, err := json.Marshal(policy)
		if err == nil {
			cacheKey = s.cache.Key(req.Content, policyBytes)
			if cached, ok := s.cache.Get(r.Context(), cacheKey); ok {
				s.detections.Add(int64(cached.Metrics.PIIDetections))
				s.recordAudit(requestID, req.Content, cached, policy.Frameworks, time.Since(start))
				s.respondAnonymize(w, requestID, cached, policy, req.Options, start, true)
				return
			}
		}
	}

	result, err := s.engine.Anonymize(r.Context(), content, policy)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.logger.WithRequestID(requestID).Error("Anonymization failed", zap.Error(err))
		s.writeError(w, r, http.StatusInternalServerError, "anonymization failed")
		return
	}

	s.detections.Add(int64(result.Metrics.PIIDetections))

	if cacheKey != "" {
		if err := s.cache.Put(r.Context(), cacheKey, result); err != nil {
			s.logger.WithRequestID(requestID).Warn("Result cache write failed", zap.Error(err))
		}
	}

	duration := time.Since(start)
	s.recordAudit(requestID, req.Content, result, policy.Frameworks, duration)
	s.broadcastAnonymization(requestID, result, duration)
	s.respondAnonymize(w, requestID, result, policy, req.Options, start, false)
}

func (s *Server) respondAnonymize(w http.ResponseWriter, requestID string, result *anonymize.Result, policy *anonymize.Policy, opts anonymizeOptions, start time.Time, cached bool) {
	resp := anonymizeResponse{
		Content:    result.Content,
		Metrics:    result.Metrics,
		Compliance: result.Compliance,
		Attestation: attestation{
			Frameworks: policy.Frameworks,
			Compliant:  allCompliant(result.Compliance),
			AuditHash:  audit.ComputeAuditHash(requestID, result.Metrics, audit.AppliedStrategies(result)),
		},
		Warnings:   result.Warnings,
		RequestID:  requestID,
		DurationMs: float64(time.Since(start).Microseconds()) / 1000,
		Cached:     cached,
	}
	if opts.IncludeFieldResults {
		resp.FieldResults = result.FieldResults
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type detectRequest struct {
	Content string        `json:"content"`
	Options detectOptions `json:"options,omitempty"`
}

type detectOptions struct {
	IncludeValues bool `json:"include_values,omitempty"`
}

type detectionSpan struct {
	Type       pii.Type `json:"pii_type"`
	Start      int      `json:"start_offset"`
	End        int      `json:"end_offset"`
	Confidence float64  `json:"confidence"`
	Value      string   `json:"value,omitempty"`
}

type detectResponse struct {
	Detections []detectionSpan `json:"detections"`
	Count      int             `json:"count"`
	RequestID  string          `json:"request_id"`
	DurationMs float64         `json:"duration_ms"`
}

// handleDetect reports PII spans without transforming the content.
// Raw values are echoed only when the caller asks for them.
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := getRequestID(r.Context())
	s.requests.Add(1)

	var req detectRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	matches := s.detector.Detect(req.Content)
	s.detections.Add(int64(len(matches)))

	spans := make([]detectionSpan, 0, len(matches))
	for _, m := range matches {
		span := detectionSpan{
			Type:       m.Type,
			Start:      m.Start,
			End:        m.End,
			Confidence: m.Confidence,
		}
		if req.Options.IncludeValues {
			span.Value = m.Span(req.Content)
		}
		spans = append(spans, span)
	}

	s.writeJSON(w, http.StatusOK, detectResponse{
		Detections: spans,
		Count:      len(spans),
		RequestID:  requestID,
		DurationMs: float64(time.Since(start).Microseconds()) / 1000,
	})
}

type complianceCheckRequest struct {
	Frameworks []string            `json:"frameworks"`
	Detections []pii.Match         `json:"detections"`
	Applied    map[pii.Type]string `json:"applied_strategies"`
}

type complianceCheckResponse struct {
	Results    map[string]compliance.CheckResult `json:"results"`
	RequestID  string                            `json:"request_id"`
	DurationMs float64                           `json:"duration_ms"`
}

// handleComplianceCheck runs the compliance engine over caller
// provided detections and strategies
func (s *Server) handleComplianceCheck(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := getRequestID(r.Context())
	s.requests.Add(1)

	var req complianceCheckRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if len(req.Frameworks) == 0 {
		s.writeError(w, r, http.StatusBadRequest, "frameworks is required")
		return
	}

	s.writeJSON(w, http.StatusOK, complianceCheckResponse{
		Results:    compliance.Check(req.Frameworks, req.Detections, req.Applied),
		RequestID:  requestID,
		DurationMs: float64(time.Since(start).Microseconds()) / 1000,
	})
}

// recordAudit writes the audit row off the request path; failures are
// logged by the store and never fail the request
func (s *Server) recordAudit(requestID string, content json.RawMessage, result *anonymize.Result, frameworks []string, duration time.Duration) {
	if s.audit == nil {
		return
	}

	sum := sha256.Sum256(content)
	event := audit.BuildEvent(requestID, "api", hex.EncodeToString(sum[:]), result, frameworks, duration)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.audit.Record(ctx, event)
	}()
}

// broadcastAnonymization emits the per-request event: counts, type
// names and field paths only
func (s *Server) broadcastAnonymization(requestID string, result *anonymize.Result, duration time.Duration) {
	seen := make(map[string]bool)
	paths := make([]string, 0, len(result.FieldResults))
	for _, fr := range result.FieldResults {
		if !seen[fr.FieldPath] {
			seen[fr.FieldPath] = true
			paths = append(paths, fr.FieldPath)
		}
	}

	s.hub.BroadcastEvent(events.Event{
		Type:      events.EventTypeAnonymization,
		Timestamp: time.Now(),
		RequestID: requestID,
		Data: events.AnonymizationEvent{
			RequestID:          requestID,
			Source:             "api",
			FieldsProcessed:    result.Metrics.FieldsProcessed,
			FieldsAnonymized:   result.Metrics.FieldsAnonymized,
			PIIDetections:      result.Metrics.PIIDetections,
			DetectionBreakdown: result.Metrics.DetectionBreakdown,
			FieldPaths:         paths,
			Compliant:          allCompliant(result.Compliance),
			ProcessingMS:       float64(duration.Microseconds()) / 1000,
		},
	})
}

func allCompliant(results map[string]compliance.CheckResult) bool {
	for _, cr := range results {
		if !cr.Compliant {
			return false
		}
	}
	return true
}

// decodeJSON decodes the request body into v, writing the error
// response itself when decoding fails. Oversized bodies map to 413,
// malformed JSON to 400.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			s.writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		s.writeError(w, r, http.StatusBadRequest, "invalid JSON payload")
		return false
	}
	return true
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.writeJSON(w, status, errorResponse{
		Error:     msg,
		RequestID: getRequestID(r.Context()),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}
