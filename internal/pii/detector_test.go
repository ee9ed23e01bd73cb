package pii

import (
	"reflect"
	"testing"

	"go.uber.org/zap"
)

func newTestDetector(t *testing.T) *Detector {
	t.Helper()
	d, err := New(DefaultConfig(), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create detector: %v", err)
	}
	return d
}

// TestDetect tests detection across the built-in rule set
func TestDetect(t *testing.T) {
	d := newTestDetector(t)

	t.Run("EmailAndPhone", func(t *testing.T) {
		text := "Contact john.doe@example.com or call 555-123-4567"
		matches := d.Detect(text)
		if len(matches) < 2 {
			t.Fatalf("Expected at least 2 matches, got %d", len(matches))
		}

		var haveEmail, havePhone bool
		for _, m := range matches {
			span := m.Span(text)
			switch m.Type {
			case TypeEmail:
				haveEmail = true
				if span != "john.doe@example.com" {
					t.Errorf("Email span = %q", span)
				}
				if m.Confidence != 0.95 {
					t.Errorf("Email confidence = %f, want 0.95", m.Confidence)
				}
			case TypePhone:
				havePhone = true
				if span != "555-123-4567" {
					t.Errorf("Phone span = %q", span)
				}
			}
		}
		if !haveEmail || !havePhone {
			t.Errorf("Missing detections: email=%v phone=%v", haveEmail, havePhone)
		}
	})

	t.Run("OrderedByStartOffset", func(t *testing.T) {
		text := "Contact john.doe@example.com or call 555-123-4567"
		matches := d.Detect(text)
		for i := 1; i < len(matches); i++ {
			if matches[i].Start < matches[i-1].Start {
				t.Errorf("Matches out of order at %d: %d < %d", i, matches[i].Start, matches[i-1].Start)
			}
		}
	})

	t.Run("SSN", func(t *testing.T) {
		matches := d.Detect("my ssn is 123-45-6789")
		if len(matches) != 1 {
			t.Fatalf("Expected 1 match, got %d", len(matches))
		}
		if matches[0].Type != TypeSSN {
			t.Errorf("Type = %s, want ssn", matches[0].Type)
		}
		if matches[0].Start != 10 || matches[0].End != 21 {
			t.Errorf("Offsets = [%d,%d), want [10,21)", matches[0].Start, matches[0].End)
		}
	})

	t.Run("CreditCardLuhnGate", func(t *testing.T) {
		valid := d.Detect("card 4111-1111-1111-1111 on file")
		if len(valid) != 1 || valid[0].Type != TypeCreditCard {
			t.Fatalf("Valid card not detected: %+v", valid)
		}
		if valid[0].Confidence != 0.85 {
			t.Errorf("Card confidence = %f, want 0.85", valid[0].Confidence)
		}

		// Same shape, failing checksum: candidate must be dropped entirely.
		invalid := d.Detect("card 4111-1111-1111-1112 on file")
		for _, m := range invalid {
			if m.Type == TypeCreditCard {
				t.Errorf("Invalid checksum produced a card match: %+v", m)
			}
		}
	})

	t.Run("IPAddress", func(t *testing.T) {
		matches := d.Detect("client at 10.0.0.1 connected")
		if len(matches) != 1 || matches[0].Type != TypeIPAddress {
			t.Fatalf("IP not detected: %+v", matches)
		}
	})

	t.Run("OverlapsReported", func(t *testing.T) {
		// The leading house number is both a ZIP-shaped run and part of
		// the street address span. Both must surface; no dedup here.
		text := "ship to 90210 Elm Street please"
		matches := d.Detect(text)

		var haveAddress, haveZIP bool
		for _, m := range matches {
			if m.Type == TypeAddress {
				haveAddress = true
			}
			if m.Type == TypeZIPCode {
				haveZIP = true
			}
		}
		if !haveAddress || !haveZIP {
			t.Errorf("Expected overlapping address and zip matches, got %+v", matches)
		}
	})

	t.Run("EmptyText", func(t *testing.T) {
		if matches := d.Detect(""); matches != nil {
			t.Errorf("Expected nil for empty text, got %+v", matches)
		}
	})

	t.Run("CleanText", func(t *testing.T) {
		if matches := d.Detect("nothing sensitive in here"); len(matches) != 0 {
			t.Errorf("Expected no matches, got %+v", matches)
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		text := "Contact john.doe@example.com or call 555-123-4567, ssn 123-45-6789"
		first := d.Detect(text)
		second := d.Detect(text)
		if !reflect.DeepEqual(first, second) {
			t.Error("Detect is not deterministic for identical input")
		}
	})

	t.Run("OffsetsInBounds", func(t *testing.T) {
		text := "a 192.168.1.100 b 4111 1111 1111 1111 c"
		for _, m := range d.Detect(text) {
			if m.Start < 0 || m.End > len(text) || m.Start >= m.End {
				t.Errorf("Offsets out of bounds: %+v (len %d)", m, len(text))
			}
		}
	})
}

// TestDetectPlaceholdersInert verifies anonymization output never re-matches
func TestDetectPlaceholdersInert(t *testing.T) {
	d := newTestDetector(t)

	placeholders := []string{
		"[EMAIL_REDACTED]",
		"[SSN_REDACTED]",
		"[CREDIT_CARD_REDACTED]",
		"[PII_REDACTED]",
		"[MASKED:PHONE]",
		"[EMAIL]",
		"[IP_ADDRESS]",
		"TOK_a3f2b8c9d4e5f6a7b8c9d4e5f6a7b8c9",
		"hash:a3f2b8c9d4e5f6a7",
		"xxh:9d4e5f6a7b8c9d4e",
		"ENC[a3f2b8c9d4e5f6a7]",
		"Contact [EMAIL_REDACTED] or call [PHONE_REDACTED]",
	}

	for _, p := range placeholders {
		if matches := d.Detect(p); len(matches) != 0 {
			t.Errorf("Placeholder %q re-matched: %+v", p, matches)
		}
	}
}

// TestDetectorConfiguration tests detector enable/disable wiring
func TestDetectorConfiguration(t *testing.T) {
	t.Run("SubsetEnabled", func(t *testing.T) {
		d, err := New(Config{Detectors: []string{"email"}}, zap.NewNop())
		if err != nil {
			t.Fatalf("Failed to create detector: %v", err)
		}

		matches := d.Detect("john.doe@example.com or 555-123-4567")
		if len(matches) != 1 || matches[0].Type != TypeEmail {
			t.Errorf("Expected only the email match, got %+v", matches)
		}
	})

	t.Run("UnknownDetector", func(t *testing.T) {
		if _, err := New(Config{Detectors: []string{"retina_scan"}}, zap.NewNop()); err == nil {
			t.Error("Expected error for unknown detector name")
		}
	})

	t.Run("EmptyDefaultsToAll", func(t *testing.T) {
		d, err := New(Config{}, zap.NewNop())
		if err != nil {
			t.Fatalf("Failed to create detector: %v", err)
		}
		if len(d.EnabledTypes()) != len(DefaultRules()) {
			t.Errorf("Expected all %d rules enabled, got %d", len(DefaultRules()), len(d.EnabledTypes()))
		}
	})

	t.Run("NilLogger", func(t *testing.T) {
		if _, err := New(DefaultConfig(), nil); err != nil {
			t.Errorf("Nil logger should be tolerated: %v", err)
		}
	})
}

// TestTypeLabel tests placeholder label derivation
func TestTypeLabel(t *testing.T) {
	if got := TypeCreditCard.Label(); got != "CREDIT_CARD" {
		t.Errorf("Label = %q, want CREDIT_CARD", got)
	}
	if got := Type("").Label(); got != "PII" {
		t.Errorf("Empty type label = %q, want PII", got)
	}
}
