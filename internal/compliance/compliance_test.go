package compliance

import (
	"reflect"
	"strings"
	"testing"

	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/pii"
)

func matchesOf(types ...pii.Type) []pii.Match {
	out := make([]pii.Match, len(types))
	for i, t := range types {
		out[i] = pii.Match{Type: t, Start: i * 10, End: i*10 + 5, Confidence: 0.9}
	}
	return out
}

func TestCheck(t *testing.T) {
	t.Run("MaskedCardFailsPCI", func(t *testing.T) {
		results := Check(
			[]string{FrameworkPCIDSS},
			matchesOf(pii.TypeCreditCard),
			map[pii.Type]string{pii.TypeCreditCard: "mask"},
		)
		res, ok := results[FrameworkPCIDSS]
		if !ok {
			t.Fatal("expected a pci_dss result")
		}
		if res.Compliant {
			t.Error("masked card data should not be PCI compliant")
		}
		if len(res.Violations) != 1 {
			t.Fatalf("violations = %d, want 1", len(res.Violations))
		}
		v := res.Violations[0]
		if v.Code != CodeMandatoryUnprotected {
			t.Errorf("code = %q, want %q", v.Code, CodeMandatoryUnprotected)
		}
		if v.Severity != SeverityCritical {
			t.Errorf("severity = %q, want %q", v.Severity, SeverityCritical)
		}
	})

	t.Run("TokenizedCardPassesPCI", func(t *testing.T) {
		results := Check(
			[]string{FrameworkPCIDSS},
			matchesOf(pii.TypeCreditCard),
			map[pii.Type]string{pii.TypeCreditCard: "tokenize"},
		)
		res := results[FrameworkPCIDSS]
		if !res.Compliant || len(res.Violations) != 0 {
			t.Errorf("tokenized card should pass cleanly, got %+v", res)
		}
	})

	t.Run("WeakStrategyWarnsWithoutFailing", func(t *testing.T) {
		results := Check(
			[]string{FrameworkGDPR},
			matchesOf(pii.TypePhone),
			map[pii.Type]string{pii.TypePhone: "mask"},
		)
		res := results[FrameworkGDPR]
		if !res.Compliant {
			t.Error("non-mandatory shortfall should stay compliant")
		}
		if len(res.Violations) != 1 || res.Violations[0].Severity != SeverityWarning {
			t.Fatalf("expected one warning violation, got %+v", res.Violations)
		}
		if res.Violations[0].Code != CodeBelowMinimum {
			t.Errorf("code = %q, want %q", res.Violations[0].Code, CodeBelowMinimum)
		}
	})

	t.Run("MissingStrategyCountsAsUnprotected", func(t *testing.T) {
		results := Check([]string{FrameworkGDPR}, matchesOf(pii.TypeEmail), nil)
		res := results[FrameworkGDPR]
		if res.Compliant {
			t.Error("email with no applied strategy must fail gdpr")
		}
		if len(res.Violations) != 1 {
			t.Fatalf("violations = %d, want 1", len(res.Violations))
		}
		if !strings.Contains(res.Violations[0].Description, `"none"`) {
			t.Errorf("description should name the missing strategy, got %q", res.Violations[0].Description)
		}
	})

	t.Run("UncoveredTypeIgnored", func(t *testing.T) {
		results := Check(
			[]string{FrameworkPCIDSS},
			matchesOf(pii.TypeEmail),
			nil,
		)
		res := results[FrameworkPCIDSS]
		if !res.Compliant || len(res.Violations) != 0 {
			t.Errorf("pci_dss has no email rule, got %+v", res)
		}
	})

	t.Run("UnknownFrameworkSkipped", func(t *testing.T) {
		results := Check(
			[]string{FrameworkGDPR, "sox", "iso27001"},
			matchesOf(pii.TypeEmail),
			map[pii.Type]string{pii.TypeEmail: "redact"},
		)
		if len(results) != 1 {
			t.Fatalf("results = %d entries, want 1", len(results))
		}
		if _, ok := results[FrameworkGDPR]; !ok {
			t.Error("gdpr result missing")
		}
	})

	t.Run("FrameworkNamesNormalized", func(t *testing.T) {
		results := Check([]string{" GDPR "}, matchesOf(pii.TypeEmail), map[pii.Type]string{pii.TypeEmail: "redact"})
		if _, ok := results[FrameworkGDPR]; !ok {
			t.Errorf("expected result keyed %q, got %v", FrameworkGDPR, results)
		}
	})

	t.Run("NoDetectionsCompliant", func(t *testing.T) {
		results := Check([]string{FrameworkGDPR, FrameworkHIPAA}, nil, nil)
		for name, res := range results {
			if !res.Compliant || len(res.Violations) != 0 {
				t.Errorf("%s: clean input should be compliant, got %+v", name, res)
			}
		}
	})

	t.Run("ViolationsOrderedByType", func(t *testing.T) {
		results := Check(
			[]string{FrameworkGDPR},
			matchesOf(pii.TypeZIPCode, pii.TypeEmail),
			map[pii.Type]string{pii.TypeZIPCode: "mask", pii.TypeEmail: "mask"},
		)
		res := results[FrameworkGDPR]
		if len(res.Violations) != 2 {
			t.Fatalf("violations = %d, want 2", len(res.Violations))
		}
		if !strings.Contains(res.Violations[0].Description, "email") {
			t.Errorf("first violation should cover email, got %q", res.Violations[0].Description)
		}
		if !strings.Contains(res.Violations[1].Description, "zip_code") {
			t.Errorf("second violation should cover zip_code, got %q", res.Violations[1].Description)
		}
	})
}

func TestRecommendedStrategy(t *testing.T) {
	cases := []struct {
		name       string
		piiType    pii.Type
		frameworks []string
		want       string
	}{
		{"GDPREmail", pii.TypeEmail, []string{FrameworkGDPR}, "pseudonymize"},
		{"PCICard", pii.TypeCreditCard, []string{FrameworkPCIDSS}, "tokenize"},
		{"CardFallsThroughCCPA", pii.TypeCreditCard, []string{FrameworkCCPA, FrameworkPCIDSS}, "tokenize"},
		{"EqualStrengthKeepsFirst", pii.TypeEmail, []string{FrameworkGDPR, FrameworkHIPAA}, "pseudonymize"},
		{"EqualStrengthKeepsFirstReversed", pii.TypeEmail, []string{FrameworkHIPAA, FrameworkGDPR}, "redact"},
		{"StrongerFrameworkWins", pii.TypeEmail, []string{FrameworkCCPA, FrameworkHIPAA}, "redact"},
		{"Uncovered", pii.TypeAWSAccessKey, []string{FrameworkGDPR, FrameworkHIPAA}, ""},
		{"UnknownFramework", pii.TypeEmail, []string{"sox"}, ""},
		{"NoFrameworks", pii.TypeEmail, nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RecommendedStrategy(tc.piiType, tc.frameworks); got != tc.want {
				t.Errorf("RecommendedStrategy(%s, %v) = %q, want %q", tc.piiType, tc.frameworks, got, tc.want)
			}
		})
	}
}

func TestRequiresMandatoryAnonymization(t *testing.T) {
	cases := []struct {
		name       string
		piiType    pii.Type
		frameworks []string
		want       bool
	}{
		{"PCICard", pii.TypeCreditCard, []string{FrameworkPCIDSS}, true},
		{"GDPRCard", pii.TypeCreditCard, []string{FrameworkGDPR}, false},
		{"HIPAASSN", pii.TypeSSN, []string{FrameworkHIPAA}, true},
		{"HIPAAMedicalRecord", pii.TypeMedicalRecord, []string{FrameworkHIPAA}, true},
		{"AnyOfSeveral", pii.TypeSSN, []string{FrameworkGDPR, FrameworkCCPA}, true},
		{"Unknown", pii.TypeSSN, []string{"sox"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RequiresMandatoryAnonymization(tc.piiType, tc.frameworks); got != tc.want {
				t.Errorf("RequiresMandatoryAnonymization(%s, %v) = %v, want %v", tc.piiType, tc.frameworks, got, tc.want)
			}
		})
	}
}

func TestFrameworks(t *testing.T) {
	want := []string{FrameworkCCPA, FrameworkGDPR, FrameworkHIPAA, FrameworkPCIDSS}
	if got := Frameworks(); !reflect.DeepEqual(got, want) {
		t.Errorf("Frameworks() = %v, want %v", got, want)
	}
}
