package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/anonymize"
	"github.com/LLM-Dev-Ops/data-vault-sub001/internal/pii"
)

func TestGetDefaults(t *testing.T) {
	cfg := GetDefaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxBodyBytes != 10<<20 {
		t.Errorf("expected 10 MB body cap, got %d", cfg.Server.MaxBodyBytes)
	}
	if cfg.Engine.Policy.DefaultStrategy != anonymize.StrategyRedact {
		t.Errorf("expected redact default strategy, got %q", cfg.Engine.Policy.DefaultStrategy)
	}
	if cfg.Engine.Policy.MinConfidence != 0.5 {
		t.Errorf("expected 0.5 confidence floor, got %v", cfg.Engine.Policy.MinConfidence)
	}
	if !cfg.Limits.RateLimit.Enabled || cfg.Limits.RateLimit.RequestsPerSecond != 100 || cfg.Limits.RateLimit.Burst != 200 {
		t.Errorf("unexpected rate limit defaults: %+v", cfg.Limits.RateLimit)
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("expected 1h cache TTL, got %v", cfg.Cache.TTL)
	}
	if r := cfg.Audit.Retry; r.Attempts != 3 || r.InitialBackoff != 100*time.Millisecond || r.MaxBackoff != 30*time.Second || r.Multiplier != 2.0 {
		t.Errorf("unexpected audit retry defaults: %+v", r)
	}
	if cfg.ETL.BatchSize != 1000 {
		t.Errorf("expected batch size 1000, got %d", cfg.ETL.BatchSize)
	}
	if !cfg.Events.Broadcast.Anonymization || !cfg.Events.Broadcast.System || !cfg.Events.Broadcast.Connections {
		t.Errorf("expected all broadcast classes on by default: %+v", cfg.Events.Broadcast)
	}

	if err := validateConfig(cfg); err != nil {
		t.Errorf("defaults failed validation: %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"Defaults", func(c *Config) {}, false},
		{"PortTooLow", func(c *Config) { c.Server.Port = 0 }, true},
		{"PortTooHigh", func(c *Config) { c.Server.Port = 70000 }, true},
		{"UnknownDefaultStrategy", func(c *Config) { c.Engine.Policy.DefaultStrategy = "quantum_blur" }, true},
		{"UnknownTypeStrategy", func(c *Config) {
			c.Engine.Policy.TypeStrategies = map[pii.Type]anonymize.Strategy{pii.TypeEmail: "scramble"}
		}, true},
		{"ValidTypeStrategy", func(c *Config) {
			c.Engine.Policy.TypeStrategies = map[pii.Type]anonymize.Strategy{pii.TypeEmail: anonymize.StrategyMask}
		}, false},
		{"ConfidenceAboveOne", func(c *Config) { c.Engine.Policy.MinConfidence = 1.5 }, true},
		{"ConfidenceNegative", func(c *Config) { c.Engine.Policy.MinConfidence = -0.1 }, true},
		{"ZeroRateWhileEnabled", func(c *Config) { c.Limits.RateLimit.RequestsPerSecond = 0 }, true},
		{"ZeroRateWhileDisabled", func(c *Config) {
			c.Limits.RateLimit.Enabled = false
			c.Limits.RateLimit.RequestsPerSecond = 0
		}, false},
		{"ZeroBatchSize", func(c *Config) { c.ETL.BatchSize = 0 }, true},
		{"BadLogLevel", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"BadLogFormat", func(c *Config) { c.Logging.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaults()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("MissingFileFallsBackToDefaults", func(t *testing.T) {
		viper.Reset()
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg == nil {
			t.Fatal("Load() returned nil config")
		}
	})

	t.Run("FileOverridesDefaults", func(t *testing.T) {
		viper.Reset()
		path := writeConfigFile(t, `
server:
  port: 9999
  read_timeout: 45s
engine:
  policy:
    default_strategy: mask
    pii_strategies:
      credit_card: tokenize
    compliance_frameworks: [gdpr, pci_dss]
cache:
  enabled: true
`)
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Server.Port != 9999 {
			t.Errorf("expected port 9999, got %d", cfg.Server.Port)
		}
		if cfg.Server.ReadTimeout != 45*time.Second {
			t.Errorf("expected 45s read timeout, got %v", cfg.Server.ReadTimeout)
		}
		if cfg.Engine.Policy.DefaultStrategy != anonymize.StrategyMask {
			t.Errorf("expected mask strategy, got %q", cfg.Engine.Policy.DefaultStrategy)
		}
		if got := cfg.Engine.Policy.TypeStrategies[pii.TypeCreditCard]; got != anonymize.StrategyTokenize {
			t.Errorf("expected tokenize for credit_card, got %q", got)
		}
		if len(cfg.Engine.Policy.Frameworks) != 2 {
			t.Errorf("expected 2 frameworks, got %v", cfg.Engine.Policy.Frameworks)
		}
		if !cfg.Cache.Enabled {
			t.Error("expected cache enabled")
		}
		// Untouched sections keep their defaults.
		if cfg.Cache.TTL != time.Hour {
			t.Errorf("expected default cache TTL, got %v", cfg.Cache.TTL)
		}
		if cfg.Server.WriteTimeout != 30*time.Second {
			t.Errorf("expected default write timeout, got %v", cfg.Server.WriteTimeout)
		}
	})

	t.Run("EnvironmentBeatsFile", func(t *testing.T) {
		viper.Reset()
		t.Setenv("VAULT_SERVER_PORT", "7777")
		path := writeConfigFile(t, "server:\n  port: 9999\n")
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Server.Port != 7777 {
			t.Errorf("expected env port 7777, got %d", cfg.Server.Port)
		}
	})

	t.Run("InvalidFileValuesRejected", func(t *testing.T) {
		viper.Reset()
		path := writeConfigFile(t, "engine:\n  policy:\n    default_strategy: scramble\n")
		if _, err := Load(path); err == nil {
			t.Fatal("expected error for unknown strategy in config file")
		}
	})
}
