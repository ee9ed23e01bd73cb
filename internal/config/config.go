package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Set defaults
	config := GetDefaults()

	// Configure viper
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("/etc/data-vault/")
	viper.AddConfigPath("$HOME/.data-vault/")

	// Environment variable overrides
	viper.SetEnvPrefix("VAULT")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Use specific config file if provided
	if configPath != "" {
		viper.SetConfigFile(configPath)
	}

	// Read configuration
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found is not an error - we'll use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into config struct
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validateConfig validates the loaded configuration. Request-time
// strategy handling is fail-safe, but a typo in the operator's config
// file should fail loudly at startup instead.
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if s := config.Engine.Policy.DefaultStrategy; !s.Valid() {
		return fmt.Errorf("invalid default strategy: %q", s)
	}
	for piiType, s := range config.Engine.Policy.TypeStrategies {
		if !s.Valid() {
			return fmt.Errorf("invalid strategy %q for pii type %q", s, piiType)
		}
	}
	if c := config.Engine.Policy.MinConfidence; c < 0 || c > 1 {
		return fmt.Errorf("min_detection_confidence out of range: %v", c)
	}

	if rl := config.Limits.RateLimit; rl.Enabled && rl.RequestsPerSecond <= 0 {
		return fmt.Errorf("invalid rate limit: %v requests/second", rl.RequestsPerSecond)
	}

	if config.ETL.BatchSize <= 0 {
		return fmt.Errorf("invalid etl batch size: %d", config.ETL.BatchSize)
	}

	if config.Logging.Level != "debug" && config.Logging.Level != "info" && config.Logging.Level != "warn" && config.Logging.Level != "error" {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.Logging.Level)
	}

	if config.Logging.Format != "json" && config.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", config.Logging.Format)
	}

	return nil
}

// Watch starts watching the configuration file for changes
func Watch(config *Config, callback func(*Config)) error {
	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		newConfig := GetDefaults()
		if err := viper.Unmarshal(newConfig); err != nil {
			// Log error but don't crash
			return
		}

		if err := validateConfig(newConfig); err != nil {
			// Log error but don't crash
			return
		}

		callback(newConfig)
	})

	return nil
}
