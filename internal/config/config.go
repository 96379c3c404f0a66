package config

import (
	"os"
	"strconv"

	"statlab/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig
	History  HistoryConfig
	Flagging FlaggingConfig
	Classify ClassifyConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// HistoryConfig holds the analysis-history store settings. The DSN is
// optional: with no database configured the engine runs without durable
// history.
type HistoryConfig struct {
	DSN string
}

// FlaggingConfig holds the outlier-bound and range-validation tunables.
// The multipliers and the min-normal floor are documented defaults, not
// validated constants, so they stay configurable per deployment.
type FlaggingConfig struct {
	IQRMultiplier       float64
	HeavyTailMultiplier float64
	StdDevMultiplier    float64
	MinNormalCells      int
}

// ClassifyConfig holds the type-inference and distribution thresholds.
type ClassifyConfig struct {
	DiscreteUniqueLimit int
	MinDistributionN    int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			GinMode: getEnvOrDefault("GIN_MODE", "release"),
		},
		History: HistoryConfig{
			DSN: getEnvOrDefault("HISTORY_DATABASE_URL", ""),
		},
		Flagging: FlaggingConfig{
			IQRMultiplier:       getEnvFloatOrDefault("IQR_MULTIPLIER", 1.5),
			HeavyTailMultiplier: getEnvFloatOrDefault("HEAVY_TAIL_MULTIPLIER", 2.5),
			StdDevMultiplier:    getEnvFloatOrDefault("STDDEV_MULTIPLIER", 3.0),
			MinNormalCells:      getEnvIntOrDefault("MIN_NORMAL_CELLS", 20),
		},
		Classify: ClassifyConfig{
			DiscreteUniqueLimit: getEnvIntOrDefault("DISCRETE_UNIQUE_LIMIT", 20),
			MinDistributionN:    getEnvIntOrDefault("MIN_DISTRIBUTION_N", 30),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Flagging.IQRMultiplier <= 0 || cfg.Flagging.HeavyTailMultiplier <= 0 || cfg.Flagging.StdDevMultiplier <= 0 {
		return errors.ConfigInvalid("outlier multipliers must be positive")
	}
	if cfg.Flagging.MinNormalCells < 1 {
		return errors.ConfigInvalid("MIN_NORMAL_CELLS must be at least 1")
	}
	if cfg.Classify.DiscreteUniqueLimit < 2 {
		return errors.ConfigInvalid("DISCRETE_UNIQUE_LIMIT must be at least 2")
	}
	if cfg.Classify.MinDistributionN < 3 {
		return errors.ConfigInvalid("MIN_DISTRIBUTION_N must be at least 3")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
