// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// APIBaseURL is the backend base URL (e.g. https://planta.example.com/api).
	APIBaseURL string `mapstructure:"API_BASE_URL"`
	// SessionFile is the path of the persisted session record; empty picks
	// a default under the user config dir.
	SessionFile string `mapstructure:"SESSION_FILE"`
	// ClockSkew is the safety margin subtracted from the session expiration
	// when deciding whether it is still usable (e.g. "30s").
	ClockSkew string `mapstructure:"CLOCK_SKEW"`
	// RequireExpiry rejects sessions for which no expiration is derivable
	// instead of treating them as non-expiring.
	RequireExpiry bool `mapstructure:"REQUIRE_EXPIRY"`
	// HTTPTimeout is the per-request timeout of the backend HTTP client (e.g. "15s").
	HTTPTimeout string `mapstructure:"HTTP_TIMEOUT"`
	// OTLPEndpoint is the OTLP gRPC collector endpoint; empty disables telemetry export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is the zerolog level name (e.g. "debug", "info", "warn").
	LogLevel string `mapstructure:"LOG_LEVEL"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("API_BASE_URL", "")
	v.SetDefault("SESSION_FILE", "")
	v.SetDefault("CLOCK_SKEW", "30s")
	v.SetDefault("REQUIRE_EXPIRY", false)
	v.SetDefault("HTTP_TIMEOUT", "15s")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.APIBaseURL == "" {
		return nil, errors.New("config: API_BASE_URL must be set")
	}

	return &cfg, nil
}

// ClockSkewDuration parses ClockSkew as a time.Duration. Returns 30s if unset or invalid.
func (c *Config) ClockSkewDuration() time.Duration {
	d, err := time.ParseDuration(c.ClockSkew)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// HTTPTimeoutDuration parses HTTPTimeout as a time.Duration. Returns 15s if unset or invalid.
func (c *Config) HTTPTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.HTTPTimeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// SessionFilePath returns SessionFile, or the default path under the user
// config dir when unset.
func (c *Config) SessionFilePath() (string, error) {
	if c.SessionFile != "" {
		return c.SessionFile, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.New("config: SESSION_FILE must be set when no user config dir is available")
	}
	return filepath.Join(dir, "planta-mantenimiento", "session.json"), nil
}
