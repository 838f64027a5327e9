// Package daemon manages the engine daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// Config holds all daemon configuration. File values come from
// ~/.ignition/config.toml; environment variables overlay the file.
type Config struct {
	API       APIConfig       `toml:"api"`
	Engine    EngineConfig    `toml:"engine"`
	Payments  PaymentsConfig  `toml:"payments"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Logging   LoggingConfig   `toml:"logging"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host string `toml:"host" env:"IGNITION_API_HOST"`
	Port int    `toml:"port" env:"IGNITION_API_PORT"`
}

// EngineConfig controls engine storage and the reset scheduler.
type EngineConfig struct {
	DataDir      string `toml:"data_dir" env:"IGNITION_DATA_DIR"`
	ResetEnabled bool   `toml:"reset_enabled" env:"IGNITION_RESET_ENABLED"`
}

// PaymentsConfig controls the checkout-session provider. Payments stay
// disabled while the endpoint is empty.
type PaymentsConfig struct {
	Endpoint string `toml:"endpoint" env:"IGNITION_PAYMENTS_ENDPOINT"`
	APIKey   string `toml:"api_key" env:"IGNITION_PAYMENTS_API_KEY"`
}

// TelemetryConfig controls observability endpoints.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus" env:"IGNITION_PROMETHEUS"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `toml:"level" env:"IGNITION_LOG_LEVEL"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8799,
		},
		Engine: EngineConfig{
			DataDir:      ignitionHome(),
			ResetEnabled: true,
		},
		Telemetry: TelemetryConfig{
			Prometheus: false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads config from ~/.ignition/config.toml, falling back to
// defaults, then overlays environment variables.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(ignitionHome(), "config.toml")

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config env: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes the config to ~/.ignition/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(ignitionHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// ignitionHome returns the engine data directory.
func ignitionHome() string {
	if env := os.Getenv("IGNITION_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ignition")
}

// IgnitionHome is exported for use by other packages.
func IgnitionHome() string {
	return ignitionHome()
}
