package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Manifest     string             `mapstructure:"manifest"`
	ControlPlane ControlPlaneConfig `mapstructure:"controlplane"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Log          LogConfig          `mapstructure:"log"`
}

// ControlPlaneConfig holds the remote API endpoint and signing credential.
type ControlPlaneConfig struct {
	// Endpoint is the API base URL.
	Endpoint string `mapstructure:"endpoint"`

	// Region and Service scope the signing key derivation.
	Region  string `mapstructure:"region"`
	Service string `mapstructure:"service"`

	// AccessKey and SecretKey sign requests. Both empty means remote
	// phases are skipped. Set via FNSHIP_CONTROLPLANE_ACCESS_KEY and
	// FNSHIP_CONTROLPLANE_SECRET_KEY rather than the config file.
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`

	Timeout time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig holds run-history database configuration.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("manifest", "fnship.yaml")
	v.SetDefault("controlplane.endpoint", "https://open.cloudfn.io")
	v.SetDefault("controlplane.region", "us-east-1")
	v.SetDefault("controlplane.service", "faas")
	v.SetDefault("controlplane.access_key", "")
	v.SetDefault("controlplane.secret_key", "")
	v.SetDefault("controlplane.timeout", "30s")
	v.SetDefault("database.dsn", "./.fnship/history.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("FNSHIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
