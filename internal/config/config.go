// Package config loads the daemon configuration from an optional TOML file
// with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/medleyd/medley/internal/constants"
)

// ProviderConfig is one configured instance of a provider domain.
type ProviderConfig struct {
	InstanceID string            `toml:"instance_id"`
	Domain     string            `toml:"domain"`
	Name       string            `toml:"name"`
	Enabled    bool              `toml:"enabled"`
	Values     map[string]string `toml:"values"`
}

// Config holds all application configuration
type Config struct {
	Port        string           `toml:"port"`
	DBPath      string           `toml:"db_path"`
	ManifestDir string           `toml:"manifest_dir"`
	LogLevel    string           `toml:"log_level"`
	LogFormat   string           `toml:"log_format"`
	Providers   []ProviderConfig `toml:"providers"`
}

// Load reads configuration from the given TOML file (if it exists) and
// applies environment variable overrides with defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Port:      constants.DefaultPort,
		DBPath:    constants.DefaultDBPath,
		LogLevel:  constants.DefaultLogLevel,
		LogFormat: constants.DefaultLogFormat,
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	cfg.Port = getEnv("MEDLEY_PORT", cfg.Port)
	cfg.DBPath = getEnv("MEDLEY_DB_PATH", cfg.DBPath)
	cfg.ManifestDir = getEnv("MEDLEY_MANIFEST_DIR", cfg.ManifestDir)
	cfg.LogLevel = getEnv("MEDLEY_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("MEDLEY_LOG_FORMAT", cfg.LogFormat)

	return cfg, nil
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errs []string

	if c.Port == "" {
		errs = append(errs, "port cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errs = append(errs, fmt.Sprintf("port must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errs = append(errs, fmt.Sprintf("port must be between 1 and 65535, got: %d", port))
		}
	}

	if c.DBPath == "" {
		errs = append(errs, "db_path cannot be empty")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errs = append(errs, fmt.Sprintf("log_level must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errs = append(errs, fmt.Sprintf("log_format must be one of: text, json, got: %s", c.LogFormat))
	}

	seen := map[string]bool{}
	for i, pc := range c.Providers {
		if pc.Domain == "" {
			errs = append(errs, fmt.Sprintf("providers[%d]: domain cannot be empty", i))
		}
		if pc.InstanceID != "" && seen[pc.InstanceID] {
			errs = append(errs, fmt.Sprintf("providers[%d]: duplicate instance_id %s", i, pc.InstanceID))
		}
		seen[pc.InstanceID] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
