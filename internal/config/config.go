// Package config loads herald's user configuration.
//
// Values come from three layers, later beating earlier: built-in
// defaults, ~/.herald/config.yaml, and HERALD_* environment variables.
// The config file is a convenience, never a source of truth: a missing or
// unparseable file degrades to defaults instead of failing startup.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment override names.
const (
	EnvEndpoint     = "HERALD_ENDPOINT"
	EnvTimeout      = "HERALD_TIMEOUT_SECONDS"
	EnvStrictVerify = "HERALD_STRICT_VERIFY"
	EnvDataDir      = "HERALD_DATA_DIR"
	EnvDebug        = "HERALD_DEBUG"
)

// Config holds everything herald needs at startup.
type Config struct {
	// Endpoint is the base URL of the pattern service API.
	Endpoint string `yaml:"endpoint"`
	// TimeoutSeconds bounds every remote call.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// StrictVerify downgrades trust on an explicit verification denial.
	StrictVerify bool `yaml:"strict_verify"`
	// DataDir holds the offline buffer and the journal.
	DataDir string `yaml:"data_dir"`
	// QueryLimit caps each cascade level's result count.
	QueryLimit int `yaml:"query_limit"`
	// Debug enables debug-level logging.
	Debug bool `yaml:"debug"`
}

// Default returns the built-in configuration.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Endpoint:       "https://patterns.spilno.me/api",
		TimeoutSeconds: 10,
		DataDir:        filepath.Join(home, ".herald"),
		QueryLimit:     20,
	}
}

// DefaultPath returns the standard config file location.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".herald", "config.yaml")
}

// Load builds the effective configuration. An empty path means
// DefaultPath. File read or parse failures fall back to defaults;
// environment overrides apply last either way.
func Load(path string) Config {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}

	if data, err := os.ReadFile(path); err == nil {
		// Unmarshal into a copy so a half-parsed file can't leave the
		// config in a mixed state.
		fromFile := cfg
		if err := yaml.Unmarshal(data, &fromFile); err == nil {
			cfg = fromFile
		}
	}

	if v := os.Getenv(EnvEndpoint); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TimeoutSeconds = n
		}
	}
	if v := os.Getenv(EnvStrictVerify); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.StrictVerify = b
		}
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(EnvDebug); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = b
		}
	}
	return cfg
}

// Timeout returns the remote-call budget as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
