// Package config handles configuration loading and validation for the
// monitoring daemon.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"watchdog/internal/exclude"
	"watchdog/internal/pathset"
)

// ConfigErrorType represents the type of configuration error.
type ConfigErrorType string

const (
	FileNotFound    ConfigErrorType = "FILE_NOT_FOUND"
	InvalidJSON     ConfigErrorType = "INVALID_JSON"
	ValidationError ConfigErrorType = "VALIDATION_ERROR"
)

// ConfigError represents an error that occurred during configuration loading.
type ConfigError struct {
	Type    ConfigErrorType
	Path    string
	Message string
}

func (e *ConfigError) Error() string {
	switch e.Type {
	case FileNotFound:
		return fmt.Sprintf("configuration file not found: %s", e.Path)
	case InvalidJSON:
		return fmt.Sprintf("invalid JSON in configuration file: %s", e.Message)
	case ValidationError:
		return fmt.Sprintf("configuration validation error: %s", e.Message)
	default:
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
}

// Configuration holds all settings for the daemon. Zero values are replaced
// by documented defaults in ApplyDefaults.
type Configuration struct {
	// WatchRoots are candidate root directories; only those that exist are
	// actually watched.
	WatchRoots []string `json:"watchRoots"`
	// ExcludePrefixes are path prefixes the daemon never observes. The live
	// log path is always excluded in addition to these.
	ExcludePrefixes []string `json:"excludePrefixes"`
	// LogPath is the live log file.
	LogPath string `json:"logPath"`
	// RotationIntervalSeconds is how often the live log is archived.
	RotationIntervalSeconds int `json:"rotationIntervalSeconds"`
	// RetentionDays is how long archive segments are kept.
	RetentionDays int `json:"retentionDays"`
	// CopyWindowSeconds bounds the possible-copy heuristic in time.
	CopyWindowSeconds int `json:"copyWindowSeconds"`
	// CopyToleranceBytes bounds the possible-copy heuristic in size.
	CopyToleranceBytes int `json:"copyToleranceBytes"`
	// Verbose echoes each log line to the console when it is a terminal.
	Verbose bool `json:"verbose"`
}

// Default returns the configuration the daemon runs with when no file is
// given: system roots, one-hour rotation, seven-day retention.
func Default() *Configuration {
	cfg := &Configuration{
		WatchRoots:      pathset.DefaultCandidates(),
		ExcludePrefixes: exclude.DefaultPrefixes(),
		LogPath:         "/var/log/file_changes.log",
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults replaces zero-valued fields with their defaults.
func (c *Configuration) ApplyDefaults() {
	if len(c.WatchRoots) == 0 {
		c.WatchRoots = pathset.DefaultCandidates()
	}
	if c.ExcludePrefixes == nil {
		c.ExcludePrefixes = exclude.DefaultPrefixes()
	}
	if c.LogPath == "" {
		c.LogPath = "/var/log/file_changes.log"
	}
	if c.RotationIntervalSeconds == 0 {
		c.RotationIntervalSeconds = 3600
	}
	if c.RetentionDays == 0 {
		c.RetentionDays = 7
	}
	if c.CopyWindowSeconds == 0 {
		c.CopyWindowSeconds = 10
	}
	if c.CopyToleranceBytes == 0 {
		c.CopyToleranceBytes = 10
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Configuration) Validate() error {
	if len(c.WatchRoots) == 0 {
		return &ConfigError{
			Type:    ValidationError,
			Message: "watchRoots must contain at least one candidate directory",
		}
	}
	if c.LogPath == "" {
		return &ConfigError{
			Type:    ValidationError,
			Message: "logPath cannot be empty",
		}
	}
	if c.RotationIntervalSeconds < 0 {
		return &ConfigError{
			Type:    ValidationError,
			Message: "rotationIntervalSeconds cannot be negative",
		}
	}
	if c.RetentionDays < 0 {
		return &ConfigError{
			Type:    ValidationError,
			Message: "retentionDays cannot be negative",
		}
	}
	if c.CopyWindowSeconds < 0 {
		return &ConfigError{
			Type:    ValidationError,
			Message: "copyWindowSeconds cannot be negative",
		}
	}
	if c.CopyToleranceBytes < 0 {
		return &ConfigError{
			Type:    ValidationError,
			Message: "copyToleranceBytes cannot be negative",
		}
	}
	return nil
}

// RotationInterval returns the rotation cadence as a duration.
func (c *Configuration) RotationInterval() time.Duration {
	return time.Duration(c.RotationIntervalSeconds) * time.Second
}

// Retention returns the archive retention window as a duration.
func (c *Configuration) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// CopyWindow returns the possible-copy time window as a duration.
func (c *Configuration) CopyWindow() time.Duration {
	return time.Duration(c.CopyWindowSeconds) * time.Second
}

// Load reads, parses, validates, and defaults a configuration file.
func Load(filePath string) (*Configuration, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ConfigError{
				Type: FileNotFound,
				Path: filePath,
			}
		}
		return nil, &ConfigError{
			Type:    FileNotFound,
			Path:    filePath,
			Message: err.Error(),
		}
	}

	var cfg Configuration
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigError{
			Type:    InvalidJSON,
			Message: err.Error(),
		}
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrCreate loads the config if the file exists, or returns the defaults
// if it doesn't, so a first run works without any configuration.
func LoadOrCreate(filePath string) (*Configuration, error) {
	cfg, err := Load(filePath)
	if err != nil {
		var ce *ConfigError
		if errors.As(err, &ce) && ce.Type == FileNotFound {
			return Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// Save serializes and writes a configuration to the given path.
func Save(cfg *Configuration, filePath string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return &ConfigError{
			Type:    InvalidJSON,
			Message: err.Error(),
		}
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return &ConfigError{
			Type:    ValidationError,
			Message: fmt.Sprintf("failed to write configuration file: %s", err.Error()),
		}
	}

	return nil
}
