package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `{
		"watchRoots": ["/srv/data"],
		"excludePrefixes": ["/srv/data/tmp"],
		"logPath": "/srv/log/changes.log",
		"rotationIntervalSeconds": 600,
		"retentionDays": 3,
		"copyWindowSeconds": 5,
		"copyToleranceBytes": 4
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogPath != "/srv/log/changes.log" {
		t.Errorf("LogPath = %q", cfg.LogPath)
	}
	if cfg.RotationInterval() != 600*time.Second {
		t.Errorf("RotationInterval = %v", cfg.RotationInterval())
	}
	if cfg.Retention() != 3*24*time.Hour {
		t.Errorf("Retention = %v", cfg.Retention())
	}
	if cfg.CopyWindow() != 5*time.Second {
		t.Errorf("CopyWindow = %v", cfg.CopyWindow())
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{"watchRoots": ["/srv/data"]}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RotationIntervalSeconds != 3600 {
		t.Errorf("RotationIntervalSeconds = %d, want 3600", cfg.RotationIntervalSeconds)
	}
	if cfg.RetentionDays != 7 {
		t.Errorf("RetentionDays = %d, want 7", cfg.RetentionDays)
	}
	if cfg.CopyWindowSeconds != 10 {
		t.Errorf("CopyWindowSeconds = %d, want 10", cfg.CopyWindowSeconds)
	}
	if cfg.CopyToleranceBytes != 10 {
		t.Errorf("CopyToleranceBytes = %d, want 10", cfg.CopyToleranceBytes)
	}
	if cfg.LogPath == "" {
		t.Error("LogPath default missing")
	}
	if len(cfg.ExcludePrefixes) == 0 {
		t.Error("ExcludePrefixes default missing")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	var ce *ConfigError
	if !errors.As(err, &ce) || ce.Type != FileNotFound {
		t.Errorf("err = %v, want FILE_NOT_FOUND ConfigError", err)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := writeConfig(t, `{not json`)
	_, err := Load(path)
	var ce *ConfigError
	if !errors.As(err, &ce) || ce.Type != InvalidJSON {
		t.Errorf("err = %v, want INVALID_JSON ConfigError", err)
	}
}

func TestValidateRejectsNegatives(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Configuration)
	}{
		{"negative rotation", func(c *Configuration) { c.RotationIntervalSeconds = -1 }},
		{"negative retention", func(c *Configuration) { c.RetentionDays = -1 }},
		{"negative window", func(c *Configuration) { c.CopyWindowSeconds = -1 }},
		{"negative tolerance", func(c *Configuration) { c.CopyToleranceBytes = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			var ce *ConfigError
			if !errors.As(err, &ce) || ce.Type != ValidationError {
				t.Errorf("err = %v, want VALIDATION_ERROR", err)
			}
		})
	}
}

func TestLoadOrCreateMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadOrCreate(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if len(cfg.WatchRoots) == 0 || cfg.RotationIntervalSeconds != 3600 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Default()
	cfg.WatchRoots = []string{"/srv/data"}
	cfg.Verbose = true

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.WatchRoots[0] != "/srv/data" || !loaded.Verbose {
		t.Errorf("round trip lost fields: %+v", loaded)
	}
}
