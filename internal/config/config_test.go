package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Storage.Backend != BackendSQLite {
		t.Errorf("expected backend sqlite, got %s", cfg.Storage.Backend)
	}
	if cfg.Undo.Window != "5s" {
		t.Errorf("expected undo window 5s, got %s", cfg.Undo.Window)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.Log.Level)
	}
	if cfg.UI.Theme != "mocha" {
		t.Errorf("expected theme mocha, got %s", cfg.UI.Theme)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoadFrom_FileNotExists(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.toml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.UndoWindow() != 5*time.Second {
		t.Errorf("expected default undo window, got %v", cfg.UndoWindow())
	}
}

func TestLoadFrom_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	content := `
[user]
id = "ada"

[storage]
backend = "redis"
redis_url = "redis://cache:6379/2"

[undo]
window = "10s"

[log]
level = "debug"
json = true
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.User.ID != "ada" {
		t.Errorf("expected user ada, got %s", cfg.User.ID)
	}
	if cfg.Storage.Backend != BackendRedis {
		t.Errorf("expected backend redis, got %s", cfg.Storage.Backend)
	}
	if cfg.Storage.RedisURL != "redis://cache:6379/2" {
		t.Errorf("expected redis url, got %s", cfg.Storage.RedisURL)
	}
	if cfg.UndoWindow() != 10*time.Second {
		t.Errorf("expected undo window 10s, got %v", cfg.UndoWindow())
	}
	if !cfg.Log.JSON {
		t.Error("expected json logging")
	}
}

func TestLoadFrom_InvalidTOML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[storage\nbackend ="), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := LoadFrom(configPath); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	t.Setenv("HOURLY_USER", "grace")
	t.Setenv("HOURLY_UNDO_WINDOW", "3s")
	t.Setenv("HOURLY_DB_PATH", "/tmp/override.db")
	t.Setenv("HOURLY_LOG_LEVEL", "error")
	t.Setenv("HOURLY_THEME", "latte")

	cfg, err := LoadFrom("/nonexistent/path/config.toml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.User.ID != "grace" {
		t.Errorf("expected user grace, got %s", cfg.User.ID)
	}
	if cfg.UndoWindow() != 3*time.Second {
		t.Errorf("expected undo window 3s, got %v", cfg.UndoWindow())
	}
	if cfg.Storage.DBPath != "/tmp/override.db" {
		t.Errorf("expected db path override, got %s", cfg.Storage.DBPath)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("expected log level error, got %s", cfg.Log.Level)
	}
	if cfg.UI.Theme != "latte" {
		t.Errorf("expected theme latte, got %s", cfg.UI.Theme)
	}
}

func TestLoadFrom_EmptyUserIsSignedOut(t *testing.T) {
	t.Setenv("HOURLY_USER", "")

	cfg, err := LoadFrom("/nonexistent/path/config.toml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SignedIn() {
		t.Error("expected signed out with an empty user")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid default", func(_ *Config) {}, false},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "firestore" }, true},
		{"sqlite without path", func(c *Config) { c.Storage.DBPath = "" }, true},
		{"redis without url", func(c *Config) {
			c.Storage.Backend = BackendRedis
			c.Storage.RedisURL = ""
		}, true},
		{"redis ignores db path", func(c *Config) {
			c.Storage.Backend = BackendRedis
			c.Storage.DBPath = ""
		}, false},
		{"bad undo window", func(c *Config) { c.Undo.Window = "soon" }, true},
		{"zero undo window", func(c *Config) { c.Undo.Window = "0s" }, true},
		{"bad poll interval", func(c *Config) { c.Storage.PollInterval = "-1s" }, true},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.User.ID = "linus"
	cfg.Undo.Window = "7s"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if loaded.User.ID != "linus" {
		t.Errorf("expected user linus, got %s", loaded.User.ID)
	}
	if loaded.Undo.Window != "7s" {
		t.Errorf("expected undo window 7s, got %s", loaded.Undo.Window)
	}
}
