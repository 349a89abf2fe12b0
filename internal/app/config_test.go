package app_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"persistentstore/internal/app"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := app.LoadConfig("", nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Storage.Backend != app.BackendFile || cfg.Storage.Bucket != "values" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if cfg.Serializer != "json" || cfg.Encryption.Cipher != "gcm" || cfg.Encryption.KDF != "scrypt" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Encryption.Enabled() {
		t.Fatal("encryption enabled by default")
	}
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persistctl.yaml")
	yaml := strings.Join([]string{
		"storage:",
		"  backend: bolt",
		"  dir: /from/file",
		"serializer: yaml",
		"log:",
		"  level: debug",
	}, "\n")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PERSISTCTL_STORAGE_DIR", "/from/env")
	t.Setenv("PERSISTCTL_LOG_FORMAT", "json")

	cfg, err := app.LoadConfig(path, map[string]any{"storage.backend": "badger"})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	tests := []struct {
		name, got, want string
	}{
		{"flag over file", cfg.Storage.Backend, "badger"},
		{"env over file", cfg.Storage.Dir, "/from/env"},
		{"file over default", cfg.Serializer, "yaml"},
		{"file only", cfg.Log.Level, "debug"},
		{"env only", cfg.Log.Format, "json"},
		{"default", cfg.Storage.Bucket, "values"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
	}{
		{"backend", map[string]any{"storage.backend": "redis"}},
		{"serializer", map[string]any{"serializer": "xml"}},
		{"cipher", map[string]any{"encryption.cipher": "rot13"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := app.LoadConfig("", tt.overrides); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := app.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil); err == nil {
		t.Fatal("expected error")
	}
}
