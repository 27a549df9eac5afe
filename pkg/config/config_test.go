package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type testConfig struct {
	Name   string `yaml:"name"`
	Server server `yaml:"server"`
}

func (c *testConfig) Validate() error {
	if c.Server.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("SIFT_CFG_SET", "value")
	t.Setenv("SIFT_CFG_EMPTY", "")

	tests := []struct {
		in, want string
	}{
		{"$SIFT_CFG_SET", "value"},
		{"${SIFT_CFG_SET}", "value"},
		{"${SIFT_CFG_SET:-other}", "value"},
		{"${SIFT_CFG_EMPTY:-other}", "other"},
		{"${SIFT_CFG_UNSET_XYZ:-8080}", "8080"},
		{"${SIFT_CFG_UNSET_XYZ}", ""},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := ExpandEnv(tt.in); got != tt.want {
			t.Errorf("ExpandEnv(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoad_KeepsDefaults(t *testing.T) {
	path := writeFile(t, "server:\n  port: ${SIFT_CFG_PORT:-9000}\n")

	cfg := &testConfig{Name: "default", Server: server{Host: "localhost", Port: 1}}
	if err := Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Name != "default" || cfg.Server.Host != "localhost" {
		t.Errorf("defaults overwritten: %+v", cfg)
	}
}

func TestLoad_UnknownField(t *testing.T) {
	path := writeFile(t, "server:\n  prot: 80\n")
	err := Load(path, &testConfig{Server: server{Port: 1}})
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
	if !strings.Contains(err.Error(), "prot") {
		t.Errorf("error should name the field: %v", err)
	}
}

func TestLoad_Validation(t *testing.T) {
	path := writeFile(t, "server:\n  port: 0\n")
	err := Load(path, &testConfig{})
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeFile(t, "")
	cfg := &testConfig{Server: server{Port: 8080}}
	if err := Load(path, cfg); err != nil {
		t.Fatalf("empty file should keep defaults: %v", err)
	}
}

func TestLoadOptional(t *testing.T) {
	cfg := &testConfig{Server: server{Port: 8080}}
	loaded, err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), cfg)
	if err != nil || loaded {
		t.Fatalf("missing file: loaded=%v err=%v", loaded, err)
	}

	_, err = LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &testConfig{})
	if err == nil {
		t.Fatal("invalid defaults should still fail validation")
	}

	path := writeFile(t, "name: vault\n")
	loaded, err = LoadOptional(path, cfg)
	if err != nil || !loaded || cfg.Name != "vault" {
		t.Fatalf("existing file: loaded=%v err=%v cfg=%+v", loaded, err, cfg)
	}
}
