package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/sift/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestCacheConfig_NegativeRejected(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Cache.DefaultTTL = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative ttl should fail validation")
	}

	cfg = NewDefaultConfig()
	cfg.Cache.MaxSize = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("zero max_size disables caching and should pass: %v", err)
	}
}

func TestMonitorConfig_RatiosBounded(t *testing.T) {
	cfg := MonitorConfig{HistorySize: 10, MinHitRate: 1.5}
	if err := cfg.Validate(); err == nil {
		t.Fatal("hit rate above 1 should fail")
	}
	cfg = MonitorConfig{HistorySize: 0}
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero history should fail")
	}
}

func TestWriteConfig_BurstRequiredWhenThrottled(t *testing.T) {
	if err := (&WriteConfig{RatePerSecond: 2}).Validate(); err == nil {
		t.Error("throttled writes without burst should fail")
	}
	if err := (&WriteConfig{}).Validate(); err != nil {
		t.Errorf("unthrottled writes should pass: %v", err)
	}
}

func TestSearchConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()
	d := cfg.Search.Defaults()
	if d.SearchLimit != 20 || d.SuggestionLimit != 5 || d.MinSimilarity != 0.1 {
		t.Errorf("defaults = %+v", d)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	t.Setenv("SIFT_TEST_TOKEN", "from-env")
	data := `
app:
  log_level: debug
  http:
    port: 9090
  cors_origins: ["http://localhost:5173"]
vault:
  path: ./notes
sqlite:
  path: ./test.db
auth:
  mode: token
  token: ${SIFT_TEST_TOKEN}
cache:
  max_size: 50
  default_ttl: 2m
  query_ttl: 10s
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.LogLevel != slog.LevelDebug || cfg.App.HTTP.Port != 9090 {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Auth.Token != "from-env" {
		t.Errorf("token = %q, want env expansion", cfg.Auth.Token)
	}
	if cfg.Cache.MaxSize != 50 || cfg.Cache.DefaultTTL != 2*time.Minute || cfg.Cache.QueryTTL != 10*time.Second {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Cache.CleanupInterval != time.Minute {
		t.Errorf("unset cleanup_interval should keep default, got %v", cfg.Cache.CleanupInterval)
	}
	if cfg.Search.DefaultLimit != 20 {
		t.Errorf("unset search section should keep defaults, got %+v", cfg.Search)
	}
}
