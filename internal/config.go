package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/sift/internal/cache"
	"github.com/starford/sift/internal/monitor"
	"github.com/starford/sift/internal/noteservice"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Vault   VaultConfig       `yaml:"vault"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Cache   CacheConfig       `yaml:"cache"`
	Monitor MonitorConfig     `yaml:"monitor"`
	Search  SearchConfig      `yaml:"search"`
	Write   WriteConfig       `yaml:"write"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	sections := []interface{ Validate() error }{
		&c.App, &c.Vault, &c.SQLite, &c.Auth, &c.Cache, &c.Monitor, &c.Search, &c.Write,
	}
	for _, s := range sections {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel    slog.Level `yaml:"log_level"`
	HTTP        HTTPConfig `yaml:"http"`
	CORSOrigins []string   `yaml:"cors_origins"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.CORSOrigins, validation.Each(validation.Required)),
	)
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the path to the Markdown vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// CacheConfig sizes the query cache. MaxSize 0 disables caching.
type CacheConfig struct {
	MaxSize         int           `yaml:"max_size"`
	DefaultTTL      time.Duration `yaml:"default_ttl"`
	QueryTTL        time.Duration `yaml:"query_ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxSize, validation.Min(0)),
		validation.Field(&c.DefaultTTL, validation.Min(time.Duration(0))),
		validation.Field(&c.QueryTTL, validation.Min(time.Duration(0))),
		validation.Field(&c.CleanupInterval, validation.Min(time.Duration(0))),
	)
}

// Store returns the cache.Config for this section.
func (c *CacheConfig) Store() cache.Config {
	return cache.Config{
		MaxSize:         c.MaxSize,
		DefaultTTL:      c.DefaultTTL,
		CleanupInterval: c.CleanupInterval,
	}
}

// MonitorConfig holds the performance monitor thresholds.
type MonitorConfig struct {
	HistorySize      int           `yaml:"history_size"`
	SlowThreshold    time.Duration `yaml:"slow_threshold"`
	AvgDurationAlert time.Duration `yaml:"avg_duration_alert"`
	MinHitRate       float64       `yaml:"min_hit_rate"`
	MaxHeapRatio     float64       `yaml:"max_heap_ratio"`
}

// Validate validates the monitor configuration.
func (c *MonitorConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.HistorySize, validation.Required, validation.Min(1)),
		validation.Field(&c.SlowThreshold, validation.Min(time.Duration(0))),
		validation.Field(&c.AvgDurationAlert, validation.Min(time.Duration(0))),
		validation.Field(&c.MinHitRate, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.MaxHeapRatio, validation.Min(0.0), validation.Max(1.0)),
	)
}

// Monitor returns the monitor.Config for this section.
func (c *MonitorConfig) Monitor() monitor.Config {
	return monitor.Config{
		HistorySize:      c.HistorySize,
		SlowThreshold:    c.SlowThreshold,
		AvgDurationAlert: c.AvgDurationAlert,
		MinHitRate:       c.MinHitRate,
		MaxHeapRatio:     c.MaxHeapRatio,
	}
}

// SearchConfig holds search, similarity and suggestion defaults.
type SearchConfig struct {
	DefaultLimit     int     `yaml:"default_limit"`
	MinSimilarity    float64 `yaml:"min_similarity"`
	MaxKeywords      int     `yaml:"max_keywords"`
	KeywordCacheSize int     `yaml:"keyword_cache_size"`
	SuggestionLimit  int     `yaml:"suggestion_limit"`
}

// Validate validates the search configuration.
func (c *SearchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DefaultLimit, validation.Required, validation.Min(1)),
		validation.Field(&c.MinSimilarity, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.MaxKeywords, validation.Required, validation.Min(1)),
		validation.Field(&c.KeywordCacheSize, validation.Min(0)),
		validation.Field(&c.SuggestionLimit, validation.Required, validation.Min(1)),
	)
}

// Defaults returns the note service request defaults.
func (c *SearchConfig) Defaults() noteservice.Defaults {
	return noteservice.Defaults{
		SearchLimit:     c.DefaultLimit,
		MinSimilarity:   c.MinSimilarity,
		SuggestionLimit: c.SuggestionLimit,
		RelatedLimit:    c.DefaultLimit,
	}
}

// WriteConfig throttles note mutations. RatePerSecond 0 disables throttling.
type WriteConfig struct {
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`
}

// Validate validates the write configuration.
func (c *WriteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RatePerSecond, validation.Min(0.0)),
		validation.Field(&c.Burst, validation.When(c.RatePerSecond > 0, validation.Required, validation.Min(1))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		SQLite: SQLiteConfig{
			Path: "./sift.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Cache: CacheConfig{
			MaxSize:         1000,
			DefaultTTL:      5 * time.Minute,
			QueryTTL:        30 * time.Second,
			CleanupInterval: time.Minute,
		},
		Monitor: MonitorConfig{
			HistorySize:      1000,
			SlowThreshold:    100 * time.Millisecond,
			AvgDurationAlert: 500 * time.Millisecond,
			MinHitRate:       0.7,
			MaxHeapRatio:     0.8,
		},
		Search: SearchConfig{
			DefaultLimit:     20,
			MinSimilarity:    0.1,
			MaxKeywords:      10,
			KeywordCacheSize: 512,
			SuggestionLimit:  5,
		},
		Write: WriteConfig{
			RatePerSecond: 5,
			Burst:         10,
		},
	}
}
