package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	GHL    GHLConfig         `yaml:"ghl"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	Vocab  VocabConfig       `yaml:"vocabulary"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.GHL.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
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

// GHLConfig holds the upstream GoHighLevel API client settings.
type GHLConfig struct {
	BaseURL        string `yaml:"base_url"`
	LegacyBaseURL  string `yaml:"legacy_base_url"`
	Version        string `yaml:"version"`
	AttemptTimeout int    `yaml:"attempt_timeout_seconds"`
	MaxRetries     uint64 `yaml:"max_retries"`
	CacheTTL       int    `yaml:"cache_ttl_seconds"`
}

// AttemptTimeoutDuration returns the per-attempt upstream timeout.
func (c *GHLConfig) AttemptTimeoutDuration() time.Duration {
	return time.Duration(c.AttemptTimeout) * time.Second
}

// CacheTTLDuration returns the per-scope record cache TTL.
func (c *GHLConfig) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// Validate validates the upstream client configuration.
func (c *GHLConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.LegacyBaseURL, validation.Required, is.URL),
		validation.Field(&c.Version, validation.Required),
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

// VocabConfig optionally points at a YAML synonym vocabulary override.
// An empty path keeps the built-in vocabulary and disables the watcher.
type VocabConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds authentication configuration for the inbound API.
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

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		GHL: GHLConfig{
			BaseURL:        "https://services.leadconnectorhq.com",
			LegacyBaseURL:  "https://rest.gohighlevel.com",
			Version:        "2021-07-28",
			AttemptTimeout: 10,
			MaxRetries:     2,
			CacheTTL:       30,
		},
		SQLite: SQLiteConfig{
			Path: "./ghlbridge.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
