package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the top-level libctl configuration.
type Config struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Session SessionConfig `mapstructure:"session" yaml:"session"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	UI      UIConfig      `mapstructure:"ui" yaml:"ui"`
}

// APIConfig holds library backend connection settings.
type APIConfig struct {
	BaseURL    string        `mapstructure:"base_url" yaml:"base_url"`
	AuthScheme string        `mapstructure:"auth_scheme" yaml:"auth_scheme"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	TokenEnv   string        `mapstructure:"token_env" yaml:"token_env"`
	Token      string        `mapstructure:"-" yaml:"-"` // resolved at runtime, never written
}

// SessionConfig controls where the login session is kept.
type SessionConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LogConfig controls the log file.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	PageSize int `mapstructure:"page_size" yaml:"page_size"`
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url %q is not an absolute URL", c.API.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.base_url must use http or https, got %q", u.Scheme)
	}
	if strings.TrimSpace(c.API.AuthScheme) == "" {
		return fmt.Errorf("api.auth_scheme must not be empty")
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	return nil
}

// EffectivePageSize returns the configured page size or a sane default.
func (u UIConfig) EffectivePageSize() int {
	if u.PageSize > 0 {
		return u.PageSize
	}
	return 20
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:    defaultBaseURL,
			AuthScheme: "Token",
			Timeout:    30 * time.Second,
			TokenEnv:   defaultTokenEnv,
		},
		Session: SessionConfig{Path: defaultSessionPath()},
		Log:     LogConfig{Level: "info", File: defaultLogPath()},
		UI:      UIConfig{PageSize: 20},
	}
}
