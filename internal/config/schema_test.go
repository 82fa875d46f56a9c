package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/blackwell-systems/libctl/internal/config"
)

func validConfig() *config.Config {
	return &config.Config{
		API: config.APIConfig{
			BaseURL:    "http://127.0.0.1:8000/api",
			AuthScheme: "Token",
			Timeout:    30 * time.Second,
		},
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate_RelativeURL(t *testing.T) {
	cfg := validConfig()
	cfg.API.BaseURL = "/api"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for relative base URL")
	}
}

func TestValidate_BadScheme(t *testing.T) {
	cfg := validConfig()
	cfg.API.BaseURL = "ftp://example.com/api"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for ftp base URL")
	}
}

func TestValidate_EmptyAuthScheme(t *testing.T) {
	cfg := validConfig()
	cfg.API.AuthScheme = "  "
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty auth scheme")
	}
}

func TestValidate_NegativeTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.API.Timeout = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative timeout")
	}
}

func TestEffectivePageSize(t *testing.T) {
	if got := (config.UIConfig{}).EffectivePageSize(); got != 20 {
		t.Errorf("default page size = %d, want 20", got)
	}
	if got := (config.UIConfig{PageSize: 5}).EffectivePageSize(); got != 5 {
		t.Errorf("page size = %d, want 5", got)
	}
}

func TestDefaultPath(t *testing.T) {
	p := config.DefaultPath()
	if p == "" {
		t.Fatal("DefaultPath returned empty string")
	}
	if !strings.HasSuffix(p, "config.yml") {
		t.Errorf("DefaultPath = %q, should end with config.yml", p)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LIBCTL_TOKEN", "")
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "http://127.0.0.1:8000/api" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.AuthScheme != "Token" {
		t.Errorf("AuthScheme = %q, want Token", cfg.API.AuthScheme)
	}
	if cfg.API.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.API.Timeout)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	data := "api:\n  base_url: https://library.example.com/api/\n  auth_scheme: Bearer\n  timeout: 5s\n"
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LIBCTL_TOKEN", "tok-123")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "https://library.example.com/api" {
		t.Errorf("BaseURL = %q, trailing slash should be trimmed", cfg.API.BaseURL)
	}
	if cfg.API.AuthScheme != "Bearer" {
		t.Errorf("AuthScheme = %q, want Bearer", cfg.API.AuthScheme)
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.API.Timeout)
	}
	if cfg.API.Token != "tok-123" {
		t.Errorf("Token = %q, want tok-123", cfg.API.Token)
	}
}

func TestExpandHome(t *testing.T) {
	home, _ := os.UserHomeDir()
	cases := []struct{ in, want string }{
		{"~/foo/bar", filepath.Join(home, "foo", "bar")},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
	}
	for _, c := range cases {
		if got := config.ExpandHome(c.in); got != c.want {
			t.Errorf("ExpandHome(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := config.Default().Validate(); err != nil {
		t.Fatalf("Default().Validate: %v", err)
	}
}

func TestSaveThenLoad(t *testing.T) {
	t.Setenv("LIBCTL_TOKEN", "")
	path := filepath.Join(t.TempDir(), "nested", "config.yml")

	cfg := config.Default()
	cfg.API.BaseURL = "https://library.example.com/api"
	cfg.API.AuthScheme = "Bearer"
	cfg.API.Timeout = 10 * time.Second
	cfg.API.Token = "must-not-be-written"
	if err := config.Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "must-not-be-written") {
		t.Error("token was written to the config file")
	}

	got, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.API.BaseURL != cfg.API.BaseURL || got.API.AuthScheme != "Bearer" || got.API.Timeout != 10*time.Second {
		t.Errorf("loaded API = %+v", got.API)
	}
}
