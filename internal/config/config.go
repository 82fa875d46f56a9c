package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blackwell-systems/libctl/internal/util"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	defaultBaseURL  = "http://127.0.0.1:8000/api"
	defaultTokenEnv = "LIBCTL_TOKEN"
)

// DefaultPath returns the default config file path.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "libctl", "config.yml")
}

// Load reads the config from disk (or env). A missing file is not an error;
// defaults cover everything needed to talk to a local backend.
// path overrides LIBCTL_CONFIG and the default location when non-empty.
func Load(path string) (*Config, error) {
	// .env in the working directory is optional.
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("api.base_url", defaultBaseURL)
	v.SetDefault("api.auth_scheme", "Token")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.token_env", defaultTokenEnv)
	v.SetDefault("session.path", defaultSessionPath())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", defaultLogPath())
	v.SetDefault("ui.page_size", 20)

	v.SetEnvPrefix("LIBCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := path
	if configPath == "" {
		configPath = os.Getenv("LIBCTL_CONFIG")
	}
	if configPath == "" {
		configPath = DefaultPath()
	}
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, isCfgNotFound := err.(viper.ConfigFileNotFoundError); !isCfgNotFound {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// A token in the environment takes precedence over the saved session.
	tokenEnv := cfg.API.TokenEnv
	if tokenEnv == "" {
		tokenEnv = defaultTokenEnv
	}
	cfg.API.Token = os.Getenv(tokenEnv)

	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	cfg.Session.Path = ExpandHome(cfg.Session.Path)
	cfg.Log.File = ExpandHome(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path, or to the default path when empty.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = DefaultPath()
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return util.WriteFileAtomic(path, buf.Bytes(), 0644)
}

// ExpandHome expands a leading ~/ in a path.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

func defaultSessionPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "libctl", "session.yml")
}

func defaultLogPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "libctl", "libctl.log")
}
