// Package config resolves runtime configuration from an optional YAML file
// and environment variables. Environment values win over file values, file
// values win over built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPort          = 8000
	DefaultAccountFile   = "antigravity.json"
	DefaultUserAgent     = "antigravity/1.13.3 Darwin/arm64"
	DefaultQueryDebounce = 1 // minutes
	DefaultHistoryDB     = "quota.db"
)

// Config holds everything the service needs at startup.
type Config struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	AccountFile   string `yaml:"account_file"`
	ClientID      string `yaml:"client_id"`
	ClientSecret  string `yaml:"client_secret"`
	UserAgent     string `yaml:"user_agent"`
	QueryDebounce int    `yaml:"query_debounce"` // minutes
	HistoryDB     string `yaml:"history_db"`
	ZaiBaseURL    string `yaml:"zai_base_url"`
	ZaiAuthToken  string `yaml:"zai_auth_token"`
	LogLevel      string `yaml:"log_level"`
}

// Load builds the effective configuration. A missing config file is not an
// error; a present but unparsable one is.
func Load() (*Config, error) {
	cfg := &Config{
		Host:          "0.0.0.0",
		Port:          DefaultPort,
		AccountFile:   DefaultAccountFile,
		UserAgent:     DefaultUserAgent,
		QueryDebounce: DefaultQueryDebounce,
		HistoryDB:     DefaultHistoryDB,
		LogLevel:      "info",
	}

	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
		}
	}

	applyEnv(cfg)

	if cfg.QueryDebounce < 1 {
		cfg.QueryDebounce = DefaultQueryDebounce
	}
	return cfg, nil
}

// DebounceWindow converts the configured debounce minutes to a duration.
func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.QueryDebounce) * time.Minute
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func applyEnv(cfg *Config) {
	setString(&cfg.Host, "HOST")
	setInt(&cfg.Port, "PORT")
	setString(&cfg.AccountFile, "ACCOUNT_FILE")
	setString(&cfg.ClientID, "CLIENT_ID")
	setString(&cfg.ClientSecret, "CLIENT_SECRET")
	setString(&cfg.UserAgent, "USER_AGENT")
	setInt(&cfg.QueryDebounce, "QUERY_DEBOUNCE")
	setString(&cfg.HistoryDB, "HISTORY_DB")
	setString(&cfg.ZaiBaseURL, "ANTHROPIC_BASE_URL")
	setString(&cfg.ZaiAuthToken, "ANTHROPIC_AUTH_TOKEN")
	setString(&cfg.LogLevel, "QUOTAD_LOG_LEVEL")

	// Some login tools write the path wrapped in quotes.
	cfg.AccountFile = strings.Trim(cfg.AccountFile, `'"`)
}

func setString(dst *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, env string) {
	raw := strings.TrimSpace(os.Getenv(env))
	if raw == "" {
		return
	}
	if v, err := strconv.Atoi(raw); err == nil {
		*dst = v
	}
}

func resolveConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("QUOTAD_CONFIG_FILE")); explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", err
		}
		return explicit, nil
	}

	candidates := []string{
		"config/quotad.yaml",
		"./quotad.yaml",
		"/etc/quotad/quotad.yaml",
	}
	if homeDir, err := os.UserHomeDir(); err == nil && homeDir != "" {
		candidates = append(candidates, filepath.Join(homeDir, ".config", "quotad", "quotad.yaml"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}
