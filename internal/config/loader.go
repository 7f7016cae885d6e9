package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Environment variables that override file values
const (
	EnvAppID    = "APP_ID"
	EnvSecret   = "APP_SECRET"
	EnvTenant   = "TENANT"
	EnvBotToken = "BOT_TOKEN"
	EnvProxyURL = "PROXY_URL"
	EnvLogLevel = "MAILFORWARD_LOG_LEVEL"
)

// Load reads the configuration file, applies .env and environment overrides
// and validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	// Expand path
	expandedPath, err := expandPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand config path: %w", err)
	}

	cfg := Default()

	// Read file
	data, err := os.ReadFile(expandedPath)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
		// defaults plus environment, as when run from a directory with a .env
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	cfg.applyEnv(os.Getenv)

	// Expand paths in config
	if err := cfg.expandPaths(); err != nil {
		return nil, fmt.Errorf("failed to expand paths: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads .env from the working directory without overriding
// variables that are already set
func loadDotEnv() error {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// applyEnv overrides file values with non-empty environment variables
func (c *Config) applyEnv(getenv func(string) string) {
	overrides := map[string]*string{
		EnvAppID:    &c.App.ClientID,
		EnvSecret:   &c.App.ClientSecret,
		EnvTenant:   &c.App.Tenant,
		EnvBotToken: &c.Telegram.BotToken,
		EnvProxyURL: &c.Telegram.ProxyURL,
		EnvLogLevel: &c.Log.Level,
	}
	for name, field := range overrides {
		if v := getenv(name); v != "" {
			*field = v
		}
	}
}

// expandPath expands ~ to home directory
func expandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, path[1:]), nil
}

// expandPaths expands ~ in all path fields
func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.Auth.TokenPath, &c.Auth.KeyringDir, &c.Database.Path} {
		expanded, err := expandPath(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	// App validation
	if c.App.ClientID == "" {
		errs = append(errs, fmt.Errorf("app.client_id is required (or set %s)", EnvAppID))
	}
	if c.App.Tenant == "" {
		errs = append(errs, errors.New("app.tenant is required"))
	}
	if !hasScope(c.App.Scope, "offline_access") {
		errs = append(errs, errors.New("app.scope must include offline_access"))
	}

	// Auth validation
	switch c.Auth.Store {
	case "sqlite":
	case "file":
		if c.Auth.TokenPath == "" {
			errs = append(errs, errors.New("auth.token_path is required for the file store"))
		}
	case "keyring":
		if c.Auth.KeyringService == "" {
			errs = append(errs, errors.New("auth.keyring_service is required for the keyring store"))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.store must be 'sqlite', 'file' or 'keyring', got '%s'", c.Auth.Store))
	}
	if c.Auth.ExpirySkewSeconds < 0 {
		errs = append(errs, errors.New("auth.expiry_skew_seconds must not be negative"))
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}

	// Graph validation
	if c.Graph.BaseURL == "" {
		errs = append(errs, errors.New("graph.base_url is required"))
	}
	if c.Graph.PageSize < 1 || c.Graph.PageSize > 1000 {
		errs = append(errs, errors.New("graph.page_size must be between 1 and 1000"))
	}

	// Telegram validation
	if c.Telegram.RatePerSecond <= 0 {
		errs = append(errs, errors.New("telegram.rate_per_second must be positive"))
	}

	// Forward validation
	if c.Forward.WatchIntervalSeconds < 1 {
		errs = append(errs, errors.New("forward.watch_interval_seconds must be at least 1"))
	}

	// Log validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got '%s'", c.Log.Level))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// RequireBot reports whether the Telegram settings needed to forward are present
func (c *Config) RequireBot() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required (or set %s)", EnvBotToken)
	}
	return nil
}

// EnsureDirectories creates necessary directories for database and tokens
func (c *Config) EnsureDirectories() error {
	dirs := []string{filepath.Dir(c.Database.Path)}
	if c.Auth.Store == "file" {
		dirs = append(dirs, filepath.Dir(c.Auth.TokenPath))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

func hasScope(scopes, want string) bool {
	for _, s := range strings.Fields(scopes) {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}
