package config

import (
	"time"

	"github.com/vijay-prabhu/mailforward/internal/auth"
)

// Config represents the application configuration
type Config struct {
	App      AppConfig      `toml:"app"`
	Auth     AuthConfig     `toml:"auth"`
	Database DatabaseConfig `toml:"database"`
	Graph    GraphConfig    `toml:"graph"`
	Telegram TelegramConfig `toml:"telegram"`
	Forward  ForwardConfig  `toml:"forward"`
	Log      LogConfig      `toml:"log"`
}

// AppConfig is the application registered with the Microsoft identity platform
type AppConfig struct {
	ClientID     string `toml:"client_id"`     // overridden by APP_ID
	ClientSecret string `toml:"client_secret"` // overridden by APP_SECRET
	Tenant       string `toml:"tenant"`        // overridden by TENANT
	Scope        string `toml:"scope"`
	Authority    string `toml:"authority"`
}

// Registration converts the app settings for the auth package
func (a AppConfig) Registration() auth.AppRegistration {
	return auth.AppRegistration{
		ClientID:     a.ClientID,
		ClientSecret: a.ClientSecret,
		Tenant:       a.Tenant,
		Scope:        a.Scope,
		Authority:    a.Authority,
	}
}

// AuthConfig controls where tokens are kept
type AuthConfig struct {
	Store             string `toml:"store"` // sqlite, file or keyring
	TokenPath         string `toml:"token_path"`
	KeyringService    string `toml:"keyring_service"`
	KeyringDir        string `toml:"keyring_dir"`
	ExpirySkewSeconds int    `toml:"expiry_skew_seconds"`
}

// ExpirySkew returns the skew as a duration
func (a AuthConfig) ExpirySkew() time.Duration {
	return time.Duration(a.ExpirySkewSeconds) * time.Second
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// GraphConfig contains Microsoft Graph settings
type GraphConfig struct {
	BaseURL  string `toml:"base_url"`
	PageSize int    `toml:"page_size"`
}

// TelegramConfig contains bot settings
type TelegramConfig struct {
	BotToken      string  `toml:"bot_token"` // overridden by BOT_TOKEN
	APIEndpoint   string  `toml:"api_endpoint"`
	ProxyURL      string  `toml:"proxy_url"` // overridden by PROXY_URL
	RatePerSecond float64 `toml:"rate_per_second"`
}

// ForwardConfig preselects what to forward; empty values are asked for by setup
type ForwardConfig struct {
	FolderID             string `toml:"folder_id"`
	ChatID               string `toml:"chat_id"`
	FilterEmail          string `toml:"filter_email"`
	WatchIntervalSeconds int    `toml:"watch_interval_seconds"`
}

// WatchInterval returns the polling interval used by run --watch
func (f ForwardConfig) WatchInterval() time.Duration {
	return time.Duration(f.WatchIntervalSeconds) * time.Second
}

// LogConfig contains diagnostic logging settings
type LogConfig struct {
	Level string `toml:"level"` // overridden by MAILFORWARD_LOG_LEVEL
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		App: AppConfig{
			Tenant:    auth.DefaultTenant,
			Scope:     auth.DefaultScope,
			Authority: auth.DefaultAuthority,
		},
		Auth: AuthConfig{
			Store:          "sqlite",
			TokenPath:      "~/.config/mailforward/token.json",
			KeyringService: "mailforward",
			KeyringDir:     "~/.config/mailforward/credentials",
		},
		Database: DatabaseConfig{
			Path: "~/.local/share/mailforward/mailforward.db",
		},
		Graph: GraphConfig{
			BaseURL:  "https://graph.microsoft.com/v1.0",
			PageSize: 10,
		},
		Telegram: TelegramConfig{
			RatePerSecond: 1,
		},
		Forward: ForwardConfig{
			WatchIntervalSeconds: 60,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}
