package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.App.Tenant != "common" {
		t.Errorf("expected Tenant=common, got %s", cfg.App.Tenant)
	}

	if cfg.App.Scope != "offline_access user.read mail.read" {
		t.Errorf("unexpected default scope %q", cfg.App.Scope)
	}

	if cfg.Graph.PageSize != 10 {
		t.Errorf("expected PageSize=10, got %d", cfg.Graph.PageSize)
	}

	if cfg.Auth.Store != "sqlite" {
		t.Errorf("expected Store=sqlite, got %s", cfg.Auth.Store)
	}
}

func validConfig() *Config {
	cfg := Default()
	cfg.App.ClientID = "client"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config with client id",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "missing client id",
			modify: func(c *Config) {
				c.App.ClientID = ""
			},
			wantErr: true,
		},
		{
			name: "scope without offline_access",
			modify: func(c *Config) {
				c.App.Scope = "user.read mail.read"
			},
			wantErr: true,
		},
		{
			name: "invalid store",
			modify: func(c *Config) {
				c.Auth.Store = "redis"
			},
			wantErr: true,
		},
		{
			name: "negative skew",
			modify: func(c *Config) {
				c.Auth.ExpirySkewSeconds = -1
			},
			wantErr: true,
		},
		{
			name: "invalid page size",
			modify: func(c *Config) {
				c.Graph.PageSize = 0
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			modify: func(c *Config) {
				c.Log.Level = "trace"
			},
			wantErr: true,
		},
		{
			name: "keyring store",
			modify: func(c *Config) {
				c.Auth.Store = "keyring"
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		input    string
		expected string
	}{
		{"~/test", filepath.Join(home, "test")},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
	}

	for _, tt := range tests {
		result, err := expandPath(tt.input)
		if err != nil {
			t.Errorf("expandPath(%q) error: %v", tt.input, err)
		}
		if result != tt.expected {
			t.Errorf("expandPath(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	env := map[string]string{
		EnvAppID:    "env-client",
		EnvTenant:   "consumers",
		EnvBotToken: "123:abc",
	}
	cfg.applyEnv(func(k string) string { return env[k] })

	if cfg.App.ClientID != "env-client" {
		t.Errorf("expected ClientID from env, got %q", cfg.App.ClientID)
	}
	if cfg.App.Tenant != "consumers" {
		t.Errorf("expected Tenant from env, got %q", cfg.App.Tenant)
	}
	if cfg.Telegram.BotToken != "123:abc" {
		t.Errorf("expected BotToken from env, got %q", cfg.Telegram.BotToken)
	}
	if cfg.App.Scope != "offline_access user.read mail.read" {
		t.Errorf("unset env var should keep file value, got %q", cfg.App.Scope)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(EnvAppID, "")

	path := filepath.Join(dir, "config.toml")
	content := `
[app]
client_id = "file-client"
tenant = "organizations"

[graph]
page_size = 25

[database]
path = "` + filepath.Join(dir, "state.db") + `"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.App.ClientID != "file-client" {
		t.Errorf("expected ClientID=file-client, got %q", cfg.App.ClientID)
	}
	if cfg.App.Tenant != "organizations" {
		t.Errorf("expected Tenant=organizations, got %q", cfg.App.Tenant)
	}
	if cfg.Graph.PageSize != 25 {
		t.Errorf("expected PageSize=25, got %d", cfg.Graph.PageSize)
	}
	if cfg.App.Scope != "offline_access user.read mail.read" {
		t.Errorf("expected default scope to survive, got %q", cfg.App.Scope)
	}
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(EnvAppID, "env-only")

	cfg, err := Load(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.App.ClientID != "env-only" {
		t.Errorf("expected ClientID=env-only, got %q", cfg.App.ClientID)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(EnvAppID, "")
	os.Unsetenv(EnvAppID)
	t.Setenv(EnvBotToken, "")
	os.Unsetenv(EnvBotToken)

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("APP_ID=dotenv-client\nBOT_TOKEN=42:xyz\n"), 0600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, err := Load(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.App.ClientID != "dotenv-client" {
		t.Errorf("expected ClientID from .env, got %q", cfg.App.ClientID)
	}
	if cfg.Telegram.BotToken != "42:xyz" {
		t.Errorf("expected BotToken from .env, got %q", cfg.Telegram.BotToken)
	}
}

func TestWatchInterval(t *testing.T) {
	cfg := Default()
	if got := cfg.Forward.WatchInterval().Seconds(); got != 60 {
		t.Errorf("WatchInterval() = %v seconds, want 60", got)
	}
}
