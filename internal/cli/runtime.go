package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vijay-prabhu/mailforward/internal/auth"
	"github.com/vijay-prabhu/mailforward/internal/config"
	"github.com/vijay-prabhu/mailforward/internal/database"
	"github.com/vijay-prabhu/mailforward/internal/email/graph"
	"github.com/vijay-prabhu/mailforward/internal/logging"
	"github.com/vijay-prabhu/mailforward/internal/telegram"
)

// runtime holds what most commands need: configuration, logger and state db
type runtime struct {
	cfg      *config.Config
	log      *zap.SugaredLogger
	db       *database.DB
	terminal *Terminal
}

func loadRuntime() (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	log, err := logging.New(level)
	if err != nil {
		return nil, err
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	log.Debugw("Opened state database", "path", cfg.Database.Path)

	return &runtime{cfg: cfg, log: log, db: db, terminal: NewTerminal()}, nil
}

func (r *runtime) Close() {
	r.db.Close()
	_ = r.log.Sync()
}

// credentialStore returns the token store selected by auth.store
func (r *runtime) credentialStore() (auth.CredentialStore, error) {
	switch r.cfg.Auth.Store {
	case "sqlite":
		return auth.NewSettingsStore(r.db), nil
	case "file":
		return &auth.FileStore{Path: r.cfg.Auth.TokenPath}, nil
	case "keyring":
		return auth.NewKeyringStore(r.cfg.Auth.KeyringService, r.cfg.Auth.KeyringDir), nil
	default:
		return nil, fmt.Errorf("unknown token store %q", r.cfg.Auth.Store)
	}
}

// authProvider builds the token provider, printing sign-in instructions and a
// spinner while the device code flow waits for the user
func (r *runtime) authProvider(ctx context.Context) (*auth.Provider, error) {
	store, err := r.credentialStore()
	if err != nil {
		return nil, err
	}
	return auth.NewProvider(ctx, r.cfg.App.Registration(), store,
		auth.WithLogger(r.log.Named("auth")),
		auth.WithExpirySkew(r.cfg.Auth.ExpirySkew()),
		auth.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
		auth.WithMessageSink(func(msg string) {
			fmt.Println()
			fmt.Println(r.terminal.Color(ColorYellow, msg))
			fmt.Println()
		}),
		auth.WithWaitIndicator(func() func() {
			return r.terminal.StartSpinner("Waiting for authorization...")
		}),
	), nil
}

// mailProvider returns a Graph client authorized by p
func (r *runtime) mailProvider(ctx context.Context, p *auth.Provider) *graph.Provider {
	return graph.New(r.cfg.Graph.BaseURL, p.HTTPClient(ctx, nil), r.log.Named("graph"))
}

// bot connects to the Telegram Bot API
func (r *runtime) bot() (*telegram.Bot, error) {
	if err := r.cfg.RequireBot(); err != nil {
		return nil, err
	}
	return telegram.New(telegram.Options{
		Token:         r.cfg.Telegram.BotToken,
		APIEndpoint:   r.cfg.Telegram.APIEndpoint,
		ProxyURL:      r.cfg.Telegram.ProxyURL,
		RatePerSecond: r.cfg.Telegram.RatePerSecond,
	}, r.log.Named("telegram"))
}
