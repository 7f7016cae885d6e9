package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	codeAuthorizationPending = "authorization_pending"

	// defaultPollInterval is used when the server does not declare one
	defaultPollInterval = 5 * time.Second
)

// State describes the provider's credential state between calls
type State string

const (
	StateNoCredential State = "no_credential"
	StateValid        State = "valid"
	StateExpired      State = "expired"
)

// Provider hands out bearer tokens, running the device code flow on first use
// and refreshing the token lazily once it has expired
type Provider struct {
	app    AppRegistration
	store  CredentialStore
	server *serverClient
	log    *zap.SugaredLogger

	printMessage func(string)
	waiting      func() (stop func())
	now          func() time.Time
	sleep        func(context.Context, time.Duration) error
	skew         time.Duration
	httpClient   *http.Client

	mu     sync.Mutex
	record *TokenRecord
}

// Option configures a Provider
type Option func(*Provider)

// WithMessageSink sets where sign-in instructions are shown. Defaults to stdout.
func WithMessageSink(sink func(string)) Option {
	return func(p *Provider) { p.printMessage = sink }
}

// WithWaitIndicator is called while polling for authorization; the returned
// func is called once polling ends
func WithWaitIndicator(start func() (stop func())) Option {
	return func(p *Provider) { p.waiting = start }
}

// WithLogger sets the diagnostic logger
func WithLogger(log *zap.SugaredLogger) Option {
	return func(p *Provider) { p.log = log }
}

// WithHTTPClient sets the client used for authorization server calls
func WithHTTPClient(hc *http.Client) Option {
	return func(p *Provider) { p.httpClient = hc }
}

// WithClock replaces the wall clock and the poll sleeper
func WithClock(now func() time.Time, sleep func(context.Context, time.Duration) error) Option {
	return func(p *Provider) {
		p.now = now
		p.sleep = sleep
	}
}

// WithExpirySkew treats tokens as expired this long before their declared expiry
func WithExpirySkew(skew time.Duration) Option {
	return func(p *Provider) { p.skew = skew }
}

// NewProvider creates a provider and loads any previously saved token record.
// The load is best effort: failures are logged and treated as no credential.
func NewProvider(ctx context.Context, app AppRegistration, store CredentialStore, opts ...Option) *Provider {
	p := &Provider{
		app:          app,
		store:        store,
		log:          zap.NewNop().Sugar(),
		printMessage: func(msg string) { fmt.Println(msg) },
		waiting:      func() func() { return func() {} },
		now:          time.Now,
		sleep:        sleepContext,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.server = newServerClient(app, p.httpClient, p.log)

	record, err := store.Load(ctx, StoreKey)
	switch {
	case err != nil:
		p.log.Warnw("Failed to load saved token", "error", err)
	case record == nil:
	case !record.usable():
		p.log.Warn("Ignoring incomplete saved token")
	default:
		p.record = record
		p.log.Debugw("Loaded saved token", "expires_at", record.ExpireAt)
	}
	return p
}

// State reports the current credential state without touching the network
func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

func (p *Provider) stateLocked() State {
	switch {
	case p.record == nil:
		return StateNoCredential
	case p.record.Expired(p.now(), p.skew):
		return StateExpired
	default:
		return StateValid
	}
}

// Record returns a copy of the current token record, or nil
func (p *Provider) Record() *TokenRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.record == nil {
		return nil
	}
	r := *p.record
	return &r
}

// AccessToken returns a token valid for immediate use. Callers should ask
// again before every request rather than holding on to the value.
func (p *Provider) AccessToken(ctx context.Context) (string, error) {
	record, err := p.current(ctx)
	if err != nil {
		return "", err
	}
	return record.AccessToken, nil
}

// TokenSource adapts the provider for oauth2.Transport, which asks for a
// token before every request
func (p *Provider) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, provider: p}
}

type tokenSource struct {
	ctx      context.Context
	provider *Provider
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	record, err := s.provider.current(s.ctx)
	if err != nil {
		return nil, err
	}
	return record.OAuth2(), nil
}

// HTTPClient returns a client that authorizes every request with the provider's token
func (p *Provider) HTTPClient(ctx context.Context, base http.RoundTripper) *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{Source: p.TokenSource(ctx), Base: base},
	}
}

func (p *Provider) current(ctx context.Context) (TokenRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.stateLocked() {
	case StateNoCredential:
		record, err := p.authorize(ctx)
		if err != nil {
			return TokenRecord{}, err
		}
		p.adopt(ctx, record)
	case StateExpired:
		p.log.Info("Token has expired")
		record, err := p.refresh(ctx, p.record.RefreshToken)
		if err != nil {
			return TokenRecord{}, err
		}
		p.adopt(ctx, record)
	}
	return *p.record, nil
}

// adopt replaces the in-memory record and persists it
func (p *Provider) adopt(ctx context.Context, record *TokenRecord) {
	p.record = record
	if err := p.store.Save(ctx, StoreKey, *record); err != nil {
		p.log.Warnw("Failed to save token; the next run may need to sign in again", "error", err)
	}
}

// authorize runs the device code flow until the user signs in, the server
// reports a terminal error, the device code lapses or ctx is done
func (p *Provider) authorize(ctx context.Context) (*TokenRecord, error) {
	device, err := p.server.requestDeviceCode(ctx)
	if err != nil {
		return nil, err
	}
	p.printMessage(device.instructions())

	stop := p.waiting()
	defer stop()

	interval := time.Duration(device.Interval) * time.Second
	if interval <= 0 {
		interval = defaultPollInterval
	}
	var deadline time.Time
	if device.ExpiresIn > 0 {
		deadline = p.now().Add(time.Duration(device.ExpiresIn) * time.Second)
	}

	for {
		resp, err := p.server.pollToken(ctx, device.DeviceCode)
		if err != nil {
			return nil, err
		}
		switch r := resp.(type) {
		case *TokenSuccess:
			record, err := p.accept(r, "")
			if err != nil {
				return nil, err
			}
			p.log.Infow("Authorization complete", "scope", r.Scope)
			return record, nil
		case *TokenFailure:
			if r.Code != codeAuthorizationPending {
				return nil, &Error{Kind: ErrDeviceCodeExpired, Code: r.Code, Description: r.Description}
			}
		}

		// the poll at the deadline still counts
		if !deadline.IsZero() && !p.now().Before(deadline) {
			return nil, &Error{Kind: ErrDeviceCodeExpired, Description: "the code was not entered in time, please try again"}
		}
		if err := p.sleep(ctx, interval); err != nil {
			return nil, fmt.Errorf("authorization cancelled: %w", err)
		}
	}
}

// refresh exchanges the stored refresh token for a new record
func (p *Provider) refresh(ctx context.Context, refreshToken string) (*TokenRecord, error) {
	resp, err := p.server.refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	switch r := resp.(type) {
	case *TokenSuccess:
		record, err := p.accept(r, refreshToken)
		if err != nil {
			return nil, err
		}
		p.log.Debugw("Token refreshed", "expires_at", record.ExpireAt)
		return record, nil
	case *TokenFailure:
		return nil, &Error{Kind: ErrRefreshFailed, Code: r.Code, Description: r.Description}
	default:
		return nil, fmt.Errorf("unexpected token response %T", resp)
	}
}

// accept builds a record from a success response. A response without a
// refresh token keeps previous; a record that could not be used or refreshed
// is rejected as malformed.
func (p *Provider) accept(r *TokenSuccess, previous string) (*TokenRecord, error) {
	switch {
	case r.AccessToken == "":
		return nil, transportFault("token response has no access_token", nil)
	case r.ExpiresIn <= 0:
		return nil, transportFault("token response has no expires_in", nil)
	}
	record := newRecord(p.now(), r)
	if record.RefreshToken == "" {
		record.RefreshToken = previous
	}
	if !record.usable() {
		return nil, transportFault("token response has no refresh_token, check that the scope includes offline_access", nil)
	}
	return record, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
