package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeClock advances only when the provider sleeps or the test moves it
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// authServer fakes the devicecode and token endpoints of one tenant
type authServer struct {
	t *testing.T

	mu            sync.Mutex
	deviceCalls   int
	pollCalls     int
	refreshCalls  int
	refreshTokens []string

	device  map[string]any
	poll    func(call int) (int, map[string]any)
	refresh func(call int, refreshToken string) (int, map[string]any)
}

func (s *authServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/common/oauth2/v2.0/devicecode", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		assert.Equal(s.t, "client-123", r.PostForm.Get("client_id"))
		assert.Equal(s.t, DefaultScope, r.PostForm.Get("scope"))
		s.mu.Lock()
		s.deviceCalls++
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, s.device)
	})
	mux.HandleFunc("/common/oauth2/v2.0/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		s.mu.Lock()
		defer s.mu.Unlock()
		switch r.PostForm.Get("grant_type") {
		case deviceCodeGrantType:
			assert.Equal(s.t, "device-abc", r.PostForm.Get("device_code"))
			s.pollCalls++
			status, body := s.poll(s.pollCalls)
			writeJSON(w, status, body)
		case "refresh_token":
			assert.Equal(s.t, DefaultScope, r.PostForm.Get("scope"))
			s.refreshCalls++
			token := r.PostForm.Get("refresh_token")
			s.refreshTokens = append(s.refreshTokens, token)
			status, body := s.refresh(s.refreshCalls, token)
			writeJSON(w, status, body)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	return mux
}

func (s *authServer) counts() (device, poll, refresh int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceCalls, s.pollCalls, s.refreshCalls
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func pending() (int, map[string]any) {
	return http.StatusBadRequest, map[string]any{
		"error":             "authorization_pending",
		"error_description": "AADSTS70016: OAuth 2.0 device flow error. Authorization is pending.",
		"error_codes":       []int{70016},
	}
}

func success(access, refresh string, expiresIn int) (int, map[string]any) {
	return http.StatusOK, map[string]any{
		"token_type":    "Bearer",
		"scope":         "Mail.Read User.Read",
		"expires_in":    expiresIn,
		"access_token":  access,
		"refresh_token": refresh,
	}
}

func newAuthServer(t *testing.T) *authServer {
	return &authServer{
		t: t,
		device: map[string]any{
			"device_code":      "device-abc",
			"user_code":        "ABCD-EFGH",
			"verification_uri": "https://microsoft.com/devicelogin",
			"expires_in":       900,
			"interval":         5,
			"message":          "To sign in, open https://microsoft.com/devicelogin and enter ABCD-EFGH",
		},
		poll: func(int) (int, map[string]any) { return success("access-1", "refresh-1", 3600) },
		refresh: func(call int, _ string) (int, map[string]any) {
			if call == 1 {
				return success("access-2", "refresh-2", 3600)
			}
			return success("access-3", "refresh-3", 3600)
		},
	}
}

type harness struct {
	server   *authServer
	clock    *fakeClock
	store    *MemoryStore
	messages []string
	url      string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{server: newAuthServer(t), clock: newFakeClock(), store: NewMemoryStore()}
	srv := httptest.NewServer(h.server.handler())
	t.Cleanup(srv.Close)
	h.url = srv.URL
	return h
}

func (h *harness) provider(t *testing.T, opts ...Option) *Provider {
	t.Helper()
	app := AppRegistration{ClientID: "client-123", Tenant: "common", Scope: DefaultScope, Authority: h.url}
	base := []Option{
		WithClock(h.clock.Now, h.clock.Sleep),
		WithMessageSink(func(msg string) { h.messages = append(h.messages, msg) }),
		WithLogger(zaptest.NewLogger(t).Sugar()),
	}
	return NewProvider(context.Background(), app, h.store, append(base, opts...)...)
}

func TestProvider_NoStoredRecordRunsDeviceFlow(t *testing.T) {
	h := newHarness(t)
	p := h.provider(t)
	assert.Equal(t, StateNoCredential, p.State())

	token, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", token)

	device, poll, refresh := h.server.counts()
	assert.Equal(t, 1, device)
	assert.GreaterOrEqual(t, poll, 1)
	assert.Equal(t, 0, refresh)
	assert.Equal(t, []string{"To sign in, open https://microsoft.com/devicelogin and enter ABCD-EFGH"}, h.messages)
	assert.Equal(t, StateValid, p.State())

	saved, err := h.store.Load(context.Background(), StoreKey)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "access-1", saved.AccessToken)
	assert.Equal(t, "refresh-1", saved.RefreshToken)
	assert.True(t, saved.ExpireAt.Equal(h.clock.Now().Add(time.Hour)))
}

func TestProvider_PendingPollsSleepDeclaredInterval(t *testing.T) {
	for _, pendingCount := range []int{0, 1, 3} {
		h := newHarness(t)
		h.server.poll = func(call int) (int, map[string]any) {
			if call <= pendingCount {
				return pending()
			}
			return success("access-1", "refresh-1", 3600)
		}
		p := h.provider(t)

		token, err := p.AccessToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "access-1", token)

		_, poll, _ := h.server.counts()
		assert.Equal(t, pendingCount+1, poll)

		sleeps := h.clock.Sleeps()
		require.Len(t, sleeps, pendingCount)
		for _, d := range sleeps {
			assert.Equal(t, 5*time.Second, d)
		}
	}
}

func TestProvider_NonPendingPollErrorStops(t *testing.T) {
	h := newHarness(t)
	h.server.poll = func(int) (int, map[string]any) {
		return http.StatusBadRequest, map[string]any{
			"error":             "expired_token",
			"error_description": "AADSTS70020: The provided value for the input parameter 'device_code' is not valid.",
		}
	}
	p := h.provider(t)

	_, err := p.AccessToken(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeviceCodeExpired)
	assert.Contains(t, err.Error(), "AADSTS70020")

	_, poll, _ := h.server.counts()
	assert.Equal(t, 1, poll)
	assert.Empty(t, h.clock.Sleeps())
	assert.Equal(t, StateNoCredential, p.State())
	assert.Equal(t, 0, h.store.Saves())
}

func TestProvider_SlowDownIsTerminal(t *testing.T) {
	h := newHarness(t)
	h.server.poll = func(int) (int, map[string]any) {
		return http.StatusBadRequest, map[string]any{"error": "slow_down"}
	}
	p := h.provider(t)

	_, err := p.AccessToken(context.Background())
	require.ErrorIs(t, err, ErrDeviceCodeExpired)
	assert.Contains(t, err.Error(), "slow_down")
}

func TestProvider_DeviceCodeLapses(t *testing.T) {
	h := newHarness(t)
	h.server.device["expires_in"] = 10
	h.server.poll = func(int) (int, map[string]any) { return pending() }
	p := h.provider(t)

	_, err := p.AccessToken(context.Background())
	require.ErrorIs(t, err, ErrDeviceCodeExpired)

	// polls at 0s, 5s and at the 10s deadline
	_, poll, _ := h.server.counts()
	assert.Equal(t, 3, poll)
	assert.Len(t, h.clock.Sleeps(), 2)
}

func TestProvider_SignInAtDeadlineIsAccepted(t *testing.T) {
	h := newHarness(t)
	h.server.device["expires_in"] = 10
	h.server.poll = func(call int) (int, map[string]any) {
		if call < 3 {
			return pending()
		}
		return success("access-1", "refresh-1", 3600)
	}
	p := h.provider(t)

	token, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", token)
	assert.Equal(t, StateValid, p.State())
}

func TestProvider_IncompleteDeviceFlowResponse(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{"no access token", map[string]any{"token_type": "Bearer", "expires_in": 3600, "refresh_token": "refresh-1"}},
		{"no refresh token", map[string]any{"token_type": "Bearer", "expires_in": 3600, "access_token": "access-1"}},
		{"no expiry", map[string]any{"token_type": "Bearer", "access_token": "access-1", "refresh_token": "refresh-1"}},
		{"zero expiry", map[string]any{"token_type": "Bearer", "expires_in": 0, "access_token": "access-1", "refresh_token": "refresh-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.server.poll = func(int) (int, map[string]any) { return http.StatusOK, tt.body }
			p := h.provider(t)

			token, err := p.AccessToken(context.Background())
			require.ErrorIs(t, err, ErrTransportFault)
			assert.Empty(t, token)
			assert.Equal(t, StateNoCredential, p.State())
			assert.Nil(t, p.Record())
			assert.Equal(t, 0, h.store.Saves())
		})
	}
}

func TestProvider_IncompleteRefreshResponse(t *testing.T) {
	h := newHarness(t)
	h.server.refresh = func(call int, _ string) (int, map[string]any) {
		switch call {
		case 1:
			return http.StatusOK, map[string]any{"token_type": "Bearer", "expires_in": 3600, "refresh_token": "refresh-2"}
		case 2:
			return http.StatusOK, map[string]any{"token_type": "Bearer", "access_token": "access-2", "refresh_token": "refresh-2"}
		default:
			return success("access-3", "", 3600)
		}
	}
	p := h.provider(t)

	_, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	saves := h.store.Saves()
	h.clock.Advance(2 * time.Hour)

	for i := 0; i < 2; i++ {
		_, err = p.AccessToken(context.Background())
		require.ErrorIs(t, err, ErrTransportFault)
		assert.Equal(t, StateExpired, p.State())
		assert.Equal(t, "access-1", p.Record().AccessToken)
	}
	assert.Equal(t, saves, h.store.Saves())

	// a success without a refresh token keeps the previous one
	token, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-3", token)
	assert.Equal(t, "refresh-1", p.Record().RefreshToken)
	assert.Equal(t, []string{"refresh-1", "refresh-1", "refresh-1"}, h.server.refreshTokens)
}

func TestProvider_PollingStopsOnCancel(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	h.server.poll = func(call int) (int, map[string]any) {
		if call == 2 {
			cancel()
		}
		return pending()
	}
	p := h.provider(t)

	_, err := p.AccessToken(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	_, poll, _ := h.server.counts()
	assert.Equal(t, 2, poll)
}

func TestProvider_CacheHit(t *testing.T) {
	h := newHarness(t)
	p := h.provider(t)

	first, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	device, poll, refresh := h.server.counts()

	h.clock.Advance(10 * time.Second)
	second, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	d2, p2, r2 := h.server.counts()
	assert.Equal(t, []int{device, poll, refresh}, []int{d2, p2, r2})
}

func TestProvider_LazyRefresh(t *testing.T) {
	h := newHarness(t)
	p := h.provider(t)

	_, err := p.AccessToken(context.Background())
	require.NoError(t, err)

	h.clock.Advance(3601 * time.Second)
	assert.Equal(t, StateExpired, p.State())

	token, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-2", token)

	_, _, refresh := h.server.counts()
	assert.Equal(t, 1, refresh)

	saved, err := h.store.Load(context.Background(), StoreKey)
	require.NoError(t, err)
	assert.Equal(t, "access-2", saved.AccessToken)
	assert.Equal(t, "refresh-2", saved.RefreshToken)
	assert.True(t, saved.ExpireAt.Equal(h.clock.Now().Add(time.Hour)))

	h.clock.Advance(3601 * time.Second)
	token, err = p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-3", token)
	assert.Equal(t, []string{"refresh-1", "refresh-2"}, h.server.refreshTokens)
}

func TestProvider_RefreshFailureSurfacesDescription(t *testing.T) {
	h := newHarness(t)
	h.server.refresh = func(int, string) (int, map[string]any) {
		return http.StatusBadRequest, map[string]any{
			"error":             "invalid_grant",
			"error_description": "Token revoked",
		}
	}
	p := h.provider(t)

	_, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	h.clock.Advance(2 * time.Hour)

	_, err = p.AccessToken(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRefreshFailed)
	assert.Contains(t, err.Error(), "Token revoked")

	var authErr *Error
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "invalid_grant", authErr.Code)

	// the stale record is not handed out: the next call tries to refresh again
	assert.Equal(t, StateExpired, p.State())
	_, err = p.AccessToken(context.Background())
	require.ErrorIs(t, err, ErrRefreshFailed)

	device, _, refresh := h.server.counts()
	assert.Equal(t, 2, refresh)
	assert.Equal(t, 1, device)
}

func TestProvider_ServerErrorIsTransportFault(t *testing.T) {
	h := newHarness(t)
	h.server.poll = func(int) (int, map[string]any) {
		return http.StatusServiceUnavailable, map[string]any{"error": "temporarily_unavailable"}
	}
	p := h.provider(t)

	_, err := p.AccessToken(context.Background())
	require.ErrorIs(t, err, ErrTransportFault)

	_, poll, _ := h.server.counts()
	assert.Equal(t, 1, poll)
}

func TestProvider_PersistenceRoundTrip(t *testing.T) {
	h := newHarness(t)
	expireAt := time.UnixMilli(h.clock.Now().Add(30 * time.Minute).UnixMilli())
	require.NoError(t, h.store.Save(context.Background(), StoreKey, TokenRecord{
		AccessToken:  "saved-access",
		ExpireAt:     expireAt,
		RefreshToken: "saved-refresh",
	}))

	p := h.provider(t)
	assert.Equal(t, StateValid, p.State())

	record := p.Record()
	require.NotNil(t, record)
	assert.Equal(t, "saved-access", record.AccessToken)
	assert.Equal(t, "saved-refresh", record.RefreshToken)
	assert.True(t, record.ExpireAt.Equal(expireAt))

	token, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "saved-access", token)

	device, poll, refresh := h.server.counts()
	assert.Zero(t, device+poll+refresh)

	h.clock.Advance(31 * time.Minute)
	token, err = p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-2", token)
	assert.Equal(t, []string{"saved-refresh"}, h.server.refreshTokens)
}

func TestProvider_ExpirySkew(t *testing.T) {
	h := newHarness(t)
	p := h.provider(t, WithExpirySkew(30*time.Second))

	_, err := p.AccessToken(context.Background())
	require.NoError(t, err)

	h.clock.Advance(time.Hour - 20*time.Second)
	assert.Equal(t, StateExpired, p.State())
}

func TestProvider_ConcurrentCallersRefreshOnce(t *testing.T) {
	h := newHarness(t)
	p := h.provider(t)

	_, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	h.clock.Advance(2 * time.Hour)

	var wg sync.WaitGroup
	tokens := make([]string, 8)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, err := p.AccessToken(context.Background())
			assert.NoError(t, err)
			tokens[i] = token
		}(i)
	}
	wg.Wait()

	_, _, refresh := h.server.counts()
	assert.Equal(t, 1, refresh)
	for _, token := range tokens {
		assert.Equal(t, "access-2", token)
	}
}

func TestProvider_IgnoresIncompleteSavedRecord(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Save(context.Background(), StoreKey, TokenRecord{AccessToken: "only-access"}))

	p := h.provider(t)
	assert.Equal(t, StateNoCredential, p.State())
}

func TestProvider_TokenSourceFeedsTransport(t *testing.T) {
	h := newHarness(t)
	p := h.provider(t)

	var gotAuth string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer api.Close()

	client := p.HTTPClient(context.Background(), nil)
	resp, err := client.Get(api.URL + "/me")
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "Bearer access-1", gotAuth)
}
