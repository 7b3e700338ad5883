package esbclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutasi/backend/internal/domain/esb"
	"github.com/mutasi/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Test doubles
// ---------------------------------------------------------------------------

type fakeBackend struct {
	mu       sync.Mutex
	record   *esb.CredentialRecord
	readErr  error
	writeErr error

	reads         int
	sessionWrites []esb.Session
	tokenWrites   int
}

func (f *fakeBackend) ReadCredentials(_ context.Context) (*esb.CredentialRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.readErr != nil {
		return nil, f.readErr
	}
	copied := *f.record
	return &copied, nil
}

func (f *fakeBackend) WriteSession(_ context.Context, s esb.Session, mintedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.sessionWrites = append(f.sessionWrites, s)
	f.record.AccessToken = s.AccessToken
	f.record.RefreshToken = s.RefreshToken
	f.record.TokenMintedAt = mintedAt
	return nil
}

func (f *fakeBackend) WriteTokens(_ context.Context, access, refresh string, mintedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.tokenWrites++
	f.record.AccessToken = access
	f.record.RefreshToken = refresh
	f.record.TokenMintedAt = mintedAt
	return nil
}

type fakeESB struct {
	server *httptest.Server

	mu             sync.Mutex
	loginCalls     int
	refreshGETs    int
	refreshPOSTs   int
	refreshRejects bool
	refreshVia405  bool
	loginRejects   bool
}

func newFakeESB(t *testing.T) *fakeESB {
	t.Helper()
	f := &fakeESB{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.URL.Path {
		case "/auth/login":
			f.loginCalls++
			if f.loginRejects {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeSessionResponse(w, "login-at", "login-rt")
		case "/auth/refresh":
			if r.Method == http.MethodGet {
				f.refreshGETs++
				if f.refreshVia405 {
					w.WriteHeader(http.StatusMethodNotAllowed)
					return
				}
			} else {
				f.refreshPOSTs++
			}
			if f.refreshRejects {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeSessionResponse(w, "refresh-at", "refresh-rt")
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func writeSessionResponse(w http.ResponseWriter, access, refresh string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"result": map[string]any{
			"accessToken":  access,
			"refreshToken": refresh,
			"companyCode":  "CC01",
			"companyName":  "Outlet Pusat",
		},
	})
}

func (f *fakeESB) counts() (login, refreshGET, refreshPOST int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCalls, f.refreshGETs, f.refreshPOSTs
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestClient(t *testing.T, api *fakeESB, store, fallback esb.CredentialBackend, clock *fixedClock) *Client {
	t.Helper()
	cfg := Config{
		Username: "svc-user",
		Password: "svc-pass",
	}
	if api != nil {
		cfg.BaseURL = api.server.URL
	}
	return NewClient(cfg, store, fallback, nil, WithClock(clock.Now))
}

// ---------------------------------------------------------------------------
// Ensure ladder
// ---------------------------------------------------------------------------

func TestEnsure_AdoptsStoredTokenWithoutNetwork(t *testing.T) {
	clock := &fixedClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	api := newFakeESB(t)
	store := &fakeBackend{record: &esb.CredentialRecord{
		Username:      "svc-user",
		Password:      "svc-pass",
		AccessToken:   "stored-at",
		RefreshToken:  "stored-rt",
		TokenMintedAt: clock.Now().Add(-10 * time.Minute),
	}}

	client := newTestClient(t, api, store, nil, clock)
	require.NoError(t, client.EnsureAccessToken(context.Background(), false))

	login, refreshGET, _ := api.counts()
	assert.Zero(t, login)
	assert.Zero(t, refreshGET)
	assert.Equal(t, "stored-at", client.currentAccessToken())

	// The adopted expiry carries the remaining lifetime: TTL 1h minus
	// buffer 5m leaves 55m, minus the 10m age leaves 45m.
	client.mu.Lock()
	remaining := client.tokenExpiry.Sub(clock.Now())
	client.mu.Unlock()
	assert.Equal(t, 45*time.Minute, remaining)
}

func TestEnsure_InMemoryFreshnessSkipsStoreRead(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	api := newFakeESB(t)
	store := &fakeBackend{record: &esb.CredentialRecord{
		AccessToken:   "stored-at",
		TokenMintedAt: clock.Now(),
	}}

	client := newTestClient(t, api, store, nil, clock)
	require.NoError(t, client.EnsureAccessToken(context.Background(), false))
	require.NoError(t, client.EnsureAccessToken(context.Background(), false))

	assert.Equal(t, 1, store.reads, "second ensure must short-circuit on the in-memory expiry")
}

func TestEnsure_RefreshesStaleToken(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	api := newFakeESB(t)
	store := &fakeBackend{record: &esb.CredentialRecord{
		AccessToken:   "stale-at",
		RefreshToken:  "stored-rt",
		TokenMintedAt: clock.Now().Add(-2 * time.Hour),
	}}

	client := newTestClient(t, api, store, nil, clock)
	require.NoError(t, client.EnsureAccessToken(context.Background(), false))

	login, refreshGET, _ := api.counts()
	assert.Zero(t, login, "a refreshable token must not trigger a login")
	assert.Equal(t, 1, refreshGET)
	assert.Equal(t, "refresh-at", client.currentAccessToken())

	// The minted session is persisted back to the serving store.
	require.Len(t, store.sessionWrites, 1)
	assert.Equal(t, "refresh-at", store.sessionWrites[0].AccessToken)
}

func TestEnsure_RefreshFailureFallsBackToLogin(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	api := newFakeESB(t)
	api.refreshRejects = true
	store := &fakeBackend{record: &esb.CredentialRecord{
		Username:      "svc-user",
		Password:      "svc-pass",
		RefreshToken:  "stored-rt",
		TokenMintedAt: clock.Now().Add(-2 * time.Hour),
	}}

	client := newTestClient(t, api, store, nil, clock)
	require.NoError(t, client.EnsureAccessToken(context.Background(), false))

	login, refreshGET, _ := api.counts()
	assert.Equal(t, 1, refreshGET)
	assert.Equal(t, 1, login)
	assert.Equal(t, "login-at", client.currentAccessToken())
}

func TestEnsure_ExpiredRefreshTokenGoesStraightToLogin(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	api := newFakeESB(t)
	store := &fakeBackend{record: &esb.CredentialRecord{
		Username:      "svc-user",
		Password:      "svc-pass",
		RefreshToken:  "ancient-rt",
		TokenMintedAt: clock.Now().Add(-48 * time.Hour),
	}}

	client := newTestClient(t, api, store, nil, clock)
	require.NoError(t, client.EnsureAccessToken(context.Background(), false))

	login, refreshGET, _ := api.counts()
	assert.Zero(t, refreshGET, "a refresh token past its TTL must not be tried")
	assert.Equal(t, 1, login)
}

func TestEnsure_UnknownAgeStillTriesRefresh(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	api := newFakeESB(t)
	store := &fakeBackend{record: &esb.CredentialRecord{
		RefreshToken: "stored-rt",
		// no timestamp: age unknown
	}}

	client := newTestClient(t, api, store, nil, clock)
	require.NoError(t, client.EnsureAccessToken(context.Background(), false))

	login, refreshGET, _ := api.counts()
	assert.Equal(t, 1, refreshGET)
	assert.Zero(t, login)
}

func TestEnsure_ForceAlwaysLogsIn(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	api := newFakeESB(t)
	store := &fakeBackend{record: &esb.CredentialRecord{
		Username:      "svc-user",
		Password:      "svc-pass",
		AccessToken:   "fresh-at",
		RefreshToken:  "fresh-rt",
		TokenMintedAt: clock.Now(),
	}}

	client := newTestClient(t, api, store, nil, clock)
	require.NoError(t, client.EnsureAccessToken(context.Background(), true))

	login, refreshGET, _ := api.counts()
	assert.Equal(t, 1, login, "force must bypass reuse and refresh")
	assert.Zero(t, refreshGET)
	assert.Equal(t, "login-at", client.currentAccessToken())
}

func TestEnsure_MissingCredentialsIsConfigurationError(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	api := newFakeESB(t)
	store := &fakeBackend{record: &esb.CredentialRecord{}}

	client := NewClient(Config{BaseURL: api.server.URL}, store, nil, nil, WithClock(clock.Now))
	err := client.EnsureAccessToken(context.Background(), false)

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, shared.CodeConfiguration, domainErr.Code)

	login, _, _ := api.counts()
	assert.Zero(t, login)
}

func TestEnsure_LoginRejectionIsFatal(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	api := newFakeESB(t)
	api.loginRejects = true
	store := &fakeBackend{record: &esb.CredentialRecord{Username: "svc-user", Password: "svc-pass"}}

	client := newTestClient(t, api, store, nil, clock)
	err := client.EnsureAccessToken(context.Background(), false)

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, shared.CodeAuthentication, domainErr.Code)
}

func TestEnsure_RefreshRetriesPostOn405(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	api := newFakeESB(t)
	api.refreshVia405 = true
	store := &fakeBackend{record: &esb.CredentialRecord{
		RefreshToken:  "stored-rt",
		TokenMintedAt: clock.Now().Add(-2 * time.Hour),
	}}

	client := newTestClient(t, api, store, nil, clock)
	require.NoError(t, client.EnsureAccessToken(context.Background(), false))

	_, refreshGET, refreshPOST := api.counts()
	assert.Equal(t, 1, refreshGET)
	assert.Equal(t, 1, refreshPOST)
	assert.Equal(t, "refresh-at", client.currentAccessToken())
}

func TestEnsure_PersistFailureIsSwallowed(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	api := newFakeESB(t)
	store := &fakeBackend{
		record:   &esb.CredentialRecord{Username: "svc-user", Password: "svc-pass"},
		writeErr: shared.NewNetworkError("sheet down"),
	}

	client := newTestClient(t, api, store, nil, clock)
	require.NoError(t, client.EnsureAccessToken(context.Background(), false))
	assert.Equal(t, "login-at", client.currentAccessToken())
}

func TestEnsure_StoreReadFailureFallsBackToConfigButPersistsToStore(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	api := newFakeESB(t)
	store := &fakeBackend{
		record:  &esb.CredentialRecord{},
		readErr: shared.NewNetworkError("sheet down"),
	}
	fallback := &fakeBackend{record: &esb.CredentialRecord{
		Username: "cfg-user",
		Password: "cfg-pass",
	}}

	client := NewClient(Config{BaseURL: api.server.URL}, store, fallback, nil, WithClock(clock.Now))
	require.NoError(t, client.EnsureAccessToken(context.Background(), false))

	login, _, _ := api.counts()
	assert.Equal(t, 1, login)
	assert.Equal(t, 1, fallback.reads)
	// The sheet remains the persist target so a later write heals it.
	assert.Len(t, store.sessionWrites, 1)
	assert.Empty(t, fallback.sessionWrites)
}

// ---------------------------------------------------------------------------
// Token status
// ---------------------------------------------------------------------------

func TestTokenStatus_SheetSource(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	store := &fakeBackend{record: &esb.CredentialRecord{
		AccessToken:   "abcdefghijklmnop",
		RefreshToken:  "zz",
		TokenMintedAt: clock.Now().Add(-10 * time.Minute),
	}}

	client := newTestClient(t, nil, store, nil, clock)
	status, err := client.TokenStatus(context.Background(), false)

	require.NoError(t, err)
	assert.Equal(t, "sheet", status.Source)
	assert.Equal(t, "abcdef...mnop", status.AccessTokenMasked)
	assert.Equal(t, "**", status.RefreshTokenMasked)
	assert.True(t, status.AccessTokenPresent)
	assert.True(t, status.AccessValid)
	require.NotNil(t, status.AgeSec)
	assert.InDelta(t, 600, *status.AgeSec, 1)
}

func TestTokenStatus_MemorySourceWhenNoBackends(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	client := NewClient(Config{}, nil, nil, nil, WithClock(clock.Now))

	status, err := client.TokenStatus(context.Background(), false)

	require.NoError(t, err)
	assert.Equal(t, "memory", status.Source)
	assert.False(t, status.AccessTokenPresent)
	assert.Nil(t, status.AgeSec)
	assert.False(t, status.AccessValid)
}

func TestTokenStatus_AutoRefreshReportsRuntime(t *testing.T) {
	clock := &fixedClock{now: time.Now()}
	api := newFakeESB(t)
	store := &fakeBackend{record: &esb.CredentialRecord{
		Username: "svc-user",
		Password: "svc-pass",
	}}

	client := newTestClient(t, api, store, nil, clock)
	status, err := client.TokenStatus(context.Background(), true)

	require.NoError(t, err)
	assert.Equal(t, "runtime", status.Source)
	assert.True(t, status.AccessValid)
	assert.Equal(t, "login-...n-at", status.AccessTokenMasked)
}
