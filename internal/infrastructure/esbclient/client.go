package esbclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mutasi/backend/internal/domain/esb"
	"github.com/mutasi/backend/internal/domain/shared"
)

// DefaultBaseURL is the production ESB core gateway
const DefaultBaseURL = "https://services.esb.co.id/core"

// maxResponseSize limits the response body size to prevent memory exhaustion
const maxResponseSize = 16 * 1024 * 1024 // 16MB

// Config holds ESB client settings. Zero fields take the gateway defaults.
type Config struct {
	BaseURL  string
	Username string
	Password string

	Timeout       time.Duration // product list calls
	LoginTimeout  time.Duration // login and refresh calls
	DetailTimeout time.Duration // product detail calls

	TokenTTL    time.Duration // lifetime of a minted access token
	TokenBuffer time.Duration // safety margin subtracted from the TTL
	RefreshTTL  time.Duration // how long a refresh token stays usable

	ProductDetailTTL time.Duration
	ProductListTTL   time.Duration
	DetailRetryDelay time.Duration

	ListLimit  int
	FlagActive *int // flagActive query param; nil omits it
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.LoginTimeout <= 0 {
		c.LoginTimeout = 10 * time.Second
	}
	if c.DetailTimeout <= 0 {
		c.DetailTimeout = 5 * time.Second
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = time.Hour
	}
	if c.TokenBuffer <= 0 {
		c.TokenBuffer = 5 * time.Minute
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = 24 * time.Hour
	}
	if c.ProductDetailTTL == 0 {
		c.ProductDetailTTL = time.Hour
	}
	if c.ProductListTTL == 0 {
		c.ProductListTTL = 10 * time.Minute
	}
	if c.DetailRetryDelay == 0 {
		c.DetailRetryDelay = time.Second
	}
	if c.ListLimit <= 0 {
		c.ListLimit = 100
	}
	if c.FlagActive == nil {
		active := 1
		c.FlagActive = &active
	}
}

// Client maintains an ESB session and pulls the product catalog.
//
// Token state lives in memory, but the authoritative record is the
// shared credential backend: every ensure pass re-reads it so a token
// minted by another process is adopted instead of minting a new one,
// and every minted session is written back.
type Client struct {
	cfg        Config
	store      esb.CredentialBackend // preferred backend, usually the sheet store
	fallback   esb.CredentialBackend // remote config, consulted when the store fails
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time

	mu            sync.Mutex
	username      string
	password      string
	companyCode   string
	companyName   string
	accessToken   string
	refreshToken  string
	tokenMintedAt time.Time
	tokenExpiry   time.Time

	detailMu    sync.Mutex
	detailCache map[string]detailCacheEntry

	listMu    sync.Mutex
	listCache listCacheEntry
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for all calls
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithClock overrides the time source, for tests
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates an ESB client. Both backends are optional; with
// neither configured the client can still log in from static credentials.
func NewClient(cfg Config, store, fallback esb.CredentialBackend, logger *zap.Logger, opts ...Option) *Client {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		cfg:         cfg,
		store:       store,
		fallback:    fallback,
		httpClient:  &http.Client{},
		logger:      logger,
		now:         time.Now,
		username:    cfg.Username,
		password:    cfg.Password,
		detailCache: make(map[string]detailCacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// accessValidFor is the usable lifetime of a freshly minted token
func (c *Client) accessValidFor() time.Duration {
	valid := c.cfg.TokenTTL - c.cfg.TokenBuffer
	if valid < 0 {
		valid = 0
	}
	return valid
}

// EnsureAccessToken makes sure a usable access token is loaded, walking
// the reuse ladder: in-memory freshness, stored token adoption, refresh,
// then login. force skips every shortcut and always performs a fresh
// network login; it is used after the product API rejects a token.
func (c *Client) EnsureAccessToken(ctx context.Context, force bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureLocked(ctx, force)
}

func (c *Client) ensureLocked(ctx context.Context, force bool) error {
	now := c.now()
	if !force && c.accessToken != "" && now.Before(c.tokenExpiry) {
		return nil
	}

	persistTarget := c.reloadCredentials(ctx)

	accessValid := c.accessValidFor()
	ageKnown := !c.tokenMintedAt.IsZero()
	var age time.Duration
	if ageKnown {
		age = now.Sub(c.tokenMintedAt)
	}

	// Adopt the stored token when it is still inside its validity
	// window. No network call, and the expiry carries the remaining
	// lifetime rather than a full one.
	if !force && c.accessToken != "" && ageKnown && age >= 0 && age < accessValid {
		c.tokenExpiry = now.Add(accessValid - age)
		return nil
	}

	if !force && c.refreshToken != "" && (!ageKnown || age < c.cfg.RefreshTTL) {
		session, err := c.refresh(ctx, c.refreshToken)
		if err == nil {
			c.applySession(ctx, session, persistTarget)
			return nil
		}
		c.logger.Warn("ESB token refresh failed, falling back to login", zap.Error(err))
	}

	if c.username == "" || c.password == "" {
		return shared.NewConfigurationError("ESB credentials are not configured")
	}

	session, err := c.login(ctx, c.username, c.password)
	if err != nil {
		return err
	}
	c.applySession(ctx, session, persistTarget)
	return nil
}

// reloadCredentials re-reads the authoritative record and merges it into
// the in-memory state. The returned backend is where a newly minted
// session must be persisted: the store whenever one is configured, the
// fallback only when no store exists and the fallback served the read.
func (c *Client) reloadCredentials(ctx context.Context) esb.CredentialBackend {
	if c.store != nil {
		record, err := c.store.ReadCredentials(ctx)
		if err == nil {
			c.mergeStoreRecord(record)
			return c.store
		}
		c.logger.Warn("failed to read credential sheet", zap.Error(err))
		// The sheet stays the persist target so a later login heals it
		if c.fallback != nil {
			if record, ferr := c.fallback.ReadCredentials(ctx); ferr == nil {
				c.mergeConfigRecord(record)
			}
		}
		return c.store
	}

	if c.fallback != nil {
		record, err := c.fallback.ReadCredentials(ctx)
		if err != nil {
			c.logger.Warn("failed to read remote ESB config", zap.Error(err))
			return nil
		}
		c.mergeConfigRecord(record)
		return c.fallback
	}
	return nil
}

// mergeStoreRecord applies a sheet read: stored values win, in-memory
// state only fills the gaps.
func (c *Client) mergeStoreRecord(r *esb.CredentialRecord) {
	if r == nil {
		return
	}
	c.username = firstNonEmpty(r.Username, c.username)
	c.password = firstNonEmpty(r.Password, c.password)
	c.companyCode = firstNonEmpty(r.CompanyCode, c.companyCode)
	c.companyName = firstNonEmpty(r.CompanyName, c.companyName)
	c.accessToken = firstNonEmpty(r.AccessToken, c.accessToken)
	c.refreshToken = firstNonEmpty(r.RefreshToken, c.refreshToken)
	if !r.TokenMintedAt.IsZero() {
		c.tokenMintedAt = r.TokenMintedAt
	}
}

// mergeConfigRecord applies a remote-config read: explicit static
// credentials keep precedence, config supplies the session fields.
func (c *Client) mergeConfigRecord(r *esb.CredentialRecord) {
	if r == nil {
		return
	}
	c.username = firstNonEmpty(c.username, r.Username)
	c.password = firstNonEmpty(c.password, r.Password)
	c.companyCode = firstNonEmpty(r.CompanyCode, c.companyCode)
	c.companyName = firstNonEmpty(r.CompanyName, c.companyName)
	c.accessToken = firstNonEmpty(r.AccessToken, c.accessToken)
	c.refreshToken = firstNonEmpty(r.RefreshToken, c.refreshToken)
	if !r.TokenMintedAt.IsZero() && c.tokenMintedAt.IsZero() {
		c.tokenMintedAt = r.TokenMintedAt
	}
}

// applySession installs a minted session and persists it to the backend
// that served this ensure pass. Persistence failures are logged and
// swallowed: the session is already usable in memory.
func (c *Client) applySession(ctx context.Context, session esb.Session, target esb.CredentialBackend) {
	now := c.now()
	if session.RefreshToken == "" {
		session.RefreshToken = c.refreshToken
	}
	if session.CompanyCode == "" {
		session.CompanyCode = c.companyCode
	}
	if session.CompanyName == "" {
		session.CompanyName = c.companyName
	}

	c.accessToken = session.AccessToken
	c.refreshToken = session.RefreshToken
	c.companyCode = session.CompanyCode
	c.companyName = session.CompanyName
	c.tokenMintedAt = now
	c.tokenExpiry = now.Add(c.accessValidFor())

	if target == nil {
		return
	}
	if err := target.WriteSession(ctx, session, now); err != nil {
		c.logger.Warn("failed to persist ESB session", zap.Error(err))
	}
}

// ---------------------------------------------------------------------------
// Auth calls
// ---------------------------------------------------------------------------

type sessionResult struct {
	AccessToken     string `json:"accessToken"`
	RefreshToken    string `json:"refreshToken"`
	CompanyCode     string `json:"companyCode"`
	CompanyName     string `json:"companyName"`
	Username        string `json:"username"`
	AccessTokenAlt  string `json:"access_token"`
	RefreshTokenAlt string `json:"refresh_token"`
}

type sessionEnvelope struct {
	Errors json.RawMessage `json:"errors"`
	Result sessionResult   `json:"result"`
}

func hasErrors(raw json.RawMessage) bool {
	trimmed := string(bytes.TrimSpace(raw))
	switch trimmed {
	case "", "null", "{}", "[]", `""`, "false", "0":
		return false
	}
	return true
}

func extractSession(body []byte) (esb.Session, error) {
	var envelope sessionEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return esb.Session{}, shared.NewNetworkError(fmt.Sprintf("invalid ESB auth response: %v", err))
	}
	if hasErrors(envelope.Errors) {
		return esb.Session{}, shared.NewAuthenticationError(fmt.Sprintf("ESB error: %s", string(envelope.Errors)))
	}
	access := firstNonEmpty(envelope.Result.AccessToken, envelope.Result.AccessTokenAlt)
	if access == "" {
		return esb.Session{}, shared.NewAuthenticationError("Access token missing in ESB response")
	}
	return esb.Session{
		AccessToken:  access,
		RefreshToken: firstNonEmpty(envelope.Result.RefreshToken, envelope.Result.RefreshTokenAlt),
		CompanyCode:  envelope.Result.CompanyCode,
		CompanyName:  envelope.Result.CompanyName,
	}, nil
}

func (c *Client) login(ctx context.Context, username, password string) (esb.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.LoginTimeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return esb.Session{}, fmt.Errorf("failed to marshal login payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/auth/login", bytes.NewReader(payload))
	if err != nil {
		return esb.Session{}, fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return esb.Session{}, shared.NewNetworkError(fmt.Sprintf("ESB login unreachable: %v", err))
	}
	body, err := readBody(resp)
	if err != nil {
		return esb.Session{}, err
	}
	if resp.StatusCode >= 500 {
		return esb.Session{}, shared.NewNetworkError(fmt.Sprintf("ESB login returned HTTP %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return esb.Session{}, shared.NewAuthenticationError(fmt.Sprintf("ESB login rejected with HTTP %d", resp.StatusCode))
	}
	return extractSession(body)
}

// refresh exchanges a refresh token for a new session. The gateway
// accepts GET; some deployments only take POST and answer 405 to GET,
// so that status triggers one POST retry.
func (c *Client) refresh(ctx context.Context, refreshToken string) (esb.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.LoginTimeout)
	defer cancel()

	do := func(method string) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+"/auth/refresh", nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create refresh request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+refreshToken)
		req.Header.Set("Content-Type", "application/json")
		return c.httpClient.Do(req)
	}

	resp, err := do(http.MethodGet)
	if err != nil {
		return esb.Session{}, shared.NewNetworkError(fmt.Sprintf("ESB refresh unreachable: %v", err))
	}
	if resp.StatusCode == http.StatusMethodNotAllowed {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		resp, err = do(http.MethodPost)
		if err != nil {
			return esb.Session{}, shared.NewNetworkError(fmt.Sprintf("ESB refresh unreachable: %v", err))
		}
	}

	body, err := readBody(resp)
	if err != nil {
		return esb.Session{}, err
	}
	if resp.StatusCode >= 400 {
		return esb.Session{}, shared.NewAuthenticationError(fmt.Sprintf("ESB refresh rejected with HTTP %d", resp.StatusCode))
	}
	return extractSession(body)
}

func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, shared.NewNetworkError(fmt.Sprintf("failed to read ESB response: %v", err))
	}
	return body, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
