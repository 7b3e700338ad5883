package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mutasi/backend/internal/domain/shared"
)

// maxResponseSize limits the response body size to prevent memory exhaustion
const maxResponseSize = 4 * 1024 * 1024 // 4MB

// Defaults for the shared credential sheet
const (
	DefaultSheetName = "secretCredentials"
	DefaultGID       = "1746209771"
)

// Config holds the Google Apps Script web-app endpoint settings
type Config struct {
	GasURL    string
	APISecret string
	SheetName string
	GID       string
	Timeout   time.Duration
}

// Configured reports whether the endpoint can be called at all
func (c Config) Configured() bool {
	return c.GasURL != "" && c.APISecret != ""
}

// Client talks to a Google Apps Script web app exposing sheet ranges.
// GET reads a range, POST writes one; both answer {ok, values, error}.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a sheet client for the given endpoint
func NewClient(cfg Config) *Client {
	if cfg.SheetName == "" {
		cfg.SheetName = DefaultSheetName
	}
	if cfg.GID == "" {
		cfg.GID = DefaultGID
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type gasResponse struct {
	OK     bool       `json:"ok"`
	Values [][]string `json:"values"`
	Error  string     `json:"error"`
}

func (c *Client) ensureReady() error {
	if c.cfg.GasURL == "" {
		return shared.NewConfigurationError("Credential sheet URL is not configured")
	}
	if c.cfg.APISecret == "" {
		return shared.NewConfigurationError("Credential sheet secret is not configured")
	}
	return nil
}

func (c *Client) baseQuery() url.Values {
	q := url.Values{}
	q.Set("key", c.cfg.APISecret)
	if c.cfg.SheetName != "" {
		q.Set("sheet", c.cfg.SheetName)
	}
	if c.cfg.GID != "" {
		q.Set("gid", c.cfg.GID)
	}
	return q
}

func decodeGASResponse(resp *http.Response) (*gasResponse, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, shared.NewNetworkError(fmt.Sprintf("failed to read sheet response: %v", err))
	}
	if resp.StatusCode >= 400 {
		return nil, shared.NewNetworkError(fmt.Sprintf("sheet endpoint returned HTTP %d", resp.StatusCode))
	}

	var payload gasResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, shared.NewNetworkError(fmt.Sprintf("invalid sheet response: %v", err))
	}
	if !payload.OK {
		msg := payload.Error
		if msg == "" {
			msg = "sheet endpoint returned ok=false"
		}
		return nil, shared.NewNetworkError(msg)
	}
	return &payload, nil
}

// FetchRange reads an A1 range as raw cell values
func (c *Client) FetchRange(ctx context.Context, a1Range string) ([][]string, error) {
	if err := c.ensureReady(); err != nil {
		return nil, err
	}

	q := c.baseQuery()
	q.Set("range", a1Range)
	q.Set("type", "raw")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.GasURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, shared.NewNetworkError(fmt.Sprintf("sheet endpoint unreachable: %v", err))
	}

	payload, err := decodeGASResponse(resp)
	if err != nil {
		return nil, err
	}
	return payload.Values, nil
}

// SetRange writes a 2D block of values to an A1 range
func (c *Client) SetRange(ctx context.Context, a1Range string, values [][]string) error {
	if err := c.ensureReady(); err != nil {
		return err
	}

	body, err := json.Marshal(map[string]any{
		"range":  a1Range,
		"values": values,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal sheet payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.GasURL+"?"+c.baseQuery().Encode(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create sheet request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return shared.NewNetworkError(fmt.Sprintf("sheet endpoint unreachable: %v", err))
	}

	_, err = decodeGASResponse(resp)
	return err
}
