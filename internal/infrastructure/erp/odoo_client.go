// Package erp talks to Odoo over its JSON-RPC endpoint. Outlets map to
// res.company records and products to product.template records.
package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mutasi/backend/internal/domain/masterdata"
	"github.com/mutasi/backend/internal/domain/shared"
)

const maxResponseSize = 16 << 20 // 16MB

// Config holds the Odoo connection settings
type Config struct {
	URL       string
	DB        string
	Username  string
	Password  string
	CompanyID int
	Timeout   time.Duration
}

// Configured reports whether all required connection fields are set
func (c Config) Configured() bool {
	return c.URL != "" && c.DB != "" && c.Username != "" && c.Password != ""
}

// Client is a JSON-RPC client for the Odoo external API
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
	requestID  atomic.Int64
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient overrides the HTTP client, mainly for tests
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates an Odoo client. The URL is normalized so that both
// "https://erp.example.com" and "https://erp.example.com/" work.
func NewClient(cfg Config, logger *zap.Logger, opts ...Option) *Client {
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ---------------------------------------------------------------------------
// JSON-RPC plumbing
// ---------------------------------------------------------------------------

type rpcRequest struct {
	Jsonrpc string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int64     `json:"id"`
}

type rpcParams struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Message string `json:"message"`
	Data    struct {
		Message string `json:"message"`
	} `json:"data"`
}

func (e *rpcError) text() string {
	if e.Data.Message != "" {
		return e.Data.Message
	}
	return e.Message
}

func (c *Client) call(ctx context.Context, service, method string, args []any) (json.RawMessage, error) {
	if !c.cfg.Configured() {
		return nil, shared.NewConfigurationError("Odoo connection is not configured")
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	payload, err := json.Marshal(rpcRequest{
		Jsonrpc: "2.0",
		Method:  "call",
		Params:  rpcParams{Service: service, Method: method, Args: args},
		ID:      c.requestID.Add(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode Odoo request: %w", err)
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.cfg.URL+"/jsonrpc", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create Odoo request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, shared.NewNetworkError(fmt.Sprintf("Odoo unreachable: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, shared.NewNetworkError(fmt.Sprintf("failed to read Odoo response: %v", err))
	}
	if resp.StatusCode >= 400 {
		return nil, shared.NewNetworkError(fmt.Sprintf("Odoo returned HTTP %d", resp.StatusCode))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, shared.NewNetworkError(fmt.Sprintf("invalid Odoo response: %v", err))
	}
	if rpcResp.Error != nil {
		return nil, shared.NewNetworkError(fmt.Sprintf("Odoo RPC error: %s", rpcResp.Error.text()))
	}
	return rpcResp.Result, nil
}

// authenticate resolves the numeric user id. Odoo answers false for bad
// credentials, which decodes to a zero uid.
func (c *Client) authenticate(ctx context.Context) (int64, error) {
	result, err := c.call(ctx, "common", "authenticate",
		[]any{c.cfg.DB, c.cfg.Username, c.cfg.Password, map[string]any{}})
	if err != nil {
		return 0, err
	}

	var uid int64
	if err := json.Unmarshal(result, &uid); err != nil || uid == 0 {
		return 0, shared.NewAuthenticationError("Odoo authentication failed")
	}
	return uid, nil
}

func (c *Client) executeKw(ctx context.Context, model, method string, args []any, kwargs map[string]any) (json.RawMessage, error) {
	uid, err := c.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	return c.call(ctx, "object", "execute_kw",
		[]any{c.cfg.DB, uid, c.cfg.Password, model, method, args, kwargs})
}

// ---------------------------------------------------------------------------
// Master data
// ---------------------------------------------------------------------------

// FetchOutlets lists every company as an outlet. Companies without a
// name are skipped.
func (c *Client) FetchOutlets(ctx context.Context) ([]masterdata.Outlet, error) {
	result, err := c.executeKw(ctx, "res.company", "search_read",
		[]any{[]any{}},
		map[string]any{"fields": []string{"name"}})
	if err != nil {
		return nil, err
	}

	var rows []map[string]any
	if err := json.Unmarshal(result, &rows); err != nil {
		return nil, shared.NewNetworkError(fmt.Sprintf("invalid Odoo company list: %v", err))
	}

	outlets := make([]masterdata.Outlet, 0, len(rows))
	for _, row := range rows {
		name := stringField(row, "name")
		if name == "" {
			continue
		}
		outlets = append(outlets, masterdata.Outlet{
			ID:   idField(row),
			Name: name,
		})
	}
	return outlets, nil
}

// FetchProducts lists the stocked products of one company. Only items
// with a cost price and on-hand quantity are returned; everything else
// is noise on a mutation form.
func (c *Client) FetchProducts(ctx context.Context, companyID string) ([]masterdata.Product, error) {
	company := c.cfg.CompanyID
	if companyID != "" {
		parsed, err := strconv.Atoi(companyID)
		if err != nil {
			return nil, shared.NewValidationError(fmt.Sprintf("invalid company id %q", companyID))
		}
		company = parsed
	}

	domain := []any{
		[]any{"standard_price", ">", 0},
		[]any{"qty_available", "!=", 0},
	}
	kwargs := map[string]any{
		"fields": []string{"name", "default_code", "uom_id", "standard_price"},
		"context": map[string]any{
			"company_id":          company,
			"allowed_company_ids": []int{company},
		},
	}

	result, err := c.executeKw(ctx, "product.template", "search_read", []any{domain}, kwargs)
	if err != nil {
		return nil, err
	}

	var rows []map[string]any
	if err := json.Unmarshal(result, &rows); err != nil {
		return nil, shared.NewNetworkError(fmt.Sprintf("invalid Odoo product list: %v", err))
	}

	products := make([]masterdata.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, masterdata.Product{
			ID:    idField(row),
			Name:  stringField(row, "name"),
			Code:  stringField(row, "default_code"),
			Uom:   uomName(row["uom_id"]),
			Price: priceField(row, "standard_price"),
		})
	}
	return products, nil
}

// ---------------------------------------------------------------------------
// Row decoding. Odoo encodes absent values as false, so every field
// needs a type check before use.
// ---------------------------------------------------------------------------

func stringField(row map[string]any, key string) string {
	s, _ := row[key].(string)
	return s
}

func idField(row map[string]any) string {
	n, ok := row["id"].(float64)
	if !ok {
		return ""
	}
	return strconv.FormatInt(int64(n), 10)
}

func priceField(row map[string]any, key string) decimal.Decimal {
	n, ok := row[key].(float64)
	if !ok {
		return decimal.Zero
	}
	return decimal.NewFromFloat(n)
}

// uomName extracts the display name from a many2one tuple [id, name]
func uomName(v any) string {
	tuple, ok := v.([]any)
	if !ok || len(tuple) < 2 {
		return ""
	}
	name, _ := tuple[1].(string)
	return name
}

var (
	_ masterdata.OutletProvider  = (*Client)(nil)
	_ masterdata.ProductProvider = (*Client)(nil)
)
