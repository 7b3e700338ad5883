package esbclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mutasi/backend/internal/domain/masterdata"
	"github.com/mutasi/backend/internal/domain/shared"
)

type detailCacheEntry struct {
	expires time.Time
	uom     string
	price   decimal.Decimal
}

type listCacheEntry struct {
	expires  time.Time
	products []masterdata.Product
}

type productListItem struct {
	ProductID   int64  `json:"productID"`
	ProductName string `json:"productName"`
	ProductCode string `json:"productCode"`
}

type productListResponse struct {
	Result struct {
		Data []productListItem `json:"data"`
	} `json:"result"`
}

type productDetailResponse struct {
	Result struct {
		ProductDetails []struct {
			FlagDefault int             `json:"flagDefault"`
			UomName     string          `json:"uomName"`
			BasePrice   decimal.Decimal `json:"basePrice"`
		} `json:"productDetails"`
	} `json:"result"`
}

// FetchProducts implements the master-data product provider. The ESB
// catalog is company independent, so companyID is ignored.
func (c *Client) FetchProducts(ctx context.Context, _ string) ([]masterdata.Product, error) {
	return c.FetchAllProducts(ctx)
}

// FetchAllProducts pulls the whole product catalog, page by page, and
// enriches every item with its detail (uom and base price). The result
// is cached wholesale. A page that fails for any reason other than an
// expired token aborts the loop and returns what was accumulated.
func (c *Client) FetchAllProducts(ctx context.Context) ([]masterdata.Product, error) {
	now := c.now()

	c.listMu.Lock()
	if len(c.listCache.products) > 0 && now.Before(c.listCache.expires) {
		cached := c.listCache.products
		c.listMu.Unlock()
		return cached, nil
	}
	c.listMu.Unlock()

	if err := c.EnsureAccessToken(ctx, false); err != nil {
		return nil, err
	}

	var products []masterdata.Product
	limit := c.cfg.ListLimit

	for page := 1; ; page++ {
		items, err := c.fetchProductPage(ctx, page, limit)
		if err != nil {
			c.logger.Error("ESB product list page failed",
				zap.Int("page", page),
				zap.Error(err))
			break
		}
		if len(items) == 0 {
			break
		}

		for _, item := range items {
			if item.ProductID == 0 {
				continue
			}
			id := strconv.FormatInt(item.ProductID, 10)
			uom, price := c.ProductDetail(ctx, id)
			products = append(products, masterdata.Product{
				ID:     id,
				Name:   item.ProductName,
				Code:   item.ProductCode,
				Uom:    uom,
				Price:  price,
				Source: "ESB",
			})
		}

		if len(items) < limit {
			break
		}
	}

	if c.cfg.ProductListTTL > 0 && len(products) > 0 {
		c.listMu.Lock()
		c.listCache = listCacheEntry{
			expires:  c.now().Add(c.cfg.ProductListTTL),
			products: products,
		}
		c.listMu.Unlock()
	}
	return products, nil
}

// fetchProductPage requests one list page. A 401 or 403 forces a fresh
// login and retries the same page exactly once.
func (c *Client) fetchProductPage(ctx context.Context, page, limit int) ([]productListItem, error) {
	resp, body, err := c.getProductList(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		if err := c.EnsureAccessToken(ctx, true); err != nil {
			return nil, err
		}
		resp, body, err = c.getProductList(ctx, page, limit)
		if err != nil {
			return nil, err
		}
	}
	if resp.StatusCode >= 400 {
		return nil, shared.NewNetworkError(fmt.Sprintf("ESB product list returned HTTP %d", resp.StatusCode))
	}

	var payload productListResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, shared.NewNetworkError(fmt.Sprintf("invalid ESB product list response: %v", err))
	}
	return payload.Result.Data, nil
}

func (c *Client) getProductList(ctx context.Context, page, limit int) (*http.Response, []byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	if c.cfg.FlagActive != nil {
		q.Set("flagActive", strconv.Itoa(*c.cfg.FlagActive))
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, c.cfg.BaseURL+"/product/list?"+q.Encode(), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create product list request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.currentAccessToken())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, shared.NewNetworkError(fmt.Sprintf("ESB product list unreachable: %v", err))
	}
	body, err := readBody(resp)
	if err != nil {
		return nil, nil, err
	}
	return resp, body, nil
}

// ProductDetail looks up the uom and base price of a product. Failures
// never propagate: a product whose detail cannot be fetched keeps an
// empty uom and zero price so the catalog stays complete.
func (c *Client) ProductDetail(ctx context.Context, productID string) (string, decimal.Decimal) {
	if productID == "" || productID == "0" {
		return "", decimal.Zero
	}

	c.detailMu.Lock()
	if entry, ok := c.detailCache[productID]; ok && c.now().Before(entry.expires) {
		c.detailMu.Unlock()
		return entry.uom, entry.price
	}
	c.detailMu.Unlock()

	if err := c.EnsureAccessToken(ctx, false); err != nil {
		c.logger.Warn("ESB product detail skipped, no token",
			zap.String("product_id", productID),
			zap.Error(err))
		return "", decimal.Zero
	}

	uom, price, err := c.fetchProductDetail(ctx, productID)
	if err != nil {
		c.logger.Warn("ESB product detail failed",
			zap.String("product_id", productID),
			zap.Error(err))
		return "", decimal.Zero
	}

	if c.cfg.ProductDetailTTL > 0 {
		c.detailMu.Lock()
		c.detailCache[productID] = detailCacheEntry{
			expires: c.now().Add(c.cfg.ProductDetailTTL),
			uom:     uom,
			price:   price,
		}
		c.detailMu.Unlock()
	}
	return uom, price
}

// fetchProductDetail performs the detail call with two attempts. A token
// rejection on the first attempt forces a login; a transport failure on
// the first attempt waits briefly and retries.
func (c *Client) fetchProductDetail(ctx context.Context, productID string) (string, decimal.Decimal, error) {
	for attempt := 0; attempt < 2; attempt++ {
		resp, body, err := c.getProductDetail(ctx, productID)
		if err == nil {
			if (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) && attempt == 0 {
				if err := c.EnsureAccessToken(ctx, true); err != nil {
					return "", decimal.Zero, err
				}
				continue
			}
			if resp.StatusCode < 400 {
				var payload productDetailResponse
				if err := json.Unmarshal(body, &payload); err != nil {
					return "", decimal.Zero, shared.NewNetworkError(fmt.Sprintf("invalid ESB product detail response: %v", err))
				}
				details := payload.Result.ProductDetails
				if len(details) == 0 {
					return "", decimal.Zero, nil
				}
				selected := details[0]
				for _, d := range details {
					if d.FlagDefault != 0 {
						selected = d
						break
					}
				}
				return selected.UomName, selected.BasePrice, nil
			}
			err = shared.NewNetworkError(fmt.Sprintf("ESB product detail returned HTTP %d", resp.StatusCode))
		}

		if attempt == 0 {
			select {
			case <-time.After(c.cfg.DetailRetryDelay):
			case <-ctx.Done():
				return "", decimal.Zero, ctx.Err()
			}
			continue
		}
		return "", decimal.Zero, err
	}
	return "", decimal.Zero, nil
}

func (c *Client) getProductDetail(ctx context.Context, productID string) (*http.Response, []byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.DetailTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, c.cfg.BaseURL+"/product/"+url.PathEscape(productID), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create product detail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.currentAccessToken())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, shared.NewNetworkError(fmt.Sprintf("ESB product detail unreachable: %v", err))
	}
	body, err := readBody(resp)
	if err != nil {
		return nil, nil, err
	}
	return resp, body, nil
}

func (c *Client) currentAccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// Ensure Client implements the master-data product provider
var _ masterdata.ProductProvider = (*Client)(nil)
