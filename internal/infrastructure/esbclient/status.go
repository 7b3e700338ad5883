package esbclient

import (
	"context"
	"time"

	"github.com/mutasi/backend/internal/domain/esb"
)

// TokenStatus is the diagnostic view of the credential state. Tokens are
// always masked; this payload is safe to expose on an operator endpoint.
type TokenStatus struct {
	Source              string   `json:"source"`
	TimestampText       string   `json:"timestamp_text"`
	AgeSec              *float64 `json:"age_sec"`
	AccessValidSec      float64  `json:"access_valid_sec"`
	RefreshValidSec     float64  `json:"refresh_valid_sec"`
	AccessTokenPresent  bool     `json:"access_token_present"`
	RefreshTokenPresent bool     `json:"refresh_token_present"`
	AccessTokenMasked   string   `json:"access_token_masked"`
	RefreshTokenMasked  string   `json:"refresh_token_masked"`
	AccessValid         bool     `json:"access_valid"`
	RefreshValid        bool     `json:"refresh_valid"`
}

// TokenStatus reports where the current credential state comes from and
// whether the stored tokens are still usable. With autoRefresh the
// engine first runs a normal ensure pass and reports the runtime state;
// otherwise the backing store is inspected without side effects.
func (c *Client) TokenStatus(ctx context.Context, autoRefresh bool) (*TokenStatus, error) {
	if autoRefresh {
		if err := c.EnsureAccessToken(ctx, false); err != nil {
			return nil, err
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.buildStatus("runtime", c.accessToken, c.refreshToken, c.tokenMintedAt), nil
	}

	if c.store != nil {
		if record, err := c.store.ReadCredentials(ctx); err == nil {
			return c.buildStatus("sheet", record.AccessToken, record.RefreshToken, record.TokenMintedAt), nil
		}
	}

	if c.fallback != nil {
		if record, err := c.fallback.ReadCredentials(ctx); err == nil {
			return c.buildStatus("config", record.AccessToken, record.RefreshToken, record.TokenMintedAt), nil
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buildStatus("memory", c.accessToken, c.refreshToken, c.tokenMintedAt), nil
}

func (c *Client) buildStatus(source, access, refresh string, mintedAt time.Time) *TokenStatus {
	now := c.now()

	var ageSec *float64
	if !mintedAt.IsZero() {
		age := now.Sub(mintedAt).Seconds()
		if age < 0 {
			age = 0
		}
		ageSec = &age
	}

	accessValidSec := c.accessValidFor().Seconds()
	refreshValidSec := c.cfg.RefreshTTL.Seconds()

	status := &TokenStatus{
		Source:              source,
		AgeSec:              ageSec,
		AccessValidSec:      accessValidSec,
		RefreshValidSec:     refreshValidSec,
		AccessTokenPresent:  access != "",
		RefreshTokenPresent: refresh != "",
		AccessTokenMasked:   esb.MaskToken(access),
		RefreshTokenMasked:  esb.MaskToken(refresh),
	}
	if !mintedAt.IsZero() {
		status.TimestampText = esb.FormatTokenTimestamp(mintedAt)
		status.AccessValid = access != "" && *ageSec < accessValidSec
		status.RefreshValid = refresh != "" && *ageSec < refreshValidSec
	}
	return status
}
