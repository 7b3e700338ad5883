package sheets

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mutasi/backend/internal/domain/esb"
	"github.com/mutasi/backend/internal/domain/shared"
)

// ConfigManager is the fallback credential backend used when the primary
// sheet store is unavailable. It reads the same cell layout but loads at
// most once per process: the remote config is treated as boot-time
// configuration, not live state.
type ConfigManager struct {
	client *Client

	mu     sync.Mutex
	loaded bool
	record *esb.CredentialRecord
}

// NewConfigManager creates a config manager over a sheet client
func NewConfigManager(client *Client) *ConfigManager {
	return &ConfigManager{client: client}
}

// ReadCredentials returns the cached record, loading it on first use.
// A failed load is cached too: the manager does not retry until restart.
func (m *ConfigManager) ReadCredentials(ctx context.Context) (*esb.CredentialRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded {
		if m.record == nil {
			return nil, shared.NewConfigurationError("Remote ESB config could not be loaded")
		}
		return m.record, nil
	}
	m.loaded = true

	rows, err := m.client.FetchRange(ctx, credentialRange)
	if err != nil {
		return nil, err
	}
	cells := flattenColumn(rows, 10)
	if cells == nil {
		return nil, shared.NewNetworkError("config range returned an unexpected shape")
	}

	record := &esb.CredentialRecord{
		Username:     strings.TrimSpace(cells[0] + cells[1]),
		Password:     strings.TrimSpace(cells[2]),
		CompanyCode:  strings.TrimSpace(cells[5]),
		CompanyName:  strings.TrimSpace(cells[6]),
		AccessToken:  strings.TrimSpace(cells[7]),
		RefreshToken: strings.TrimSpace(cells[8]),
	}
	if ts, ok := esb.ParseTokenTimestamp(strings.TrimSpace(cells[9])); ok {
		record.TokenMintedAt = ts
	}
	m.record = record
	return record, nil
}

// WriteSession persists a full session and refreshes the cached record
func (m *ConfigManager) WriteSession(ctx context.Context, session esb.Session, mintedAt time.Time) error {
	values := [][]string{
		{session.CompanyCode},
		{session.CompanyName},
		{session.AccessToken},
		{session.RefreshToken},
		{esb.FormatTokenTimestamp(mintedAt)},
	}
	if err := m.client.SetRange(ctx, sessionWriteRange, values); err != nil {
		return err
	}
	m.updateCache(func(r *esb.CredentialRecord) {
		r.CompanyCode = session.CompanyCode
		r.CompanyName = session.CompanyName
		r.AccessToken = session.AccessToken
		r.RefreshToken = session.RefreshToken
		r.TokenMintedAt = mintedAt
	})
	return nil
}

// WriteTokens persists only the token cells and refreshes the cache
func (m *ConfigManager) WriteTokens(ctx context.Context, access, refresh string, mintedAt time.Time) error {
	values := [][]string{
		{access},
		{refresh},
		{esb.FormatTokenTimestamp(mintedAt)},
	}
	if err := m.client.SetRange(ctx, tokenWriteRange, values); err != nil {
		return err
	}
	m.updateCache(func(r *esb.CredentialRecord) {
		r.AccessToken = access
		r.RefreshToken = refresh
		r.TokenMintedAt = mintedAt
	})
	return nil
}

func (m *ConfigManager) updateCache(apply func(*esb.CredentialRecord)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.record == nil {
		m.record = &esb.CredentialRecord{}
		m.loaded = true
	}
	apply(m.record)
}

// Ensure ConfigManager implements the credential backend port
var _ esb.CredentialBackend = (*ConfigManager)(nil)
