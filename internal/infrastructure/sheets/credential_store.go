package sheets

import (
	"context"
	"strings"
	"time"

	"github.com/mutasi/backend/internal/domain/esb"
	"github.com/mutasi/backend/internal/domain/shared"
)

// Cell layout of the shared credential sheet. The username is split
// across two cells; E5 and E6 are reserved. Adjust these when the sheet
// layout changes.
const (
	credentialRange   = "E2:E11"
	sessionWriteRange = "E7:E11"
	tokenWriteRange   = "E9:E11"
)

// CredentialStore reads and writes the ESB credential record on the
// shared Google Sheet. This is the preferred credential backend: any
// process that logs in writes the session back here so the others reuse
// it instead of minting their own tokens.
type CredentialStore struct {
	client *Client
}

// NewCredentialStore creates a credential store over a sheet client
func NewCredentialStore(client *Client) *CredentialStore {
	return &CredentialStore{client: client}
}

// ReadCredentials loads the credential record from the fixed range
func (s *CredentialStore) ReadCredentials(ctx context.Context) (*esb.CredentialRecord, error) {
	rows, err := s.client.FetchRange(ctx, credentialRange)
	if err != nil {
		return nil, err
	}

	// E2..E11, one cell per row
	cells := flattenColumn(rows, 10)
	if cells == nil {
		return nil, shared.NewNetworkError("credential range returned an unexpected shape")
	}

	record := &esb.CredentialRecord{
		Username:     strings.TrimSpace(cells[0] + cells[1]),
		Password:     cells[2],
		CompanyCode:  cells[5],
		CompanyName:  cells[6],
		AccessToken:  cells[7],
		RefreshToken: cells[8],
	}
	if ts, ok := esb.ParseTokenTimestamp(cells[9]); ok {
		record.TokenMintedAt = ts
	}
	return record, nil
}

// WriteSession persists a full session to E7:E11
func (s *CredentialStore) WriteSession(ctx context.Context, session esb.Session, mintedAt time.Time) error {
	values := [][]string{
		{session.CompanyCode},
		{session.CompanyName},
		{session.AccessToken},
		{session.RefreshToken},
		{esb.FormatTokenTimestamp(mintedAt)},
	}
	return s.client.SetRange(ctx, sessionWriteRange, values)
}

// WriteTokens persists only the token cells E9:E11
func (s *CredentialStore) WriteTokens(ctx context.Context, access, refresh string, mintedAt time.Time) error {
	values := [][]string{
		{access},
		{refresh},
		{esb.FormatTokenTimestamp(mintedAt)},
	}
	return s.client.SetRange(ctx, tokenWriteRange, values)
}

// flattenColumn turns the row-per-cell response of a single-column range
// into a flat slice of n cells, padding short responses with empty strings.
// Returns nil when the response has more rows than expected.
func flattenColumn(rows [][]string, n int) []string {
	if len(rows) > n {
		return nil
	}
	cells := make([]string, n)
	for i, row := range rows {
		if len(row) > 0 {
			cells[i] = row[0]
		}
	}
	return cells
}

// Ensure CredentialStore implements the credential backend port
var _ esb.CredentialBackend = (*CredentialStore)(nil)
