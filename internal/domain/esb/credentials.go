package esb

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// TokenTimestampLayout is the wall-clock format written to the backing
// store alongside a freshly minted token.
const TokenTimestampLayout = "2006-01-02 15:04:05"

// CredentialRecord is the authoritative credential state as stored in
// the shared backing store.
type CredentialRecord struct {
	Username     string
	Password     string
	CompanyCode  string
	CompanyName  string
	AccessToken  string
	RefreshToken string
	// TokenMintedAt is when the stored access token was minted.
	// Zero when the stored timestamp is absent or unparseable.
	TokenMintedAt time.Time
}

// HasLoginCredentials reports whether a network login is possible
func (c *CredentialRecord) HasLoginCredentials() bool {
	return c.Username != "" && c.Password != ""
}

// Session is the result of a successful login or refresh
type Session struct {
	AccessToken  string
	RefreshToken string
	CompanyCode  string
	CompanyName  string
}

// CredentialBackend is the port to a shared credential store. The sheet
// store and the remote config manager both implement it; the token engine
// depends only on this interface.
type CredentialBackend interface {
	// ReadCredentials loads the full credential record
	ReadCredentials(ctx context.Context) (*CredentialRecord, error)

	// WriteSession persists a full session (company identity, both
	// tokens and the mint timestamp)
	WriteSession(ctx context.Context, s Session, mintedAt time.Time) error

	// WriteTokens persists only the token fields and the mint timestamp
	WriteTokens(ctx context.Context, access, refresh string, mintedAt time.Time) error
}

// MaskToken renders a token safe for diagnostics. Tokens no longer than
// the prefix are fully starred; everything else keeps a short head and
// tail around an ellipsis.
func MaskToken(token string) string {
	const prefix, suffix = 6, 4
	if token == "" {
		return ""
	}
	if len(token) <= prefix {
		return strings.Repeat("*", len(token))
	}
	return token[:prefix] + "..." + token[len(token)-suffix:]
}

// ParseTokenTimestamp parses a stored token timestamp. The preferred
// wall-clock layout, ISO-8601 and epoch seconds are accepted; anything
// else reads as unknown (zero time, false).
func ParseTokenTimestamp(raw string) (time.Time, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return time.Time{}, false
	}
	if strings.Contains(text, "T") {
		if t, err := time.Parse(time.RFC3339, strings.Replace(text, "Z", "+00:00", 1)); err == nil {
			return t, true
		}
		if t, err := time.Parse("2006-01-02T15:04:05", text); err == nil {
			return t, true
		}
	}
	if epoch, err := strconv.ParseFloat(text, 64); err == nil {
		sec := int64(epoch)
		nsec := int64((epoch - float64(sec)) * float64(time.Second))
		return time.Unix(sec, nsec), true
	}
	layouts := []string{
		TokenTimestampLayout,
		"2006-01-02 15:04",
		"02/01/2006 15:04:05",
		"02/01/2006 15:04",
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, text, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTokenTimestamp renders a mint instant in the stored layout
func FormatTokenTimestamp(t time.Time) string {
	return t.Format(TokenTimestampLayout)
}
