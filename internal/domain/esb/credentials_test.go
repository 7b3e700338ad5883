package esb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{name: "empty", token: "", want: ""},
		{name: "shorter than prefix", token: "ab", want: "**"},
		{name: "exactly prefix length", token: "abcdef", want: "******"},
		{name: "short token keeps head and tail", token: "abcdefgh", want: "abcdef...efgh"},
		{name: "long token", token: "abcdefghijklmnop", want: "abcdef...mnop"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskToken(tt.token))
		})
	}
}

func TestParseTokenTimestamp(t *testing.T) {
	t.Run("preferred layout", func(t *testing.T) {
		got, ok := ParseTokenTimestamp("2025-06-01 10:30:00")
		require.True(t, ok)
		assert.Equal(t, 2025, got.Year())
		assert.Equal(t, 30, got.Minute())
	})

	t.Run("iso8601", func(t *testing.T) {
		got, ok := ParseTokenTimestamp("2025-06-01T10:30:00Z")
		require.True(t, ok)
		assert.Equal(t, time.June, got.Month())
	})

	t.Run("epoch seconds", func(t *testing.T) {
		got, ok := ParseTokenTimestamp("1748773800")
		require.True(t, ok)
		assert.Equal(t, int64(1748773800), got.Unix())
	})

	t.Run("slash layout", func(t *testing.T) {
		got, ok := ParseTokenTimestamp("01/06/2025 10:30")
		require.True(t, ok)
		assert.Equal(t, time.June, got.Month())
		assert.Equal(t, 1, got.Day())
	})

	t.Run("blank reads as unknown", func(t *testing.T) {
		_, ok := ParseTokenTimestamp("   ")
		assert.False(t, ok)
	})

	t.Run("garbage reads as unknown", func(t *testing.T) {
		_, ok := ParseTokenTimestamp("yesterday")
		assert.False(t, ok)
	})
}

func TestFormatTokenTimestampRoundTrips(t *testing.T) {
	minted := time.Date(2025, 6, 1, 10, 30, 0, 0, time.Local)
	got, ok := ParseTokenTimestamp(FormatTokenTimestamp(minted))
	require.True(t, ok)
	assert.True(t, got.Equal(minted))
}

func TestHasLoginCredentials(t *testing.T) {
	assert.True(t, (&CredentialRecord{Username: "u", Password: "p"}).HasLoginCredentials())
	assert.False(t, (&CredentialRecord{Username: "u"}).HasLoginCredentials())
	assert.False(t, (&CredentialRecord{}).HasLoginCredentials())
}
