package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutasi/backend/internal/domain/esb"
	"github.com/mutasi/backend/internal/domain/shared"
)

type gasCall struct {
	method string
	query  map[string]string
	body   map[string]any
}

// newFakeGAS spins up a fake Apps Script endpoint that records calls and
// answers with the given payload.
func newFakeGAS(t *testing.T, respond func(call gasCall) any) (*httptest.Server, *[]gasCall) {
	t.Helper()
	var calls []gasCall
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := gasCall{method: r.Method, query: map[string]string{}}
		for k := range r.URL.Query() {
			call.query[k] = r.URL.Query().Get(k)
		}
		if r.Method == http.MethodPost {
			_ = json.NewDecoder(r.Body).Decode(&call.body)
		}
		calls = append(calls, call)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(respond(call))
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func sheetValues(cells ...string) [][]string {
	rows := make([][]string, len(cells))
	for i, c := range cells {
		rows[i] = []string{c}
	}
	return rows
}

func TestCredentialStoreReadCredentials(t *testing.T) {
	server, calls := newFakeGAS(t, func(call gasCall) any {
		return map[string]any{
			"ok": true,
			"values": sheetValues(
				"user@", "example.com", // username split across two cells
				"s3cret",
				"", "", // reserved
				"CC01", "Outlet Pusat",
				"access-token-value", "refresh-token-value",
				"2025-06-01 10:30:00",
			),
		}
	})

	store := NewCredentialStore(NewClient(Config{GasURL: server.URL, APISecret: "k"}))
	record, err := store.ReadCredentials(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "user@example.com", record.Username)
	assert.Equal(t, "s3cret", record.Password)
	assert.Equal(t, "CC01", record.CompanyCode)
	assert.Equal(t, "Outlet Pusat", record.CompanyName)
	assert.Equal(t, "access-token-value", record.AccessToken)
	assert.Equal(t, "refresh-token-value", record.RefreshToken)
	assert.False(t, record.TokenMintedAt.IsZero())

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, http.MethodGet, call.method)
	assert.Equal(t, "E2:E11", call.query["range"])
	assert.Equal(t, "raw", call.query["type"])
	assert.Equal(t, "k", call.query["key"])
	assert.Equal(t, DefaultSheetName, call.query["sheet"])
	assert.Equal(t, DefaultGID, call.query["gid"])
}

func TestCredentialStoreReadShortResponsePadded(t *testing.T) {
	server, _ := newFakeGAS(t, func(call gasCall) any {
		return map[string]any{"ok": true, "values": sheetValues("user", "", "pw")}
	})

	store := NewCredentialStore(NewClient(Config{GasURL: server.URL, APISecret: "k"}))
	record, err := store.ReadCredentials(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "user", record.Username)
	assert.Equal(t, "pw", record.Password)
	assert.Empty(t, record.AccessToken)
	assert.True(t, record.TokenMintedAt.IsZero())
}

func TestCredentialStoreWriteSession(t *testing.T) {
	server, calls := newFakeGAS(t, func(call gasCall) any {
		return map[string]any{"ok": true}
	})

	store := NewCredentialStore(NewClient(Config{GasURL: server.URL, APISecret: "k"}))
	minted := time.Date(2025, 6, 1, 10, 30, 0, 0, time.Local)
	err := store.WriteSession(context.Background(), esb.Session{
		AccessToken:  "at",
		RefreshToken: "rt",
		CompanyCode:  "CC01",
		CompanyName:  "Outlet Pusat",
	}, minted)

	require.NoError(t, err)
	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "E7:E11", call.body["range"])

	values, ok := call.body["values"].([]any)
	require.True(t, ok)
	require.Len(t, values, 5)
	assert.Equal(t, []any{"CC01"}, values[0])
	assert.Equal(t, []any{"at"}, values[2])
	assert.Equal(t, []any{"2025-06-01 10:30:00"}, values[4])
}

func TestCredentialStoreWriteTokens(t *testing.T) {
	server, calls := newFakeGAS(t, func(call gasCall) any {
		return map[string]any{"ok": true}
	})

	store := NewCredentialStore(NewClient(Config{GasURL: server.URL, APISecret: "k"}))
	err := store.WriteTokens(context.Background(), "at", "rt", time.Now())

	require.NoError(t, err)
	require.Len(t, *calls, 1)
	assert.Equal(t, "E9:E11", (*calls)[0].body["range"])
}

func TestClientOKFalseIsError(t *testing.T) {
	server, _ := newFakeGAS(t, func(call gasCall) any {
		return map[string]any{"ok": false, "error": "range locked"}
	})

	store := NewCredentialStore(NewClient(Config{GasURL: server.URL, APISecret: "k"}))
	_, err := store.ReadCredentials(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "range locked")
}

func TestClientMissingConfigIsConfigurationError(t *testing.T) {
	store := NewCredentialStore(NewClient(Config{}))
	_, err := store.ReadCredentials(context.Background())

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, shared.CodeConfiguration, domainErr.Code)
}

func TestConfigManagerLoadsOnce(t *testing.T) {
	server, calls := newFakeGAS(t, func(call gasCall) any {
		return map[string]any{
			"ok": true,
			"values": sheetValues(
				"user", "", "pw", "", "", "CC01", "Outlet", "at", "rt", "2025-06-01 10:30:00",
			),
		}
	})

	mgr := NewConfigManager(NewClient(Config{GasURL: server.URL, APISecret: "k"}))

	first, err := mgr.ReadCredentials(context.Background())
	require.NoError(t, err)
	second, err := mgr.ReadCredentials(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, *calls, 1, "config is loaded at most once per process")
}

func TestConfigManagerWriteTokensUpdatesCache(t *testing.T) {
	server, _ := newFakeGAS(t, func(call gasCall) any {
		if call.method == http.MethodGet {
			return map[string]any{
				"ok": true,
				"values": sheetValues(
					"user", "", "pw", "", "", "CC01", "Outlet", "old-at", "old-rt", "2025-06-01 10:30:00",
				),
			}
		}
		return map[string]any{"ok": true}
	})

	mgr := NewConfigManager(NewClient(Config{GasURL: server.URL, APISecret: "k"}))
	_, err := mgr.ReadCredentials(context.Background())
	require.NoError(t, err)

	require.NoError(t, mgr.WriteTokens(context.Background(), "new-at", "new-rt", time.Now()))

	record, err := mgr.ReadCredentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new-at", record.AccessToken)
	assert.Equal(t, "new-rt", record.RefreshToken)
}
