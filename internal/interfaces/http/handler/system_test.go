package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutasi/backend/internal/infrastructure/auth"
	"github.com/mutasi/backend/internal/infrastructure/esbclient"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestSystemEndpoints(t *testing.T) {
	t.Run("health is always ok", func(t *testing.T) {
		engine := gin.New()
		NewSystemHandler("mutasi-backend", "1.2.3", nil).RegisterRoutes(engine.Group("/api/v1"))

		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "mutasi-backend")
	})

	t.Run("ready reflects the database", func(t *testing.T) {
		engine := gin.New()
		NewSystemHandler("mutasi-backend", "dev", stubPinger{err: errors.New("down")}).
			RegisterRoutes(engine.Group("/api/v1"))

		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

type stubReporter struct {
	status      *esbclient.TokenStatus
	err         error
	autoRefresh bool
}

func (s *stubReporter) TokenStatus(_ context.Context, autoRefresh bool) (*esbclient.TokenStatus, error) {
	s.autoRefresh = autoRefresh
	return s.status, s.err
}

func newEsbRouter(reporter TokenReporter, claims *auth.Claims) *gin.Engine {
	engine := gin.New()
	engine.Use(claimsInjector(claims))
	NewEsbHandler(reporter).RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func TestTokenStatusEndpoint(t *testing.T) {
	t.Run("reports the masked credential state", func(t *testing.T) {
		reporter := &stubReporter{status: &esbclient.TokenStatus{Source: "sheet", AccessTokenMasked: "abcd...wxyz"}}
		engine := newEsbRouter(reporter, adminClaims())

		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/esb/token-status", nil))

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `"source":"sheet"`)
		assert.False(t, reporter.autoRefresh)
	})

	t.Run("autoRefresh flag is forwarded", func(t *testing.T) {
		reporter := &stubReporter{status: &esbclient.TokenStatus{Source: "runtime"}}
		engine := newEsbRouter(reporter, adminClaims())

		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/esb/token-status?autoRefresh=true", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, reporter.autoRefresh)
	})

	t.Run("outlet users are denied", func(t *testing.T) {
		engine := newEsbRouter(&stubReporter{}, senderClaims())

		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/esb/token-status", nil))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unauthenticated is 401", func(t *testing.T) {
		engine := newEsbRouter(&stubReporter{}, nil)

		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/esb/token-status", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
