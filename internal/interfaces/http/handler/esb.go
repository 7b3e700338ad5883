package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mutasi/backend/internal/domain/shared"
	"github.com/mutasi/backend/internal/infrastructure/esbclient"
	"github.com/mutasi/backend/internal/interfaces/http/middleware"
)

// TokenReporter exposes the credential diagnostics of the ESB client
type TokenReporter interface {
	TokenStatus(ctx context.Context, autoRefresh bool) (*esbclient.TokenStatus, error)
}

// EsbHandler serves the ESB operator endpoints
type EsbHandler struct {
	BaseHandler
	reporter TokenReporter
}

// NewEsbHandler creates an ESB handler
func NewEsbHandler(reporter TokenReporter) *EsbHandler {
	return &EsbHandler{reporter: reporter}
}

// RegisterRoutes registers the ESB routes
func (h *EsbHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/esb/token-status", h.TokenStatus)
}

// TokenStatus handles GET /esb/token-status. Only superadmins may read
// it. With autoRefresh=true the engine runs an ensure pass first, so the
// endpoint doubles as a manual token warm-up.
func (h *EsbHandler) TokenStatus(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		h.Unauthorized(c)
		return
	}
	if !claims.IsSuperadmin() {
		h.Error(c, shared.CodeForbidden, "Akses ditolak")
		return
	}

	autoRefresh, _ := strconv.ParseBool(c.DefaultQuery("autoRefresh", "false"))
	status, err := h.reporter.TokenStatus(c.Request.Context(), autoRefresh)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, status)
}
