package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mutasi/backend/internal/interfaces/http/dto"
)

// Pinger checks the liveness of a backing service
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler serves health and readiness endpoints
type SystemHandler struct {
	BaseHandler
	appName string
	version string
	db      Pinger
}

// NewSystemHandler creates a system handler. db may be nil when no
// database is configured.
func NewSystemHandler(appName, version string, db Pinger) *SystemHandler {
	return &SystemHandler{appName: appName, version: version, db: db}
}

// RegisterRoutes registers the system routes
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
	rg.GET("/ready", h.Ready)
}

// Health handles GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	h.Success(c, gin.H{
		"status":  "ok",
		"app":     h.appName,
		"version": h.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready, verifying the database connection
func (h *SystemHandler) Ready(c *gin.Context) {
	if h.db != nil {
		if err := h.db.Ping(c.Request.Context()); err != nil {
			h.Error(c, dto.ErrCodeNotReady, "database is unreachable")
			return
		}
	}
	h.Success(c, gin.H{"status": "ready"})
}
