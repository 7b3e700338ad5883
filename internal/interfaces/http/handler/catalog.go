package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/mutasi/backend/internal/application/catalog"
	"github.com/mutasi/backend/internal/domain/masterdata"
	"github.com/mutasi/backend/internal/interfaces/http/middleware"
)

// CatalogHandler serves the outlet and product master data
type CatalogHandler struct {
	BaseHandler
	svc *catalog.Service
}

// NewCatalogHandler creates a catalog handler
func NewCatalogHandler(svc *catalog.Service) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// RegisterRoutes registers the catalog routes
func (h *CatalogHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/outlets", h.Outlets)
	rg.GET("/products", h.Products)
}

// Outlets handles GET /outlets
func (h *CatalogHandler) Outlets(c *gin.Context) {
	if middleware.GetClaims(c) == nil {
		h.Unauthorized(c)
		return
	}
	h.Success(c, h.svc.Outlets(c.Request.Context()))
}

// Products handles GET /products?outlet_id=. An absent outlet id yields
// an empty list rather than an error, like the master data reads it
// fronts.
func (h *CatalogHandler) Products(c *gin.Context) {
	if middleware.GetClaims(c) == nil {
		h.Unauthorized(c)
		return
	}
	products := h.svc.Products(c.Request.Context(), c.Query("outlet_id"))
	if products == nil {
		products = []masterdata.Product{}
	}
	h.Success(c, products)
}
