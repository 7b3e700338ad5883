// Package catalog serves the outlet and product master data that the
// mutation form is built from. Data is merged from the ERP and the ESB
// sales service, cached, and degrades to fixed dummies when neither
// upstream is reachable.
package catalog

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mutasi/backend/internal/domain/masterdata"
	"github.com/mutasi/backend/internal/infrastructure/cache"
)

const outletCacheKey = "outlets"

// Service aggregates master data from the upstream systems
type Service struct {
	outlets     masterdata.OutletProvider
	erpProducts masterdata.ProductProvider
	esbProducts masterdata.ProductProvider
	logger      *zap.Logger

	outletCache  *cache.TTLCache[[]masterdata.Outlet]
	productCache *cache.TTLCache[[]masterdata.Product]
}

// Config holds the cache TTLs
type Config struct {
	OutletTTL  time.Duration
	ProductTTL time.Duration
}

// NewService creates the catalog service. Any provider may be nil when
// the corresponding upstream is not configured.
func NewService(cfg Config, outlets masterdata.OutletProvider, erpProducts, esbProducts masterdata.ProductProvider, logger *zap.Logger) *Service {
	if cfg.OutletTTL <= 0 {
		cfg.OutletTTL = 5 * time.Minute
	}
	if cfg.ProductTTL <= 0 {
		cfg.ProductTTL = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		outlets:      outlets,
		erpProducts:  erpProducts,
		esbProducts:  esbProducts,
		logger:       logger,
		outletCache:  cache.NewTTLCache[[]masterdata.Outlet](cfg.OutletTTL),
		productCache: cache.NewTTLCache[[]masterdata.Product](cfg.ProductTTL),
	}
}

// Outlets returns the outlet list. Upstream failures fall back to the
// dummy set, which is cached like a real answer so a flapping ERP does
// not get hammered.
func (s *Service) Outlets(ctx context.Context) []masterdata.Outlet {
	if cached, ok := s.outletCache.Get(outletCacheKey); ok {
		return cached
	}

	outlets := s.fetchOutlets(ctx)
	if len(outlets) == 0 {
		outlets = masterdata.DummyOutlets()
	}
	s.outletCache.Set(outletCacheKey, outlets)
	return outlets
}

func (s *Service) fetchOutlets(ctx context.Context) []masterdata.Outlet {
	if s.outlets == nil {
		return nil
	}
	outlets, err := s.outlets.FetchOutlets(ctx)
	if err != nil {
		s.logger.Warn("outlet fetch failed, using dummy data", zap.Error(err))
		return nil
	}
	return outlets
}

// Products returns the merged product catalog of one company. ERP
// entries win key collisions; ESB entries fill the gaps. An unknown
// company yields an empty list.
func (s *Service) Products(ctx context.Context, companyID string) []masterdata.Product {
	if companyID == "" {
		return nil
	}

	if cached, ok := s.productCache.Get(companyID); ok {
		return cached
	}

	erp := s.fetchProducts(ctx, s.erpProducts, companyID, "erp")
	esb := s.fetchProducts(ctx, s.esbProducts, companyID, "esb")

	var products []masterdata.Product
	if len(erp) == 0 && len(esb) == 0 {
		products = masterdata.DummyProducts()
	} else {
		products = masterdata.MergeProducts(erp, esb)
		if len(products) == 0 {
			products = masterdata.DummyProducts()[:1]
		}
	}

	s.productCache.Set(companyID, products)
	return products
}

func (s *Service) fetchProducts(ctx context.Context, provider masterdata.ProductProvider, companyID, source string) []masterdata.Product {
	if provider == nil {
		return nil
	}
	products, err := provider.FetchProducts(ctx, companyID)
	if err != nil {
		s.logger.Warn("product fetch failed",
			zap.String("source", source),
			zap.String("company_id", companyID),
			zap.Error(err))
		return nil
	}
	return products
}

// ResolveOutletID maps a form submission to an outlet id. An explicit
// id always wins; otherwise the name is matched case-insensitively.
func (s *Service) ResolveOutletID(ctx context.Context, outletID, outletName string) string {
	if outletID != "" {
		return outletID
	}
	if outletName == "" {
		return ""
	}
	if outlet, ok := masterdata.FindOutletByName(s.Outlets(ctx), outletName); ok {
		return outlet.ID
	}
	return ""
}

// OutletByID looks an outlet up by id
func (s *Service) OutletByID(ctx context.Context, outletID string) (masterdata.Outlet, bool) {
	return masterdata.FindOutletByID(s.Outlets(ctx), outletID)
}
