package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutasi/backend/internal/domain/masterdata"
)

type fakeOutletProvider struct {
	outlets []masterdata.Outlet
	err     error
	calls   int
}

func (f *fakeOutletProvider) FetchOutlets(context.Context) ([]masterdata.Outlet, error) {
	f.calls++
	return f.outlets, f.err
}

type fakeProductProvider struct {
	products []masterdata.Product
	err      error
	calls    int
}

func (f *fakeProductProvider) FetchProducts(context.Context, string) ([]masterdata.Product, error) {
	f.calls++
	return f.products, f.err
}

func realOutlets() []masterdata.Outlet {
	return []masterdata.Outlet{
		{ID: "1", Name: "Outlet Pusat"},
		{ID: "2", Name: "Outlet Cabang"},
	}
}

func TestOutlets(t *testing.T) {
	t.Run("serves upstream data and caches it", func(t *testing.T) {
		provider := &fakeOutletProvider{outlets: realOutlets()}
		svc := NewService(Config{}, provider, nil, nil, nil)
		ctx := context.Background()

		first := svc.Outlets(ctx)
		second := svc.Outlets(ctx)

		assert.Equal(t, realOutlets(), first)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, provider.calls, "second read must hit the cache")
	})

	t.Run("upstream failure falls back to dummies", func(t *testing.T) {
		provider := &fakeOutletProvider{err: errors.New("odoo down")}
		svc := NewService(Config{}, provider, nil, nil, nil)

		outlets := svc.Outlets(context.Background())

		assert.Equal(t, masterdata.DummyOutlets(), outlets)
		// The fallback is cached too.
		svc.Outlets(context.Background())
		assert.Equal(t, 1, provider.calls)
	})

	t.Run("nil provider yields dummies", func(t *testing.T) {
		svc := NewService(Config{}, nil, nil, nil, nil)

		assert.Equal(t, masterdata.DummyOutlets(), svc.Outlets(context.Background()))
	})
}

func TestProducts(t *testing.T) {
	erpItem := masterdata.Product{ID: "11", Name: "Gula", Code: "GUL-01", Uom: "KG", Price: decimal.NewFromInt(12000)}
	esbItem := masterdata.Product{ID: "esb-1", Name: "Kopi", Code: "KOP-01", Uom: "PCS", Price: decimal.NewFromInt(5000), Source: "ESB"}
	esbDupe := masterdata.Product{ID: "esb-2", Name: "Gula ESB", Code: "gul-01", Uom: "PCS", Price: decimal.NewFromInt(1), Source: "ESB"}

	t.Run("merges ERP and ESB with ERP winning collisions", func(t *testing.T) {
		erp := &fakeProductProvider{products: []masterdata.Product{erpItem}}
		esb := &fakeProductProvider{products: []masterdata.Product{esbItem, esbDupe}}
		svc := NewService(Config{}, nil, erp, esb, nil)

		products := svc.Products(context.Background(), "3")

		require.Len(t, products, 2)
		assert.Equal(t, "Gula", products[0].Name, "ERP entry wins the shared code")
		assert.Equal(t, "Kopi", products[1].Name)
	})

	t.Run("empty company id yields nothing", func(t *testing.T) {
		erp := &fakeProductProvider{products: []masterdata.Product{erpItem}}
		svc := NewService(Config{}, nil, erp, nil, nil)

		assert.Empty(t, svc.Products(context.Background(), ""))
		assert.Zero(t, erp.calls)
	})

	t.Run("both sources down yields dummies", func(t *testing.T) {
		erp := &fakeProductProvider{err: errors.New("odoo down")}
		esb := &fakeProductProvider{err: errors.New("esb down")}
		svc := NewService(Config{}, nil, erp, esb, nil)

		products := svc.Products(context.Background(), "3")

		assert.Equal(t, masterdata.DummyProducts(), products)
	})

	t.Run("caches per company", func(t *testing.T) {
		erp := &fakeProductProvider{products: []masterdata.Product{erpItem}}
		svc := NewService(Config{}, nil, erp, nil, nil)
		ctx := context.Background()

		svc.Products(ctx, "3")
		svc.Products(ctx, "3")
		assert.Equal(t, 1, erp.calls)

		svc.Products(ctx, "4")
		assert.Equal(t, 2, erp.calls, "a different company is a different cache entry")
	})
}

func TestResolveOutletID(t *testing.T) {
	provider := &fakeOutletProvider{outlets: realOutlets()}
	svc := NewService(Config{}, provider, nil, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name       string
		outletID   string
		outletName string
		want       string
	}{
		{"explicit id wins", "9", "Outlet Pusat", "9"},
		{"name resolves case-insensitively", "", "outlet cabang", "2"},
		{"name with padding resolves", "", "  Outlet Pusat  ", "1"},
		{"unknown name yields empty", "", "Gudang Baru", ""},
		{"nothing to resolve", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.ResolveOutletID(ctx, tt.outletID, tt.outletName))
		})
	}
}

func TestOutletByID(t *testing.T) {
	svc := NewService(Config{}, &fakeOutletProvider{outlets: realOutlets()}, nil, nil, nil)

	outlet, ok := svc.OutletByID(context.Background(), "2")
	require.True(t, ok)
	assert.Equal(t, "Outlet Cabang", outlet.Name)

	_, ok = svc.OutletByID(context.Background(), "99")
	assert.False(t, ok)
}
