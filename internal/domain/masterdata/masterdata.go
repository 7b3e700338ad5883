package masterdata

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// Outlet is a company branch that can send or receive mutations
type Outlet struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Product is one sellable item offered on the mutation form
type Product struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Code   string          `json:"default_code"`
	Uom    string          `json:"uom_name"`
	Price  decimal.Decimal `json:"harga"`
	Source string          `json:"source,omitempty"`
}

// OutletProvider fetches the outlet list from an upstream system
type OutletProvider interface {
	FetchOutlets(ctx context.Context) ([]Outlet, error)
}

// ProductProvider fetches products from an upstream system
type ProductProvider interface {
	FetchProducts(ctx context.Context, companyID string) ([]Product, error)
}

// Key returns the merge key of a product: the trimmed lowercase item
// code, falling back to the name when no code is assigned.
func (p Product) Key() string {
	if code := strings.ToLower(strings.TrimSpace(p.Code)); code != "" {
		return code
	}
	return strings.ToLower(strings.TrimSpace(p.Name))
}

// MergeProducts combines the ERP and sales-service catalogs. ERP entries
// win collisions; sales-service entries fill keys the ERP does not have.
// Keyless entries are dropped.
func MergeProducts(erp, esb []Product) []Product {
	merged := make(map[string]Product)
	var order []string

	for _, p := range erp {
		key := p.Key()
		if key == "" {
			continue
		}
		if _, ok := merged[key]; !ok {
			order = append(order, key)
		}
		merged[key] = p
	}
	for _, p := range esb {
		key := p.Key()
		if key == "" {
			continue
		}
		if _, ok := merged[key]; ok {
			continue
		}
		merged[key] = p
		order = append(order, key)
	}

	out := make([]Product, 0, len(order))
	for _, key := range order {
		out = append(out, merged[key])
	}
	return out
}

// FindOutletByName returns the outlet whose name matches case-insensitively
func FindOutletByName(outlets []Outlet, name string) (Outlet, bool) {
	target := strings.ToLower(strings.TrimSpace(name))
	if target == "" {
		return Outlet{}, false
	}
	for _, o := range outlets {
		if strings.ToLower(strings.TrimSpace(o.Name)) == target {
			return o, true
		}
	}
	return Outlet{}, false
}

// FindOutletByID returns the outlet with the given id
func FindOutletByID(outlets []Outlet, id string) (Outlet, bool) {
	if id == "" {
		return Outlet{}, false
	}
	for _, o := range outlets {
		if o.ID == id {
			return o, true
		}
	}
	return Outlet{}, false
}
