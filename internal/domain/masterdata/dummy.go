package masterdata

import "github.com/shopspring/decimal"

// Reads degrade to this fixed data when no upstream is configured or
// reachable, so the form stays usable in isolated environments. Writes
// never degrade.

// DummyOutlets returns the fallback outlet set
func DummyOutlets() []Outlet {
	return []Outlet{
		{ID: "1", Name: "Outlet Dummy A"},
		{ID: "2", Name: "Outlet Dummy B"},
		{ID: "3", Name: "Outlet Dummy C"},
	}
}

// DummyProducts returns the fallback product set
func DummyProducts() []Product {
	return []Product{
		{ID: "1", Name: "Produk Dummy 1", Code: "PRD-001", Uom: "PCS", Price: decimal.Zero},
		{ID: "2", Name: "Produk Dummy 2", Code: "PRD-002", Uom: "PCS", Price: decimal.Zero},
	}
}
