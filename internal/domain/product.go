// Package domain defines the core types of the vending simulation: the
// product catalog, versioned stock/balance snapshots, the append-only event
// ledger, customers, and restock plans, together with the store and oracle
// interfaces the engines consume.
package domain

import "math"

// ProductWeights are the attribute weights of a catalog product, each in [0,1].
// They feed the utility scoring of customer purchase decisions.
type ProductWeights struct {
	Sugar    float64
	Health   float64
	Caffeine float64
}

// CatalogEntry is one product in the supplier catalog. Name is the unique
// key across the whole system. SupplierCost is the per-unit buying price;
// SellPrice is the current machine selling price. Catalog entries are only
// updated by a restock commit.
type CatalogEntry struct {
	Name         string
	SellPrice    float64
	SupplierCost float64
	Weights      ProductWeights
}

// Clamp01 clamps v into [0,1], mapping NaN and infinities to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
