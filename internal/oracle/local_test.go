package oracle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/vendingbot/internal/domain"
	"github.com/alanyoungcy/vendingbot/internal/scoring"
)

func localCatalog() []domain.CatalogEntry {
	return []domain.CatalogEntry{
		{Name: "Cola", SellPrice: 2.5, SupplierCost: 1.0, Weights: domain.ProductWeights{Sugar: 0.9, Caffeine: 0.6}},
		{Name: "Water", SellPrice: 1.0, SupplierCost: 0.3, Weights: domain.ProductWeights{Health: 1.0}},
	}
}

func TestLocalPicksByPreference(t *testing.T) {
	l := NewLocal(localCatalog(), scoring.DefaultParams(), 1)
	stock := domain.StockSnapshot{Items: map[string]domain.StockItem{
		"Cola":  {Quantity: 3, Price: 2.5},
		"Water": {Quantity: 3, Price: 1.0},
	}}

	dec, err := l.DecidePurchase(context.Background(), domain.Customer{
		ID:    "c1",
		Prefs: domain.Preferences{Health: 1.0, Hunger: 0.5},
	}, stock)
	require.NoError(t, err)

	assert.Equal(t, domain.DecisionItems, dec.Kind)
	assert.Equal(t, []string{"Water"}, dec.Items)
}

func TestLocalNoAffinityBuysNothing(t *testing.T) {
	params := scoring.DefaultParams()
	params.ThresholdBase = 0.5

	l := NewLocal(localCatalog(), params, 1)
	stock := domain.StockSnapshot{Items: map[string]domain.StockItem{
		"Cola": {Quantity: 3, Price: 2.5},
	}}

	dec, err := l.DecidePurchase(context.Background(), domain.Customer{ID: "c1"}, stock)
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionItems, dec.Kind)
	assert.Empty(t, dec.Items)
}

func TestTopUpRefillsCarriedThenFillsSlots(t *testing.T) {
	plan, err := TopUp{}.DecideRestockPlan(context.Background(), domain.RestockContext{
		Date: "2026-09-02",
		Stock: domain.StockSnapshot{Items: map[string]domain.StockItem{
			"Cola": {Quantity: 4, Price: 2.5},
		}},
		Balance: domain.BalanceSnapshot{Balance: 100},
		Catalog: localCatalog(),
	})
	require.NoError(t, err)

	require.Len(t, plan.Lines, 2)
	assert.Equal(t, domain.RestockLine{Product: "Cola", QuantityToBuy: 6, SellPrice: 2.5}, plan.Lines[0])
	assert.Equal(t, domain.RestockLine{Product: "Water", QuantityToBuy: 10, SellPrice: 1.0}, plan.Lines[1])
}

func TestTopUpRespectsBudget(t *testing.T) {
	plan, err := TopUp{}.DecideRestockPlan(context.Background(), domain.RestockContext{
		Date: "2026-09-02",
		Stock: domain.StockSnapshot{Items: map[string]domain.StockItem{
			"Cola": {Quantity: 2, Price: 2.5},
		}},
		Balance: domain.BalanceSnapshot{Balance: 3},
		Catalog: localCatalog(),
	})
	require.NoError(t, err)

	// $3 covers 3 Cola units at $1; Water only with what is left.
	require.NotEmpty(t, plan.Lines)
	assert.Equal(t, domain.RestockLine{Product: "Cola", QuantityToBuy: 3, SellPrice: 2.5}, plan.Lines[0])
	var spend float64
	for _, line := range plan.Lines {
		switch line.Product {
		case "Cola":
			spend += float64(line.QuantityToBuy) * 1.0
		case "Water":
			spend += float64(line.QuantityToBuy) * 0.3
		}
	}
	assert.LessOrEqual(t, spend, 3.0)
}
