package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/vendingbot/internal/domain"
)

func snapshot(items map[string]domain.StockItem) domain.StockSnapshot {
	return domain.StockSnapshot{Date: "2026-09-01", Phase: domain.PhaseOpening, Items: items}
}

func TestFulfillFirstValidItemWins(t *testing.T) {
	stock := snapshot(map[string]domain.StockItem{
		"Cola":  {Quantity: 2, Price: 2.5},
		"Chips": {Quantity: 1, Price: 2.0},
	})

	res := Fulfill([]string{"Cola", "Chips"}, stock)

	assert.Equal(t, []string{"Cola"}, res.Fulfilled)
	assert.Equal(t, []string{"Chips"}, res.Rejected)
	assert.Equal(t, 2.5, res.Spend)
	assert.Equal(t, 1, stock.Items["Cola"].Quantity)
	assert.Equal(t, 1, stock.Items["Chips"].Quantity)
}

func TestFulfillSkipsUnknownAndSoldOut(t *testing.T) {
	stock := snapshot(map[string]domain.StockItem{
		"Cola":  {Quantity: 0, Price: 2.5},
		"Water": {Quantity: 3, Price: 1.0},
	})

	res := Fulfill([]string{"Cola", "Juice", "Water"}, stock)

	assert.Equal(t, []string{"Water"}, res.Fulfilled)
	assert.Equal(t, []string{"Cola", "Juice"}, res.Rejected)
	assert.Equal(t, 1.0, res.Spend)
	assert.Equal(t, 0, stock.Items["Cola"].Quantity)
	assert.Equal(t, 2, stock.Items["Water"].Quantity)
}

func TestFulfillEmptyDecision(t *testing.T) {
	stock := snapshot(map[string]domain.StockItem{"Cola": {Quantity: 1, Price: 2.5}})

	res := Fulfill(nil, stock)

	assert.Empty(t, res.Fulfilled)
	assert.Empty(t, res.Rejected)
	assert.Zero(t, res.Spend)
}

func TestRenderAssortmentNameOrderWithSoldOut(t *testing.T) {
	stock := snapshot(map[string]domain.StockItem{
		"Water": {Quantity: 3, Price: 1.0},
		"Cola":  {Quantity: 0, Price: 2.5},
	})

	out := RenderAssortment(stock)

	assert.Equal(t, "1. Cola = $2.5 (remaining: 0)\n2. Water = $1 (remaining: 3)", out)
}
