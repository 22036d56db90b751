package restock

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/vendingbot/internal/domain"
	"github.com/alanyoungcy/vendingbot/internal/store/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedMachine(t *testing.T, store *memory.Store, items map[string]domain.StockItem, balance float64) {
	t.Helper()
	ctx := context.Background()
	var records []domain.StockRecord
	for name, it := range items {
		records = append(records, domain.StockRecord{
			ID: "seed-" + name, Name: name, Quantity: it.Quantity, Price: it.Price,
			Date: "2026-09-01", Phase: domain.PhaseClosing, Active: true,
		})
	}
	require.NoError(t, store.CommitTransition(ctx, domain.Transition{
		NewStock:   records,
		NewBalance: domain.BalanceSnapshot{ID: "seed-bal", Balance: balance, Date: "2026-09-01", Phase: domain.PhaseClosing, Active: true},
	}))
	require.NoError(t, store.Catalog().Put(ctx, []domain.CatalogEntry{
		{Name: "Cola", SellPrice: 2.5, SupplierCost: 1.0},
		{Name: "Chips", SellPrice: 2.0, SupplierCost: 0.8},
		{Name: "Water", SellPrice: 1.0, SupplierCost: 0.3},
	}))
}

func newEngine(store *memory.Store, cfg Config) *Engine {
	return NewEngine(store, store.Catalog(), nil, cfg, nil, testLogger())
}

func TestApplyCommitsOpeningSnapshotAndChargesBalance(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedMachine(t, store, map[string]domain.StockItem{
		"Cola":  {Quantity: 3, Price: 2.5},
		"Chips": {Quantity: 0, Price: 2.0},
	}, 50)

	res, err := newEngine(store, Config{}).Apply(ctx, "2026-09-02", domain.RestockPlan{
		Lines: []domain.RestockLine{
			{Product: "Cola", QuantityToBuy: 5},
			{Product: "Chips", QuantityToBuy: 10, SellPrice: 2.2},
		},
	})
	require.NoError(t, err)

	// 5*1.0 + 10*0.8 = 13.
	assert.Equal(t, 13.0, res.Cost)
	assert.Equal(t, 37.0, res.NewBalance)
	assert.Equal(t, map[string]int{"Cola": 8, "Chips": 10}, res.Stocked)
	assert.Empty(t, res.Clamped)

	stock, err := store.ReadActiveStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseOpening, stock.Phase)
	assert.Equal(t, "2026-09-02", stock.Date)
	assert.Equal(t, 8, stock.Items["Cola"].Quantity)
	assert.Equal(t, domain.StockItem{Quantity: 10, Price: 2.2}, stock.Items["Chips"])

	bal, err := store.ReadActiveBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 37.0, bal.Balance)
	assert.Equal(t, domain.PhaseOpening, bal.Phase)

	// The plan's sell price is written back to the catalog.
	entries, err := store.Catalog().List(ctx)
	require.NoError(t, err)
	for _, e := range entries {
		if e.Name == "Chips" {
			assert.Equal(t, 2.2, e.SellPrice)
		}
	}
}

func TestApplyOverBudgetRejectsWholePlansUntouched(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedMachine(t, store, map[string]domain.StockItem{"Cola": {Quantity: 1, Price: 2.5}}, 3)

	_, err := newEngine(store, Config{}).Apply(ctx, "2026-09-02", domain.RestockPlan{
		Lines: []domain.RestockLine{{Product: "Cola", QuantityToBuy: 5}},
	})
	assert.ErrorIs(t, err, domain.ErrPlanRejected)

	// Prior state untouched: still the closing snapshot and full balance.
	stock, err := store.ReadActiveStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseClosing, stock.Phase)
	assert.Equal(t, 1, stock.Items["Cola"].Quantity)

	bal, err := store.ReadActiveBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3.0, bal.Balance)
}

func TestApplyUnknownProductRejects(t *testing.T) {
	store := memory.New()
	seedMachine(t, store, map[string]domain.StockItem{"Cola": {Quantity: 1, Price: 2.5}}, 100)

	_, err := newEngine(store, Config{}).Apply(context.Background(), "2026-09-02", domain.RestockPlan{
		Lines: []domain.RestockLine{{Product: "Energy Drink", QuantityToBuy: 2}},
	})
	assert.ErrorIs(t, err, domain.ErrPlanRejected)
}

func TestApplyClampModeTopsUpToCeiling(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedMachine(t, store, map[string]domain.StockItem{"Cola": {Quantity: 7, Price: 2.5}}, 100)

	res, err := newEngine(store, Config{Mode: ClampOverCapacity}).Apply(ctx, "2026-09-02", domain.RestockPlan{
		Lines: []domain.RestockLine{{Product: "Cola", QuantityToBuy: 9}},
	})
	require.NoError(t, err)

	// Only the 3 units that fit are bought and charged.
	assert.Equal(t, 3.0, res.Cost)
	assert.Equal(t, []string{"Cola"}, res.Clamped)
	assert.Equal(t, 10, res.Stocked["Cola"])

	stock, err := store.ReadActiveStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.MaxUnitsPerSlot, stock.Items["Cola"].Quantity)
}

func TestApplyRejectModeRefusesOverCapacity(t *testing.T) {
	store := memory.New()
	seedMachine(t, store, map[string]domain.StockItem{"Cola": {Quantity: 7, Price: 2.5}}, 100)

	_, err := newEngine(store, Config{Mode: RejectOverCapacity}).Apply(context.Background(), "2026-09-02", domain.RestockPlan{
		Lines: []domain.RestockLine{{Product: "Cola", QuantityToBuy: 9}},
	})
	assert.ErrorIs(t, err, domain.ErrPlanRejected)
}

func TestApplySlotLimitRejects(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	// Ten distinct products already stocked.
	items := map[string]domain.StockItem{}
	var catalog []domain.CatalogEntry
	for _, name := range []string{"P0", "P1", "P2", "P3", "P4", "P5", "P6", "P7", "P8", "P9"} {
		items[name] = domain.StockItem{Quantity: 1, Price: 1.0}
		catalog = append(catalog, domain.CatalogEntry{Name: name, SellPrice: 1.0, SupplierCost: 0.1})
	}
	catalog = append(catalog, domain.CatalogEntry{Name: "Extra", SellPrice: 1.0, SupplierCost: 0.1})
	seedMachine(t, store, items, 100)
	require.NoError(t, store.Catalog().Put(ctx, catalog))

	_, err := newEngine(store, Config{}).Apply(ctx, "2026-09-02", domain.RestockPlan{
		Lines: []domain.RestockLine{{Product: "Extra", QuantityToBuy: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrPlanRejected)
}

func TestApplyNewProductNeedsEmptySlotWhenRestricted(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedMachine(t, store, map[string]domain.StockItem{
		"Cola":  {Quantity: 3, Price: 2.5},
		"Chips": {Quantity: 0, Price: 2.0},
	}, 100)

	cfg := Config{NewProductsNeedEmptySlot: true}

	// One sold-out slot frees room for exactly one new product.
	res, err := newEngine(store, cfg).Apply(ctx, "2026-09-02", domain.RestockPlan{
		Lines: []domain.RestockLine{{Product: "Water", QuantityToBuy: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Stocked["Water"])

	// No empty slot left now, a second new product is refused.
	store2 := memory.New()
	seedMachine(t, store2, map[string]domain.StockItem{"Cola": {Quantity: 3, Price: 2.5}}, 100)
	_, err = newEngine(store2, cfg).Apply(ctx, "2026-09-02", domain.RestockPlan{
		Lines: []domain.RestockLine{{Product: "Water", QuantityToBuy: 4}},
	})
	assert.ErrorIs(t, err, domain.ErrPlanRejected)
}

func TestApplyDropsSoldOutRowsFromOpeningSnapshot(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedMachine(t, store, map[string]domain.StockItem{
		"Cola":  {Quantity: 2, Price: 2.5},
		"Chips": {Quantity: 0, Price: 2.0},
	}, 100)

	_, err := newEngine(store, Config{}).Apply(ctx, "2026-09-02", domain.RestockPlan{
		Lines: []domain.RestockLine{{Product: "Cola", QuantityToBuy: 1}},
	})
	require.NoError(t, err)

	stock, err := store.ReadActiveStock(ctx)
	require.NoError(t, err)
	_, hasChips := stock.Items["Chips"]
	assert.False(t, hasChips)
}

type brokenPutCatalog struct {
	domain.CatalogStore
	err error
}

func (c brokenPutCatalog) Put(ctx context.Context, entries []domain.CatalogEntry) error {
	return c.err
}

func TestApplyCommitSurvivesPriceWriteBackFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedMachine(t, store, map[string]domain.StockItem{"Cola": {Quantity: 3, Price: 2.5}}, 50)

	catalog := brokenPutCatalog{CatalogStore: store.Catalog(), err: errors.New("catalog down")}
	e := NewEngine(store, catalog, nil, Config{}, nil, testLogger())

	res, err := e.Apply(ctx, "2026-09-02", domain.RestockPlan{
		Lines: []domain.RestockLine{{Product: "Cola", QuantityToBuy: 5, SellPrice: 2.8}},
	})

	// The rotation already happened, so the result reports success even
	// though the price write-back was lost.
	require.NoError(t, err)
	assert.Equal(t, 45.0, res.NewBalance)

	stock, serr := store.ReadActiveStock(ctx)
	require.NoError(t, serr)
	assert.Equal(t, domain.PhaseOpening, stock.Phase)
	assert.Equal(t, 8, stock.Items["Cola"].Quantity)

	bal, berr := store.ReadActiveBalance(ctx)
	require.NoError(t, berr)
	assert.Equal(t, 45.0, bal.Balance)
}

type fakeLock struct{ err error }

func (f fakeLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if f.err != nil {
		return nil, f.err
	}
	return func() {}, nil
}

func TestApplyLockHeldFailsFast(t *testing.T) {
	store := memory.New()
	seedMachine(t, store, map[string]domain.StockItem{"Cola": {Quantity: 1, Price: 2.5}}, 100)

	e := NewEngine(store, store.Catalog(), fakeLock{err: domain.ErrLockHeld}, Config{}, nil, testLogger())
	_, err := e.Apply(context.Background(), "2026-09-02", domain.RestockPlan{
		Lines: []domain.RestockLine{{Product: "Cola", QuantityToBuy: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrLockHeld)
}
