package sim

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/vendingbot/internal/domain"
	"github.com/alanyoungcy/vendingbot/internal/retry"
	"github.com/alanyoungcy/vendingbot/internal/store/memory"
)

type scriptedOracle struct {
	decisions map[string]domain.PurchaseDecision
	err       error
}

func (o scriptedOracle) DecidePurchase(ctx context.Context, c domain.Customer, _ domain.StockSnapshot) (domain.PurchaseDecision, error) {
	if o.err != nil {
		return domain.PurchaseDecision{}, o.err
	}
	if dec, ok := o.decisions[c.ID]; ok {
		return dec, nil
	}
	return domain.NoDecision(), nil
}

// greedyOracle always buys the first in-stock product in name order.
type greedyOracle struct{}

func (greedyOracle) DecidePurchase(ctx context.Context, _ domain.Customer, stock domain.StockSnapshot) (domain.PurchaseDecision, error) {
	for _, name := range stock.Names() {
		if stock.Items[name].Quantity > 0 {
			return domain.PurchaseDecision{Kind: domain.DecisionItems, Items: []string{name}}, nil
		}
	}
	return domain.NoDecision(), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func onceOnly() retry.Policy {
	return retry.Policy{MaxAttempts: 1}
}

func seedDay(t *testing.T, store *memory.Store, items map[string]domain.StockItem, balance float64) {
	t.Helper()
	var records []domain.StockRecord
	for name, it := range items {
		records = append(records, domain.StockRecord{
			ID: "seed-" + name, Name: name, Quantity: it.Quantity, Price: it.Price,
			Date: "2026-08-31", Phase: domain.PhaseClosing, Active: true,
		})
	}
	require.NoError(t, store.CommitTransition(context.Background(), domain.Transition{
		NewStock:   records,
		NewBalance: domain.BalanceSnapshot{ID: "seed-bal", Balance: balance, Date: "2026-08-31", Phase: domain.PhaseClosing, Active: true},
	}))
}

func TestRunDayFulfillsAndCommitsClosingSnapshot(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedDay(t, store, map[string]domain.StockItem{
		"Cola":  {Quantity: 2, Price: 2.5},
		"Chips": {Quantity: 1, Price: 2.0},
	}, 100)

	require.NoError(t, store.Customers().Put(ctx, []domain.Customer{
		{ID: "c1"}, {ID: "c2"}, {ID: "c3"},
	}))

	oracle := scriptedOracle{decisions: map[string]domain.PurchaseDecision{
		"c1": {Kind: domain.DecisionItems, Items: []string{"Cola"}, Request: "stock some juice"},
		"c2": {Kind: domain.DecisionItems, Items: []string{"Chips", "Water"}},
		"c3": domain.MalformedDecision("garbage"),
	}}

	d := NewDriver(store, store.Customers(), oracle, onceOnly(), nil, testLogger())
	report, err := d.RunDay(ctx, Config{Date: "2026-09-01"})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Visits)
	assert.Equal(t, 2, report.UnitsSold)
	assert.Equal(t, 4.5, report.Spend)
	assert.Equal(t, 100.0, report.OpeningBalance)
	assert.Equal(t, 104.5, report.ClosingBalance)
	assert.Equal(t, 1, report.Rejections)
	assert.Equal(t, 1, report.Malformed)
	assert.Equal(t, map[string]int{"Cola": 1, "Chips": 1}, report.SoldByProduct)
	assert.Equal(t, map[string]int{"Cola": 1, "Chips": 0}, report.ClosingStock)

	stock, err := store.ReadActiveStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseClosing, stock.Phase)
	assert.Equal(t, "2026-09-01", stock.Date)
	assert.Equal(t, 1, stock.Items["Cola"].Quantity)
	assert.Equal(t, 0, stock.Items["Chips"].Quantity)

	bal, err := store.ReadActiveBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 104.5, bal.Balance)
	assert.Equal(t, domain.PhaseClosing, bal.Phase)

	events, err := store.ReadEvents(ctx, "2026-09-01")
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, domain.EventPurchase, events[0].Type)
	assert.Equal(t, "Cola", events[0].Title)
	assert.Equal(t, 2.5, events[0].Price)
	assert.Equal(t, domain.EventRequest, events[1].Type)
	assert.Equal(t, "stock some juice", events[1].Title)
	assert.Equal(t, domain.EventPurchase, events[2].Type)
	assert.Equal(t, "Chips", events[2].Title)
	assert.Equal(t, domain.EventNoStock, events[3].Type)
	assert.Equal(t, "c3", events[3].Customer)
}

func TestRunDayFirstEverBalanceStartsAtZero(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.CommitTransition(ctx, domain.Transition{
		NewStock: []domain.StockRecord{
			{ID: "s1", Name: "Cola", Quantity: 1, Price: 2.0, Date: "2026-08-31", Phase: domain.PhaseOpening, Active: true},
		},
		// No balance row yet: leave NewBalance inactive so ReadActiveBalance
		// reports not found.
		NewBalance: domain.BalanceSnapshot{ID: "none", Active: false},
	}))
	require.NoError(t, store.Customers().Put(ctx, []domain.Customer{{ID: "c1"}}))

	d := NewDriver(store, store.Customers(), greedyOracle{}, onceOnly(), nil, testLogger())
	report, err := d.RunDay(ctx, Config{Date: "2026-09-01"})
	require.NoError(t, err)

	assert.Equal(t, 0.0, report.OpeningBalance)
	assert.Equal(t, 2.0, report.ClosingBalance)
}

func TestRunDayOracleFaultDegradesToNoStock(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedDay(t, store, map[string]domain.StockItem{"Cola": {Quantity: 5, Price: 2.5}}, 50)
	require.NoError(t, store.Customers().Put(ctx, []domain.Customer{{ID: "c1"}, {ID: "c2"}}))

	d := NewDriver(store, store.Customers(), scriptedOracle{err: errors.New("oracle down")}, onceOnly(), nil, testLogger())
	report, err := d.RunDay(ctx, Config{Date: "2026-09-01"})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Faults)
	assert.Zero(t, report.UnitsSold)
	assert.Equal(t, 50.0, report.ClosingBalance)

	events, err := store.ReadEvents(ctx, "2026-09-01")
	require.NoError(t, err)
	require.Len(t, events, 2)
	for _, ev := range events {
		assert.Equal(t, domain.EventNoStock, ev.Type)
	}
	// Stock is untouched when nothing was dispensed.
	stock, err := store.ReadActiveStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stock.Items["Cola"].Quantity)
}

func TestRunDayEventTimesFollowSimClock(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedDay(t, store, map[string]domain.StockItem{"Cola": {Quantity: 5, Price: 2.5}}, 0)
	require.NoError(t, store.Customers().Put(ctx, []domain.Customer{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}}))

	d := NewDriver(store, store.Customers(), greedyOracle{}, onceOnly(), nil, testLogger())
	_, err := d.RunDay(ctx, Config{Date: "2026-09-01", StartTime: "10:30:00"})
	require.NoError(t, err)

	events, err := store.ReadEvents(ctx, "2026-09-01")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "10:30:00", events[0].Time.Format("15:04:05"))
	for i := 1; i < len(events); i++ {
		assert.Equal(t, 90.0, events[i].Time.Sub(events[i-1].Time).Seconds())
	}
}

func TestRunDayShuffleIsDeterministicPerSeed(t *testing.T) {
	run := func(seed int64) []string {
		ctx := context.Background()
		store := memory.New()
		seedDay(t, store, map[string]domain.StockItem{"Cola": {Quantity: 10, Price: 2.0}}, 0)
		roster := []domain.Customer{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}, {ID: "e"}}
		require.NoError(t, store.Customers().Put(ctx, roster))

		d := NewDriver(store, store.Customers(), greedyOracle{}, onceOnly(), nil, testLogger())
		_, err := d.RunDay(ctx, Config{Date: "2026-09-01", Shuffle: true, Seed: seed})
		require.NoError(t, err)

		events, err := store.ReadEvents(ctx, "2026-09-01")
		require.NoError(t, err)
		order := make([]string, len(events))
		for i, ev := range events {
			order[i] = ev.Customer
		}
		return order
	}

	assert.Equal(t, run(42), run(42))
}
