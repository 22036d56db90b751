package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/vendingbot/internal/domain"
)

func TestReadActiveBalanceEmptyStore(t *testing.T) {
	s := New()
	_, err := s.ReadActiveBalance(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCommitTransitionRotatesActiveSnapshots(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.CommitTransition(ctx, domain.Transition{
		NewStock: []domain.StockRecord{
			{ID: "s1", Name: "Cola", Quantity: 5, Price: 2.5, Date: "2026-09-01", Phase: domain.PhaseOpening, Active: true},
		},
		NewBalance: domain.BalanceSnapshot{ID: "b1", Balance: 100, Date: "2026-09-01", Phase: domain.PhaseOpening, Active: true},
	})
	require.NoError(t, err)

	err = s.CommitTransition(ctx, domain.Transition{
		DeactivateStockIDs:  []string{"s1"},
		DeactivateBalanceID: "b1",
		NewStock: []domain.StockRecord{
			{ID: "s2", Name: "Cola", Quantity: 3, Price: 2.5, Date: "2026-09-01", Phase: domain.PhaseClosing, Active: true},
		},
		NewBalance: domain.BalanceSnapshot{ID: "b2", Balance: 105, Date: "2026-09-01", Phase: domain.PhaseClosing, Active: true},
	})
	require.NoError(t, err)

	stock, err := s.ReadActiveStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseClosing, stock.Phase)
	assert.Equal(t, 3, stock.Items["Cola"].Quantity)
	require.Len(t, stock.Records, 1)
	assert.Equal(t, "s2", stock.Records[0].ID)

	bal, err := s.ReadActiveBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b2", bal.ID)
	assert.Equal(t, 105.0, bal.Balance)
}

func TestReadActiveStockMixedSnapshotsInconsistent(t *testing.T) {
	ctx := context.Background()
	s := New()

	// Two transitions that never deactivate each other leave rows from two
	// snapshots active at once.
	require.NoError(t, s.CommitTransition(ctx, domain.Transition{
		NewStock:   []domain.StockRecord{{ID: "s1", Name: "Cola", Date: "2026-09-01", Phase: domain.PhaseOpening, Active: true}},
		NewBalance: domain.BalanceSnapshot{ID: "b1", Active: true},
	}))
	require.NoError(t, s.CommitTransition(ctx, domain.Transition{
		DeactivateBalanceID: "b1",
		NewStock:            []domain.StockRecord{{ID: "s2", Name: "Cola", Date: "2026-09-02", Phase: domain.PhaseOpening, Active: true}},
		NewBalance:          domain.BalanceSnapshot{ID: "b2", Active: true},
	}))

	_, err := s.ReadActiveStock(ctx)
	assert.ErrorIs(t, err, domain.ErrStoreInconsistent)
}

func TestReadActiveBalanceTwoActiveInconsistent(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.CommitTransition(ctx, domain.Transition{
		NewBalance: domain.BalanceSnapshot{ID: "b1", Active: true},
	}))
	require.NoError(t, s.CommitTransition(ctx, domain.Transition{
		NewBalance: domain.BalanceSnapshot{ID: "b2", Active: true},
	}))

	_, err := s.ReadActiveBalance(ctx)
	assert.ErrorIs(t, err, domain.ErrStoreInconsistent)
}

func TestAppendEventsIdempotentByID(t *testing.T) {
	ctx := context.Background()
	s := New()

	day := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	batch := []domain.Event{
		{ID: "e1", Time: day, Type: domain.EventPurchase, Title: "Cola", Price: 2.5, Customer: "c1"},
		{ID: "e2", Time: day.Add(90 * time.Second), Type: domain.EventRequest, Title: "more snacks", Customer: "c1"},
	}
	require.NoError(t, s.AppendEvents(ctx, batch))
	require.NoError(t, s.AppendEvents(ctx, batch))

	events, err := s.ReadEvents(ctx, "2026-09-01")
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestReadEventsFiltersByDateAndOrders(t *testing.T) {
	ctx := context.Background()
	s := New()

	d1 := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 9, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.AppendEvents(ctx, []domain.Event{
		{ID: "late", Time: d1.Add(time.Hour), Type: domain.EventNoStock},
		{ID: "early", Time: d1, Type: domain.EventPurchase, Title: "Cola"},
		{ID: "other-day", Time: d2, Type: domain.EventPurchase, Title: "Chips"},
	}))

	events, err := s.ReadEvents(ctx, "2026-09-01")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "early", events[0].ID)
	assert.Equal(t, "late", events[1].ID)

	all, err := s.ReadEvents(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCatalogPutUpsertsByName(t *testing.T) {
	ctx := context.Background()
	cat := New().Catalog()

	require.NoError(t, cat.Put(ctx, []domain.CatalogEntry{
		{Name: "Cola", SellPrice: 2.5, SupplierCost: 1.0},
	}))
	require.NoError(t, cat.Put(ctx, []domain.CatalogEntry{
		{Name: "Cola", SellPrice: 3.0, SupplierCost: 1.0},
		{Name: "Chips", SellPrice: 2.0, SupplierCost: 0.8},
	}))

	entries, err := cat.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 3.0, entries[0].SellPrice)
}
