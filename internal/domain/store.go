package domain

import (
	"context"
	"time"
)

// SnapshotStore is the persistence adapter for the versioned ledger. The
// core assumes exactly two things from implementations: CommitTransition is
// all-or-nothing, and AppendEvents is idempotent by event ID. A store that
// finds more than one active snapshot of a kind must return
// ErrStoreInconsistent instead of silently picking one.
type SnapshotStore interface {
	// ReadActiveStock returns the single active stock snapshot. An empty
	// snapshot (no rows) is returned as a snapshot with no items, not an
	// error.
	ReadActiveStock(ctx context.Context) (StockSnapshot, error)

	// ReadActiveBalance returns the single active balance snapshot.
	// ErrNotFound when no balance has ever been written.
	ReadActiveBalance(ctx context.Context) (BalanceSnapshot, error)

	// ReadEvents returns events whose simulated date equals date
	// (YYYY-MM-DD), ordered by simulated time. An empty date returns all
	// events.
	ReadEvents(ctx context.Context, date string) ([]Event, error)

	// CommitTransition atomically deactivates the given stock/balance row
	// IDs and activates the new records. No observer ever sees zero or two
	// active snapshots of a kind.
	CommitTransition(ctx context.Context, t Transition) error

	// AppendEvents appends the batch, skipping events whose ID was already
	// written.
	AppendEvents(ctx context.Context, events []Event) error
}

// Transition is the atomic snapshot rotation input for CommitTransition.
type Transition struct {
	DeactivateStockIDs  []string
	DeactivateBalanceID string
	NewStock            []StockRecord
	NewBalance          BalanceSnapshot
}

// CatalogStore supplies the supplier catalog: unit costs and attribute
// weights per product. Refreshed once per restock cycle.
type CatalogStore interface {
	List(ctx context.Context) ([]CatalogEntry, error)
	Put(ctx context.Context, entries []CatalogEntry) error
}

// CustomerStore supplies the customer roster for a simulated day.
type CustomerStore interface {
	List(ctx context.Context) ([]Customer, error)
	Put(ctx context.Context, customers []Customer) error
}

// PurchaseOracle turns a customer context and the live assortment into a
// purchase decision. Implementations validate payload shape and map
// failures onto the decision variants; they never return malformed items.
type PurchaseOracle interface {
	DecidePurchase(ctx context.Context, c Customer, assortment StockSnapshot) (PurchaseDecision, error)
}

// RestockOracle produces a whole-day restock plan from the machine state,
// the day's event history, and the supplier catalog.
type RestockOracle interface {
	DecideRestockPlan(ctx context.Context, in RestockContext) (RestockPlan, error)
}

// RestockContext is everything a restock oracle may consider.
type RestockContext struct {
	Date     string
	Stock    StockSnapshot
	Balance  BalanceSnapshot
	History  []Event
	Catalog  []CatalogEntry
	Guidance string
}

// LockManager serializes restock commits and day runs: the design assumes a
// single mutator of the active snapshot pair at a time.
type LockManager interface {
	// Acquire obtains the named lock and returns its release function, or
	// ErrLockHeld when another holder owns it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// RateLimiter paces calls to external decision endpoints.
type RateLimiter interface {
	// Allow reports whether one more call under key is within limit per
	// window, counting it if so.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	// Wait blocks until a call under key is allowed or ctx is cancelled.
	Wait(ctx context.Context, key string) error
}
