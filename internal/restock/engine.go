// Package restock implements the whole-day restock transaction: validate a
// plan against the supplier catalog and the machine constraints, charge the
// balance, and rotate in the next day's opening snapshot atomically.
// Validation failures reject the plan before anything is written.
package restock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/vendingbot/internal/domain"
	"github.com/alanyoungcy/vendingbot/internal/obs"
)

// OverCapacityMode selects how a line that would push a slot past
// MaxUnitsPerSlot is handled.
type OverCapacityMode string

const (
	// ClampOverCapacity tops the slot up to the ceiling and charges only
	// the units that fit.
	ClampOverCapacity OverCapacityMode = "clamp"
	// RejectOverCapacity rejects the whole plan.
	RejectOverCapacity OverCapacityMode = "reject"
)

// Config tunes plan validation.
type Config struct {
	// Mode is the over-capacity policy. Defaults to ClampOverCapacity.
	Mode OverCapacityMode
	// NewProductsNeedEmptySlot, when set, only admits a product the machine
	// does not currently carry if a sold-out slot is free for it. Each new
	// product consumes one empty slot.
	NewProductsNeedEmptySlot bool
	// LockTTL bounds how long the restock lock is held. Defaults to one
	// minute.
	LockTTL time.Duration
}

// Result summarizes a committed restock.
type Result struct {
	Date       string         `json:"date"`
	Cost       float64        `json:"cost"`
	NewBalance float64        `json:"new_balance"`
	Stocked    map[string]int `json:"stocked"`
	// Clamped lists products whose requested quantity was cut to fit the
	// slot ceiling.
	Clamped []string `json:"clamped,omitempty"`
}

// Engine validates and commits restock plans. locks may be nil when the
// caller already serializes commits; metrics may be nil.
type Engine struct {
	store   domain.SnapshotStore
	catalog domain.CatalogStore
	locks   domain.LockManager
	cfg     Config
	metrics *obs.Metrics
	log     *slog.Logger
}

func NewEngine(store domain.SnapshotStore, catalog domain.CatalogStore, locks domain.LockManager, cfg Config, metrics *obs.Metrics, log *slog.Logger) *Engine {
	if cfg.Mode == "" {
		cfg.Mode = ClampOverCapacity
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Minute
	}
	return &Engine{store: store, catalog: catalog, locks: locks, cfg: cfg, metrics: metrics, log: log}
}

// Apply validates plan against the active snapshots and, if every check
// passes, commits the opening snapshot pair for date. The prior state is
// untouched on any rejection.
func (e *Engine) Apply(ctx context.Context, date string, plan domain.RestockPlan) (*Result, error) {
	if e.locks != nil {
		release, err := e.locks.Acquire(ctx, "restock", e.cfg.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("restock: acquire lock: %w", err)
		}
		defer release()
	}

	stock, err := e.store.ReadActiveStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("restock: read active stock: %w", err)
	}
	balance, err := e.store.ReadActiveBalance(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("restock: read active balance: %w", err)
		}
		balance = domain.BalanceSnapshot{}
	}
	entries, err := e.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("restock: load catalog: %w", err)
	}
	catalog := make(map[string]domain.CatalogEntry, len(entries))
	for _, entry := range entries {
		catalog[entry.Name] = entry
	}

	next, res, updated, err := e.validate(date, plan, stock, balance, catalog)
	if err != nil {
		e.metrics.RestockRejected()
		return nil, err
	}

	if err := e.store.CommitTransition(ctx, next); err != nil {
		return nil, fmt.Errorf("restock: commit opening snapshot: %w", err)
	}
	// The snapshot pair is rotated at this point; a failed price write-back
	// must not surface as a rejected restock or the caller could re-apply
	// the plan and charge the balance twice. New prices only matter to
	// future cycles, so log and carry on.
	if len(updated) > 0 {
		if err := e.catalog.Put(ctx, updated); err != nil {
			e.log.Warn("restock: catalog price write-back failed",
				"date", date,
				"products", len(updated),
				"error", err.Error(),
			)
		}
	}

	e.metrics.RestockCommitted()
	e.metrics.SetBalance(res.NewBalance)
	e.log.Info("restock committed",
		"date", date,
		"lines", len(plan.Lines),
		"cost", res.Cost,
		"new_balance", res.NewBalance,
		"clamped", len(res.Clamped),
	)
	return res, nil
}

// validate builds the opening transition for date or returns a wrapped
// ErrPlanRejected. It never touches the store.
func (e *Engine) validate(date string, plan domain.RestockPlan, stock domain.StockSnapshot, balance domain.BalanceSnapshot, catalog map[string]domain.CatalogEntry) (domain.Transition, *Result, []domain.CatalogEntry, error) {
	reject := func(format string, args ...any) (domain.Transition, *Result, []domain.CatalogEntry, error) {
		return domain.Transition{}, nil, nil, fmt.Errorf("restock: %s: %w", fmt.Sprintf(format, args...), domain.ErrPlanRejected)
	}

	items := make(map[string]domain.StockItem, len(stock.Items))
	for name, it := range stock.Items {
		items[name] = it
	}

	res := &Result{Date: date, Stocked: map[string]int{}}
	var updated []domain.CatalogEntry
	var cost float64
	seen := map[string]bool{}
	newProducts := 0

	for _, line := range plan.Lines {
		if seen[line.Product] {
			return reject("duplicate line for %q", line.Product)
		}
		seen[line.Product] = true

		entry, known := catalog[line.Product]
		if !known {
			return reject("unknown product %q", line.Product)
		}
		if line.QuantityToBuy < 0 {
			return reject("negative quantity for %q", line.Product)
		}

		current, carried := items[line.Product]
		if !carried {
			newProducts++
		}

		buy := line.QuantityToBuy
		if current.Quantity+buy > domain.MaxUnitsPerSlot {
			if e.cfg.Mode == RejectOverCapacity {
				return reject("%q would exceed %d units", line.Product, domain.MaxUnitsPerSlot)
			}
			buy = domain.MaxUnitsPerSlot - current.Quantity
			res.Clamped = append(res.Clamped, line.Product)
		}

		price := current.Price
		if line.SellPrice > 0 {
			price = line.SellPrice
		} else if !carried {
			price = entry.SellPrice
		}
		if line.SellPrice > 0 && line.SellPrice != entry.SellPrice {
			entry.SellPrice = line.SellPrice
			updated = append(updated, entry)
		}

		cost += float64(buy) * entry.SupplierCost
		items[line.Product] = domain.StockItem{Quantity: current.Quantity + buy, Price: price}
		res.Stocked[line.Product] = current.Quantity + buy
	}

	if e.cfg.NewProductsNeedEmptySlot && newProducts > 0 {
		empty := 0
		for name, it := range stock.Items {
			if it.Quantity == 0 && !seen[name] {
				empty++
			}
		}
		if newProducts > empty {
			return reject("%d new products but only %d empty slots", newProducts, empty)
		}
	}

	slots := 0
	for _, it := range items {
		if it.Quantity > 0 {
			slots++
		}
	}
	if slots > domain.MaxSlots {
		return reject("%d products exceed the %d-slot machine", slots, domain.MaxSlots)
	}

	res.Cost = domain.Round2(cost)
	res.NewBalance = domain.Round2(balance.Balance - res.Cost)
	if res.NewBalance < 0 {
		return reject("cost %.2f exceeds balance %.2f", res.Cost, balance.Balance)
	}

	var deactivate []string
	for _, rec := range stock.Records {
		if rec.Active {
			deactivate = append(deactivate, rec.ID)
		}
	}

	snap := domain.StockSnapshot{Items: items}
	records := make([]domain.StockRecord, 0, len(items))
	for _, name := range snap.Names() {
		it := items[name]
		if it.Quantity <= 0 {
			continue
		}
		records = append(records, domain.StockRecord{
			ID:       uuid.NewString(),
			Name:     name,
			Quantity: it.Quantity,
			Price:    it.Price,
			Date:     date,
			Phase:    domain.PhaseOpening,
			Active:   true,
		})
	}

	return domain.Transition{
		DeactivateStockIDs:  deactivate,
		DeactivateBalanceID: balance.ID,
		NewStock:            records,
		NewBalance: domain.BalanceSnapshot{
			ID:      uuid.NewString(),
			Balance: res.NewBalance,
			Date:    date,
			Phase:   domain.PhaseOpening,
			Active:  true,
		},
	}, res, updated, nil
}
