// Package sim runs one simulated customer day against the versioned ledger:
// it walks the roster, consults the purchase oracle per customer, fulfills
// at most one item per visit on a working copy of the stock, and closes the
// day with an atomic snapshot rotation.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/vendingbot/internal/domain"
	"github.com/alanyoungcy/vendingbot/internal/obs"
	"github.com/alanyoungcy/vendingbot/internal/retry"
)

// Config drives one simulated day.
type Config struct {
	// Date is the simulation date, YYYY-MM-DD.
	Date string
	// StartTime is the first event timestamp, HH:MM:SS. Defaults to 09:00:00.
	StartTime string
	// EventStep is the simulated-time gap between consecutive events.
	// Defaults to 90 seconds.
	EventStep time.Duration
	// Shuffle randomizes the roster order using Seed.
	Shuffle bool
	// Seed feeds the roster shuffle. The same seed and roster always yield
	// the same visit order.
	Seed int64
}

// Driver executes simulated days. It never mutates the persisted active
// snapshot until the closing commit; all intra-day state lives on a clone.
type Driver struct {
	store     domain.SnapshotStore
	customers domain.CustomerStore
	oracle    domain.PurchaseOracle
	policy    retry.Policy
	metrics   *obs.Metrics
	log       *slog.Logger
}

// NewDriver wires a day driver. metrics may be nil.
func NewDriver(store domain.SnapshotStore, customers domain.CustomerStore, oracle domain.PurchaseOracle, policy retry.Policy, metrics *obs.Metrics, log *slog.Logger) *Driver {
	return &Driver{
		store:     store,
		customers: customers,
		oracle:    oracle,
		policy:    policy,
		metrics:   metrics,
		log:       log,
	}
}

// RunDay executes one full customer day and commits the closing snapshot
// pair. On success the active stock snapshot reflects the remaining
// inventory and the active balance includes the day's takings.
func (d *Driver) RunDay(ctx context.Context, cfg Config) (*DayReport, error) {
	stock, err := d.store.ReadActiveStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("sim: read active stock: %w", err)
	}

	prevBalance, err := d.store.ReadActiveBalance(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("sim: read active balance: %w", err)
		}
		prevBalance = domain.BalanceSnapshot{}
	}

	roster, err := d.customers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("sim: load roster: %w", err)
	}
	if cfg.Shuffle {
		rng := rand.New(rand.NewSource(cfg.Seed))
		rng.Shuffle(len(roster), func(i, j int) {
			roster[i], roster[j] = roster[j], roster[i]
		})
	}

	clock, err := NewClock(cfg.Date, cfg.StartTime, cfg.EventStep)
	if err != nil {
		return nil, err
	}

	working := stock.Clone()
	working.Date = cfg.Date
	report := newDayReport(cfg.Date, prevBalance.Balance)

	d.log.Info("day started",
		"date", cfg.Date,
		"customers", len(roster),
		"products", len(working.Items),
		"opening_balance", prevBalance.Balance,
	)

	var events []domain.Event
	for _, cust := range roster {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("sim: day aborted: %w", err)
		}
		report.Visits++

		dec := d.decide(ctx, cust, working)
		visitEvents := d.applyDecision(cust, dec, working, clock, report)
		events = append(events, visitEvents...)
	}

	if err := d.store.AppendEvents(ctx, events); err != nil {
		return nil, fmt.Errorf("sim: append day events: %w", err)
	}
	d.metrics.EventsAppended(len(events))
	report.EventsAppended = len(events)

	closing := buildClosingTransition(cfg.Date, stock, working, prevBalance, report.Spend)
	if err := d.store.CommitTransition(ctx, closing); err != nil {
		return nil, fmt.Errorf("sim: commit closing snapshot: %w", err)
	}

	report.ClosingBalance = closing.NewBalance.Balance
	report.recordClosingStock(working)
	d.metrics.SetBalance(report.ClosingBalance)

	d.log.Info("day closed",
		"date", cfg.Date,
		"visits", report.Visits,
		"units_sold", report.UnitsSold,
		"spend", report.Spend,
		"closing_balance", report.ClosingBalance,
		"events", report.EventsAppended,
	)
	return report, nil
}

// decide consults the oracle under the retry policy. An exhausted policy
// degrades to a fault decision so one misbehaving oracle call never aborts
// the whole day.
func (d *Driver) decide(ctx context.Context, cust domain.Customer, working domain.StockSnapshot) domain.PurchaseDecision {
	var dec domain.PurchaseDecision
	err := d.policy.Do(ctx, func(ctx context.Context) error {
		var oerr error
		dec, oerr = d.oracle.DecidePurchase(ctx, cust, working)
		return oerr
	})
	if err != nil {
		d.log.Warn("purchase oracle failed", "customer", cust.ID, "error", err)
		return domain.FaultDecision(err.Error())
	}
	return dec
}

// applyDecision fulfills the decision against the working stock and emits
// the visit's ledger events in simulated-time order: purchases first, then
// the optional request, then a no-stock marker if nothing was dispensed.
func (d *Driver) applyDecision(cust domain.Customer, dec domain.PurchaseDecision, working domain.StockSnapshot, clock *Clock, report *DayReport) []domain.Event {
	var events []domain.Event

	switch dec.Kind {
	case domain.DecisionItems:
		res := Fulfill(dec.Items, working)
		for _, name := range res.Fulfilled {
			events = append(events, domain.Event{
				ID:       uuid.NewString(),
				Time:     clock.Stamp(),
				Type:     domain.EventPurchase,
				Title:    name,
				Price:    res.Spend,
				Customer: cust.ID,
			})
			report.UnitsSold++
			report.SoldByProduct[name]++
			d.metrics.Purchase()
		}
		report.Spend = domain.Round2(report.Spend + res.Spend)
		report.Rejections += len(res.Rejected)
		d.metrics.Rejections(len(res.Rejected))

		if dec.Request != "" {
			events = append(events, domain.Event{
				ID:       uuid.NewString(),
				Time:     clock.Stamp(),
				Type:     domain.EventRequest,
				Title:    dec.Request,
				Customer: cust.ID,
			})
			report.Requests = append(report.Requests, dec.Request)
			d.metrics.Request()
		}

		if len(res.Fulfilled) == 0 {
			events = append(events, d.noStockEvent(cust, "no purchase", clock))
			d.metrics.NoStockVisit()
		}

	case domain.DecisionMalformed:
		d.log.Warn("malformed purchase decision", "customer", cust.ID, "raw", dec.Raw)
		report.Malformed++
		events = append(events, d.noStockEvent(cust, "malformed decision", clock))
		d.metrics.NoStockVisit()

	case domain.DecisionFault:
		report.Faults++
		events = append(events, d.noStockEvent(cust, "oracle fault", clock))
		d.metrics.NoStockVisit()
	}

	return events
}

func (d *Driver) noStockEvent(cust domain.Customer, reason string, clock *Clock) domain.Event {
	return domain.Event{
		ID:       uuid.NewString(),
		Time:     clock.Stamp(),
		Type:     domain.EventNoStock,
		Title:    reason,
		Customer: cust.ID,
	}
}

// buildClosingTransition assembles the atomic rotation that ends a day:
// every remaining product becomes a closing-phase stock row (sold-out rows
// included, so the restock engine sees the empty slots), and the balance
// grows by the day's takings.
func buildClosingTransition(date string, prev, working domain.StockSnapshot, prevBalance domain.BalanceSnapshot, spend float64) domain.Transition {
	var deactivate []string
	for _, rec := range prev.Records {
		if rec.Active {
			deactivate = append(deactivate, rec.ID)
		}
	}

	records := make([]domain.StockRecord, 0, len(working.Items))
	for _, name := range working.Names() {
		it := working.Items[name]
		records = append(records, domain.StockRecord{
			ID:       uuid.NewString(),
			Name:     name,
			Quantity: it.Quantity,
			Price:    it.Price,
			Date:     date,
			Phase:    domain.PhaseClosing,
			Active:   true,
		})
	}

	return domain.Transition{
		DeactivateStockIDs:  deactivate,
		DeactivateBalanceID: prevBalance.ID,
		NewStock:            records,
		NewBalance: domain.BalanceSnapshot{
			ID:      uuid.NewString(),
			Balance: domain.Round2(prevBalance.Balance + spend),
			Date:    date,
			Phase:   domain.PhaseClosing,
			Active:  true,
		},
	}
}
