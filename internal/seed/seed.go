// Package seed generates a deterministic starting world: a customer roster
// drawn from persona segments, a supplier catalog with attribute weights,
// and the initial active snapshot pair.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/google/uuid"

	"github.com/alanyoungcy/vendingbot/internal/domain"
)

// segment is a persona archetype: a base trait vector that individual
// customers vary around.
type segment struct {
	name  string
	prefs domain.Preferences
}

// Built-in persona segments. The jitter applied per customer keeps rosters
// varied while the seed keeps them reproducible.
var segments = []segment{
	{"office worker", domain.Preferences{Sugar: 0.45, Health: 0.35, Caffeine: 0.80, Hunger: 0.40, PriceSensitivity: 0.40}},
	{"gym goer", domain.Preferences{Sugar: 0.15, Health: 0.90, Caffeine: 0.35, Hunger: 0.60, PriceSensitivity: 0.35}},
	{"student", domain.Preferences{Sugar: 0.70, Health: 0.20, Caffeine: 0.65, Hunger: 0.55, PriceSensitivity: 0.85}},
	{"night-shift nurse", domain.Preferences{Sugar: 0.50, Health: 0.45, Caffeine: 0.95, Hunger: 0.50, PriceSensitivity: 0.45}},
	{"construction worker", domain.Preferences{Sugar: 0.60, Health: 0.25, Caffeine: 0.55, Hunger: 0.85, PriceSensitivity: 0.55}},
	{"retiree", domain.Preferences{Sugar: 0.35, Health: 0.60, Caffeine: 0.30, Hunger: 0.30, PriceSensitivity: 0.70}},
}

// Catalog returns the default supplier catalog with attribute weights.
func Catalog() []domain.CatalogEntry {
	return []domain.CatalogEntry{
		{Name: "Coca-Cola", SellPrice: 2.50, SupplierCost: 1.00, Weights: domain.ProductWeights{Sugar: 0.90, Health: 0.05, Caffeine: 0.45}},
		{Name: "Diet Coke", SellPrice: 2.50, SupplierCost: 1.00, Weights: domain.ProductWeights{Sugar: 0.10, Health: 0.25, Caffeine: 0.50}},
		{Name: "Bottled Water", SellPrice: 1.50, SupplierCost: 0.40, Weights: domain.ProductWeights{Sugar: 0.00, Health: 1.00, Caffeine: 0.00}},
		{Name: "Cold Brew Coffee", SellPrice: 3.50, SupplierCost: 1.60, Weights: domain.ProductWeights{Sugar: 0.20, Health: 0.30, Caffeine: 1.00}},
		{Name: "Energy Drink", SellPrice: 3.00, SupplierCost: 1.40, Weights: domain.ProductWeights{Sugar: 0.75, Health: 0.05, Caffeine: 0.95}},
		{Name: "Snickers", SellPrice: 2.00, SupplierCost: 0.80, Weights: domain.ProductWeights{Sugar: 0.85, Health: 0.10, Caffeine: 0.10}},
		{Name: "Granola Bar", SellPrice: 2.25, SupplierCost: 0.90, Weights: domain.ProductWeights{Sugar: 0.40, Health: 0.80, Caffeine: 0.00}},
		{Name: "Potato Chips", SellPrice: 1.75, SupplierCost: 0.70, Weights: domain.ProductWeights{Sugar: 0.10, Health: 0.10, Caffeine: 0.00}},
		{Name: "Trail Mix", SellPrice: 2.75, SupplierCost: 1.20, Weights: domain.ProductWeights{Sugar: 0.35, Health: 0.75, Caffeine: 0.00}},
		{Name: "Orange Juice", SellPrice: 2.50, SupplierCost: 1.10, Weights: domain.ProductWeights{Sugar: 0.60, Health: 0.65, Caffeine: 0.00}},
		{Name: "Green Tea", SellPrice: 2.25, SupplierCost: 0.95, Weights: domain.ProductWeights{Sugar: 0.05, Health: 0.85, Caffeine: 0.40}},
		{Name: "Protein Shake", SellPrice: 3.75, SupplierCost: 1.90, Weights: domain.ProductWeights{Sugar: 0.30, Health: 0.90, Caffeine: 0.00}},
	}
}

// Customers generates count customers round-robin over the segments, each
// with seeded jitter around the segment's base traits.
func Customers(count int, seedVal int64) []domain.Customer {
	rng := rand.New(rand.NewSource(seedVal))
	customers := make([]domain.Customer, 0, count)
	for i := 0; i < count; i++ {
		seg := segments[i%len(segments)]
		jitter := func(base float64) float64 {
			return domain.Clamp01(base + (rng.Float64()-0.5)*0.3)
		}
		customers = append(customers, domain.Customer{
			ID:      uuid.NewString(),
			Segment: seg.name,
			Prefs: domain.Preferences{
				Sugar:            jitter(seg.prefs.Sugar),
				Health:           jitter(seg.prefs.Health),
				Caffeine:         jitter(seg.prefs.Caffeine),
				Hunger:           jitter(seg.prefs.Hunger),
				PriceSensitivity: jitter(seg.prefs.PriceSensitivity),
			},
		})
	}
	return customers
}

// Options configures a seeding run.
type Options struct {
	Customers      int
	Seed           int64
	Date           string // opening date of the initial snapshot
	InitialBalance float64
}

// Apply writes the catalog, the roster, and the initial snapshot pair. The
// machine starts empty; the first restock stocks it, matching a brand-new
// installation.
func Apply(ctx context.Context, store domain.SnapshotStore, catalog domain.CatalogStore, customers domain.CustomerStore, opts Options, log *slog.Logger) error {
	if opts.Customers <= 0 {
		opts.Customers = 24
	}
	if opts.InitialBalance <= 0 {
		opts.InitialBalance = 100
	}

	// Refuse to reseed a live store: committing a second opening balance
	// would leave two active rows and every later read would fail.
	if _, err := store.ReadActiveBalance(ctx); err == nil {
		return fmt.Errorf("seed: store already initialized")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("seed: read active balance: %w", err)
	}

	if err := catalog.Put(ctx, Catalog()); err != nil {
		return fmt.Errorf("seed: write catalog: %w", err)
	}
	roster := Customers(opts.Customers, opts.Seed)
	if err := customers.Put(ctx, roster); err != nil {
		return fmt.Errorf("seed: write roster: %w", err)
	}

	if err := store.CommitTransition(ctx, domain.Transition{
		NewBalance: domain.BalanceSnapshot{
			ID:      uuid.NewString(),
			Balance: domain.Round2(opts.InitialBalance),
			Date:    opts.Date,
			Phase:   domain.PhaseOpening,
			Active:  true,
		},
	}); err != nil {
		return fmt.Errorf("seed: initial snapshot: %w", err)
	}

	log.Info("world seeded",
		"customers", len(roster),
		"products", len(Catalog()),
		"balance", opts.InitialBalance,
		"date", opts.Date,
	)
	return nil
}
