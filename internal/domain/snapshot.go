package domain

import (
	"math"
	"sort"
)

// Phase marks whether a snapshot was taken when the machine opened for the
// day (after a restock) or when it closed (after the customer run).
type Phase string

const (
	PhaseOpening Phase = "opening"
	PhaseClosing Phase = "closing"
)

// Capacity constraints of the physical machine: at most MaxSlots distinct
// products, at most MaxUnitsPerSlot units of any one product.
const (
	MaxSlots        = 10
	MaxUnitsPerSlot = 10
)

// StockRecord is one product row of a stock snapshot as persisted by the
// snapshot store. ID is the row key; Active marks membership in the single
// authoritative snapshot.
type StockRecord struct {
	ID       string
	Name     string
	Quantity int
	Price    float64
	Date     string // YYYY-MM-DD
	Phase    Phase
	Active   bool
}

// StockSnapshot is a complete copy of the machine inventory at one point in
// time: product name -> {quantity, price}, tagged with date and phase.
type StockSnapshot struct {
	Date    string
	Phase   Phase
	Items   map[string]StockItem
	Records []StockRecord // persisted rows backing Items; empty for in-memory copies
}

// StockItem is the live per-product state inside a snapshot.
type StockItem struct {
	Quantity int
	Price    float64
}

// Names returns the product names of the snapshot in lexicographic order.
// All assortment rendering and snapshot persistence iterate in this order so
// that output is deterministic.
func (s StockSnapshot) Names() []string {
	names := make([]string, 0, len(s.Items))
	for name := range s.Items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of the snapshot's item map. The day driver
// mutates the clone during a simulated day while the persisted snapshot
// stays untouched.
func (s StockSnapshot) Clone() StockSnapshot {
	items := make(map[string]StockItem, len(s.Items))
	for name, it := range s.Items {
		items[name] = it
	}
	return StockSnapshot{Date: s.Date, Phase: s.Phase, Items: items}
}

// BalanceSnapshot is the machine's cash balance at one point in time. The
// single active row is the authoritative balance.
type BalanceSnapshot struct {
	ID      string
	Balance float64
	Date    string
	Phase   Phase
	Active  bool
}

// Round2 rounds v to two decimals, the monetary resolution of all prices,
// spends, and balances in the system.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
