package domain

import "time"

// EventType classifies ledger events.
type EventType string

const (
	// EventPurchase records a dispensed unit: Title is the product name and
	// Price the unit sell price at the moment of sale.
	EventPurchase EventType = "purchase"
	// EventRequest records free-text customer feedback for the operator;
	// Title carries the request text and Price is zero.
	EventRequest EventType = "request"
	// EventNoStock records a visit where nothing could be or was bought.
	EventNoStock EventType = "no-stock"
)

// Event is one immutable row of the append-only ledger. Time is simulated
// time from the day driver's clock, never wall-clock time. Events with the
// same ID are written at most once.
type Event struct {
	ID       string
	Time     time.Time
	Type     EventType
	Title    string
	Price    float64
	Customer string
}
