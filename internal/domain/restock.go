package domain

// RestockLine is one instruction of a restock plan: buy QuantityToBuy units
// of Product from the supplier and sell them at SellPrice from now on.
type RestockLine struct {
	Product       string
	QuantityToBuy int
	SellPrice     float64
}

// RestockPlan is the operator's whole-day replenishment decision, produced
// by a decision oracle and executed once per simulated day.
type RestockPlan struct {
	Lines     []RestockLine
	Rationale string
}
