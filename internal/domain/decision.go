package domain

// DecisionKind discriminates the purchase-decision variant returned by an
// oracle after boundary validation.
type DecisionKind int

const (
	// DecisionItems is a well-formed decision: the proposed item names in
	// order (fulfillment dispenses at most one), plus an optional free-text
	// request for the operator.
	DecisionItems DecisionKind = iota
	// DecisionMalformed is oracle output that failed shape validation. The
	// raw text is kept for the day report; the core treats it as "buy
	// nothing".
	DecisionMalformed
	// DecisionFault is an oracle call that failed outright after retries.
	DecisionFault
)

// PurchaseDecision is the validated result of one oracle consultation. The
// core only ever inspects it through the Kind tag; malformed or faulted
// decisions carry no items.
type PurchaseDecision struct {
	Kind    DecisionKind
	Items   []string
	Request string
	Raw     string // original payload when Kind == DecisionMalformed
	Fault   string // failure reason when Kind == DecisionFault
}

// NoDecision is the empty well-formed decision: the customer buys nothing
// and leaves no request.
func NoDecision() PurchaseDecision {
	return PurchaseDecision{Kind: DecisionItems}
}

// MalformedDecision wraps unparseable oracle output.
func MalformedDecision(raw string) PurchaseDecision {
	return PurchaseDecision{Kind: DecisionMalformed, Raw: raw}
}

// FaultDecision wraps an exhausted-retries oracle failure.
func FaultDecision(reason string) PurchaseDecision {
	return PurchaseDecision{Kind: DecisionFault, Fault: reason}
}
