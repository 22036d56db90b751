package sim

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alanyoungcy/vendingbot/internal/domain"
)

// FulfillResult is the outcome of applying one purchase decision to the
// live stock.
type FulfillResult struct {
	// Fulfilled holds the zero or one product actually dispensed.
	Fulfilled []string
	// Rejected holds names that were refused: unknown products, sold-out
	// products, and anything past the one-item-per-interaction limit.
	Rejected []string
	// Spend is the money taken for the fulfilled item, rounded to cents.
	Spend float64
}

// Fulfill applies a candidate selection to the live stock snapshot,
// mutating it in place. At most one item is dispensed per interaction: the
// first valid name wins and every further name is rejected outright. A
// name is rejected when it is absent from stock or its quantity is already
// zero; quantities never go negative.
func Fulfill(requested []string, stock domain.StockSnapshot) FulfillResult {
	var res FulfillResult
	for _, name := range requested {
		if len(res.Fulfilled) > 0 {
			res.Rejected = append(res.Rejected, name)
			continue
		}
		it, ok := stock.Items[name]
		if !ok || it.Quantity <= 0 {
			res.Rejected = append(res.Rejected, name)
			continue
		}
		it.Quantity--
		stock.Items[name] = it
		res.Fulfilled = append(res.Fulfilled, name)
		res.Spend = domain.Round2(res.Spend + it.Price)
	}
	return res
}

// RenderAssortment formats the live assortment the way it is presented to
// a deciding customer: one numbered line per product in name order, with
// price and remaining quantity. Sold-out products are shown with zero
// remaining to discourage, not hide, them.
func RenderAssortment(stock domain.StockSnapshot) string {
	names := make([]string, 0, len(stock.Items))
	for name := range stock.Items {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		it := stock.Items[name]
		fmt.Fprintf(&b, "%d. %s = $%g (remaining: %d)\n", i+1, name, it.Price, it.Quantity)
	}
	return strings.TrimRight(b.String(), "\n")
}
