package oracle

import (
	"context"
	"math/rand"
	"sort"
	"sync"

	"github.com/alanyoungcy/vendingbot/internal/domain"
	"github.com/alanyoungcy/vendingbot/internal/scoring"
)

// Local is the deterministic in-process purchase oracle backed by the
// utility scorer. It needs no network and is the default when no endpoint
// is configured.
type Local struct {
	weights map[string]domain.ProductWeights
	params  scoring.Params

	mu  sync.Mutex
	rng *rand.Rand
}

// NewLocal builds a local oracle over the catalog's attribute weights. The
// seed drives epsilon exploration only; with Epsilon zero the oracle is a
// pure function.
func NewLocal(catalog []domain.CatalogEntry, params scoring.Params, seed int64) *Local {
	weights := make(map[string]domain.ProductWeights, len(catalog))
	for _, entry := range catalog {
		weights[entry.Name] = entry.Weights
	}
	return &Local{
		weights: weights,
		params:  params,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

var _ domain.PurchaseOracle = (*Local)(nil)

func (l *Local) DecidePurchase(ctx context.Context, cust domain.Customer, assortment domain.StockSnapshot) (domain.PurchaseDecision, error) {
	l.mu.Lock()
	res := scoring.Pick(cust.Prefs, assortment, l.weights, l.params, l.rng)
	l.mu.Unlock()

	if res.Product == "" {
		return domain.NoDecision(), nil
	}
	return domain.PurchaseDecision{Kind: domain.DecisionItems, Items: []string{res.Product}}, nil
}

// TopUp is a budget-aware local restock oracle: it refills every carried
// product to the slot ceiling in name order while the balance lasts, then
// introduces catalog products into free slots, cheapest supplier cost
// first. It exists for dry runs and tests; the plan still goes through the
// restock engine's full validation.
type TopUp struct{}

var _ domain.RestockOracle = TopUp{}

func (TopUp) DecideRestockPlan(ctx context.Context, in domain.RestockContext) (domain.RestockPlan, error) {
	costs := make(map[string]domain.CatalogEntry, len(in.Catalog))
	for _, entry := range in.Catalog {
		costs[entry.Name] = entry
	}

	budget := in.Balance.Balance
	plan := domain.RestockPlan{Rationale: "top up carried products, then fill free slots"}

	carried := in.Stock.Names()
	slots := 0
	for _, name := range carried {
		if in.Stock.Items[name].Quantity > 0 {
			slots++
		}
	}

	buy := func(name string, have int) {
		entry, known := costs[name]
		if !known || entry.SupplierCost <= 0 {
			return
		}
		want := domain.MaxUnitsPerSlot - have
		affordable := int(budget / entry.SupplierCost)
		if want > affordable {
			want = affordable
		}
		if want <= 0 {
			return
		}
		budget = domain.Round2(budget - float64(want)*entry.SupplierCost)
		plan.Lines = append(plan.Lines, domain.RestockLine{
			Product:       name,
			QuantityToBuy: want,
			SellPrice:     entry.SellPrice,
		})
	}

	for _, name := range carried {
		it := in.Stock.Items[name]
		if it.Quantity == 0 {
			continue
		}
		buy(name, it.Quantity)
	}

	var fresh []domain.CatalogEntry
	for _, entry := range in.Catalog {
		if it, ok := in.Stock.Items[entry.Name]; !ok || it.Quantity == 0 {
			fresh = append(fresh, entry)
		}
	}
	sort.Slice(fresh, func(i, j int) bool {
		if fresh[i].SupplierCost != fresh[j].SupplierCost {
			return fresh[i].SupplierCost < fresh[j].SupplierCost
		}
		return fresh[i].Name < fresh[j].Name
	})
	for _, entry := range fresh {
		if slots >= domain.MaxSlots {
			break
		}
		before := len(plan.Lines)
		buy(entry.Name, 0)
		if len(plan.Lines) > before {
			slots++
		}
	}

	return plan, nil
}
