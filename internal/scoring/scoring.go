// Package scoring implements the deterministic purchase-choice algorithm
// used when no external oracle decides for a customer. It is a pure
// function of the customer preferences, the live assortment, and the
// catalog weights; the only randomness is the injected seeded RNG used for
// epsilon exploration.
package scoring

import (
	"math"
	"math/rand"
	"sort"

	"github.com/alanyoungcy/vendingbot/internal/domain"
)

// Params tunes the utility score and the buy/no-buy threshold.
type Params struct {
	// PriceScale scales the customer's price sensitivity into the price
	// penalty alpha.
	PriceScale float64
	// ThresholdBase is the score a best candidate must reach before the
	// customer buys at all.
	ThresholdBase float64
	// HungerBonus lowers the threshold proportionally to the customer's
	// hunger.
	HungerBonus float64
	// Epsilon is the probability of substituting the second-best product
	// (exploration). Zero disables exploration.
	Epsilon float64
}

// DefaultParams mirrors the historical simulator constants.
func DefaultParams() Params {
	return Params{PriceScale: 1.0, ThresholdBase: 0.0, HungerBonus: 0.25, Epsilon: 0.0}
}

// Result is the outcome of one scoring pass.
type Result struct {
	// Product is the chosen product name, empty when the customer buys
	// nothing.
	Product string
	// Score is the utility of the chosen product, or -Inf when no product
	// could be scored at all.
	Score float64
	// Explored reports that the second-best product was substituted.
	Explored bool
}

type candidate struct {
	name  string
	price float64
	score float64
}

// Pick scores every in-stock product that has catalog weights and returns
// the customer's choice.
//
// score = C.sugar*W.sugar + C.health*W.health + C.caffeine*W.caffeine
// - alpha*norm(price), with alpha = PriceScale*C.PriceSensitivity and
// norm mapping price linearly over the min/max in-stock price (0 when all
// prices are equal). The best candidate wins unless its score is below
// threshold = ThresholdBase - HungerBonus*C.Hunger, in which case nothing
// is bought. Equal scores resolve to the cheaper product, then to the
// lexicographically smaller name, so the outcome is independent of map
// iteration order.
func Pick(prefs domain.Preferences, stock domain.StockSnapshot, weights map[string]domain.ProductWeights, p Params, rng *rand.Rand) Result {
	c := prefs.Clamped()
	alpha := p.PriceScale * c.PriceSensitivity
	threshold := p.ThresholdBase - p.HungerBonus*c.Hunger

	// Price normalization over in-stock items only.
	pmin, pmax := math.Inf(1), math.Inf(-1)
	for _, it := range stock.Items {
		if it.Quantity <= 0 {
			continue
		}
		pmin = math.Min(pmin, it.Price)
		pmax = math.Max(pmax, it.Price)
	}
	normPrice := func(price float64) float64 {
		if pmax <= pmin {
			return 0
		}
		return (price - pmin) / (pmax - pmin)
	}

	var cands []candidate
	for _, name := range stock.Names() {
		it := stock.Items[name]
		if it.Quantity <= 0 {
			continue
		}
		w, ok := weights[name]
		if !ok {
			continue
		}
		score := c.Sugar*domain.Clamp01(w.Sugar) +
			c.Health*domain.Clamp01(w.Health) +
			c.Caffeine*domain.Clamp01(w.Caffeine) -
			alpha*normPrice(it.Price)
		cands = append(cands, candidate{name: name, price: it.Price, score: score})
	}

	if len(cands) == 0 {
		return Result{Score: math.Inf(-1)}
	}

	sort.Slice(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		if cands[i].price != cands[j].price {
			return cands[i].price < cands[j].price
		}
		return cands[i].name < cands[j].name
	})

	best := cands[0]
	if best.score < threshold {
		return Result{Score: best.score}
	}

	if p.Epsilon > 0 && len(cands) > 1 && rng != nil && rng.Float64() < p.Epsilon {
		second := cands[1]
		return Result{Product: second.name, Score: second.score, Explored: true}
	}

	return Result{Product: best.name, Score: best.score}
}
