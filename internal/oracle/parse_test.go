package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/vendingbot/internal/domain"
)

func TestParsePurchaseDecisionBareArray(t *testing.T) {
	dec := ParsePurchaseDecision(`["Coca-Cola"]`)

	assert.Equal(t, domain.DecisionItems, dec.Kind)
	assert.Equal(t, []string{"Coca-Cola"}, dec.Items)
	assert.Empty(t, dec.Request)
}

func TestParsePurchaseDecisionObjectWithRequest(t *testing.T) {
	dec := ParsePurchaseDecision(`{"items": ["Chips"], "request": "Please add sparkling water."}`)

	assert.Equal(t, domain.DecisionItems, dec.Kind)
	assert.Equal(t, []string{"Chips"}, dec.Items)
	assert.Equal(t, "Please add sparkling water.", dec.Request)
}

func TestParsePurchaseDecisionRequestOnly(t *testing.T) {
	dec := ParsePurchaseDecision(`{"request": "More snacks."}`)

	assert.Equal(t, domain.DecisionItems, dec.Kind)
	assert.Empty(t, dec.Items)
	assert.Equal(t, "More snacks.", dec.Request)
}

func TestParsePurchaseDecisionFencedBlock(t *testing.T) {
	dec := ParsePurchaseDecision("```json\n[\"Water\"]\n```")

	assert.Equal(t, domain.DecisionItems, dec.Kind)
	assert.Equal(t, []string{"Water"}, dec.Items)
}

func TestParsePurchaseDecisionMalformed(t *testing.T) {
	for _, raw := range []string{
		"I think I'll take a Coke.",
		`{"verdict": "yes"}`,
		`[1, 2, 3]`,
		"",
	} {
		dec := ParsePurchaseDecision(raw)
		assert.Equal(t, domain.DecisionMalformed, dec.Kind, "raw=%q", raw)
		assert.Equal(t, raw, dec.Raw)
	}
}

func TestParseRestockPlan(t *testing.T) {
	plan, err := ParseRestockPlan(`{
		"restock_plan": [
			{"product_name": "Snickers", "quantity_to_buy": 5, "selling_price": 2.0},
			{"product_name": "Coke", "quantity_to_buy": 10, "selling_price": 2.5}
		],
		"reasoning": "chocolate sells"
	}`)
	require.NoError(t, err)

	assert.Equal(t, "chocolate sells", plan.Rationale)
	require.Len(t, plan.Lines, 2)
	assert.Equal(t, domain.RestockLine{Product: "Snickers", QuantityToBuy: 5, SellPrice: 2.0}, plan.Lines[0])
}

func TestParseRestockPlanFenced(t *testing.T) {
	plan, err := ParseRestockPlan("```json\n{\"restock_plan\": [], \"reasoning\": \"hold\"}\n```")
	require.NoError(t, err)
	assert.Empty(t, plan.Lines)
}

func TestParseRestockPlanErrors(t *testing.T) {
	_, err := ParseRestockPlan("not json at all")
	assert.Error(t, err)

	_, err = ParseRestockPlan(`{"reasoning": "missing plan"}`)
	assert.Error(t, err)

	_, err = ParseRestockPlan(`{"restock_plan": [{"quantity_to_buy": 3}]}`)
	assert.Error(t, err)
}
