// Package oracle adapts decision makers to the domain interfaces: an HTTP
// client for an LLM chat-completion endpoint and a deterministic local
// oracle backed by the scoring package. All payload validation happens
// here; callers never see malformed items.
package oracle

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/alanyoungcy/vendingbot/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ParsePurchaseDecision validates raw oracle output. Two shapes are
// accepted: a bare JSON array of product names, or an object
// {"items": [...], "request": "..."}. Anything else becomes the Malformed
// variant; it is never an error.
func ParsePurchaseDecision(raw string) domain.PurchaseDecision {
	text := stripFences(raw)

	var names []string
	if err := json.UnmarshalFromString(text, &names); err == nil {
		return domain.PurchaseDecision{Kind: domain.DecisionItems, Items: names}
	}

	var obj struct {
		Items   []string `json:"items"`
		Request string   `json:"request"`
	}
	if err := json.UnmarshalFromString(text, &obj); err == nil && (obj.Items != nil || obj.Request != "") {
		return domain.PurchaseDecision{Kind: domain.DecisionItems, Items: obj.Items, Request: obj.Request}
	}

	return domain.MalformedDecision(raw)
}

// ParseRestockPlan validates raw restock-oracle output of the shape
// {"restock_plan": [{"product_name", "quantity_to_buy", "selling_price"}],
// "reasoning": "..."}, optionally wrapped in a fenced json block.
func ParseRestockPlan(raw string) (domain.RestockPlan, error) {
	text := stripFences(raw)

	var payload struct {
		Plan []struct {
			ProductName   string  `json:"product_name"`
			QuantityToBuy int     `json:"quantity_to_buy"`
			SellingPrice  float64 `json:"selling_price"`
		} `json:"restock_plan"`
		Reasoning string `json:"reasoning"`
	}
	if err := json.UnmarshalFromString(text, &payload); err != nil {
		return domain.RestockPlan{}, fmt.Errorf("oracle: decode restock plan: %w", err)
	}
	if payload.Plan == nil {
		return domain.RestockPlan{}, fmt.Errorf("oracle: restock plan missing restock_plan field")
	}

	plan := domain.RestockPlan{Rationale: payload.Reasoning}
	for _, line := range payload.Plan {
		if line.ProductName == "" {
			return domain.RestockPlan{}, fmt.Errorf("oracle: restock line without product name")
		}
		plan.Lines = append(plan.Lines, domain.RestockLine{
			Product:       line.ProductName,
			QuantityToBuy: line.QuantityToBuy,
			SellPrice:     line.SellingPrice,
		})
	}
	return plan, nil
}

// stripFences unwraps a ```json ... ``` (or plain ```) fenced block, a
// shape chat models frequently produce.
func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimPrefix(text, "json")
	if i := strings.LastIndex(text, "```"); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}
