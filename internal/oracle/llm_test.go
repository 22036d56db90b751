package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/vendingbot/internal/domain"
)

func chatServer(t *testing.T, reply string, gotBody *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if gotBody != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(gotBody))
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": reply}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func sampleAssortment() domain.StockSnapshot {
	return domain.StockSnapshot{Items: map[string]domain.StockItem{
		"Cola": {Quantity: 3, Price: 2.5},
	}}
}

func TestClientDecidePurchase(t *testing.T) {
	var got chatRequest
	srv := chatServer(t, `{"items": ["Cola"], "request": "more juice"}`, &got)
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", WithModel("test-model"))
	dec, err := c.DecidePurchase(context.Background(), domain.Customer{ID: "c1", Segment: "office"}, sampleAssortment())
	require.NoError(t, err)

	assert.Equal(t, domain.DecisionItems, dec.Kind)
	assert.Equal(t, []string{"Cola"}, dec.Items)
	assert.Equal(t, "more juice", dec.Request)

	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[1].Content, "Cola = $2.5 (remaining: 3)")
	assert.Contains(t, got.Messages[1].Content, "office")
}

func TestClientDecidePurchaseMalformedReplyDegrades(t *testing.T) {
	srv := chatServer(t, "sure, I'll take a cola!", nil)
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	dec, err := c.DecidePurchase(context.Background(), domain.Customer{ID: "c1"}, sampleAssortment())
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionMalformed, dec.Kind)
}

func TestClientDecideRestockPlan(t *testing.T) {
	srv := chatServer(t, "```json\n{\"restock_plan\": [{\"product_name\": \"Cola\", \"quantity_to_buy\": 7, \"selling_price\": 2.75}], \"reasoning\": \"steady seller\"}\n```", nil)
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	plan, err := c.DecideRestockPlan(context.Background(), domain.RestockContext{
		Date:    "2026-09-02",
		Stock:   sampleAssortment(),
		Balance: domain.BalanceSnapshot{Balance: 40},
		Catalog: []domain.CatalogEntry{{Name: "Cola", SellPrice: 2.5, SupplierCost: 1.0}},
	})
	require.NoError(t, err)

	assert.Equal(t, "steady seller", plan.Rationale)
	require.Len(t, plan.Lines, 1)
	assert.Equal(t, domain.RestockLine{Product: "Cola", QuantityToBuy: 7, SellPrice: 2.75}, plan.Lines[0])
}

func TestClientServerErrorIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	_, err := c.DecidePurchase(context.Background(), domain.Customer{ID: "c1"}, sampleAssortment())
	assert.ErrorContains(t, err, "unexpected status 503")
}
