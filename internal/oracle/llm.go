package oracle

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alanyoungcy/vendingbot/internal/domain"
	"github.com/alanyoungcy/vendingbot/internal/sim"
)

const purchaseSystemPrompt = `You decide vending-machine purchases for a single customer.
Respond with JSON only: either a bare array of product names from the
current assortment, or an object {"items": [...], "request": "..."}.
Omit "items" when nothing is bought and "request" when there is nothing
to tell the operator.`

const restockSystemPrompt = `You restock a vending machine for its operator.
The machine has at most 10 slots and at most 10 units per slot. Never plan
a purchase the balance cannot cover, and only order products the supplier
carries. Respond with JSON only:
{"restock_plan": [{"product_name": "...", "quantity_to_buy": 0, "selling_price": 0.0}],
 "reasoning": "..."}`

// Client is the REST client for a chat-completion decision endpoint. It
// implements both domain.PurchaseOracle and domain.RestockOracle.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
	limiter     domain.RateLimiter
}

// ClientOption tweaks a Client.
type ClientOption func(*Client)

// WithModel overrides the default model name.
func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) ClientOption {
	return func(c *Client) { c.temperature = t }
}

// WithLimiter paces completion calls through the given rate limiter.
func WithLimiter(l domain.RateLimiter) ClientOption {
	return func(c *Client) { c.limiter = l }
}

// NewClient creates a decision client for an OpenAI-compatible
// chat-completion endpoint rooted at baseURL.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       "gpt-4o-mini",
		temperature: 0.4,
		maxTokens:   512,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	_ domain.PurchaseOracle = (*Client)(nil)
	_ domain.RestockOracle  = (*Client)(nil)
)

// DecidePurchase asks the model what the customer buys from the live
// assortment. Unparseable output degrades to the Malformed variant;
// transport failures are returned for the caller's retry policy.
func (c *Client) DecidePurchase(ctx context.Context, cust domain.Customer, assortment domain.StockSnapshot) (domain.PurchaseDecision, error) {
	prompt := fmt.Sprintf(`You walk up to a vending machine and see the following items, prices, and remaining quantities:

%s

Customer profile:
segment: %s
sugar preference: %.2f, health preference: %.2f, caffeine preference: %.2f
hunger: %.2f, price sensitivity: %.2f

Decide whether this customer buys anything, and optionally leave a request
for the machine operator.`,
		sim.RenderAssortment(assortment),
		cust.Segment,
		cust.Prefs.Sugar, cust.Prefs.Health, cust.Prefs.Caffeine,
		cust.Prefs.Hunger, cust.Prefs.PriceSensitivity,
	)

	content, err := c.complete(ctx, purchaseSystemPrompt, prompt)
	if err != nil {
		return domain.PurchaseDecision{}, fmt.Errorf("oracle: purchase decision: %w", err)
	}
	return ParsePurchaseDecision(content), nil
}

// DecideRestockPlan asks the model for a whole-day restock plan.
func (c *Client) DecideRestockPlan(ctx context.Context, in domain.RestockContext) (domain.RestockPlan, error) {
	payload := map[string]any{
		"current_date": in.Date,
		"vending_machine_state": map[string]any{
			"balance":       in.Balance.Balance,
			"current_stock": in.Stock.Items,
		},
		"historical_events":    in.History,
		"supplier_information": in.Catalog,
	}
	if in.Guidance != "" {
		payload["operator_guidelines"] = in.Guidance
	}
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return domain.RestockPlan{}, fmt.Errorf("oracle: encode restock context: %w", err)
	}

	content, err := c.complete(ctx, restockSystemPrompt,
		"Here is the data for today's restock decision:\n"+string(body))
	if err != nil {
		return domain.RestockPlan{}, fmt.Errorf("oracle: restock decision: %w", err)
	}
	return ParseRestockPlan(content)
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// complete posts one chat completion and returns the first choice's text.
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, "oracle"); err != nil {
			return "", fmt.Errorf("rate limit: %w", err)
		}
	}

	reqBody, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty completion: %w", domain.ErrNoDecision)
	}
	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
