package notify

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/vendingbot/internal/restock"
)

type captureSender struct {
	titles   []string
	messages []string
}

func (c *captureSender) Send(ctx context.Context, title, message string) error {
	c.titles = append(c.titles, title)
	c.messages = append(c.messages, message)
	return nil
}

func (c *captureSender) Name() string { return "capture" }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRestockCommittedListsProductsInNameOrder(t *testing.T) {
	sender := &captureSender{}
	n := NewNotifier([]Sender{sender}, nil, testLogger())

	res := &restock.Result{
		Date:       "2026-09-02",
		Cost:       13.0,
		NewBalance: 37.0,
		Stocked:    map[string]int{"Water": 4, "Cola": 8, "Chips": 10},
	}

	// The body must be stable across runs regardless of map iteration.
	for i := 0; i < 3; i++ {
		require.NoError(t, n.RestockCommitted(context.Background(), res))
	}

	require.Len(t, sender.messages, 3)
	want := "cost: $13.00\nnew balance: $37.00\nChips: 10\nCola: 8\nWater: 4"
	for _, msg := range sender.messages {
		assert.Equal(t, want, msg)
	}
	assert.Equal(t, "Restock committed for 2026-09-02", sender.titles[0])
}

func TestNotifyFiltersUnsubscribedEvents(t *testing.T) {
	sender := &captureSender{}
	n := NewNotifier([]Sender{sender}, []string{EventDayClosed}, testLogger())

	require.NoError(t, n.RestockRejected(context.Background(), "2026-09-02", context.DeadlineExceeded))
	assert.Empty(t, sender.messages)
}
