package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/alanyoungcy/vendingbot/internal/restock"
	"github.com/alanyoungcy/vendingbot/internal/sim"
)

// Event types the operator can subscribe to.
const (
	EventDayClosed       = "day-closed"
	EventRestockCommit   = "restock-commit"
	EventRestockRejected = "restock-rejected"
)

// DayClosed announces the end-of-day summary.
func (n *Notifier) DayClosed(ctx context.Context, report *sim.DayReport) error {
	title := fmt.Sprintf("Day closed: %s", report.Date)
	msg := fmt.Sprintf(
		"visits: %d\nunits sold: %d\ntakings: $%.2f\nbalance: $%.2f\nrequests: %d\noracle faults: %d",
		report.Visits, report.UnitsSold, report.Spend,
		report.ClosingBalance, len(report.Requests), report.Faults,
	)
	return n.Notify(ctx, EventDayClosed, title, msg)
}

// RestockCommitted announces a committed restock plan.
func (n *Notifier) RestockCommitted(ctx context.Context, res *restock.Result) error {
	title := fmt.Sprintf("Restock committed for %s", res.Date)

	names := make([]string, 0, len(res.Stocked))
	for name := range res.Stocked {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("%s: %d", name, res.Stocked[name]))
	}
	msg := fmt.Sprintf("cost: $%.2f\nnew balance: $%.2f\n%s",
		res.Cost, res.NewBalance, strings.Join(lines, "\n"))
	return n.Notify(ctx, EventRestockCommit, title, msg)
}

// RestockRejected announces a plan the engine refused.
func (n *Notifier) RestockRejected(ctx context.Context, date string, reason error) error {
	return n.Notify(ctx, EventRestockRejected,
		fmt.Sprintf("Restock rejected for %s", date), reason.Error())
}
