package sim

import (
	"fmt"
	"time"
)

// Clock is the monotonic simulated clock that timestamps ledger events.
// It starts at the configured date and start time and advances by a fixed
// step each time an event is stamped. Wall-clock time never determines
// event ordering.
type Clock struct {
	next time.Time
	step time.Duration
}

// NewClock builds a clock for the given simulation date (YYYY-MM-DD) and
// start time (HH:MM:SS). A start time that fails to parse falls back to
// 09:00:00, matching the historical simulator.
func NewClock(date, startTime string, step time.Duration) (*Clock, error) {
	if startTime == "" {
		startTime = "09:00:00"
	}
	start, err := time.Parse("2006-01-02 15:04:05", date+" "+startTime)
	if err != nil {
		start, err = time.Parse("2006-01-02 15:04:05", date+" 09:00:00")
		if err != nil {
			return nil, fmt.Errorf("sim: parse clock start for %q: %w", date, err)
		}
	}
	if step <= 0 {
		step = 90 * time.Second
	}
	return &Clock{next: start, step: step}, nil
}

// Stamp returns the next event timestamp and advances the clock by one step.
func (c *Clock) Stamp() time.Time {
	ts := c.next
	c.next = c.next.Add(c.step)
	return ts
}

// Peek returns the timestamp the next Stamp call would produce.
func (c *Clock) Peek() time.Time {
	return c.next
}
