package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockStampAdvancesByStep(t *testing.T) {
	c, err := NewClock("2026-09-01", "09:00:00", 90*time.Second)
	require.NoError(t, err)

	first := c.Stamp()
	second := c.Stamp()

	assert.Equal(t, time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC), first)
	assert.Equal(t, 90*time.Second, second.Sub(first))
	assert.Equal(t, 90*time.Second, c.Peek().Sub(second))
}

func TestClockDefaultsStartTimeAndStep(t *testing.T) {
	c, err := NewClock("2026-09-01", "not-a-time", 0)
	require.NoError(t, err)

	first := c.Stamp()
	assert.Equal(t, 9, first.Hour())
	assert.Equal(t, 90*time.Second, c.Peek().Sub(first))
}

func TestClockBadDate(t *testing.T) {
	_, err := NewClock("yesterday", "09:00:00", time.Minute)
	assert.Error(t, err)
}
