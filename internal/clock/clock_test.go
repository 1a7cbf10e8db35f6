package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemSlotIsMonotonic(t *testing.T) {
	c := NewSystem(100, time.Millisecond)

	first := c.Slot()
	time.Sleep(5 * time.Millisecond)
	second := c.Slot()

	assert.GreaterOrEqual(t, first, uint64(100))
	assert.Greater(t, second, first)
	assert.InDelta(t, time.Now().Unix(), c.Now(), 1)
}

func TestManualAdvance(t *testing.T) {
	c := NewManual(1_700_000_000, 10)
	c.Advance(3)

	assert.Equal(t, int64(1_700_000_003), c.Now())
	assert.Equal(t, uint64(13), c.Slot())

	c.Set(5, 7)
	assert.Equal(t, int64(5), c.Now())
	assert.Equal(t, uint64(7), c.Slot())
}
