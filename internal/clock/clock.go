package clock

import (
	"sync"
	"time"
)

// DefaultSlotDuration is the length of one slot of the sequence counter.
const DefaultSlotDuration = 400 * time.Millisecond

// Clock supplies wall-clock time and a monotonic sequence counter.
type Clock interface {
	Now() int64
	Slot() uint64
}

// System derives the slot from the monotonic reading elapsed since the
// clock was created, offset by the slot at which it was started.
type System struct {
	started      time.Time
	startSlot    uint64
	slotDuration time.Duration
}

func NewSystem(startSlot uint64, slotDuration time.Duration) *System {
	if slotDuration <= 0 {
		slotDuration = DefaultSlotDuration
	}
	return &System{
		started:      time.Now(),
		startSlot:    startSlot,
		slotDuration: slotDuration,
	}
}

func (c *System) Now() int64 {
	return time.Now().Unix()
}

func (c *System) Slot() uint64 {
	return c.startSlot + uint64(time.Since(c.started)/c.slotDuration)
}

// Manual is a clock moved explicitly by its owner.
type Manual struct {
	mu   sync.Mutex
	now  int64
	slot uint64
}

func NewManual(now int64, slot uint64) *Manual {
	return &Manual{now: now, slot: slot}
}

func (c *Manual) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Manual) Slot() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slot
}

// Advance moves time forward by seconds and the counter by one slot per
// elapsed second.
func (c *Manual) Advance(seconds int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += seconds
	if seconds > 0 {
		c.slot += uint64(seconds)
	}
}

func (c *Manual) Set(now int64, slot uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
	c.slot = slot
}
