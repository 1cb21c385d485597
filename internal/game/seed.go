package game

import (
	"context"
	"time"
)

// SeedSource supplies the public seed read at bet time. It must advance
// independently of the bet being placed.
type SeedSource interface {
	CurrentSeed(ctx context.Context) (uint64, error)
}

// SeedFunc adapts a function to SeedSource.
type SeedFunc func(ctx context.Context) (uint64, error)

func (f SeedFunc) CurrentSeed(ctx context.Context) (uint64, error) {
	return f(ctx)
}

// DefaultSlotDuration mirrors the 400ms slot time of the original ledger.
const DefaultSlotDuration = 400 * time.Millisecond

// SlotClock derives a monotonically increasing slot height from wall time.
type SlotClock struct {
	genesis      time.Time
	slotDuration time.Duration
	now          func() time.Time
}

func NewSlotClock(genesis time.Time, slotDuration time.Duration) *SlotClock {
	if slotDuration <= 0 {
		slotDuration = DefaultSlotDuration
	}
	return &SlotClock{
		genesis:      genesis,
		slotDuration: slotDuration,
		now:          time.Now,
	}
}

func (c *SlotClock) CurrentSeed(ctx context.Context) (uint64, error) {
	elapsed := c.now().Sub(c.genesis)
	if elapsed < 0 {
		return 0, nil
	}
	return uint64(elapsed / c.slotDuration), nil
}
