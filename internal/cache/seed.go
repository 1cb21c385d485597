package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// SlotCounter hands out the public seed from a shared Redis counter, so
// every API instance reads the same monotonically advancing slot.
type SlotCounter struct {
	rdb *redis.Client
	key string
}

func NewSlotCounter(s Service) *SlotCounter {
	return &SlotCounter{rdb: s.GetClient(), key: SlotKey}
}

// CurrentSeed advances the counter and returns the new slot.
func (c *SlotCounter) CurrentSeed(ctx context.Context) (uint64, error) {
	slot, err := c.rdb.Incr(ctx, c.key).Uint64()
	if err != nil {
		return 0, fmt.Errorf("redis: advance slot: %w", err)
	}
	return slot, nil
}
