package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"casino/internal/game"
)

// WagerPublisher fans settled wagers out to every API instance over Redis
// Pub/Sub.
type WagerPublisher struct {
	rdb     *redis.Client
	channel string
}

func NewWagerPublisher(s Service) *WagerPublisher {
	return &WagerPublisher{rdb: s.GetClient(), channel: WagerChannel}
}

func (p *WagerPublisher) Notify(ctx context.Context, outcome game.WagerOutcome) error {
	payload, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("redis: encode wager %s: %w", outcome.ID, err)
	}

	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish wager %s: %w", outcome.ID, err)
	}
	return nil
}

// Subscribe relays wagers published by any instance until ctx is done.
// The returned channel is closed when the subscription ends.
func (p *WagerPublisher) Subscribe(ctx context.Context) (<-chan game.WagerOutcome, error) {
	pubsub := p.rdb.Subscribe(ctx, p.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", p.channel, err)
	}

	out := make(chan game.WagerOutcome, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var o game.WagerOutcome
				if err := json.Unmarshal([]byte(msg.Payload), &o); err != nil {
					log.Printf("[CACHE] Dropping malformed wager event: %v", err)
					continue
				}
				select {
				case out <- o:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
