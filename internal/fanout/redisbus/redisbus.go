// Package redisbus implements the fanout bus with Redis PUBLISH/SUBSCRIBE.
package redisbus

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/vovakirdan/wirechat-presence/internal/fanout"
)

// Bus owns its client; subscriptions use dedicated connections from it.
type Bus struct {
	client redis.UniversalClient

	mu   sync.Mutex
	subs []*redis.PubSub
}

var _ fanout.Bus = (*Bus)(nil)

// New wraps client. Close closes it.
func New(client redis.UniversalClient) *Bus {
	return &Bus{client: client}
}

// Publish sends payload on channel.
func (b *Bus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe waits for the SUBSCRIBE confirmation, then delivers messages
// to handler in order on one goroutine. go-redis resubscribes after reconnects.
func (b *Bus) Subscribe(ctx context.Context, channel string, handler fanout.Handler) error {
	ps := b.client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("redis subscribe %s: %w", channel, err)
	}

	b.mu.Lock()
	b.subs = append(b.subs, ps)
	b.mu.Unlock()

	msgs := ps.Channel()
	go func() {
		defer ps.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				handler([]byte(msg.Payload))
			}
		}
	}()
	return nil
}

// Close ends all subscriptions and closes the client.
func (b *Bus) Close() error {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, ps := range subs {
		_ = ps.Close()
	}
	return b.client.Close()
}
