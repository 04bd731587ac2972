// Package natsbus implements the fanout bus with NATS core pub/sub.
package natsbus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/vovakirdan/wirechat-presence/internal/fanout"
)

// Bus publishes and subscribes on one NATS connection. NATS preserves
// per-connection publish order and runs each subscription's handler serially.
type Bus struct {
	nc *nats.Conn
}

var _ fanout.Bus = (*Bus)(nil)

// Connect dials url and keeps reconnecting for the life of the process.
func Connect(url, name string) (*Bus, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.RetryOnFailedConnect(true),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return New(nc), nil
}

// New wraps an established connection. Close closes it.
func New(nc *nats.Conn) *Bus {
	return &Bus{nc: nc}
}

// Publish sends payload on the subject named channel.
func (b *Bus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.nc.Publish(channel, payload); err != nil {
		return fmt.Errorf("nats publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe registers handler and flushes so the server has the interest
// before returning.
func (b *Bus) Subscribe(ctx context.Context, channel string, handler fanout.Handler) error {
	sub, err := b.nc.Subscribe(channel, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", channel, err)
	}
	if err := b.nc.FlushWithContext(ctx); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("nats subscribe %s: %w", channel, err)
	}

	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
	}()
	return nil
}

// Close drops the connection.
func (b *Bus) Close() error {
	b.nc.Close()
	return nil
}
