// Package fanout carries presence events between server processes.
//
// Every process publishes to and subscribes on one well-known channel, and
// receives its own publishes. Local state only changes on the receive path.
package fanout

import (
	"context"
	"fmt"
)

// Handler receives raw payloads in delivery order for one subscription.
type Handler func(payload []byte)

// Bus is a publish/subscribe transport shared by all processes.
type Bus interface {
	// Publish sends payload to every subscriber of channel, including this process.
	Publish(ctx context.Context, channel string, payload []byte) error

	// Subscribe returns once the subscription is active. handler runs on a
	// single goroutine until ctx is done or the bus is closed.
	Subscribe(ctx context.Context, channel string, handler Handler) error

	Close() error
}

// Publisher encodes events onto a fixed channel.
type Publisher struct {
	bus     Bus
	channel string
}

// NewPublisher binds bus to channel.
func NewPublisher(bus Bus, channel string) *Publisher {
	return &Publisher{bus: bus, channel: channel}
}

// Channel returns the channel events are published on.
func (p *Publisher) Channel() string {
	return p.channel
}

// Publish encodes ev and publishes it.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	payload, err := Encode(ev)
	if err != nil {
		return err
	}
	if err := p.bus.Publish(ctx, p.channel, payload); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Header, err)
	}
	return nil
}
