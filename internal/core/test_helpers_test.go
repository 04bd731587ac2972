package core

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/vovakirdan/wirechat-presence/internal/fanout"
	"github.com/vovakirdan/wirechat-presence/internal/fanout/redisbus"
	"github.com/vovakirdan/wirechat-presence/internal/presence/redisstore"
)

const testChannel = "chatroom"

func mustEvent(t *testing.T, ch <-chan *Event, name string) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Name == name {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event %q not received", name)
	return nil
}

func mustNoEvent(t *testing.T, ch <-chan *Event, within time.Duration) {
	t.Helper()

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(within):
	}
}

// process is one server process: its own hub, store client and bus client,
// all pointed at a shared Redis.
type process struct {
	hub     *Hub
	store   *redisstore.Store
	bus     *redisbus.Bus
	tracker *Tracker
}

func startProcess(t *testing.T, ctx context.Context, mr *miniredis.Miniredis) *process {
	t.Helper()

	st := redisstore.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "users")
	bus := redisbus.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() {
		_ = st.Close()
		_ = bus.Close()
	})

	hub := NewHub(nil, nil)
	go hub.Run(ctx)

	if err := bus.Subscribe(ctx, testChannel, hub.HandleFanout); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	return &process{
		hub:     hub,
		store:   st,
		bus:     bus,
		tracker: NewTracker(st, fanout.NewPublisher(bus, testChannel), nil, nil),
	}
}
