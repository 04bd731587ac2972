package core

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-presence/internal/fanout"
	"github.com/vovakirdan/wirechat-presence/internal/metrics"
)

// Hub owns the set of sockets attached to this process and relays fanout
// events to them. All mutations happen on the Run goroutine.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Event
	count      chan chan int
	done       chan struct{}

	clients map[*Client]struct{}

	log     *zerolog.Logger
	metrics *metrics.Metrics
}

// NewHub creates a hub. Call Run before using it.
func NewHub(logger *zerolog.Logger, m *metrics.Metrics) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Event, 64),
		count:      make(chan chan int),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		log:        logger,
		metrics:    m,
	}
}

// Run processes hub traffic until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
		case c := <-h.unregister:
			delete(h.clients, c)
		case ev := <-h.broadcast:
			h.deliver(ev)
		case reply := <-h.count:
			reply <- len(h.clients)
		}
	}
}

func (h *Hub) deliver(ev *Event) {
	for c := range h.clients {
		if !c.Send(ev) {
			h.metrics.FanoutDropped(metrics.DropSlowClient)
			h.log.Warn().Str("session_id", c.ID).Str("event", ev.Name).Msg("client backed up, event dropped")
		}
	}
}

// RegisterClient attaches a socket so it receives broadcasts.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// UnregisterClient detaches a socket. Safe to call after Run returned.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast sends ev to every attached socket.
func (h *Hub) Broadcast(ev *Event) {
	select {
	case h.broadcast <- ev:
	case <-h.done:
	}
}

// ClientCount reports how many sockets are attached.
func (h *Hub) ClientCount() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

// HandleFanout is the bus subscription handler. Data envelopes are re-emitted
// under their header; anything unparseable is logged and dropped.
func (h *Hub) HandleFanout(payload []byte) {
	h.metrics.FanoutReceived()

	msg, err := fanout.Decode(payload)
	if err != nil {
		h.metrics.FanoutDropped(metrics.DropMalformed)
		h.log.Warn().Err(err).Int("bytes", len(payload)).Msg("dropping malformed fanout message")
		return
	}
	if msg.Kind != fanout.KindData {
		h.metrics.FanoutDropped(metrics.DropUnknownKind)
		h.log.Debug().Str("kind", msg.Kind).Msg("ignoring fanout message")
		return
	}

	var body any
	if len(msg.Body) > 0 {
		body = json.RawMessage(msg.Body)
	}
	h.Broadcast(&Event{Name: msg.Header, Data: body})
}
