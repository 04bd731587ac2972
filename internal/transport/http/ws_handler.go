package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-presence/internal/core"
	"github.com/vovakirdan/wirechat-presence/internal/metrics"
	"github.com/vovakirdan/wirechat-presence/internal/proto"
)

// WSHandler upgrades gated requests and bridges sockets to the hub.
type WSHandler struct {
	hub             *core.Hub
	tracker         *core.Tracker
	query           *core.Query
	maxMessageBytes int64
	eventsPerMinute int
	log             *zerolog.Logger
	metrics         *metrics.Metrics

	mu       sync.Mutex
	closed   bool
	closing  chan struct{}
	sessions sync.WaitGroup
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, tracker *core.Tracker, query *core.Query, maxMessageBytes int64, eventsPerMinute int, logger *zerolog.Logger, m *metrics.Metrics) *WSHandler {
	return &WSHandler{
		hub:             hub,
		tracker:         tracker,
		query:           query,
		maxMessageBytes: maxMessageBytes,
		eventsPerMinute: eventsPerMinute,
		log:             logger,
		metrics:         m,
		closing:         make(chan struct{}),
	}
}

// ServeHTTP serves GET /ws. It must run behind Gate.Handler.
func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		writeNotAuthenticated(w)
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		stdhttp.Error(w, "server shutting down", stdhttp.StatusServiceUnavailable)
		return
	}
	h.sessions.Add(1)
	h.mu.Unlock()
	defer h.sessions.Done()

	h.serve(w, r, session)
}

// Shutdown closes every attached socket and waits until their sessions
// have left the presence store, or ctx ends. New upgrades are refused.
func (h *WSHandler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	if !h.closed {
		h.closed = true
		close(h.closing)
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *WSHandler) serve(w stdhttp.ResponseWriter, r *stdhttp.Request, session *core.Session) {
	ctx := r.Context()
	logger := h.log.With().Str("session_id", session.ID).Str("email", session.Identity.Email).Logger()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		logger.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.maxMessageBytes > 0 {
		conn.SetReadLimit(h.maxMessageBytes)
	}

	client := core.NewClient(session)
	h.hub.RegisterClient(client)
	h.metrics.SessionOpened()
	logger.Info().Msg("socket connection")

	if err := h.tracker.Connect(ctx, session); err != nil {
		logger.Error().Err(err).Msg("session connect")
	}

	defer func() {
		h.hub.UnregisterClient(client)
		if err := h.tracker.Disconnect(ctx, session); err != nil {
			logger.Error().Err(err).Msg("session disconnect")
		}
		h.metrics.SessionClosed()
		logger.Info().Msg("socket disconnection")
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client, logger)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client, logger)
	}()

	shuttingDown := false
	select {
	case err = <-errCh:
	case <-h.closing:
		shuttingDown = true
		cancel()
		err = <-errCh
	}
	cancel() // stop the other goroutine
	<-errCh

	if shuttingDown {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			logger.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, logger zerolog.Logger) error {
	limiter := newRateLimiter(h.eventsPerMinute)
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		if !limiter.Allow() {
			h.reply(client, core.ErrorEvent(ErrCodeRateLimited, "too many requests"), logger)
			continue
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			logger.Debug().Err(err).Msg("invalid inbound json")
			h.reply(client, core.ErrorEvent(core.ErrCodeBadRequest, "invalid json"), logger)
			continue
		}

		if reply := h.handleInbound(ctx, inbound, logger); reply != nil {
			h.reply(client, reply, logger)
		}
	}
}

func (h *WSHandler) reply(client *core.Client, ev *core.Event, logger zerolog.Logger) {
	if !client.Send(ev) {
		logger.Warn().Str("event", ev.Name).Msg("client backed up, reply dropped")
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, logger zerolog.Logger) error {
	for {
		select {
		case event := <-client.Events:
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				logger.Debug().Err(err).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
