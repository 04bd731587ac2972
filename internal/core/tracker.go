package core

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-presence/internal/fanout"
	"github.com/vovakirdan/wirechat-presence/internal/metrics"
	"github.com/vovakirdan/wirechat-presence/internal/presence"
)

// Tracker records sessions in the shared presence store and announces them
// on the bus. Failures are logged and counted, never returned: a session is
// served even when its presence side effects did not happen.
type Tracker struct {
	store     presence.Store
	publisher *fanout.Publisher
	log       *zerolog.Logger
	metrics   *metrics.Metrics
}

// NewTracker creates a tracker.
func NewTracker(st presence.Store, pub *fanout.Publisher, logger *zerolog.Logger, m *metrics.Metrics) *Tracker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Tracker{store: st, publisher: pub, log: logger, metrics: m}
}

// Connect appends the session's identity and publishes users.connection.
// The publish is skipped when the append fails.
func (t *Tracker) Connect(ctx context.Context, s *Session) error {
	if err := s.transition(StateAuthenticated, StateOnline); err != nil {
		return err
	}

	logger := t.sessionLogger(s)

	entry, err := presence.EntryFor(s.Identity)
	if err != nil {
		logger.Error().Err(err).Msg("encode presence entry")
		return nil
	}

	if err := t.store.Append(ctx, entry); err != nil {
		t.metrics.StoreError("append")
		logger.Warn().Err(err).Msg("presence append failed, session stays unlisted")
		return nil
	}
	s.listed = true

	t.publish(ctx, logger, fanout.HeaderUserConnected, s)
	logger.Info().Msg("session online")
	return nil
}

// Disconnect removes one matching entry and publishes users.disconnection.
// It runs to completion even if ctx is already cancelled.
//
// Entries are matched by value: with two sessions of the same identity the
// entry removed may be the other session's. Both are equal, so the list
// still holds exactly one of them afterwards.
func (t *Tracker) Disconnect(ctx context.Context, s *Session) error {
	if err := s.transition(StateOnline, StateClosed); err != nil {
		return err
	}

	ctx = context.WithoutCancel(ctx)
	logger := t.sessionLogger(s)
	defer func() { logger.Info().Msg("session closed") }()

	if !s.listed {
		return nil
	}
	s.listed = false

	entry, err := presence.EntryFor(s.Identity)
	if err != nil {
		logger.Error().Err(err).Msg("encode presence entry")
		return nil
	}

	if err := t.store.RemoveOne(ctx, entry); err != nil {
		t.metrics.StoreError("remove")
		logger.Warn().Err(err).Msg("presence remove failed, entry may be stale")
		return nil
	}

	t.publish(ctx, logger, fanout.HeaderUserDisconnected, s)
	return nil
}

func (t *Tracker) publish(ctx context.Context, logger zerolog.Logger, header string, s *Session) {
	if err := t.publisher.Publish(ctx, fanout.Event{Header: header, Body: s.Identity}); err != nil {
		t.metrics.BusError("publish")
		logger.Warn().Err(err).Str("header", header).Msg("fanout publish failed")
	}
}

func (t *Tracker) sessionLogger(s *Session) zerolog.Logger {
	return t.log.With().
		Str("session_id", s.ID).
		Str("email", s.Identity.Email).
		Logger()
}
