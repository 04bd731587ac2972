package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-presence/internal/auth"
	"github.com/vovakirdan/wirechat-presence/internal/presence"
	"github.com/vovakirdan/wirechat-presence/internal/store"
)

// Query answers the read-side socket requests.
type Query struct {
	presence  presence.Store
	directory store.UserStore
	log       *zerolog.Logger
}

// NewQuery creates a query service.
func NewQuery(ps presence.Store, directory store.UserStore, logger *zerolog.Logger) *Query {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Query{presence: ps, directory: directory, log: logger}
}

// ListOnline returns every identity in the presence store in store order,
// duplicates included. Entries that do not decode are skipped.
func (q *Query) ListOnline(ctx context.Context) ([]auth.Identity, error) {
	entries, err := q.presence.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list presence: %w", err)
	}

	out := make([]auth.Identity, 0, len(entries))
	for _, e := range entries {
		id, err := e.Identity()
		if err != nil {
			q.log.Warn().Err(err).Msg("skipping undecodable presence entry")
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// Info looks the email up in the user directory. It does not consult
// presence: offline users are returned too.
func (q *Query) Info(ctx context.Context, email string) (*auth.Identity, error) {
	user, err := q.directory.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	id := auth.IdentityOf(user)
	return &id, nil
}
