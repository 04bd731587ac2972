// Package presence defines the shared list of online identities.
//
// The list is owned by external infrastructure, not by any server process.
// It is an ordered list, not a set: two sessions with byte-identical
// identities append two entries, and RemoveOne removes whichever equal
// entry comes first. Nothing here records which connection owns which entry.
package presence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vovakirdan/wirechat-presence/internal/auth"
)

// Entry is a serialized Identity as held by the store.
type Entry string

// Store is the shared presence list. Implementations must be safe for
// concurrent use by many processes; each single call is atomic.
type Store interface {
	// Append adds entry to the end of the list. Duplicates are kept.
	Append(ctx context.Context, e Entry) error

	// RemoveOne removes the first element equal to e. Absent entries are a no-op.
	RemoveOne(ctx context.Context, e Entry) error

	// ListAll returns a snapshot of the whole list in insertion order.
	ListAll(ctx context.Context) ([]Entry, error)

	// Reset empties the list.
	Reset(ctx context.Context) error

	Close() error
}

// EntryFor serializes an identity.
func EntryFor(id auth.Identity) (Entry, error) {
	b, err := json.Marshal(id)
	if err != nil {
		return "", fmt.Errorf("encode presence entry: %w", err)
	}
	return Entry(b), nil
}

// Identity decodes the entry.
func (e Entry) Identity() (auth.Identity, error) {
	var id auth.Identity
	if err := json.Unmarshal([]byte(e), &id); err != nil {
		return auth.Identity{}, fmt.Errorf("decode presence entry: %w", err)
	}
	return id, nil
}
