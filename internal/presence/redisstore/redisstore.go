// Package redisstore keeps the presence list in a Redis list.
package redisstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vovakirdan/wirechat-presence/internal/presence"
)

// Store implements presence.Store with RPUSH / LREM / LRANGE on a single key.
type Store struct {
	client redis.UniversalClient
	key    string
}

var _ presence.Store = (*Store)(nil)

// New uses client for all operations under key. The caller owns client
// unless Close is called.
func New(client redis.UniversalClient, key string) *Store {
	return &Store{client: client, key: key}
}

// Append pushes the entry to the tail of the list.
func (s *Store) Append(ctx context.Context, e presence.Entry) error {
	if err := s.client.RPush(ctx, s.key, string(e)).Err(); err != nil {
		return fmt.Errorf("rpush %s: %w", s.key, err)
	}
	return nil
}

// RemoveOne removes the first element equal to e, scanning from the head.
func (s *Store) RemoveOne(ctx context.Context, e presence.Entry) error {
	if err := s.client.LRem(ctx, s.key, 1, string(e)).Err(); err != nil {
		return fmt.Errorf("lrem %s: %w", s.key, err)
	}
	return nil
}

// ListAll reads the whole list.
func (s *Store) ListAll(ctx context.Context) ([]presence.Entry, error) {
	values, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", s.key, err)
	}
	entries := make([]presence.Entry, len(values))
	for i, v := range values {
		entries[i] = presence.Entry(v)
	}
	return entries, nil
}

// Reset deletes the key.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("del %s: %w", s.key, err)
	}
	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
