package core

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/vovakirdan/wirechat-presence/internal/auth"
	"github.com/vovakirdan/wirechat-presence/internal/presence"
	"github.com/vovakirdan/wirechat-presence/internal/presence/redisstore"
	"github.com/vovakirdan/wirechat-presence/internal/store"
	"github.com/vovakirdan/wirechat-presence/internal/store/sqlite"
)

func newTestQuery(t *testing.T) (*Query, presence.Store, store.UserStore) {
	t.Helper()

	mr := miniredis.RunT(t)
	ps := redisstore.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "users")
	dir, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = ps.Close()
		_ = dir.Close()
	})
	return NewQuery(ps, dir, nil), ps, dir
}

func TestListOnlineReturnsStoreOrderWithDuplicates(t *testing.T) {
	q, ps, _ := newTestQuery(t)
	ctx := context.Background()

	alice := auth.Identity{Firstname: "Alice", Lastname: "L", Email: "alice@x.com"}
	bob := auth.Identity{Firstname: "Bob", Lastname: "B", Email: "bob@x.com"}
	for _, id := range []auth.Identity{alice, bob, bob} {
		e, _ := presence.EntryFor(id)
		_ = ps.Append(ctx, e)
	}
	_ = ps.Append(ctx, presence.Entry("garbage"))

	got, err := q.ListOnline(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []auth.Identity{alice, bob, bob}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestListOnlineEmpty(t *testing.T) {
	q, _, _ := newTestQuery(t)

	got, err := q.ListOnline(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestInfo(t *testing.T) {
	q, _, dir := newTestQuery(t)
	ctx := context.Background()

	if _, err := dir.CreateUser(ctx, &store.User{
		Firstname:    "Alice",
		Lastname:     "Liddell",
		Email:        "alice@x.com",
		PasswordHash: "secret-hash",
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	got, err := q.Info(ctx, "alice@x.com")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if *got != (auth.Identity{Firstname: "Alice", Lastname: "Liddell", Email: "alice@x.com"}) {
		t.Fatalf("unexpected identity %+v", got)
	}

	if _, err := q.Info(ctx, "missing@x.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
