package core

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/vovakirdan/wirechat-presence/internal/auth"
	"github.com/vovakirdan/wirechat-presence/internal/presence"
)

func authenticated(t *testing.T, id auth.Identity) *Session {
	t.Helper()
	s := NewSession("p")
	if err := s.Authenticate(id); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	return s
}

func countEntries(t *testing.T, st presence.Store, id auth.Identity) int {
	t.Helper()
	want, _ := presence.EntryFor(id)
	entries, err := st.ListAll(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	n := 0
	for _, e := range entries {
		if e == want {
			n++
		}
	}
	return n
}

func TestConnectOnOneProcessIsRelayedByAnother(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mr := miniredis.RunT(t)
	p1 := startProcess(t, ctx, mr)
	p2 := startProcess(t, ctx, mr)

	watcher := newTestClient(t, "watcher@x.com")
	p2.hub.RegisterClient(watcher)

	alice := auth.Identity{Firstname: "Alice", Lastname: "Liddell", Email: "alice@x.com"}
	s := authenticated(t, alice)
	if err := p1.tracker.Connect(ctx, s); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if s.State != StateOnline {
		t.Fatalf("expected online, got %s", s.State)
	}
	if n := countEntries(t, p2.store, alice); n != 1 {
		t.Fatalf("expected one alice entry, got %d", n)
	}

	ev := mustEvent(t, watcher.Events, EventUsersConnection)
	var body auth.Identity
	if err := json.Unmarshal(ev.Data.(json.RawMessage), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body != alice {
		t.Fatalf("expected %+v, got %+v", alice, body)
	}

	if err := p1.tracker.Disconnect(ctx, s); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if s.State != StateClosed {
		t.Fatalf("expected closed, got %s", s.State)
	}
	mustEvent(t, watcher.Events, EventUsersDisconnection)
	if n := countEntries(t, p2.store, alice); n != 0 {
		t.Fatalf("expected alice removed, got %d", n)
	}
}

func TestPublisherProcessReceivesOwnEvent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mr := miniredis.RunT(t)
	p1 := startProcess(t, ctx, mr)

	local := newTestClient(t, "local@x.com")
	p1.hub.RegisterClient(local)

	if err := p1.tracker.Connect(ctx, authenticated(t, auth.Identity{Email: "dave@x.com"})); err != nil {
		t.Fatalf("connect: %v", err)
	}
	mustEvent(t, local.Events, EventUsersConnection)
}

func TestDuplicateIdentitiesLeaveOneEntryAfterOneDisconnect(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mr := miniredis.RunT(t)
	p1 := startProcess(t, ctx, mr)
	p2 := startProcess(t, ctx, mr)

	bob := auth.Identity{Firstname: "Bob", Lastname: "B", Email: "bob@x.com"}
	s1 := authenticated(t, bob)
	s2 := authenticated(t, bob)
	_ = p1.tracker.Connect(ctx, s1)
	_ = p2.tracker.Connect(ctx, s2)

	if n := countEntries(t, p1.store, bob); n != 2 {
		t.Fatalf("expected two bob entries, got %d", n)
	}

	_ = p2.tracker.Disconnect(ctx, s2)
	if n := countEntries(t, p1.store, bob); n != 1 {
		t.Fatalf("expected one bob entry left, got %d", n)
	}
}

func TestConnectWithStoreDownStaysUnlistedAndDoesNotPublish(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	busRedis := miniredis.RunT(t)
	storeRedis := miniredis.RunT(t)

	p := startProcess(t, ctx, busRedis)
	broken := startProcess(t, ctx, storeRedis)
	p.tracker.store = broken.store
	storeRedis.Close()

	local := newTestClient(t, "local@x.com")
	p.hub.RegisterClient(local)

	s := authenticated(t, auth.Identity{Email: "erin@x.com"})
	if err := p.tracker.Connect(ctx, s); err != nil {
		t.Fatalf("connect should not fail on store errors: %v", err)
	}
	if s.State != StateOnline {
		t.Fatalf("session should still be online, got %s", s.State)
	}
	mustNoEvent(t, local.Events, 200*time.Millisecond)

	if err := p.tracker.Disconnect(ctx, s); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if s.State != StateClosed {
		t.Fatalf("expected closed, got %s", s.State)
	}
	mustNoEvent(t, local.Events, 200*time.Millisecond)
}

func TestDisconnectRunsWithCancelledContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mr := miniredis.RunT(t)
	p := startProcess(t, ctx, mr)

	carol := auth.Identity{Email: "carol@x.com"}
	s := authenticated(t, carol)
	_ = p.tracker.Connect(ctx, s)

	done, stop := context.WithCancel(ctx)
	stop()
	if err := p.tracker.Disconnect(done, s); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if n := countEntries(t, p.store, carol); n != 0 {
		t.Fatalf("expected entry removed despite cancelled context, got %d", n)
	}
}

func TestTrackerRejectsOutOfOrderTransitions(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	p := startProcess(t, runCtx, mr)

	fresh := NewSession("p")
	if err := p.tracker.Connect(ctx, fresh); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition connecting unauthenticated session, got %v", err)
	}
	if err := p.tracker.Disconnect(ctx, fresh); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition disconnecting offline session, got %v", err)
	}

	if err := fresh.Reject(); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if err := fresh.Authenticate(auth.Identity{Email: "x@x.com"}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("rejected session must stay rejected, got %v", err)
	}
}
