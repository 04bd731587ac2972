package core

import (
	"fmt"

	"github.com/vovakirdan/wirechat-presence/internal/auth"
	"github.com/vovakirdan/wirechat-presence/internal/utils"
)

// SessionState tracks one connection: Connecting → Authenticated → Online → Closed,
// or Connecting → Rejected.
type SessionState int

const (
	StateConnecting SessionState = iota
	StateAuthenticated
	StateOnline
	StateClosed
	StateRejected
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateOnline:
		return "online"
	case StateClosed:
		return "closed"
	case StateRejected:
		return "rejected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session is one authenticated connection, owned by the process that accepted it.
type Session struct {
	ID       string
	ServerID string
	Identity auth.Identity
	State    SessionState

	// listed is set once this session's entry made it into the presence store.
	listed bool
}

// NewSession starts a session in the Connecting state.
func NewSession(serverID string) *Session {
	return &Session{
		ID:       utils.NewID(),
		ServerID: serverID,
		State:    StateConnecting,
	}
}

// Authenticate attaches the verified identity.
func (s *Session) Authenticate(id auth.Identity) error {
	if err := s.transition(StateConnecting, StateAuthenticated); err != nil {
		return err
	}
	s.Identity = id
	return nil
}

// Reject marks a failed authentication. Rejected is terminal.
func (s *Session) Reject() error {
	return s.transition(StateConnecting, StateRejected)
}

func (s *Session) transition(from, to SessionState) error {
	if s.State != from {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.State, to)
	}
	s.State = to
	return nil
}
