package core

// Client is a socket attached to this process.
type Client struct {
	ID      string
	Session *Session
	Events  chan *Event
}

// NewClient constructs a client for an authenticated session.
func NewClient(s *Session) *Client {
	return &Client{
		ID:      s.ID,
		Session: s,
		Events:  make(chan *Event, 32),
	}
}

// Send queues ev without blocking. Returns false if the client is backed up.
func (c *Client) Send(ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}
