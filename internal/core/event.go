package core

// Socket event names.
const (
	EventUsersList          = "users.list"
	EventUsersInfo          = "users.info"
	EventUsersConnection    = "users.connection"
	EventUsersDisconnection = "users.disconnection"
	EventError              = "error"
)

// Event is sent to one socket under Name. Data is marshalled as-is, so
// relayed fanout bodies stay byte-for-byte what the publisher sent.
type Event struct {
	Name  string
	Data  any
	Error *CoreError
}

// ErrorEvent builds an error notification for a single socket.
func ErrorEvent(code, msg string) *Event {
	return &Event{Name: EventError, Error: coreError(code, msg)}
}
