package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

const (
	EventUsersList          = "users.list"
	EventUsersInfo          = "users.info"
	EventUsersConnection    = "users.connection"
	EventUsersDisconnection = "users.disconnection"
	EventError              = "error"
)

// Outbound is the envelope for messages sent to the client. Data is always
// present; users.info for an unknown email carries null.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
	Error *Error `json:"error,omitempty"`
}

// Identity is the public profile sent to clients.
type Identity struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
