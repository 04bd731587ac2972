package fanout

import (
	"encoding/json"
	"errors"
	"fmt"
)

// KindData is the only envelope kind relayed to sockets.
const KindData = "data"

// Event names carried on the presence channel.
const (
	HeaderUserConnected    = "users.connection"
	HeaderUserDisconnected = "users.disconnection"
)

// ErrMalformed is returned for payloads that are not a valid envelope.
var ErrMalformed = errors.New("malformed fanout message")

// Event is a named payload to re-emit on every local socket.
type Event struct {
	Header string `json:"header"`
	Body   any    `json:"body"`
}

// Envelope is the wire form: {"kind":"data","data":{"header":...,"body":...}}.
type Envelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Decoded is a parsed envelope with the body left raw for relaying.
type Decoded struct {
	Kind   string
	Header string
	Body   json.RawMessage
}

// Encode wraps the event in a data envelope.
func Encode(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", ev.Header, err)
	}
	return json.Marshal(Envelope{Kind: KindData, Data: data})
}

// Decode parses a bus payload. Envelopes of other kinds decode without a header.
func Decode(payload []byte) (Decoded, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Decoded{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if env.Kind == "" {
		return Decoded{}, fmt.Errorf("%w: missing kind", ErrMalformed)
	}
	if env.Kind != KindData {
		return Decoded{Kind: env.Kind}, nil
	}

	var data struct {
		Header string          `json:"header"`
		Body   json.RawMessage `json:"body"`
	}
	if len(env.Data) == 0 {
		return Decoded{}, fmt.Errorf("%w: missing data", ErrMalformed)
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return Decoded{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if data.Header == "" {
		return Decoded{}, fmt.Errorf("%w: missing header", ErrMalformed)
	}
	return Decoded{Kind: env.Kind, Header: data.Header, Body: data.Body}, nil
}
