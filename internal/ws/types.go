package ws

const (
	// client - server
	MsgPing = "ping"

	// server - client
	MsgReady = "ready"
	MsgPong  = "pong"
	MsgError = "error"
)

// Message is the envelope for control frames. Domain events are sent as
// domain.Event, whose "type" field shares the same namespace.
type Message struct {
	Type  string `json:"type"`
	Error string `json:"error,omitempty"`
}
