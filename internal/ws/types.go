package ws

const (
	// client -> server
	MsgPing = "ping"

	// server -> client
	MsgReady    = "ready"
	MsgProgress = "progress"
	MsgPong     = "pong"
	MsgError    = "error"
)

// Envelope wraps every frame sent to the client.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}
