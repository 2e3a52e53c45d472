// Package hub provides a thread-safe websocket broadcast hub using the
// channel-based fan-out pattern. One hub carries the JPEG frame feed,
// another carries JSON status updates.
package hub

// MessageType indicates the websocket message format.
type MessageType int

const (
	// JSONMessage is a JSON-encoded message.
	JSONMessage MessageType = iota
	// BinaryMessage is raw binary data, JPEG frames here.
	BinaryMessage
)

// Message is one payload to fan out to clients.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage wraps pre-encoded JSON bytes.
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage wraps binary data.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}
