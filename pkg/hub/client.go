package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	// writeTimeout bounds a single frame or status write.
	writeTimeout = 10 * time.Second

	// pongTimeout is how long a silent client stays connected.
	pongTimeout = 60 * time.Second

	// keepalivePeriod must stay under pongTimeout so a healthy client
	// always gets a ping before its deadline runs out.
	keepalivePeriod = (pongTimeout * 9) / 10

	// readLimit bounds inbound traffic; monitor clients send nothing
	// but pong frames.
	readLimit = 4 * 1024
)

// Client couples one websocket connection to a hub. The hub fans
// messages into the send queue; the client serializes them onto the
// wire from a single goroutine.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Message
}

// NewClient registers a fresh connection with the hub and returns its
// client. Call Run next; until then nothing drains the queue.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	c := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan Message, 256),
	}
	hub.register <- c
	return c
}

// Run services the connection and blocks until it closes, so it can
// carry a fiber websocket handler directly.
func (c *Client) Run() {
	go c.writeLoop()
	c.readLoop()
}

// readLoop consumes inbound frames. The payload is discarded; reading
// is only needed to notice disconnects and refresh the pong deadline.
func (c *Client) readLoop() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop owns all writes on the connection: queued messages plus the
// keepalive pings. A closed send queue means the hub dropped us, so a
// close frame goes out and the loop ends.
func (c *Client) writeLoop() {
	ticker := time.NewTicker(keepalivePeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(wireType(msg.Type), msg.Data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// wireType maps a hub message type onto the websocket frame type.
func wireType(t MessageType) int {
	if t == BinaryMessage {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}
