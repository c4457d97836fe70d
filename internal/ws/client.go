package ws

import (
	"encoding/json"
	"time"

	"banana_clicker/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second
)

type Client struct {
	UserID int64
	Conn   *websocket.Conn
	Send   chan []byte
	Hub    *Hub
	Done   chan struct{}
}

func NewClient(userID int64, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 64),
		Hub:    hub,
		Done:   make(chan struct{}),
	}
}

// Run registers the client and blocks until the connection closes. initial,
// if non-nil, is queued right after the ready frame.
func (c *Client) Run(initial []byte) {
	c.Hub.Register(c)
	go c.writePump()

	c.queue(mustEnvelope(Envelope{Type: MsgReady}))
	if initial != nil {
		c.queue(initial)
	}

	c.readPump()
}

func (c *Client) queue(msg []byte) {
	select {
	case c.Send <- msg:
	case <-time.After(500 * time.Millisecond):
		logger.Warn("ws: timeout queuing frame", "user_id", c.UserID)
	}
}

//read
func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		_ = c.Conn.Close()
		close(c.Done)
	}()

	c.Conn.SetReadLimit(4096)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws: read error", "user_id", c.UserID, "error", err)
			}
			return
		}

		var in Envelope
		if err := json.Unmarshal(msg, &in); err != nil {
			c.queue(mustEnvelope(Envelope{Type: MsgError, Data: ErrorPayload{Message: "invalid message"}}))
			continue
		}
		if in.Type == MsgPing {
			c.queue(mustEnvelope(Envelope{Type: MsgPong}))
		}
	}
}

//write
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("ws: write error", "user_id", c.UserID, "error", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func mustEnvelope(e Envelope) []byte {
	b, err := json.Marshal(e)
	if err != nil {
		panic(err)
	}
	return b
}
