package ws

import (
	"context"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/promptcraft/server/internal/events"
	"github.com/promptcraft/server/internal/model"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// Client streams one round's state transitions to a browser. The socket is
// one-directional: the browser drives the round over HTTP and only listens
// here.
type Client struct {
	roundID string
	conn    *websocket.Conn
	bus     *events.Bus
}

// NewClient wraps an upgraded WebSocket connection.
func NewClient(roundID string, conn *websocket.Conn, bus *events.Bus) *Client {
	return &Client{
		roundID: roundID,
		conn:    conn,
		bus:     bus,
	}
}

// Run subscribes to the round and forwards every state change until the
// peer disconnects or ctx is cancelled. Blocks.
func (c *Client) Run(ctx context.Context) {
	ch := c.bus.Subscribe(c.roundID)
	defer c.bus.Unsubscribe(c.roundID, ch)
	defer c.conn.Close()

	// Read side exists only to detect the peer going away and to answer
	// pings; inbound frames are discarded.
	closed := make(chan struct{})
	go c.readUntilClosed(closed)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case change, ok := <-ch:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			env := model.Envelope{
				Type:    model.MsgTypeStateChanged,
				Payload: change,
			}
			if err := c.conn.WriteJSON(env); err != nil {
				log.Printf("[ws] round %s write error: %v", c.roundID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-closed:
			return

		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) readUntilClosed(closed chan<- struct{}) {
	defer close(closed)

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] round %s read error: %v", c.roundID, err)
			}
			return
		}
	}
}
