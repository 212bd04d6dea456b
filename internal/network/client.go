package network

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AllStack11/chaos-garden-sub002/internal/platform/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
	// Minimum spacing between interventions from one viewer.
	interventionCooldown = 15 * time.Second
)

// ViewerRequest is an incoming command from a viewer. The only supported
// kind is an intervention request; everything else is logged and dropped.
type ViewerRequest struct {
	Type   string `json:"type"` // "INTERVENE"
	Action string `json:"action"`
	Detail string `json:"detail"`
}

// Client holds one viewer connection.
type Client struct {
	hub              *Hub
	conn             *websocket.Conn
	send             chan []byte
	lastIntervention time.Time
}

// NewClient creates a new WebSocket client for a viewer connection.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}
}

// Register adds the client to the hub.
func (c *Client) Register() {
	c.hub.register <- c
}

// ReadPump consumes viewer messages until the connection drops.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Errorf("viewer read: %v", err)
				metrics.Get().RecordWSError()
			}
			break
		}
		metrics.Get().RecordWSMessage(true)

		var req ViewerRequest
		if err := json.Unmarshal(message, &req); err != nil {
			c.hub.logger.Warn("unparseable viewer request: " + err.Error())
			continue
		}
		c.handleRequest(req)
	}
}

func (c *Client) handleRequest(req ViewerRequest) {
	if req.Type != "INTERVENE" {
		c.hub.logger.Warn("unknown viewer request type: " + req.Type)
		return
	}
	if c.hub.intervene == nil {
		return
	}
	if time.Since(c.lastIntervention) < interventionCooldown {
		c.hub.logger.Warn("intervention rate limit exceeded")
		return
	}
	c.lastIntervention = time.Now()
	c.hub.intervene(req.Action, req.Detail)
}

// WritePump pumps frames from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
