// Package network provides the WebSocket fanout for garden viewers.
// Viewers are read-mostly: they receive tick frames and narrative events,
// and may submit rate-limited intervention requests.
package network

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/AllStack11/chaos-garden-sub002/internal/events"
	"github.com/AllStack11/chaos-garden-sub002/internal/platform/logger"
	"github.com/AllStack11/chaos-garden-sub002/internal/platform/metrics"
)

// Frame is one outbound WebSocket message.
type Frame struct {
	Kind    string `json:"kind"` // "tick" or "event"
	Payload any    `json:"payload"`
}

// InterventionFunc handles a viewer's intervention request. It runs on the
// client's read goroutine and must not block on the tick loop.
type InterventionFunc func(action, detail string)

// Hub maintains the set of active viewer connections and broadcasts
// frames to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
	logger     *logger.Logger

	intervene InterventionFunc
}

// NewHub initializes a new WebSocket Hub.
func NewHub(log *logger.Logger, intervene InterventionFunc) *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     log,
		intervene:  intervene,
	}
}

// Run starts the Hub's main loop to handle viewer connections and broadcasts.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("WebSocket hub shutting down")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			metrics.Get().RecordWSConnection(1)
			h.logger.Info("viewer connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				metrics.Get().RecordWSConnection(-1)
				h.logger.Info("viewer disconnected")
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
					metrics.Get().RecordWSMessage(false)
				default:
					close(client.send)
					delete(h.clients, client)
					metrics.Get().RecordWSConnection(-1)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) send(frame Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		h.logger.Errorf("serializing %s frame: %v", frame.Kind, err)
		metrics.Get().RecordWSError()
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		// Broadcast queue full; viewers are behind, drop the frame.
		metrics.Get().RecordWSError()
	}
}

// BroadcastTick fans a completed tick summary out to every viewer.
func (h *Hub) BroadcastTick(summary any) {
	h.send(Frame{Kind: "tick", Payload: summary})
}

// BroadcastEvents fans the tick's flushed narrative events out one frame
// per event, in persistence order.
func (h *Hub) BroadcastEvents(batch []events.SimulationEvent) {
	for _, evt := range batch {
		h.send(Frame{Kind: "event", Payload: evt})
	}
}
