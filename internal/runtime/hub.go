package runtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"polymarket-arb-engine/pkg/types"
)

// DashboardEvent envelopes every message broadcast to a connected dashboard
// client.
type DashboardEvent struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// StatusSnapshot is the periodic "status" event payload.
type StatusSnapshot struct {
	Socket types.SocketStatus `json:"socket"`
	Engine types.EngineStatus `json:"engine"`
}

// Hub manages dashboard WebSocket clients and broadcasts events to them.
type Hub struct {
	clients    map[*dashClient]bool
	register   chan *dashClient
	unregister chan *dashClient
	broadcast  chan []byte
	mu         sync.RWMutex
	logger     *slog.Logger
}

// NewHub creates a new dashboard hub. Call Run in a goroutine to start it.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*dashClient]bool),
		register:   make(chan *dashClient),
		unregister: make(chan *dashClient),
		broadcast:  make(chan []byte, 256),
		logger:     logger.With("component", "dashboard_hub"),
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastEvent sends an event to every connected client.
func (h *Hub) BroadcastEvent(evt DashboardEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("failed to marshal dashboard event", "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("dashboard broadcast channel full, dropping event")
	}
}

// BroadcastTradeResult is the on-trade-result sink wired into the executor.
func (h *Hub) BroadcastTradeResult(result types.TradeResult) {
	h.BroadcastEvent(DashboardEvent{Type: "trade_result", Timestamp: time.Now(), Data: result})
}

// BroadcastStatus sends a socket+engine status snapshot.
func (h *Hub) BroadcastStatus(snapshot StatusSnapshot) {
	h.BroadcastEvent(DashboardEvent{Type: "status", Timestamp: time.Now(), Data: snapshot})
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

// dashClient is one connected dashboard WebSocket client.
type dashClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func newDashClient(hub *Hub, conn *websocket.Conn) *dashClient {
	client := &dashClient{hub: hub, conn: conn, send: make(chan []byte, 256)}
	client.hub.register <- client
	go client.writePump()
	go client.readPump()
	return client
}

func (c *dashClient) writePump() {
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

func (c *dashClient) readPump() {
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
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
		// Dashboard is read-only; any client message is ignored.
	}
}
