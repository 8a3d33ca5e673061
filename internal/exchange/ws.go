// ws.go implements the market-data WebSocket connection task.
//
// A Connection owns exactly one socket and a roster of subscribed token
// ids (at most max_tokens_per_connection, enforced by the caller). It
// auto-reconnects with exponential backoff and resends the full roster as
// the initial subscription on every reconnect. Parsed top-of-book updates
// are forwarded onto a single shared engine-inbound channel; nothing below
// the runtime package ever sees a raw websocket frame.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"polymarket-arb-engine/internal/market"
	"polymarket-arb-engine/internal/pricetable"
	"polymarket-arb-engine/pkg/types"
)

const writeTimeout = 10 * time.Second

// ConnectionTimings bundles the knobs the runtime supplies at init-socket.
type ConnectionTimings struct {
	PingInterval     time.Duration
	ReadTimeout      time.Duration
	ReconnectBase    time.Duration
	ReconnectMax     time.Duration
	ReconnectMaxAttempts int // 0 = unbounded
}

// Connection manages a single websocket connection to the market channel.
type Connection struct {
	url     string
	timings ConnectionTimings
	out     chan<- types.TopOfBookUpdate
	logger  *slog.Logger

	conn   *websocket.Conn
	connMu sync.Mutex

	rosterMu sync.RWMutex
	roster   map[string]bool

	messagesReceived atomic.Int64
	lastMessageAtMs  atomic.Int64
}

// NewConnection creates an unconnected market-channel connection. Call Run
// to dial and maintain it.
func NewConnection(url string, timings ConnectionTimings, out chan<- types.TopOfBookUpdate, logger *slog.Logger) *Connection {
	return &Connection{
		url:     url,
		timings: timings,
		out:     out,
		roster:  make(map[string]bool),
		logger:  logger.With("component", "ws_connection"),
	}
}

// Subscribe adds token ids to the roster and, if connected, sends an
// incremental subscribe frame.
func (c *Connection) Subscribe(tokenIDs []string) {
	c.rosterMu.Lock()
	for _, id := range tokenIDs {
		c.roster[id] = true
	}
	c.rosterMu.Unlock()

	if err := c.writeJSON(types.WSSubscribeFrame{Type: "market", AssetIDs: tokenIDs}); err != nil {
		c.logger.Debug("subscribe frame not sent, connection not yet up", "error", err)
	}
}

// Unsubscribe removes token ids from the local roster. The market channel
// has no server-side unsubscribe frame; the connection simply stops caring
// about those ids. A connection whose roster becomes empty stays open until
// its context is cancelled.
func (c *Connection) Unsubscribe(tokenIDs []string) {
	c.rosterMu.Lock()
	for _, id := range tokenIDs {
		delete(c.roster, id)
	}
	c.rosterMu.Unlock()
}

// RosterSize returns the number of token ids currently assigned to this
// connection.
func (c *Connection) RosterSize() int {
	c.rosterMu.RLock()
	defer c.rosterMu.RUnlock()
	return len(c.roster)
}

// Stats returns the running message count and last-message timestamp.
func (c *Connection) Stats() (messages int64, lastMessageAtMs int64) {
	return c.messagesReceived.Load(), c.lastMessageAtMs.Load()
}

// Connected reports whether the socket is currently dialed.
func (c *Connection) Connected() bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn != nil
}

// Run connects and maintains the connection with exponential backoff,
// starting at ReconnectBase and doubling per attempt up to ReconnectMax.
// Returns when ctx is cancelled or ReconnectMaxAttempts is exhausted.
func (c *Connection) Run(ctx context.Context) error {
	backoff := c.timings.ReconnectBase
	attempts := 0

	for {
		err := c.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		attempts++
		if c.timings.ReconnectMaxAttempts > 0 && attempts >= c.timings.ReconnectMaxAttempts {
			return fmt.Errorf("exhausted %d reconnect attempts: %w", attempts, err)
		}

		c.logger.Warn("websocket disconnected, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > c.timings.ReconnectMax {
			backoff = c.timings.ReconnectMax
		}
	}
}

// Close closes the underlying socket, if any.
func (c *Connection) Close() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Connection) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	defer func() {
		c.connMu.Lock()
		conn.Close()
		c.conn = nil
		c.connMu.Unlock()
	}()

	if err := c.sendFullRoster(); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	c.logger.Info("websocket connected")

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go c.pingLoop(pingCtx)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn.SetReadDeadline(time.Now().Add(c.timings.ReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		c.messagesReceived.Add(1)
		c.lastMessageAtMs.Store(pricetable.NowMs())
		c.dispatchMessage(msg)
	}
}

func (c *Connection) sendFullRoster() error {
	c.rosterMu.RLock()
	ids := make([]string, 0, len(c.roster))
	for id := range c.roster {
		ids = append(ids, id)
	}
	c.rosterMu.RUnlock()

	return c.writeJSON(types.WSSubscribeFrame{Type: "market", AssetIDs: ids})
}

// dispatchMessage handles both the single-object and array wire shapes, and
// ignores PING/PONG text control frames.
func (c *Connection) dispatchMessage(data []byte) {
	trimmed := trimASCIISpace(data)
	if string(trimmed) == "PING" || string(trimmed) == "PONG" {
		return
	}

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var envelopes []json.RawMessage
		if err := json.Unmarshal(data, &envelopes); err != nil {
			c.logger.Debug("ignoring malformed array frame", "error", err)
			return
		}
		for _, e := range envelopes {
			c.dispatchOne(e)
		}
		return
	}

	c.dispatchOne(data)
}

func (c *Connection) dispatchOne(data []byte) {
	var envelope struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logger.Debug("ignoring non-json ws message", "data", string(data))
		return
	}

	switch envelope.EventType {
	case "book":
		var msg types.WSBookMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Error("unmarshal book event", "error", err)
			return
		}
		update, err := market.ParseBookMessage(msg)
		if err != nil {
			c.logger.Error("parse book event", "error", err)
			return
		}
		c.forward(update)

	case "price_change":
		var msg types.WSPriceChangeMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Error("unmarshal price_change event", "error", err)
			return
		}
		updates, err := market.ParsePriceChangeMessage(msg)
		if err != nil {
			c.logger.Error("parse price_change event", "error", err)
			return
		}
		for _, u := range updates {
			c.forward(u)
		}

	default:
		c.logger.Debug("ignoring event", "type", envelope.EventType)
	}
}

func (c *Connection) forward(u types.TopOfBookUpdate) {
	select {
	case c.out <- u:
	default:
		c.logger.Warn("engine-inbound channel full, dropping update", "token", u.TokenID)
	}
}

func (c *Connection) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(c.timings.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.writeMessage(websocket.TextMessage, []byte("PING")); err != nil {
				c.logger.Warn("ping failed", "error", err)
				return
			}
		}
	}
}

func (c *Connection) writeJSON(v interface{}) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

func (c *Connection) writeMessage(msgType int, data []byte) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(msgType, data)
}

func trimASCIISpace(b []byte) []byte {
	start, end := 0, len(b)
	for start < end && isASCIISpace(b[start]) {
		start++
	}
	for end > start && isASCIISpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isASCIISpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
