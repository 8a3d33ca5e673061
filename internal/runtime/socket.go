package runtime

import (
	"context"
	"log/slog"
	"sync"

	"polymarket-arb-engine/internal/exchange"
	"polymarket-arb-engine/pkg/types"
)

// socketManager batches subscribed token ids into exchange.Connections of at
// most maxPerConn tokens each (subscribe-tokens, §6), spinning up a new
// connection task whenever the existing ones are full. It never shrinks the
// connection set on unsubscribe — an emptied connection is torn down at
// shutdown-socket, not reclaimed mid-run.
type socketManager struct {
	url        string
	timings    exchange.ConnectionTimings
	maxPerConn int
	out        chan<- types.TopOfBookUpdate
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	conns   []*exchange.Connection
	ownerOf map[string]*exchange.Connection
}

func newSocketManager(url string, timings exchange.ConnectionTimings, maxPerConn int, out chan<- types.TopOfBookUpdate, logger *slog.Logger) *socketManager {
	if maxPerConn <= 0 {
		maxPerConn = 50
	}
	return &socketManager{
		url:        url,
		timings:    timings,
		maxPerConn: maxPerConn,
		out:        out,
		logger:     logger.With("component", "socket_manager"),
		ownerOf:    make(map[string]*exchange.Connection),
	}
}

// start wires the manager to a parent context (init-socket). No connections
// are dialed until the first subscribe call.
func (m *socketManager) start(ctx context.Context) {
	m.ctx, m.cancel = context.WithCancel(ctx)
}

// subscribe assigns each new token id to a connection with spare roster
// capacity, starting a fresh connection task when none has room.
func (m *socketManager) subscribe(tokenIDs []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range tokenIDs {
		if _, ok := m.ownerOf[id]; ok {
			continue
		}
		conn := m.connectionWithSpareCapacity()
		conn.Subscribe([]string{id})
		m.ownerOf[id] = conn
	}
}

// connectionWithSpareCapacity returns an existing connection with room for
// one more token or starts a new one. Caller must hold m.mu.
func (m *socketManager) connectionWithSpareCapacity() *exchange.Connection {
	for _, c := range m.conns {
		if c.RosterSize() < m.maxPerConn {
			return c
		}
	}

	conn := exchange.NewConnection(m.url, m.timings, m.out, m.logger)
	m.conns = append(m.conns, conn)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		conn.Run(m.ctx)
	}()
	return conn
}

// unsubscribe removes token ids from their owning connection's roster.
func (m *socketManager) unsubscribe(tokenIDs []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range tokenIDs {
		conn, ok := m.ownerOf[id]
		if !ok {
			continue
		}
		conn.Unsubscribe([]string{id})
		delete(m.ownerOf, id)
	}
}

// status answers get-socket-status.
func (m *socketManager) status() types.SocketStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := types.SocketStatus{
		TotalConnections: len(m.conns),
		SubscribedTokens: len(m.ownerOf),
	}
	for _, c := range m.conns {
		if c.Connected() {
			st.ActiveConnections++
		}
		msgs, lastMs := c.Stats()
		st.MessagesReceived += msgs
		if lastMs > st.LastMessageAtMs {
			st.LastMessageAtMs = lastMs
		}
	}
	return st
}

// shutdown broadcasts cancellation to every connection task and waits for
// them to exit (shutdown-socket).
func (m *socketManager) shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}
