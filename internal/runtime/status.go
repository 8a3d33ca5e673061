package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"polymarket-arb-engine/internal/config"
)

// StatusServer exposes the read-only portions of §6 (get-socket-status,
// get-engine-status) over HTTP and streams trade results and periodic status
// snapshots to dashboard clients over a WebSocket, adapted from the
// teacher's dashboard API.
type StatusServer struct {
	cfg    config.DashboardConfig
	rt     *Runtime
	hub    *Hub
	server *http.Server
	logger *slog.Logger

	stopSnapshots context.CancelFunc
}

// NewStatusServer builds a StatusServer bound to rt's status methods.
func NewStatusServer(cfg config.DashboardConfig, rt *Runtime, logger *slog.Logger) *StatusServer {
	logger = logger.With("component", "status_server")

	s := &StatusServer{cfg: cfg, rt: rt, hub: rt.hub, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/ws", s.handleWebSocket)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start runs the hub, the periodic status-snapshot broadcaster, and the
// HTTP server. Blocks until Stop is called.
func (s *StatusServer) Start() error {
	go s.hub.Run()

	snapCtx, cancel := context.WithCancel(context.Background())
	s.stopSnapshots = cancel
	go s.broadcastStatusLoop(snapCtx)

	s.logger.Info("status server starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("status server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *StatusServer) Stop() error {
	if s.stopSnapshots != nil {
		s.stopSnapshots()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *StatusServer) broadcastStatusLoop(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.hub.BroadcastStatus(StatusSnapshot{Socket: s.rt.SocketStatus(), Engine: s.rt.EngineStatus()})
		}
	}
}

func (s *StatusServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *StatusServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	snapshot := StatusSnapshot{Socket: s.rt.SocketStatus(), Engine: s.rt.EngineStatus()}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		s.logger.Error("failed to encode status snapshot", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *StatusServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(req *http.Request) bool {
			return isOriginAllowed(req.Header.Get("Origin"), s.cfg, req.Host)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := newDashClient(s.hub, conn)

	evt := DashboardEvent{
		Type:      "status",
		Timestamp: time.Now(),
		Data:      StatusSnapshot{Socket: s.rt.SocketStatus(), Engine: s.rt.EngineStatus()},
	}
	data, err := json.Marshal(evt)
	if err != nil {
		s.logger.Error("failed to marshal initial status", "error", err)
		return
	}
	select {
	case client.send <- data:
	default:
		s.logger.Warn("failed to send initial status to client")
	}
}

func isOriginAllowed(origin string, cfg config.DashboardConfig, reqHost string) bool {
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := strings.ToLower(originURL.Hostname())
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return true
	}

	reqHostname := normalizeHost(reqHost)
	return reqHostname != "" && host == reqHostname
}

func normalizeHost(hostport string) string {
	hostport = strings.TrimSpace(hostport)
	if hostport == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return strings.ToLower(host)
	}
	return strings.ToLower(hostport)
}
