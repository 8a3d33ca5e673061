// Package runtime is the host-facing callable surface (§6): it owns every
// goroutine in the process and wires the engine, the market-data socket
// manager, and the executor together. Nothing outside this package talks to
// exchange.Connection, engine.Engine, or executor.Executor directly — a host
// embedding this module only ever calls through a Runtime.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"polymarket-arb-engine/internal/config"
	"polymarket-arb-engine/internal/engine"
	"polymarket-arb-engine/internal/evaluator"
	"polymarket-arb-engine/internal/exchange"
	"polymarket-arb-engine/internal/executor"
	"polymarket-arb-engine/internal/metrics"
	"polymarket-arb-engine/internal/validation"
	"polymarket-arb-engine/pkg/types"
)

// Runtime is the single entry point a host embeds. Construct with New,
// bring it up with InitSocket and (once wallet/API credentials are known)
// InitExecutor, and tear it down with ShutdownSocket.
type Runtime struct {
	cfg    config.Config
	logger *slog.Logger
	met    *metrics.Metrics

	registry *prometheus.Registry
	engine   *engine.Engine
	sockets  *socketManager
	quotes   chan types.TopOfBookUpdate
	hub      *Hub

	ctx    context.Context
	cancel context.CancelFunc

	execMu sync.Mutex
	state  *validation.State
	exec   *executor.Executor
}

// New constructs a Runtime. The engine task is built but not started — call
// InitSocket to start it.
func New(cfg config.Config, logger *slog.Logger) *Runtime {
	logger = logger.With("component", "runtime")
	registry := prometheus.NewRegistry()
	met := metrics.New(registry)

	evalCfg := evaluator.Config{
		MinProfitAbs: cfg.Engine.MinProfitAbs,
		MinProfitBps: cfg.Engine.MinProfitBps,
		CooldownMs:   cfg.Engine.CooldownMs,
	}

	return &Runtime{
		cfg:      cfg,
		logger:   logger,
		met:      met,
		registry: registry,
		engine:   engine.New(evalCfg, cfg.Engine.SignalBuffer, logger, met),
		quotes:   make(chan types.TopOfBookUpdate, 1024),
		hub:      NewHub(logger),
	}
}

// InitSocket starts the engine dispatch task and the socket manager
// (init-socket). It must be called before SubscribeTokens.
func (r *Runtime) InitSocket(ctx context.Context) {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.engine.Run(r.ctx)

	timings := exchange.ConnectionTimings{
		PingInterval:         r.cfg.Socket.PingInterval,
		ReadTimeout:          r.cfg.Socket.ReadTimeout,
		ReconnectBase:        r.cfg.Socket.ReconnectBaseDelay,
		ReconnectMax:         r.cfg.Socket.ReconnectMaxDelay,
		ReconnectMaxAttempts: r.cfg.Socket.ReconnectMaxAttempt,
	}
	r.sockets = newSocketManager(r.cfg.Socket.WSMarketURL, timings, r.cfg.Socket.MaxTokensPerConn, r.quotes, r.logger)
	r.sockets.start(r.ctx)

	go r.pumpQuotes()
}

// pumpQuotes forwards parsed top-of-book updates from every socket
// connection onto the engine's inbound channel.
func (r *Runtime) pumpQuotes() {
	for {
		select {
		case <-r.ctx.Done():
			return
		case u := <-r.quotes:
			r.engine.SubmitQuote(u)
		}
	}
}

// SubscribeTokens batches token ids into connections (subscribe-tokens).
func (r *Runtime) SubscribeTokens(tokenIDs []string) {
	r.sockets.subscribe(tokenIDs)
}

// UnsubscribeTokens removes token ids from their connection's roster
// (unsubscribe-tokens). The connection itself is only torn down at
// shutdown-socket.
func (r *Runtime) UnsubscribeTokens(tokenIDs []string) {
	r.sockets.unsubscribe(tokenIDs)
}

// SocketStatus answers get-socket-status.
func (r *Runtime) SocketStatus() types.SocketStatus {
	return r.sockets.status()
}

// ShutdownSocket broadcasts cancellation to every connection task, awaits
// them, and stops the engine.
func (r *Runtime) ShutdownSocket() {
	if r.sockets != nil {
		r.sockets.shutdown()
	}
	r.engine.Stop()
	if r.cancel != nil {
		r.cancel()
	}
}

// UpdateMarketStructure rebuilds the group/trio structure and returns the
// new trio count.
func (r *Runtime) UpdateMarketStructure(groups []types.GroupDescriptor) int {
	return r.engine.RebuildStructure(groups)
}

// UpdateEngineConfig replaces the named threshold/cooldown fields.
func (r *Runtime) UpdateEngineConfig(update types.EngineConfigUpdate) {
	r.engine.UpdateConfig(update)
}

// EngineStatus answers get-engine-status.
func (r *Runtime) EngineStatus() types.EngineStatus {
	return r.engine.Status()
}

// InitExecutor caches the wallet/domain separators and HTTP client, and
// spawns the executor task draining the engine's signal channel
// (init-executor). Returns an error only for cryptographic setup failures
// (invalid private key, malformed address), which are fatal per §7.
func (r *Runtime) InitExecutor() error {
	auth, err := exchange.NewAuth(r.cfg)
	if err != nil {
		return fmt.Errorf("init executor: %w", err)
	}
	client := exchange.NewClient(r.cfg, auth, r.logger)
	state := validation.NewState()

	execCfg := executor.FromExecutorConfig(r.cfg.Executor)
	exec := executor.New(execCfg, state, auth, client, r.cfg.API.ApiKey, r.met, r.logger)
	exec.OnTradeResult(r.hub.BroadcastTradeResult)

	r.execMu.Lock()
	r.state = state
	r.exec = exec
	r.execMu.Unlock()

	go exec.Run(r.ctx, r.engine.Signals())
	return nil
}

// UpdateBalance atomically stores the available USDC balance.
func (r *Runtime) UpdateBalance(usdc float64) {
	r.execMu.Lock()
	state := r.state
	r.execMu.Unlock()
	if state != nil {
		state.SetBalance(usdc)
	}
}

// SetTradingEnabled atomically toggles whether the executor may submit.
func (r *Runtime) SetTradingEnabled(enabled bool) {
	r.execMu.Lock()
	state := r.state
	r.execMu.Unlock()
	if state != nil {
		state.SetTradingEnabled(enabled)
	}
}

// UpdateMintedAssets overwrites a group's minted-asset map
// (update-minted-assets).
func (r *Runtime) UpdateMintedAssets(groupKey string, entries []types.MintedAssetEntry) {
	r.execMu.Lock()
	state := r.state
	r.execMu.Unlock()
	if state != nil {
		state.SetMintedAssets(groupKey, entries)
	}
}

// OnTradeResult registers a host callback alongside the dashboard hub —
// both are invoked for every TradeResult the executor emits, i.e. for every
// batch that was posted.
func (r *Runtime) OnTradeResult(fn func(types.TradeResult)) {
	r.execMu.Lock()
	exec := r.exec
	r.execMu.Unlock()
	if exec == nil {
		return
	}
	exec.OnTradeResult(func(result types.TradeResult) {
		r.hub.BroadcastTradeResult(result)
		fn(result)
	})
}

// PlaceBatchOrders signs and submits up to 15 host-supplied orders directly
// (place-batch-orders) — a path separate from the signal-driven pipeline.
func (r *Runtime) PlaceBatchOrders(ctx context.Context, requests []types.BatchOrderRequest) ([]string, []types.FailedOrder, int64, error) {
	r.execMu.Lock()
	exec := r.exec
	r.execMu.Unlock()
	if exec == nil {
		return nil, nil, 0, fmt.Errorf("place-batch-orders: executor not initialized")
	}
	return exec.PlaceBatch(ctx, requests)
}

// Metrics exposes the registered collector set (for an embedding host's own
// /metrics endpoint).
func (r *Runtime) Metrics() *metrics.Metrics {
	return r.met
}
