// Polymarket CLOB arbitrage engine — detects and executes triangle,
// complement, and range-bundle/unbundle arbitrage across binary prediction
// markets.
//
// Architecture:
//
//	main.go                   — entry point: loads config, wires the runtime, waits for SIGINT/SIGTERM
//	internal/runtime          — host-facing callable surface: owns every goroutine
//	internal/engine           — single-writer dispatch task: Price Table + group/trio structure + evaluator calls
//	internal/evaluator        — pure strategy formulae (triangle, complement, range bundle/unbundle)
//	internal/market           — group/trio structure builder, websocket frame parser
//	internal/pricetable       — dense append-only Price Table
//	internal/validation       — atomic trading-enabled/balance/minted-assets state
//	internal/executor         — should_skip gating, order preparation, signing, submission
//	internal/exchange         — Polymarket CLOB REST + websocket clients, EIP-712/HMAC auth
//
// How it makes money:
//
//	The engine watches related binary markets for mispriced combinations —
//	three legs whose combined ask is below their guaranteed payout ($2 for
//	triangle, $1 for complement), or a
//	range market priced inconsistently against its parent above/below
//	markets (bundle/unbundle). When a combination clears its profit
//	threshold and every validation gate, it signs and submits the legs as a
//	batch of orders.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"polymarket-arb-engine/internal/config"
	"polymarket-arb-engine/internal/runtime"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("POLY_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	rt := runtime.New(*cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt.InitSocket(ctx)
	if err := rt.InitExecutor(); err != nil {
		logger.Error("failed to init executor", "error", err)
		os.Exit(1)
	}

	var statusServer *runtime.StatusServer
	if cfg.Dashboard.Enabled {
		statusServer = runtime.NewStatusServer(cfg.Dashboard, rt, logger)
		go func() {
			if err := statusServer.Start(); err != nil {
				logger.Error("status server failed", "error", err)
			}
		}()
		logger.Info("status server started", "url", fmt.Sprintf("http://localhost:%d", cfg.Dashboard.Port))
	}

	if cfg.DryRun {
		logger.Warn("DRY-RUN MODE — no real orders will be placed")
	}

	logger.Info("polymarket arbitrage engine started",
		"default_size", cfg.Executor.DefaultSize,
		"min_profit_bps", cfg.Engine.MinProfitBps,
		"dry_run", cfg.DryRun,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	if statusServer != nil {
		if err := statusServer.Stop(); err != nil {
			logger.Error("failed to stop status server", "error", err)
		}
	}

	rt.ShutdownSocket()
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
