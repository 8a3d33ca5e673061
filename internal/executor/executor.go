// Package executor implements the validation/submission pipeline (§4.6):
// should_skip gating, order candidate construction, slippage-adjusted
// fixed-point order preparation, EIP-712 signing, and batch submission.
//
// A single Executor drains the engine's signal channel strictly
// sequentially — the concurrency model assigns it exactly one task (§5);
// the submission lock is an additional defensive guard against reentry, not
// the primary serialization mechanism.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"polymarket-arb-engine/internal/config"
	"polymarket-arb-engine/internal/exchange"
	"polymarket-arb-engine/internal/metrics"
	"polymarket-arb-engine/internal/pricetable"
	"polymarket-arb-engine/internal/validation"
	"polymarket-arb-engine/pkg/types"
)

// Config carries the should_skip thresholds and order-prep knobs (§4.6/§4.8).
type Config struct {
	OpportunityTimeoutMs int64
	MinPnlThresholdPct   float64
	DefaultSize          float64
	SlippageEnabled      bool
	MaxPrice             float64
	MinPrice             float64
}

// FromExecutorConfig adapts the loaded YAML config into executor.Config.
func FromExecutorConfig(c config.ExecutorConfig) Config {
	return Config{
		OpportunityTimeoutMs: c.OpportunityTimeoutMs,
		MinPnlThresholdPct:   c.MinPnlThresholdPct,
		DefaultSize:          c.DefaultSize,
		SlippageEnabled:      c.SlippageEnabled,
		MaxPrice:             c.MaxPrice,
		MinPrice:             c.MinPrice,
	}
}

// TradeResultFunc is the host-registered on-trade-result callback.
type TradeResultFunc func(types.TradeResult)

// Executor drains arbitrage signals, validates them against should_skip,
// and submits batches of signed orders.
type Executor struct {
	cfg    Config
	state  *validation.State
	auth   *exchange.Auth
	client *exchange.Client
	owner  string
	met    *metrics.Metrics
	logger *slog.Logger

	callbackMu sync.RWMutex
	callback   TradeResultFunc
}

// New constructs an Executor. owner is the API key carried as the `owner`
// field on every posted order.
func New(cfg Config, state *validation.State, auth *exchange.Auth, client *exchange.Client, owner string, met *metrics.Metrics, logger *slog.Logger) *Executor {
	return &Executor{
		cfg:    cfg,
		state:  state,
		auth:   auth,
		client: client,
		owner:  owner,
		met:    met,
		logger: logger.With("component", "executor"),
	}
}

// OnTradeResult registers the callback invoked after every submission
// attempt (on-trade-result). Only one callback is held; a later call
// replaces the previous one.
func (e *Executor) OnTradeResult(fn TradeResultFunc) {
	e.callbackMu.Lock()
	defer e.callbackMu.Unlock()
	e.callback = fn
}

func (e *Executor) emit(result types.TradeResult) {
	e.callbackMu.RLock()
	cb := e.callback
	e.callbackMu.RUnlock()
	if cb != nil {
		cb(result)
	}
}

// Run drains signals strictly sequentially until ctx is cancelled or the
// channel is closed.
func (e *Executor) Run(ctx context.Context, signals <-chan types.ArbSignal) {
	for {
		select {
		case <-ctx.Done():
			return
		case signal, ok := <-signals:
			if !ok {
				return
			}
			e.process(ctx, signal)
		}
	}
}

func echoOf(signal types.ArbSignal) types.SignalEcho {
	return types.SignalEcho{
		GroupKey:    signal.GroupKey,
		Strategy:    signal.Strategy,
		ProfitAbs:   signal.ProfitAbs,
		EmittedAtMs: signal.EmittedAtMs,
	}
}

// process runs one signal through should_skip, the lock/deduct sequence,
// and — on success — prepare/sign/submit. A TradeResult is emitted once the
// batch has been posted, whether the POST failed or succeeded; a signal that
// stops earlier (skip, lock held, balance deduction or signing failure)
// emits nothing.
func (e *Executor) process(ctx context.Context, signal types.ArbSignal) {
	nowMs := pricetable.NowMs()
	candidates := buildCandidates(signal)

	if reason, skip := e.shouldSkip(signal, candidates, nowMs); skip {
		if e.met != nil {
			e.met.SkipReasons.WithLabelValues(string(reason)).Inc()
		}
		e.logger.Debug("signal skipped", "reason", reason, "group", signal.GroupKey, "strategy", signal.Strategy)
		return
	}

	if !e.state.TryBeginSubmission() {
		if e.met != nil {
			e.met.SkipReasons.WithLabelValues(string(types.SkipAlreadySubmitting)).Inc()
		}
		return
	}
	defer e.state.EndSubmission()

	size := e.cfg.DefaultSize
	cost := requiredCost(candidates, size)

	if !e.state.TryDeductBalance(cost) {
		if e.met != nil {
			e.met.SkipReasons.WithLabelValues(string(types.SkipInsufficientBalance)).Inc()
		}
		return
	}

	e.state.StampExecuted(nowMs)

	start := time.Now()
	orders, err := e.prepareAndSign(candidates, size)
	if err != nil {
		e.state.RestoreBalance(cost)
		e.logger.Error("order signing failed, balance restored", "error", err, "group", signal.GroupKey)
		return
	}

	results, err := e.client.PostOrders(ctx, orders, e.owner, types.OrderTypeGTC)
	latencyUs := time.Since(start).Microseconds()
	if e.met != nil {
		e.met.SubmissionLatency.Observe(time.Since(start).Seconds())
	}

	if err != nil {
		e.state.RestoreBalance(cost)
		e.emit(types.TradeResult{
			Success: false, TotalCost: cost, ExpectedPnL: size * signal.ProfitAbs,
			LatencyUs: latencyUs, Signal: echoOf(signal),
		})
		return
	}

	orderIDs, failedOrders := reconcile(orders, results)
	for i, o := range orders {
		if o.Side != types.SideSell {
			continue
		}
		if i < len(results) && results[i].OrderID != "" {
			e.state.DeductMinted(signal.GroupKey, o.TokenID, size)
		}
	}

	if e.met != nil {
		if len(orderIDs) > 0 {
			e.met.OrdersSubmitted.Add(float64(len(orderIDs)))
		}
		if len(failedOrders) > 0 {
			e.met.OrdersFailed.Add(float64(len(failedOrders)))
		}
	}

	e.emit(types.TradeResult{
		Success:      len(failedOrders) == 0,
		OrderIDs:     orderIDs,
		FailedOrders: failedOrders,
		TotalCost:    cost,
		ExpectedPnL:  size * signal.ProfitAbs,
		LatencyUs:    latencyUs,
		Signal:       echoOf(signal),
	})
}

// PlaceBatch signs and submits up to 15 host-supplied orders directly
// (place-batch-orders, §6) — a path separate from the signal-driven should_skip
// pipeline: no cooldown/balance/minted gating, no submission lock, no
// TradeResult callback. The caller already decided price and size per leg.
func (e *Executor) PlaceBatch(ctx context.Context, requests []types.BatchOrderRequest) ([]string, []types.FailedOrder, int64, error) {
	epochMs := pricetable.NowMs()

	orders := make([]types.SignedOrder, 0, len(requests))
	for _, r := range requests {
		s, err := e.signAt(r.TokenID, r.Side, r.Price, r.Size, r.NegRisk, epochMs)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("sign order for %s: %w", r.TokenID, err)
		}
		orders = append(orders, s)
	}

	start := time.Now()
	results, err := e.client.PostOrders(ctx, orders, e.owner, types.OrderTypeGTC)
	latencyUs := time.Since(start).Microseconds()
	if e.met != nil {
		e.met.SubmissionLatency.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, nil, latencyUs, err
	}

	orderIDs, failedOrders := reconcile(orders, results)
	if e.met != nil {
		if len(orderIDs) > 0 {
			e.met.OrdersSubmitted.Add(float64(len(orderIDs)))
		}
		if len(failedOrders) > 0 {
			e.met.OrdersFailed.Add(float64(len(failedOrders)))
		}
	}
	return orderIDs, failedOrders, latencyUs, nil
}

// reconcile walks the POST /orders response positionally against the
// signed batch: presence of OrderID means the leg was accepted.
func reconcile(orders []types.SignedOrder, results []types.OrderResponse) (orderIDs []string, failed []types.FailedOrder) {
	for i, o := range orders {
		if i >= len(results) {
			failed = append(failed, types.FailedOrder{TokenID: o.TokenID, Side: o.Side, Price: 0, ErrorMsg: "no response for leg"})
			continue
		}
		r := results[i]
		if r.OrderID != "" {
			orderIDs = append(orderIDs, r.OrderID)
			continue
		}
		failed = append(failed, types.FailedOrder{TokenID: o.TokenID, Side: o.Side, ErrorMsg: r.ErrorMsg})
	}
	return orderIDs, failed
}
