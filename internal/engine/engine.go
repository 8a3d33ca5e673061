// Package engine owns the Price Table, the group/trio structure, and the
// per-token dirty-check cache. It is the single writer for all of that
// state: every mutation and every evaluator invocation happens on one
// goroutine (Run), reached only through the channel-based entry points
// below, matching the single-writer engine task described for this system.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"polymarket-arb-engine/internal/evaluator"
	"polymarket-arb-engine/internal/market"
	"polymarket-arb-engine/internal/metrics"
	"polymarket-arb-engine/internal/pricetable"
	"polymarket-arb-engine/pkg/types"
)

const signalChannelCapacity = 16

type lastPrice struct {
	bid, ask float64
	ts       int64
}

type rebuildRequest struct {
	groups []types.GroupDescriptor
	result chan int
}

type configUpdateRequest struct {
	update types.EngineConfigUpdate
	done   chan struct{}
}

// Engine dispatches top-of-book updates against the group/trio structure and
// forwards emitted signals to the executor.
type Engine struct {
	cfg    evaluator.Config
	cfgMu  sync.Mutex // not taken anywhere: cfg is only read and written on the engine goroutine (UpdateConfig goes through inboundConfig)
	logger *slog.Logger
	met    *metrics.Metrics

	table      *pricetable.Table
	structure  *market.Structure
	lastPrices map[string]lastPrice

	inboundQuotes  chan types.TopOfBookUpdate
	inboundRebuild chan rebuildRequest
	inboundConfig  chan configUpdateRequest
	signalOut      chan types.ArbSignal

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs an Engine with an empty structure. Call Run before feeding
// it quotes.
func New(cfg evaluator.Config, signalBuffer int, logger *slog.Logger, met *metrics.Metrics) *Engine {
	if signalBuffer <= 0 {
		signalBuffer = signalChannelCapacity
	}
	return &Engine{
		cfg:            cfg,
		logger:         logger.With("component", "engine"),
		met:            met,
		table:          pricetable.New(),
		structure:      &market.Structure{Groups: map[string]*market.Group{}, TokenIndex: map[string][]types.TokenRole{}},
		lastPrices:     make(map[string]lastPrice),
		inboundQuotes:  make(chan types.TopOfBookUpdate, 1024),
		inboundRebuild: make(chan rebuildRequest),
		inboundConfig:  make(chan configUpdateRequest),
		signalOut:      make(chan types.ArbSignal, signalBuffer),
	}
}

// Run starts the engine task on its own goroutine and returns immediately.
// The task exits when ctx is cancelled or Stop is called; quotes still
// queued at that point are not processed.
func (e *Engine) Run(ctx context.Context) {
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.wg.Add(1)
	go e.loop()
}

// Stop cancels the engine task and waits for it to exit.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}

func (e *Engine) loop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case u := <-e.inboundQuotes:
			e.handleTopOfBook(u)
		case req := <-e.inboundRebuild:
			st, count := market.Build(req.groups, e.table)
			e.structure = st
			e.lastPrices = make(map[string]lastPrice)
			req.result <- count
		case req := <-e.inboundConfig:
			e.applyConfigUpdate(req.update)
			close(req.done)
		}
	}
}

// SubmitQuote hands a parsed top-of-book update to the engine task. The
// inbound channel is generously buffered (parser tasks must never block on
// the engine); it is not the bounded signal channel named in the design.
func (e *Engine) SubmitQuote(u types.TopOfBookUpdate) {
	select {
	case e.inboundQuotes <- u:
	case <-e.ctx.Done():
	}
}

// RebuildStructure replaces the group/trio structure and price table,
// blocking until the engine task has applied it, and returns the new trio
// count.
func (e *Engine) RebuildStructure(groups []types.GroupDescriptor) int {
	req := rebuildRequest{groups: groups, result: make(chan int, 1)}
	select {
	case e.inboundRebuild <- req:
	case <-e.ctx.Done():
		return 0
	}
	select {
	case n := <-req.result:
		return n
	case <-e.ctx.Done():
		return 0
	}
}

// UpdateConfig replaces the named threshold/cooldown fields, blocking until
// applied by the engine task.
func (e *Engine) UpdateConfig(update types.EngineConfigUpdate) {
	req := configUpdateRequest{update: update, done: make(chan struct{})}
	select {
	case e.inboundConfig <- req:
	case <-e.ctx.Done():
		return
	}
	select {
	case <-req.done:
	case <-e.ctx.Done():
	}
}

func (e *Engine) applyConfigUpdate(update types.EngineConfigUpdate) {
	if update.MinProfitAbs != nil {
		e.cfg.MinProfitAbs = *update.MinProfitAbs
	}
	if update.MinProfitBps != nil {
		e.cfg.MinProfitBps = *update.MinProfitBps
	}
	if update.CooldownMs != nil {
		e.cfg.CooldownMs = *update.CooldownMs
	}
}

// Signals returns the bounded channel signals are emitted onto. Its capacity
// is the signalBuffer passed to New (16 when that is not positive); once
// full, the engine drops the oldest pending signal rather than block the
// dispatch hot path.
func (e *Engine) Signals() <-chan types.ArbSignal {
	return e.signalOut
}

// Status reports current structure sizing for the host's status surface.
func (e *Engine) Status() types.EngineStatus {
	trios := 0
	for _, g := range e.structure.Groups {
		trios += len(g.Trios)
	}
	return types.EngineStatus{
		Groups:       len(e.structure.Groups),
		Trios:        trios,
		Slots:        e.table.Len(),
		IndexedTokens: len(e.structure.TokenIndex),
	}
}

// handleTopOfBook implements the dirty-check → slot-write → dispatch
// sequence. It must only ever run on the engine goroutine.
func (e *Engine) handleTopOfBook(u types.TopOfBookUpdate) {
	start := time.Now()

	last, had := e.lastPrices[u.TokenID]
	if had {
		if u.TimestampMs > 0 && last.ts > 0 && u.TimestampMs <= last.ts {
			return
		}
		if u.Bid == last.bid && u.Ask == last.ask {
			e.lastPrices[u.TokenID] = lastPrice{bid: u.Bid, ask: u.Ask, ts: u.TimestampMs}
			return
		}
	}

	idx, ok := e.table.Lookup(u.TokenID)
	if !ok {
		return
	}

	e.table.Update(idx, u.Bid, u.Ask, u.BidSize, u.AskSize, u.TimestampMs)
	e.lastPrices[u.TokenID] = lastPrice{bid: u.Bid, ask: u.Ask, ts: u.TimestampMs}

	roles := e.structure.RolesFor(u.TokenID)
	if len(roles) == 0 {
		return
	}

	evaluated := make(map[string]struct{}, len(roles))
	nowMs := pricetable.NowMs()

	for _, role := range roles {
		if role.Kind != types.RoleTrioLeg {
			continue
		}
		key := fmt.Sprintf("%s#%d", role.GroupKey, role.TrioIndex)
		if _, done := evaluated[key]; done {
			continue
		}
		evaluated[key] = struct{}{}

		g, ok := e.structure.Groups[role.GroupKey]
		if !ok || role.TrioIndex >= len(g.Trios) {
			continue
		}
		trio := g.Trios[role.TrioIndex]

		signals := evaluator.Evaluate(role.GroupKey, role.TrioIndex, trio, e.table, e.cfg, nowMs)
		for _, s := range signals {
			e.emitSignal(s)
		}
	}

	if e.met != nil {
		e.met.DispatchLatency.Observe(time.Since(start).Seconds())
	}
}

// emitSignal is a try-send with drop-oldest-on-full semantics: the bounded
// channel must never stall dispatch.
func (e *Engine) emitSignal(s types.ArbSignal) {
	if e.met != nil {
		e.met.SignalsEmitted.WithLabelValues(string(s.Strategy)).Inc()
	}

	select {
	case e.signalOut <- s:
		return
	default:
	}

	select {
	case <-e.signalOut:
	default:
	}
	select {
	case e.signalOut <- s:
	default:
		if e.met != nil {
			e.met.SignalsDropped.Inc()
		}
		e.logger.Warn("signal dropped, channel saturated", "strategy", s.Strategy, "group", s.GroupKey)
	}
}
