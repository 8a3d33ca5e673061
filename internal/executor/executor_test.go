package executor

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"polymarket-arb-engine/internal/config"
	"polymarket-arb-engine/internal/exchange"
	"polymarket-arb-engine/internal/validation"
	"polymarket-arb-engine/pkg/types"
)

const testPrivateKeyHex = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690"

func testExecutor(t *testing.T, cfg Config) *Executor {
	t.Helper()
	authCfg := config.Config{
		DryRun: true,
		Wallet: config.WalletConfig{PrivateKey: testPrivateKeyHex, ChainID: 137},
		API:    config.APIConfig{CLOBBaseURL: "http://localhost", ApiKey: "test-key", Secret: "c2VjcmV0LXZhbHVl", Passphrase: "pass"},
	}
	auth, err := exchange.NewAuth(authCfg)
	if err != nil {
		t.Fatalf("NewAuth: %v", err)
	}
	client := exchange.NewClient(authCfg, auth, slog.Default())
	state := validation.NewState()
	state.SetBalance(100000)
	state.SetTradingEnabled(true)

	return New(cfg, state, auth, client, "test-key", nil, slog.Default())
}

func triangleSignal() types.ArbSignal {
	return types.ArbSignal{
		Strategy: types.StrategyTriangleBuy, GroupKey: "eth-2026", TotalAsk: 0.90,
		ProfitAbs: 0.10, ProfitBps: 1111, EmittedAtMs: 1000,
		Legs: [3]types.LegQuote{
			{TokenID: "tok1", Side: types.SideBuy, Price: 0.30, OrderbookSize: 100},
			{TokenID: "tok2", Side: types.SideBuy, Price: 0.30, OrderbookSize: 100},
			{TokenID: "tok3", Side: types.SideBuy, Price: 0.30, OrderbookSize: 100},
		},
	}
}

func TestShouldSkipTradingDisabled(t *testing.T) {
	t.Parallel()
	e := testExecutor(t, Config{DefaultSize: 10, MinPnlThresholdPct: 0})
	e.state.SetTradingEnabled(false)

	reason, skip := e.shouldSkip(triangleSignal(), buildCandidates(triangleSignal()), 2000)
	if !skip || reason != types.SkipTradingDisabled {
		t.Fatalf("reason = %v, skip = %v, want TradingDisabled", reason, skip)
	}
}

func TestShouldSkipCooldownActive(t *testing.T) {
	t.Parallel()
	e := testExecutor(t, Config{DefaultSize: 10, MinPnlThresholdPct: 0, OpportunityTimeoutMs: 5000})
	e.state.StampExecuted(1000)

	reason, skip := e.shouldSkip(triangleSignal(), buildCandidates(triangleSignal()), 2000)
	if !skip || reason != types.SkipCooldownActive {
		t.Fatalf("reason = %v, skip = %v, want CooldownActive", reason, skip)
	}
}

func TestShouldSkipInsufficientOrderbookSize(t *testing.T) {
	t.Parallel()
	e := testExecutor(t, Config{DefaultSize: 200, MinPnlThresholdPct: 0})

	reason, skip := e.shouldSkip(triangleSignal(), buildCandidates(triangleSignal()), 2000)
	if !skip || reason != types.SkipInsufficientOrderbookSize {
		t.Fatalf("reason = %v, skip = %v, want InsufficientOrderbookSize", reason, skip)
	}
}

func TestShouldSkipPnlBelowThreshold(t *testing.T) {
	t.Parallel()
	e := testExecutor(t, Config{DefaultSize: 10, MinPnlThresholdPct: 50})

	reason, skip := e.shouldSkip(triangleSignal(), buildCandidates(triangleSignal()), 2000)
	if !skip || reason != types.SkipPnlBelowThreshold {
		t.Fatalf("reason = %v, skip = %v, want PnlBelowThreshold", reason, skip)
	}
}

func TestShouldSkipInsufficientBalance(t *testing.T) {
	t.Parallel()
	e := testExecutor(t, Config{DefaultSize: 10, MinPnlThresholdPct: 0})
	e.state.SetBalance(1)

	reason, skip := e.shouldSkip(triangleSignal(), buildCandidates(triangleSignal()), 2000)
	if !skip || reason != types.SkipInsufficientBalance {
		t.Fatalf("reason = %v, skip = %v, want InsufficientBalance", reason, skip)
	}
}

func TestShouldSkipClearsAllGates(t *testing.T) {
	t.Parallel()
	e := testExecutor(t, Config{DefaultSize: 10, MinPnlThresholdPct: 0})

	reason, skip := e.shouldSkip(triangleSignal(), buildCandidates(triangleSignal()), 2000)
	if skip {
		t.Fatalf("expected no skip, got reason %v", reason)
	}
}

func TestProcessDryRunEmitsSuccessfulTradeResult(t *testing.T) {
	t.Parallel()
	e := testExecutor(t, Config{DefaultSize: 10, MinPnlThresholdPct: 0})

	results := make(chan types.TradeResult, 1)
	e.OnTradeResult(func(r types.TradeResult) { results <- r })

	e.process(context.Background(), triangleSignal())

	select {
	case r := <-results:
		if !r.Success {
			t.Errorf("expected success, got %+v", r)
		}
		if len(r.OrderIDs) != 3 {
			t.Errorf("expected 3 order ids, got %d", len(r.OrderIDs))
		}
	case <-time.After(time.Second):
		t.Fatal("expected a trade result")
	}

	if e.state.Balance() != 100000-9.0 {
		t.Errorf("balance = %v, want %v", e.state.Balance(), 100000-9.0)
	}
}

func TestProcessSkippedSignalEmitsNothing(t *testing.T) {
	t.Parallel()
	e := testExecutor(t, Config{DefaultSize: 10, MinPnlThresholdPct: 0})
	e.state.SetTradingEnabled(false)

	results := make(chan types.TradeResult, 1)
	e.OnTradeResult(func(r types.TradeResult) { results <- r })

	e.process(context.Background(), triangleSignal())

	select {
	case r := <-results:
		t.Fatalf("expected no trade result, got %+v", r)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBuildCandidatesDropsZeroPriceLegs(t *testing.T) {
	t.Parallel()
	signal := triangleSignal()
	signal.Legs[1].Price = 0

	candidates := buildCandidates(signal)
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates after dropping zero-price leg, got %d", len(candidates))
	}
}

func TestTotalCostRangeStrategies(t *testing.T) {
	t.Parallel()

	unbundle := types.ArbSignal{
		Strategy: types.StrategySellParentBuyChildren,
		Legs: [3]types.LegQuote{
			{Side: types.SideSell, Price: 0.60}, // parent_lower bid
			{Side: types.SideBuy, Price: 0.20},  // child ask
			{Side: types.SideBuy, Price: 0.15},  // parent_upper ask
		},
	}
	got := totalCost(unbundle)
	want := 0.20 + 0.15 + (1 - 0.60)
	if got != want {
		t.Errorf("unbundle total cost = %v, want %v", got, want)
	}

	bundle := types.ArbSignal{
		Strategy: types.StrategyBuyParentSellChildren,
		Legs: [3]types.LegQuote{
			{Side: types.SideBuy, Price: 0.65},  // parent ask
			{Side: types.SideSell, Price: 0.25}, // child bid
			{Side: types.SideSell, Price: 0.18}, // parent_upper bid
		},
	}
	got = totalCost(bundle)
	want = 0.65 + (1 - 0.25) + (1 - 0.18)
	if got != want {
		t.Errorf("bundle total cost = %v, want %v", got, want)
	}
}
