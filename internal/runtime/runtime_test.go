package runtime

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"polymarket-arb-engine/internal/config"
	"polymarket-arb-engine/pkg/types"
)

const testPrivateKeyHex = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690"

func testConfig() config.Config {
	return config.Config{
		DryRun: true,
		Wallet: config.WalletConfig{PrivateKey: testPrivateKeyHex, ChainID: 137, FunderAddress: "0x1111111111111111111111111111111111111111"},
		API:    config.APIConfig{CLOBBaseURL: "http://localhost", ApiKey: "test-key", Secret: "c2VjcmV0LXZhbHVl", Passphrase: "pass"},
		Socket: config.SocketConfig{
			WSMarketURL:         "ws://127.0.0.1:1/never-connects",
			MaxTokensPerConn:    2,
			PingInterval:        time.Second,
			ReadTimeout:         time.Second,
			ReconnectBaseDelay:  10 * time.Millisecond,
			ReconnectMaxDelay:   20 * time.Millisecond,
			ReconnectMaxAttempt: 1,
		},
		Engine: config.EngineConfig{MinProfitAbs: 0, MinProfitBps: 0, CooldownMs: 0, SignalBuffer: 16},
		Executor: config.ExecutorConfig{
			OpportunityTimeoutMs: 0, MinPnlThresholdPct: 0, DefaultSize: 10,
			SlippageEnabled: false, MaxPrice: 0.99, MinPrice: 0.01,
		},
	}
}

func TestSocketLifecycleTracksSubscriptions(t *testing.T) {
	t.Parallel()
	rt := New(testConfig(), slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt.InitSocket(ctx)

	rt.SubscribeTokens([]string{"tok1", "tok2", "tok3"})

	status := rt.SocketStatus()
	if status.SubscribedTokens != 3 {
		t.Fatalf("subscribed tokens = %d, want 3", status.SubscribedTokens)
	}
	if status.TotalConnections != 2 {
		t.Fatalf("total connections = %d, want 2 (max 2 tokens per connection)", status.TotalConnections)
	}

	rt.UnsubscribeTokens([]string{"tok1", "tok2"})
	status = rt.SocketStatus()
	if status.SubscribedTokens != 1 {
		t.Fatalf("subscribed tokens after unsubscribe = %d, want 1", status.SubscribedTokens)
	}

	rt.ShutdownSocket()
}

func TestUpdateMarketStructureAndEngineStatus(t *testing.T) {
	t.Parallel()
	rt := New(testConfig(), slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt.InitSocket(ctx)
	defer rt.ShutdownSocket()

	upper := 10.0
	lower := 0.0
	groups := []types.GroupDescriptor{
		{
			Key: "g1",
			Parents: []types.ParentDescriptor{
				{ID: "p1", YesTokenID: "py1", NoTokenID: "pn1", Lower: &lower, Kind: types.KindAbove},
				{ID: "p2", YesTokenID: "py2", NoTokenID: "pn2", Lower: &upper, Kind: types.KindAbove},
			},
			Children: []types.RangeChildDescriptor{
				{ID: "c1", YesTokenID: "cy1", NoTokenID: "cn1", Lower: lower, Upper: upper},
			},
		},
	}

	trios := rt.UpdateMarketStructure(groups)
	if trios != 1 {
		t.Fatalf("trio count = %d, want 1", trios)
	}

	status := rt.EngineStatus()
	if status.Groups != 1 || status.Trios != 1 {
		t.Fatalf("engine status = %+v, want 1 group / 1 trio", status)
	}
}

func TestInitExecutorAndBalanceWiring(t *testing.T) {
	t.Parallel()
	rt := New(testConfig(), slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt.InitSocket(ctx)
	defer rt.ShutdownSocket()

	if err := rt.InitExecutor(); err != nil {
		t.Fatalf("InitExecutor: %v", err)
	}

	rt.UpdateBalance(500)
	rt.SetTradingEnabled(true)
	rt.UpdateMintedAssets("g1", []types.MintedAssetEntry{{TokenID: "tok1", Amount: 100}})

	if rt.state.Balance() != 500 {
		t.Fatalf("balance = %v, want 500", rt.state.Balance())
	}
	if !rt.state.TradingEnabled() {
		t.Fatal("expected trading enabled")
	}
	if !rt.state.HasSufficientMinted("g1", "tok1", 50) {
		t.Fatal("expected sufficient minted assets")
	}
}

func TestPlaceBatchOrdersDryRun(t *testing.T) {
	t.Parallel()
	rt := New(testConfig(), slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt.InitSocket(ctx)
	defer rt.ShutdownSocket()

	if err := rt.InitExecutor(); err != nil {
		t.Fatalf("InitExecutor: %v", err)
	}

	requests := []types.BatchOrderRequest{
		{TokenID: "tok1", Side: types.SideBuy, Price: 0.4, Size: 10},
		{TokenID: "tok2", Side: types.SideSell, Price: 0.6, Size: 10},
	}

	orderIDs, failed, latencyUs, err := rt.PlaceBatchOrders(context.Background(), requests)
	if err != nil {
		t.Fatalf("PlaceBatchOrders: %v", err)
	}
	if len(orderIDs) != 2 || len(failed) != 0 {
		t.Fatalf("orderIDs=%v failed=%v, want 2 successes", orderIDs, failed)
	}
	if latencyUs < 0 {
		t.Fatalf("latencyUs = %d, want >= 0", latencyUs)
	}
}

func TestPlaceBatchOrdersBeforeInitExecutorFails(t *testing.T) {
	t.Parallel()
	rt := New(testConfig(), slog.Default())

	_, _, _, err := rt.PlaceBatchOrders(context.Background(), []types.BatchOrderRequest{{TokenID: "tok1", Price: 0.5, Size: 10}})
	if err == nil {
		t.Fatal("expected error placing orders before InitExecutor")
	}
}
