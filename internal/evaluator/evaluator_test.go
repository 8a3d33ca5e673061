package evaluator

import (
	"math"
	"testing"

	"polymarket-arb-engine/internal/market"
	"polymarket-arb-engine/internal/pricetable"
	"polymarket-arb-engine/pkg/types"
)

func f(v float64) *float64 { return &v }

// buildTestTrio assembles the canonical two-parent/one-child group used by
// every scenario below: parent_lower (2800), parent_upper (2900), range
// (2800-2900).
func buildTestTrio(t *testing.T) (*market.Trio, *pricetable.Table) {
	t.Helper()

	gd := types.GroupDescriptor{
		Key: "eth-2026",
		Parents: []types.ParentDescriptor{
			{ID: "p2800", YesTokenID: "p2800-yes", NoTokenID: "p2800-no", Lower: f(2800), Kind: types.KindAbove},
			{ID: "p2900", YesTokenID: "p2900-yes", NoTokenID: "p2900-no", Lower: f(2900), Kind: types.KindAbove},
		},
		Children: []types.RangeChildDescriptor{
			{ID: "r2800-2900", YesTokenID: "r-yes", NoTokenID: "r-no", Lower: 2800, Upper: 2900},
		},
	}

	tbl := pricetable.New()
	st, count := market.Build([]types.GroupDescriptor{gd}, tbl)
	if count != 1 {
		t.Fatalf("setup: expected one trio, got %d", count)
	}
	return st.Groups["eth-2026"].Trios[0], tbl
}

func setQuote(tbl *pricetable.Table, tokenID string, bid, ask float64) {
	idx, _ := tbl.Lookup(tokenID)
	bidSz, askSz := 1000.0, 1000.0
	tbl.Update(idx, bid, ask, &bidSz, &askSz, 1)
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestTriangleProfitMet(t *testing.T) {
	t.Parallel()

	trio, tbl := buildTestTrio(t)
	setQuote(tbl, "p2800-yes", 0.59, 0.60) // lower_yes.ask
	setQuote(tbl, "p2900-no", 0.49, 0.50)  // upper_no.ask
	setQuote(tbl, "r-no", 0.79, 0.80)      // range_no.ask

	cfg := Config{MinProfitAbs: 0.01, MinProfitBps: 1}
	signals := Evaluate("eth-2026", 0, trio, tbl, cfg, 1000)

	var found *types.ArbSignal
	for i := range signals {
		if signals[i].Strategy == types.StrategyTriangleBuy {
			found = &signals[i]
		}
	}
	if found == nil {
		t.Fatalf("expected a triangle signal, got %+v", signals)
	}
	if !approxEqual(found.ProfitAbs, 0.10, 1e-9) {
		t.Errorf("profit_abs = %v, want ~0.10", found.ProfitAbs)
	}
	if !approxEqual(found.ProfitBps, 526, 1) {
		t.Errorf("profit_bps = %v, want ~526", found.ProfitBps)
	}
}

func TestTriangleBelowThreshold(t *testing.T) {
	t.Parallel()

	trio, tbl := buildTestTrio(t)
	setQuote(tbl, "p2800-yes", 0.66, 0.67)
	setQuote(tbl, "p2900-no", 0.66, 0.67)
	setQuote(tbl, "r-no", 0.66, 0.67)

	cfg := Config{MinProfitAbs: 0.01, MinProfitBps: 1}
	signals := Evaluate("eth-2026", 0, trio, tbl, cfg, 1000)
	for _, s := range signals {
		if s.Strategy == types.StrategyTriangleBuy {
			t.Fatalf("expected no triangle signal, got %+v", s)
		}
	}
}

func TestRangeUnbundle(t *testing.T) {
	t.Parallel()

	trio, tbl := buildTestTrio(t)
	setQuote(tbl, "p2800-yes", 0.80, 0.81) // parent_lower bid
	setQuote(tbl, "r-yes", 0.29, 0.30)     // range ask
	setQuote(tbl, "p2900-yes", 0.39, 0.40) // parent_upper ask

	cfg := Config{MinProfitAbs: 0.01, MinProfitBps: 1}
	signals := Evaluate("eth-2026", 0, trio, tbl, cfg, 1000)

	var found *types.ArbSignal
	for i := range signals {
		if signals[i].Strategy == types.StrategySellParentBuyChildren {
			found = &signals[i]
		}
	}
	if found == nil {
		t.Fatalf("expected a range-unbundle signal, got %+v", signals)
	}
	if !approxEqual(found.ProfitAbs, 0.10, 1e-9) {
		t.Errorf("profit_abs = %v, want ~0.10", found.ProfitAbs)
	}
}

func TestRangeBundle(t *testing.T) {
	t.Parallel()

	trio, tbl := buildTestTrio(t)
	setQuote(tbl, "p2800-yes", 0.59, 0.60) // parent_lower ask
	setQuote(tbl, "r-yes", 0.40, 0.41)     // range bid
	setQuote(tbl, "p2900-yes", 0.30, 0.31) // parent_upper bid

	cfg := Config{MinProfitAbs: 0.01, MinProfitBps: 1}
	signals := Evaluate("eth-2026", 0, trio, tbl, cfg, 1000)

	var found *types.ArbSignal
	for i := range signals {
		if signals[i].Strategy == types.StrategyBuyParentSellChildren {
			found = &signals[i]
		}
	}
	if found == nil {
		t.Fatalf("expected a range-bundle signal, got %+v", signals)
	}
	if !approxEqual(found.ProfitAbs, 0.10, 1e-9) {
		t.Errorf("profit_abs = %v, want ~0.10", found.ProfitAbs)
	}
}

func TestComplementProfit(t *testing.T) {
	t.Parallel()

	trio, tbl := buildTestTrio(t)
	setQuote(tbl, "p2800-no", 0.39, 0.40) // lower_no ask
	setQuote(tbl, "r-yes", 0.19, 0.20)    // range_yes ask
	setQuote(tbl, "p2900-yes", 0.14, 0.15) // upper_yes ask

	cfg := Config{MinProfitAbs: 0.01, MinProfitBps: 1}
	signals := Evaluate("eth-2026", 0, trio, tbl, cfg, 1000)

	var found *types.ArbSignal
	for i := range signals {
		if signals[i].Strategy == types.StrategyComplementBuy {
			found = &signals[i]
		}
	}
	if found == nil {
		t.Fatalf("expected a complement signal, got %+v", signals)
	}
	if !approxEqual(found.ProfitAbs, 0.25, 1e-9) {
		t.Errorf("profit_abs = %v, want 0.25", found.ProfitAbs)
	}
	if !approxEqual(found.ProfitBps, 3333, 1) {
		t.Errorf("profit_bps = %v, want ~3333", found.ProfitBps)
	}
}

func TestNaNQuoteAbortsEvaluation(t *testing.T) {
	t.Parallel()

	trio, tbl := buildTestTrio(t)
	// leave all quotes at their sentinel NaN values.
	cfg := Config{MinProfitAbs: 0, MinProfitBps: 0}
	signals := Evaluate("eth-2026", 0, trio, tbl, cfg, 1000)
	if len(signals) != 0 {
		t.Fatalf("expected no signals with all-NaN quotes, got %+v", signals)
	}
}

func TestCooldownSuppressesRepeatSignal(t *testing.T) {
	t.Parallel()

	trio, tbl := buildTestTrio(t)
	setQuote(tbl, "p2800-yes", 0.59, 0.60)
	setQuote(tbl, "p2900-no", 0.49, 0.50)
	setQuote(tbl, "r-no", 0.79, 0.80)

	cfg := Config{MinProfitAbs: 0.01, MinProfitBps: 1, CooldownMs: 5000}
	first := Evaluate("eth-2026", 0, trio, tbl, cfg, 1000)
	if len(first) == 0 {
		t.Fatal("expected an initial signal")
	}

	second := Evaluate("eth-2026", 0, trio, tbl, cfg, 1500)
	for _, s := range second {
		if s.Strategy == types.StrategyTriangleBuy {
			t.Fatal("expected triangle signal suppressed during cooldown")
		}
	}

	third := Evaluate("eth-2026", 0, trio, tbl, cfg, 6200)
	found := false
	for _, s := range third {
		if s.Strategy == types.StrategyTriangleBuy {
			found = true
		}
	}
	if !found {
		t.Fatal("expected triangle signal to resume after cooldown elapses")
	}
}
