// Package evaluator implements the three arbitrage evaluators (C4): pure
// functions that read only from the Price Table and return at most one
// ArbSignal per trio per strategy per call.
package evaluator

import (
	"math"

	"polymarket-arb-engine/internal/market"
	"polymarket-arb-engine/internal/pricetable"
	"polymarket-arb-engine/pkg/types"
)

// Config carries the thresholds and cooldown an evaluation run is judged
// against. MinProfitBps is expressed in basis points, matching the wire
// units used everywhere else in the engine.
type Config struct {
	MinProfitAbs float64
	MinProfitBps float64
	CooldownMs   int64
}

// Evaluate runs every strategy against trio's current quotes and returns the
// signals that clear their profit thresholds and cooldowns. groupKey and
// trioIndex are stamped onto every emitted signal so a caller iterating many
// trios can tell them apart; nowMs is a wall-clock timestamp used both for
// the cooldown check and the emitted signal's EmittedAtMs.
func Evaluate(groupKey string, trioIndex int, trio *market.Trio, table *pricetable.Table, cfg Config, nowMs int64) []types.ArbSignal {
	var signals []types.ArbSignal

	if s, ok := triangleBuy(trio, table, cfg, nowMs); ok {
		signals = append(signals, s)
	}
	if s, ok := complementBuy(trio, table, cfg, nowMs); ok {
		signals = append(signals, s)
	}
	if s, ok := rangeUnbundle(trio, table, cfg, nowMs); ok {
		signals = append(signals, s)
	}
	if s, ok := rangeBundle(trio, table, cfg, nowMs); ok {
		signals = append(signals, s)
	}

	for i := range signals {
		signals[i].GroupKey = groupKey
		signals[i].TrioIndex = trioIndex
	}

	return signals
}

func onCooldown(trio *market.Trio, tag types.StrategyTag, cfg Config, nowMs int64) bool {
	if cfg.CooldownMs <= 0 {
		return false
	}
	last := trio.Cooldown(tag)
	if last == 0 {
		return false // this strategy has never emitted on this trio
	}
	return nowMs-last < cfg.CooldownMs
}

func meetsThreshold(profit, bps float64, cfg Config) bool {
	return profit >= cfg.MinProfitAbs && bps >= cfg.MinProfitBps
}

// triangleBuy tiles YES(P_lo) ∧ NO(P_hi) ∧ NO(R): at least two of the three
// pay off in every settlement state, for a payout of 2.
func triangleBuy(trio *market.Trio, table *pricetable.Table, cfg Config, nowMs int64) (types.ArbSignal, bool) {
	tag := types.StrategyTriangleBuy
	if onCooldown(trio, tag, cfg, nowMs) {
		return types.ArbSignal{}, false
	}

	ly := table.Get(trio.LowerYesSlot)
	un := table.Get(trio.UpperNoSlot)
	rn := table.Get(trio.RangeNoSlot)
	if math.IsNaN(ly.BestAsk) || math.IsNaN(un.BestAsk) || math.IsNaN(rn.BestAsk) {
		return types.ArbSignal{}, false
	}

	totalAsk := ly.BestAsk + un.BestAsk + rn.BestAsk
	profit := 2 - totalAsk
	var bps float64
	if totalAsk != 0 {
		bps = profit / totalAsk * 10000
	}
	if !meetsThreshold(profit, bps, cfg) {
		return types.ArbSignal{}, false
	}

	trio.SetCooldown(tag, nowMs)
	return types.ArbSignal{
		Strategy:  tag,
		TrioIndex: 0,
		ProfitAbs: profit,
		ProfitBps: bps,
		TotalAsk:  totalAsk,
		EmittedAtMs: nowMs,
		Legs: [3]types.LegQuote{
			{TokenID: trio.LowerYesToken, Side: types.SideBuy, Price: ly.BestAsk, OrderbookSize: ly.BestAskSize, NegRisk: trio.NegRisk},
			{TokenID: trio.UpperNoToken, Side: types.SideBuy, Price: un.BestAsk, OrderbookSize: un.BestAskSize, NegRisk: trio.NegRisk},
			{TokenID: trio.RangeNoToken, Side: types.SideBuy, Price: rn.BestAsk, OrderbookSize: rn.BestAskSize, NegRisk: trio.NegRisk},
		},
	}, true
}

// complementBuy tiles NO(P_lo) ∧ YES(R) ∧ YES(P_hi): exactly one is true in
// every state, for a payout of 1.
func complementBuy(trio *market.Trio, table *pricetable.Table, cfg Config, nowMs int64) (types.ArbSignal, bool) {
	tag := types.StrategyComplementBuy
	if onCooldown(trio, tag, cfg, nowMs) {
		return types.ArbSignal{}, false
	}

	ln := table.Get(trio.LowerNoSlot)
	ry := table.Get(trio.RangeYesSlot)
	uy := table.Get(trio.UpperYesSlot)
	if math.IsNaN(ln.BestAsk) || math.IsNaN(ry.BestAsk) || math.IsNaN(uy.BestAsk) {
		return types.ArbSignal{}, false
	}

	totalAsk := ln.BestAsk + ry.BestAsk + uy.BestAsk
	profit := 1 - totalAsk
	var bps float64
	if totalAsk != 0 {
		bps = profit / totalAsk * 10000
	}
	if !meetsThreshold(profit, bps, cfg) {
		return types.ArbSignal{}, false
	}

	trio.SetCooldown(tag, nowMs)
	return types.ArbSignal{
		Strategy:  tag,
		TrioIndex: 0,
		ProfitAbs: profit,
		ProfitBps: bps,
		TotalAsk:  totalAsk,
		EmittedAtMs: nowMs,
		Legs: [3]types.LegQuote{
			{TokenID: trio.LowerNoToken, Side: types.SideBuy, Price: ln.BestAsk, OrderbookSize: ln.BestAskSize, NegRisk: trio.NegRisk},
			{TokenID: trio.RangeYesToken, Side: types.SideBuy, Price: ry.BestAsk, OrderbookSize: ry.BestAskSize, NegRisk: trio.NegRisk},
			{TokenID: trio.UpperYesToken, Side: types.SideBuy, Price: uy.BestAsk, OrderbookSize: uy.BestAskSize, NegRisk: trio.NegRisk},
		},
	}, true
}

// rangeUnbundle sells the lower parent's YES and buys both children's YES:
// profitable when the parent bid outweighs the cost of assembling it from
// its range decomposition.
func rangeUnbundle(trio *market.Trio, table *pricetable.Table, cfg Config, nowMs int64) (types.ArbSignal, bool) {
	tag := types.StrategySellParentBuyChildren
	if onCooldown(trio, tag, cfg, nowMs) {
		return types.ArbSignal{}, false
	}

	loYes := table.Get(trio.LowerYesSlot)
	rangeYes := table.Get(trio.RangeYesSlot)
	upYes := table.Get(trio.UpperYesSlot)
	if math.IsNaN(loYes.BestBid) || math.IsNaN(rangeYes.BestAsk) || math.IsNaN(upYes.BestAsk) {
		return types.ArbSignal{}, false
	}

	cost := rangeYes.BestAsk + upYes.BestAsk
	profit := loYes.BestBid - cost
	var bps float64
	if cost != 0 {
		bps = profit / cost * 10000
	}
	if !meetsThreshold(profit, bps, cfg) {
		return types.ArbSignal{}, false
	}

	trio.SetCooldown(tag, nowMs)
	return types.ArbSignal{
		Strategy:  tag,
		TrioIndex: 0,
		ProfitAbs: profit,
		ProfitBps: bps,
		TotalAsk:  cost,
		EmittedAtMs: nowMs,
		Legs: [3]types.LegQuote{
			{TokenID: trio.LowerYesToken, Side: types.SideSell, Price: loYes.BestBid, OrderbookSize: loYes.BestBidSize, NegRisk: trio.NegRisk},
			{TokenID: trio.RangeYesToken, Side: types.SideBuy, Price: rangeYes.BestAsk, OrderbookSize: rangeYes.BestAskSize, NegRisk: trio.NegRisk},
			{TokenID: trio.UpperYesToken, Side: types.SideBuy, Price: upYes.BestAsk, OrderbookSize: upYes.BestAskSize, NegRisk: trio.NegRisk},
		},
	}, true
}

// rangeBundle buys the lower parent's YES and sells both children's YES:
// the inverse assembly trade.
func rangeBundle(trio *market.Trio, table *pricetable.Table, cfg Config, nowMs int64) (types.ArbSignal, bool) {
	tag := types.StrategyBuyParentSellChildren
	if onCooldown(trio, tag, cfg, nowMs) {
		return types.ArbSignal{}, false
	}

	loYes := table.Get(trio.LowerYesSlot)
	rangeYes := table.Get(trio.RangeYesSlot)
	upYes := table.Get(trio.UpperYesSlot)
	if math.IsNaN(loYes.BestAsk) || math.IsNaN(rangeYes.BestBid) || math.IsNaN(upYes.BestBid) {
		return types.ArbSignal{}, false
	}

	profit := rangeYes.BestBid + upYes.BestBid - loYes.BestAsk
	var bps float64
	if loYes.BestAsk != 0 {
		bps = profit / loYes.BestAsk * 10000
	}
	if !meetsThreshold(profit, bps, cfg) {
		return types.ArbSignal{}, false
	}

	trio.SetCooldown(tag, nowMs)
	return types.ArbSignal{
		Strategy:  tag,
		TrioIndex: 0,
		ProfitAbs: profit,
		ProfitBps: bps,
		TotalAsk:  loYes.BestAsk,
		EmittedAtMs: nowMs,
		Legs: [3]types.LegQuote{
			{TokenID: trio.LowerYesToken, Side: types.SideBuy, Price: loYes.BestAsk, OrderbookSize: loYes.BestAskSize, NegRisk: trio.NegRisk},
			{TokenID: trio.RangeYesToken, Side: types.SideSell, Price: rangeYes.BestBid, OrderbookSize: rangeYes.BestBidSize, NegRisk: trio.NegRisk},
			{TokenID: trio.UpperYesToken, Side: types.SideSell, Price: upYes.BestBid, OrderbookSize: upYes.BestBidSize, NegRisk: trio.NegRisk},
		},
	}, true
}
