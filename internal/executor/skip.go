package executor

import (
	"math"

	"polymarket-arb-engine/pkg/types"
)

// shouldSkip runs the nine should_skip gates in order (§4.6) and returns the
// first reason that fires, or ("", false) when the signal clears all of
// them. candidates is the leg list the caller already filtered through
// buildCandidates; the NoCandidates gate below checks whether it is empty.
func (e *Executor) shouldSkip(signal types.ArbSignal, candidates []types.LegQuote, nowMs int64) (types.SkipReason, bool) {
	if !e.state.TradingEnabled() {
		return types.SkipTradingDisabled, true
	}
	if e.state.IsSubmitting() {
		return types.SkipAlreadySubmitting, true
	}
	if nowMs-e.state.LastExecutedAtMs() < e.cfg.OpportunityTimeoutMs {
		return types.SkipCooldownActive, true
	}
	if len(candidates) == 0 {
		return types.SkipNoCandidates, true
	}
	for _, c := range candidates {
		if c.OrderbookSize > 0 && c.OrderbookSize < e.cfg.DefaultSize {
			return types.SkipInsufficientOrderbookSize, true
		}
	}

	cost := totalCost(signal)
	var pnlPct float64
	if cost != 0 {
		pnlPct = signal.ProfitAbs / cost * 100
	}
	if pnlPct < e.cfg.MinPnlThresholdPct {
		return types.SkipPnlBelowThreshold, true
	}

	size := e.cfg.DefaultSize
	if math.IsNaN(size) || math.IsInf(size, 0) || size < 5.0 {
		return types.SkipInvalidSize, true
	}

	for _, c := range candidates {
		if c.Side != types.SideSell {
			continue
		}
		if !e.state.HasSufficientMinted(signal.GroupKey, c.TokenID, size) {
			return types.SkipInsufficientMintedAssets, true
		}
	}

	requiredCost := 0.0
	for _, c := range candidates {
		if c.Side == types.SideBuy {
			requiredCost += c.Price * size
		}
	}
	if requiredCost > e.state.Balance() {
		return types.SkipInsufficientBalance, true
	}

	return "", false
}

// requiredCost sums price*size over every buy-leg candidate — the amount the
// submission path must atomically deduct from the balance once
// should_skip clears and the submission lock is acquired.
func requiredCost(candidates []types.LegQuote, size float64) float64 {
	total := 0.0
	for _, c := range candidates {
		if c.Side == types.SideBuy {
			total += c.Price * size
		}
	}
	return total
}
