package executor

import "polymarket-arb-engine/pkg/types"

// buildCandidates filters a signal's legs down to those that actually carry a
// tradeable quote. The evaluator only ever emits a signal once every leg it
// populated cleared its NaN check, so in steady state no leg is dropped here
// — this defends against a leg arriving with a zero/negative price from a
// future evaluator change. The evaluator's leg order is kept as is: for the
// triangle it is parent_lower, parent_upper, range; for both range
// strategies it is parent_lower, range, parent_upper.
func buildCandidates(signal types.ArbSignal) []types.LegQuote {
	candidates := make([]types.LegQuote, 0, 3)
	for _, leg := range signal.Legs {
		if leg.TokenID == "" || leg.Price <= 0 {
			continue
		}
		candidates = append(candidates, leg)
	}
	return candidates
}

// totalCost computes the strategy-specific cost basis used for the
// PnlBelowThreshold gate (§4.7). Triangle/complement reuse the precomputed
// total_ask the evaluator already carried on the signal; the two range
// strategies price the synthetic-mint cost of the leg they don't directly
// trade.
func totalCost(signal types.ArbSignal) float64 {
	switch signal.Strategy {
	case types.StrategyTriangleBuy, types.StrategyComplementBuy:
		return signal.TotalAsk

	case types.StrategySellParentBuyChildren:
		// Legs: [0]=SELL parent_lower, [1]=BUY range, [2]=BUY parent_upper.
		// Minting the parent_lower leg's complementary side costs $1 against
		// its bid, i.e. (1 - bid) plus the two buy-leg asks.
		if len(signal.Legs) < 3 {
			return signal.TotalAsk
		}
		childAsk := signal.Legs[1].Price
		parentUpperAsk := signal.Legs[2].Price
		parentLowerBid := signal.Legs[0].Price
		return childAsk + parentUpperAsk + (1 - parentLowerBid)

	case types.StrategyBuyParentSellChildren:
		// Legs: [0]=BUY parent_lower, [1]=SELL range, [2]=SELL parent_upper.
		if len(signal.Legs) < 3 {
			return signal.TotalAsk
		}
		parentAsk := signal.Legs[0].Price
		childBid := signal.Legs[1].Price
		parentUpperBid := signal.Legs[2].Price
		return parentAsk + (1 - childBid) + (1 - parentUpperBid)

	default:
		return signal.TotalAsk
	}
}
