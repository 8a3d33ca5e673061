package executor

import (
	"fmt"
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"polymarket-arb-engine/internal/pricetable"
	"polymarket-arb-engine/pkg/types"
)

const (
	usdcDecimalShift = 6
	minClampPrice    = 0.01
	maxClampPrice    = 0.99
)

// adjustForSlippage applies the narrow-at-the-edges spread from §4.8: a
// narrower 0.001 spread near the extremes (where one more tick would cross a
// round price), a wider 0.01 spread everywhere else, then clamps to the
// configured [min_price, max_price] band and the hard [0.01, 0.99] band.
func (e *Executor) adjustForSlippage(c types.LegQuote) float64 {
	if !e.cfg.SlippageEnabled {
		return c.Price
	}

	spread := 0.01
	if c.Price >= 0.96 || c.Price <= 0.04 {
		spread = 0.001
	}

	price := c.Price
	if c.Side == types.SideBuy {
		price += spread
		if price > e.cfg.MaxPrice {
			price = e.cfg.MaxPrice
		}
	} else {
		price -= spread
		if price < e.cfg.MinPrice {
			price = e.cfg.MinPrice
		}
	}

	if price < minClampPrice {
		price = minClampPrice
	}
	if price > maxClampPrice {
		price = maxClampPrice
	}
	return price
}

// prepareAndSign builds and EIP-712-signs one order per candidate leg, per
// §4.8's fixed-point USDC rounding rules.
func (e *Executor) prepareAndSign(candidates []types.LegQuote, size float64) ([]types.SignedOrder, error) {
	epochMs := pricetable.NowMs()

	signed := make([]types.SignedOrder, 0, len(candidates))
	for _, c := range candidates {
		price := e.adjustForSlippage(c)
		s, err := e.signAt(c.TokenID, c.Side, price, size, c.NegRisk, epochMs)
		if err != nil {
			return nil, fmt.Errorf("sign order for %s: %w", c.TokenID, err)
		}
		signed = append(signed, s)
	}

	return signed, nil
}

// signAt builds and EIP-712-signs a single order at an already-decided
// price/size, applying §4.8's fixed-point USDC rounding but no slippage
// adjustment — the caller has either already applied it (prepareAndSign) or
// is supplying an exact host-chosen price (place-batch-orders).
func (e *Executor) signAt(tokenID string, side types.Side, price, size float64, negRisk bool, epochMs int64) (types.SignedOrder, error) {
	sizeRounded := decimal.NewFromFloat(size).Round(2)
	priceDec := decimal.NewFromFloat(price)
	usdc := priceDec.Mul(sizeRounded).Round(4)

	var makerAmount, takerAmount decimal.Decimal
	if side == types.SideBuy {
		makerAmount = usdc.Shift(usdcDecimalShift).Round(0)
		takerAmount = sizeRounded.Shift(usdcDecimalShift).Round(0)
	} else {
		makerAmount = sizeRounded.Shift(usdcDecimalShift).Round(0)
		takerAmount = usdc.Shift(usdcDecimalShift).Round(0)
	}

	order := types.OrderToSign{
		Salt:        randomSalt(epochMs),
		TokenID:     tokenID,
		MakerAmount: makerAmount.String(),
		TakerAmount: takerAmount.String(),
		Side:        side,
		NegRisk:     negRisk,
		FeeRateBps:  0,
	}

	return e.auth.SignOrder(order)
}

// randomSalt returns a random decimal integer in [0, epochMs).
func randomSalt(epochMs int64) string {
	if epochMs <= 0 {
		return "0"
	}
	return fmt.Sprintf("%d", rand.Int64N(epochMs))
}
