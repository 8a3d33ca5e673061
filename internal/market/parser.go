package market

import (
	"fmt"
	"math"
	"strconv"

	"polymarket-arb-engine/pkg/types"
)

const tsSecondsBoundary = 1_000_000_000_000 // 10^12

// ParseBookMessage normalizes a full "book" snapshot into a TopOfBookUpdate.
// Bids arrive ascending by price (best = last element), asks descending
// (best = last element) — the convention named in spec §6/§9, opposite of
// a first-element-wins book.
func ParseBookMessage(msg types.WSBookMessage) (types.TopOfBookUpdate, error) {
	tsMs, err := parseTimestampMs(msg.Timestamp)
	if err != nil {
		return types.TopOfBookUpdate{}, fmt.Errorf("parse book timestamp: %w", err)
	}

	update := types.TopOfBookUpdate{TokenID: msg.AssetID, TimestampMs: tsMs, Bid: math.NaN(), Ask: math.NaN()}

	if n := len(msg.Bids); n > 0 {
		best := msg.Bids[n-1]
		bid, err := strconv.ParseFloat(best.Price, 64)
		if err != nil {
			return types.TopOfBookUpdate{}, fmt.Errorf("parse best bid: %w", err)
		}
		size, err := strconv.ParseFloat(best.Size, 64)
		if err != nil {
			return types.TopOfBookUpdate{}, fmt.Errorf("parse best bid size: %w", err)
		}
		update.Bid = bid
		update.BidSize = &size
	}

	if n := len(msg.Asks); n > 0 {
		best := msg.Asks[n-1]
		ask, err := strconv.ParseFloat(best.Price, 64)
		if err != nil {
			return types.TopOfBookUpdate{}, fmt.Errorf("parse best ask: %w", err)
		}
		size, err := strconv.ParseFloat(best.Size, 64)
		if err != nil {
			return types.TopOfBookUpdate{}, fmt.Errorf("parse best ask size: %w", err)
		}
		update.Ask = ask
		update.AskSize = &size
	}

	return update, nil
}

// ParsePriceChangeMessage normalizes an incremental "price_change" frame,
// which carries a raw top-of-book overwrite per asset (no sizes).
func ParsePriceChangeMessage(msg types.WSPriceChangeMessage) ([]types.TopOfBookUpdate, error) {
	tsMs, err := parseTimestampMs(msg.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("parse price_change timestamp: %w", err)
	}

	updates := make([]types.TopOfBookUpdate, 0, len(msg.PriceChanges))
	for _, pc := range msg.PriceChanges {
		bid, err := strconv.ParseFloat(pc.BestBid, 64)
		if err != nil {
			return nil, fmt.Errorf("parse best_bid: %w", err)
		}
		ask, err := strconv.ParseFloat(pc.BestAsk, 64)
		if err != nil {
			return nil, fmt.Errorf("parse best_ask: %w", err)
		}
		updates = append(updates, types.TopOfBookUpdate{
			TokenID: pc.AssetID, Bid: bid, Ask: ask, TimestampMs: tsMs,
		})
	}
	return updates, nil
}

// parseTimestampMs parses a wire timestamp and normalizes it to milliseconds.
// Values smaller than 10^12 are interpreted as seconds.
func parseTimestampMs(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if ts < tsSecondsBoundary {
		ts *= 1000
	}
	return ts, nil
}
