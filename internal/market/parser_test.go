package market

import (
	"math"
	"testing"

	"polymarket-arb-engine/pkg/types"
)

func TestParseBookMessageBestIsLastElement(t *testing.T) {
	t.Parallel()

	msg := types.WSBookMessage{
		AssetID:   "tok-1",
		Timestamp: "1700000000000",
		Bids: []types.WSPriceLevel{
			{Price: "0.40", Size: "100"},
			{Price: "0.45", Size: "50"}, // best bid: last element, ascending
		},
		Asks: []types.WSPriceLevel{
			{Price: "0.60", Size: "30"}, // best ask: last element, descending
			{Price: "0.55", Size: "75"},
		},
	}

	update, err := ParseBookMessage(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if update.Bid != 0.45 || *update.BidSize != 50 {
		t.Errorf("best bid = %v/%v, want 0.45/50", update.Bid, *update.BidSize)
	}
	if update.Ask != 0.55 || *update.AskSize != 75 {
		t.Errorf("best ask = %v/%v, want 0.55/75", update.Ask, *update.AskSize)
	}
	if update.TimestampMs != 1700000000000 {
		t.Errorf("timestamp = %d, want unchanged", update.TimestampMs)
	}
}

func TestParseBookMessageEmptySidesYieldNaN(t *testing.T) {
	t.Parallel()

	msg := types.WSBookMessage{AssetID: "tok-1", Timestamp: "1700000000000"}
	update, err := ParseBookMessage(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !math.IsNaN(update.Bid) || !math.IsNaN(update.Ask) {
		t.Errorf("expected NaN sentinels for empty book, got %+v", update)
	}
	if update.BidSize != nil || update.AskSize != nil {
		t.Errorf("expected nil size pointers, got %+v", update)
	}
}

func TestParsePriceChangeRawOverwrite(t *testing.T) {
	t.Parallel()

	msg := types.WSPriceChangeMessage{
		Timestamp: "1700000000000",
		PriceChanges: []types.WSPriceChangeLevel{
			{AssetID: "tok-1", BestBid: "0.30", BestAsk: "0.32"},
			{AssetID: "tok-2", BestBid: "0.70", BestAsk: "0.72"},
		},
	}

	updates, err := ParsePriceChangeMessage(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("len(updates) = %d, want 2", len(updates))
	}
	if updates[0].TokenID != "tok-1" || updates[0].Bid != 0.30 || updates[0].Ask != 0.32 {
		t.Errorf("unexpected update[0]: %+v", updates[0])
	}
	if updates[0].BidSize != nil || updates[0].AskSize != nil {
		t.Errorf("price_change carries no sizes, got %+v", updates[0])
	}
}

func TestParseTimestampNormalizesSeconds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want int64
	}{
		{"1700000000", 1700000000000},   // seconds -> ms
		{"1700000000000", 1700000000000}, // already ms
		{"", 0},
	}
	for _, tc := range cases {
		got, err := parseTimestampMs(tc.raw)
		if err != nil {
			t.Fatalf("parseTimestampMs(%q) error: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Errorf("parseTimestampMs(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}
