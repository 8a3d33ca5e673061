package exchange

import (
	"log/slog"
	"testing"
	"time"

	"polymarket-arb-engine/pkg/types"
)

func testConnection(out chan types.TopOfBookUpdate) *Connection {
	return NewConnection("wss://example.invalid/market", ConnectionTimings{
		PingInterval:  30 * time.Second,
		ReadTimeout:   10 * time.Second,
		ReconnectBase: time.Millisecond,
		ReconnectMax:  10 * time.Millisecond,
	}, out, slog.Default())
}

func TestSubscribeUnsubscribeTracksRoster(t *testing.T) {
	t.Parallel()
	out := make(chan types.TopOfBookUpdate, 8)
	c := testConnection(out)

	c.Subscribe([]string{"tok1", "tok2"})
	if c.RosterSize() != 2 {
		t.Fatalf("roster size = %d, want 2", c.RosterSize())
	}

	c.Unsubscribe([]string{"tok1"})
	if c.RosterSize() != 1 {
		t.Fatalf("roster size = %d, want 1", c.RosterSize())
	}
}

func TestDispatchSingleBookObject(t *testing.T) {
	t.Parallel()
	out := make(chan types.TopOfBookUpdate, 8)
	c := testConnection(out)

	msg := []byte(`{"event_type":"book","asset_id":"tok1","timestamp":"1700000000000",
		"bids":[{"price":"0.40","size":"100"}],"asks":[{"price":"0.45","size":"50"}]}`)
	c.dispatchMessage(msg)

	select {
	case u := <-out:
		if u.TokenID != "tok1" || u.Bid != 0.40 || u.Ask != 0.45 {
			t.Errorf("unexpected update: %+v", u)
		}
	default:
		t.Fatal("expected a forwarded update")
	}
}

func TestDispatchArrayOfEvents(t *testing.T) {
	t.Parallel()
	out := make(chan types.TopOfBookUpdate, 8)
	c := testConnection(out)

	msg := []byte(`[
		{"event_type":"book","asset_id":"tok1","timestamp":"1","bids":[{"price":"0.1","size":"1"}],"asks":[{"price":"0.2","size":"1"}]},
		{"event_type":"book","asset_id":"tok2","timestamp":"1","bids":[{"price":"0.3","size":"1"}],"asks":[{"price":"0.4","size":"1"}]}
	]`)
	c.dispatchMessage(msg)

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case u := <-out:
			seen[u.TokenID] = true
		default:
			t.Fatalf("expected 2 updates, got %d", i)
		}
	}
	if !seen["tok1"] || !seen["tok2"] {
		t.Errorf("expected updates for both tokens, got %v", seen)
	}
}

func TestDispatchPriceChangeEvent(t *testing.T) {
	t.Parallel()
	out := make(chan types.TopOfBookUpdate, 8)
	c := testConnection(out)

	msg := []byte(`{"event_type":"price_change","market":"m1","timestamp":"1",
		"price_changes":[{"asset_id":"tok1","best_bid":"0.33","best_ask":"0.37"}]}`)
	c.dispatchMessage(msg)

	select {
	case u := <-out:
		if u.TokenID != "tok1" || u.Bid != 0.33 || u.Ask != 0.37 {
			t.Errorf("unexpected update: %+v", u)
		}
	default:
		t.Fatal("expected a forwarded update")
	}
}

func TestDispatchIgnoresPingPong(t *testing.T) {
	t.Parallel()
	out := make(chan types.TopOfBookUpdate, 8)
	c := testConnection(out)

	c.dispatchMessage([]byte("PING"))
	c.dispatchMessage([]byte("PONG"))

	select {
	case u := <-out:
		t.Fatalf("expected no update, got %+v", u)
	default:
	}
}

func TestDispatchIgnoresUnknownEventType(t *testing.T) {
	t.Parallel()
	out := make(chan types.TopOfBookUpdate, 8)
	c := testConnection(out)

	c.dispatchMessage([]byte(`{"event_type":"tick_size_change"}`))

	select {
	case u := <-out:
		t.Fatalf("expected no update, got %+v", u)
	default:
	}
}
