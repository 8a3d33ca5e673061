// Package pricetable implements the dense, append-only level-1 quote store
// (C1 in the design). Slots are allocated during a structure rebuild and
// never removed or renumbered during steady state; the table has exactly
// one writer, the engine task.
package pricetable

import (
	"time"

	"polymarket-arb-engine/pkg/types"
)

// Table is a dense sequence of price slots plus a token-id -> slot-index map.
// Not safe for concurrent writers; readers outside the owning engine task
// are not permitted, matching the single-writer design in spec §4.1/§5.
type Table struct {
	slots   []types.PriceSlot
	byToken map[string]int
}

// New returns an empty table.
func New() *Table {
	return &Table{byToken: make(map[string]int)}
}

// Reset clears the table, discarding all slots and the token index. Called at
// the start of update_market_structure.
func (t *Table) Reset() {
	t.slots = t.slots[:0]
	t.byToken = make(map[string]int)
}

// AllocSlot is idempotent: returns the existing slot index for token, or
// appends a fresh sentinel-valued slot and returns its index.
func (t *Table) AllocSlot(tokenID string) int {
	if idx, ok := t.byToken[tokenID]; ok {
		return idx
	}
	idx := len(t.slots)
	t.slots = append(t.slots, types.NewPriceSlot())
	t.byToken[tokenID] = idx
	return idx
}

// Lookup returns the slot index for a token, if one has been allocated.
func (t *Table) Lookup(tokenID string) (int, bool) {
	idx, ok := t.byToken[tokenID]
	return idx, ok
}

// Get returns a copy of the slot at idx. Zero-copy in the sense that it never
// touches any other slot.
func (t *Table) Get(idx int) types.PriceSlot {
	return t.slots[idx]
}

// Update writes bid/ask/timestamp into slot idx. Sizes are preserved when the
// corresponding pointer is nil.
func (t *Table) Update(idx int, bid, ask float64, bidSize, askSize *float64, tsMs int64) {
	s := &t.slots[idx]
	s.BestBid = bid
	s.BestAsk = ask
	if bidSize != nil {
		s.BestBidSize = *bidSize
	}
	if askSize != nil {
		s.BestAskSize = *askSize
	}
	s.TimestampMs = tsMs
}

// Len returns the number of allocated slots.
func (t *Table) Len() int {
	return len(t.slots)
}

// TokenCount returns the number of distinct tokens indexed.
func (t *Table) TokenCount() int {
	return len(t.byToken)
}

// NowMs returns wall-clock epoch milliseconds. The engine uses it both for
// signal/order timestamps and for the evaluators' cooldown checks, so
// cooldowns are measured on the wall clock, not on a monotonic clock.
func NowMs() int64 {
	return time.Now().UnixMilli()
}
