// Package validation implements the executor's shared mutable state (§4.6):
// the hot-path atomics (balance, trading-enabled, submission lock,
// last-executed timestamp) and the rarely-updated minted-asset cache.
//
// Hot-path fields are atomics so the executor task never blocks behind a
// host-driven balance refresh or trading-enabled toggle; the minted-asset
// cache is mutex-guarded since it is a map and updated far less often.
package validation

import (
	"math"
	"sync"
	"sync/atomic"

	"polymarket-arb-engine/pkg/types"
)

// State holds everything should_skip and the submission pipeline read or
// mutate, per spec §4.6/§5.
type State struct {
	balanceBits      atomic.Uint64
	tradingEnabled   atomic.Bool
	isSubmitting     atomic.Bool
	lastExecutedAtMs atomic.Int64

	mintedMu sync.Mutex
	minted   map[string]map[string]float64 // group_key -> token_id -> amount
}

// NewState returns a zero-balance, trading-disabled state. The host is
// expected to call SetBalance and SetTradingEnabled during init-executor.
func NewState() *State {
	return &State{minted: make(map[string]map[string]float64)}
}

// Balance returns the current USDC balance.
func (s *State) Balance() float64 {
	return math.Float64frombits(s.balanceBits.Load())
}

// SetBalance overwrites the balance (update-balance).
func (s *State) SetBalance(v float64) {
	s.balanceBits.Store(math.Float64bits(v))
}

// TryDeductBalance attempts to subtract amount via a compare-and-swap loop.
// Returns false, leaving the balance unchanged, if the balance is
// insufficient at every observed instant.
func (s *State) TryDeductBalance(amount float64) bool {
	for {
		old := s.balanceBits.Load()
		balance := math.Float64frombits(old)
		if balance < amount {
			return false
		}
		next := math.Float64bits(balance - amount)
		if s.balanceBits.CompareAndSwap(old, next) {
			return true
		}
	}
}

// RestoreBalance adds amount back via additive compensation — never by
// storing a remembered prior value, since a host-driven balance refresh may
// have landed concurrently.
func (s *State) RestoreBalance(amount float64) {
	for {
		old := s.balanceBits.Load()
		balance := math.Float64frombits(old)
		next := math.Float64bits(balance + amount)
		if s.balanceBits.CompareAndSwap(old, next) {
			return
		}
	}
}

// TradingEnabled reports whether trading is currently permitted.
func (s *State) TradingEnabled() bool {
	return s.tradingEnabled.Load()
}

// SetTradingEnabled stores the trading-enabled flag (set-trading-enabled).
func (s *State) SetTradingEnabled(enabled bool) {
	s.tradingEnabled.Store(enabled)
}

// TryBeginSubmission attempts the false->true transition that serializes
// overlapping batch submissions. Returns false if a submission is already
// in flight.
func (s *State) TryBeginSubmission() bool {
	return s.isSubmitting.CompareAndSwap(false, true)
}

// IsSubmitting reports the advisory submission-in-progress flag, used by the
// AlreadySubmitting should_skip gate ahead of the authoritative CAS.
func (s *State) IsSubmitting() bool {
	return s.isSubmitting.Load()
}

// EndSubmission releases the submission lock. Always called, on every exit
// path of the pipeline that successfully acquired it.
func (s *State) EndSubmission() {
	s.isSubmitting.Store(false)
}

// LastExecutedAtMs returns the wall-clock timestamp of the last executed
// batch, used by the CooldownActive should_skip gate.
func (s *State) LastExecutedAtMs() int64 {
	return s.lastExecutedAtMs.Load()
}

// StampExecuted records nowMs as the last-executed timestamp.
func (s *State) StampExecuted(nowMs int64) {
	s.lastExecutedAtMs.Store(nowMs)
}

// SetMintedAssets overwrites a group's minted-asset map wholesale
// (update-minted-assets).
func (s *State) SetMintedAssets(groupKey string, entries []types.MintedAssetEntry) {
	m := make(map[string]float64, len(entries))
	for _, e := range entries {
		m[e.TokenID] = e.Amount
	}

	s.mintedMu.Lock()
	s.minted[groupKey] = m
	s.mintedMu.Unlock()
}

// MintedAmount returns the amount of tokenID minted within groupKey.
func (s *State) MintedAmount(groupKey, tokenID string) float64 {
	s.mintedMu.Lock()
	defer s.mintedMu.Unlock()
	return s.minted[groupKey][tokenID]
}

// HasSufficientMinted reports whether groupKey holds at least size units of
// tokenID, the InsufficientMintedAssets should_skip gate.
func (s *State) HasSufficientMinted(groupKey, tokenID string, size float64) bool {
	return s.MintedAmount(groupKey, tokenID) >= size
}

// DeductMinted subtracts size from the minted balance of tokenID within
// groupKey, called for each successful sell leg after a partial-success
// batch response.
func (s *State) DeductMinted(groupKey, tokenID string, size float64) {
	s.mintedMu.Lock()
	defer s.mintedMu.Unlock()
	if g, ok := s.minted[groupKey]; ok {
		g[tokenID] -= size
	}
}
