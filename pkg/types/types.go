// Package types defines shared data structures used across all packages.
//
// This package is the common vocabulary for the engine — price slots, market
// structure descriptors, signals, orders, and wire DTOs. It has no
// dependencies on internal packages, so it can be imported by any layer.
package types

import "math"

// ————————————————————————————————————————————————————————————————————————
// Core enums
// ————————————————————————————————————————————————————————————————————————

// Side represents the direction of an order leg.
type Side int

const (
	SideBuy  Side = 0
	SideSell Side = 1
)

func (s Side) String() string {
	if s == SideSell {
		return "SELL"
	}
	return "BUY"
}

// OrderType enumerates the lifecycle a placed order follows on the book.
type OrderType string

const (
	OrderTypeGTC OrderType = "GTC" // Good-Til-Cancelled
	OrderTypeGTD OrderType = "GTD" // Good-Til-Date
	OrderTypeFOK OrderType = "FOK" // Fill-Or-Kill
	OrderTypeFAK OrderType = "FAK" // Fill-And-Kill
)

// MarketKind tags a market's payout condition.
type MarketKind string

const (
	KindRange MarketKind = "Range" // pays $1 iff value settles within [lower, upper)
	KindAbove MarketKind = "Above" // pays $1 iff value >= lower
	KindBelow MarketKind = "Below" // pays $1 iff value < upper
)

// StrategyTag identifies which of the three arbitrage formulae produced a signal.
type StrategyTag string

const (
	StrategyTriangleBuy           StrategyTag = "POLYMARKET_TRIANGLE_BUY"
	StrategyComplementBuy         StrategyTag = "POLYMARKET_COMPLEMENT_BUY"
	StrategySellParentBuyChildren StrategyTag = "SELL_PARENT_BUY_CHILDREN"
	StrategyBuyParentSellChildren StrategyTag = "BUY_PARENT_SELL_CHILDREN"
)

// SkipReason is the closed taxonomy of reasons the executor silently drops a signal.
type SkipReason string

const (
	SkipTradingDisabled           SkipReason = "TradingDisabled"
	SkipAlreadySubmitting         SkipReason = "AlreadySubmitting"
	SkipCooldownActive            SkipReason = "CooldownActive"
	SkipNoCandidates              SkipReason = "NoCandidates"
	SkipInsufficientOrderbookSize SkipReason = "InsufficientOrderbookSize"
	SkipPnlBelowThreshold         SkipReason = "PnlBelowThreshold"
	SkipInvalidSize               SkipReason = "InvalidSize"
	SkipInsufficientMintedAssets  SkipReason = "InsufficientMintedAssets"
	SkipInsufficientBalance       SkipReason = "InsufficientBalance"
)

// ————————————————————————————————————————————————————————————————————————
// Price Table (C1)
// ————————————————————————————————————————————————————————————————————————

// PriceSlot is one level-1 quote: 40 bytes, cache-friendly, append-only.
// Uninitialized slots carry NaN for BestBid/BestAsk.
type PriceSlot struct {
	BestBid     float64
	BestAsk     float64
	BestBidSize float64
	BestAskSize float64
	TimestampMs int64
}

// NewPriceSlot returns a fresh slot with sentinel NaN prices.
func NewPriceSlot() PriceSlot {
	return PriceSlot{BestBid: math.NaN(), BestAsk: math.NaN()}
}

// ————————————————————————————————————————————————————————————————————————
// Market structure (C2)
// ————————————————————————————————————————————————————————————————————————

// ParentDescriptor describes one "above-X" (or "below-X") parent market as
// pushed by the external market-structure source. Parents of a group must be
// supplied already sorted ascending by Lower; the builder does not re-sort.
type ParentDescriptor struct {
	ID         string
	Slug       string
	YesTokenID string
	NoTokenID  string
	Lower      *float64 // nil = open-ended
	Upper      *float64 // nil = open-ended
	Kind       MarketKind
	NegRisk    bool
}

// RangeChildDescriptor describes one range-child market: pays $1 iff the
// underlying settles within [Lower, Upper).
type RangeChildDescriptor struct {
	ID         string
	Slug       string
	YesTokenID string
	NoTokenID  string
	Lower      float64
	Upper      float64
	NegRisk    bool
}

// GroupDescriptor is the external input to update-market-structure: one named
// collection of parents and range children sharing an event key.
type GroupDescriptor struct {
	Key      string
	Parents  []ParentDescriptor
	Children []RangeChildDescriptor
}

// MarketMeta describes one binary market after it has been admitted into the
// Price Table (both legs have slots).
type MarketMeta struct {
	ID         string
	Slug       string
	YesTokenID string
	NoTokenID  string
	Lower      *float64
	Upper      *float64
	Kind       MarketKind
	NegRisk    bool
	YesSlot    int
	NoSlot     int
}

// LegRole names a token's function within a trio.
type LegRole string

const (
	LegParentLowerYes LegRole = "parent_lower_yes"
	LegParentUpperNo  LegRole = "parent_upper_no"
	LegRangeNo        LegRole = "range_no"
	LegParentLowerNo  LegRole = "parent_lower_no"
	LegRangeYes       LegRole = "range_yes"
	LegParentUpperYes LegRole = "parent_upper_yes"
)

// TokenRoleKind discriminates the TokenRole union.
type TokenRoleKind int

const (
	RoleTrioLeg TokenRoleKind = iota
	RoleRangeChild
	RoleParent
)

// TokenRole is the process-wide dispatch tag for a token (C3). A token may
// carry multiple roles, kept in a short slice (typically <= 5 entries).
type TokenRole struct {
	Kind      TokenRoleKind
	GroupKey  string
	TrioIndex int     // valid when Kind == RoleTrioLeg
	LegRole   LegRole // valid when Kind == RoleTrioLeg
	ChildID   string  // valid when Kind == RoleRangeChild
	ParentID  string  // valid when Kind == RoleParent
}

// ————————————————————————————————————————————————————————————————————————
// Signals (C5/C4 output)
// ————————————————————————————————————————————————————————————————————————

// LegQuote snapshots one leg of an arbitrage opportunity at emission time —
// enough to rebuild order candidates downstream without re-reading the table.
type LegQuote struct {
	TokenID       string
	Side          Side
	Price         float64 // ask for BUY legs, bid for SELL legs
	OrderbookSize float64 // 0 = unknown/unset
	NegRisk       bool
}

// ArbSignal is emitted by an evaluator when a strategy clears its thresholds.
type ArbSignal struct {
	Strategy    StrategyTag
	GroupKey    string
	TrioIndex   int
	ProfitAbs   float64
	ProfitBps   float64
	TotalAsk    float64 // triangle's precomputed total_ask; total_cost shortcut
	EmittedAtMs int64
	Legs        [3]LegQuote
}

// ————————————————————————————————————————————————————————————————————————
// Orders (C8)
// ————————————————————————————————————————————————————————————————————————

const (
	OrderExpiration    = "0"
	OrderNonce         = "0"
	OrderSignatureType = 2 // Gnosis-Safe-proxied signature
)

// OrderToSign is the internal pre-signing order.
type OrderToSign struct {
	Salt        string // decimal string, random in [0, epoch_ms)
	TokenID     string
	MakerAmount string // fixed-point 6-decimal USDC units, decimal string
	TakerAmount string
	Side        Side
	NegRisk     bool
	FeeRateBps  int
}

// SignedOrder is an OrderToSign plus the checksum-cased addresses and the
// hex EIP-712 signature produced by the Signer.
type SignedOrder struct {
	OrderToSign
	Maker     string
	Signer    string
	Taker     string
	Signature string
}

// OrderPostPayload is one item of the POST /orders batch body.
type OrderPostPayload struct {
	DeferExec bool            `json:"deferExec"`
	Order     SignedOrderWire `json:"order"`
	Owner     string          `json:"owner"`
	OrderType OrderType       `json:"orderType"`
}

// SignedOrderWire is the on-the-wire shape of a SignedOrder.
type SignedOrderWire struct {
	Salt          string `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Side          string `json:"side"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

// OrderResponse is one element of the POST /orders response array, in
// request order. Presence of OrderID means the leg was accepted.
type OrderResponse struct {
	OrderID  string `json:"orderID,omitempty"`
	Status   string `json:"status,omitempty"`
	ErrorMsg string `json:"errorMsg,omitempty"`
}

// ————————————————————————————————————————————————————————————————————————
// Engine hot-path input
// ————————————————————————————————————————————————————————————————————————

// TopOfBookUpdate is the normalized quote update fed to handle_top_of_book,
// regardless of whether it originated from a "book" or "price_change" frame.
type TopOfBookUpdate struct {
	TokenID     string
	Bid         float64
	Ask         float64
	BidSize     *float64 // nil = not provided, preserve existing
	AskSize     *float64
	TimestampMs int64
}

// ————————————————————————————————————————————————————————————————————————
// WebSocket wire DTOs
// ————————————————————————————————————————————————————————————————————————

// WSPriceLevel is a single bid/ask level as it arrives over the wire —
// strings, to preserve decimal precision.
type WSPriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// WSBookMessage is a full top-of-book-bearing snapshot. Bids ascending by
// price (best = last element); asks descending (best = last element).
type WSBookMessage struct {
	EventType      string         `json:"event_type"`
	Market         string         `json:"market"`
	AssetID        string         `json:"asset_id"`
	Timestamp      string         `json:"timestamp"`
	Bids           []WSPriceLevel `json:"bids"`
	Asks           []WSPriceLevel `json:"asks"`
	LastTradePrice string         `json:"last_trade_price,omitempty"`
}

// WSPriceChangeLevel carries a raw top-of-book overwrite for one asset.
type WSPriceChangeLevel struct {
	AssetID string `json:"asset_id"`
	BestBid string `json:"best_bid"`
	BestAsk string `json:"best_ask"`
}

// WSPriceChangeMessage is an incremental top-of-book update.
type WSPriceChangeMessage struct {
	EventType    string               `json:"event_type"`
	Market       string               `json:"market"`
	Timestamp    string               `json:"timestamp"`
	PriceChanges []WSPriceChangeLevel `json:"price_changes"`
}

// WSSubscribeFrame is the initial market-channel subscription message.
type WSSubscribeFrame struct {
	Type     string   `json:"type"`
	AssetIDs []string `json:"assets_ids"`
}

// ————————————————————————————————————————————————————————————————————————
// Host-facing callable surface (§6)
// ————————————————————————————————————————————————————————————————————————

// SocketStatus answers get-socket-status.
type SocketStatus struct {
	TotalConnections  int
	ActiveConnections int
	SubscribedTokens  int
	MessagesReceived  int64
	LastMessageAtMs   int64
}

// EngineStatus answers get-engine-status.
type EngineStatus struct {
	Groups        int
	Trios         int
	Slots         int
	IndexedTokens int
}

// EngineConfigUpdate is the partial-update payload for update-engine-config;
// nil fields are left unchanged.
type EngineConfigUpdate struct {
	MinProfitBps *float64
	MinProfitAbs *float64
	CooldownMs   *int64
}

// MintedAssetEntry is one row of an update-minted-assets call.
type MintedAssetEntry struct {
	TokenID string
	Amount  float64
}

// FailedOrder describes one rejected leg in a trade result.
type FailedOrder struct {
	TokenID  string
	Side     Side
	Price    float64
	ErrorMsg string
}

// SignalEcho is the portion of the originating signal echoed back in a trade result.
type SignalEcho struct {
	GroupKey    string
	Strategy    StrategyTag
	ProfitAbs   float64
	EmittedAtMs int64
}

// BatchOrderRequest is one host-supplied order for place-batch-orders (§6).
// Unlike a signal leg, the caller picks the exact price and size directly —
// no slippage adjustment is applied.
type BatchOrderRequest struct {
	TokenID string
	Side    Side
	Price   float64
	Size    float64
	NegRisk bool
}

// TradeResult is the payload delivered to the registered on-trade-result callback.
type TradeResult struct {
	Success      bool
	OrderIDs     []string
	FailedOrders []FailedOrder
	TotalCost    float64
	ExpectedPnL  float64
	LatencyUs    int64
	Signal       SignalEcho
}
