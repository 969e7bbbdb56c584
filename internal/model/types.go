package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Identity Types
// -----------------------------------------------------------------------------

// Exchange is a trading venue, keyed by its connector id (e.g. "binance").
type Exchange struct {
	ID     int32
	Symbol string
}

// Token is an asset symbol (e.g. "BTC").
type Token struct {
	ID     int32
	Symbol string
}

// ExchangeMarket is the (exchange, base, quote) triple plus its trade cursor.
type ExchangeMarket struct {
	ID         int32
	ExchangeID int32
	BaseID     int32
	QuoteID    int32
	Exchange   string
	Base       string
	Quote      string
	Cursor     Cursor
	Disabled   bool
}

// Symbol returns the unified "BASE/QUOTE" market symbol.
func (m ExchangeMarket) Symbol() string {
	return m.Base + "/" + m.Quote
}

// String renders the market the way it appears in logs: "binance(BTC/USDT)".
func (m ExchangeMarket) String() string {
	return m.Exchange + "(" + m.Symbol() + ")"
}

// Cursor is the durable trade ingestion high-water mark of a market.
type Cursor struct {
	Since  int64  // Epoch millis of the last ingested trade, 0 if none
	LastID string // External id of the last ingested trade, "" if unknown
}

// IsZero reports whether nothing has been ingested yet.
func (c Cursor) IsZero() bool {
	return c.Since == 0
}

// -----------------------------------------------------------------------------
// Order Book Types
// -----------------------------------------------------------------------------

// BookLine is a single price level of a captured book.
type BookLine struct {
	Price  decimal.Decimal
	Amount decimal.Decimal
}

// Ladder holds both sides of a captured book.
// Bids are best (highest) first, asks best (lowest) first.
type Ladder struct {
	Bids []BookLine
	Asks []BookLine
}

// BookSnap is the header row of one captured book.
type BookSnap struct {
	ID         int64
	MarketID   int32
	TS         time.Time // Capture tick
	Aggregated bool
}

// BookSnapStat is one derived summary per (snapshot, depth code).
type BookSnapStat struct {
	SnapID int64
	Code   string
	Data   []byte // JSON
}

// -----------------------------------------------------------------------------
// Trade Types
// -----------------------------------------------------------------------------

// Side is the stored two-valued trade side tag.
type Side string

const (
	SideBuy  Side = "B"
	SideSell Side = "S"
)

// SideOf normalizes a connector side ("buy"/"sell") into a stored tag.
// Anything other than "buy" is recorded as a sell.
func SideOf(side string) Side {
	if side == "buy" {
		return SideBuy
	}
	return SideSell
}

// Trade is an append-only trade tape row.
type Trade struct {
	MarketID int32
	TS       int64 // Epoch millis
	Side     Side
	Price    decimal.Decimal
	Amount   decimal.Decimal
	Fee      decimal.NullDecimal
	EID      string // External id, "" if the venue reports none
}

// -----------------------------------------------------------------------------
// Bar Types
// -----------------------------------------------------------------------------

// Window is the aggregate of all trades of one market in [start, start+width).
type Window struct {
	Open       decimal.Decimal
	High       decimal.Decimal
	Low        decimal.Decimal
	Close      decimal.Decimal
	Volume     decimal.Decimal
	BuyVolume  decimal.Decimal
	SellVolume decimal.Decimal
	TradeCount int
	BuyCount   int
	SellCount  int
}

// Empty reports whether the window saw no trades.
func (w Window) Empty() bool {
	return w.TradeCount == 0
}

// Bar is a one-minute OHLCV row.
type Bar struct {
	MarketID int32
	TS       time.Time // Minute start (UTC)
	Window
}
