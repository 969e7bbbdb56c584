package connector

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// Connector is a public-data client for a single exchange.
type Connector interface {
	// ID returns the exchange id (e.g. "binance").
	ID() string

	// Capabilities reports which public endpoints the venue supports.
	Capabilities(ctx context.Context) (Capabilities, error)

	// Markets lists the venue's markets.
	Markets(ctx context.Context) ([]Market, error)

	// FetchOrderBook returns the current book, at most limit levels per side.
	FetchOrderBook(ctx context.Context, symbol string, limit int, params map[string]string) (OrderBook, error)

	// FetchTrades returns trades at or after since (epoch millis), oldest first.
	FetchTrades(ctx context.Context, symbol string, since int64) ([]Trade, error)

	// Milliseconds returns the venue's current time in epoch millis.
	Milliseconds(ctx context.Context) (int64, error)
}

// Factory creates an independent Connector per call. Capture tasks each take
// their own so no client state is shared across concurrent tasks.
type Factory func(exchangeID string) (Connector, error)

// Capabilities are the venue's public feature flags.
type Capabilities struct {
	PublicAPI      bool `json:"publicAPI"`
	FetchOrderBook bool `json:"fetchOrderBook"`
	FetchTrades    bool `json:"fetchTrades"`
}

// CanCapture reports whether both the book and the trade tape are reachable.
func (c Capabilities) CanCapture() bool {
	return c.PublicAPI && c.FetchOrderBook && c.FetchTrades
}

// Market is a venue market listing.
type Market struct {
	Symbol string `json:"symbol"`
	Base   string `json:"base"`
	Quote  string `json:"quote"`
	Active *bool  `json:"active,omitempty"`
}

// WellFormed reports whether the market has both legs and a unified symbol.
func (m Market) WellFormed() bool {
	return m.Base != "" && m.Quote != "" && strings.Contains(m.Symbol, "/")
}

// Level is a [price, amount] pair as sent by the venue.
type Level [2]decimal.Decimal

// Price returns the level price.
func (l Level) Price() decimal.Decimal { return l[0] }

// Amount returns the level amount.
func (l Level) Amount() decimal.Decimal { return l[1] }

// OrderBook is a venue book, bids best first, asks best first.
type OrderBook struct {
	Bids []Level `json:"bids"`
	Asks []Level `json:"asks"`
}

// Fee is the optional fee attached to a trade.
type Fee struct {
	Cost     decimal.NullDecimal `json:"cost"`
	Currency string              `json:"currency,omitempty"`
}

// Trade is a venue trade.
type Trade struct {
	ID        string              `json:"id"`
	Timestamp int64               `json:"timestamp"`
	Side      string              `json:"side"`
	Price     decimal.NullDecimal `json:"price"`
	Amount    decimal.NullDecimal `json:"amount"`
	Fee       *Fee                `json:"fee,omitempty"`
}
