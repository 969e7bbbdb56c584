package gateway

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rickgao/bookdata/internal/connector"
)

// exchangeResponse from GET /exchanges/{id}
type exchangeResponse struct {
	ID  string                 `json:"id"`
	Has connector.Capabilities `json:"has"`
}

// timeResponse from GET /exchanges/{id}/time
type timeResponse struct {
	Time int64 `json:"time"`
}

// Exchange is a connector.Connector for one venue behind the gateway.
type Exchange struct {
	id     string
	client *Client
}

var _ connector.Connector = (*Exchange)(nil)

// NewExchange binds a client to one exchange id.
func NewExchange(client *Client, id string) *Exchange {
	return &Exchange{id: id, client: client}
}

// Factory returns a connector.Factory producing a fresh Exchange per call.
// The underlying Client is shared; it holds no per-venue state.
func Factory(client *Client) connector.Factory {
	return func(exchangeID string) (connector.Connector, error) {
		if exchangeID == "" {
			return nil, fmt.Errorf("exchange id is required")
		}
		return NewExchange(client, exchangeID), nil
	}
}

// ID returns the exchange id.
func (e *Exchange) ID() string {
	return e.id
}

func (e *Exchange) path(suffix string) string {
	return "/exchanges/" + url.PathEscape(e.id) + suffix
}

// Capabilities fetches the venue's feature flags.
func (e *Exchange) Capabilities(ctx context.Context) (connector.Capabilities, error) {
	var resp exchangeResponse
	if err := e.client.get(ctx, e.path(""), nil, &resp); err != nil {
		return connector.Capabilities{}, connector.Classify(e.id, "describe", err)
	}
	return resp.Has, nil
}

// Markets lists the venue's markets.
func (e *Exchange) Markets(ctx context.Context) ([]connector.Market, error) {
	var resp []connector.Market
	if err := e.client.get(ctx, e.path("/markets"), nil, &resp); err != nil {
		return nil, connector.Classify(e.id, "load_markets", err)
	}
	return resp, nil
}

// FetchOrderBook fetches the venue book for symbol.
func (e *Exchange) FetchOrderBook(ctx context.Context, symbol string, limit int, params map[string]string) (connector.OrderBook, error) {
	query := url.Values{}
	query.Set("symbol", symbol)
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	for k, v := range params {
		query.Set(k, v)
	}

	var resp connector.OrderBook
	if err := e.client.get(ctx, e.path("/orderbook"), query, &resp); err != nil {
		return connector.OrderBook{}, connector.Classify(e.id, "fetch_order_book", fmt.Errorf("%s: %w", symbol, err))
	}
	return resp, nil
}

// FetchTrades fetches one page of trades at or after since.
func (e *Exchange) FetchTrades(ctx context.Context, symbol string, since int64) ([]connector.Trade, error) {
	query := url.Values{}
	query.Set("symbol", symbol)
	if since > 0 {
		query.Set("since", strconv.FormatInt(since, 10))
	}

	var resp []connector.Trade
	if err := e.client.get(ctx, e.path("/trades"), query, &resp); err != nil {
		return nil, connector.Classify(e.id, "fetch_trades", fmt.Errorf("%s: %w", symbol, err))
	}
	return resp, nil
}

// Milliseconds fetches the venue clock.
func (e *Exchange) Milliseconds(ctx context.Context) (int64, error) {
	var resp timeResponse
	if err := e.client.get(ctx, e.path("/time"), nil, &resp); err != nil {
		return 0, connector.Classify(e.id, "time", err)
	}
	return resp.Time, nil
}

// Exchanges lists the exchange ids the gateway serves.
func (c *Client) Exchanges(ctx context.Context) ([]string, error) {
	var resp []string
	if err := c.get(ctx, "/exchanges", nil, &resp); err != nil {
		return nil, fmt.Errorf("list exchanges: %w", err)
	}
	return resp, nil
}
