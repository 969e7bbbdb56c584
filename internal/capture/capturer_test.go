package capture

import (
	"context"
	"testing"
	"time"

	"github.com/rickgao/bookdata/internal/connector"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tick = time.Date(2024, 5, 17, 12, 5, 0, 0, time.UTC)

func level(price, amount string) connector.Level {
	return connector.Level{decimal.RequireFromString(price), decimal.RequireFromString(amount)}
}

func TestCaptureIdempotent(t *testing.T) {
	store := newBookStore()
	conn := &fakeConn{id: "kucoin", book: connector.OrderBook{
		Bids: []connector.Level{level("0.00002134", "1500"), level("0.00002133", "12.5")},
		Asks: []connector.Level{level("0.00002135", "700")},
	}}
	c := NewBookCapturer(store, nil)
	policy := connector.PolicyFor("kucoin")

	inserted, err := c.Capture(context.Background(), conn, "BTC/USDT", policy, btc, tick)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = c.Capture(context.Background(), conn, "BTC/USDT", policy, btc, tick)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, 1, conn.bookHits, "existing snapshot skips the fetch")
	assert.Equal(t, []int{100}, conn.limits)

	ladder := store.snaps[tick]
	require.Len(t, ladder.Bids, 2)
	assert.Equal(t, "0.00002134", ladder.Bids[0].Price.String(), "prices stay exact")
	assert.Equal(t, "12.5", ladder.Bids[1].Amount.String())
}

func TestCaptureLosesRace(t *testing.T) {
	store := newBookStore()
	store.race = true
	conn := &fakeConn{id: "binance"}

	inserted, err := NewBookCapturer(store, nil).Capture(context.Background(), conn, "BTC/USDT", connector.DefaultPolicy(), btc, tick)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Empty(t, store.snaps)
}

func TestCaptureFetchError(t *testing.T) {
	store := newBookStore()
	conn := &fakeConn{id: "binance", err: errGateway}

	_, err := NewBookCapturer(store, nil).Capture(context.Background(), conn, "BTC/USDT", connector.DefaultPolicy(), btc, tick)
	require.ErrorIs(t, err, errGateway)
	assert.Empty(t, store.snaps, "no header without a book")
}
