package capture

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rickgao/bookdata/internal/config"
	"github.com/rickgao/bookdata/internal/connector"
	"github.com/rickgao/bookdata/internal/connector/gateway"
	"github.com/rickgao/bookdata/internal/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerModes(t *testing.T) {
	tests := []struct {
		mode       config.Target
		wantBook   bool
		wantTrades bool
	}{
		{config.TargetAll, true, true},
		{config.TargetBook, true, false},
		{config.TargetTrade, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			conn := &fakeConn{id: "binance", now: 1 << 50, pages: func(since int64) []connector.Trade { return nil }}
			factory := func(string) (connector.Connector, error) { return conn, nil }
			books, trades := newBookStore(), &tradeStore{}

			r := NewRunner(factory, NewBookCapturer(books, nil), NewTradeFetcher(trades, FetchConfig{}, nil), tt.mode, nil)
			target := market.Target{Market: btc, Symbol: "BTC/USDT", Policy: connector.DefaultPolicy()}
			require.NoError(t, r.Run(context.Background(), target, tick))

			assert.Equal(t, tt.wantBook, conn.bookHits == 1)
			assert.Equal(t, tt.wantTrades, len(conn.sinces) > 0)
		})
	}
}

func TestRunnerBookFailureSkipsTrades(t *testing.T) {
	conn := &fakeConn{id: "binance", err: connector.Classify("binance", "fetch_order_book", &statusErr{code: 404})}
	factory := func(string) (connector.Connector, error) { return conn, nil }

	r := NewRunner(factory, NewBookCapturer(newBookStore(), nil), NewTradeFetcher(&tradeStore{}, FetchConfig{}, nil), config.TargetAll, nil)
	err := r.Run(context.Background(), market.Target{Market: btc, Symbol: "BTC/USDT"}, tick)

	require.Error(t, err)
	assert.Equal(t, connector.Fatal, connector.KindOf(err))
	assert.Empty(t, conn.sinces)
}

func TestRunnerFactoryError(t *testing.T) {
	factory := func(string) (connector.Connector, error) { return nil, errors.New("no such exchange") }
	r := NewRunner(factory, nil, nil, config.TargetAll, nil)

	err := r.Run(context.Background(), market.Target{Market: btc}, tick)
	var cerr *connector.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "binance", cerr.Exchange)
}

type statusErr struct{ code int }

func (e *statusErr) Error() string { return "status" }
func (e *statusErr) Status() int   { return e.code }

func TestRunnerRateLimitFailsTaskWithoutRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	factory := gateway.Factory(gateway.NewClient(server.URL, ""))
	books := newBookStore()
	r := NewRunner(factory, NewBookCapturer(books, nil), NewTradeFetcher(&tradeStore{}, FetchConfig{}, nil), config.TargetAll, nil)

	err := r.Run(context.Background(), market.Target{Market: btc, Symbol: "BTC/USDT", Policy: connector.DefaultPolicy()}, tick)

	require.Error(t, err)
	assert.Equal(t, connector.Transient, connector.KindOf(err))
	assert.Equal(t, int32(1), calls.Load(), "one request per call; the next tick retries")
}
