package capture

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rickgao/bookdata/internal/connector"
	"github.com/rickgao/bookdata/internal/model"
	"github.com/shopspring/decimal"
)

type fakeConn struct {
	connector.Connector
	id     string
	now    int64
	pages  func(since int64) []connector.Trade
	book   connector.OrderBook
	err    error

	mu       sync.Mutex
	sinces   []int64
	bookHits int
	limits   []int
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Milliseconds(ctx context.Context) (int64, error) { return c.now, nil }

func (c *fakeConn) FetchTrades(ctx context.Context, symbol string, since int64) ([]connector.Trade, error) {
	c.mu.Lock()
	c.sinces = append(c.sinces, since)
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.pages(since), nil
}

func (c *fakeConn) FetchOrderBook(ctx context.Context, symbol string, limit int, params map[string]string) (connector.OrderBook, error) {
	c.mu.Lock()
	c.bookHits++
	c.limits = append(c.limits, limit)
	c.mu.Unlock()
	if c.err != nil {
		return connector.OrderBook{}, c.err
	}
	return c.book, nil
}

type tradeStore struct {
	mu      sync.Mutex
	cursor  model.Cursor
	rows    []model.Trade
	failErr error
}

func (s *tradeStore) LoadCursor(ctx context.Context, marketID int32) (model.Cursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor, nil
}

func (s *tradeStore) InsertTrades(ctx context.Context, marketID int32, trades []model.Trade, cursor model.Cursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.rows = append(s.rows, trades...)
	if cursor.Since >= s.cursor.Since {
		s.cursor = cursor
	}
	return nil
}

type bookStore struct {
	mu    sync.Mutex
	snaps map[time.Time]model.Ladder
	race  bool
}

func newBookStore() *bookStore {
	return &bookStore{snaps: make(map[time.Time]model.Ladder)}
}

func (s *bookStore) SnapExists(ctx context.Context, marketID int32, tick time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.snaps[tick]
	return ok, nil
}

func (s *bookStore) InsertSnap(ctx context.Context, marketID int32, tick time.Time, ladder model.Ladder) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.race {
		// Another writer won between the check and the insert.
		return false, nil
	}
	if _, ok := s.snaps[tick]; ok {
		return false, nil
	}
	s.snaps[tick] = ladder
	return true, nil
}

func tr(id string, ts int64) connector.Trade {
	return connector.Trade{
		ID:        id,
		Timestamp: ts,
		Side:      "buy",
		Price:     decimal.NewNullDecimal(decimal.NewFromInt(100)),
		Amount:    decimal.NewNullDecimal(decimal.NewFromInt(1)),
	}
}

func ids(trades []connector.Trade) []string {
	out := make([]string, len(trades))
	for i, t := range trades {
		out[i] = t.ID
	}
	return out
}

func rowIDs(rows []model.Trade) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.EID
	}
	return out
}

var errGateway = errors.New("gateway unreachable")
