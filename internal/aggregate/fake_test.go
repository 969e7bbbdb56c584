package aggregate

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rickgao/bookdata/internal/model"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory DepthStore and BarStore with row locks that
// behave like FOR UPDATE SKIP LOCKED.
type memStore struct {
	mu      sync.Mutex
	snaps   map[int64]*model.BookSnap
	ladders map[int64]model.Ladder
	stats   map[int64]map[string][]byte
	locked  map[int64]bool

	// onClaim, when set, runs after a claim while the claimed rows are locked.
	onClaim func()
	failOn  string

	cursors map[int32]int64
	trades  map[int32][]model.Trade
	bars    map[int32][]model.Bar
}

func newMemStore() *memStore {
	return &memStore{
		snaps:   make(map[int64]*model.BookSnap),
		ladders: make(map[int64]model.Ladder),
		stats:   make(map[int64]map[string][]byte),
		locked:  make(map[int64]bool),
		cursors: make(map[int32]int64),
		trades:  make(map[int32][]model.Trade),
		bars:    make(map[int32][]model.Bar),
	}
}

func (s *memStore) addSnap(id int64, ladder model.Ladder) {
	s.snaps[id] = &model.BookSnap{ID: id, MarketID: 1, TS: time.Unix(id*300, 0).UTC()}
	s.ladders[id] = ladder
}

type memDepthTx struct {
	s       *memStore
	claimed []int64
	stats   []model.BookSnapStat
	marked  []int64
}

func (s *memStore) InDepthTx(ctx context.Context, fn func(DepthTx) error) error {
	tx := &memDepthTx{s: s}
	err := fn(tx)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range tx.claimed {
		delete(s.locked, id)
	}
	if err != nil {
		return err
	}
	for _, st := range tx.stats {
		if s.stats[st.SnapID] == nil {
			s.stats[st.SnapID] = make(map[string][]byte)
		}
		s.stats[st.SnapID][st.Code] = st.Data
	}
	for _, id := range tx.marked {
		s.snaps[id].Aggregated = true
		delete(s.ladders, id)
	}
	return nil
}

func (tx *memDepthTx) ClaimSnaps(ctx context.Context, limit int) ([]model.BookSnap, error) {
	s := tx.s
	s.mu.Lock()
	ids := make([]int64, 0, len(s.snaps))
	for id, snap := range s.snaps {
		if !snap.Aggregated && !s.locked[id] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]model.BookSnap, 0, len(ids))
	for _, id := range ids {
		s.locked[id] = true
		out = append(out, *s.snaps[id])
	}
	tx.claimed = ids
	hook := s.onClaim
	s.onClaim = nil
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return out, nil
}

func (tx *memDepthTx) Ladder(ctx context.Context, snapID int64) (model.Ladder, error) {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	return tx.s.ladders[snapID], nil
}

func (tx *memDepthTx) ServerDepthStat(ctx context.Context, snapID int64, pct decimal.Decimal) ([]byte, error) {
	return []byte(`{"pct":"` + pct.String() + `"}`), nil
}

func (tx *memDepthTx) ReplaceStat(ctx context.Context, stat model.BookSnapStat) error {
	if tx.s.failOn == stat.Code {
		return errors.New("constraint violation")
	}
	tx.stats = append(tx.stats, stat)
	return nil
}

func (tx *memDepthTx) MarkAggregated(ctx context.Context, snapIDs []int64) error {
	tx.marked = append(tx.marked, snapIDs...)
	return nil
}

type memBarTx struct {
	s    *memStore
	bars []model.Bar
}

func (s *memStore) BarMarkets(ctx context.Context) ([]int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int32
	for id := range s.cursors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *memStore) InBarTx(ctx context.Context, fn func(BarTx) error) error {
	tx := &memBarTx{s: s}
	if err := fn(tx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range tx.bars {
		s.bars[b.MarketID] = append(s.bars[b.MarketID], b)
	}
	return nil
}

func (tx *memBarTx) BarState(ctx context.Context, marketID int32) (BarState, error) {
	s := tx.s
	s.mu.Lock()
	defer s.mu.Unlock()
	st := BarState{Cursor: s.cursors[marketID]}
	for _, tr := range s.trades[marketID] {
		if st.FirstTrade == 0 || tr.TS < st.FirstTrade {
			st.FirstTrade = tr.TS
		}
	}
	if bars := s.bars[marketID]; len(bars) > 0 {
		last := bars[len(bars)-1]
		st.HasBar, st.LastBar, st.LastClose = true, last.TS, last.Close
	}
	return st, nil
}

func (tx *memBarTx) TradeWindow(ctx context.Context, marketID int32, start, end time.Time) (model.Window, error) {
	s := tx.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var w model.Window
	for _, tr := range s.trades[marketID] {
		if tr.TS < start.UnixMilli() || tr.TS >= end.UnixMilli() {
			continue
		}
		if w.TradeCount == 0 {
			w.Open, w.High, w.Low = tr.Price, tr.Price, tr.Price
		}
		w.High = decimal.Max(w.High, tr.Price)
		w.Low = decimal.Min(w.Low, tr.Price)
		w.Close = tr.Price
		w.Volume = w.Volume.Add(tr.Amount)
		w.TradeCount++
		if tr.Side == model.SideBuy {
			w.BuyVolume = w.BuyVolume.Add(tr.Amount)
			w.BuyCount++
		} else {
			w.SellVolume = w.SellVolume.Add(tr.Amount)
			w.SellCount++
		}
	}
	return w, nil
}

func (tx *memBarTx) InsertBar(ctx context.Context, bar model.Bar) error {
	tx.bars = append(tx.bars, bar)
	return nil
}
