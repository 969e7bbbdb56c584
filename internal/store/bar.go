package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/rickgao/bookdata/internal/aggregate"
	"github.com/rickgao/bookdata/internal/model"
)

// tradeWindowSQL aggregates [start, end) in one pass. Open and close are the
// first and last trades by (ts, trade_id).
const tradeWindowSQL = `
	SELECT count(*),
	       count(*) FILTER (WHERE side = 'B'),
	       count(*) FILTER (WHERE side = 'S'),
	       (array_agg(price ORDER BY ts, trade_id))[1],
	       max(price),
	       min(price),
	       (array_agg(price ORDER BY ts DESC, trade_id DESC))[1],
	       coalesce(sum(amount), 0),
	       coalesce(sum(amount) FILTER (WHERE side = 'B'), 0),
	       coalesce(sum(amount) FILTER (WHERE side = 'S'), 0)
	  FROM trade
	 WHERE exchange_market_id = $1 AND ts >= $2 AND ts < $3`

// BarMarkets returns enabled markets that have ingested trades.
func (s *Store) BarMarkets(ctx context.Context) ([]int32, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT exchange_market_id
		  FROM exchange_market
		 WHERE NOT disabled AND trade_cursor IS NOT NULL
		 ORDER BY exchange_market_id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int32])
}

// InBarTx runs fn in one transaction.
func (s *Store) InBarTx(ctx context.Context, fn func(aggregate.BarTx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&barTx{tx: tx})
	})
}

type barTx struct {
	tx pgx.Tx
}

func (b *barTx) BarState(ctx context.Context, marketID int32) (aggregate.BarState, error) {
	var (
		st        aggregate.BarState
		lastBar   pgtype.Timestamptz
		lastClose pgtype.Numeric
	)
	err := b.tx.QueryRow(ctx, `
		SELECT coalesce(em.trade_cursor, 0),
		       coalesce((SELECT min(t.ts) FROM trade t WHERE t.exchange_market_id = em.exchange_market_id), 0),
		       last.ts,
		       last.close
		  FROM exchange_market em
		  LEFT JOIN LATERAL (
		        SELECT ts, close FROM trade1m
		         WHERE exchange_market_id = em.exchange_market_id
		         ORDER BY ts DESC
		         LIMIT 1
		       ) last ON true
		 WHERE em.exchange_market_id = $1`,
		marketID,
	).Scan(&st.Cursor, &st.FirstTrade, &lastBar, &lastClose)
	if err != nil {
		return st, err
	}

	if lastBar.Valid {
		st.HasBar = true
		st.LastBar = lastBar.Time.UTC()
		if st.LastClose, err = fromNumeric(lastClose); err != nil {
			return st, fmt.Errorf("last close: %w", err)
		}
	}
	return st, nil
}

func (b *barTx) TradeWindow(ctx context.Context, marketID int32, start, end time.Time) (model.Window, error) {
	var (
		w   model.Window
		num [7]pgtype.Numeric
	)
	err := b.tx.QueryRow(ctx, tradeWindowSQL, marketID, start.UnixMilli(), end.UnixMilli()).Scan(
		&w.TradeCount, &w.BuyCount, &w.SellCount,
		&num[0], &num[1], &num[2], &num[3],
		&num[4], &num[5], &num[6],
	)
	if err != nil {
		return model.Window{}, err
	}

	dst := [7]*decimal.Decimal{&w.Open, &w.High, &w.Low, &w.Close, &w.Volume, &w.BuyVolume, &w.SellVolume}
	for i, d := range dst {
		if *d, err = fromNumeric(num[i]); err != nil {
			return model.Window{}, err
		}
	}
	return w, nil
}

func (b *barTx) InsertBar(ctx context.Context, bar model.Bar) error {
	_, err := b.tx.Exec(ctx, `
		INSERT INTO trade1m (exchange_market_id, ts, open, high, low, close,
		                     volume, buy_volume, sell_volume,
		                     trade_count, buy_count, sell_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (exchange_market_id, ts) DO NOTHING`,
		bar.MarketID, bar.TS.UTC(),
		numeric(bar.Open), numeric(bar.High), numeric(bar.Low), numeric(bar.Close),
		numeric(bar.Volume), numeric(bar.BuyVolume), numeric(bar.SellVolume),
		bar.TradeCount, bar.BuyCount, bar.SellCount,
	)
	return err
}
