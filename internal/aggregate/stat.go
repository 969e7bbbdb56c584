package aggregate

import (
	"encoding/json"

	"github.com/rickgao/bookdata/internal/model"
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
)

// imbalancePlaces is the rounding applied to the bid/ask imbalance ratio.
const imbalancePlaces = 8

// DepthStat summarizes the part of a book within pct percent of the mid.
type DepthStat struct {
	Pct         decimal.Decimal `json:"pct"`
	Mid         decimal.Decimal `json:"mid"`
	Lower       decimal.Decimal `json:"lower"`
	Upper       decimal.Decimal `json:"upper"`
	BestBid     decimal.Decimal `json:"bestBid"`
	BestAsk     decimal.Decimal `json:"bestAsk"`
	Spread      decimal.Decimal `json:"spread"`
	BidLevels   int             `json:"bidLevels"`
	AskLevels   int             `json:"askLevels"`
	BidAmount   decimal.Decimal `json:"bidAmount"`
	AskAmount   decimal.Decimal `json:"askAmount"`
	BidNotional decimal.Decimal `json:"bidNotional"`
	AskNotional decimal.Decimal `json:"askNotional"`
	Imbalance   decimal.Decimal `json:"imbalance"`
}

// ComputeDepthStat derives the depth statistic of a ladder for pct.
//
// The mid is the average of the best bid and ask, or the single best price
// when one side is empty. Bids at or above mid*(1-pct/100) and asks at or
// below mid*(1+pct/100) are counted. An empty ladder yields all zeros.
func ComputeDepthStat(ladder model.Ladder, pct decimal.Decimal) DepthStat {
	st := DepthStat{Pct: pct}

	hasBid, hasAsk := len(ladder.Bids) > 0, len(ladder.Asks) > 0
	if hasBid {
		st.BestBid = ladder.Bids[0].Price
	}
	if hasAsk {
		st.BestAsk = ladder.Asks[0].Price
	}

	switch {
	case hasBid && hasAsk:
		st.Mid = st.BestBid.Add(st.BestAsk).Div(two)
		st.Spread = st.BestAsk.Sub(st.BestBid)
	case hasBid:
		st.Mid = st.BestBid
	case hasAsk:
		st.Mid = st.BestAsk
	default:
		return st
	}

	band := st.Mid.Mul(pct).Div(hundred)
	st.Lower = st.Mid.Sub(band)
	st.Upper = st.Mid.Add(band)

	for _, l := range ladder.Bids {
		if l.Price.LessThan(st.Lower) {
			continue
		}
		st.BidLevels++
		st.BidAmount = st.BidAmount.Add(l.Amount)
		st.BidNotional = st.BidNotional.Add(l.Price.Mul(l.Amount))
	}
	for _, l := range ladder.Asks {
		if l.Price.GreaterThan(st.Upper) {
			continue
		}
		st.AskLevels++
		st.AskAmount = st.AskAmount.Add(l.Amount)
		st.AskNotional = st.AskNotional.Add(l.Price.Mul(l.Amount))
	}

	if total := st.BidAmount.Add(st.AskAmount); !total.IsZero() {
		st.Imbalance = st.BidAmount.Sub(st.AskAmount).Div(total).Round(imbalancePlaces)
	}

	return st
}

// JSON encodes the statistic for the book_snap_stat.data column.
func (s DepthStat) JSON() ([]byte, error) {
	return json.Marshal(s)
}
