package capture

import "github.com/rickgao/bookdata/internal/connector"

// collapseAdjacent drops a trade when the next trade carries the same
// external id, so each run of equal ids keeps its last element. Only
// neighbours are compared; equal ids further apart are kept. Ids compare
// literally, so a run of trades without an id also collapses to its last.
func collapseAdjacent(trades []connector.Trade) []connector.Trade {
	out := make([]connector.Trade, 0, len(trades))
	for i, t := range trades {
		if i+1 < len(trades) && trades[i+1].ID == t.ID {
			continue
		}
		out = append(out, t)
	}
	return out
}

// trimThrough drops every trade up to and including the first one whose id
// is lastID. Without a match, or with an empty lastID, trades is returned
// unchanged.
func trimThrough(trades []connector.Trade, lastID string) []connector.Trade {
	if lastID == "" {
		return trades
	}
	for i, t := range trades {
		if t.ID == lastID {
			return trades[i+1:]
		}
	}
	return trades
}
