package market

import (
	"sort"
	"sync"
	"time"
)

// catalogState holds the thread-safe target set.
type catalogState struct {
	mu sync.RWMutex

	// Targets indexed by market id, grouped by exchange.
	byExchange map[string]map[int32]Target

	// Last successful load timestamp.
	lastSyncAt time.Time
}

func newState() *catalogState {
	return &catalogState{
		byExchange: make(map[string]map[int32]Target),
	}
}

// replaceExchange swaps in the full target set of one exchange and reports
// how many targets were added and removed.
func (s *catalogState) replaceExchange(exchange string, targets []Target) (added, removed int) {
	next := make(map[int32]Target, len(targets))
	for _, t := range targets {
		next[t.Market.ID] = t
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.byExchange[exchange]
	for id := range next {
		if _, ok := prev[id]; !ok {
			added++
		}
	}
	for id := range prev {
		if _, ok := next[id]; !ok {
			removed++
		}
	}
	s.byExchange[exchange] = next
	s.lastSyncAt = time.Now()
	return added, removed
}

func (s *catalogState) targetList() []Target {
	s.mu.RLock()
	out := make([]Target, 0, s.sizeLocked())
	for _, targets := range s.byExchange {
		for _, t := range targets {
			out = append(out, t)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Market, out[j].Market
		if a.Exchange != b.Exchange {
			return a.Exchange < b.Exchange
		}
		return a.Symbol() < b.Symbol()
	})
	return out
}

func (s *catalogState) exchangeList() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.byExchange))
	for ex := range s.byExchange {
		out = append(out, ex)
	}
	sort.Strings(out)
	return out
}

func (s *catalogState) size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sizeLocked()
}

func (s *catalogState) sizeLocked() int {
	n := 0
	for _, targets := range s.byExchange {
		n += len(targets)
	}
	return n
}
