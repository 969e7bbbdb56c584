package aggregate

import (
	"context"
	"testing"

	"github.com/rickgao/bookdata/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLadder = model.Ladder{
	Bids: []model.BookLine{line("99", "1")},
	Asks: []model.BookLine{line("101", "1")},
}

func TestDepthWorkerRunOnce(t *testing.T) {
	s := newMemStore()
	for id := int64(1); id <= 3; id++ {
		s.addSnap(id, testLadder)
	}
	w := NewDepthWorker(s, DepthConfig{Batch: 2}, nil, nil)
	ctx := context.Background()

	n, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, s.stats[1], len(Percentages))
	assert.Len(t, s.stats[2], len(Percentages))
	assert.True(t, s.snaps[1].Aggregated)
	_, hasLines := s.ladders[1]
	assert.False(t, hasLines, "lines of an aggregated snapshot are deleted")

	n, err = w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "empty claim means nothing to do")
}

func TestDepthWorkerClaimExclusivity(t *testing.T) {
	s := newMemStore()
	for id := int64(1); id <= 4; id++ {
		s.addSnap(id, testLadder)
	}
	a := NewDepthWorker(s, DepthConfig{Batch: 2}, nil, nil)
	b := NewDepthWorker(s, DepthConfig{Batch: 10}, nil, nil)
	ctx := context.Background()

	var bDone int
	s.onClaim = func() {
		// Runs while a holds its claim: b must skip the locked rows.
		n, err := b.RunOnce(ctx)
		require.NoError(t, err)
		bDone = n
	}

	aDone, err := a.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, aDone)
	assert.Equal(t, 2, bDone)
	for id := int64(1); id <= 4; id++ {
		assert.True(t, s.snaps[id].Aggregated, "snapshot %d", id)
		assert.Len(t, s.stats[id], len(Percentages), "snapshot %d aggregated exactly once", id)
	}
}

func TestDepthWorkerRollback(t *testing.T) {
	s := newMemStore()
	s.addSnap(1, testLadder)
	s.failOn = "0.5"
	w := NewDepthWorker(s, DepthConfig{}, nil, nil)

	_, err := w.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replace stat 0.5")
	assert.False(t, s.snaps[1].Aggregated)
	assert.Empty(t, s.stats[1])
	assert.False(t, s.locked[1], "claim released on rollback")
}

func TestDepthWorkerServerFunctions(t *testing.T) {
	s := newMemStore()
	s.addSnap(1, testLadder)
	w := NewDepthWorker(s, DepthConfig{ServerFunctions: true}, nil, nil)

	n, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.JSONEq(t, `{"pct":"100"}`, string(s.stats[1]["100"]))
}
