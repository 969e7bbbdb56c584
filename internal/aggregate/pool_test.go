package aggregate

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rickgao/bookdata/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunner struct {
	calls atomic.Int32
	fail  bool
	boom  bool
}

func (r *countingRunner) Name() string { return "counting" }

func (r *countingRunner) RunOnce(ctx context.Context) (int, error) {
	r.calls.Add(1)
	switch {
	case r.boom:
		panic("boom")
	case r.fail:
		return 0, errors.New("db down")
	}
	return 1, nil
}

func TestPoolRunsUntilCancelled(t *testing.T) {
	m := metrics.New()
	ok, failing, panicking := &countingRunner{}, &countingRunner{fail: true}, &countingRunner{boom: true}

	p := NewPool(m, nil)
	p.Add(ok, time.Millisecond)
	p.Add(failing, time.Millisecond)
	p.Add(panicking, time.Millisecond)
	require.Equal(t, 3, p.Size())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, p.Run(ctx))

	assert.Greater(t, ok.calls.Load(), int32(1))
	assert.Greater(t, failing.calls.Load(), int32(1), "errors are not fatal")
	assert.Greater(t, panicking.calls.Load(), int32(1), "panics are not fatal")
	series, err := testutil.GatherAndCount(m.Registry(), "bookdata_aggregate_worker_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series, "both failures count under one worker label")
}
