package workerspool

import (
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gomlx/collectives/pkg/support/xsync"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_Go(t *testing.T) {
	pool := New(4)
	var count atomic.Int32
	wg := xsync.NewErrorWaitGroup()
	for range 20 {
		pool.Go(wg, func() error {
			count.Add(1)
			runtime.Gosched()
			return nil
		})
	}
	require.NoError(t, wg.Wait())
	assert.Equal(t, int32(20), count.Load())

	want := errors.New("task failed")
	pool.Go(wg, func() error { return want })
	require.ErrorIs(t, wg.Wait(), want)
}

func TestPool_Inline(t *testing.T) {
	// No parallelism: tasks run inline, before Go returns.
	pool := New(0)
	assert.False(t, pool.IsEnabled())
	var count atomic.Int32
	wg := xsync.NewErrorWaitGroup()
	pool.Go(wg, func() error { count.Add(1); return nil })
	assert.Equal(t, int32(1), count.Load())
	require.NoError(t, wg.Wait())
}

func TestPool_Asleep(t *testing.T) {
	// A single slot pool (2 goroutines with the ratio): a worker that sleeps waiting for
	// nested work must free up capacity, otherwise this would deadlock.
	pool := New(1)
	done := xsync.NewLatch()
	wg := xsync.NewErrorWaitGroup()
	for range 2 {
		pool.Go(wg, func() error {
			pool.WorkerIsAsleep()
			defer pool.WorkerRestarted()
			inner := xsync.NewErrorWaitGroup()
			pool.Go(inner, func() error { return nil })
			return inner.Wait()
		})
	}
	go func() {
		_ = wg.Wait()
		done.Trigger()
	}()
	select {
	case <-done.WaitChan():
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for nested tasks")
	}
}
