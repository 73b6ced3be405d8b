package reactor

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polaris-contrib/polaris-go-core/internal/clock"
	"github.com/polaris-contrib/polaris-go-core/internal/model"
)

func TestSubmitRunsOnceViaRunOnce(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)

	var ran atomic.Bool
	r.Submit(model.Task{Run: func() { ran.Store(true) }})

	require.NoError(t, r.RunOnce())
	assert.True(t, ran.Load())

	r.Stop()
	require.NoError(t, r.Close())
}

func TestSubmitOrderingSingleGoroutine(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)
	defer func() {
		r.Stop()
		_ = r.Close()
	}()

	var mu sync.Mutex
	var order []int
	for i := 0; i < 10; i++ {
		i := i
		r.Submit(model.Task{Run: func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}})
	}

	require.NoError(t, r.RunOnce())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 10)
	for i := 0; i < 10; i++ {
		assert.Equal(t, i, order[i])
	}
}

func TestTimingTaskFiresAndReschedules(t *testing.T) {
	clock.EnableFake(0)
	defer clock.DisableFake()

	r, err := New(nil)
	require.NoError(t, err)
	defer func() {
		r.Stop()
		_ = r.Close()
	}()

	var fireCount atomic.Int32
	task := &fakeTimingTask{
		interval: 5,
		run:      func() { fireCount.Add(1) },
		next: func(now int64) int64 {
			if fireCount.Load() >= 2 {
				return 0
			}
			return now + 5
		},
	}

	_, err = r.AddTimingTask(task)
	require.NoError(t, err)

	clock.Advance(5)
	require.NoError(t, r.RunOnce())
	assert.Equal(t, int32(1), fireCount.Load())
}

func TestCancelTimingTaskPreventsFiring(t *testing.T) {
	clock.EnableFake(0)
	defer clock.DisableFake()

	r, err := New(nil)
	require.NoError(t, err)
	defer func() {
		r.Stop()
		_ = r.Close()
	}()

	var fired atomic.Bool
	task := &fakeTimingTask{
		interval: 5,
		run:      func() { fired.Store(true) },
		next:     func(now int64) int64 { return 0 },
	}
	handle, err := r.AddTimingTask(task)
	require.NoError(t, err)
	require.NoError(t, r.CancelTimingTask(handle))

	clock.Advance(5)
	require.NoError(t, r.RunOnce())
	assert.False(t, fired.Load())
}

func TestStopAcknowledgedBeforeClose(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)
	done := make(chan struct{})
	go func() {
		_ = r.Run()
		close(done)
	}()

	r.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reactor did not stop within timeout")
	}
	require.NoError(t, r.Close())
}

func TestCloseWithoutStopPanics(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)
	defer func() {
		r.Stop()
		_ = r.Close()
	}()

	assert.Panics(t, func() { _ = r.Close() })
}

type fakeTimingTask struct {
	interval int64
	run      func()
	next     func(now int64) int64
}

func (f *fakeTimingTask) IntervalMs() int64           { return f.interval }
func (f *fakeTimingTask) Run()                        { f.run() }
func (f *fakeTimingTask) NextRunTime(now int64) int64 { return f.next(now) }
