package rcu

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapUpdateGetPublish(t *testing.T) {
	m := New[string, int](0)

	_, ok := m.Get("a")
	assert.False(t, ok)

	m.Update("a", 1)
	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	m.Publish(100)
	v, ok = m.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestMapDeleteRemovesFromPublished(t *testing.T) {
	m := New[string, int](0)
	m.Update("a", 1)
	m.Publish(1)

	m.Delete("a")
	_, ok := m.Get("a")
	assert.False(t, ok, "delete must be visible immediately, even before publish")

	m.Publish(2)
	_, ok = m.Get("a")
	assert.False(t, ok)
}

func TestCreateOrGetCallsFactoryOnce(t *testing.T) {
	m := New[string, int](0)
	var calls int
	var mu sync.Mutex

	factory := func() int {
		mu.Lock()
		calls++
		mu.Unlock()
		return 42
	}

	var wg sync.WaitGroup
	results := make([]int, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = m.CreateOrGet("k", factory)
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls, "factory must run exactly once across a race")
	for _, r := range results {
		assert.Equal(t, 42, r)
	}
}

func TestCheckGcReclaimsOnlyBeforeMinReaderTime(t *testing.T) {
	m := New[string, int](0)
	m.Update("a", 1)
	m.Publish(1)

	m.Update("a", 2) // retires the value 1
	m.Publish(10)    // stamps the retirement at 10

	m.CheckGc(5) // min reader epoch still before the retirement stamp
	m.mu.Lock()
	remaining := len(m.retired)
	m.mu.Unlock()
	assert.Equal(t, 1, remaining, "must not reclaim while a reader epoch could still observe it")

	m.CheckGc(11)
	m.mu.Lock()
	remaining = len(m.retired)
	m.mu.Unlock()
	assert.Equal(t, 0, remaining)
}

func TestCheckGcCallsDestroyer(t *testing.T) {
	m := New[string, *destroyable](0)
	d := &destroyable{}
	m.Update("a", d)
	m.Publish(1)
	m.Update("a", &destroyable{})
	m.Publish(10)

	m.CheckGc(11)
	assert.True(t, d.destroyed)
}

type destroyable struct{ destroyed bool }

func (d *destroyable) Destroy() { d.destroyed = true }

func TestGetAllValuesWithRefMergesDirtyAndPublished(t *testing.T) {
	m := New[string, int](0)
	m.Update("a", 1)
	m.Publish(1)
	m.Update("b", 2) // left in dirty, not yet published

	values := m.GetAllValuesWithRef()
	assert.ElementsMatch(t, []int{1, 2}, values)
}

func TestEpochTrackerMinReaderTime(t *testing.T) {
	tr := NewEpochTracker()
	assert.Equal(t, int64(100), tr.MinReaderTime(100))

	tok1 := tr.Enter(10)
	tok2 := tr.Enter(20)
	assert.Equal(t, int64(10), tr.MinReaderTime(100))

	tr.Exit(tok1)
	assert.Equal(t, int64(20), tr.MinReaderTime(100))

	tr.Exit(tok2)
	assert.Equal(t, int64(100), tr.MinReaderTime(100))
}
