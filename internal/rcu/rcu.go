// Package rcu implements a read-copy-update concurrent map: a primary
// table published for reads under a brief read lock and a dirty table writers append to
// under a mutex, swapped into primary at quiescence, with retired values
// freed once no reader's announced epoch can still observe them. The
// two-table-plus-epoch shape generalizes a sync.Map-of-per-category-state
// pattern (a narrow mutex around the slow path) plus a periodic
// liveness-driven compaction pass into an explicit reader-epoch GC with
// retirement-timestamp accounting, rather than relying on GC-assisted weak
// references.
package rcu

import (
	"sync"
	"sync/atomic"
)

// Destroyer is implemented by values that need explicit cleanup when
// retired. Values that don't implement it are simply dropped.
type Destroyer interface {
	Destroy()
}

type dirtyEntry[V any] struct {
	value     V
	tombstone bool
}

type retiredEntry[V any] struct {
	value       V
	retiredAtMs int64
}

// Map is a concurrent key -> value map optimized for many readers and
// infrequent writers. The zero value is not usable; construct
// with New.
type Map[K comparable, V any] struct {
	published atomicTable[K, V]

	mu      sync.Mutex // guards dirty and retired; held only by writers
	dirty   map[K]dirtyEntry[V]
	retired []retiredEntry[V]

	// dirtyCount mirrors len(dirty), updated under mu but read without it.
	// Get uses it to skip locking entirely once the dirty table has drained
	// back to empty (the common steady state between Publish calls), while
	// still consulting dirty whenever a write might be pending.
	dirtyCount atomic.Int64

	// publishThreshold forces an implicit Publish once len(dirty) reaches
	// it, so a burst of writers without an explicit Publish caller still
	// bounds the dirty table's size. 0 disables the implicit threshold.
	publishThreshold int
}

// atomicTable is the published, read-mostly snapshot. Readers take the
// current map value under a brief RLock; writers replace the whole map by
// value so no reader ever observes a partial update.
type atomicTable[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

func (t *atomicTable[K, V]) load() map[K]V {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.m
}

func (t *atomicTable[K, V]) store(m map[K]V) {
	t.mu.Lock()
	t.m = m
	t.mu.Unlock()
}

// New constructs an empty Map. publishThreshold is the number of buffered
// writes that forces an immediate publish on the next mutating call instead
// of waiting for an explicit Publish (0 disables the implicit threshold).
func New[K comparable, V any](publishThreshold int) *Map[K, V] {
	m := &Map[K, V]{dirty: make(map[K]dirtyEntry[V]), publishThreshold: publishThreshold}
	m.published.store(make(map[K]V))
	return m
}

// Get returns the value at k and whether it was present. The dirty table
// always wins over the published table when it holds an entry for k —
// including a tombstone from a pending Delete — since it is strictly more
// recent. Once the dirty table has drained back to empty (the common
// steady state between Publish calls) it takes only the published table's
// read lock; it takes the writer mutex only while a write is pending.
func (m *Map[K, V]) Get(k K) (V, bool) {
	if m.dirtyCount.Load() == 0 {
		v, ok := m.published.load()[k]
		return v, ok
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.dirty[k]; ok {
		if e.tombstone {
			var zero V
			return zero, false
		}
		return e.value, true
	}
	v, ok := m.published.load()[k]
	return v, ok
}

// Update installs v at k, retiring any previously-visible value for
// deferred reclamation.
func (m *Map[K, V]) Update(k K, v V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retirePreviousLocked(k)
	m.dirty[k] = dirtyEntry[V]{value: v}
	m.dirtyCount.Store(int64(len(m.dirty)))
	m.maybePublishLocked()
}

// Delete marks k's entry for deferred reclamation.
func (m *Map[K, V]) Delete(k K) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retirePreviousLocked(k)
	m.dirty[k] = dirtyEntry[V]{tombstone: true}
	m.dirtyCount.Store(int64(len(m.dirty)))
	m.maybePublishLocked()
}

// CreateOrGet returns the existing value at k, or under the writer lock
// calls factory exactly once to produce and install a new value. factory
// is called at most once per admitted insertion — a race loser's factory
// output is discarded — because the presence check and the factory call
// happen under the same mu critical section, so two concurrent
// CreateOrGet(k, ...) calls serialize and the second observes the first's
// insertion before running its own factory.
func (m *Map[K, V]) CreateOrGet(k K, factory func() V) V {
	if v, ok := m.Get(k); ok {
		return v
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.dirty[k]; ok && !e.tombstone {
		return e.value
	}
	if v, ok := m.published.load()[k]; ok {
		return v
	}
	v := factory()
	m.dirty[k] = dirtyEntry[V]{value: v}
	m.dirtyCount.Store(int64(len(m.dirty)))
	m.maybePublishLocked()
	return v
}

// GetAllValuesWithRef returns a snapshot of all live values, merging the
// published table with not-yet-published dirty writes. If V has reference-
// counted semantics (e.g. model.ServiceData.Retain/Release), callers are
// expected to Retain the returned values themselves; the map does not
// assume every V implements that convention.
func (m *Map[K, V]) GetAllValuesWithRef() []V {
	tbl := m.published.load()
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]V, 0, len(tbl)+len(m.dirty))
	for k, v := range tbl {
		if e, ok := m.dirty[k]; ok {
			if !e.tombstone {
				out = append(out, e.value)
			}
			continue
		}
		out = append(out, v)
	}
	for k, e := range m.dirty {
		if _, inPublished := tbl[k]; inPublished {
			continue
		}
		if !e.tombstone {
			out = append(out, e.value)
		}
	}
	return out
}

// Keys returns a snapshot of every live key, merging the published table
// with not-yet-published dirty writes the same way GetAllValuesWithRef
// does. Used by callers that need to drive a sweep over every tracked
// entry (e.g. the circuit-breaker chain's periodic CleanStatus pass).
func (m *Map[K, V]) Keys() []K {
	tbl := m.published.load()
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]K, 0, len(tbl)+len(m.dirty))
	for k := range tbl {
		if e, ok := m.dirty[k]; ok {
			if !e.tombstone {
				out = append(out, k)
			}
			continue
		}
		out = append(out, k)
	}
	for k, e := range m.dirty {
		if _, inPublished := tbl[k]; inPublished {
			continue
		}
		if !e.tombstone {
			out = append(out, k)
		}
	}
	return out
}

// Publish swaps the dirty table into the published table, stamping any
// values it retires along the way at nowMs so CheckGc can later reclaim
// them. Safe to call from any thread; a no-op when dirty is empty.
func (m *Map[K, V]) Publish(nowMs int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishLocked(nowMs)
}

func (m *Map[K, V]) maybePublishLocked() {
	if m.publishThreshold > 0 && len(m.dirty) >= m.publishThreshold {
		m.publishLocked(0)
	}
}

func (m *Map[K, V]) publishLocked(nowMs int64) {
	if len(m.dirty) == 0 {
		return
	}
	next := make(map[K]V, len(m.published.load())+len(m.dirty))
	for k, v := range m.published.load() {
		next[k] = v
	}
	for k, e := range m.dirty {
		if e.tombstone {
			delete(next, k)
			continue
		}
		next[k] = e.value
	}
	m.published.store(next)
	m.dirty = make(map[K]dirtyEntry[V])
	m.dirtyCount.Store(0)
	for i := range m.retired {
		if m.retired[i].retiredAtMs == 0 {
			m.retired[i].retiredAtMs = nowMs
		}
	}
}

// retirePreviousLocked moves k's currently-visible value (dirty, else
// published) into the retirement list with a zero timestamp; the timestamp
// is filled in by the next publishLocked/StampRetirements call, since the
// actual epoch-ms clock reading belongs to the caller driving the sweep,
// not to this package. Must be called with mu held.
func (m *Map[K, V]) retirePreviousLocked(k K) {
	if e, ok := m.dirty[k]; ok {
		if !e.tombstone {
			m.retired = append(m.retired, retiredEntry[V]{value: e.value})
		}
		return
	}
	if v, ok := m.published.load()[k]; ok {
		m.retired = append(m.retired, retiredEntry[V]{value: v})
	}
}

// StampRetirements assigns nowMs to any retired entries still carrying a
// zero timestamp. Useful when a caller wants retirement times attributed to
// a single sweep's clock reading rather than to whatever Publish call
// happened to run first.
func (m *Map[K, V]) StampRetirements(nowMs int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.retired {
		if m.retired[i].retiredAtMs == 0 {
			m.retired[i].retiredAtMs = nowMs
		}
	}
}

// CheckGc reclaims retired entries whose retirement time is older than
// minReaderTimeMs, the minimum active-reader epoch. Values
// implementing Destroyer have Destroy called; others are simply dropped.
// Entries still carrying a zero (unstamped) retirement time are never
// reclaimed by this call — stamp them first via Publish or
// StampRetirements.
func (m *Map[K, V]) CheckGc(minReaderTimeMs int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.retired[:0]
	for _, r := range m.retired {
		if r.retiredAtMs != 0 && r.retiredAtMs < minReaderTimeMs {
			if d, ok := any(r.value).(Destroyer); ok {
				d.Destroy()
			}
			continue
		}
		kept = append(kept, r)
	}
	m.retired = kept
}

// Len returns the number of live keys visible via Get, i.e. the size of a
// GetAllValuesWithRef snapshot without allocating one.
func (m *Map[K, V]) Len() int {
	tbl := m.published.load()
	m.mu.Lock()
	defer m.mu.Unlock()
	count := len(tbl)
	for k, e := range m.dirty {
		_, inPublished := tbl[k]
		switch {
		case e.tombstone && inPublished:
			count--
		case !e.tombstone && !inPublished:
			count++
		}
	}
	return count
}
