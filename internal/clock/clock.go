// Package clock provides the monotonic coarse millisecond time source used
// by every other core subsystem. The reactor, breaker, and health-check
// engine read time only through NowMs, which is what lets tests drive them
// deterministically through SetFake/Advance. The detectors' elapse
// measurement and netutil's socket deadlines use the wall clock
// (time.Now) directly and are not affected by the fake clock.
package clock

import (
	"sync/atomic"
	"time"
)

// anchor pins the process-wide reference point for the monotonic counter;
// it is read once at package init and never changes: a fixed reference
// plus an elapsed offset, rather than repeatedly calling time.Now and
// risking a wall-clock step.
var anchor = time.Now()

// fakeEnabled and fakeMs back the test hook. They are process-wide by
// design — the hook exists only to make time-driven tests deterministic.
var (
	fakeEnabled atomic.Bool
	fakeMs      atomic.Int64
)

// NowMs returns the current monotonic coarse millisecond counter. It is
// immune to NTP wall-clock steps because it is derived from time.Since,
// which uses the runtime's monotonic clock reading when available.
func NowMs() int64 {
	if fakeEnabled.Load() {
		return fakeMs.Load()
	}
	return int64(time.Since(anchor) / time.Millisecond)
}

// EnableFake switches NowMs to the manually-advanced counter, starting at
// startMs. Intended for tests only.
func EnableFake(startMs int64) {
	fakeMs.Store(startMs)
	fakeEnabled.Store(true)
}

// DisableFake reverts NowMs to the real monotonic clock.
func DisableFake() {
	fakeEnabled.Store(false)
}

// Advance moves the fake clock forward by deltaMs. Panics if the fake clock
// is not enabled, since advancing the real clock makes no sense.
func Advance(deltaMs int64) int64 {
	if !fakeEnabled.Load() {
		panic("clock: Advance called without EnableFake")
	}
	return fakeMs.Add(deltaMs)
}

// SetFake sets the fake clock to an absolute value. Panics if the fake
// clock is not enabled.
func SetFake(ms int64) {
	if !fakeEnabled.Load() {
		panic("clock: SetFake called without EnableFake")
	}
	fakeMs.Store(ms)
}
