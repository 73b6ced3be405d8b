package model

import "sync/atomic"

// CircuitState is the breaker's state machine value.
type CircuitState int32

const (
	// Closed is the initial, healthy state: all calls are allowed.
	Closed CircuitState = iota
	// Open rejects calls; telemetry is still observed but does not drive
	// transitions until the sleep window elapses.
	Open
	// HalfOpen admits a bounded number of probe calls to test recovery.
	HalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}

// ErrorCountStatus is the mutable per-instance-per-strategy breaker record.
// All fields are updated with atomic read-modify-write so concurrent
// reporters never block each other; state transitions are CAS-guarded on
// the expected prior state.
type ErrorCountStatus struct {
	state         atomic.Int32 // CircuitState
	errorCount    atomic.Int64
	successCount  atomic.Int64
	lastUpdateMs  atomic.Int64
	createdMs     int64
	instanceFound atomic.Bool // owner predicate cache, refreshed by CleanStatus
}

// NewErrorCountStatus creates a Closed status record stamped at nowMs.
func NewErrorCountStatus(nowMs int64) *ErrorCountStatus {
	s := &ErrorCountStatus{createdMs: nowMs}
	s.state.Store(int32(Closed))
	s.lastUpdateMs.Store(nowMs)
	s.instanceFound.Store(true)
	return s
}

// State returns the current state atomically.
func (s *ErrorCountStatus) State() CircuitState { return CircuitState(s.state.Load()) }

// CompareAndSwapState performs the CAS guarding every transition.
func (s *ErrorCountStatus) CompareAndSwapState(from, to CircuitState) bool {
	return s.state.CompareAndSwap(int32(from), int32(to))
}

// ErrorCount, SuccessCount, LastUpdateMs are read accessors for atomic
// counters; the matching Add*/Reset* mutators are used by the strategy
// implementations in internal/breaker.
func (s *ErrorCountStatus) ErrorCount() int64   { return s.errorCount.Load() }
func (s *ErrorCountStatus) SuccessCount() int64 { return s.successCount.Load() }
func (s *ErrorCountStatus) LastUpdateMs() int64 { return s.lastUpdateMs.Load() }

func (s *ErrorCountStatus) AddErrorCount(delta int64) int64   { return s.errorCount.Add(delta) }
func (s *ErrorCountStatus) AddSuccessCount(delta int64) int64 { return s.successCount.Add(delta) }
func (s *ErrorCountStatus) ResetCounters()                    { s.errorCount.Store(0); s.successCount.Store(0) }
func (s *ErrorCountStatus) StampLastUpdate(nowMs int64)       { s.lastUpdateMs.Store(nowMs) }

// MarkInstanceFound/InstanceFound track the "does the owning instance still
// exist" predicate consulted by CleanStatus.
func (s *ErrorCountStatus) MarkInstanceFound(found bool) { s.instanceFound.Store(found) }
func (s *ErrorCountStatus) InstanceFound() bool          { return s.instanceFound.Load() }

// StrategyConfig holds the tunables for the error-count and error-rate
// strategies.
type StrategyConfig struct {
	Name string

	// error-count strategy
	ContinuousErrorThreshold int64

	// shared half-open admission knobs
	RequestCountAfterHalfOpen int64
	SuccessCountAfterHalfOpen int64
	HalfOpenSleepWindowMs     int64
	MetricExpiredTimeMs       int64

	// error-rate strategy knobs
	ErrorRateThreshold     float64 // e.g. 0.5 for 50%
	RequestVolumeThreshold int64   // minimum samples before rate is evaluated
	RateStatWindowMs       int64   // window after which Closed-state rate counters reset
}

// CircuitBreakerChainData is the ordered list of per-strategy descriptors
// shared by all instance status records of a service.
type CircuitBreakerChainData struct {
	Strategies []StrategyConfig
}
