package breaker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polaris-contrib/polaris-go-core/internal/model"
)

func errorCountConfig() model.StrategyConfig {
	return model.StrategyConfig{
		Name:                      "errorCount",
		ContinuousErrorThreshold:  3,
		RequestCountAfterHalfOpen: 5,
		SuccessCountAfterHalfOpen: 3,
		HalfOpenSleepWindowMs:     1000,
		MetricExpiredTimeMs:       60000,
	}
}

func TestErrorCountOpensOnConsecutiveFailures(t *testing.T) {
	cfg := errorCountConfig()
	s := newErrorCountStrategy(cfg)
	status := model.NewErrorCountStatus(0)

	s.RealTimeCircuitBreak(model.ReportError, status, 1)
	assert.Equal(t, model.Closed, status.State())
	s.RealTimeCircuitBreak(model.ReportError, status, 2)
	assert.Equal(t, model.Closed, status.State())
	s.RealTimeCircuitBreak(model.ReportError, status, 3)
	assert.Equal(t, model.Open, status.State())
}

func TestErrorCountSuccessResetsCounterInClosed(t *testing.T) {
	cfg := errorCountConfig()
	s := newErrorCountStrategy(cfg)
	status := model.NewErrorCountStatus(0)

	s.RealTimeCircuitBreak(model.ReportError, status, 1)
	s.RealTimeCircuitBreak(model.ReportError, status, 2)
	s.RealTimeCircuitBreak(model.ReportOk, status, 3) // non-consecutive: resets
	assert.Equal(t, int64(0), status.ErrorCount())
	s.RealTimeCircuitBreak(model.ReportError, status, 4)
	s.RealTimeCircuitBreak(model.ReportError, status, 5)
	assert.Equal(t, model.Closed, status.State(), "two failures after a reset must not trip a threshold of 3")
}

func TestErrorCountFullLifecycle(t *testing.T) {
	cfg := errorCountConfig()
	s := newErrorCountStrategy(cfg)
	status := model.NewErrorCountStatus(0)

	for i := int64(1); i <= cfg.ContinuousErrorThreshold; i++ {
		s.RealTimeCircuitBreak(model.ReportError, status, i)
	}
	require.Equal(t, model.Open, status.State())

	// Too early: sleep window not yet elapsed.
	s.TimingCircuitBreak(status, cfg.HalfOpenSleepWindowMs/2)
	assert.Equal(t, model.Open, status.State())

	// Sleep window elapsed since the breaker opened (stamped at the
	// threshold-th failure): Open -> HalfOpen.
	openedAt := cfg.ContinuousErrorThreshold
	s.TimingCircuitBreak(status, openedAt+cfg.HalfOpenSleepWindowMs)
	require.Equal(t, model.HalfOpen, status.State())
	assert.Equal(t, int64(0), status.ErrorCount())

	// Enough successes close the breaker immediately (DESIGN.md open
	// question: close on the admitted report rather than deferring to the
	// next sweep).
	for i := int64(1); i <= cfg.SuccessCountAfterHalfOpen; i++ {
		s.RealTimeCircuitBreak(model.ReportOk, status, openedAt+cfg.HalfOpenSleepWindowMs+i)
	}
	assert.Equal(t, model.Closed, status.State())
}

func TestErrorCountHalfOpenFailureReturnsToOpen(t *testing.T) {
	cfg := errorCountConfig()
	s := newErrorCountStrategy(cfg)
	status := model.NewErrorCountStatus(0)
	status.CompareAndSwapState(model.Closed, model.Open)
	s.TimingCircuitBreak(status, cfg.HalfOpenSleepWindowMs+1)
	require.Equal(t, model.HalfOpen, status.State())

	// budget = RequestCountAfterHalfOpen - SuccessCountAfterHalfOpen = 2
	for i := int64(1); i <= 3; i++ {
		s.RealTimeCircuitBreak(model.ReportError, status, i)
	}
	assert.Equal(t, model.Open, status.State())
}

func TestErrorRateRequiresVolumeThreshold(t *testing.T) {
	cfg := model.StrategyConfig{
		Name:                      "errorRate",
		RequestCountAfterHalfOpen: 5,
		SuccessCountAfterHalfOpen: 3,
		HalfOpenSleepWindowMs:     1000,
		MetricExpiredTimeMs:       60000,
		ErrorRateThreshold:        0.5,
		RequestVolumeThreshold:    10,
		RateStatWindowMs:          60000,
	}
	s := newErrorRateStrategy(cfg)
	status := model.NewErrorCountStatus(0)

	for i := int64(1); i <= 4; i++ {
		s.RealTimeCircuitBreak(model.ReportError, status, i)
	}
	assert.Equal(t, model.Closed, status.State(), "below volume threshold, 100% errors must not trip")

	for i := int64(5); i <= 10; i++ {
		s.RealTimeCircuitBreak(model.ReportError, status, i)
	}
	assert.Equal(t, model.Open, status.State())
}

func TestChainReportAndSweep(t *testing.T) {
	chain := NewChain([]model.StrategyConfig{errorCountConfig()}, nil)
	for i := 0; i < 3; i++ {
		chain.Report("instance-1", model.ReportError, int64(i+1))
	}
	statuses := chain.GetOrCreateErrorCountStatus("instance-1", 3)
	assert.Equal(t, model.Open, statuses["errorCount"].State())

	// The first sweep moves Open -> HalfOpen, which stamps the status's last
	// update; the second sweep, one expiry window later, evicts it.
	chain.Sweep(100000, func(string) bool { return false })
	chain.Sweep(100000+60000, func(string) bool { return false })
	_, stillPresent := chain.statuses["errorCount"].Get("instance-1")
	assert.False(t, stillPresent, "status for a vanished instance must be evicted once expired")
}
