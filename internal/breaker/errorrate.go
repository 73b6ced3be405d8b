package breaker

import "github.com/polaris-contrib/polaris-go-core/internal/model"

// errorRateStrategy is the `errorRate` breaker plugin. Shaped after the
// Hystrix circuit breaker's request-volume threshold idea: below
// RequestVolumeThreshold samples in the current
// window, the rate is not evaluated at all (a handful of calls shouldn't
// be able to trip the breaker on a 100% failure rate of two requests).
// Reuses the same ErrorCountStatus record and CAS-guarded transition
// shape as errorCountStrategy; only the Closed-state admission rule
// differs.
type errorRateStrategy struct {
	cfg model.StrategyConfig
}

func newErrorRateStrategy(cfg model.StrategyConfig) *errorRateStrategy {
	return &errorRateStrategy{cfg: cfg}
}

func (s *errorRateStrategy) Name() string { return "errorRate" }

func (s *errorRateStrategy) metricExpiredTimeMs() int64 { return s.cfg.MetricExpiredTimeMs }

func (s *errorRateStrategy) RealTimeCircuitBreak(report model.ReportCode, status *model.ErrorCountStatus, nowMs int64) {
	switch status.State() {
	case model.Closed:
		s.reportClosed(report, status, nowMs)
	case model.HalfOpen:
		s.reportHalfOpen(report, status, nowMs)
	case model.Open:
	}
}

func (s *errorRateStrategy) reportClosed(report model.ReportCode, status *model.ErrorCountStatus, nowMs int64) {
	// Unlike errorCountStrategy, Closed-state success does not reset the
	// window here: the rate is computed over a rolling sample count, so a
	// single success shouldn't erase a string of prior failures the way a
	// consecutive-failure counter must. The window itself is reset by
	// TimingCircuitBreak once RateStatWindowMs has elapsed instead.
	if report.IsFailure() {
		status.AddErrorCount(1)
	} else {
		status.AddSuccessCount(1)
	}

	total := status.ErrorCount() + status.SuccessCount()
	if total < s.cfg.RequestVolumeThreshold {
		return
	}
	rate := float64(status.ErrorCount()) / float64(total)
	if rate < s.cfg.ErrorRateThreshold {
		return
	}
	if status.CompareAndSwapState(model.Closed, model.Open) {
		status.StampLastUpdate(nowMs)
	}
}

func (s *errorRateStrategy) reportHalfOpen(report model.ReportCode, status *model.ErrorCountStatus, nowMs int64) {
	if report.IsFailure() {
		errCount := status.AddErrorCount(1)
		budget := s.cfg.RequestCountAfterHalfOpen - s.cfg.SuccessCountAfterHalfOpen
		if errCount > budget {
			if status.CompareAndSwapState(model.HalfOpen, model.Open) {
				status.ResetCounters()
				status.StampLastUpdate(nowMs)
			}
		}
		return
	}
	successCount := status.AddSuccessCount(1)
	if successCount >= s.cfg.SuccessCountAfterHalfOpen {
		if status.CompareAndSwapState(model.HalfOpen, model.Closed) {
			status.ResetCounters()
			status.StampLastUpdate(nowMs)
		}
	}
}

func (s *errorRateStrategy) TimingCircuitBreak(status *model.ErrorCountStatus, nowMs int64) {
	switch status.State() {
	case model.Open:
		if nowMs-status.LastUpdateMs() >= s.cfg.HalfOpenSleepWindowMs {
			if status.CompareAndSwapState(model.Open, model.HalfOpen) {
				status.ResetCounters()
				status.StampLastUpdate(nowMs)
			}
		}
	case model.Closed:
		// Roll the sampling window: once RateStatWindowMs has elapsed
		// since the last update with no trip, reset counters so the rate
		// computation reflects recent behavior rather than the service's
		// entire lifetime.
		if nowMs-status.LastUpdateMs() >= s.cfg.RateStatWindowMs {
			status.ResetCounters()
			status.StampLastUpdate(nowMs)
		}
	case model.HalfOpen:
		if status.ErrorCount()+status.SuccessCount() >= s.cfg.RequestCountAfterHalfOpen &&
			status.SuccessCount() < s.cfg.SuccessCountAfterHalfOpen {
			if status.CompareAndSwapState(model.HalfOpen, model.Open) {
				status.ResetCounters()
				status.StampLastUpdate(nowMs)
			}
		}
	}
}
