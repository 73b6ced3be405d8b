package breaker

import "github.com/polaris-contrib/polaris-go-core/internal/model"

// errorCountStrategy opens the circuit on consecutive failures; a sleep
// window then admits a probe burst, and enough successes in that burst
// closes it again. All transitions are CAS-guarded on the expected prior
// state so concurrent callers collapse onto one winner.
type errorCountStrategy struct {
	cfg model.StrategyConfig
}

func newErrorCountStrategy(cfg model.StrategyConfig) *errorCountStrategy {
	return &errorCountStrategy{cfg: cfg}
}

func (s *errorCountStrategy) Name() string { return "errorCount" }

func (s *errorCountStrategy) metricExpiredTimeMs() int64 { return s.cfg.MetricExpiredTimeMs }

func (s *errorCountStrategy) RealTimeCircuitBreak(report model.ReportCode, status *model.ErrorCountStatus, nowMs int64) {
	switch status.State() {
	case model.Closed:
		s.reportClosed(report, status, nowMs)
	case model.HalfOpen:
		s.reportHalfOpen(report, status, nowMs)
	case model.Open:
		// Telemetry observed but does not drive transitions while Open
		//; only TimingCircuitBreak moves it to HalfOpen.
	}
}

func (s *errorCountStrategy) reportClosed(report model.ReportCode, status *model.ErrorCountStatus, nowMs int64) {
	if !report.IsFailure() {
		status.ResetCounters()
		return
	}
	count := status.AddErrorCount(1)
	if count < s.cfg.ContinuousErrorThreshold {
		return
	}
	if status.CompareAndSwapState(model.Closed, model.Open) {
		status.StampLastUpdate(nowMs)
	}
}

func (s *errorCountStrategy) reportHalfOpen(report model.ReportCode, status *model.ErrorCountStatus, nowMs int64) {
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
		// Closes immediately rather than deferring to the next timing sweep,
		// so an admitted call's outcome is reflected without an extra
		// sweep's latency (see DESIGN.md).
		if status.CompareAndSwapState(model.HalfOpen, model.Closed) {
			status.ResetCounters()
			status.StampLastUpdate(nowMs)
		}
	}
}

func (s *errorCountStrategy) TimingCircuitBreak(status *model.ErrorCountStatus, nowMs int64) {
	switch status.State() {
	case model.Open:
		if nowMs-status.LastUpdateMs() >= s.cfg.HalfOpenSleepWindowMs {
			if status.CompareAndSwapState(model.Open, model.HalfOpen) {
				status.ResetCounters()
				status.StampLastUpdate(nowMs)
			}
		}
	case model.HalfOpen:
		// If the half-open budget has been exhausted without reaching the
		// success threshold, fall back to Open. RealTimeCircuitBreak already transitions to Open as
		// soon as the error budget is provably exceeded; this sweep
		// applies the same exhausted-budget check independently of any
		// report and re-arms the sleep window. A HalfOpen status whose
		// admissions have not yet reached RequestCountAfterHalfOpen is
		// left as it is, however long ago it entered HalfOpen.
		if status.ErrorCount()+status.SuccessCount() >= s.cfg.RequestCountAfterHalfOpen &&
			status.SuccessCount() < s.cfg.SuccessCountAfterHalfOpen {
			if status.CompareAndSwapState(model.HalfOpen, model.Open) {
				status.ResetCounters()
				status.StampLastUpdate(nowMs)
			}
		}
	case model.Closed:
	}
}
