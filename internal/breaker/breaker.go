// Package breaker implements a circuit-breaker chain: per-instance,
// per-strategy status records backed by an RCU map so reporters never
// block each other, CAS-guarded state transitions, and two strategies
// (error-count, error-rate). The atomic-counter-plus-CAS shape generalizes
// a load/compare/CAS/retry admission check from a single yes/no decision
// to the three-state Closed/Open/HalfOpen machine.
package breaker

import (
	"github.com/polaris-contrib/polaris-go-core/internal/corelog"
	"github.com/polaris-contrib/polaris-go-core/internal/model"
	"github.com/polaris-contrib/polaris-go-core/internal/rcu"
)

// Strategy is one link of the circuit-breaker chain.
type Strategy interface {
	Name() string
	// RealTimeCircuitBreak ingests one telemetry record and applies the
	// strategy's transition rules.
	RealTimeCircuitBreak(report model.ReportCode, status *model.ErrorCountStatus, nowMs int64)
	// TimingCircuitBreak performs scheduled transitions (Open->HalfOpen,
	// HalfOpen->Open/Closed) independent of any individual report.
	TimingCircuitBreak(status *model.ErrorCountStatus, nowMs int64)
}

// Chain owns one RCU map of per-instance status records for each strategy
// configured for a service.
type Chain struct {
	logger     corelog.Logger
	strategies []Strategy
	statuses   map[string]*rcu.Map[string, *model.ErrorCountStatus] // strategy name -> instance id -> status
}

// NewChain builds a Chain from the given strategy configs, instantiating
// the error-count and error-rate strategy implementations by name.
func NewChain(configs []model.StrategyConfig, logger corelog.Logger) *Chain {
	if logger == nil {
		logger = corelog.NoOp()
	}
	c := &Chain{logger: logger, statuses: make(map[string]*rcu.Map[string, *model.ErrorCountStatus])}
	for _, cfg := range configs {
		var s Strategy
		switch cfg.Name {
		case "errorRate":
			s = newErrorRateStrategy(cfg)
		default:
			s = newErrorCountStrategy(cfg)
		}
		c.strategies = append(c.strategies, s)
		c.statuses[s.Name()] = rcu.New[string, *model.ErrorCountStatus](0)
	}
	return c
}

// GetOrCreateErrorCountStatus returns the shared status record for
// instanceID under every configured strategy, creating it (Closed, stamped
// at nowMs) on first use.
func (c *Chain) GetOrCreateErrorCountStatus(instanceID string, nowMs int64) map[string]*model.ErrorCountStatus {
	out := make(map[string]*model.ErrorCountStatus, len(c.strategies))
	for _, s := range c.strategies {
		m := c.statuses[s.Name()]
		status := m.CreateOrGet(instanceID, func() *model.ErrorCountStatus {
			return model.NewErrorCountStatus(nowMs)
		})
		out[s.Name()] = status
	}
	return out
}

// Report applies one call-result report to every strategy's status record
// for instanceID.
func (c *Chain) Report(instanceID string, report model.ReportCode, nowMs int64) {
	statuses := c.GetOrCreateErrorCountStatus(instanceID, nowMs)
	for _, s := range c.strategies {
		s.RealTimeCircuitBreak(report, statuses[s.Name()], nowMs)
	}
}

// Sweep runs TimingCircuitBreak for every tracked instance of every
// strategy, then CleanStatus against instanceExists.
// Intended to be driven by the reactor's timing wheel.
func (c *Chain) Sweep(nowMs int64, instanceExists func(instanceID string) bool) {
	for _, s := range c.strategies {
		m := c.statuses[s.Name()]
		expiredMs := s.(metricExpiry).metricExpiredTimeMs()
		for _, instanceID := range m.Keys() {
			status, ok := m.Get(instanceID)
			if !ok {
				continue
			}
			s.TimingCircuitBreak(status, nowMs)
			c.cleanStatus(m, instanceID, status, instanceExists, nowMs, expiredMs)
		}
	}
}

// metricExpiry is implemented by both strategies so Sweep can read their
// configured expiry window without a type switch.
type metricExpiry interface {
	metricExpiredTimeMs() int64
}

func (c *Chain) cleanStatus(m *rcu.Map[string, *model.ErrorCountStatus], instanceID string, status *model.ErrorCountStatus, instanceExists func(string) bool, nowMs, expiredMs int64) {
	if nowMs-status.LastUpdateMs() < expiredMs {
		return
	}
	if instanceExists(instanceID) {
		status.MarkInstanceFound(true)
		return
	}
	status.MarkInstanceFound(false)
	m.Delete(instanceID)
	c.logger.Log(corelog.LevelInfo, "breaker", "evicted expired status", corelog.Fields{"instance": instanceID})
}
