package healthcheck

import (
	"github.com/polaris-contrib/polaris-go-core/internal/breaker"
	"github.com/polaris-contrib/polaris-go-core/internal/clock"
	"github.com/polaris-contrib/polaris-go-core/internal/corelog"
	"github.com/polaris-contrib/polaris-go-core/internal/model"
	"github.com/polaris-contrib/polaris-go-core/internal/reactor"
)

// Engine orchestrates periodic probing of instances: it schedules a
// detector through the reactor's timing wheel, one task per
// (detector, service), and feeds each result into the circuit-breaker
// chain for that instance.
type Engine struct {
	logger   corelog.Logger
	reactor  *reactor.Reactor
	detector Detector
	chain    *breaker.Chain

	intervalMs  int64
	instancesFn func() []model.Instance
}

// NewEngine wires one detector against one circuit-breaker chain, polling
// instancesFn for the current membership each tick rather than caching it,
// since membership is expected to change underneath a long-lived engine
// (service updates flow through the RCU map independently).
func NewEngine(r *reactor.Reactor, detector Detector, chain *breaker.Chain, intervalMs int64, instancesFn func() []model.Instance, logger corelog.Logger) *Engine {
	if logger == nil {
		logger = corelog.NoOp()
	}
	return &Engine{
		logger:      logger,
		reactor:     r,
		detector:    detector,
		chain:       chain,
		intervalMs:  intervalMs,
		instancesFn: instancesFn,
	}
}

// Start registers the engine as a recurring timing task on its reactor.
func (e *Engine) Start() (*reactor.TimingHandle, error) {
	return e.reactor.AddTimingTask(&engineTask{engine: e})
}

// engineTask adapts Engine to model.TimingTask.
type engineTask struct {
	engine *Engine
}

func (t *engineTask) IntervalMs() int64 { return t.engine.intervalMs }

func (t *engineTask) Run() {
	t.engine.tick()
}

func (t *engineTask) NextRunTime(nowMs int64) int64 {
	return nowMs + t.engine.intervalMs
}

// tick dispatches one probe goroutine per currently-known instance and
// returns immediately; DetectInstanceOnce blocks on socket I/O up to its
// configured timeout, so it must never run on the executor goroutine. Each
// goroutine posts its result back via Reactor.Submit, which runs the
// corresponding chain.Report call on the executor the way every other
// handler's side effect does.
func (e *Engine) tick() {
	for _, instance := range e.instancesFn() {
		instance := instance
		go func() {
			result := e.detector.DetectInstanceOnce(instance)
			e.reactor.Submit(model.Task{
				Label: "healthcheck.report",
				Run: func() {
					e.report(instance, result)
				},
			})
		}()
	}
}

// report runs on the executor goroutine: feeds one probe outcome into the
// circuit-breaker chain and logs it.
func (e *Engine) report(instance model.Instance, result Result) {
	report := reportCodeFor(result.ReturnCode)
	e.chain.Report(instance.ID, report, clock.NowMs())
	e.logger.Log(corelog.LevelDebug, "healthcheck", "probe complete", corelog.Fields{
		"instance":  instance.ID,
		"detector":  e.detector.Name(),
		"code":      result.ReturnCode.String(),
		"elapse_ms": result.ElapseMs,
	})
}

// reportCodeFor maps a detector's ReturnCode onto the breaker's
// ReportCode vocabulary.
func reportCodeFor(code model.ReturnCode) model.ReportCode {
	switch code {
	case model.ReturnOk:
		return model.ReportOk
	case model.ReturnTimeout:
		return model.ReportTimeout
	default:
		return model.ReportError
	}
}
