// Package polaris wires together the core components into a minimal
// runtime. It is intentionally thin: it stops at the component boundary,
// not the outer discovery/governance client API a full SDK would expose
// on top of it, so runtime.go only demonstrates wiring the pieces together
// for cmd/probe and for tests, the way eventloop's own doc.go sketches
// usage without being a product API.
package polaris

import (
	"fmt"

	"github.com/polaris-contrib/polaris-go-core/internal/breaker"
	"github.com/polaris-contrib/polaris-go-core/internal/clock"
	"github.com/polaris-contrib/polaris-go-core/internal/config"
	"github.com/polaris-contrib/polaris-go-core/internal/corelog"
	"github.com/polaris-contrib/polaris-go-core/internal/healthcheck"
	"github.com/polaris-contrib/polaris-go-core/internal/model"
	"github.com/polaris-contrib/polaris-go-core/internal/plugin"
	"github.com/polaris-contrib/polaris-go-core/internal/rcu"
	"github.com/polaris-contrib/polaris-go-core/internal/reactor"
)

// Runtime owns one reactor, the plugin registry, and the per-service
// circuit-breaker chains and instance snapshots backed by the RCU map.
type Runtime struct {
	logger   corelog.Logger
	reactor  *reactor.Reactor
	registry *plugin.Registry

	services     *rcu.Map[string, *model.ServiceData]
	servicesRead *rcu.EpochTracker
	chains       map[string]*breaker.Chain
}

// NewRuntime constructs a Runtime with its own reactor and a plugin
// registry pre-populated with the built-in detector and strategy plugins.
func NewRuntime(logger corelog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = corelog.NoOp()
	}
	r, err := reactor.New(logger)
	if err != nil {
		return nil, fmt.Errorf("polaris: new reactor: %w", err)
	}

	registry := plugin.NewRegistry()
	registerBuiltinDetectors(registry)

	return &Runtime{
		logger:       logger,
		reactor:      r,
		registry:     registry,
		services:     rcu.New[string, *model.ServiceData](0),
		servicesRead: rcu.NewEpochTracker(),
		chains:       make(map[string]*breaker.Chain),
	}, nil
}

func registerBuiltinDetectors(registry *plugin.Registry) {
	registry.Register(plugin.KindHealthCheckDetector, "tcp", func() plugin.Plugin { return healthcheck.NewTcpDetector() })
	registry.Register(plugin.KindHealthCheckDetector, "udp", func() plugin.Plugin { return healthcheck.NewUdpDetector() })
	registry.Register(plugin.KindHealthCheckDetector, "http", func() plugin.Plugin { return healthcheck.NewHttpDetector() })
}

// Reactor returns the runtime's single reactor, for callers that need to
// call Run/RunOnce/Stop directly.
func (rt *Runtime) Reactor() *reactor.Reactor { return rt.reactor }

// RegisterService installs a service snapshot and its circuit-breaker
// chain, built from the given strategy configs. Safe to call before the
// reactor starts, or submitted as a Task once it's running.
func (rt *Runtime) RegisterService(name string, instances []model.Instance, strategies []model.StrategyConfig) {
	data := model.NewServiceData(name, "", instances)
	rt.services.Update(name, data)
	rt.chains[name] = breaker.NewChain(strategies, rt.logger)
}

// LookupService returns the current snapshot for name, retaining a
// reference the caller must Release when done. The lookup announces a
// reader epoch for the duration of the call so a concurrent services sweep
// (see StartServicesSweep) never reclaims a retired snapshot this call might
// still be reading off the published table.
func (rt *Runtime) LookupService(name string) (*model.ServiceData, bool) {
	token := rt.servicesRead.Enter(clock.NowMs())
	defer rt.servicesRead.Exit(token)
	data, ok := rt.services.Get(name)
	if ok {
		data.Retain()
	}
	return data, ok
}

// ReportCall feeds one call outcome into service's circuit-breaker chain.
func (rt *Runtime) ReportCall(service, instanceID string, report model.ReportCode) error {
	chain, ok := rt.chains[service]
	if !ok {
		return model.AsError(model.ErrNotInitialized, fmt.Sprintf("polaris: service %q not registered", service))
	}
	chain.Report(instanceID, report, clock.NowMs())
	return nil
}

// StartHealthCheck wires detector against service's instance list on the
// runtime's reactor, probing every intervalMs. If intervalMs is zero, the
// interval falls back to cfg's `pollIntervalMs` key (default 5000ms).
func (rt *Runtime) StartHealthCheck(service string, cfg *config.Config, detectorName string, intervalMs int64) error {
	chain, ok := rt.chains[service]
	if !ok {
		return model.AsError(model.ErrNotInitialized, fmt.Sprintf("polaris: service %q not registered", service))
	}
	if intervalMs == 0 {
		intervalMs = int64(cfg.GetIntOrDefault("pollIntervalMs", 5000))
	}
	p, err := rt.registry.New(plugin.KindHealthCheckDetector, detectorName, cfg, &plugin.Context{})
	if err != nil {
		return err
	}
	detector, ok := p.(healthcheck.Detector)
	if !ok {
		return model.AsError(model.ErrInvalidConfig, fmt.Sprintf("polaris: plugin %q is not a health-check detector", detectorName))
	}
	engine := healthcheck.NewEngine(rt.reactor, detector, chain, intervalMs, func() []model.Instance {
		data, ok := rt.services.Get(service)
		if !ok {
			return nil
		}
		return data.Instances
	}, rt.logger)
	_, err = engine.Start()
	return err
}

// breakerSweepTask drives Chain.Sweep on the reactor's timing wheel.
type breakerSweepTask struct {
	chain          *breaker.Chain
	intervalMs     int64
	instanceExists func(instanceID string) bool
}

func (t *breakerSweepTask) IntervalMs() int64 { return t.intervalMs }
func (t *breakerSweepTask) Run()              { t.chain.Sweep(clock.NowMs(), t.instanceExists) }
func (t *breakerSweepTask) NextRunTime(nowMs int64) int64 {
	return nowMs + t.intervalMs
}

// servicesSweepTask periodically publishes pending services-map writes and
// reclaims retired snapshots once no announced reader epoch can still
// observe them.
type servicesSweepTask struct {
	services   *rcu.Map[string, *model.ServiceData]
	readers    *rcu.EpochTracker
	intervalMs int64
}

func (t *servicesSweepTask) IntervalMs() int64 { return t.intervalMs }
func (t *servicesSweepTask) Run() {
	now := clock.NowMs()
	t.services.Publish(now)
	t.services.CheckGc(t.readers.MinReaderTime(now))
}
func (t *servicesSweepTask) NextRunTime(nowMs int64) int64 {
	return nowMs + t.intervalMs
}

// StartServicesSweep schedules the services map's periodic publish+reclaim
// pass on the runtime's reactor, so LookupService's reader-epoch accounting
// actually gates reclamation instead of sitting unused.
func (rt *Runtime) StartServicesSweep(intervalMs int64) (*reactor.TimingHandle, error) {
	task := &servicesSweepTask{
		services:   rt.services,
		readers:    rt.servicesRead,
		intervalMs: intervalMs,
	}
	return rt.reactor.AddTimingTask(task)
}

// StartBreakerSweep schedules service's circuit-breaker chain's periodic
// TimingCircuitBreak/CleanStatus pass on the runtime's reactor.
func (rt *Runtime) StartBreakerSweep(service string, intervalMs int64) (*reactor.TimingHandle, error) {
	chain, ok := rt.chains[service]
	if !ok {
		return nil, model.AsError(model.ErrNotInitialized, fmt.Sprintf("polaris: service %q not registered", service))
	}
	task := &breakerSweepTask{
		chain:      chain,
		intervalMs: intervalMs,
		instanceExists: func(instanceID string) bool {
			data, ok := rt.services.Get(service)
			if !ok {
				return false
			}
			for _, inst := range data.Instances {
				if inst.ID == instanceID {
					return true
				}
			}
			return false
		},
	}
	return rt.reactor.AddTimingTask(task)
}

// Close shuts down the reactor. Stop must already have been requested on
// the reactor.
func (rt *Runtime) Close() error {
	return rt.reactor.Close()
}
