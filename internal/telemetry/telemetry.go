// Package telemetry is an optional Prometheus instrumentation layer. It is
// additive: nothing in internal/reactor, internal/breaker, or
// internal/healthcheck depends on it directly; callers that want metrics
// wrap their own call sites with a Recorder, the same way an optional
// WithMetrics option wires in instrumentation without baking Prometheus
// calls into the hot path unconditionally.
package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Recorder is the narrow surface core components call into; it is
// satisfied by *PrometheusRecorder or NoOp().
type Recorder interface {
	ObserveProbe(detector string, returnCode string, elapseMs int64)
	ObserveBreakerTransition(strategy string, from, to string)
	ObserveReactorTick(pendingDrained int, timersFired int)
	IncRCUReclaim(count int)
}

// PrometheusRecorder implements Recorder against a set of
// prometheus/client_golang collectors, registered on construction.
type PrometheusRecorder struct {
	probeDuration      *prometheus.HistogramVec
	probeResult        *prometheus.CounterVec
	breakerTransitions *prometheus.CounterVec
	reactorPending     prometheus.Histogram
	reactorTimers      prometheus.Histogram
	rcuReclaims        prometheus.Counter
}

// NewPrometheusRecorder registers its collectors against reg (typically
// prometheus.DefaultRegisterer, or a dedicated registry in tests).
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		probeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "polaris_core",
			Subsystem: "healthcheck",
			Name:      "probe_duration_ms",
			Help:      "Health-check probe duration in milliseconds.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"detector"}),
		probeResult: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "polaris_core",
			Subsystem: "healthcheck",
			Name:      "probe_result_total",
			Help:      "Health-check probe outcomes by detector and return code.",
		}, []string{"detector", "return_code"}),
		breakerTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "polaris_core",
			Subsystem: "breaker",
			Name:      "state_transitions_total",
			Help:      "Circuit-breaker state transitions by strategy and edge.",
		}, []string{"strategy", "from", "to"}),
		reactorPending: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "polaris_core",
			Subsystem: "reactor",
			Name:      "pending_tasks_drained",
			Help:      "Pending tasks drained per reactor iteration.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		reactorTimers: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "polaris_core",
			Subsystem: "reactor",
			Name:      "timers_fired",
			Help:      "Timing tasks fired per reactor iteration.",
			Buckets:   prometheus.LinearBuckets(0, 1, 10),
		}),
		rcuReclaims: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "polaris_core",
			Subsystem: "rcu",
			Name:      "reclaims_total",
			Help:      "RCU map entries reclaimed by CheckGc.",
		}),
	}
	collectors := []prometheus.Collector{
		r.probeDuration, r.probeResult, r.breakerTransitions,
		r.reactorPending, r.reactorTimers, r.rcuReclaims,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *PrometheusRecorder) ObserveProbe(detector, returnCode string, elapseMs int64) {
	r.probeDuration.WithLabelValues(detector).Observe(float64(elapseMs))
	r.probeResult.WithLabelValues(detector, returnCode).Inc()
}

func (r *PrometheusRecorder) ObserveBreakerTransition(strategy string, from, to string) {
	r.breakerTransitions.WithLabelValues(strategy, from, to).Inc()
}

func (r *PrometheusRecorder) ObserveReactorTick(pendingDrained int, timersFired int) {
	r.reactorPending.Observe(float64(pendingDrained))
	r.reactorTimers.Observe(float64(timersFired))
}

func (r *PrometheusRecorder) IncRCUReclaim(count int) {
	r.rcuReclaims.Add(float64(count))
}

type noopRecorder struct{}

func (noopRecorder) ObserveProbe(string, string, int64)              {}
func (noopRecorder) ObserveBreakerTransition(string, string, string) {}
func (noopRecorder) ObserveReactorTick(int, int)                     {}
func (noopRecorder) IncRCUReclaim(int)                               {}

// NoOp returns a Recorder that discards everything, used when metrics are
// not configured.
func NoOp() Recorder { return noopRecorder{} }
