package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the assistant.
type Metrics struct {
	solvesTotal   *prometheus.CounterVec
	solveDuration prometheus.Histogram
	solveSteps    prometheus.Histogram
	fallbackTotal *prometheus.CounterVec
	toolFailures  *prometheus.CounterVec
	guardStops    *prometheus.CounterVec
	cacheHits     prometheus.Counter
}

// New registers the metrics on the given registerer. Passing nil uses the
// default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		solvesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apex",
			Name:      "solves_total",
			Help:      "Finished solve runs by termination reason and model usage.",
		}, []string{"termination", "model_used"}),
		solveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "apex",
			Name:      "solve_duration_seconds",
			Help:      "Wall-clock duration of solve runs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		solveSteps: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "apex",
			Name:      "solve_steps",
			Help:      "Executed steps per solve run.",
			Buckets:   prometheus.LinearBuckets(0, 1, 11),
		}),
		fallbackTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apex",
			Name:      "fallback_total",
			Help:      "Degraded decisions by component.",
		}, []string{"component"}),
		toolFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apex",
			Name:      "tool_failures_total",
			Help:      "Failed tool invocations by tool and failure code.",
		}, []string{"tool", "code"}),
		guardStops: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apex",
			Name:      "guard_stops_total",
			Help:      "Runs ended by the loop guard, by reason.",
		}, []string{"reason"}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "apex",
			Name:      "cache_hits_total",
			Help:      "Solve results served from the cache.",
		}),
	}
}

func (m *Metrics) SolveFinished(termination string, steps int, elapsed time.Duration, modelUsed bool) {
	used := "false"
	if modelUsed {
		used = "true"
	}
	m.solvesTotal.WithLabelValues(termination, used).Inc()
	m.solveDuration.Observe(elapsed.Seconds())
	m.solveSteps.Observe(float64(steps))
}

func (m *Metrics) FallbackUsed(component string) {
	m.fallbackTotal.WithLabelValues(component).Inc()
}

func (m *Metrics) ToolFailed(tool, code string) {
	m.toolFailures.WithLabelValues(tool, code).Inc()
}

func (m *Metrics) GuardStopped(reason string) {
	m.guardStops.WithLabelValues(reason).Inc()
}

func (m *Metrics) CacheHit() {
	m.cacheHits.Inc()
}
