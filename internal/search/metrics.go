package search

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors that report search activity.
type Metrics struct {
	candidates   *prometheus.CounterVec
	matches      *prometheus.CounterVec
	workerStops  *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	workers      prometheus.Gauge
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// DefaultMetrics returns the instance registered with the global Prometheus
// registry. Collectors are created once so building several tasks in one
// process does not panic on duplicate registration.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNewMetrics constructs Metrics on reg, reusing collectors that are
// already registered there. Any other registration error panics.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	candidates := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hashsearch",
			Subsystem: "search",
			Name:      "candidates_total",
			Help:      "Candidates hashed and compared against the target.",
		},
		[]string{"algorithm"},
	)
	matches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hashsearch",
			Subsystem: "search",
			Name:      "matches_total",
			Help:      "Tasks that found a plaintext for their target digest.",
		},
		[]string{"algorithm"},
	)
	workerStops := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hashsearch",
			Subsystem: "search",
			Name:      "worker_stops_total",
			Help:      "Workers that reached the stopped state, by reason.",
		},
		[]string{"reason"},
	)
	taskDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hashsearch",
			Subsystem: "search",
			Name:      "task_duration_seconds",
			Help:      "Wall time of a search task from start until every worker stopped.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		},
		[]string{"outcome"},
	)
	workers := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hashsearch",
			Subsystem: "search",
			Name:      "workers_active",
			Help:      "Workers currently running or paused.",
		},
	)

	collectors := []prometheus.Collector{candidates, matches, workerStops, taskDuration, workers}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				switch target := collector.(type) {
				case *prometheus.CounterVec:
					existing := already.ExistingCollector.(*prometheus.CounterVec)
					switch target { //nolint:exhaustive
					case candidates:
						candidates = existing
					case matches:
						matches = existing
					case workerStops:
						workerStops = existing
					}
				case *prometheus.HistogramVec:
					taskDuration = already.ExistingCollector.(*prometheus.HistogramVec)
				case prometheus.Gauge:
					workers = already.ExistingCollector.(prometheus.Gauge)
				}
				continue
			}
			panic(err)
		}
	}

	return &Metrics{
		candidates:   candidates,
		matches:      matches,
		workerStops:  workerStops,
		taskDuration: taskDuration,
		workers:      workers,
	}
}

// AddCandidates counts n hashed candidates.
func (m *Metrics) AddCandidates(algorithm string, n uint64) {
	if m == nil || m.candidates == nil || n == 0 {
		return
	}
	m.candidates.WithLabelValues(algorithm).Add(float64(n))
}

// IncMatch counts a successful task.
func (m *Metrics) IncMatch(algorithm string) {
	if m == nil || m.matches == nil {
		return
	}
	m.matches.WithLabelValues(algorithm).Inc()
}

// IncWorkerStop counts a worker reaching Stopped.
func (m *Metrics) IncWorkerStop(reason StopReason) {
	if m == nil || m.workerStops == nil {
		return
	}
	m.workerStops.WithLabelValues(reason.String()).Inc()
}

// ObserveTask records a finished task.
func (m *Metrics) ObserveTask(outcome string, d time.Duration) {
	if m == nil || m.taskDuration == nil {
		return
	}
	m.taskDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) IncWorkers() {
	if m == nil || m.workers == nil {
		return
	}
	m.workers.Inc()
}

func (m *Metrics) DecWorkers() {
	if m == nil || m.workers == nil {
		return
	}
	m.workers.Dec()
}
