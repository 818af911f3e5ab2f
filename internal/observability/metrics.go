package observability

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MetricsCollector records task-level OpenTelemetry metrics and, once
// StartPrometheusServer is called, serves them with every other registered
// Prometheus collector on /metrics.
type MetricsCollector struct {
	meter    metric.Meter
	provider *sdkmetric.MeterProvider
	logger   *Logger

	taskRuns       metric.Int64Counter
	taskDuration   metric.Float64Histogram
	taskCandidates metric.Int64Counter
	tasksActive    metric.Int64UpDownCounter

	prometheusServer *http.Server
}

// MetricsConfig configures the metrics collector
type MetricsConfig struct {
	Enabled        bool `yaml:"enabled"`
	PrometheusPort int  `yaml:"prometheus_port"`
}

// NewMetricsCollector creates a collector exporting through the default
// Prometheus registry. A disabled config yields a collector whose methods
// are no-ops. The caller starts the /metrics listener with
// StartPrometheusServer.
func NewMetricsCollector(config MetricsConfig, logger *Logger) (*MetricsCollector, error) {
	return newMetricsCollector(config, prometheus.DefaultRegisterer, logger)
}

func newMetricsCollector(config MetricsConfig, reg prometheus.Registerer, logger *Logger) (*MetricsCollector, error) {
	if logger == nil {
		logger = NewLogger(LogConfig{})
	}
	if !config.Enabled {
		return &MetricsCollector{logger: logger}, nil
	}

	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)

	meter := provider.Meter("hashsearch")

	taskRuns, err := meter.Int64Counter(
		"hashsearch.task.runs",
		metric.WithDescription("Search tasks run to completion, by outcome"),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task_runs counter: %w", err)
	}

	taskDuration, err := meter.Float64Histogram(
		"hashsearch.task.duration",
		metric.WithDescription("Search task wall time in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task_duration histogram: %w", err)
	}

	taskCandidates, err := meter.Int64Counter(
		"hashsearch.task.candidates",
		metric.WithDescription("Candidates hashed by finished tasks"),
		metric.WithUnit("{candidate}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task_candidates counter: %w", err)
	}

	tasksActive, err := meter.Int64UpDownCounter(
		"hashsearch.tasks.active",
		metric.WithDescription("Search tasks currently running"),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks_active gauge: %w", err)
	}

	collector := &MetricsCollector{
		meter:          meter,
		provider:       provider,
		logger:         logger,
		taskRuns:       taskRuns,
		taskDuration:   taskDuration,
		taskCandidates: taskCandidates,
		tasksActive:    tasksActive,
	}

	return collector, nil
}

// StartPrometheusServer serves the default gatherer on :port/metrics. The
// listener is bound synchronously so port conflicts surface as an error.
func (m *MetricsCollector) StartPrometheusServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := net.JoinHostPort("", strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	m.prometheusServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		m.logger.Info("prometheus metrics server listening", "addr", ln.Addr().String())
		if err := m.prometheusServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("prometheus server error", "error", err)
		}
	}()

	return nil
}

// Shutdown stops the metrics server and flushes the meter provider.
func (m *MetricsCollector) Shutdown(ctx context.Context) error {
	var errs []error
	if m.prometheusServer != nil {
		errs = append(errs, m.prometheusServer.Shutdown(ctx))
	}
	if m.provider != nil {
		errs = append(errs, m.provider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// RecordTaskRun records one finished task.
func (m *MetricsCollector) RecordTaskRun(ctx context.Context, algorithm, mode, outcome string, elapsed time.Duration, candidates *big.Int) {
	if m == nil || m.taskRuns == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("algorithm", algorithm),
		attribute.String("mode", mode),
	}

	m.taskRuns.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.String("outcome", outcome))...))
	m.taskDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
	if candidates != nil {
		m.taskCandidates.Add(ctx, clampInt64(candidates), metric.WithAttributes(attrs...))
	}
}

// IncrementActiveTasks increments the active tasks counter
func (m *MetricsCollector) IncrementActiveTasks(ctx context.Context) {
	if m == nil || m.tasksActive == nil {
		return
	}
	m.tasksActive.Add(ctx, 1)
}

// DecrementActiveTasks decrements the active tasks counter
func (m *MetricsCollector) DecrementActiveTasks(ctx context.Context) {
	if m == nil || m.tasksActive == nil {
		return
	}
	m.tasksActive.Add(ctx, -1)
}

func clampInt64(v *big.Int) int64 {
	if v.IsInt64() {
		return v.Int64()
	}
	if v.Sign() < 0 {
		return 0
	}
	return math.MaxInt64
}
