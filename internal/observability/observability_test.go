package observability

import (
	"bytes"
	"context"
	"math/big"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestLoggerLevelsAndFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(LogConfig{Level: "warn", Format: "json", Output: buf})

	logger.Info("hidden")
	logger.With("worker", 3).Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"worker":3`)
}

func TestMetricsCollectorBindsOnlyOnStart(t *testing.T) {
	port := freePort(t)
	collector, err := newMetricsCollector(MetricsConfig{Enabled: true, PrometheusPort: port}, prometheus.NewRegistry(), nil)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
	require.NoError(t, err, "collector bound the port before StartPrometheusServer")
	require.NoError(t, ln.Close())

	require.NoError(t, collector.StartPrometheusServer(port))
	t.Cleanup(func() { _ = collector.Shutdown(context.Background()) })

	resp, err := http.Get("http://" + net.JoinHostPort("127.0.0.1", strconv.Itoa(port)) + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Error(t, collector.StartPrometheusServer(port), "second bind on the same port")
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestNewLoggerFromConfigWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hashsearch.log")
	logger, closer, err := NewLoggerFromConfig(LoggingConfig{Level: "info", Format: "text", File: path}, nil)
	require.NoError(t, err)
	logger.Info("to file")
	require.NoError(t, closer.Close())

	data, err := readFile(path)
	require.NoError(t, err)
	assert.Contains(t, data, "to file")
}

func TestMetricsCollectorDisabledIsNoop(t *testing.T) {
	collector, err := NewMetricsCollector(MetricsConfig{Enabled: false}, nil)
	require.NoError(t, err)

	collector.IncrementActiveTasks(context.Background())
	collector.RecordTaskRun(context.Background(), "MD5", "lexicographic", "matched", time.Second, big.NewInt(10))
	assert.NoError(t, collector.Shutdown(context.Background()))

	var nilCollector *MetricsCollector
	nilCollector.DecrementActiveTasks(context.Background())
}

func TestMetricsCollectorExportsToPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := newMetricsCollector(MetricsConfig{Enabled: true}, reg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = collector.Shutdown(context.Background()) })

	ctx := context.Background()
	huge := new(big.Int).Lsh(big.NewInt(1), 80)
	collector.RecordTaskRun(ctx, "SHA-256", "random", "stopped", 250*time.Millisecond, huge)
	collector.IncrementActiveTasks(ctx)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	joined := strings.Join(names, ",")
	assert.Contains(t, joined, "hashsearch_task_runs")
	assert.Contains(t, joined, "hashsearch_task_duration")
	assert.Contains(t, joined, "hashsearch_tasks_active")
}

func TestTracerProvider(t *testing.T) {
	tp, err := NewTracerProvider(TracingConfig{Enabled: false})
	require.NoError(t, err)
	_, span := tp.Tracer().Start(context.Background(), SpanTaskRun)
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, tp.Shutdown(context.Background()))

	_, err = NewTracerProvider(TracingConfig{Enabled: true, Exporter: "carrier-pigeon"})
	assert.Error(t, err)

	tp, err = NewTracerProvider(TracingConfig{Enabled: true, Exporter: "zipkin"})
	require.NoError(t, err)
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestAttrs(t *testing.T) {
	huge, _ := new(big.Int).SetString("141167095653376", 10)
	attrs := TaskAttrs("id", "MD5", "[a-z]{10}", "lexicographic", 4, huge)
	require.Len(t, attrs, 6)
	assert.Equal(t, SpaceSizeKey, attrs[5].Key)
	assert.Equal(t, "141167095653376", attrs[5].Value.AsString())

	out := OutcomeAttrs(true, false, big.NewInt(3))
	require.Len(t, out, 3)
	assert.True(t, out[0].Value.AsBool())
	assert.Equal(t, "3", out[2].Value.AsString())
}

func TestRecordError(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	tracer := provider.Tracer("test")

	_, ok := tracer.Start(context.Background(), "ok")
	RecordError(ok, nil)
	ok.End()

	_, failed := tracer.Start(context.Background(), "failed")
	RecordError(failed, assert.AnError)
	failed.End()

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	require.Len(t, spans[1].Events(), 1)
	assert.Equal(t, "exception", spans[1].Events()[0].Name)
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	return string(data), err
}
