package observability

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	instrumentationName   = "hashsearch"
	defaultOTLPEndpoint   = "localhost:4318"
	defaultZipkinEndpoint = "http://localhost:9411/api/v2/spans"
)

// TracingConfig configures span export.
type TracingConfig struct {
	Enabled        bool    `yaml:"enabled"`
	Exporter       string  `yaml:"exporter"` // otlp, zipkin
	OTLPEndpoint   string  `yaml:"otlp_endpoint"`
	ZipkinEndpoint string  `yaml:"zipkin_endpoint"`
	SampleRate     float64 `yaml:"sample_rate"` // 0.0 to 1.0
	ServiceName    string  `yaml:"service_name"`
	ServiceVersion string  `yaml:"service_version"`
}

// TracerProvider owns the SDK provider, if any, and hands out the tracer.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewTracerProvider builds a provider exporting to OTLP over HTTP or Zipkin
// and installs it globally. A disabled config yields a noop tracer so callers
// never branch on it.
func NewTracerProvider(config TracingConfig) (*TracerProvider, error) {
	if !config.Enabled {
		return &TracerProvider{tracer: noop.NewTracerProvider().Tracer(instrumentationName)}, nil
	}

	ctx := context.Background()
	exporter, err := newSpanExporter(ctx, config)
	if err != nil {
		return nil, err
	}

	serviceName := config.ServiceName
	if serviceName == "" {
		serviceName = instrumentationName
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(config.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	rate := config.SampleRate
	if rate <= 0 || rate > 1.0 {
		rate = 1.0
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))),
	)
	otel.SetTracerProvider(provider)

	return &TracerProvider{provider: provider, tracer: provider.Tracer(instrumentationName)}, nil
}

func newSpanExporter(ctx context.Context, config TracingConfig) (sdktrace.SpanExporter, error) {
	var (
		exporter sdktrace.SpanExporter
		err      error
	)
	switch strings.ToLower(config.Exporter) {
	case "", "otlp":
		endpoint := config.OTLPEndpoint
		if endpoint == "" {
			endpoint = defaultOTLPEndpoint
		}
		exporter, err = otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(endpoint),
			otlptracehttp.WithInsecure(),
		)
	case "zipkin":
		endpoint := config.ZipkinEndpoint
		if endpoint == "" {
			endpoint = defaultZipkinEndpoint
		}
		exporter, err = zipkin.New(endpoint)
	default:
		return nil, fmt.Errorf("unsupported trace exporter %q (want otlp or zipkin)", config.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s exporter: %w", config.Exporter, err)
	}
	return exporter, nil
}

// Shutdown flushes pending spans.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider == nil {
		return nil
	}
	return tp.provider.Shutdown(ctx)
}

// Tracer returns the hashsearch tracer.
func (tp *TracerProvider) Tracer() trace.Tracer {
	return tp.tracer
}

// Span names.
const (
	SpanTaskRun    = "hashsearch.task.run"
	SpanHTTPServer = "hashsearch.http.request"
)

// Span attribute keys.
const (
	TaskIDKey     = attribute.Key("hashsearch.task_id")
	AlgorithmKey  = attribute.Key("hashsearch.algorithm")
	PatternKey    = attribute.Key("hashsearch.pattern")
	ModeKey       = attribute.Key("hashsearch.mode")
	WorkersKey    = attribute.Key("hashsearch.workers")
	SpaceSizeKey  = attribute.Key("hashsearch.space_size")
	MatchedKey    = attribute.Key("hashsearch.matched")
	ExhaustedKey  = attribute.Key("hashsearch.exhausted")
	CandidatesKey = attribute.Key("hashsearch.candidates")
)

// TaskAttrs describes a task when its span starts. Sizes are recorded as
// decimal strings because they routinely exceed int64.
func TaskAttrs(taskID, algorithm, pattern, mode string, workers int, spaceSize *big.Int) []attribute.KeyValue {
	return []attribute.KeyValue{
		TaskIDKey.String(taskID),
		AlgorithmKey.String(algorithm),
		PatternKey.String(pattern),
		ModeKey.String(mode),
		WorkersKey.Int(workers),
		SpaceSizeKey.String(spaceSize.String()),
	}
}

// OutcomeAttrs describes how a task ended.
func OutcomeAttrs(matched, exhausted bool, candidates *big.Int) []attribute.KeyValue {
	return []attribute.KeyValue{
		MatchedKey.Bool(matched),
		ExhaustedKey.Bool(exhausted),
		CandidatesKey.String(candidates.String()),
	}
}

// RecordError marks span failed with err. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
