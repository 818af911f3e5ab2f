package observability

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the observability section of the hashsearch config file:
//
//	observability:
//	  logging: {level: debug, format: json, file: /var/log/hashsearch.log}
//	  metrics: {enabled: true, prometheus_port: 9090}
//	  tracing: {enabled: true, exporter: zipkin, sample_rate: 0.1}
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	File   string `yaml:"file"`
}

// DefaultConfigPath returns ~/.hashsearch/hashsearch.yaml, or "" when the
// home directory is unknown.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".hashsearch", "hashsearch.yaml")
}

// DefaultConfig logs text at info level to stderr with metrics and tracing
// off.
func DefaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{PrometheusPort: 9090},
		Tracing: TracingConfig{
			Exporter:       "otlp",
			OTLPEndpoint:   defaultOTLPEndpoint,
			ZipkinEndpoint: defaultZipkinEndpoint,
			SampleRate:     1.0,
			ServiceName:    instrumentationName,
			ServiceVersion: "dev",
		},
	}
}

// LoadConfig decodes the observability section of path over the defaults;
// keys absent from the file keep their default. An empty path means
// DefaultConfigPath, and a missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	if path == "" {
		path = DefaultConfigPath()
	}
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return config, fmt.Errorf("failed to read config file: %w", err)
	}

	doc := struct {
		Observability Config `yaml:"observability"`
	}{Observability: config}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return config, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return doc.Observability.normalize(), nil
}

// normalize replaces out-of-range values with defaults.
func (c Config) normalize() Config {
	d := DefaultConfig()
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Metrics.PrometheusPort <= 0 || c.Metrics.PrometheusPort > 65535 {
		c.Metrics.PrometheusPort = d.Metrics.PrometheusPort
	}
	// A zero rate cannot be expressed here; disable tracing instead.
	if c.Tracing.SampleRate <= 0 || c.Tracing.SampleRate > 1.0 {
		c.Tracing.SampleRate = d.Tracing.SampleRate
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = d.Tracing.ServiceName
	}
	return c
}
