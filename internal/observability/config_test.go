package observability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "text", config.Logging.Format)
	assert.False(t, config.Metrics.Enabled)
	assert.Equal(t, 9090, config.Metrics.PrometheusPort)
	assert.False(t, config.Tracing.Enabled)
	assert.Equal(t, "otlp", config.Tracing.Exporter)
	assert.Equal(t, 1.0, config.Tracing.SampleRate)
	assert.Equal(t, "hashsearch", config.Tracing.ServiceName)
}

func TestLoadConfig_NonExistent(t *testing.T) {
	config, err := LoadConfig("/nonexistent/path/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), config)
}

func TestLoadConfig_ValidFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	configContent := `
search:
  workers: 4
observability:
  logging:
    level: debug
    format: json
    file: /tmp/hashsearch.log
  metrics:
    enabled: true
    prometheus_port: 8080
  tracing:
    enabled: true
    exporter: zipkin
    zipkin_endpoint: http://zipkin:9411/api/v2/spans
    sample_rate: 0.5
    service_name: hashsearch-test
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o644))

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
	assert.Equal(t, "/tmp/hashsearch.log", config.Logging.File)
	assert.True(t, config.Metrics.Enabled)
	assert.Equal(t, 8080, config.Metrics.PrometheusPort)
	assert.True(t, config.Tracing.Enabled)
	assert.Equal(t, "zipkin", config.Tracing.Exporter)
	assert.Equal(t, "http://zipkin:9411/api/v2/spans", config.Tracing.ZipkinEndpoint)
	assert.Equal(t, 0.5, config.Tracing.SampleRate)
	assert.Equal(t, "hashsearch-test", config.Tracing.ServiceName)
}

func TestLoadConfig_PartialFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	configContent := `
observability:
  logging:
    level: warn
  tracing:
    sample_rate: 7
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o644))

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "warn", config.Logging.Level)
	assert.Equal(t, "text", config.Logging.Format)
	assert.False(t, config.Metrics.Enabled)
	assert.Equal(t, 9090, config.Metrics.PrometheusPort)
	assert.Equal(t, 1.0, config.Tracing.SampleRate)
}

func TestLoadConfig_NormalizesValues(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "hashsearch.yaml")
	configContent := `
observability:
  logging:
    level: " DEBUG "
  metrics:
    prometheus_port: 70000
  tracing:
    service_name: ""
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o644))

	config, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, 9090, config.Metrics.PrometheusPort)
	assert.Equal(t, "hashsearch", config.Tracing.ServiceName)
}

func TestLoadConfig_NoObservabilitySection(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "hashsearch.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("search:\n  algorithm: sha1\n"), 0o644))

	config, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)
}

func TestDefaultConfigPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	assert.Equal(t, filepath.Join(home, ".hashsearch", "hashsearch.yaml"), DefaultConfigPath())
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("invalid: yaml: content: ["), 0o644))

	_, err := LoadConfig(configPath)
	assert.Error(t, err)
}
