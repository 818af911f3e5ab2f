package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/pflag"

	"hashsearch/internal/config"
	"hashsearch/internal/logging"
	"hashsearch/internal/observability"
	"hashsearch/internal/search"
)

// Container holds the process-wide collaborators a command needs.
type Container struct {
	Config        config.Loaded
	Observability observability.Config
	Logger        *observability.Logger
	Tracing       *observability.TracerProvider
	Metrics       *observability.MetricsCollector
	SearchMetrics *search.Metrics

	closers []func(context.Context) error
}

// buildContainer resolves configuration and wires logging, tracing and
// metrics. Logs go to logOut unless a log file is configured.
func buildContainer(opts *rootOptions, flags *pflag.FlagSet, flagKeys map[string]string, logOut io.Writer) (*Container, error) {
	loaded, err := config.Load(config.Options{
		File:     opts.configFile,
		Flags:    flags,
		FlagKeys: flagKeys,
	})
	if err != nil {
		return nil, &ExitCodeError{Code: exitUsage, Err: err}
	}

	obsCfg, err := observability.LoadConfig(loaded.File)
	if err != nil {
		return nil, &ExitCodeError{Code: exitUsage, Err: err}
	}
	if opts.logLevel != "" {
		obsCfg.Logging.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		obsCfg.Logging.Format = opts.logFormat
	}
	if opts.logFile != "" {
		obsCfg.Logging.File = opts.logFile
	}
	obsCfg.Tracing.ServiceVersion = appVersion()

	c := &Container{Config: loaded, Observability: obsCfg}

	logger, closer, err := observability.NewLoggerFromConfig(obsCfg.Logging, logOut)
	if err != nil {
		return nil, &ExitCodeError{Code: exitUsage, Err: err}
	}
	c.Logger = logger
	c.closers = append(c.closers, func(context.Context) error { return closer.Close() })

	tp, err := observability.NewTracerProvider(obsCfg.Tracing)
	if err != nil {
		_ = c.Cleanup()
		return nil, &ExitCodeError{Code: exitUsage, Err: fmt.Errorf("init tracing: %w", err)}
	}
	c.Tracing = tp
	c.closers = append(c.closers, tp.Shutdown)

	mc, err := observability.NewMetricsCollector(obsCfg.Metrics, logger)
	if err != nil {
		_ = c.Cleanup()
		return nil, &ExitCodeError{Code: exitUsage, Err: fmt.Errorf("init metrics: %w", err)}
	}
	c.Metrics = mc
	c.closers = append(c.closers, mc.Shutdown)
	if obsCfg.Metrics.Enabled {
		if err := mc.StartPrometheusServer(obsCfg.Metrics.PrometheusPort); err != nil {
			_ = c.Cleanup()
			return nil, &ExitCodeError{Code: exitUsage, Err: fmt.Errorf("start metrics server: %w", err)}
		}
	}

	c.SearchMetrics = search.DefaultMetrics()

	if loaded.File != "" {
		logger.Debug("configuration loaded", "file", loaded.File)
	}
	return c, nil
}

// Cleanup flushes exporters and closes the log file, in reverse order.
func (c *Container) Cleanup() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// ComponentLogger returns a printf-style logger for one component.
func (c *Container) ComponentLogger(component string) logging.Logger {
	return logging.New(c.Logger, component)
}
