// Package logging defines the printf-style Logger that hashsearch components
// accept, backed in production by the structured observability logger.
package logging

import (
	"fmt"
	"reflect"

	"hashsearch/internal/observability"
)

// Logger is the logging contract components depend on. Messages are printf
// formats; structure is attached with With.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return nopLogger{}
}

// OrNop returns logger, or Nop when logger is nil or a typed nil pointer.
func OrNop(logger Logger) Logger {
	if logger == nil {
		return Nop()
	}
	if v := reflect.ValueOf(logger); v.Kind() == reflect.Pointer && v.IsNil() {
		return Nop()
	}
	return logger
}

// New adapts a structured logger. A non-empty component is attached to every
// record; a nil base yields Nop.
func New(base *observability.Logger, component string) Logger {
	if base == nil {
		return Nop()
	}
	if component != "" {
		base = base.With("component", component)
	}
	return &structured{base: base}
}

// With returns a logger that tags every line with key=value. Structured
// loggers record it as an attribute; any other logger gets a text prefix.
func With(logger Logger, key string, value any) Logger {
	logger = OrNop(logger)
	switch l := logger.(type) {
	case nopLogger:
		return l
	case *structured:
		return &structured{base: l.base.With(key, value)}
	default:
		return &prefixed{next: logger, prefix: fmt.Sprintf("%s=%v ", key, value)}
	}
}

type structured struct {
	base *observability.Logger
}

func (l *structured) Debug(format string, args ...any) { l.base.Debug(fmt.Sprintf(format, args...)) }
func (l *structured) Info(format string, args ...any)  { l.base.Info(fmt.Sprintf(format, args...)) }
func (l *structured) Warn(format string, args ...any)  { l.base.Warn(fmt.Sprintf(format, args...)) }
func (l *structured) Error(format string, args ...any) { l.base.Error(fmt.Sprintf(format, args...)) }

type prefixed struct {
	next   Logger
	prefix string
}

func (l *prefixed) Debug(format string, args ...any) { l.next.Debug(l.prefix+format, args...) }
func (l *prefixed) Info(format string, args ...any)  { l.next.Info(l.prefix+format, args...) }
func (l *prefixed) Warn(format string, args ...any)  { l.next.Warn(l.prefix+format, args...) }
func (l *prefixed) Error(format string, args ...any) { l.next.Error(l.prefix+format, args...) }
