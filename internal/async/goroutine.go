// Package async runs background work with panic recovery so a failing
// goroutine is logged instead of taking the process down.
package async

import (
	"fmt"
	"runtime/debug"
)

// PanicLogger captures panic reports from background goroutines.
type PanicLogger interface {
	Error(format string, args ...any)
}

// PanicError is returned by Guard when the wrapped function panicked.
type PanicError struct {
	Name  string
	Value any
}

func (e *PanicError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("panic: %v", e.Value)
	}
	return fmt.Sprintf("panic in %s: %v", e.Name, e.Value)
}

// Go runs fn in a goroutine guarded by panic recovery.
func Go(logger PanicLogger, name string, fn func()) {
	go func() {
		defer Recover(logger, name)
		fn()
	}()
}

// Recover logs panic details without crashing the process.
func Recover(logger PanicLogger, name string) {
	if r := recover(); r != nil {
		logPanic(logger, name, r)
	}
}

// Guard wraps fn for use with errgroup and similar runners: a panic is
// logged and returned as a *PanicError instead of unwinding further.
func Guard(logger PanicLogger, name string, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				logPanic(logger, name, r)
				err = &PanicError{Name: name, Value: r}
			}
		}()
		return fn()
	}
}

func logPanic(logger PanicLogger, name string, r any) {
	if logger == nil {
		return
	}
	if name == "" {
		logger.Error("goroutine panic: %v, stack: %s", r, debug.Stack())
		return
	}
	logger.Error("goroutine panic [%s]: %v, stack: %s", name, r, debug.Stack())
}
