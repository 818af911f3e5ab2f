package main

import (
	"errors"

	"hashsearch/internal/digest"
	"hashsearch/internal/pattern"
	"hashsearch/internal/search"
)

// ExitCodeError wraps an error with a specific process exit code. A nil Err
// exits silently.
type ExitCodeError struct {
	Code int
	Err  error
}

func (e *ExitCodeError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitCodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// usageError maps bad input (patterns, digests, settings) to exit code 2 and
// leaves other errors alone.
func usageError(err error) error {
	if err == nil {
		return nil
	}
	var (
		compileErr *pattern.CompileError
		configErr  *search.ConfigurationError
	)
	switch {
	case errors.As(err, &compileErr),
		errors.As(err, &configErr),
		errors.Is(err, digest.ErrUnsupportedAlgorithm),
		errors.Is(err, digest.ErrInvalidTarget),
		errors.Is(err, digest.ErrTargetLength):
		return &ExitCodeError{Code: exitUsage, Err: err}
	}
	return err
}
