package search

import (
	"errors"
	"fmt"
)

// ErrAlreadyStarted is returned by Run when the task has already been run.
var ErrAlreadyStarted = errors.New("search: task already started")

// ConfigurationError reports an invalid task setting detected at
// construction. No worker is started when one is returned.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("search: invalid %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func configError(field string, err error) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: err.Error(), Err: err}
}
