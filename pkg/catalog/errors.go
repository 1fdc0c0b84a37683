package catalog

import (
	"errors"
	"fmt"
)

// Common errors returned by the catalog package.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrEmptySetCode is returned when FetchSet is called with an empty code.
	ErrEmptySetCode = errors.New("set code must not be empty")
)

// ErrorKind classifies a fetch fault so operators can tell a transient
// network issue apart from a permanently invalid set code.
type ErrorKind string

const (
	// ErrorKindNetwork covers transport faults and per-request timeouts.
	ErrorKindNetwork ErrorKind = "network"

	// ErrorKindRemoteStatus covers non-2xx responses from the catalog.
	ErrorKindRemoteStatus ErrorKind = "remote-status"

	// ErrorKindDecode covers malformed response bodies.
	ErrorKindDecode ErrorKind = "decode"
)

// Error is a classified catalog fetch fault for one set code.
type Error struct {
	SetCode    string
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("catalog %s error for set %s (status %d): %s",
			e.Kind, e.SetCode, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("catalog %s error for set %s: %v", e.Kind, e.SetCode, e.Err)
	}
	return fmt.Sprintf("catalog %s error for set %s: %s", e.Kind, e.SetCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the classification from a fetch error. Errors that did
// not originate in this package are transport-level by construction and
// report as network faults.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ErrorKindNetwork
}

// retryable reports whether a fetch fault is worth another attempt.
// Remote 4xx statuses are permanent (bad or unknown set code); 5xx and
// transport faults may clear up. Decode faults never improve on retry.
func retryable(err error) bool {
	var ce *Error
	if !errors.As(err, &ce) {
		return true
	}
	switch ce.Kind {
	case ErrorKindNetwork:
		return true
	case ErrorKindRemoteStatus:
		return ce.StatusCode >= 500
	default:
		return false
	}
}
