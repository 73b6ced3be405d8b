// Package model holds the data types shared across the core subsystems:
// instances, service snapshots, breaker status records, timing tasks, and
// the error taxonomy used to report outcomes between them.
package model

import "errors"

// ReturnCode is the error taxonomy shared across detectors and reporting
// paths: a small int enum wrapped in sentinel errors so callers can use
// errors.Is/As normally.
type ReturnCode int

const (
	// ReturnOk indicates success.
	ReturnOk ReturnCode = iota
	// ReturnInvalidConfig indicates malformed config, an unknown plugin
	// name, or a hex decode failure.
	ReturnInvalidConfig
	// ReturnNetworkFailed indicates a connect/send/recv errno or timeout
	// at the transport level.
	ReturnNetworkFailed
	// ReturnServerError indicates a probe connected but the response did
	// not match the configured expectation.
	ReturnServerError
	// ReturnTimeout indicates an operation did not complete within its
	// deadline.
	ReturnTimeout
	// ReturnNotInitialized indicates an API was used before setup
	// completed.
	ReturnNotInitialized
	// ReturnInternalError indicates a violated invariant.
	ReturnInternalError
)

func (c ReturnCode) String() string {
	switch c {
	case ReturnOk:
		return "Ok"
	case ReturnInvalidConfig:
		return "InvalidConfig"
	case ReturnNetworkFailed:
		return "NetworkFailed"
	case ReturnServerError:
		return "ServerError"
	case ReturnTimeout:
		return "Timeout"
	case ReturnNotInitialized:
		return "NotInitialized"
	case ReturnInternalError:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// Error implements the error interface so a ReturnCode can be returned or
// compared directly with errors.Is against the sentinels below.
func (c ReturnCode) Error() string { return "polaris: " + c.String() }

// Sentinel errors, one per ReturnCode, so errors.Is(err, model.ErrTimeout)
// style checks work without type-asserting ReturnCode everywhere.
var (
	ErrInvalidConfig  = ReturnInvalidConfig
	ErrNetworkFailed  = ReturnNetworkFailed
	ErrServerError    = ReturnServerError
	ErrTimeout        = ReturnTimeout
	ErrNotInitialized = ReturnNotInitialized
	ErrInternal       = ReturnInternalError
)

// ReportCode is the call-result code surfaced by call-result reporting
//. Any non-Ok code increments the breaker's failure counter.
type ReportCode int

const (
	// ReportOk resets (Closed) or contributes to success_count (HalfOpen).
	ReportOk ReportCode = iota
	// ReportError is a call failure.
	ReportError
	// ReportTimeout is a call that did not complete in time.
	ReportTimeout
)

// IsFailure reports whether the code should be treated as a breaker
// failure event.
func (c ReportCode) IsFailure() bool { return c != ReportOk }

// AsError wraps a ReturnCode with additional context, preserving
// errors.Is/As compatibility with the underlying ReturnCode sentinel.
func AsError(code ReturnCode, context string) error {
	if code == ReturnOk {
		return nil
	}
	return &wrappedError{code: code, context: context}
}

type wrappedError struct {
	code    ReturnCode
	context string
}

func (e *wrappedError) Error() string {
	if e.context == "" {
		return e.code.Error()
	}
	return e.code.Error() + ": " + e.context
}

func (e *wrappedError) Unwrap() error { return e.code }

func (e *wrappedError) Is(target error) bool {
	var rc ReturnCode
	if errors.As(target, &rc) {
		return e.code == rc
	}
	return false
}
