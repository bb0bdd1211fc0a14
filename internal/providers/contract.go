package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ErrDecode marks an upstream body that could not be decoded into the
// expected shape.
var ErrDecode = errors.New("decode upstream response")

// StatusError captures a non-success HTTP status from an upstream provider.
type StatusError struct {
	StatusCode     int
	Body           string
	RetryAfterSecs int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream error (status %d): %s", e.StatusCode, e.Body)
}

// ParseRetryAfter records a Retry-After header given in seconds. HTTP-date
// values are ignored.
func (e *StatusError) ParseRetryAfter(v string) {
	if v == "" {
		return
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
		e.RetryAfterSecs = secs
	}
}

// FailureKind tags an AggregationError.
type FailureKind string

const (
	FailureUnreachable FailureKind = "upstream_unreachable"
	FailureStatus      FailureKind = "upstream_status"
	FailureConfig      FailureKind = "config_missing"
	FailureUnexpected  FailureKind = "unexpected"
)

// AggregationError is a tagged failure for one upstream call or one
// endpoint's configuration.
type AggregationError struct {
	Kind     FailureKind
	Provider string
	Msg      string
	Err      error
}

func (e *AggregationError) Error() string {
	if e.Provider == "" {
		return e.Msg
	}
	return e.Provider + ": " + e.Msg
}

func (e *AggregationError) Unwrap() error { return e.Err }

// ConfigError reports that a required credential or identifier is missing.
func ConfigError(provider string, missing ...string) *AggregationError {
	return &AggregationError{
		Kind:     FailureConfig,
		Provider: provider,
		Msg:      "missing configuration: " + strings.Join(missing, ", "),
	}
}

// Classify maps an upstream call error onto the failure taxonomy. A nil err
// yields nil.
func Classify(provider string, err error) *AggregationError {
	if err == nil {
		return nil
	}
	var ae *AggregationError
	if errors.As(err, &ae) {
		return ae
	}

	var se *StatusError
	var ne net.Error
	switch {
	case errors.As(err, &se):
		return &AggregationError{Kind: FailureStatus, Provider: provider, Msg: fmt.Sprintf("upstream returned status %d", se.StatusCode), Err: err}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &AggregationError{Kind: FailureUnreachable, Provider: provider, Msg: "upstream timed out", Err: err}
	case errors.As(err, &ne):
		return &AggregationError{Kind: FailureUnreachable, Provider: provider, Msg: "upstream unreachable", Err: err}
	case errors.Is(err, ErrDecode):
		return &AggregationError{Kind: FailureUnexpected, Provider: provider, Msg: "malformed upstream response", Err: err}
	default:
		return &AggregationError{Kind: FailureUnreachable, Provider: provider, Msg: err.Error(), Err: err}
	}
}

// Result is the outcome of a single upstream call: either a value or a
// classified failure.
type Result[T any] struct {
	Value T
	Err   *AggregationError
}

// OK reports whether the call succeeded.
func (r Result[T]) OK() bool { return r.Err == nil }

// Succeeded wraps a value.
func Succeeded[T any](v T) Result[T] { return Result[T]{Value: v} }

// Failed wraps a failure.
func Failed[T any](err *AggregationError) Result[T] { return Result[T]{Err: err} }
