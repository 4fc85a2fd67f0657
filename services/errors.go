package services

import (
	"errors"
	"fmt"
	"time"
)

// ErrAggregationTimeout is reported when a synchronous download reaches no terminal state in time
var ErrAggregationTimeout = errors.New("aggregation timed out")

// ValidationError is a malformed client request, rejected before any network call
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid request: %s", e.Reason)
	}
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}

// RemoteTimeoutError means the outbound connection exceeded the configured timeout
type RemoteTimeoutError struct {
	Timeout time.Duration
	Cause   error
}

func (e *RemoteTimeoutError) Error() string {
	return fmt.Sprintf("remote stream timed out after %s", e.Timeout)
}

func (e *RemoteTimeoutError) Unwrap() error { return e.Cause }

// RemoteHTTPError means the remote service answered with a non-success status
type RemoteHTTPError struct {
	StatusCode int
	Body       string // truncated excerpt
}

func (e *RemoteHTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("remote service returned status %d: %s", e.StatusCode, e.Body)
}

// StreamTransportError means the connection failed or dropped mid-stream
type StreamTransportError struct {
	Cause error
}

func (e *StreamTransportError) Error() string {
	return fmt.Sprintf("stream transport error: %v", e.Cause)
}

func (e *StreamTransportError) Unwrap() error { return e.Cause }

// IsRemoteError reports whether err came from talking to the remote service
func IsRemoteError(err error) bool {
	var timeoutErr *RemoteTimeoutError
	var httpErr *RemoteHTTPError
	var transportErr *StreamTransportError
	return errors.As(err, &timeoutErr) || errors.As(err, &httpErr) || errors.As(err, &transportErr)
}
