// Package upstream provides the HTTP client for the remote assistant
// backend: retry with exponential backoff, a TTL response cache for GET
// requests, and typed endpoint wrappers.
package upstream

import (
	"errors"
	"fmt"
)

// APIError is a non-2xx response from the assistant backend. Detail
// carries the body's detail field verbatim when present.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("upstream returned %d", e.Status)
}

// IsRetryable reports whether the status indicates a transient server
// failure. Client errors (4xx) never retry.
func (e *APIError) IsRetryable() bool {
	return e.Status >= 500
}

// TransportError wraps a connectivity failure (DNS, refused connection,
// timeout). Always retryable.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("upstream unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsConnectivityError reports whether err is a transport-level failure
// rather than an API-reported one
func IsConnectivityError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// StatusOf extracts the HTTP status from an API error, or 0 for
// transport failures
func StatusOf(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}
