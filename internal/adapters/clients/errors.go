// Package clients provides the instrumented HTTP client used to reach the Quotes Service.
package clients

import "errors"

// Client errors are infrastructure failures. The acl package translates them
// into domain errors.
var (
	// ErrCircuitOpen is returned without a network call while the breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrRequestFailed wraps the last transport error once attempts are exhausted.
	ErrRequestFailed = errors.New("request failed")

	// ErrRateLimited is returned when the context ends while waiting for the limiter.
	ErrRateLimited = errors.New("rate limited")
)
