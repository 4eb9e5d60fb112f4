package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a quotes operation failed.
type ErrorKind int

const (
	// KindUnknown is reported for errors that did not come from a quotes operation.
	KindUnknown ErrorKind = iota

	// KindTransport covers unreachable hosts, timeouts, open circuits and exhausted retries.
	KindTransport

	// KindStatus covers any non-2xx response from the Quotes Service.
	KindStatus

	// KindDecode covers malformed or unexpectedly shaped response payloads.
	KindDecode

	// KindValidation covers input rejected before any network interaction.
	KindValidation
)

// String returns the lowercase name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Operation names used in QuoteError.Op.
const (
	OpListQuotes  = "list quotes"
	OpCreateQuote = "create quote"
)

// QuoteError is the failure result of a quotes operation.
// Err holds the underlying cause, usually one of the typed domain errors
// above, so errors.Is(err, ErrForbidden) keeps working through it.
type QuoteError struct {
	Kind       ErrorKind
	Op         string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *QuoteError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s: %s error (HTTP %d): %v", e.Op, e.Kind, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
}

// Unwrap returns the underlying cause.
func (e *QuoteError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps a transport-level failure.
func NewTransportError(op string, err error) error {
	return &QuoteError{Kind: KindTransport, Op: op, Err: err}
}

// NewStatusError wraps a non-2xx response.
func NewStatusError(op string, status int, err error) error {
	return &QuoteError{Kind: KindStatus, Op: op, StatusCode: status, Err: err}
}

// NewDecodeError wraps a payload decoding failure.
func NewDecodeError(op string, err error) error {
	return &QuoteError{Kind: KindDecode, Op: op, Err: err}
}

// NewInputError wraps input rejected before the network was touched.
func NewInputError(op string, err error) error {
	return &QuoteError{Kind: KindValidation, Op: op, Err: err}
}

// KindOf returns the ErrorKind carried by err, or KindUnknown.
func KindOf(err error) ErrorKind {
	var qe *QuoteError
	if errors.As(err, &qe) {
		return qe.Kind
	}

	return KindUnknown
}
