package price

import (
	"errors"
	"fmt"
)

// ErrorKind classifies price provider failures
type ErrorKind int

const (
	KindTransport ErrorKind = iota
	KindRateLimited
	KindProvider
	KindParse
)

// String returns the kind name
func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindRateLimited:
		return "rate_limited"
	case KindProvider:
		return "provider_error"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// Error is a typed price provider error
type Error struct {
	Err  error
	Kind ErrorKind
}

func (e *Error) Error() string {
	return fmt.Sprintf("coingecko %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether err is an HTTP 429 from the provider
func IsRateLimited(err error) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Kind == KindRateLimited
}

// retryable reports whether the call may be retried within the same cycle
func retryable(err error) bool {
	var perr *Error
	if !errors.As(err, &perr) {
		return false
	}
	return perr.Kind == KindTransport || perr.Kind == KindRateLimited
}
