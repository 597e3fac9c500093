package twitter

import (
	"errors"
	"fmt"
)

// ErrorKind classifies Twitter API failures
type ErrorKind int

const (
	// KindOther covers unclassified API failures
	KindOther ErrorKind = iota
	// KindRateLimited means the API returned 429
	KindRateLimited
	// KindAuth means credentials were rejected
	KindAuth
	// KindDuplicate means Twitter refused the tweet as duplicate content
	KindDuplicate
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindAuth:
		return "auth"
	case KindDuplicate:
		return "duplicate"
	default:
		return "api_error"
	}
}

// Error represents a classified Twitter API error
type Error struct {
	Detail     string
	Kind       ErrorKind
	StatusCode int
}

func (e *Error) Error() string {
	return fmt.Sprintf("twitter %s (status %d): %s", e.Kind, e.StatusCode, e.Detail)
}

// IsDuplicate reports whether the error is a duplicate-content rejection
func IsDuplicate(err error) bool {
	var terr *Error
	return errors.As(err, &terr) && terr.Kind == KindDuplicate
}

// IsRateLimited reports whether the error is a 429 response
func IsRateLimited(err error) bool {
	var terr *Error
	return errors.As(err, &terr) && terr.Kind == KindRateLimited
}
