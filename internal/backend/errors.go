package backend

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a generation failure for retry handling.
type ErrorKind string

const (
	// KindRateLimited means the provider rejected the call for quota
	// reasons (HTTP 429). Retried with exponential backoff.
	KindRateLimited ErrorKind = "rate_limited"

	// KindTransient covers timeouts, connection resets, and 5xx
	// responses. Retried with a short linear backoff.
	KindTransient ErrorKind = "transient"

	// KindFatal covers auth failures, malformed requests, and empty
	// responses. Never retried.
	KindFatal ErrorKind = "fatal"
)

// Error is the tagged failure type every Backend returns. The retry
// policy keys off Kind; everything else is for logs.
type Error struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// RateLimited builds a rate-limit error.
func RateLimited(msg string, retryAfter time.Duration) *Error {
	return &Error{Kind: KindRateLimited, Message: msg, RetryAfter: retryAfter}
}

// Transient builds a retryable error wrapping cause.
func Transient(msg string, cause error) *Error {
	return &Error{Kind: KindTransient, Message: msg, Err: cause}
}

// Fatal builds a non-retryable error.
func Fatal(msg string, cause error) *Error {
	return &Error{Kind: KindFatal, Message: msg, Err: cause}
}

// KindOf extracts the error kind. Untagged errors are treated as
// transient so unexpected failures still get the short retry path.
func KindOf(err error) ErrorKind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindTransient
}
