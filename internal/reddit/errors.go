package reddit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a client failure for retry decisions.
type ErrorKind int

const (
	// KindTransport is a network-level failure (DNS, reset, timeout).
	KindTransport ErrorKind = iota
	// KindStatus is a non-2xx HTTP response.
	KindStatus
	// KindDecode is a response body that could not be decoded.
	KindDecode
	// KindInvalidRequest is a request rejected before sending, such as a malformed date window.
	KindInvalidRequest
)

// Error represents a failed Reddit or archive API call.
type Error struct {
	Op         string
	URL        string
	Kind       ErrorKind
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("reddit %s", e.Op)
	if e.URL != "" {
		msg += " " + e.URL
	}
	msg += ": " + e.Message
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Retryable reports whether repeating the call may succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTransport:
		return true
	case KindStatus:
		return e.StatusCode == http.StatusRequestTimeout ||
			e.StatusCode == http.StatusTooManyRequests ||
			e.StatusCode >= 500
	default:
		return false
	}
}

// IsRetryable reports whether err is a retryable *Error.
// Errors of other types are treated as retryable unless they are context errors.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var redditErr *Error
	if errors.As(err, &redditErr) {
		return redditErr.Retryable()
	}
	return true
}
