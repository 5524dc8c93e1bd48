package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind classifies a request failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidRequest
	KindNetwork
	KindDecoding
	KindAuthenticationRequired
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindNetwork:
		return "network"
	case KindDecoding:
		return "decoding"
	case KindAuthenticationRequired:
		return "auth_required"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by the pipeline.
type Error struct {
	Kind       Kind
	StatusCode int    // HTTP status for KindServer and KindAuthenticationRequired
	Message    string // Best-effort server message, empty if none
	Body       []byte
	Err        error // Underlying cause
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrInvalidRequest         = &Error{Kind: KindInvalidRequest}
	ErrNetwork                = &Error{Kind: KindNetwork}
	ErrDecoding               = &Error{Kind: KindDecoding}
	ErrAuthenticationRequired = &Error{Kind: KindAuthenticationRequired}
	ErrServer                 = &Error{Kind: KindServer}
	ErrUnknown                = &Error{Kind: KindUnknown}
)

func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidRequest:
		return "invalid request: " + causeText(e.Err)
	case KindNetwork:
		return "network error: " + causeText(e.Err)
	case KindDecoding:
		return "decoding error: " + causeText(e.Err)
	case KindAuthenticationRequired:
		return "authentication required"
	case KindServer:
		if e.Message == "" {
			return fmt.Sprintf("server error %d", e.StatusCode)
		}
		return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Message)
	default:
		return "unknown error: " + causeText(e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind, so errors.Is(err, ErrAuthenticationRequired) works for
// any authentication failure regardless of cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Retryable reports whether the failure is a connectivity or server-side
// problem. The pipeline never retries on its own.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindNetwork:
		return !errors.Is(e.Err, context.Canceled)
	case KindServer:
		return e.StatusCode >= 500
	default:
		return false
	}
}

// IsRetryableNetworkError reports whether err indicates the backend is
// unreachable or failing (drives the offline/server-down banner).
func IsRetryableNetworkError(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Retryable()
}

// KindOf returns the kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

func causeText(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}

// errorMessage extracts a human-readable message from an error body:
// "message" first, then "status", then the raw text.
func errorMessage(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := scalarText(payload["message"]); msg != "" {
			return msg
		}
		if status := scalarText(payload["status"]); status != "" {
			return status
		}
	}
	return strings.TrimSpace(string(body))
}

func scalarText(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
