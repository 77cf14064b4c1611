package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error kinds every failed call is normalized into
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not found")
	ErrNetwork            = errors.New("network error")
	// ErrValidation means the API answered with a body of the wrong shape
	ErrValidation = errors.New("validation error")
	// ErrBadRequest means the API refused the request itself (400, 422)
	ErrBadRequest = errors.New("bad request")
	ErrServer     = errors.New("server error")
)

// APIError is a normalized call API failure
type APIError struct {
	Kind       error
	Message    string
	StatusCode int // 0 when no response arrived
	Details    any
	cause      error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As
func (e *APIError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Kind, e.cause}
	}
	return []error{e.Kind}
}

// errorBody is the error schema of the call API
type errorBody struct {
	Message string `json:"message"`
	Detail  any    `json:"detail"`
	Error   string `json:"error"`
}

// message picks the first usable field: message, detail, error
func (b *errorBody) message() string {
	if m := strings.TrimSpace(b.Message); m != "" {
		return m
	}
	switch d := b.Detail.(type) {
	case string:
		if m := strings.TrimSpace(d); m != "" {
			return m
		}
	case []any:
		// FastAPI validation detail: [{"msg": ...}]
		if len(d) > 0 {
			if first, ok := d[0].(map[string]any); ok {
				if msg, ok := first["msg"].(string); ok && msg != "" {
					return msg
				}
			}
		}
	}
	return strings.TrimSpace(b.Error)
}

// kindForStatus maps an HTTP status to an error kind
func kindForStatus(status int, authenticated bool) error {
	switch {
	case status == http.StatusUnauthorized && !authenticated:
		return ErrInvalidCredentials
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return ErrBadRequest
	default:
		return ErrServer
	}
}

func statusText(status int) string {
	if t := http.StatusText(status); t != "" {
		return t
	}
	return "Request failed"
}

// Message returns a human readable message for any error, preferring the API's own
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
