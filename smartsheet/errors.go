package smartsheet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// Smartsheet error codes that ask the caller to retry later.
var transientCodes = map[int]struct{}{
	4001: {}, // system maintenance
	4002: {}, // server timeout
	4003: {}, // rate limit exceeded
	4004: {}, // unexpected error, retry
}

// APIError is a non-2xx response from the Smartsheet API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	ErrorCode  int    `json:"errorCode"`
	Message    string `json:"message"`
	RefID      string `json:"refId"`
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	apiErr := &APIError{Method: method, Path: path, StatusCode: status}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

func (e *APIError) Error() string {
	text := fmt.Sprintf("request %s %s failed with status %d", e.Method, e.Path, e.StatusCode)
	if e.ErrorCode != 0 {
		text += fmt.Sprintf(" (error code %d)", e.ErrorCode)
	}
	if e.Message != "" {
		text += ": " + e.Message
	}
	return text
}

// Transient reports whether the request may succeed when repeated.
func (e *APIError) Transient() bool {
	if _, ok := transientCodes[e.ErrorCode]; ok {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// IsTransient classifies err as a retryable remote failure. Cancellation is
// never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
