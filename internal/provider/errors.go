package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// Provider failure taxonomy. Rate limiting and general unavailability are
// transient; bad credentials are an operator problem and must never be
// retried silently.
var (
	ErrRateLimited         = errors.New("provider rate limited")
	ErrInvalidCredentials  = errors.New("provider credentials missing or invalid")
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// RequestError is a 400-equivalent rejection; the upstream message is kept
// so the operator can see what the provider objected to.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("provider rejected request (status %d): %s", e.StatusCode, e.Message)
}

// classifyStatus maps an HTTP status to the provider error taxonomy.
func classifyStatus(status int, body string) error {
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w (status %d)", ErrRateLimited, status)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w (status %d)", ErrInvalidCredentials, status)
	case status == http.StatusBadRequest:
		return &RequestError{StatusCode: status, Message: body}
	default:
		return fmt.Errorf("%w (status %d): %s", ErrProviderUnavailable, status, body)
	}
}

// retryable reports whether an error is worth retrying on the same
// configuration. Credential and request-shape errors are not.
func retryable(err error) bool {
	if errors.Is(err, ErrInvalidCredentials) {
		return false
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return false
	}
	return true
}
