package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrBadRequest       = errors.New("backend rejected the request")
	ErrUnauthorized     = errors.New("backend session is not valid")
	ErrForbidden        = errors.New("not allowed by backend")
	ErrNotFound         = errors.New("not found on backend")
	ErrConflict         = errors.New("backend state conflict")
	ErrPayloadTooLarge  = errors.New("payload too large")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrUnavailable      = errors.New("backend unavailable")
)

// APIError is a failed backend call. Kind is one of the sentinel errors
// above and is what errors.Is matches against.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
	Kind    error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %v: %s", e.Method, e.Path, e.Kind, e.Message)
	}
	if e.Message == "" {
		return fmt.Sprintf("%s %s: %d: %v", e.Method, e.Path, e.Status, e.Kind)
	}
	return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.Kind }

func kindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusConflict:
		return ErrConflict
	case status == http.StatusRequestEntityTooLarge:
		return ErrPayloadTooLarge
	case status == http.StatusUnsupportedMediaType:
		return ErrUnsupportedMedia
	case status >= 500:
		return ErrUnavailable
	default:
		return ErrBadRequest
	}
}
