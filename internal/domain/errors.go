package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors shared across packages.
var (
	ErrNotFound        = errors.New("not found")
	ErrNoData          = errors.New("no data")
	ErrUnknownProvider = errors.New("unknown weather provider")
)

// ErrorClass groups errors by how the UI should present them.
type ErrorClass string

const (
	ClassNetwork     ErrorClass = "network"
	ClassBackendDown ErrorClass = "backend_down"
	ClassValidation  ErrorClass = "validation"
	ClassNoData      ErrorClass = "no_data"
	ClassNotFound    ErrorClass = "not_found"
	ClassOther       ErrorClass = "other"
)

// APIError describes a failed call to the fleet backend. Network is set when
// the request never produced a response.
type APIError struct {
	Status     int
	StatusText string
	Body       string
	Network    bool
	Err        error
}

func (e *APIError) Error() string {
	if e.Network {
		if e.Err != nil {
			return fmt.Sprintf("network error: %v", e.Err)
		}
		return "network error"
	}
	return fmt.Sprintf("API error %d: %s", e.Status, e.Body)
}

func (e *APIError) Unwrap() error { return e.Err }

// BackendDown reports a 5xx response: the connection works, the service does not.
func (e *APIError) BackendDown() bool {
	return !e.Network && e.Status >= http.StatusInternalServerError
}

// FieldError is one failed form check.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects every failed check of a form.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Classify buckets err for user-facing messages and metric labels.
func Classify(err error) ErrorClass {
	var apiErr *APIError
	var verr ValidationErrors
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		if apiErr.Network {
			return ClassNetwork
		}
		if apiErr.BackendDown() {
			return ClassBackendDown
		}
		if apiErr.Status == http.StatusNotFound {
			return ClassNotFound
		}
		return ClassOther
	case errors.As(err, &verr):
		return ClassValidation
	case errors.Is(err, ErrNoData):
		return ClassNoData
	case errors.Is(err, ErrNotFound):
		return ClassNotFound
	default:
		return ClassOther
	}
}

// ErrorMessage converts err into text suitable for an inline error banner.
func ErrorMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	switch Classify(err) {
	case ClassNetwork:
		return "Network connection failed. Please check your internet connection."
	case ClassBackendDown:
		return "Backend service is temporarily unavailable. Please try again later."
	case ClassNoData:
		return "No data available."
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
