package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/couchcryptid/turbine-dashboard/internal/auth"
	"github.com/couchcryptid/turbine-dashboard/internal/domain"
)

// maxBodyBytes caps request bodies decoded by the API.
const maxBodyBytes = 1 << 20

type errorBody struct {
	Error   string              `json:"error"`
	Message string              `json:"message,omitempty"`
	Class   domain.ErrorClass   `json:"class,omitempty"`
	Fields  []domain.FieldError `json:"fields,omitempty"`
}

// writeError renders err with a status derived from its class.
func writeError(w http.ResponseWriter, err error, fallback string) {
	body := errorBody{
		Error:   err.Error(),
		Message: domain.ErrorMessage(err, fallback),
		Class:   domain.Classify(err),
	}
	var verr domain.ValidationErrors
	if errors.As(err, &verr) {
		body.Fields = verr
	}
	writeJSON(w, statusFor(err), body)
}

func statusFor(err error) int {
	var apiErr *domain.APIError
	switch {
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.As(err, &apiErr):
		if apiErr.Network || apiErr.BackendDown() {
			return http.StatusBadGateway
		}
		if apiErr.Status >= 400 {
			return apiErr.Status
		}
		return http.StatusBadGateway
	}
	switch domain.Classify(err) {
	case domain.ClassValidation:
		return http.StatusBadRequest
	case domain.ClassNotFound:
		return http.StatusNotFound
	case domain.ClassNoData:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return domain.ValidationErrors{{Field: "body", Message: fmt.Sprintf("invalid JSON body: %v", err)}}
	}
	return nil
}

// recoverPanics turns a handler panic into a JSON 500 the UI can offer a
// retry for.
func recoverPanics(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logger.Error("handler panic", "panic", rec, "method", r.Method, "path", r.URL.Path)
			writeJSON(w, http.StatusInternalServerError, errorBody{
				Error:   "internal error",
				Message: "Something went wrong. Please try again.",
				Class:   domain.ClassOther,
			})
		}()
		next.ServeHTTP(w, r)
	})
}
