package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/couchcryptid/turbine-dashboard/internal/auth"
	"github.com/couchcryptid/turbine-dashboard/internal/backend"
	"github.com/couchcryptid/turbine-dashboard/internal/domain"
	"github.com/gorilla/mux"
)

// maxProxyBytes caps relayed JSON responses.
const maxProxyBytes = 16 << 20

// forwardAuthorization makes backend calls made on behalf of the request
// carry the caller's Authorization header.
func forwardAuthorization(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h := r.Header.Get("Authorization"); h != "" {
			r = r.WithContext(backend.WithAuthorization(r.Context(), h))
		}
		next.ServeHTTP(w, r)
	})
}

func workOrdersPath(r *http.Request) string {
	return withQuery("/api/1/workorders", r.URL.RawQuery)
}

func workOrderPath(r *http.Request) string {
	return "/api/1/workorders/" + url.PathEscape(mux.Vars(r)["id"])
}

func commentsPath(r *http.Request) string {
	return withQuery("/api/1/workorders/"+url.PathEscape(mux.Vars(r)["id"])+"/comments", r.URL.RawQuery)
}

func withQuery(path, rawQuery string) string {
	if rawQuery == "" {
		return path
	}
	return path + "?" + rawQuery
}

// proxyGET relays a backend GET. Backend error statuses keep their code with
// the upstream body as the message.
func (s *Server) proxyGET(path func(*http.Request) string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.relay(w, r, http.MethodGet, path(r), nil)
	})
}

func (s *Server) relay(w http.ResponseWriter, r *http.Request, method, path string, body io.Reader) {
	resp, err := s.deps.Backend.Forward(r.Context(), method, path, r.Header, body)
	if err != nil {
		s.logger.Error("backend proxy failed", "error", err, "method", method, "path", path)
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Error:   "Internal server error",
			Message: err.Error(),
			Class:   domain.Classify(err),
		})
		return
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxProxyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "read backend response", Message: err.Error(), Class: domain.ClassNetwork})
		return
	}
	if resp.StatusCode >= 300 {
		apiErr := &domain.APIError{Status: resp.StatusCode, StatusText: resp.Status, Body: string(data)}
		writeJSON(w, resp.StatusCode, errorBody{
			Error:   fmt.Sprintf("Backend error: %d", resp.StatusCode),
			Message: string(data),
			Class:   domain.Classify(apiErr),
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(data)
}

// handleStreamProxy relays the backend power-output stream. Upstream
// failures become a terminal "error" event so EventSource clients see them.
func (s *Server) handleStreamProxy(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	flusher, _ := w.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}

	ctx := r.Context()
	resp, err := s.deps.Backend.OpenStream(ctx, r.URL.RawQuery, r.Header)
	if err == nil && resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		err = &domain.APIError{Status: resp.StatusCode, StatusText: resp.Status}
	}
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("stream proxy upstream failed", "error", err)
		}
		w.WriteHeader(http.StatusOK)
		writeStreamError(w, err)
		flush()
		return
	}
	defer resp.Body.Close()

	w.WriteHeader(http.StatusOK)
	flush()

	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return
			}
			flush()
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) && ctx.Err() == nil {
				s.logger.Warn("stream proxy upstream read failed", "error", readErr)
				writeStreamError(w, readErr)
				flush()
			}
			return
		}
	}
}

func writeStreamError(w io.Writer, err error) {
	data, _ := json.Marshal(map[string]string{"message": err.Error()})
	fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
}

// handleRoleUpdate validates a role change for the caller and relays it.
func (s *Server) handleRoleUpdate(w http.ResponseWriter, r *http.Request) {
	var u auth.RoleUpdate
	if err := decodeJSON(w, r, &u); err != nil {
		writeError(w, err, "Invalid request.")
		return
	}
	if err := auth.ValidateRoleUpdate(auth.FromContext(r.Context()), u); err != nil {
		writeError(w, err, "Role update rejected.")
		return
	}

	body, err := json.Marshal(u)
	if err != nil {
		writeError(w, err, "Role update failed.")
		return
	}
	s.relay(w, r, http.MethodPatch, "/api/1/users/roles", bytes.NewReader(body))
}
