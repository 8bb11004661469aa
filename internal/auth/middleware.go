package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

type principalKey struct{}

// DisabledPrincipal is attached to every request when verification is off.
var DisabledPrincipal = Principal{Subject: "local", Roles: []Role{RoleAdmin}}

// WithPrincipal stores p on ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal attached by Middleware.
func FromContext(ctx context.Context) Principal {
	p, _ := ctx.Value(principalKey{}).(Principal)
	return p
}

// Middleware attaches the caller's principal. A request without a bearer
// token continues anonymously; an invalid token is rejected with 401. When
// the verifier is disabled every request runs as DisabledPrincipal.
func Middleware(v *Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	if !v.Enabled() {
		logger.Warn("authentication disabled: AUTH_JWT_SECRET is not set, all requests run as admin")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !v.Enabled() {
				next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), DisabledPrincipal)))
				return
			}

			raw, ok := bearer(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			p, err := v.Parse(raw)
			if err != nil {
				logger.Debug("rejecting bearer token", "error", err, "path", r.URL.Path)
				deny(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// Require rejects requests whose principal holds none of roles: 401 when
// anonymous, 403 otherwise.
func Require(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := FromContext(r.Context())
			if !p.Authenticated() {
				deny(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if !p.HasRole(roles...) {
				deny(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
