package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
)

// Role is a caller role asserted by the upstream proxy.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ReadRoles is the role list for read-only cluster endpoints.
var ReadRoles = []Role{RoleAdmin, RoleUser}

type userKey struct{}

// WithUser returns a copy of ctx carrying the caller's user name.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the caller's user name, if one was recorded.
func UserFromContext(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(userKey{}).(string)
	return u, ok && u != ""
}

// HTTPPolicy enforces API key and role checks on REST routes.
type HTTPPolicy struct {
	Mode       string
	Header     string
	Key        string
	RoleHeader string
	UserHeader string
}

// Require wraps next so that only callers with one of roles reach it.
// The user header, when present, is copied into the request context
// whether or not enforcement is enabled.
func (p HTTPPolicy) Require(roles []Role, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if enabled(p.Mode, p.Key) {
			if !keyMatches(r.Header.Get(p.Header), p.Key) {
				deny(w, http.StatusUnauthorized, "invalid api key")
				return
			}
			role := Role(strings.ToLower(strings.TrimSpace(r.Header.Get(p.RoleHeader))))
			if !slices.Contains(roles, role) {
				deny(w, http.StatusForbidden, "role not permitted")
				return
			}
		}
		if p.UserHeader != "" {
			if u := strings.TrimSpace(r.Header.Get(p.UserHeader)); u != "" {
				r = r.WithContext(WithUser(r.Context(), u))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
