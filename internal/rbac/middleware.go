package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/sparkleops/sparkle-ops/internal/platform/httpx"
	"github.com/sparkleops/sparkle-ops/internal/shared"
)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Identify reads the actor headers set by the identity proxy and stores the
// actor in the request context. Requests without a valid identity pass through
// anonymous; the Require helpers reject them.
func (m Middleware) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(HeaderUserID))
		role := strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderRole)))
		if raw == "" || role == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Warn("rbac parse user id", slog.String("value", raw))
			}
			next.ServeHTTP(w, r)
			return
		}
		ctx := shared.ContextWithActor(r.Context(), shared.Actor{ID: id, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAny ensures the current actor has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return m.require(perms, hasAnyPermission, "rbac require any")
}

// RequireAll ensures the current actor has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return m.require(perms, hasAllPermissions, "rbac require all")
}

func (m Middleware) require(perms []string, check func(granted, required []string) bool, op string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			actor, ok := shared.ActorFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
				return
			}
			granted, err := m.Service.EffectivePermissions(r.Context(), actor.Role)
			if err != nil {
				if errors.Is(err, shared.ErrForbidden) {
					httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
					return
				}
				if m.Logger != nil {
					m.Logger.Error(op, slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if check(granted, normalized) {
				next.ServeHTTP(w, r)
				return
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing permission")
		})
	}
}

// HasPermission reports whether the actor's role grants perm.
func (m Middleware) HasPermission(actor shared.Actor, perm string) bool {
	granted, err := m.Service.EffectivePermissions(context.Background(), actor.Role)
	if err != nil {
		return false
	}
	return hasAnyPermission(granted, normalizePermissions([]string{perm}))
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}

func hasAnyPermission(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

func hasAllPermissions(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}
