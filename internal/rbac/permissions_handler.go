package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sparkleops/sparkle-ops/internal/platform/httpx"
	"github.com/sparkleops/sparkle-ops/internal/shared"
)

// PermissionsHandler exposes the caller's effective permissions.
type PermissionsHandler struct {
	logger  *slog.Logger
	service *Service
}

// NewPermissionsHandler constructs the handler.
func NewPermissionsHandler(logger *slog.Logger, service *Service) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, service: service}
}

// MountRoutes registers the identity endpoints.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Get("/me", h.me)
}

type meResponse struct {
	Actor       shared.Actor `json:"actor"`
	Permissions []string     `json:"permissions"`
}

func (h *PermissionsHandler) me(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}
	perms, err := h.service.EffectivePermissions(r.Context(), actor.Role)
	if err != nil {
		h.logger.Warn("resolve permissions", slog.Any("error", err), slog.String("role", actor.Role))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, meResponse{Actor: actor, Permissions: perms})
}
