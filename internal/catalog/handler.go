package catalog

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sparkleops/sparkle-ops/internal/platform/httpx"
	"github.com/sparkleops/sparkle-ops/internal/rbac"
	"github.com/sparkleops/sparkle-ops/internal/shared"
)

// Handler serves the service and add-on price lists.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers catalog routes. Staff see inactive entries with
// ?all=true; everyone else gets the active list.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermCatalogView))
		r.Get("/services", h.listServices)
		r.Get("/services/{id}", h.showService)
		r.Get("/addons", h.listAddons)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.PermCatalogManage))
		r.Post("/services", h.createService)
		r.Patch("/services/{id}", h.updateService)
		r.Post("/addons", h.createAddon)
	})
}

func (h *Handler) activeOnly(r *http.Request) bool {
	actor, _ := shared.ActorFromContext(r.Context())
	return r.URL.Query().Get("all") != "true" || !h.rbac.HasPermission(actor, rbac.PermCatalogManage)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if !errors.Is(err, shared.ErrNotFound) && !errors.Is(err, shared.ErrValidation) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) listServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.service.ListServices(r.Context(), h.activeOnly(r))
	if err != nil {
		h.fail(w, "list services", err)
		return
	}
	httpx.JSON(w, http.StatusOK, services)
}

func (h *Handler) showService(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	svc, err := h.service.GetService(r.Context(), id)
	if err != nil {
		h.fail(w, "get service", err)
		return
	}
	httpx.JSON(w, http.StatusOK, svc)
}

func (h *Handler) createService(w http.ResponseWriter, r *http.Request) {
	var req CreateServiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	svc, err := h.service.CreateService(r.Context(), req)
	if err != nil {
		h.fail(w, "create service", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, svc)
}

func (h *Handler) updateService(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	var req UpdateServiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	svc, err := h.service.UpdateService(r.Context(), id, req)
	if err != nil {
		h.fail(w, "update service", err)
		return
	}
	httpx.JSON(w, http.StatusOK, svc)
}

func (h *Handler) listAddons(w http.ResponseWriter, r *http.Request) {
	addons, err := h.service.ListAddons(r.Context(), h.activeOnly(r))
	if err != nil {
		h.fail(w, "list addons", err)
		return
	}
	httpx.JSON(w, http.StatusOK, addons)
}

func (h *Handler) createAddon(w http.ResponseWriter, r *http.Request) {
	var req CreateAddonRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	addon, err := h.service.CreateAddon(r.Context(), req)
	if err != nil {
		h.fail(w, "create addon", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, addon)
}
