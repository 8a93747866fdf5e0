package invoices

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sparkleops/sparkle-ops/internal/platform/httpx"
	"github.com/sparkleops/sparkle-ops/internal/rbac"
	"github.com/sparkleops/sparkle-ops/internal/shared"
)

// Handler serves the invoice API.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers the invoice routes under /invoices.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/invoices", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(rbac.PermInvoiceView))
			r.Get("/", h.list)
			r.Get("/{id}", h.show)
			r.Get("/{id}/history", h.history)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAll(rbac.PermInvoiceManage))
			r.Post("/", h.create)
			r.Post("/{id}/send", h.send)
			r.Post("/{id}/cancel", h.cancel)
		})
	})
}

func (h *Handler) request(w http.ResponseWriter, r *http.Request, withID bool) (shared.Actor, uuid.UUID, bool) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return actor, uuid.Nil, false
	}
	if !withID {
		return actor, uuid.Nil, true
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return actor, uuid.Nil, false
	}
	return actor, id, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Warn(op, slog.String("path", r.URL.Path), slog.Any("error", err))
	httpx.RespondError(w, err)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := h.request(w, r, false)
	if !ok {
		return
	}
	q := r.URL.Query()
	page := shared.ParsePage(q)
	filter := ListFilter{Limit: page.PerPage, Offset: page.Offset()}
	if raw := q.Get("status"); raw != "" {
		status := Status(raw)
		filter.Status = &status
	}
	if raw := q.Get("quote_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid quote_id")
			return
		}
		filter.QuoteID = &id
	}
	items, total, err := h.service.List(r.Context(), filter, actor)
	if err != nil {
		h.fail(w, r, "list invoices", err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.NewPage(items, page.Page, page.PerPage, total))
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.request(w, r, true)
	if !ok {
		return
	}
	inv, err := h.service.Get(r.Context(), id, actor)
	if err != nil {
		h.fail(w, r, "get invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.request(w, r, true)
	if !ok {
		return
	}
	logs, err := h.service.History(r.Context(), id, actor)
	if err != nil {
		h.fail(w, r, "invoice history", err)
		return
	}
	httpx.JSON(w, http.StatusOK, logs)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, _, ok := h.request(w, r, false)
	if !ok {
		return
	}
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	inv, err := h.service.CreateFromQuote(r.Context(), req, actor)
	if err != nil {
		h.fail(w, r, "create invoice", err)
		return
	}
	w.Header().Set("Location", "/api/invoices/"+inv.ID.String())
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.request(w, r, true)
	if !ok {
		return
	}
	inv, err := h.service.Send(r.Context(), id, actor)
	if err != nil {
		h.fail(w, r, "send invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.request(w, r, true)
	if !ok {
		return
	}
	var req CancelRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
	}
	inv, err := h.service.Cancel(r.Context(), id, req.Reason, actor)
	if err != nil {
		h.fail(w, r, "cancel invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}
