package quotes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/sparkleops/sparkle-ops/internal/platform/httpx"
	"github.com/sparkleops/sparkle-ops/internal/rbac"
	"github.com/sparkleops/sparkle-ops/internal/shared"
	"github.com/sparkleops/sparkle-ops/report"
)

// Handler serves the quote JSON API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	renderer report.Renderer
	rbac     rbac.Middleware
}

// NewHandler builds the handler. renderer may be nil when PDF output is
// disabled.
func NewHandler(logger *slog.Logger, service *Service, renderer report.Renderer, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, renderer: renderer, rbac: rbac}
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (shared.Actor, bool) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
	}
	return actor, ok
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if isClientError(err) {
		h.logger.Info(op, slog.String("path", r.URL.Path), slog.String("reason", err.Error()))
	} else {
		h.logger.Error(op, slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func isClientError(err error) bool {
	var verrs validator.ValidationErrors
	return errors.As(err, &verrs) ||
		errors.Is(err, shared.ErrNotFound) ||
		errors.Is(err, shared.ErrInvalidTransition) ||
		errors.Is(err, shared.ErrValidation) ||
		errors.Is(err, shared.ErrConflict) ||
		errors.Is(err, shared.ErrForbidden)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	page := shared.ParsePage(q)
	filter := ListFilter{Search: q.Get("q"), Limit: page.PerPage, Offset: page.Offset()}
	if raw := q.Get("status"); raw != "" {
		status := Status(raw)
		filter.Status = &status
	}
	if raw := q.Get("client_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid client_id")
			return
		}
		filter.ClientID = &id
	}
	for param, dst := range map[string]**time.Time{"date_from": &filter.DateFrom, "date_to": &filter.DateTo} {
		raw := q.Get(param)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid "+param)
			return
		}
		if param == "date_to" {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		*dst = &t
	}

	items, total, err := h.service.List(r.Context(), filter, actor)
	if err != nil {
		h.fail(w, r, "list quotes", err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.NewPage(items, page.Page, page.PerPage, total))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req CreateQuoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	q, err := h.service.Create(r.Context(), req, actor)
	if err != nil {
		h.fail(w, r, "create quote", err)
		return
	}
	w.Header().Set("Location", "/api/quotes/"+q.ID.String())
	httpx.JSON(w, http.StatusCreated, q)
}

func (h *Handler) calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	est, err := h.service.Calculate(r.Context(), req)
	if err != nil {
		h.fail(w, r, "calculate quote", err)
		return
	}
	httpx.JSON(w, http.StatusOK, est)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	q, err := h.service.Get(r.Context(), id, actor)
	if err != nil {
		h.fail(w, r, "get quote", err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateQuoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	q, err := h.service.Update(r.Context(), id, req, actor)
	if err != nil {
		h.fail(w, r, "update quote", err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req ItemInput
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	q, err := h.service.AddItem(r.Context(), id, req, actor)
	if err != nil {
		h.fail(w, r, "add quote item", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, q)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := h.pathID(w, r, "itemID")
	if !ok {
		return
	}
	var req UpdateItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	q, err := h.service.UpdateItem(r.Context(), id, itemID, req, actor)
	if err != nil {
		h.fail(w, r, "update quote item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := h.pathID(w, r, "itemID")
	if !ok {
		return
	}
	q, err := h.service.RemoveItem(r.Context(), id, itemID, actor)
	if err != nil {
		h.fail(w, r, "remove quote item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

// action adapts a simple id-only workflow call into a handler.
func (h *Handler) action(op string, fn func(context.Context, uuid.UUID, shared.Actor) (*Quote, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := h.actor(w, r)
		if !ok {
			return
		}
		id, ok := h.pathID(w, r, "id")
		if !ok {
			return
		}
		q, err := fn(r.Context(), id, actor)
		if err != nil {
			h.fail(w, r, op, err)
			return
		}
		httpx.JSON(w, http.StatusOK, q)
	}
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req ApproveRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
	}
	q, err := h.service.Approve(r.Context(), id, req.ExpiresAt, actor)
	if err != nil {
		h.fail(w, r, "approve quote", err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req ReasonRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if err := h.service.validate.Struct(req); err != nil {
		h.fail(w, r, "validate reason", err)
		return
	}
	q, err := h.service.Reject(r.Context(), id, req.Reason, actor)
	if err != nil {
		h.fail(w, r, "reject quote", err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) reprice(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	q, rev, err := h.service.UpdatePricing(r.Context(), id, actor)
	if err != nil {
		h.fail(w, r, "reprice quote", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"quote": q, "revision": rev})
}

func (h *Handler) revisions(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	revs, err := h.service.Revisions(r.Context(), id, actor)
	if err != nil {
		h.fail(w, r, "list revisions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, revs)
}

func (h *Handler) createRevision(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req ReasonRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if err := h.service.validate.Struct(req); err != nil {
		h.fail(w, r, "validate reason", err)
		return
	}
	rev, err := h.service.CreateRevision(r.Context(), id, req.Reason, actor)
	if err != nil {
		h.fail(w, r, "create revision", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rev)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	logs, err := h.service.History(r.Context(), id, actor)
	if err != nil {
		h.fail(w, r, "quote history", err)
		return
	}
	httpx.JSON(w, http.StatusOK, logs)
}

func (h *Handler) duplicate(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	q, err := h.service.Duplicate(r.Context(), id, actor)
	if err != nil {
		h.fail(w, r, "duplicate quote", err)
		return
	}
	w.Header().Set("Location", "/api/quotes/"+q.ID.String())
	httpx.JSON(w, http.StatusCreated, q)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	q, err := h.service.Get(r.Context(), id, actor)
	if err != nil {
		h.fail(w, r, "export quote", err)
		return
	}
	var buf bytes.Buffer
	if err := report.WriteQuoteCSV(&buf, Document(q)); err != nil {
		h.fail(w, r, "export quote", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", Filename(q, "csv")))
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) pdf(w http.ResponseWriter, r *http.Request) {
	if h.renderer == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Renderer Unavailable", "pdf rendering is not configured")
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	q, err := h.service.Get(r.Context(), id, actor)
	if err != nil {
		h.fail(w, r, "quote pdf", err)
		return
	}
	html, err := report.QuoteHTML(Document(q))
	if err != nil {
		h.fail(w, r, "quote pdf", err)
		return
	}
	pdf, err := h.renderer.RenderHTML(r.Context(), html)
	if err != nil {
		h.logger.Error("render quote pdf", slog.String("quote", q.QuoteNumber), slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Render Failed", "pdf renderer unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", Filename(q, "pdf")))
	_, _ = w.Write(pdf)
}
