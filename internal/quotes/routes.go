package quotes

import (
	"github.com/go-chi/chi/v5"

	"github.com/sparkleops/sparkle-ops/internal/rbac"
)

// MountRoutes registers the quote API under /quotes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/quotes", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(rbac.PermQuoteView))
			r.Get("/", h.list)
			r.Get("/{id}", h.show)
			r.Get("/{id}/revisions", h.revisions)
			r.Get("/{id}/history", h.history)
			r.Get("/{id}/pdf", h.pdf)
			r.Get("/{id}/export.csv", h.exportCSV)
			r.Post("/calculate", h.calculate)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAll(rbac.PermQuoteCreate))
			r.Post("/", h.create)
			r.Post("/{id}/duplicate", h.duplicate)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAll(rbac.PermQuoteEdit))
			r.Patch("/{id}", h.update)
			r.Post("/{id}/items", h.addItem)
			r.Patch("/{id}/items/{itemID}", h.updateItem)
			r.Delete("/{id}/items/{itemID}", h.removeItem)
		})
		r.With(h.rbac.RequireAll(rbac.PermQuoteSubmit)).Post("/{id}/submit", h.action("submit quote", h.service.Submit))
		r.With(h.rbac.RequireAll(rbac.PermQuoteCancel)).Post("/{id}/cancel", h.action("cancel quote", h.service.Cancel))
		r.With(h.rbac.RequireAll(rbac.PermQuoteReview)).Post("/{id}/review", h.action("review quote", h.service.StartReview))
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAll(rbac.PermQuoteApprove))
			r.Post("/{id}/approve", h.approve)
			r.Post("/{id}/reject", h.reject)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAll(rbac.PermQuoteRevise))
			r.Post("/{id}/reprice", h.reprice)
			r.Post("/{id}/revisions", h.createRevision)
		})
	})
}
