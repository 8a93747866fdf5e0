package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sparkleops/sparkle-ops/internal/catalog"
	"github.com/sparkleops/sparkle-ops/internal/invoices"
	"github.com/sparkleops/sparkle-ops/internal/observability"
	"github.com/sparkleops/sparkle-ops/internal/platform/httpx"
	"github.com/sparkleops/sparkle-ops/internal/quotes"
	"github.com/sparkleops/sparkle-ops/internal/rbac"
	"github.com/sparkleops/sparkle-ops/jobs"
	"github.com/sparkleops/sparkle-ops/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	RBACMiddleware rbac.Middleware

	QuotesHandler      *quotes.Handler
	InvoicesHandler    *invoices.Handler
	CatalogHandler     *catalog.Handler
	PermissionsHandler *rbac.PermissionsHandler
	ReportHandler      *report.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		RBAC:    params.RBACMiddleware,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		if params.QuotesHandler != nil {
			params.QuotesHandler.MountRoutes(r)
		}
		if params.InvoicesHandler != nil {
			params.InvoicesHandler.MountRoutes(r)
		}
		if params.CatalogHandler != nil {
			params.CatalogHandler.MountRoutes(r)
		}
		if params.PermissionsHandler != nil {
			params.PermissionsHandler.MountRoutes(r)
		}
	})

	if params.ReportHandler != nil {
		r.Route("/report", params.ReportHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			r.Use(params.RBACMiddleware.RequireAny(rbac.PermCatalogManage))
			params.JobHandler.MountRoutes(r)
		})
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
