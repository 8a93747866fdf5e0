package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkleops/sparkle-ops/internal/rbac"
	"github.com/sparkleops/sparkle-ops/jobs"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := rbac.NewService()
	return NewRouter(RouterParams{
		Logger:             logger,
		Config:             &Config{AppEnv: "test"},
		RBACMiddleware:     rbac.Middleware{Service: svc, Logger: logger},
		PermissionsHandler: rbac.NewPermissionsHandler(logger, svc),
		JobHandler:         jobs.NewHandler(nil, logger),
	})
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestMeResolvesIdentityHeaders(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set(rbac.HeaderUserID, uuid.NewString())
	req.Header.Set(rbac.HeaderRole, "staff")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), rbac.PermQuoteApprove)
}

func TestJobsRequireAdmin(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/jobs/health", nil)
	req.Header.Set(rbac.HeaderUserID, uuid.NewString())
	req.Header.Set(rbac.HeaderRole, "client")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req.Header.Set(rbac.HeaderRole, "admin")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
