package catalog

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkleops/sparkle-ops/internal/rbac"
	"github.com/sparkleops/sparkle-ops/internal/shared"
)

func newCatalogRouter(repo Repository) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mw := rbac.Middleware{Service: rbac.NewService(), Logger: logger}
	r := chi.NewRouter()
	r.Use(mw.Identify)
	NewHandler(logger, NewService(repo), mw).MountRoutes(r)
	return r
}

func request(method, path, role, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if role != "" {
		req.Header.Set(rbac.HeaderUserID, uuid.NewString())
		req.Header.Set(rbac.HeaderRole, role)
	}
	return req
}

func TestCatalogRoutesEnforceManagePermission(t *testing.T) {
	h := newCatalogRouter(newMockRepository())
	body := `{"name":"Window clean","cleaning_type":"window","base_price":"90"}`

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, request(http.MethodPost, "/services", shared.RoleStaff, body))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, request(http.MethodPost, "/services", shared.RoleAdmin, body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created CleaningService
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Window clean", created.Name)
	assert.Contains(t, rec.Body.String(), `"base_price":"90.00"`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, request(http.MethodGet, "/services/"+created.ID.String(), shared.RoleClient, ""))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCatalogListHidesInactiveFromClients(t *testing.T) {
	repo := newMockRepository()
	ctx := context.Background()
	require.NoError(t, repo.CreateAddon(ctx, Addon{ID: uuid.New(), Name: "Fridge", Price: decimal.RequireFromString("25"), IsActive: true}))
	require.NoError(t, repo.CreateAddon(ctx, Addon{ID: uuid.New(), Name: "Retired", Price: decimal.RequireFromString("5")}))
	h := newCatalogRouter(repo)

	var addons []Addon
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, request(http.MethodGet, "/addons?all=true", shared.RoleClient, ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"price":"25.00"`)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &addons))
	assert.Len(t, addons, 1)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, request(http.MethodGet, "/addons?all=true", shared.RoleAdmin, ""))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &addons))
	assert.Len(t, addons, 2)
}

func TestCatalogRejectsBadID(t *testing.T) {
	h := newCatalogRouter(newMockRepository())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, request(http.MethodGet, "/services/abc", shared.RoleStaff, ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, request(http.MethodGet, "/services/"+uuid.NewString(), shared.RoleStaff, ""))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
