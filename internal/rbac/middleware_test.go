package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkleops/sparkle-ops/internal/shared"
)

func newRequest(role string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if role != "" {
		req.Header.Set(HeaderUserID, uuid.NewString())
		req.Header.Set(HeaderRole, role)
	}
	return req
}

func serve(mw Middleware, gate func(http.Handler) http.Handler, req *http.Request) *httptest.ResponseRecorder {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	rec := httptest.NewRecorder()
	mw.Identify(gate(ok)).ServeHTTP(rec, req)
	return rec
}

func TestRequireAnyByRole(t *testing.T) {
	mw := Middleware{Service: NewService()}
	cases := []struct {
		role string
		perm string
		want int
	}{
		{RoleClient, PermQuoteCreate, http.StatusNoContent},
		{RoleClient, PermQuoteApprove, http.StatusForbidden},
		{RoleStaff, PermQuoteApprove, http.StatusNoContent},
		{RoleStaff, PermCatalogManage, http.StatusForbidden},
		{RoleAdmin, PermCatalogManage, http.StatusNoContent},
		{"guest", PermQuoteView, http.StatusForbidden},
		{"", PermQuoteView, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		rec := serve(mw, mw.RequireAny(tc.perm), newRequest(tc.role))
		assert.Equal(t, tc.want, rec.Code, "%s/%s", tc.role, tc.perm)
	}
}

func TestRequireAllNeedsEveryPermission(t *testing.T) {
	mw := Middleware{Service: NewService()}
	rec := serve(mw, mw.RequireAll(PermQuoteView, PermInvoiceManage), newRequest(RoleClient))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = serve(mw, mw.RequireAll(PermQuoteView, PermInvoiceManage), newRequest(RoleStaff))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestIdentifyStoresActor(t *testing.T) {
	mw := Middleware{Service: NewService()}
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserID, id.String())
	req.Header.Set(HeaderRole, " Staff ")

	var got shared.Actor
	var found bool
	mw.Identify(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, found = shared.ActorFromContext(r.Context())
	})).ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, found)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, RoleStaff, got.Role)
}

func TestIdentifyIgnoresMalformedID(t *testing.T) {
	mw := Middleware{Service: NewService()}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserID, "42")
	req.Header.Set(HeaderRole, RoleStaff)

	rec := serve(mw, mw.RequireAny(PermQuoteView), req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHasPermission(t *testing.T) {
	mw := Middleware{Service: NewService()}
	assert.True(t, mw.HasPermission(shared.Actor{Role: RoleStaff}, PermQuoteReview))
	assert.False(t, mw.HasPermission(shared.Actor{Role: RoleClient}, PermQuoteReview))
	assert.False(t, mw.HasPermission(shared.Actor{Role: "nobody"}, PermQuoteView))
}
