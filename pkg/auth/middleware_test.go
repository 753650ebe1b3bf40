package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trexinity/another/internal/catalog/domain"
	"github.com/trexinity/another/pkg/auth"
	"github.com/trexinity/another/pkg/config"
	"github.com/trexinity/another/pkg/logger"
	"github.com/trexinity/another/test/testutil"
)

func newMiddleware(t *testing.T) (*auth.Middleware, *auth.JWTManager) {
	t.Helper()
	rbac, err := auth.NewRBACFromConfig(config.AuthConfig{}, logger.NewNoopLogger())
	require.NoError(t, err)
	jwtManager := auth.NewJWTManager("secret", "storefront", time.Minute)
	authz := auth.NewAuthorizer(rbac, []string{"boss@example.com"})
	return auth.NewMiddleware(jwtManager, authz, nil, logger.NewNoopLogger()), jwtManager
}

func bearer(t *testing.T, jwtManager *auth.JWTManager, session domain.UserSession) string {
	t.Helper()
	token, _, err := jwtManager.GenerateAccessToken(session)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestMiddleware_Authenticate(t *testing.T) {
	mw, jwtManager := newMiddleware(t)

	var got domain.UserSession
	var signedIn bool
	h := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, signedIn = auth.SessionFromContext(r.Context())
	}))

	t.Run("anonymous passes through", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, signedIn)
	})

	t.Run("valid token resolves roles from allow-list", func(t *testing.T) {
		// Token claims admin, but the allow-list does not.
		session := testutil.CreateTestSession("u1", "v@example.com", domain.RoleAdmin)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", bearer(t, jwtManager, session))
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.True(t, signedIn)
		assert.Equal(t, "u1", got.UID)
		assert.Equal(t, []string{domain.RoleViewer}, got.Roles)
	})

	t.Run("invalid token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestMiddleware_RequireAuth(t *testing.T) {
	mw, jwtManager := newMiddleware(t)
	h := mw.Authenticate(mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me/watchlist", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/me/watchlist", nil)
	req.Header.Set("Authorization", bearer(t, jwtManager, testutil.CreateTestSession("u1", "v@example.com")))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMiddleware_RequirePermission(t *testing.T) {
	mw, jwtManager := newMiddleware(t)
	h := mw.Authenticate(mw.RequirePermission(auth.ResourceCatalog, auth.ActionWrite)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		})))

	tests := []struct {
		name  string
		email string
		want  int
	}{
		{"admin", "BOSS@example.com", http.StatusCreated},
		{"viewer", "v@example.com", http.StatusForbidden},
		{"anonymous", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/admin/titles", nil)
			if tt.email != "" {
				req.Header.Set("Authorization", bearer(t, jwtManager, testutil.CreateTestSession("u-"+tt.name, tt.email)))
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
