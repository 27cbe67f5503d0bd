package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmiddlezong/problem-database/internal/common/security"
	"github.com/mmiddlezong/problem-database/internal/domain/model"
)

func newProtectedRouter(tokens *security.TokenManager, extra ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(jwtauth.Verifier(tokens.Auth))
	r.Use(Authenticator)
	for _, mw := range extra {
		r.Use(mw)
	}
	r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(p.Email + "|" + p.Role))
	})
	return r
}

func TestAuthenticator(t *testing.T) {
	tokens := security.NewTokenManager([]byte("test-secret"), time.Hour)
	router := newProtectedRouter(tokens)

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token signed with another key", func(t *testing.T) {
		other := security.NewTokenManager([]byte("other-secret"), time.Hour)
		token, err := other.GenerateToken("u1", "ada@example.com", model.RoleUser)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := tokens.GenerateToken("u1", "ada@example.com", model.RoleUser)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ada@example.com|user", rec.Body.String())
	})
}

func TestAdminOnly(t *testing.T) {
	tokens := security.NewTokenManager([]byte("test-secret"), time.Hour)
	router := newProtectedRouter(tokens, AdminOnly)

	for role, want := range map[string]int{model.RoleUser: http.StatusForbidden, model.RoleAdmin: http.StatusOK} {
		token, err := tokens.GenerateToken("u1", "ada@example.com", role)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, role)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, do("10.0.0.1:1234"))
	assert.Equal(t, http.StatusNoContent, do("10.0.0.1:5678"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:9999"))
	assert.Equal(t, http.StatusNoContent, do("10.0.0.2:1234"), "other clients keep their own bucket")

	now = now.Add(30 * time.Second)
	assert.Equal(t, http.StatusNoContent, do("10.0.0.1:1234"), "one token refills every 30s")
}
