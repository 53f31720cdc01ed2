package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/auth"
)

func TestIssueAndVerify(t *testing.T) {
	v, err := auth.NewVerifier("s3cret")
	require.NoError(t, err)

	token, err := v.Issue("u1", time.Hour)
	require.NoError(t, err)

	user, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", user)
}

func TestVerifyRejects(t *testing.T) {
	v, err := auth.NewVerifier("s3cret")
	require.NoError(t, err)
	other, err := auth.NewVerifier("other")
	require.NoError(t, err)

	foreign, err := other.Issue("u1", time.Hour)
	require.NoError(t, err)
	expired, err := v.Issue("u1", -time.Minute)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":      "not-a-jwt",
		"wrong secret": foreign,
		"expired":      expired,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(token)
			assert.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}
}

func TestNewVerifierNeedsSecret(t *testing.T) {
	_, err := auth.NewVerifier("")
	assert.ErrorIs(t, err, auth.ErrNoSecret)
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/ws?token=abc", nil)
	token, err := auth.TokenFromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "bearer xyz")
	token, err = auth.TokenFromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "xyz", token)

	r.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
	_, err = auth.TokenFromRequest(r)
	assert.ErrorIs(t, err, auth.ErrNoToken)

	_, err = auth.TokenFromRequest(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, auth.ErrNoToken)
}

func whoami() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.UserFromContext(r.Context())
		if !ok {
			id = "anonymous"
		}
		_, _ = w.Write([]byte(id))
	})
}

func TestMiddlewareWithVerifier(t *testing.T) {
	v, err := auth.NewVerifier("s3cret")
	require.NoError(t, err)
	router := mux.NewRouter()
	router.Use(auth.Middleware(v))
	router.Handle("/me", whoami())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "unauthenticated")

	token, err := v.Issue("u7", time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	// The dev header is ignored once tokens are required.
	req.Header.Set(auth.DevUserHeader, "intruder")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u7", rec.Body.String())
}

func TestMiddlewareDevMode(t *testing.T) {
	router := mux.NewRouter()
	router.Use(auth.Middleware(nil))
	router.Handle("/me", whoami())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(auth.DevUserHeader, "u3")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "u3", rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, "anonymous", rec.Body.String())
}
