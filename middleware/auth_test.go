package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"satupapan/internal/protocol"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func sign(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func captureIdentity(got *protocol.Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = IdentityFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddlewareQueryToken(t *testing.T) {
	var got protocol.Identity
	h := AuthMiddleware(testSecret)(captureIdentity(&got))

	token := sign(t, jwt.MapClaims{
		"sub":           "user-1",
		"email":         "ana@example.com",
		"user_metadata": map[string]interface{}{"full_name": "Ana", "avatar_url": "https://img/a.png"},
		"exp":           time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, protocol.Identity{ID: "user-1", Name: "Ana", Avatar: "https://img/a.png"}, got)
}

func TestAuthMiddlewareBearerHeaderFallsBackToEmail(t *testing.T) {
	var got protocol.Identity
	h := AuthMiddleware(testSecret)(captureIdentity(&got))

	req := httptest.NewRequest(http.MethodGet, "/api/whiteboards", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, jwt.MapClaims{"sub": "u2", "email": "bo@example.com"}, testSecret))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bo@example.com", got.Name)
}

func TestAuthMiddlewareRejects(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"wrong secret", sign(t, jwt.MapClaims{"sub": "u"}, "other")},
		{"expired", sign(t, jwt.MapClaims{"sub": "u", "exp": time.Now().Add(-time.Hour).Unix()}, testSecret)},
		{"no sub", sign(t, jwt.MapClaims{"email": "x@example.com"}, testSecret)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			h := AuthMiddleware(testSecret)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws?token="+tt.token, nil))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.False(t, called)
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	h := CORSMiddleware("https://app.example.com")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/whiteboards", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/whiteboards", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
