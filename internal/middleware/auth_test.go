package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andresrivas/colegio-ledger/internal/domain/identity"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef"

func signTestToken(t *testing.T, secret, userID string, role identity.Role) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestRequireAuth_ValidToken(t *testing.T) {
	var gotCaller identity.Caller
	handler := RequireAuth(testJWTSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := GetCaller(r.Context())
		require.True(t, ok)
		gotCaller = caller
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, testJWTSecret, "user-9", identity.RoleParent))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "user-9", gotCaller.UserID)
	assert.Equal(t, identity.RoleParent, gotCaller.Role)
}

func TestRequireAuth_Rejections(t *testing.T) {
	handler := RequireAuth(testJWTSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"garbage token", "Bearer not.a.token"},
		{"wrong secret", "Bearer " + signTestToken(t, "ffffffffffffffffffffffffffffffff", "u", identity.RoleAdmin)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	protected := RequireAuth(testJWTSecret)(
		RequireRole(identity.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})))

	adminReq := httptest.NewRequest(http.MethodPost, "/", nil)
	adminReq.Header.Set("Authorization", "Bearer "+signTestToken(t, testJWTSecret, "admin-1", identity.RoleAdmin))
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, adminReq)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	parentReq := httptest.NewRequest(http.MethodPost, "/", nil)
	parentReq.Header.Set("Authorization", "Bearer "+signTestToken(t, testJWTSecret, "parent-1", identity.RoleParent))
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, parentReq)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
