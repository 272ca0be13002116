package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, role string, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(method, AdminClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin-1",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestAuthMiddleware(t *testing.T) {
	var gotAdmin string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAdmin = AdminFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	authHandler := NewAuthMiddleware(testSecret)(handler)

	valid := signToken(t, jwt.SigningMethodHS256, testSecret, AdminRole, time.Now().Add(time.Hour))
	expired := signToken(t, jwt.SigningMethodHS256, testSecret, AdminRole, time.Now().Add(-time.Hour))
	wrongKey := signToken(t, jwt.SigningMethodHS256, []byte("other"), AdminRole, time.Now().Add(time.Hour))
	notAdmin := signToken(t, jwt.SigningMethodHS256, testSecret, "doctor", time.Now().Add(time.Hour))
	unsigned := signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, AdminRole, time.Now().Add(time.Hour))

	tests := []struct {
		name           string
		path           string
		authHeader     string
		cookie         string
		expectedStatus int
	}{
		{
			name:           "Health endpoint should skip auth",
			path:           "/health",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Metrics endpoint should skip auth",
			path:           "/metrics",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Admin page without auth should fail",
			path:           "/adminPage/patients",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Admin page with non-bearer header should fail",
			path:           "/adminPage/patients",
			authHeader:     "Invalid",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Admin page with Bearer but no token should fail",
			path:           "/adminPage/patients",
			authHeader:     "Bearer ",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Expired token should fail",
			path:           "/patients",
			authHeader:     BearerPrefix + expired,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Token signed with another key should fail",
			path:           "/patients",
			authHeader:     BearerPrefix + wrongKey,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Unsigned token should fail",
			path:           "/patients",
			authHeader:     BearerPrefix + unsigned,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Token without admin role should be forbidden",
			path:           "/patients",
			authHeader:     BearerPrefix + notAdmin,
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "Valid bearer token should pass",
			path:           "/patients",
			authHeader:     BearerPrefix + valid,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Valid cookie token should pass",
			path:           "/adminPage",
			cookie:         valid,
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotAdmin = ""
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: tt.cookie})
			}

			rr := httptest.NewRecorder()
			authHandler.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedStatus == http.StatusOK && tt.path != HealthPath && tt.path != MetricsPath {
				assert.Equal(t, "admin-1", gotAdmin)
			}
		})
	}
}

func TestRouterAppliesAuthWhenSecretSet(t *testing.T) {
	_, store := setupTestRouter(t, true)
	h, err := NewHandler(nil, store)
	require.NoError(t, err)
	r := SetupRoutes(h, RouterOptions{JWTSecret: testSecret})

	rr := do(r, http.MethodGet, HealthPath, "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(r, http.MethodGet, "/doctor-details/d1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
