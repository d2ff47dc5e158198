package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fundgate/ledger-core/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test-admin-signing-key"

func signAdminToken(t *testing.T, role, subject, secret string, method jwt.SigningMethod) string {
	t.Helper()
	claims := AdminClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newAdminRouter(t *testing.T) *gin.Engine {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-admin"), bcrypt.MinCost)
	require.NoError(t, err)

	router := gin.New()
	router.Use(RequireAdmin(slog.New(slog.NewTextHandler(io.Discard, nil)), config.AdminConfig{
		SecretHash: string(hash),
		JWTSecret:  testJWTSecret,
	}))
	router.GET("/admin", func(c *gin.Context) {
		c.String(http.StatusOK, GetActorID(c))
	})
	return router
}

func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := newAdminRouter(t)

	tests := []struct {
		name       string
		headers    map[string]string
		wantStatus int
		wantActor  string
	}{
		{
			name:       "SecretWithAdminID",
			headers:    map[string]string{AdminSecretHeader: "s3cret-admin", AdminIDHeader: "ops-1"},
			wantStatus: http.StatusOK,
			wantActor:  "ops-1",
		},
		{
			name:       "SecretWithoutAdminID",
			headers:    map[string]string{AdminSecretHeader: "s3cret-admin"},
			wantStatus: http.StatusOK,
			wantActor:  "admin",
		},
		{
			name:       "WrongSecret",
			headers:    map[string]string{AdminSecretHeader: "guess"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "ValidToken",
			headers:    map[string]string{"Authorization": "Bearer " + signAdminToken(t, "admin", "ops-7", testJWTSecret, jwt.SigningMethodHS256)},
			wantStatus: http.StatusOK,
			wantActor:  "ops-7",
		},
		{
			name:       "TokenWithoutAdminRole",
			headers:    map[string]string{"Authorization": "Bearer " + signAdminToken(t, "user", "u-1", testJWTSecret, jwt.SigningMethodHS256)},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "TokenSignedWithOtherKey",
			headers:    map[string]string{"Authorization": "Bearer " + signAdminToken(t, "admin", "ops-7", "other", jwt.SigningMethodHS256)},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "TokenWithoutSubject",
			headers:    map[string]string{"Authorization": "Bearer " + signAdminToken(t, "admin", "", testJWTSecret, jwt.SigningMethodHS256)},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "NoCredentials",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, "/admin", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantActor, rr.Body.String())
			} else {
				assert.Contains(t, rr.Body.String(), "UNAUTHORIZED")
			}
		})
	}
}

func TestRequireAdmin_Unconfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequireAdmin(slog.New(slog.NewTextHandler(io.Discard, nil)), config.AdminConfig{}))
	router.GET("/admin", func(c *gin.Context) { c.Status(http.StatusOK) })

	req, _ := http.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(AdminSecretHeader, "anything")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequireUser())
	router.GET("/me", func(c *gin.Context) {
		assert.False(t, IsAdmin(c))
		c.String(http.StatusOK, GetUserID(c)+"/"+GetActorID(c))
	})

	t.Run("WithHeader", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(UserIDHeader, " user-42 ")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "user-42/user-42", rr.Body.String())
	})

	t.Run("MissingHeader", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/me", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
