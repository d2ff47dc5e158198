package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fundgate/ledger-core/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

const (
	UserIDHeader      = "X-User-ID"
	AdminSecretHeader = "X-Admin-Secret"
	AdminIDHeader     = "X-Admin-ID"

	UserIDKey  = "user_id"
	ActorIDKey = "actor_id"
	IsAdminKey = "is_admin"

	defaultAdminActor = "admin"
)

// AdminClaims are the bearer token claims accepted for admin routes
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// RequireUser rejects requests without a caller id and records it as the actor
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if userID == "" {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing "+UserIDHeader+" header")
			return
		}
		c.Set(UserIDKey, userID)
		c.Set(ActorIDKey, userID)
		c.Next()
	}
}

// RequireAdmin accepts either the shared admin secret, checked against its
// bcrypt hash, or an HS256 bearer token whose role claim is "admin".
func RequireAdmin(log *slog.Logger, cfg config.AdminConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := authenticateAdmin(c, cfg)
		if err != nil {
			log.Warn("Admin authentication failed",
				"path", c.Request.URL.Path,
				"client_ip", c.ClientIP(),
				"error", err,
			)
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "admin credentials required")
			return
		}
		c.Set(ActorIDKey, actor)
		c.Set(IsAdminKey, true)
		c.Next()
	}
}

func authenticateAdmin(c *gin.Context, cfg config.AdminConfig) (string, error) {
	if secret := c.GetHeader(AdminSecretHeader); secret != "" {
		if cfg.SecretHash == "" {
			return "", errors.New("admin secret is not configured")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(cfg.SecretHash), []byte(secret)); err != nil {
			return "", errors.New("admin secret mismatch")
		}
		if id := strings.TrimSpace(c.GetHeader(AdminIDHeader)); id != "" {
			return id, nil
		}
		return defaultAdminActor, nil
	}

	auth := c.GetHeader("Authorization")
	raw, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || raw == "" {
		return "", errors.New("no admin credentials")
	}
	if cfg.JWTSecret == "" {
		return "", errors.New("admin tokens are not configured")
	}

	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid admin token")
	}
	if claims.Role != "admin" {
		return "", errors.New("token does not carry the admin role")
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// GetUserID returns the caller id set by RequireUser
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// GetActorID returns the authenticated user or admin id
func GetActorID(c *gin.Context) string {
	return c.GetString(ActorIDKey)
}

// IsAdmin reports whether RequireAdmin authenticated the request
func IsAdmin(c *gin.Context) bool {
	return c.GetBool(IsAdminKey)
}
