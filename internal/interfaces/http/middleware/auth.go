package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/invoicing/backend/internal/infrastructure/config"
	"github.com/invoicing/backend/internal/infrastructure/logger"
	"github.com/invoicing/backend/internal/interfaces/http/dto"
)

// Headers read by the auth middleware
const (
	APIKeyHeader  = "X-Api-Key"
	SubjectHeader = "X-User-Id"
)

// Role is the privilege level granted by an API key
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

const (
	roleKey    = "auth_role"
	subjectKey = "auth_subject"
)

// Allows reports whether r satisfies required. Admin satisfies user routes.
func (r Role) Allows(required Role) bool {
	return r == required || r == RoleAdmin
}

// APIKeyAuth resolves X-Api-Key to a role. Unknown or missing keys get 401.
func APIKeyAuth(cfg config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(APIKeyHeader)
		role, ok := resolveRole(cfg, key)
		if !ok {
			abort(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "A valid API key is required")
			return
		}
		c.Set(roleKey, role)
		c.Next()
	}
}

func resolveRole(cfg config.AuthConfig, key string) (Role, bool) {
	if key == "" {
		return "", false
	}
	// Constant time comparison against both keys so timing does not reveal which matched.
	admin := cfg.AdminAPIKey != "" && subtle.ConstantTimeCompare([]byte(key), []byte(cfg.AdminAPIKey)) == 1
	user := cfg.UserAPIKey != "" && subtle.ConstantTimeCompare([]byte(key), []byte(cfg.UserAPIKey)) == 1
	switch {
	case admin:
		return RoleAdmin, true
	case user:
		return RoleUser, true
	}
	return "", false
}

// RequireRole rejects requests whose resolved role does not satisfy required
func RequireRole(required Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetRole(c).Allows(required) {
			abort(c, http.StatusForbidden, dto.ErrCodeForbidden, "Insufficient permissions")
			return
		}
		c.Next()
	}
}

// RequireSubject reads the acting subject from X-User-Id; it is mandatory on self-service routes.
func RequireSubject() gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := strings.TrimSpace(c.GetHeader(SubjectHeader))
		if subject == "" {
			abort(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, SubjectHeader+" header is required")
			return
		}
		c.Set(subjectKey, subject)
		c.Request = c.Request.WithContext(logger.WithActor(c.Request.Context(), subject, string(GetRole(c))))
		c.Next()
	}
}

// GetRole returns the role resolved by APIKeyAuth, or "" when unauthenticated
func GetRole(c *gin.Context) Role {
	if v, ok := c.Get(roleKey); ok {
		if r, ok := v.(Role); ok {
			return r
		}
	}
	return ""
}

// GetSubject returns the subject read by RequireSubject
func GetSubject(c *gin.Context) string {
	return c.GetString(subjectKey)
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(code, message, GetRequestID(c)))
}
