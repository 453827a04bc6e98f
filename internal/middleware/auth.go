package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edu-admin-api/internal/access"
	"github.com/noah-isme/edu-admin-api/internal/models"
	appErrors "github.com/noah-isme/edu-admin-api/pkg/errors"
	"github.com/noah-isme/edu-admin-api/pkg/logger"
	"github.com/noah-isme/edu-admin-api/pkg/response"
)

// Context keys set by the auth middleware.
const (
	ContextUserKey     = "currentUser"
	ContextIdentityKey = "identity"
)

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// Authenticate requires a valid bearer token.
func Authenticate(tokens tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !attach(c, tokens, header) {
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalAuth resolves the caller when a token is sent and falls back to the
// anonymous identity otherwise. A token that is present but invalid is still
// rejected.
func OptionalAuth(tokens tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Set(ContextIdentityKey, access.Anonymous())
			c.Next()
			return
		}
		if !attach(c, tokens, header) {
			c.Abort()
			return
		}
		c.Next()
	}
}

func attach(c *gin.Context, tokens tokenValidator, header string) bool {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
		return false
	}
	claims, err := tokens.ValidateToken(strings.TrimSpace(token))
	if err != nil {
		response.Error(c, err)
		return false
	}
	c.Set(ContextUserKey, claims)
	c.Set(ContextIdentityKey, access.FromClaims(claims))
	c.Set(logger.ContextUserIDKey, claims.UserID)
	c.Set(logger.ContextRoleKey, string(claims.Role))
	return true
}

// IdentityFromContext returns the caller resolved by the auth middleware, or
// the anonymous identity when none ran.
func IdentityFromContext(c *gin.Context) access.Identity {
	if value, ok := c.Get(ContextIdentityKey); ok {
		if identity, ok := value.(access.Identity); ok {
			return identity
		}
	}
	if value, ok := c.Get(ContextUserKey); ok {
		if claims, ok := value.(*models.JWTClaims); ok {
			return access.FromClaims(claims)
		}
	}
	return access.Anonymous()
}
