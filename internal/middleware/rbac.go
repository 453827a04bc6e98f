package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edu-admin-api/internal/models"
	appErrors "github.com/noah-isme/edu-admin-api/pkg/errors"
	"github.com/noah-isme/edu-admin-api/pkg/response"
)

// RequireRoles lets the request through only when the caller holds one of
// roles. Anonymous callers get 401, authenticated callers with another role
// get 403.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		identity := IdentityFromContext(c)
		if !identity.Authenticated() {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[identity.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
