package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edutech-api/internal/models"
	appErrors "github.com/noah-isme/edutech-api/pkg/errors"
	"github.com/noah-isme/edutech-api/pkg/response"
)

// RequireRoles lets the request through only when the JWT carries one of
// the given roles. It must run after JWT.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := ClaimsFrom(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(claims.Role)+" may not modify data"))
			return
		}
		c.Next()
	}
}

// WriteGuard returns the chain protecting mutating routes: nothing when auth
// is disabled, JWT plus the ADMIN role otherwise.
func WriteGuard(enabled bool, tokens TokenValidator) []gin.HandlerFunc {
	if !enabled {
		return nil
	}
	return []gin.HandlerFunc{JWT(tokens), RequireRoles(models.RoleAdmin)}
}
