package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/pkg/response"
)

// RequireRole returns a middleware that allows only the given roles. It must
// run after Auth.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{})
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		userVal, ok := c.Get(ContextUser)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		user, _ := userVal.(*models.User)
		if user == nil {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		if _, ok := allowed[user.Role]; !ok {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}
