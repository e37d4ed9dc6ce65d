package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/pkg/response"
)

// ContextUser is the key for the authenticated user in gin context.
const ContextUser = "current_user"

// ErrInvalidToken is returned by TokenResolver implementations when the
// token itself is the problem. Any other resolver error is a server fault.
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenResolver resolves a bearer token to an active user record.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (*models.User, error)
}

// Auth returns a middleware that requires a valid bearer token and stores the
// resolved user in the request context. Missing, malformed, expired, and
// orphaned tokens all produce the same 401; resolver faults that are not
// ErrInvalidToken produce a 500 instead.
func Auth(resolver TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		user, err := resolver.ResolveToken(c.Request.Context(), parts[1])
		if err != nil {
			if errors.Is(err, ErrInvalidToken) {
				response.Unauthorized(c, "invalid or expired token")
			} else {
				response.Internal(c, "authentication unavailable")
			}
			c.Abort()
			return
		}
		c.Set(ContextUser, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user set by Auth. It panics if called
// on a route that is not behind the Auth middleware.
func CurrentUser(c *gin.Context) *models.User {
	return c.MustGet(ContextUser).(*models.User)
}
