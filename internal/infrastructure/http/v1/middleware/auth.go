package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"gaushala/internal/core/apperror"
	appctx "gaushala/internal/core/context"
)

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*appctx.Operator, error)
}

// Auth middleware validates JWT tokens and populates the operator context.
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		op, err := validator.ValidateToken(parts[1])
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		c.Request = c.Request.WithContext(appctx.WithOperator(c.Request.Context(), op))
		c.Set("operator", op.Subject)

		c.Next()
	}
}

// RequireRole middleware checks if the operator has one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		op := appctx.GetOperator(c.Request.Context())
		if op == nil {
			abortUnauthorized(c, "authentication required")
			return
		}

		for _, required := range roles {
			if op.HasRole(required) {
				c.Next()
				return
			}
		}
		_ = c.Error(
			apperror.NewForbidden("insufficient permissions").
				WithDetail("required_roles", roles),
		)
		c.Abort()
	}
}

// RequireSiteAccess rejects operators whose token is scoped to other sites.
// The site is read from the siteId path parameter.
func RequireSiteAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		siteID := c.Param("siteId")
		if op := appctx.GetOperator(c.Request.Context()); !op.CanAccessSite(siteID) {
			_ = c.Error(apperror.NewForbidden("site not in token scope").WithDetail("site_id", siteID))
			c.Abort()
			return
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
