package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xenking/bazaar-checkout/internal/domain/auth"
)

// Authenticate requires a valid "Authorization: Bearer <jwt>" header and
// stores the resolved principal in the request context.
func Authenticate(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			abortWithError(c, auth.ErrUnauthenticated)
			return
		}
		p, err := tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			abortWithError(c, auth.ErrUnauthenticated)
			return
		}
		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

// RequireRole rejects principals holding none of roles with 403.
func RequireRole(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := auth.FromContext(c.Request.Context())
		if !ok {
			abortWithError(c, auth.ErrUnauthenticated)
			return
		}
		if !p.Is(roles...) {
			abortWithError(c, auth.ErrForbidden)
			return
		}
		c.Next()
	}
}

func principal(c *gin.Context) auth.Principal {
	p, _ := auth.FromContext(c.Request.Context())
	return p
}
