package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// identityContextKey is the gin context key carrying the caller identity.
const identityContextKey = "identity"

// RequireAuth authenticates every request through the gateway and stores
// the resolved identity in the gin context.
func RequireAuth(gateway *Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, errAuth := gateway.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if errAuth != nil {
			switch {
			case errors.Is(errAuth, ErrMissingCredential):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			case errors.Is(errAuth, ErrConfiguration):
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "authentication not configured"})
			default:
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			}
			return
		}
		c.Set(identityContextKey, identity)
		c.Next()
	}
}

// IdentityFromContext returns the identity stored by RequireAuth.
func IdentityFromContext(c *gin.Context) (Identity, bool) {
	v, exists := c.Get(identityContextKey)
	if !exists {
		return Identity{}, false
	}
	identity, ok := v.(Identity)
	return identity, ok
}
