package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Sophie-Muchiri12/rentmg/internal/auth"
	"github.com/Sophie-Muchiri12/rentmg/internal/models"
	"github.com/Sophie-Muchiri12/rentmg/internal/scope"
)

// Context keys for values stored in gin.Context by AuthMiddleware.
const (
	ContextKeyIdentity = "identity"
	ContextKeyClaims   = "claims"
)

// AuthMiddleware validates the bearer token, rejects revoked tokens, and
// stores the caller's identity in the request context. revocations may be
// nil, in which case only signature and expiry are checked.
func AuthMiddleware(secret string, revocations auth.Revocations) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing authorization header",
			})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid authorization format, expected: Bearer <token>",
			})
			return
		}

		claims, err := auth.ParseToken(parts[1], secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
			})
			return
		}

		if revocations != nil {
			revoked, err := revocations.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil || revoked {
				// A revocation-store failure closes the door rather than
				// letting logged-out tokens back in.
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "invalid or expired token",
				})
				return
			}
		}

		c.Set(ContextKeyIdentity, scope.Identity{UserID: claims.UserID, Role: claims.Role})
		c.Set(ContextKeyClaims, claims)

		c.Next()
	}
}

// RequireRole aborts with 403 unless the caller holds one of the given
// roles. Must run after AuthMiddleware.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := GetIdentity(c)
		for _, r := range roles {
			if ident.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "insufficient role",
		})
	}
}

// GetIdentity returns the verified identity claim for the request. The
// zero Identity (UserID 0) is returned if AuthMiddleware did not run; a
// zero user ID matches no rows.
func GetIdentity(c *gin.Context) scope.Identity {
	val, exists := c.Get(ContextKeyIdentity)
	if !exists {
		return scope.Identity{}
	}
	ident, ok := val.(scope.Identity)
	if !ok {
		return scope.Identity{}
	}
	return ident
}

// GetClaims returns the full token claims, or nil if absent.
func GetClaims(c *gin.Context) *auth.Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*auth.Claims)
	if !ok {
		return nil
	}
	return claims
}
