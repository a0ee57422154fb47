// Package middleware provides Gin HTTP middleware for authentication, rate
// limiting, security headers, request IDs, metrics, and logging.
//
// Middleware ordering matters and is enforced in router.go:
//
//	Recovery → RequestID → Metrics → Logger → CORS → SecurityHeaders → Handler
//
// Rate limiting is applied to the auth route group only, ahead of the OIDC
// handlers, so brute-force attempts are rejected before any provider traffic.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mayukh2077/swift-org/internal/auth"
	"github.com/mayukh2077/swift-org/internal/db/repositories"
	"github.com/mayukh2077/swift-org/internal/safego"
)

// lastSeenTimeout bounds the background last_seen_at update so a slow database
// cannot pile up goroutines.
const lastSeenTimeout = 5 * time.Second

// AuthMiddleware validates the Bearer JWT on incoming requests and populates
// the Gin context with the caller's identity.
//
// On success it sets "user_id", "email", and "token_claims" in the context and
// asynchronously touches the caller's profile last_seen_at timestamp. Tokens
// whose jti appears in the revocation store are rejected with 401; if the
// revocation store is unreachable the check is skipped so an unavailable Redis
// does not take the whole API down with it.
func AuthMiddleware(revoker auth.SessionRevoker, profileRepo *repositories.ProfileRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing authorization header",
			})
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header must start with 'Bearer '",
			})
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization token is empty",
			})
			return
		}

		claims, err := auth.ValidateJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			return
		}

		if revoker != nil {
			revoked, err := revoker.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				// Fail open: a Redis outage must not lock everyone out.
				slog.Warn("revocation check failed, allowing request", "error", err)
			} else if revoked {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "Session has been signed out",
				})
				return
			}
		}

		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("token_claims", claims)

		if profileRepo != nil {
			userID := claims.UserID
			safego.Go(func() {
				ctx, cancel := context.WithTimeout(context.Background(), lastSeenTimeout)
				defer cancel()
				if err := profileRepo.TouchLastSeen(ctx, userID); err != nil {
					slog.Debug("failed to update last_seen_at", "user_id", userID, "error", err)
				}
			})
		}

		c.Next()
	}
}
