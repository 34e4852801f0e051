package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/waplatform/console/internal/access"
	"github.com/waplatform/console/internal/apiserver/database"
	"github.com/waplatform/console/internal/auth/jwt"
	"github.com/waplatform/console/internal/auth/session"
)

const identityKey = "identity"

// JWTAuthMiddleware validates the bearer token, checks revocation and
// rebuilds the acting identity from the database. Level and accessType are
// loaded fresh on every request: both are mutable, and a stale token must
// never widen a user's scope.
func JWTAuthMiddleware(jwtService *jwt.Service, sessions session.Store, db database.Database, logger *zap.Logger) gin.HandlerFunc {
	logger = logger.Named("middleware.jwt")
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		claims, err := jwtService.ValidateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		revoked, err := sessions.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil || revoked {
			// lookup failures deny; a token that might be revoked is revoked
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		user, err := db.GetUserByID(c.Request.Context(), claims.UserID)
		if err != nil || !user.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		identity := &access.Identity{
			UserID:     user.ID,
			Email:      user.Email,
			AccessType: user.AccessType,
		}
		role, err := db.GetUserPrimaryRole(c.Request.Context(), user.ID)
		if err != nil {
			// orphaned account: identity stays level 0 and every scope
			// resolution downstream denies
			logger.Error("primary role unresolvable",
				zap.Int64("user_id", user.ID),
				zap.Error(err))
		} else {
			identity.Level = role.Level
			identity.PrimaryRoleID = role.ID
		}

		c.Set(identityKey, identity)
		c.Set("claims", claims)
		c.Next()
	}
}

// IdentityFromContext returns the acting identity set by the middleware,
// or nil when unauthenticated.
func IdentityFromContext(c *gin.Context) *access.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, ok := v.(*access.Identity)
	if !ok {
		return nil
	}
	return id
}
