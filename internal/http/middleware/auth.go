package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/repodoc-backend/internal/pkg/logger"
	"github.com/yungbote/repodoc-backend/internal/services"
)

// actorKey is the gin context key the handlers read the authenticated
// actor from.
const actorKey = "actor_id"

type AuthMiddleware struct {
	log   *logger.Logger
	users services.UserService
}

func NewAuthMiddleware(log *logger.Logger, users services.UserService) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), users: users}
}

// OptionalAuth resolves a bearer token into an actor when one is supplied.
// Anonymous requests pass through; a token that is present but invalid is
// rejected rather than silently downgraded.
func (am *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractBearer(c)
		if tokenString == "" {
			c.Next()
			return
		}
		actorID, err := am.users.VerifyAPIToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "invalid token", "code": "unauthorized"},
			})
			return
		}
		c.Set(actorKey, actorID)
		c.Next()
	}
}

// ActorID returns the authenticated actor for this request, if any.
func ActorID(c *gin.Context) *uuid.UUID {
	v, ok := c.Get(actorKey)
	if !ok {
		return nil
	}
	id, ok := v.(uuid.UUID)
	if !ok || id == uuid.Nil {
		return nil
	}
	return &id
}

func extractBearer(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
