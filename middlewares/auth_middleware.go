package middlewares

import (
	"fmt"
	"strings"

	"github.com/MazaSebastian/DamafAPP/apperrors"
	"github.com/MazaSebastian/DamafAPP/utils"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware requires a Bearer role token signed with secret.
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondError(c, fmt.Errorf("%w: authorization header missing", apperrors.ErrUnauthorized))
			c.Abort()
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			utils.RespondError(c, fmt.Errorf("%w: bearer token expected", apperrors.ErrUnauthorized))
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(secret, strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			utils.RespondError(c, fmt.Errorf("%w: %v", apperrors.ErrUnauthorized, err))
			c.Abort()
			return
		}

		c.Set("subject", claims.Subject)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// Actor names the caller for the status log, e.g. "chef:kds-1".
func Actor(c *gin.Context) string {
	role := c.GetString("role")
	if role == "" {
		return "anonymous"
	}
	return role + ":" + c.GetString("subject")
}
