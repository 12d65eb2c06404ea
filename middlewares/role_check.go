package middlewares

import (
	"fmt"

	"github.com/MazaSebastian/DamafAPP/apperrors"
	"github.com/MazaSebastian/DamafAPP/utils"
	"github.com/gin-gonic/gin"
)

// RequireRole lets the request through when the token role is one of roles.
// Admin always passes.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		if role == "" {
			utils.RespondError(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if role == utils.RoleAdmin {
			c.Next()
			return
		}
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		utils.RespondError(c, fmt.Errorf("%w: role %s may not call this endpoint", apperrors.ErrForbidden, role))
		c.Abort()
	}
}
