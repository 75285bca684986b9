package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"prodstudio/internal/pkg/response"
)

// AdminOnly requires CookieAuth to have run and the caller to carry the admin flag.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}
		if !id.IsAdmin {
			response.Abort(c, http.StatusForbidden, "FORBIDDEN", "Access denied: admin only")
			return
		}
		c.Next()
	}
}
