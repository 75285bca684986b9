package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"prodstudio/internal/domain"
	"prodstudio/internal/pkg/jwt"
	"prodstudio/internal/pkg/response"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"

	ctxUserID   = "user_id"
	ctxEmail    = "email"
	ctxUsername = "username"
	ctxIsAdmin  = "is_admin"
)

// AccessTokenValidator is the part of the token service the middleware needs.
type AccessTokenValidator interface {
	ValidateAccessToken(token string) (*jwt.Claims, error)
}

// CookieAuth requires a valid access token in the accessToken cookie
// and stores the caller identity in the gin context.
func CookieAuth(tokens AccessTokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(AccessTokenCookie)
		if err != nil || raw == "" {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Access denied - no token provided")
			return
		}

		claims, err := tokens.ValidateAccessToken(raw)
		if err != nil {
			code := "INVALID_TOKEN"
			if errors.Is(err, jwt.ErrExpiredToken) {
				code = "TOKEN_EXPIRED"
			}
			response.Abort(c, http.StatusUnauthorized, code, "Invalid or expired token")
			return
		}

		SetIdentity(c, claims.Identity())
		c.Next()
	}
}

func SetIdentity(c *gin.Context, id domain.Identity) {
	c.Set(ctxUserID, id.UserID)
	c.Set(ctxEmail, id.Email)
	c.Set(ctxUsername, id.Username)
	c.Set(ctxIsAdmin, id.IsAdmin)
}

// CurrentIdentity returns the identity stored by CookieAuth.
func CurrentIdentity(c *gin.Context) (domain.Identity, bool) {
	userID := c.GetString(ctxUserID)
	if userID == "" {
		return domain.Identity{}, false
	}
	return domain.Identity{
		UserID:   userID,
		Email:    c.GetString(ctxEmail),
		Username: c.GetString(ctxUsername),
		IsAdmin:  c.GetBool(ctxIsAdmin),
	}, true
}
