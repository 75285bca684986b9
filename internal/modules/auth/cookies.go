package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"prodstudio/internal/middleware"
)

const (
	oauthStateCookie = "oauthState"
	oauthStateTTL    = 10 * time.Minute
)

// CookieConfig controls how session cookies are written.
type CookieConfig struct {
	Secure     bool
	SameSite   http.SameSite
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (h *Handler) setCookie(c *gin.Context, name, value string, ttl time.Duration) {
	c.SetSameSite(h.cookies.SameSite)
	c.SetCookie(name, value, int(ttl.Seconds()), "/", "", h.cookies.Secure, true)
}

func (h *Handler) clearCookie(c *gin.Context, name string) {
	c.SetSameSite(h.cookies.SameSite)
	c.SetCookie(name, "", -1, "/", "", h.cookies.Secure, true)
}

func (h *Handler) setSessionCookies(c *gin.Context, access, refresh string) {
	h.setCookie(c, middleware.AccessTokenCookie, access, h.cookies.AccessTTL)
	h.setCookie(c, middleware.RefreshTokenCookie, refresh, h.cookies.RefreshTTL)
}
