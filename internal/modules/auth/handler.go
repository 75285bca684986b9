package auth

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"prodstudio/internal/middleware"
	"prodstudio/internal/pkg/response"
)

// Handler serves the /auth and /user endpoints.
type Handler struct {
	service   *Service
	cookies   CookieConfig
	clientURL string
}

func NewHandler(service *Service, cookies CookieConfig, clientURL string) *Handler {
	if cookies.SameSite == 0 {
		cookies.SameSite = http.SameSiteLaxMode
	}
	return &Handler{service: service, cookies: cookies, clientURL: clientURL}
}

// RegisterRoutes mounts the auth API on rg. auth must populate the caller identity.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, auth gin.HandlerFunc) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/signup", h.Signup)
		authGroup.POST("/login", h.Login)
		authGroup.GET("/refresh", h.Refresh)
		authGroup.POST("/logout", h.Logout)
		authGroup.GET("/me", h.Me)
		authGroup.GET("/google", h.GoogleRedirect)
		authGroup.GET("/google/callback", h.GoogleCallback)
	}
	rg.GET("/user", auth, h.GetUser)
}

func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	user, err := h.service.Signup(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "All fields are required")
		case errors.Is(err, ErrUsernameTaken):
			response.Error(c, http.StatusBadRequest, "USERNAME_EXISTS", "Username already exists")
		case errors.Is(err, ErrEmailTaken):
			response.Error(c, http.StatusBadRequest, "EMAIL_EXISTS", "Email already exists")
		case errors.Is(err, ErrAlreadyExists):
			response.Error(c, http.StatusBadRequest, "ALREADY_EXISTS", "Email or Username already in use")
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, "REGISTRATION_FAILED", "Internal Server Error")
		}
		return
	}

	response.OK(c, http.StatusCreated, gin.H{
		"message": "Account created successfully!",
		"user":    user.Public(),
	})
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	result, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Both username and password are required")
		case errors.Is(err, ErrUserNotFound):
			response.Error(c, http.StatusNotFound, "USER_NOT_FOUND", "No user found with that username")
		case errors.Is(err, ErrUseGoogleLogin):
			response.Error(c, http.StatusBadRequest, "USE_GOOGLE_LOGIN", "This account uses Google Sign-In. Please log in with Google.")
		case errors.Is(err, ErrInvalidCredentials):
			response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid password")
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, "LOGIN_FAILED", "Internal Server Error. Please try again later.")
		}
		return
	}

	h.setSessionCookies(c, result.Tokens.AccessToken, result.Tokens.RefreshToken)
	response.OK(c, http.StatusOK, gin.H{
		"message":      "Successfully logged in",
		"user":         result.User.Public(),
		"accessToken":  result.Tokens.AccessToken,
		"refreshToken": result.Tokens.RefreshToken,
	})
}

// Me reports whether the access cookie is currently valid. It never fails.
func (h *Handler) Me(c *gin.Context) {
	token, _ := c.Cookie(middleware.AccessTokenCookie)
	userID, ok := h.service.Verify(token)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"success": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "userId": userID})
}

func (h *Handler) Refresh(c *gin.Context) {
	token, _ := c.Cookie(middleware.RefreshTokenCookie)
	access, err := h.service.Refresh(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoRefreshToken):
			response.Error(c, http.StatusUnauthorized, "NO_REFRESH_TOKEN", "No Refresh token")
		case errors.Is(err, ErrInvalidRefreshToken):
			response.Error(c, http.StatusForbidden, "INVALID_REFRESH_TOKEN", "Invalid refresh token")
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, "REFRESH_FAILED", "Internal Server Error")
		}
		return
	}

	h.setCookie(c, middleware.AccessTokenCookie, access, h.cookies.AccessTTL)
	response.OK(c, http.StatusOK, gin.H{"message": "Access token refreshed"})
}

// Logout clears the session cookies. Tokens are not revoked server-side.
func (h *Handler) Logout(c *gin.Context) {
	h.clearCookie(c, middleware.AccessTokenCookie)
	h.clearCookie(c, middleware.RefreshTokenCookie)
	response.OK(c, http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *Handler) GetUser(c *gin.Context) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized - no token provided")
		return
	}

	user, err := h.service.GetProfile(c.Request.Context(), id.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.Error(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
			return
		}
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal Server Error")
		return
	}

	response.OK(c, http.StatusOK, gin.H{
		"message": "User fetched successfully",
		"user":    user.Public(),
	})
}

func (h *Handler) GoogleRedirect(c *gin.Context) {
	state := uuid.NewString()
	url, err := h.service.GoogleAuthURL(state)
	if err != nil {
		response.Error(c, http.StatusServiceUnavailable, "GOOGLE_DISABLED", "Google sign-in is not available")
		return
	}
	h.setCookie(c, oauthStateCookie, state, oauthStateTTL)
	c.Redirect(http.StatusFound, url)
}

// GoogleCallback always answers with a redirect to the client app.
func (h *Handler) GoogleCallback(c *gin.Context) {
	failure := h.clientURL + "/auth/failure"

	expected, _ := c.Cookie(oauthStateCookie)
	h.clearCookie(c, oauthStateCookie)
	if expected == "" || c.Query("state") != expected {
		log.Printf("auth_google_callback_error reason=state_mismatch client_ip=%s", c.ClientIP())
		c.Redirect(http.StatusFound, failure)
		return
	}

	result, err := h.service.GoogleLogin(c.Request.Context(), c.Query("code"))
	if err != nil {
		log.Printf("auth_google_callback_error reason=login error=%v", err)
		c.Redirect(http.StatusFound, failure)
		return
	}

	h.setSessionCookies(c, result.Tokens.AccessToken, result.Tokens.RefreshToken)
	c.Redirect(http.StatusFound, h.clientURL+"/auth/success")
}
