package auth

import (
	"prodstudio/internal/domain"
	"prodstudio/internal/pkg/jwt"
)

type SignupRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult is returned by both password and Google login.
type LoginResult struct {
	User   *domain.User
	Tokens *jwt.Pair
}

// GoogleIdentity is the verified subset of a Google ID token.
type GoogleIdentity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}
