package auth

import "errors"

var (
	ErrValidation          = errors.New("validation error")
	ErrUsernameTaken       = errors.New("username already exists")
	ErrEmailTaken          = errors.New("email already exists")
	ErrAlreadyExists       = errors.New("email or username already in use")
	ErrUserNotFound        = errors.New("user not found")
	ErrUseGoogleLogin      = errors.New("account uses google sign-in")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrNoRefreshToken      = errors.New("no refresh token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrGoogleDisabled      = errors.New("google sign-in is not configured")
	ErrGoogleExchange      = errors.New("google token exchange failed")
)
