package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"prodstudio/internal/domain"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Service issues and verifies the access/refresh token pair.
// Each kind is signed with its own secret so one can never stand in for the other.
type Service struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// Claims is the access token payload.
type Claims struct {
	UserID   string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	IsAdmin  bool   `json:"isAdmin"`
	jwtlib.RegisteredClaims
}

// RefreshClaims is the refresh token payload.
type RefreshClaims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	jwtlib.RegisteredClaims
}

type Pair struct {
	AccessToken  string
	RefreshToken string
}

func New(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// WithClock replaces the time source used for issuing and validating tokens.
func (s *Service) WithClock(now func() time.Time) *Service {
	cp := *s
	cp.now = now
	return &cp
}

func (s *Service) AccessTTL() time.Duration  { return s.accessTTL }
func (s *Service) RefreshTTL() time.Duration { return s.refreshTTL }

func (s *Service) GenerateAccessToken(id domain.Identity) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:   id.UserID,
		Email:    id.Email,
		Username: id.Username,
		IsAdmin:  id.IsAdmin,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   id.UserID,
			ExpiresAt: jwtlib.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.accessSecret)
}

func (s *Service) GenerateRefreshToken(id domain.Identity) (string, error) {
	now := s.now()
	claims := RefreshClaims{
		UserID: id.UserID,
		Email:  id.Email,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   id.UserID,
			ExpiresAt: jwtlib.NewNumericDate(now.Add(s.refreshTTL)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.refreshSecret)
}

func (s *Service) GeneratePair(id domain.Identity) (*Pair, error) {
	access, err := s.GenerateAccessToken(id)
	if err != nil {
		return nil, err
	}
	refresh, err := s.GenerateRefreshToken(id)
	if err != nil {
		return nil, err
	}
	return &Pair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) ValidateAccessToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if err := s.parse(tokenStr, claims, s.accessSecret); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) ValidateRefreshToken(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := s.parse(tokenStr, claims, s.refreshSecret); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Verify is the non-failing check used by /auth/me: any problem yields false.
func (s *Service) Verify(tokenStr string) (string, bool) {
	if tokenStr == "" {
		return "", false
	}
	claims, err := s.ValidateAccessToken(tokenStr)
	if err != nil {
		return "", false
	}
	return claims.UserID, true
}

func (s *Service) parse(tokenStr string, claims jwtlib.Claims, secret []byte) error {
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (any, error) {
		return secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(s.now),
		jwtlib.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return ErrExpiredToken
		}
		return ErrInvalidToken
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

// Identity rebuilds the caller identity carried by an access token.
func (c *Claims) Identity() domain.Identity {
	return domain.Identity{
		UserID:   c.UserID,
		Email:    c.Email,
		Username: c.Username,
		IsAdmin:  c.IsAdmin,
	}
}
