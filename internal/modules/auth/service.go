package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"prodstudio/internal/domain"
	"prodstudio/internal/metrics"
	"prodstudio/internal/pkg/jwt"
)

const bcryptCost = 10

type Service struct {
	users           domain.UserStore
	tokens          *jwt.Service
	google          GoogleProvider
	adminEmail      string
	exchangeTimeout time.Duration
}

// NewService wires the session manager. google may be nil when federated login is not configured.
func NewService(users domain.UserStore, tokens *jwt.Service, google GoogleProvider, adminEmail string, exchangeTimeout time.Duration) *Service {
	return &Service{
		users:           users,
		tokens:          tokens,
		google:          google,
		adminEmail:      strings.ToLower(strings.TrimSpace(adminEmail)),
		exchangeTimeout: exchangeTimeout,
	}
}

func (s *Service) isAdminEmail(email string) bool {
	return s.adminEmail != "" && email == s.adminEmail
}

func identityOf(u *domain.User) domain.Identity {
	return domain.Identity{
		UserID:   u.ID,
		Email:    u.Email,
		Username: u.UsernameValue(),
		IsAdmin:  u.IsAdmin,
	}
}

func (s *Service) Signup(ctx context.Context, req SignupRequest) (*domain.User, error) {
	name := strings.TrimSpace(req.Name)
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || username == "" || email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: all fields are required", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	hashStr := string(hash)

	user := &domain.User{
		Name:         name,
		Username:     &username,
		Email:        email,
		PasswordHash: &hashStr,
		IsAdmin:      s.isAdminEmail(email),
		Provider:     domain.ProviderLocal,
	}

	err = s.users.WithTx(ctx, func(tx domain.UserStore) error {
		exists, err := tx.ExistsByUsername(ctx, username)
		if err != nil {
			return err
		}
		if exists {
			return ErrUsernameTaken
		}
		exists, err = tx.ExistsByEmail(ctx, email)
		if err != nil {
			return err
		}
		if exists {
			return ErrEmailTaken
		}
		return tx.Create(ctx, user)
	})
	if err != nil {
		// A concurrent signup can pass the checks and still lose on the unique index.
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: both username and password are required", ErrValidation)
	}

	result, err := s.login(ctx, username, req.Password)
	if err != nil {
		metrics.AuthLogins.WithLabelValues("password", loginResultLabel(err)).Inc()
		return nil, err
	}
	metrics.AuthLogins.WithLabelValues("password", "success").Inc()
	return result, nil
}

func (s *Service) login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !user.HasPassword() {
		return nil, ErrUseGoogleLogin
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.tokens.GeneratePair(identityOf(user))
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	return &LoginResult{User: user, Tokens: pair}, nil
}

// Verify never fails: a missing, malformed or expired token is simply not valid.
func (s *Service) Verify(accessToken string) (string, bool) {
	return s.tokens.Verify(accessToken)
}

// Refresh mints a new access token from a refresh token. Claims are rebuilt from the stored user.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		metrics.AuthRefresh.WithLabelValues("missing").Inc()
		return "", ErrNoRefreshToken
	}
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		metrics.AuthRefresh.WithLabelValues("invalid").Inc()
		return "", ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.AuthRefresh.WithLabelValues("invalid").Inc()
			return "", ErrInvalidRefreshToken
		}
		return "", err
	}

	access, err := s.tokens.GenerateAccessToken(identityOf(user))
	if err != nil {
		return "", fmt.Errorf("issue access token: %w", err)
	}
	metrics.AuthRefresh.WithLabelValues("success").Inc()
	return access, nil
}

func (s *Service) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) GoogleEnabled() bool {
	return s.google != nil
}

// GoogleAuthURL builds the consent URL carrying state.
func (s *Service) GoogleAuthURL(state string) (string, error) {
	if s.google == nil {
		return "", ErrGoogleDisabled
	}
	return s.google.AuthCodeURL(state), nil
}

// GoogleLogin exchanges an authorization code, then finds or creates the matching user.
func (s *Service) GoogleLogin(ctx context.Context, code string) (*LoginResult, error) {
	result, err := s.googleLogin(ctx, code)
	if err != nil {
		metrics.AuthLogins.WithLabelValues("google", loginResultLabel(err)).Inc()
		return nil, err
	}
	metrics.AuthLogins.WithLabelValues("google", "success").Inc()
	return result, nil
}

func (s *Service) googleLogin(ctx context.Context, code string) (*LoginResult, error) {
	if s.google == nil {
		return nil, ErrGoogleDisabled
	}
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", ErrValidation)
	}

	exCtx, cancel := context.WithTimeout(ctx, s.exchangeTimeout)
	defer cancel()
	ident, err := s.google.Exchange(exCtx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGoogleExchange, err)
	}
	email := strings.ToLower(strings.TrimSpace(ident.Email))
	if email == "" || ident.Subject == "" {
		return nil, fmt.Errorf("%w: identity token has no email or subject", ErrGoogleExchange)
	}

	user, err := s.findOrCreateGoogleUser(ctx, email, ident)
	if err != nil {
		return nil, err
	}

	pair, err := s.tokens.GeneratePair(identityOf(user))
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	return &LoginResult{User: user, Tokens: pair}, nil
}

func (s *Service) findOrCreateGoogleUser(ctx context.Context, email string, ident *GoogleIdentity) (*domain.User, error) {
	var picture *string
	if ident.Picture != "" {
		picture = &ident.Picture
	}

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if user.GoogleID == nil {
			if err := s.users.LinkGoogle(ctx, user.ID, ident.Subject, picture); err != nil {
				return nil, fmt.Errorf("link google account: %w", err)
			}
			sub := ident.Subject
			user.GoogleID = &sub
			if user.AvatarURL == nil {
				user.AvatarURL = picture
			}
			log.Printf("auth_google_linked user_id=%s", user.ID)
		}
		return user, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	name := strings.TrimSpace(ident.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	sub := ident.Subject
	user = &domain.User{
		Name:      name,
		Email:     email,
		GoogleID:  &sub,
		AvatarURL: picture,
		IsAdmin:   s.isAdminEmail(email),
		Provider:  domain.ProviderGoogle,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			// Lost a race with a parallel callback for the same email.
			return s.users.GetByEmail(ctx, email)
		}
		return nil, fmt.Errorf("create google user: %w", err)
	}
	log.Printf("auth_google_signup user_id=%s", user.ID)
	return user, nil
}

func loginResultLabel(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "invalid_request"
	case errors.Is(err, ErrUserNotFound):
		return "unknown_user"
	case errors.Is(err, ErrUseGoogleLogin):
		return "wrong_method"
	case errors.Is(err, ErrInvalidCredentials):
		return "bad_password"
	case errors.Is(err, ErrGoogleExchange), errors.Is(err, ErrGoogleDisabled):
		return "provider_error"
	default:
		return "error"
	}
}
