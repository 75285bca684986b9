package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"prodstudio/internal/domain"
	"prodstudio/internal/pkg/jwt"
	"prodstudio/internal/testfixtures"
)

// Mock user store; WithTx runs the callback against the mock itself.
type mockUserStore struct {
	mock.Mock
}

func (m *mockUserStore) WithTx(ctx context.Context, fn func(tx domain.UserStore) error) error {
	return fn(m)
}

func (m *mockUserStore) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	if args.Error(0) == nil && u.ID == "" {
		u.ID = "u-new"
	}
	return args.Error(0)
}

func (m *mockUserStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserStore) LinkGoogle(ctx context.Context, userID, googleID string, avatarURL *string) error {
	return m.Called(ctx, userID, googleID, avatarURL).Error(0)
}

type mockGoogle struct {
	mock.Mock
}

func (m *mockGoogle) AuthCodeURL(state string) string {
	return m.Called(state).String(0)
}

func (m *mockGoogle) Exchange(ctx context.Context, code string) (*GoogleIdentity, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*GoogleIdentity), args.Error(1)
}

func testTokens() *jwt.Service {
	return jwt.New("access-secret", "refresh-secret", 50*time.Minute, 7*24*time.Hour)
}

func hashed(t *testing.T, password string) *string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	s := string(h)
	return &s
}

func strPtr(s string) *string { return &s }

func TestSignup_NormalizesAndHashes(t *testing.T) {
	users := new(mockUserStore)
	svc := NewService(users, testTokens(), nil, "Boss@Studio.com", time.Second)

	users.On("ExistsByUsername", mock.Anything, "beatmaker").Return(false, nil)
	users.On("ExistsByEmail", mock.Anything, "boss@studio.com").Return(false, nil)
	users.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

	u, err := svc.Signup(context.Background(), SignupRequest{
		Name: "  Pio ", Username: " beatmaker ", Email: " BOSS@studio.com ", Password: "secret123",
	})

	require.NoError(t, err)
	assert.Equal(t, "Pio", u.Name)
	assert.Equal(t, "beatmaker", u.UsernameValue())
	assert.Equal(t, "boss@studio.com", u.Email)
	assert.True(t, u.IsAdmin)
	assert.Equal(t, domain.ProviderLocal, u.Provider)
	require.NotNil(t, u.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte("secret123")))
	cost, _ := bcrypt.Cost([]byte(*u.PasswordHash))
	assert.Equal(t, 10, cost)
}

func TestSignup_Conflicts(t *testing.T) {
	t.Run("username taken", func(t *testing.T) {
		users := new(mockUserStore)
		svc := NewService(users, testTokens(), nil, "", time.Second)
		users.On("ExistsByUsername", mock.Anything, "pio").Return(true, nil)

		_, err := svc.Signup(context.Background(), SignupRequest{Name: "P", Username: "pio", Email: "p@x.io", Password: "pw"})
		assert.ErrorIs(t, err, ErrUsernameTaken)
		users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("email taken", func(t *testing.T) {
		users := new(mockUserStore)
		svc := NewService(users, testTokens(), nil, "", time.Second)
		users.On("ExistsByUsername", mock.Anything, "pio").Return(false, nil)
		users.On("ExistsByEmail", mock.Anything, "p@x.io").Return(true, nil)

		_, err := svc.Signup(context.Background(), SignupRequest{Name: "P", Username: "pio", Email: "p@x.io", Password: "pw"})
		assert.ErrorIs(t, err, ErrEmailTaken)
		users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("unique index race", func(t *testing.T) {
		users := new(mockUserStore)
		svc := NewService(users, testTokens(), nil, "", time.Second)
		users.On("ExistsByUsername", mock.Anything, "pio").Return(false, nil)
		users.On("ExistsByEmail", mock.Anything, "p@x.io").Return(false, nil)
		users.On("Create", mock.Anything, mock.Anything).Return(domain.ErrDuplicate)

		_, err := svc.Signup(context.Background(), SignupRequest{Name: "P", Username: "pio", Email: "p@x.io", Password: "pw"})
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})
}

func TestSignup_MissingFields(t *testing.T) {
	svc := NewService(new(mockUserStore), testTokens(), nil, "", time.Second)
	_, err := svc.Signup(context.Background(), SignupRequest{Name: "P", Username: "  ", Email: "p@x.io", Password: "pw"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSignup_DuplicateEmailCreatesNoRow(t *testing.T) {
	h := testfixtures.NewSQLiteHarness(t)
	svc := NewService(h.Users, testTokens(), nil, "", time.Second)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupRequest{Name: "A", Username: "a", Email: "same@x.io", Password: "pw"})
	require.NoError(t, err)

	_, err = svc.Signup(ctx, SignupRequest{Name: "B", Username: "b", Email: "SAME@x.io", Password: "pw"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	exists, err := h.Users.ExistsByUsername(ctx, "b")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLogin(t *testing.T) {
	tokens := testTokens()
	local := &domain.User{ID: "u-1", Name: "Pio", Username: strPtr("pio"), Email: "pio@x.io", PasswordHash: hashed(t, "right"), IsAdmin: true, Provider: domain.ProviderLocal}
	googleOnly := &domain.User{ID: "u-2", Name: "G", Username: strPtr("guser"), Email: "g@x.io", Provider: domain.ProviderGoogle}

	users := new(mockUserStore)
	users.On("GetByUsername", mock.Anything, "pio").Return(local, nil)
	users.On("GetByUsername", mock.Anything, "guser").Return(googleOnly, nil)
	users.On("GetByUsername", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)
	svc := NewService(users, tokens, nil, "", time.Second)
	ctx := context.Background()

	_, err := svc.Login(ctx, LoginRequest{Username: "ghost", Password: "x"})
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.Login(ctx, LoginRequest{Username: "guser", Password: "x"})
	assert.ErrorIs(t, err, ErrUseGoogleLogin)

	_, err = svc.Login(ctx, LoginRequest{Username: "pio", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginRequest{Username: "pio"})
	assert.ErrorIs(t, err, ErrValidation)

	res, err := svc.Login(ctx, LoginRequest{Username: " pio ", Password: "right"})
	require.NoError(t, err)

	claims, err := tokens.ValidateAccessToken(res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "pio", claims.Username)
	assert.True(t, claims.IsAdmin)
	assert.WithinDuration(t, time.Now().Add(50*time.Minute), claims.ExpiresAt.Time, 5*time.Second)

	refresh, err := tokens.ValidateRefreshToken(res.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "pio@x.io", refresh.Email)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), refresh.ExpiresAt.Time, 5*time.Second)
}

func TestVerify_NeverFails(t *testing.T) {
	issued := time.Now().Add(-2 * time.Hour)
	expired, err := testTokens().WithClock(func() time.Time { return issued }).GenerateAccessToken(domain.Identity{UserID: "u-1"})
	require.NoError(t, err)

	svc := NewService(new(mockUserStore), testTokens(), nil, "", time.Second)
	for _, tok := range []string{"", "garbage", expired} {
		id, ok := svc.Verify(tok)
		assert.False(t, ok)
		assert.Empty(t, id)
	}
}

func TestRefresh(t *testing.T) {
	tokens := testTokens()
	user := &domain.User{ID: "u-1", Username: strPtr("pio"), Email: "pio@x.io", IsAdmin: true}
	users := new(mockUserStore)
	users.On("GetByID", mock.Anything, "u-1").Return(user, nil)
	users.On("GetByID", mock.Anything, "u-gone").Return(nil, domain.ErrNotFound)
	users.On("GetByID", mock.Anything, "u-err").Return(nil, errors.New("db down"))
	svc := NewService(users, tokens, nil, "", time.Second)
	ctx := context.Background()

	_, err := svc.Refresh(ctx, "")
	assert.ErrorIs(t, err, ErrNoRefreshToken)

	access, _ := tokens.GenerateAccessToken(domain.Identity{UserID: "u-1"})
	_, err = svc.Refresh(ctx, access)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken, "an access token is not a refresh token")

	gone, _ := tokens.GenerateRefreshToken(domain.Identity{UserID: "u-gone"})
	_, err = svc.Refresh(ctx, gone)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	broken, _ := tokens.GenerateRefreshToken(domain.Identity{UserID: "u-err"})
	_, err = svc.Refresh(ctx, broken)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidRefreshToken)

	refresh, _ := tokens.GenerateRefreshToken(domain.Identity{UserID: "u-1", Email: "pio@x.io"})
	newAccess, err := svc.Refresh(ctx, refresh)
	require.NoError(t, err)
	claims, err := tokens.ValidateAccessToken(newAccess)
	require.NoError(t, err)
	assert.Equal(t, "pio", claims.Username)
	assert.True(t, claims.IsAdmin)
}

func TestGoogleLogin_CreatesAccountWithoutPassword(t *testing.T) {
	h := testfixtures.NewSQLiteHarness(t)
	google := new(mockGoogle)
	google.On("Exchange", mock.Anything, "code-1").Return(&GoogleIdentity{
		Subject: "sub-1", Email: "New.Artist@gmail.com", Picture: "https://lh3/p.png",
	}, nil)
	svc := NewService(h.Users, testTokens(), google, "", time.Second)

	res, err := svc.GoogleLogin(context.Background(), "code-1")
	require.NoError(t, err)

	assert.Equal(t, "new.artist", res.User.Name)
	assert.Equal(t, "new.artist@gmail.com", res.User.Email)
	assert.Equal(t, domain.ProviderGoogle, res.User.Provider)
	assert.False(t, res.User.HasPassword())
	assert.NotEmpty(t, res.Tokens.AccessToken)

	stored, err := h.Users.GetByEmail(context.Background(), "new.artist@gmail.com")
	require.NoError(t, err)
	require.NotNil(t, stored.GoogleID)
	assert.Equal(t, "sub-1", *stored.GoogleID)
	assert.Nil(t, stored.PasswordHash)

	again, err := svc.GoogleLogin(context.Background(), "code-1")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, again.User.ID)
}

func TestGoogleLogin_LinksExistingLocalAccount(t *testing.T) {
	h := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()
	local := &domain.User{Name: "Pio", Username: strPtr("pio"), Email: "pio@gmail.com", PasswordHash: hashed(t, "pw"), Provider: domain.ProviderLocal}
	require.NoError(t, h.Users.Create(ctx, local))

	google := new(mockGoogle)
	google.On("Exchange", mock.Anything, "code").Return(&GoogleIdentity{Subject: "sub-9", Email: "pio@gmail.com", Name: "Pio G"}, nil)
	svc := NewService(h.Users, testTokens(), google, "", time.Second)

	res, err := svc.GoogleLogin(ctx, "code")
	require.NoError(t, err)
	assert.Equal(t, local.ID, res.User.ID)

	stored, err := h.Users.GetByID(ctx, local.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.GoogleID)
	assert.Equal(t, "sub-9", *stored.GoogleID)
	assert.True(t, stored.HasPassword(), "password login keeps working")
}

func TestGoogleLogin_Failures(t *testing.T) {
	ctx := context.Background()

	_, err := NewService(new(mockUserStore), testTokens(), nil, "", time.Second).GoogleLogin(ctx, "code")
	assert.ErrorIs(t, err, ErrGoogleDisabled)

	google := new(mockGoogle)
	google.On("Exchange", mock.Anything, "bad").Return(nil, errors.New("audience mismatch"))
	svc := NewService(new(mockUserStore), testTokens(), google, "", time.Second)

	_, err = svc.GoogleLogin(ctx, "bad")
	assert.ErrorIs(t, err, ErrGoogleExchange)

	_, err = svc.GoogleLogin(ctx, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGoogleLogin_AppliesExchangeTimeout(t *testing.T) {
	google := new(mockGoogle)
	google.On("Exchange", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) <= 3*time.Second
	}), "code").Return(nil, context.DeadlineExceeded)
	svc := NewService(new(mockUserStore), testTokens(), google, "", 3*time.Second)

	_, err := svc.GoogleLogin(context.Background(), "code")
	assert.ErrorIs(t, err, ErrGoogleExchange)
	google.AssertExpectations(t)
}
