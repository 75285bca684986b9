package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"prodstudio/internal/domain"
	"prodstudio/internal/middleware"
	"prodstudio/internal/testfixtures"
)

const testClientURL = "http://localhost:3000"

type handlerFixture struct {
	router *gin.Engine
	h      *testfixtures.SQLiteHarness
	google *mockGoogle
}

func newHandlerFixture(t *testing.T, withGoogle bool) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &handlerFixture{h: testfixtures.NewSQLiteHarness(t)}
	var provider GoogleProvider
	if withGoogle {
		f.google = new(mockGoogle)
		provider = f.google
	}
	tokens := testTokens()
	svc := NewService(f.h.Users, tokens, provider, "admin@studio.io", time.Second)
	handler := NewHandler(svc, CookieConfig{AccessTTL: 50 * time.Minute, RefreshTTL: 7 * 24 * time.Hour}, testClientURL)

	f.router = gin.New()
	handler.RegisterRoutes(f.router.Group("/api"), middleware.CookieAuth(tokens))
	return f
}

func (f *handlerFixture) do(method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func cookieByName(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, w)
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, "error envelope expected: %s", w.Body.String())
	return errObj["code"].(string)
}

func (f *handlerFixture) signupAndLogin(t *testing.T) *httptest.ResponseRecorder {
	t.Helper()
	w := f.do(http.MethodPost, "/api/auth/signup", SignupRequest{Name: "Pio", Username: "pio", Email: "pio@x.io", Password: "beats4life"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = f.do(http.MethodPost, "/api/auth/login", LoginRequest{Username: "pio", Password: "beats4life"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return w
}

func TestHandler_SignupResponses(t *testing.T) {
	f := newHandlerFixture(t, false)

	w := f.do(http.MethodPost, "/api/auth/signup", SignupRequest{Name: "Boss", Username: "boss", Email: "Admin@Studio.io", Password: "pw"})
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	user := body["user"].(map[string]any)
	assert.Equal(t, "admin@studio.io", user["email"])
	assert.Equal(t, true, user["isAdmin"])
	assert.NotContains(t, w.Body.String(), "password")

	w = f.do(http.MethodPost, "/api/auth/signup", SignupRequest{Name: "X", Username: "boss", Email: "other@x.io", Password: "pw"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "USERNAME_EXISTS", errorCode(t, w))

	w = f.do(http.MethodPost, "/api/auth/signup", SignupRequest{Name: "X", Username: "other", Email: "admin@studio.io", Password: "pw"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "EMAIL_EXISTS", errorCode(t, w))

	w = f.do(http.MethodPost, "/api/auth/signup", map[string]string{"name": "X"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
}

func TestHandler_LoginSetsCookies(t *testing.T) {
	f := newHandlerFixture(t, false)
	w := f.signupAndLogin(t)

	access := cookieByName(w, middleware.AccessTokenCookie)
	refresh := cookieByName(w, middleware.RefreshTokenCookie)
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	assert.True(t, access.HttpOnly)
	assert.Equal(t, "/", access.Path)
	assert.Equal(t, http.SameSiteLaxMode, access.SameSite)
	assert.Equal(t, int((50 * time.Minute).Seconds()), access.MaxAge)
	assert.Equal(t, int((7 * 24 * time.Hour).Seconds()), refresh.MaxAge)

	body := decode(t, w)
	assert.Equal(t, access.Value, body["accessToken"])
	assert.Equal(t, refresh.Value, body["refreshToken"])

	w = f.do(http.MethodGet, "/api/user", nil, access)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pio", decode(t, w)["user"].(map[string]any)["username"])
}

func TestHandler_LoginFailures(t *testing.T) {
	f := newHandlerFixture(t, false)
	f.signupAndLogin(t)

	w := f.do(http.MethodPost, "/api/auth/login", LoginRequest{Username: "nobody", Password: "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodPost, "/api/auth/login", LoginRequest{Username: "pio", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, w))
	assert.Nil(t, cookieByName(w, middleware.AccessTokenCookie))

	w = f.do(http.MethodPost, "/api/auth/login", LoginRequest{Username: "pio"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_MeNeverFails(t *testing.T) {
	f := newHandlerFixture(t, false)

	w := f.do(http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":false}`, w.Body.String())

	w = f.do(http.MethodGet, "/api/auth/me", nil, &http.Cookie{Name: middleware.AccessTokenCookie, Value: "junk"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":false}`, w.Body.String())

	login := f.signupAndLogin(t)
	w = f.do(http.MethodGet, "/api/auth/me", nil, cookieByName(login, middleware.AccessTokenCookie))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["userId"])
}

func TestHandler_Refresh(t *testing.T) {
	f := newHandlerFixture(t, false)
	login := f.signupAndLogin(t)

	w := f.do(http.MethodGet, "/api/auth/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "NO_REFRESH_TOKEN", errorCode(t, w))

	w = f.do(http.MethodGet, "/api/auth/refresh", nil, &http.Cookie{Name: middleware.RefreshTokenCookie, Value: "junk"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "INVALID_REFRESH_TOKEN", errorCode(t, w))

	w = f.do(http.MethodGet, "/api/auth/refresh", nil, cookieByName(login, middleware.RefreshTokenCookie))
	require.Equal(t, http.StatusOK, w.Code)
	access := cookieByName(w, middleware.AccessTokenCookie)
	require.NotNil(t, access)
	assert.Nil(t, cookieByName(w, middleware.RefreshTokenCookie), "refresh token is not rotated")

	w = f.do(http.MethodGet, "/api/user", nil, access)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_LogoutClearsCookies(t *testing.T) {
	f := newHandlerFixture(t, false)

	w := f.do(http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	for _, name := range []string{middleware.AccessTokenCookie, middleware.RefreshTokenCookie} {
		c := cookieByName(w, name)
		require.NotNil(t, c, name)
		assert.Empty(t, c.Value)
		assert.Less(t, c.MaxAge, 0)
	}
}

func TestHandler_UserRequiresSession(t *testing.T) {
	f := newHandlerFixture(t, false)
	w := f.do(http.MethodGet, "/api/user", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandler_GoogleDisabled(t *testing.T) {
	f := newHandlerFixture(t, false)
	w := f.do(http.MethodGet, "/api/auth/google", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "GOOGLE_DISABLED", errorCode(t, w))
}

func TestHandler_GoogleFlow(t *testing.T) {
	f := newHandlerFixture(t, true)
	f.google.On("AuthCodeURL", mock.AnythingOfType("string")).Return("https://accounts.google.com/o/oauth2/auth?x=1")
	f.google.On("Exchange", mock.Anything, "good-code").Return(&GoogleIdentity{Subject: "sub-1", Email: "fan@gmail.com", Name: "Fan"}, nil)

	w := f.do(http.MethodGet, "/api/auth/google", nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "https://accounts.google.com/"))
	state := cookieByName(w, oauthStateCookie)
	require.NotNil(t, state)
	require.NotEmpty(t, state.Value)
	f.google.AssertCalled(t, "AuthCodeURL", state.Value)

	w = f.do(http.MethodGet, "/api/auth/google/callback?code=good-code&state="+state.Value, nil, state)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, testClientURL+"/auth/success", w.Header().Get("Location"))
	require.NotNil(t, cookieByName(w, middleware.AccessTokenCookie))
	require.NotNil(t, cookieByName(w, middleware.RefreshTokenCookie))

	u, err := f.h.Users.GetByEmail(context.Background(), "fan@gmail.com")
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderGoogle, u.Provider)
}

func TestHandler_GoogleCallbackFailures(t *testing.T) {
	f := newHandlerFixture(t, true)
	f.google.On("Exchange", mock.Anything, "bad-code").Return(nil, assert.AnError)
	state := &http.Cookie{Name: oauthStateCookie, Value: "expected-state"}

	tests := []struct {
		name    string
		path    string
		cookies []*http.Cookie
	}{
		{name: "missing state cookie", path: "/api/auth/google/callback?code=bad-code&state=expected-state"},
		{name: "state mismatch", path: "/api/auth/google/callback?code=good&state=forged", cookies: []*http.Cookie{state}},
		{name: "exchange failure", path: "/api/auth/google/callback?code=bad-code&state=expected-state", cookies: []*http.Cookie{state}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(http.MethodGet, tt.path, nil, tt.cookies...)
			require.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, testClientURL+"/auth/failure", w.Header().Get("Location"))
			assert.Nil(t, cookieByName(w, middleware.AccessTokenCookie))
		})
	}
	f.google.AssertNumberOfCalls(t, "Exchange", 1)
}
