package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todaysafrica/newsroom/internal/backend"
	"github.com/todaysafrica/newsroom/internal/middleware"
	"github.com/todaysafrica/newsroom/internal/models"
	jwtpkg "github.com/todaysafrica/newsroom/internal/pkg/jwt"
	"github.com/todaysafrica/newsroom/internal/pkg/session"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeBackend struct {
	result *backend.LoginResult
	err    error
}

func (f *fakeBackend) Login(context.Context, backend.Credentials) (*backend.LoginResult, error) {
	return f.result, f.err
}

func signed(t *testing.T, exp time.Time, role string) string {
	t.Helper()
	s, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtpkg.Claims{
		Role:             role,
		RegisteredClaims: jwtlib.RegisteredClaims{ExpiresAt: jwtlib.NewNumericDate(exp)},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func TestLogin_SessionCappedAtTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	be := &fakeBackend{result: &backend.LoginResult{
		Token: signed(t, exp, "ROLE_ADMIN"),
		User:  &models.User{ID: 3, Email: "a@ta.africa"},
	}}
	mgr := session.NewManager(session.NewMemoryStore(), 12*time.Hour)
	svc := NewService(be, mgr, jwtpkg.NewReader(""), nil)

	sess, err := svc.Login(context.Background(), " a@ta.africa ", "pw")
	require.NoError(t, err)
	assert.True(t, sess.ExpiresAt.Equal(exp))
	assert.Equal(t, models.RoleAdmin, sess.User.Role)

	got, err := mgr.Lookup(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, be.result.Token, got.Token)
}

func TestLogin_Refusals(t *testing.T) {
	mgr := session.NewManager(session.NewMemoryStore(), time.Hour)
	ctx := context.Background()

	expired := &fakeBackend{result: &backend.LoginResult{
		Token: signed(t, time.Now().Add(-time.Minute), ""),
		User:  &models.User{ID: 3, Role: models.RoleWriter},
	}}
	_, err := NewService(expired, mgr, jwtpkg.NewReader(""), nil).Login(ctx, "a", "b")
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongKey := &fakeBackend{result: &backend.LoginResult{
		Token: signed(t, time.Now().Add(time.Hour), ""),
		User:  &models.User{ID: 3, Role: models.RoleWriter},
	}}
	_, err = NewService(wrongKey, mgr, jwtpkg.NewReader("other"), nil).Login(ctx, "a", "b")
	assert.ErrorIs(t, err, ErrInvalidToken)

	reader := &fakeBackend{result: &backend.LoginResult{
		Token: "opaque-token",
		User:  &models.User{ID: 9, Role: "LECTEUR"},
	}}
	_, err = NewService(reader, mgr, jwtpkg.NewReader(""), nil).Login(ctx, "a", "b")
	assert.ErrorIs(t, err, ErrUnknownRole)

	opaque := &fakeBackend{result: &backend.LoginResult{
		Token: "opaque-token",
		User:  &models.User{ID: 9, Role: models.RoleWriter},
	}}
	sess, err := NewService(opaque, mgr, jwtpkg.NewReader(""), nil).Login(ctx, "a", "b")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, 5*time.Second)
}

func TestHandler_LoginMeLogout(t *testing.T) {
	be := &fakeBackend{result: &backend.LoginResult{
		Token: "opaque",
		User:  &models.User{ID: 4, Role: models.RoleWriter, Email: "r@ta.africa"},
	}}
	mgr := session.NewManager(session.NewMemoryStore(), time.Hour)
	r := gin.New()
	pass := func(c *gin.Context) { c.Next() }
	NewHandler(NewService(be, mgr, jwtpkg.NewReader(""), nil), false).
		RegisterRoutes(r.Group("/api"), pass, middleware.Auth(mgr))

	body, _ := json.Marshal(map[string]string{"email": "r@ta.africa", "motDePasse": "pw"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var lr loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lr))
	require.NotEmpty(t, lr.Token)
	assert.NotEqual(t, "opaque", lr.Token)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), cookieName+"="+lr.Token)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+lr.Token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "r@ta.africa")

	req = httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+lr.Token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+lr.Token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	be.result, be.err = nil, &backend.APIError{Status: 401, Kind: backend.ErrUnauthorized}
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
