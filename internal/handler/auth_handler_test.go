package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mylugha/mylugha-api/internal/middleware"
	"github.com/mylugha/mylugha-api/internal/models"
	"github.com/mylugha/mylugha-api/internal/service"
)

type authRepoStub struct {
	user          *models.User
	created       *models.User
	refreshTokens []*models.RefreshToken
	auditLogs     []*models.AuditLog
}

func (s *authRepoStub) Create(ctx context.Context, user *models.User) error {
	user.ID = "u-new"
	s.created = user
	return nil
}

func (s *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, sql.ErrNoRows
	}
	return s.user, nil
}

func (s *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.user, nil
}

func (s *authRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	s.refreshTokens = append(s.refreshTokens, token)
	return nil
}

func (s *authRepoStub) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	for _, rt := range s.refreshTokens {
		if rt.Token == token {
			return rt, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, rt := range s.refreshTokens {
		if rt.ID == id {
			rt.Revoked = true
			rt.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (s *authRepoStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.auditLogs = append(s.auditLogs, log)
	return nil
}

func newAuthHandler(repo *authRepoStub) *AuthHandler {
	svc := service.NewAuthService(repo, nil, nil, zap.NewNop(), service.AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "mylugha-test",
	})
	return NewAuthHandler(svc)
}

func newAuthTestContext(t *testing.T, method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestAuthHandlerRegisterSuccess(t *testing.T) {
	repo := &authRepoStub{}
	handler := newAuthHandler(repo)

	c, w := newAuthTestContext(t, http.MethodPost, "/auth/register", models.RegisterRequest{
		Username: "wanjiku",
		Email:    "Wanjiku@Example.com",
		Password: "longenough",
	})
	handler.Register(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, repo.created)
	assert.Equal(t, "wanjiku@example.com", repo.created.Email)
	assert.Contains(t, w.Body.String(), `"username":"wanjiku"`)
}

func TestAuthHandlerRegisterInvalidBody(t *testing.T) {
	handler := newAuthHandler(&authRepoStub{})

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Register(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlerLoginSuccess(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("longenough"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &authRepoStub{user: &models.User{
		ID:           "u1",
		Username:     "wanjiku",
		Email:        "wanjiku@example.com",
		PasswordHash: string(hash),
		Role:         models.RoleUser,
	}}
	handler := newAuthHandler(repo)

	c, w := newAuthTestContext(t, http.MethodPost, "/auth/login", models.LoginRequest{
		Email:    "wanjiku@example.com",
		Password: "longenough",
	})
	handler.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "access_token")
	require.Len(t, repo.refreshTokens, 1)
}

func TestAuthHandlerLoginWrongPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("longenough"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &authRepoStub{user: &models.User{
		ID:           "u1",
		Email:        "wanjiku@example.com",
		PasswordHash: string(hash),
	}}
	handler := newAuthHandler(repo)

	c, w := newAuthTestContext(t, http.MethodPost, "/auth/login", models.LoginRequest{
		Email:    "wanjiku@example.com",
		Password: "not-the-password",
	})
	handler.Login(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_CREDENTIALS")
}

func TestAuthHandlerMeRequiresClaims(t *testing.T) {
	handler := newAuthHandler(&authRepoStub{})

	c, w := newAuthTestContext(t, http.MethodGet, "/auth/me", nil)
	handler.Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandlerMeReturnsClaims(t *testing.T) {
	handler := newAuthHandler(&authRepoStub{})

	c, w := newAuthTestContext(t, http.MethodGet, "/auth/me", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{
		UserID:   "u1",
		Username: "wanjiku",
		Email:    "wanjiku@example.com",
		Role:     models.RoleValidator,
	})
	handler.Me(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"validator"`)
}
