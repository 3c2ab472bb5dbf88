package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mylugha/mylugha-api/internal/models"
	"github.com/mylugha/mylugha-api/internal/repository"
	appErrors "github.com/mylugha/mylugha-api/pkg/errors"
)

type mockAuthRepo struct {
	userByEmail    *models.User
	userByID       *models.User
	findByEmailErr error
	createErr      error
	createdUser    *models.User
	refreshTokens  map[string]*models.RefreshToken
	auditLogs      []*models.AuditLog
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	user.ID = "u-new"
	m.createdUser = user
	return nil
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.userByID != nil {
		return m.userByID, nil
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	if token.ID == "" {
		token.ID = "rt-" + token.Token[:4]
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, errors.New("not found")
	}
	return rt, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

type mockVerifier struct {
	email string
	name  string
	err   error
}

func (m *mockVerifier) Verify(ctx context.Context, accessToken string) (string, string, error) {
	if m.err != nil {
		return "", "", m.err
	}
	return m.email, m.name, nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "mylugha-api",
	}
}

func TestAuthServiceRegisterSuccess(t *testing.T) {
	repo := &mockAuthRepo{}
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	info, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "wanjiku",
		Email:    "Wanjiku@Example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, "wanjiku@example.com", info.Email)
	assert.Equal(t, models.RoleUser, info.Role)
	require.NotNil(t, repo.createdUser)
	assert.NotEqual(t, "password123", repo.createdUser.PasswordHash)
}

func TestAuthServiceRegisterDuplicate(t *testing.T) {
	repo := &mockAuthRepo{createErr: repository.ErrDuplicateUser}
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "wanjiku",
		Email:    "wanjiku@example.com",
		Password: "password123",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{userByEmail: &models.User{ID: "u1", Email: "user@example.com", Username: "user", PasswordHash: string(hash), Role: models.RoleUser}}
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.NotEmpty(t, repo.refreshTokens)
	assert.Len(t, repo.auditLogs, 1)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{userByEmail: &models.User{ID: "u1", Email: "user@example.com", PasswordHash: string(hash)}}
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "wrong"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceRefreshTokenRotates(t *testing.T) {
	repo := &mockAuthRepo{refreshTokens: make(map[string]*models.RefreshToken)}
	user := &models.User{ID: "u1", Email: "user@example.com", Username: "user", Role: models.RoleUser}
	repo.userByID = user
	repo.refreshTokens["old-token"] = &models.RefreshToken{ID: "rt1", UserID: "u1", Token: "old-token", ExpiresAt: time.Now().Add(time.Hour)}
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEqual(t, "old-token", res.RefreshToken)
	assert.True(t, repo.refreshTokens["old-token"].Revoked)
}

func TestAuthServiceRefreshTokenExpired(t *testing.T) {
	repo := &mockAuthRepo{refreshTokens: make(map[string]*models.RefreshToken)}
	repo.refreshTokens["stale"] = &models.RefreshToken{ID: "rt1", UserID: "u1", Token: "stale", ExpiresAt: time.Now().Add(-time.Hour)}
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthServiceSocialLoginCreatesAccount(t *testing.T) {
	repo := &mockAuthRepo{findByEmailErr: sql.ErrNoRows}
	verifiers := map[string]SocialVerifier{"google": &mockVerifier{email: "new@example.com", name: "New User"}}
	svc := NewAuthService(repo, verifiers, validator.New(), zap.NewNop(), testAuthConfig())

	res, err := svc.SocialLogin(context.Background(), models.SocialLoginRequest{Provider: "google", AccessToken: "tok"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	require.NotNil(t, repo.createdUser)
	assert.Equal(t, "new@example.com", repo.createdUser.Email)
	assert.Equal(t, models.RoleUser, repo.createdUser.Role)
}

func TestAuthServiceSocialLoginUnknownProvider(t *testing.T) {
	svc := NewAuthService(&mockAuthRepo{}, map[string]SocialVerifier{}, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.SocialLogin(context.Background(), models.SocialLoginRequest{Provider: "myspace", AccessToken: "tok"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestAuthServiceSocialLoginMissingToken(t *testing.T) {
	svc := NewAuthService(&mockAuthRepo{}, map[string]SocialVerifier{}, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.SocialLogin(context.Background(), models.SocialLoginRequest{Provider: "google"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestAuthServiceSocialLoginVerifierFailure(t *testing.T) {
	verifiers := map[string]SocialVerifier{"google": &mockVerifier{err: errors.New("bad token")}}
	svc := NewAuthService(&mockAuthRepo{}, verifiers, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.SocialLogin(context.Background(), models.SocialLoginRequest{Provider: "google", AccessToken: "tok"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthServiceValidateToken(t *testing.T) {
	svc := NewAuthService(&mockAuthRepo{}, nil, validator.New(), zap.NewNop(), testAuthConfig())
	user := &models.User{ID: "u1", Email: "user@example.com", Username: "user", Role: models.RoleValidator}

	token, err := svc.generateAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleValidator, claims.Role)

	_, err = svc.ValidateToken(token + "tampered")
	require.Error(t, err)
}
