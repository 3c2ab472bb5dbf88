package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mylugha/mylugha-api/internal/dto"
	"github.com/mylugha/mylugha-api/internal/middleware"
	"github.com/mylugha/mylugha-api/internal/models"
	"github.com/mylugha/mylugha-api/internal/service"
	"github.com/mylugha/mylugha-api/pkg/config"
)

type contributionStoreStub struct {
	created *models.Contribution
	found   *models.Contribution
	err     error
}

func (s *contributionStoreStub) Create(ctx context.Context, contribution *models.Contribution, audio *models.AudioContribution) error {
	if s.err != nil {
		return s.err
	}
	contribution.ID = "c-new"
	s.created = contribution
	return nil
}

func (s *contributionStoreStub) FindByID(ctx context.Context, id string) (*models.Contribution, error) {
	if s.found == nil {
		return nil, sql.ErrNoRows
	}
	return s.found, nil
}

func (s *contributionStoreStub) List(ctx context.Context, filter models.ContributionFilter) ([]models.Contribution, int, error) {
	return nil, 0, nil
}

type languageReaderStub struct {
	language *models.Language
}

func (s *languageReaderStub) FindByCode(ctx context.Context, code string) (*models.Language, error) {
	if s.language == nil || s.language.Code != code {
		return nil, sql.ErrNoRows
	}
	return s.language, nil
}

type audioStoreStub struct{}

func (audioStoreStub) Save(filename string, data []byte) (string, error) { return filename, nil }
func (audioStoreStub) Open(filename string) (*os.File, error)           { return nil, os.ErrNotExist }
func (audioStoreStub) Delete(filename string) error                     { return nil }

type audioSignerStub struct{}

func (audioSignerStub) Generate(contributionID, relPath string) (string, time.Time, error) {
	return "signed-token", time.Now().Add(time.Hour), nil
}

func (audioSignerStub) Parse(token string, allowExpired bool) (string, string, time.Time, error) {
	return "", "", time.Time{}, os.ErrNotExist
}

func newContributionHandler(store *contributionStoreStub, languages *languageReaderStub) *ContributionHandler {
	svc := service.NewContributionService(store, languages, audioStoreStub{}, audioSignerStub{}, nil, config.AudioConfig{
		MaxFileSizeBytes: 1 << 20,
		AllowedMIMEs:     []string{"audio/mpeg"},
	}, nil, zap.NewNop())
	return NewContributionHandler(svc, nil)
}

func newContributionTestContext(t *testing.T, body interface{}, userID string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, "/contributions/text", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	if userID != "" {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: userID, Role: models.RoleUser})
	}
	return c, w
}

func textBody() dto.CreateTextContributionRequest {
	return dto.CreateTextContributionRequest{
		LanguageCode:   "sw",
		ContentType:    "word",
		OriginalText:   "water",
		TranslatedText: "maji",
	}
}

func TestContributionHandlerCreateTextSuccess(t *testing.T) {
	store := &contributionStoreStub{}
	languages := &languageReaderStub{language: &models.Language{ID: "lang-1", Code: "sw", Name: "Kiswahili"}}
	handler := newContributionHandler(store, languages)

	c, w := newContributionTestContext(t, textBody(), "u1")
	handler.CreateText(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, store.created)
	assert.Equal(t, models.StatusPending, store.created.Status)
	assert.Contains(t, w.Body.String(), `"status":"pending"`)
}

func TestContributionHandlerCreateTextUnknownLanguage(t *testing.T) {
	handler := newContributionHandler(&contributionStoreStub{}, &languageReaderStub{})

	c, w := newContributionTestContext(t, textBody(), "u1")
	handler.CreateText(c)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestContributionHandlerCreateTextUnauthenticated(t *testing.T) {
	handler := newContributionHandler(&contributionStoreStub{}, &languageReaderStub{})

	c, w := newContributionTestContext(t, textBody(), "")
	handler.CreateText(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestContributionHandlerCreateTextInvalidContentType(t *testing.T) {
	languages := &languageReaderStub{language: &models.Language{ID: "lang-1", Code: "sw", Name: "Kiswahili"}}
	handler := newContributionHandler(&contributionStoreStub{}, languages)

	body := textBody()
	body.ContentType = "novel"
	c, w := newContributionTestContext(t, body, "u1")
	handler.CreateText(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestContributionHandlerGetNotFound(t *testing.T) {
	handler := newContributionHandler(&contributionStoreStub{}, &languageReaderStub{})

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/contributions/missing", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
