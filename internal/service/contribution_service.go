package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mylugha/mylugha-api/internal/dto"
	"github.com/mylugha/mylugha-api/internal/models"
	"github.com/mylugha/mylugha-api/pkg/config"
	appErrors "github.com/mylugha/mylugha-api/pkg/errors"
)

type contributionStore interface {
	Create(ctx context.Context, contribution *models.Contribution, audio *models.AudioContribution) error
	FindByID(ctx context.Context, id string) (*models.Contribution, error)
	List(ctx context.Context, filter models.ContributionFilter) ([]models.Contribution, int, error)
}

type languageReader interface {
	FindByCode(ctx context.Context, code string) (*models.Language, error)
}

type audioStore interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type audioSigner interface {
	Generate(contributionID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (contributionID, relPath string, expiresAt time.Time, err error)
}

type statsCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ContributionService handles text and audio submissions and the filtered
// listings, delegating blob storage to the storage collaborator.
type ContributionService struct {
	repo      contributionStore
	languages languageReader
	storage   audioStore
	signer    audioSigner
	cache     statsCacheInvalidator
	audioCfg  config.AudioConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewContributionService builds a ContributionService with sane defaults.
func NewContributionService(
	repo contributionStore,
	languages languageReader,
	storage audioStore,
	signer audioSigner,
	cache statsCacheInvalidator,
	audioCfg config.AudioConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *ContributionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContributionService{
		repo:      repo,
		languages: languages,
		storage:   storage,
		signer:    signer,
		cache:     cache,
		audioCfg:  audioCfg,
		validator: validate,
		logger:    logger,
	}
}

// CreateText submits a text contribution for the authenticated user.
func (s *ContributionService) CreateText(ctx context.Context, claims *models.JWTClaims, req dto.CreateTextContributionRequest) (*models.Contribution, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid contribution payload")
	}

	language, err := s.resolveLanguage(ctx, req.LanguageCode)
	if err != nil {
		return nil, err
	}

	contribution := &models.Contribution{
		UserID:         claims.UserID,
		LanguageID:     language.ID,
		LanguageCode:   language.Code,
		LanguageName:   language.Name,
		Type:           models.TypeText,
		ContentType:    models.ContentType(req.ContentType),
		OriginalText:   req.OriginalText,
		TranslatedText: req.TranslatedText,
		Context:        req.Context,
		Anonymous:      req.Anonymous,
		Status:         models.StatusPending,
	}

	if err := s.repo.Create(ctx, contribution, nil); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create contribution")
	}

	s.invalidateStats(ctx, language.Code)
	return contribution, nil
}

// CreateAudio submits an audio contribution: the payload is checked against
// size/MIME limits, stored through the blob-store collaborator, and the audio
// row is created atomically with its parent contribution.
func (s *ContributionService) CreateAudio(ctx context.Context, claims *models.JWTClaims, req dto.CreateAudioContributionRequest) (*models.Contribution, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid contribution payload")
	}
	if len(req.AudioPayload.Data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "audio file is required")
	}
	if s.audioCfg.MaxFileSizeBytes > 0 && int64(len(req.AudioPayload.Data)) > s.audioCfg.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, "audio file exceeds the maximum allowed size")
	}
	if !s.mimeAllowed(req.AudioPayload.ContentType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported audio type %q", req.AudioPayload.ContentType))
	}

	language, err := s.resolveLanguage(ctx, req.LanguageCode)
	if err != nil {
		return nil, err
	}

	contributionID := uuid.NewString()
	relPath := filepath.Join(time.Now().UTC().Format("2006/01"), contributionID+filepath.Ext(req.AudioPayload.Filename))
	storedPath, err := s.storage.Save(relPath, req.AudioPayload.Data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store audio file")
	}

	contribution := &models.Contribution{
		ID:             contributionID,
		UserID:         claims.UserID,
		LanguageID:     language.ID,
		LanguageCode:   language.Code,
		LanguageName:   language.Name,
		Type:           models.TypeAudio,
		ContentType:    models.ContentType(req.ContentType),
		OriginalText:   req.OriginalText,
		TranslatedText: req.TranslatedText,
		Context:        req.Context,
		Anonymous:      req.Anonymous,
		Status:         models.StatusPending,
	}
	audio := &models.AudioContribution{
		AudioFile: storedPath,
		FileSize:  int64(len(req.AudioPayload.Data)),
	}

	if err := s.repo.Create(ctx, contribution, audio); err != nil {
		// The row never outlives its blob; reap the blob when the row fails.
		if delErr := s.storage.Delete(storedPath); delErr != nil {
			s.logger.Warn("failed to reap orphaned audio blob", zap.String("path", storedPath), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create contribution")
	}

	contribution.Audio = audio
	s.invalidateStats(ctx, language.Code)
	return contribution, nil
}

// Get returns a contribution; audio contributions carry a signed download
// reference instead of the raw storage path.
func (s *ContributionService) Get(ctx context.Context, id string) (*models.Contribution, *dto.AudioDownload, error) {
	contribution, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "contribution not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contribution")
	}

	var download *dto.AudioDownload
	if contribution.Audio != nil && s.signer != nil {
		token, expiresAt, err := s.signer.Generate(contribution.ID, contribution.Audio.AudioFile)
		if err != nil {
			s.logger.Warn("failed to sign audio download", zap.String("contribution_id", contribution.ID), zap.Error(err))
		} else {
			download = &dto.AudioDownload{
				URL:       fmt.Sprintf("/contributions/%s/audio?token=%s", contribution.ID, token),
				ExpiresAt: expiresAt.Unix(),
			}
		}
	}

	return contribution, download, nil
}

// OpenAudio validates a signed token and returns a handle on the stored blob.
func (s *ContributionService) OpenAudio(ctx context.Context, contributionID, token string) (*os.File, error) {
	if s.signer == nil || s.storage == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "audio downloads not configured")
	}
	tokenContributionID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil || tokenContributionID != contributionID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "audio file not found")
	}
	return file, nil
}

// List returns contributions matching the filter. The mine and toValidate
// switches scope results to the caller per the access policy.
func (s *ContributionService) List(ctx context.Context, claims *models.JWTClaims, filter models.ContributionFilter, mine, toValidate bool) ([]models.Contribution, *models.Pagination, error) {
	if mine || toValidate {
		if claims == nil {
			return nil, nil, appErrors.ErrUnauthorized
		}
		if mine {
			filter.OwnerID = claims.UserID
		}
		if toValidate {
			filter.EligibleForUserID = claims.UserID
		}
	}

	contributions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contributions")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return contributions, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

func (s *ContributionService) resolveLanguage(ctx context.Context, code string) (*models.Language, error) {
	language, err := s.languages.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "language not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load language")
	}
	return language, nil
}

func (s *ContributionService) mimeAllowed(contentType string) bool {
	if len(s.audioCfg.AllowedMIMEs) == 0 {
		return true
	}
	for _, allowed := range s.audioCfg.AllowedMIMEs {
		if contentType == allowed {
			return true
		}
	}
	return false
}

func (s *ContributionService) invalidateStats(ctx context.Context, languageCode string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "stats:language:"+languageCode); err != nil {
		s.logger.Warn("failed to invalidate stats cache", zap.String("language", languageCode), zap.Error(err))
	}
}
