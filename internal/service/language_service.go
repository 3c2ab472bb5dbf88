package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mylugha/mylugha-api/internal/dto"
	"github.com/mylugha/mylugha-api/internal/models"
	appErrors "github.com/mylugha/mylugha-api/pkg/errors"
	"github.com/mylugha/mylugha-api/pkg/jobs"
)

const statsCacheKeyPrefix = "stats:language:"

type languageStore interface {
	Create(ctx context.Context, language *models.Language) error
	FindByCode(ctx context.Context, code string) (*models.Language, error)
	List(ctx context.Context, filter models.LanguageFilter) ([]models.Language, error)
	TypeBreakdown(ctx context.Context, languageID string) ([]dto.TypeBreakdownEntry, error)
	Reconcile(ctx context.Context, languageID string) error
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type reconcileQueue interface {
	Enqueue(job jobs.Job) error
}

type statsObserver interface {
	RecordCacheOperation(hit bool)
	ObserveDBQuery(label string, duration time.Duration)
}

// LanguageService serves the catalog and the per-language statistics
// aggregation, caching stats payloads cache-aside in redis.
type LanguageService struct {
	repo      languageStore
	cache     statsCache
	queue     reconcileQueue
	metrics   statsObserver
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLanguageService builds a LanguageService with sane defaults.
func NewLanguageService(repo languageStore, cache statsCache, queue reconcileQueue, metrics statsObserver, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *LanguageService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &LanguageService{
		repo:      repo,
		cache:     cache,
		queue:     queue,
		metrics:   metrics,
		cacheTTL:  cacheTTL,
		validator: validate,
		logger:    logger,
	}
}

// AttachReconcileQueue wires the background queue after construction. The
// queue's handler comes from this service, so the two cannot be built in one
// step.
func (s *LanguageService) AttachReconcileQueue(q reconcileQueue) {
	s.queue = q
}

// List returns catalog entries matching the filter.
func (s *LanguageService) List(ctx context.Context, filter models.LanguageFilter) ([]models.Language, error) {
	languages, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list languages")
	}
	return languages, nil
}

// Get returns a language by code.
func (s *LanguageService) Get(ctx context.Context, code string) (*models.Language, error) {
	language, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "language not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load language")
	}
	return language, nil
}

// Create seeds a catalog entry (admin path).
func (s *LanguageService) Create(ctx context.Context, req dto.CreateLanguageRequest) (*models.Language, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid language payload")
	}

	if _, err := s.repo.FindByCode(ctx, req.Code); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("language %q already exists", req.Code))
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check language")
	}

	language := &models.Language{
		Code:        req.Code,
		Name:        req.Name,
		Category:    models.LanguageCategory(req.Category),
		Description: req.Description,
	}
	if err := s.repo.Create(ctx, language); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create language")
	}
	return language, nil
}

// Stats aggregates the language's denormalized counters with a grouped count
// over its contributions, served cache-aside.
func (s *LanguageService) Stats(ctx context.Context, code string) (*dto.LanguageStats, error) {
	cacheKey := statsCacheKeyPrefix + code
	if s.cache != nil {
		var cached dto.LanguageStats
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.observeCache(true)
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("stats cache read failed", zap.String("language", code), zap.Error(err))
		}
		s.observeCache(false)
	}

	started := time.Now()
	language, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	breakdown, err := s.repo.TypeBreakdown(ctx, language.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate contributions")
	}
	s.observeDB("language_stats", time.Since(started))

	stats := &dto.LanguageStats{
		Code:              language.Code,
		TotalWords:        language.WordsCount,
		TotalSentences:    language.SentencesCount,
		TotalAudio:        language.AudioCount,
		TotalContributors: language.ContributorsCount,
		ContributionTypes: breakdown,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, stats, s.cacheTTL); err != nil {
			s.logger.Warn("stats cache write failed", zap.String("language", code), zap.Error(err))
		}
	}
	return stats, nil
}

// EnqueueReconcile schedules a counter reconciliation sweep for the language.
func (s *LanguageService) EnqueueReconcile(ctx context.Context, code string) error {
	language, err := s.Get(ctx, code)
	if err != nil {
		return err
	}
	if s.queue == nil {
		return appErrors.Clone(appErrors.ErrInternal, "reconciliation queue not configured")
	}
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    "language_reconcile",
		Payload: language.ID,
	}
	if err := s.queue.Enqueue(job); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue reconciliation")
	}
	return nil
}

// ReconcileJobHandler returns the queue handler that recomputes a language's
// counters from the contribution table.
func (s *LanguageService) ReconcileJobHandler() jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		languageID, ok := job.Payload.(string)
		if !ok {
			return fmt.Errorf("reconcile job %s: unexpected payload %T", job.ID, job.Payload)
		}
		started := time.Now()
		if err := s.repo.Reconcile(ctx, languageID); err != nil {
			return err
		}
		s.observeDB("language_reconcile", time.Since(started))
		s.logger.Info("language counters reconciled", zap.String("language_id", languageID))
		return nil
	}
}

func (s *LanguageService) observeCache(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(hit)
	}
}

func (s *LanguageService) observeDB(label string, duration time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveDBQuery(label, duration)
	}
}
