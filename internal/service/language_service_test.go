package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mylugha/mylugha-api/internal/dto"
	"github.com/mylugha/mylugha-api/internal/models"
	appErrors "github.com/mylugha/mylugha-api/pkg/errors"
	"github.com/mylugha/mylugha-api/pkg/jobs"
)

type mockLanguageStore struct {
	created       *models.Language
	language      *models.Language
	findErr       error
	breakdown     []dto.TypeBreakdownEntry
	breakdownHits int
	reconciled    []string
}

func (m *mockLanguageStore) Create(ctx context.Context, language *models.Language) error {
	m.created = language
	return nil
}

func (m *mockLanguageStore) FindByCode(ctx context.Context, code string) (*models.Language, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.language, nil
}

func (m *mockLanguageStore) List(ctx context.Context, filter models.LanguageFilter) ([]models.Language, error) {
	if m.language == nil {
		return nil, nil
	}
	return []models.Language{*m.language}, nil
}

func (m *mockLanguageStore) TypeBreakdown(ctx context.Context, languageID string) ([]dto.TypeBreakdownEntry, error) {
	m.breakdownHits++
	return m.breakdown, nil
}

func (m *mockLanguageStore) Reconcile(ctx context.Context, languageID string) error {
	m.reconciled = append(m.reconciled, languageID)
	return nil
}

type mockStatsCache struct {
	values map[string][]byte
	sets   int
}

func (m *mockStatsCache) Get(ctx context.Context, key string, dest interface{}) error {
	if m.values == nil {
		return appErrors.ErrCacheMiss
	}
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	stats, ok := dest.(*dto.LanguageStats)
	if !ok {
		return appErrors.ErrCacheMiss
	}
	stats.Code = string(raw)
	return nil
}

func (m *mockStatsCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.sets++
	return nil
}

type mockQueue struct {
	jobs       []jobs.Job
	enqueueErr error
}

func (m *mockQueue) Enqueue(job jobs.Job) error {
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	m.jobs = append(m.jobs, job)
	return nil
}

type mockStatsObserver struct {
	cacheOps []bool
	dbLabels []string
}

func (m *mockStatsObserver) RecordCacheOperation(hit bool) {
	m.cacheOps = append(m.cacheOps, hit)
}

func (m *mockStatsObserver) ObserveDBQuery(label string, duration time.Duration) {
	m.dbLabels = append(m.dbLabels, label)
}

func kikuyu() *models.Language {
	return &models.Language{
		ID:                "lang-ki",
		Code:              "ki",
		Name:              "Gikuyu",
		Category:          models.CategoryBantu,
		WordsCount:        10,
		SentencesCount:    4,
		AudioCount:        2,
		ContributorsCount: 16,
	}
}

func TestLanguageServiceCreateConflict(t *testing.T) {
	store := &mockLanguageStore{language: kikuyu()}
	svc := NewLanguageService(store, nil, nil, nil, time.Minute, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), dto.CreateLanguageRequest{Code: "ki", Name: "Gikuyu", Category: "bantu"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Nil(t, store.created)
}

func TestLanguageServiceCreateSuccess(t *testing.T) {
	store := &mockLanguageStore{findErr: sql.ErrNoRows}
	svc := NewLanguageService(store, nil, nil, nil, time.Minute, validator.New(), zap.NewNop())

	language, err := svc.Create(context.Background(), dto.CreateLanguageRequest{Code: "luo", Name: "Dholuo", Category: "nilotic"})
	require.NoError(t, err)
	assert.Equal(t, models.CategoryNilotic, language.Category)
	require.NotNil(t, store.created)
}

func TestLanguageServiceStatsCacheMiss(t *testing.T) {
	store := &mockLanguageStore{
		language:  kikuyu(),
		breakdown: []dto.TypeBreakdownEntry{{Type: "text", ContentType: "word", Count: 10}},
	}
	cache := &mockStatsCache{}
	svc := NewLanguageService(store, cache, nil, nil, time.Minute, validator.New(), zap.NewNop())

	stats, err := svc.Stats(context.Background(), "ki")
	require.NoError(t, err)
	assert.Equal(t, 10, stats.TotalWords)
	assert.Equal(t, 4, stats.TotalSentences)
	assert.Equal(t, 2, stats.TotalAudio)
	assert.Equal(t, 16, stats.TotalContributors)
	assert.Len(t, stats.ContributionTypes, 1)
	assert.Equal(t, 1, store.breakdownHits)
	assert.Equal(t, 1, cache.sets)
}

func TestLanguageServiceStatsCacheHit(t *testing.T) {
	store := &mockLanguageStore{language: kikuyu()}
	cache := &mockStatsCache{values: map[string][]byte{"stats:language:ki": []byte("ki")}}
	svc := NewLanguageService(store, cache, nil, nil, time.Minute, validator.New(), zap.NewNop())

	stats, err := svc.Stats(context.Background(), "ki")
	require.NoError(t, err)
	assert.Equal(t, "ki", stats.Code)
	assert.Equal(t, 0, store.breakdownHits)
	assert.Equal(t, 0, cache.sets)
}

func TestLanguageServiceStatsRecordsCacheMetrics(t *testing.T) {
	store := &mockLanguageStore{
		language:  kikuyu(),
		breakdown: []dto.TypeBreakdownEntry{{Type: "text", ContentType: "word", Count: 10}},
	}
	cache := &mockStatsCache{}
	observer := &mockStatsObserver{}
	svc := NewLanguageService(store, cache, nil, observer, time.Minute, validator.New(), zap.NewNop())

	_, err := svc.Stats(context.Background(), "ki")
	require.NoError(t, err)
	assert.Equal(t, []bool{false}, observer.cacheOps)
	assert.Equal(t, []string{"language_stats"}, observer.dbLabels)

	cache.values = map[string][]byte{"stats:language:ki": []byte("ki")}
	_, err = svc.Stats(context.Background(), "ki")
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, observer.cacheOps)
	assert.Equal(t, []string{"language_stats"}, observer.dbLabels)
}

func TestLanguageServiceStatsUnknownLanguage(t *testing.T) {
	store := &mockLanguageStore{findErr: sql.ErrNoRows}
	svc := NewLanguageService(store, &mockStatsCache{}, nil, nil, time.Minute, validator.New(), zap.NewNop())

	_, err := svc.Stats(context.Background(), "zz")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestLanguageServiceEnqueueReconcile(t *testing.T) {
	store := &mockLanguageStore{language: kikuyu()}
	queue := &mockQueue{}
	svc := NewLanguageService(store, nil, queue, nil, time.Minute, validator.New(), zap.NewNop())

	require.NoError(t, svc.EnqueueReconcile(context.Background(), "ki"))
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "language_reconcile", queue.jobs[0].Type)
	assert.Equal(t, "lang-ki", queue.jobs[0].Payload)
}

func TestLanguageServiceReconcileJobHandler(t *testing.T) {
	store := &mockLanguageStore{language: kikuyu()}
	observer := &mockStatsObserver{}
	svc := NewLanguageService(store, nil, nil, observer, time.Minute, validator.New(), zap.NewNop())

	handler := svc.ReconcileJobHandler()
	require.NoError(t, handler(context.Background(), jobs.Job{ID: "j1", Type: "language_reconcile", Payload: "lang-ki"}))
	assert.Equal(t, []string{"lang-ki"}, store.reconciled)
	assert.Equal(t, []string{"language_reconcile"}, observer.dbLabels)

	require.Error(t, handler(context.Background(), jobs.Job{ID: "j2", Type: "language_reconcile", Payload: 42}))
}
