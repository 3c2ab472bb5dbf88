package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mylugha/mylugha-api/internal/models"
)

func languageColumns() []string {
	return []string{"id", "code", "name", "category", "description", "contributors_count", "words_count", "sentences_count", "audio_count", "created_at", "updated_at"}
}

func TestLanguageRepositoryFindByCode(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLanguageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM languages WHERE code = $1")).
		WithArgs("sw").
		WillReturnRows(sqlmock.NewRows(languageColumns()).
			AddRow("lang-1", "sw", "Kiswahili", models.CategoryBantu, "", 5, 3, 1, 1, time.Now(), time.Now()))

	language, err := repo.FindByCode(context.Background(), "sw")
	require.NoError(t, err)
	assert.Equal(t, "Kiswahili", language.Name)
	assert.Equal(t, 5, language.ContributorsCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLanguageRepositoryListFiltersAndSorts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLanguageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY contributors_count DESC")).
		WithArgs(models.CategoryBantu).
		WillReturnRows(sqlmock.NewRows(languageColumns()).
			AddRow("lang-1", "sw", "Kiswahili", models.CategoryBantu, "", 5, 3, 1, 1, time.Now(), time.Now()))

	category := models.CategoryBantu
	languages, err := repo.List(context.Background(), models.LanguageFilter{Category: &category, SortBy: "contributors_count", SortOrder: "desc"})
	require.NoError(t, err)
	require.Len(t, languages, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLanguageRepositoryListRejectsUnknownSortColumn(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLanguageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY name ASC")).
		WillReturnRows(sqlmock.NewRows(languageColumns()))

	_, err := repo.List(context.Background(), models.LanguageFilter{SortBy: "password_hash; DROP TABLE users"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLanguageRepositoryTypeBreakdown(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLanguageRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY type, content_type")).
		WithArgs("lang-1").
		WillReturnRows(sqlmock.NewRows([]string{"type", "content_type", "count"}).
			AddRow("text", "word", 10).
			AddRow("audio", "word", 2))

	entries, err := repo.TypeBreakdown(context.Background(), "lang-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 10, entries[0].Count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLanguageRepositoryReconcile(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLanguageRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("contributors_count = (SELECT COUNT(*) FROM contributions WHERE language_id = $1)")).
		WithArgs("lang-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Reconcile(context.Background(), "lang-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
