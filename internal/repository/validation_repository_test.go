package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mylugha/mylugha-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func alwaysValidated(count, positive int, prev models.ContributionStatus) models.ContributionStatus {
	return models.StatusValidated
}

func TestValidationRepositoryCreateAppliesCountersAndStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	var gotCount, gotPositive int
	var gotPrev models.ContributionStatus
	decide := func(count, positive int, prev models.ContributionStatus) models.ContributionStatus {
		gotCount, gotPositive, gotPrev = count, positive, prev
		return models.StatusValidated
	}
	repo := NewValidationRepository(db, decide)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, validations_count, positive_validations, status FROM contributions WHERE id = $1 FOR UPDATE")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "validations_count", "positive_validations", "status"}).
			AddRow("c1", "owner", 2, 2, models.StatusPending))
	mock.ExpectExec("INSERT INTO validations").
		WithArgs("v1", "c1", "peer", true, "looks right", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE contributions SET validations_count = $2, positive_validations = $3, status = $4, updated_at = $5 WHERE id = $1")).
		WithArgs("c1", 3, 3, models.StatusValidated, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET total_validations = total_validations + 1, updated_at = $2 WHERE id = $1")).
		WithArgs("peer", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	validation := &models.Validation{
		ID:             "v1",
		ContributionID: "c1",
		ValidatorID:    "peer",
		IsValid:        true,
		Feedback:       "looks right",
	}
	status, err := repo.Create(context.Background(), validation)
	require.NoError(t, err)
	assert.Equal(t, models.StatusValidated, status)
	assert.Equal(t, 3, gotCount)
	assert.Equal(t, 3, gotPositive)
	assert.Equal(t, models.StatusPending, gotPrev)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestValidationRepositoryCreateContributionMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewValidationRepository(db, alwaysValidated)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, user_id, validations_count").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), &models.Validation{ID: "v1", ContributionID: "missing", ValidatorID: "peer"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestValidationRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewValidationRepository(db, alwaysValidated)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, user_id, validations_count").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "validations_count", "positive_validations", "status"}).
			AddRow("c1", "owner", 1, 1, models.StatusPending))
	mock.ExpectExec("INSERT INTO validations").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), &models.Validation{ID: "v1", ContributionID: "c1", ValidatorID: "peer", IsValid: true})
	assert.ErrorIs(t, err, ErrDuplicateValidation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestValidationRepositoryFindVisibleByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewValidationRepository(db, alwaysValidated)

	mock.ExpectQuery("SELECT v.id, v.contribution_id, v.validator_id").
		WithArgs("v1", "peer").
		WillReturnRows(sqlmock.NewRows([]string{"id", "contribution_id", "validator_id", "is_valid", "feedback", "created_at"}).
			AddRow("v1", "c1", "peer", true, "", time.Now()))

	validation, err := repo.FindVisibleByID(context.Background(), "v1", "peer")
	require.NoError(t, err)
	assert.Equal(t, "c1", validation.ContributionID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestValidationRepositoryListVisibleFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewValidationRepository(db, alwaysValidated)

	isValid := true
	mock.ExpectQuery("SELECT v.id, v.contribution_id").
		WithArgs("actor", "c1", true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "contribution_id", "validator_id", "is_valid", "feedback", "created_at"}).
			AddRow("v1", "c1", "actor", true, "", time.Now()))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("actor", "c1", true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	validations, total, err := repo.ListVisible(context.Background(), "actor", models.ValidationFilter{ContributionID: "c1", IsValid: &isValid})
	require.NoError(t, err)
	assert.Len(t, validations, 1)
	assert.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}
