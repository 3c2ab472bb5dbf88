package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/mylugha/mylugha-api/internal/models"
)

// ErrDuplicateValidation is returned when the store's unique constraint on
// (contribution_id, validator_id) rejects an insert. Relying on the
// constraint, not a pre-check, closes the check-then-act race between two
// concurrent submissions from the same validator.
var ErrDuplicateValidation = errors.New("duplicate validation")

const pqUniqueViolation = "23505"

// StatusTransition computes a contribution's next status from its
// post-increment counters and previous status.
type StatusTransition func(validationsCount, positiveValidations int, prev models.ContributionStatus) models.ContributionStatus

// ValidationRepository persists validations and performs the per-contribution
// atomic unit: insert the validation row, recompute the contribution's
// counters and status under a row lock, and bump the validator's counter.
type ValidationRepository struct {
	db     *sqlx.DB
	decide StatusTransition
}

// NewValidationRepository constructs the repository with the status
// transition rule to apply inside the creation transaction.
func NewValidationRepository(db *sqlx.DB, decide StatusTransition) *ValidationRepository {
	return &ValidationRepository{db: db, decide: decide}
}

// contributionCounters is the locked projection used during the transaction.
type contributionCounters struct {
	ID                  string                    `db:"id"`
	UserID              string                    `db:"user_id"`
	ValidationsCount    int                       `db:"validations_count"`
	PositiveValidations int                       `db:"positive_validations"`
	Status              models.ContributionStatus `db:"status"`
}

// Create inserts the validation and applies the counter/status updates in one
// transaction. The contribution row is locked FOR UPDATE so concurrent
// validators serialize on it; a unique violation surfaces as
// ErrDuplicateValidation. On success the validation carries its stored
// timestamps and the new status is returned.
func (r *ValidationRepository) Create(ctx context.Context, validation *models.Validation) (models.ContributionStatus, error) {
	if validation.ID == "" {
		validation.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if validation.CreatedAt.IsZero() {
		validation.CreatedAt = now
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin validation tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const lockQuery = `SELECT id, user_id, validations_count, positive_validations, status FROM contributions WHERE id = $1 FOR UPDATE`
	var counters contributionCounters
	if err := tx.GetContext(ctx, &counters, lockQuery, validation.ContributionID); err != nil {
		if err == sql.ErrNoRows {
			return "", sql.ErrNoRows
		}
		return "", fmt.Errorf("lock contribution: %w", err)
	}

	const insertQuery = `INSERT INTO validations (id, contribution_id, validator_id, is_valid, feedback, created_at)
VALUES (:id, :contribution_id, :validator_id, :is_valid, :feedback, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, validation); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return "", ErrDuplicateValidation
		}
		return "", fmt.Errorf("insert validation: %w", err)
	}

	counters.ValidationsCount++
	if validation.IsValid {
		counters.PositiveValidations++
	}
	newStatus := r.decide(counters.ValidationsCount, counters.PositiveValidations, counters.Status)

	const updateContribution = `UPDATE contributions SET validations_count = $2, positive_validations = $3, status = $4, updated_at = $5 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, updateContribution, counters.ID, counters.ValidationsCount, counters.PositiveValidations, newStatus, now); err != nil {
		return "", fmt.Errorf("update contribution counters: %w", err)
	}

	const updateValidator = `UPDATE users SET total_validations = total_validations + 1, updated_at = $2 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, updateValidator, validation.ValidatorID, now); err != nil {
		return "", fmt.Errorf("update validator counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit validation tx: %w", err)
	}
	return newStatus, nil
}

// FindVisibleByID returns a validation if the actor is its validator or owns
// the validated contribution; sql.ErrNoRows otherwise.
func (r *ValidationRepository) FindVisibleByID(ctx context.Context, id, actorID string) (*models.Validation, error) {
	const query = `SELECT v.id, v.contribution_id, v.validator_id, v.is_valid, v.feedback, v.created_at
FROM validations v
JOIN contributions c ON c.id = v.contribution_id
WHERE v.id = $1 AND (v.validator_id = $2 OR c.user_id = $2) LIMIT 1`
	var validation models.Validation
	if err := r.db.GetContext(ctx, &validation, query, id, actorID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find validation by id: %w", err)
	}
	return &validation, nil
}

// ListVisible returns validations visible to the actor: their own judgments
// plus validations on contributions they own, newest first.
func (r *ValidationRepository) ListVisible(ctx context.Context, actorID string, filter models.ValidationFilter) ([]models.Validation, int, error) {
	baseQuery := `FROM validations v
JOIN contributions c ON c.id = v.contribution_id
WHERE (v.validator_id = $1 OR c.user_id = $1)`
	args := []interface{}{actorID}
	var conditions []string

	if filter.ContributionID != "" {
		conditions = append(conditions, fmt.Sprintf("v.contribution_id = $%d", len(args)+1))
		args = append(args, filter.ContributionID)
	}
	if filter.IsValid != nil {
		conditions = append(conditions, fmt.Sprintf("v.is_valid = $%d", len(args)+1))
		args = append(args, *filter.IsValid)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf(`SELECT v.id, v.contribution_id, v.validator_id, v.is_valid, v.feedback, v.created_at %s ORDER BY v.created_at DESC LIMIT %d OFFSET %d`, baseQuery, pageSize, offset)

	var validations []models.Validation
	if err := r.db.SelectContext(ctx, &validations, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list validations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count validations: %w", err)
	}

	return validations, total, nil
}
