package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mylugha/mylugha-api/internal/models"
)

// ContributionRepository provides persistence for contributions and keeps the
// denormalized language/user counters in step with the rows it creates.
type ContributionRepository struct {
	db *sqlx.DB
}

// NewContributionRepository creates a new instance of ContributionRepository.
func NewContributionRepository(db *sqlx.DB) *ContributionRepository {
	return &ContributionRepository{db: db}
}

// Create inserts a contribution (and its audio child when present) and applies
// the creation-side counter updates in a single transaction: the language's
// word/sentence/audio counter, the language's contributors counter, and the
// owner's total_contributions. All of it commits or none of it does.
func (r *ContributionRepository) Create(ctx context.Context, contribution *models.Contribution, audio *models.AudioContribution) error {
	if contribution.ID == "" {
		contribution.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if contribution.CreatedAt.IsZero() {
		contribution.CreatedAt = now
	}
	contribution.UpdatedAt = now
	if contribution.Status == "" {
		contribution.Status = models.StatusPending
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin contribution tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertQuery = `INSERT INTO contributions (id, user_id, language_id, type, content_type, original_text, translated_text, context, anonymous, status, validations_count, positive_validations, created_at, updated_at)
VALUES (:id, :user_id, :language_id, :type, :content_type, :original_text, :translated_text, :context, :anonymous, :status, :validations_count, :positive_validations, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, contribution); err != nil {
		return fmt.Errorf("insert contribution: %w", err)
	}

	if audio != nil {
		audio.ContributionID = contribution.ID
		const audioQuery = `INSERT INTO audio_contributions (contribution_id, audio_file, duration, file_size, transcription)
VALUES (:contribution_id, :audio_file, :duration, :file_size, :transcription)`
		if _, err := tx.NamedExecContext(ctx, audioQuery, audio); err != nil {
			return fmt.Errorf("insert audio contribution: %w", err)
		}
	}

	// contributors_count moves on every contribution, repeat contributors
	// included. Paragraph and story units are not separately counted.
	var counterColumn string
	switch {
	case contribution.Type == models.TypeAudio:
		counterColumn = "audio_count"
	case contribution.ContentType == models.ContentWord:
		counterColumn = "words_count"
	case contribution.ContentType == models.ContentSentence:
		counterColumn = "sentences_count"
	}

	languageQuery := `UPDATE languages SET contributors_count = contributors_count + 1, updated_at = $2 WHERE id = $1`
	if counterColumn != "" {
		languageQuery = fmt.Sprintf(`UPDATE languages SET %s = %s + 1, contributors_count = contributors_count + 1, updated_at = $2 WHERE id = $1`, counterColumn, counterColumn)
	}
	if _, err := tx.ExecContext(ctx, languageQuery, contribution.LanguageID, now); err != nil {
		return fmt.Errorf("update language counters: %w", err)
	}

	const userQuery = `UPDATE users SET total_contributions = total_contributions + 1, updated_at = $2 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, userQuery, contribution.UserID, now); err != nil {
		return fmt.Errorf("update user contribution counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit contribution tx: %w", err)
	}
	return nil
}

// FindByID returns a contribution with its language/owner projection and
// audio metadata when present.
func (r *ContributionRepository) FindByID(ctx context.Context, id string) (*models.Contribution, error) {
	const query = `SELECT c.id, c.user_id, u.username, c.language_id, l.code AS language_code, l.name AS language_name, c.type, c.content_type, c.original_text, c.translated_text, c.context, c.anonymous, c.status, c.validations_count, c.positive_validations, c.created_at, c.updated_at
FROM contributions c
JOIN users u ON u.id = c.user_id
JOIN languages l ON l.id = c.language_id
WHERE c.id = $1 LIMIT 1`
	var contribution models.Contribution
	if err := r.db.GetContext(ctx, &contribution, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find contribution by id: %w", err)
	}

	if contribution.Type == models.TypeAudio {
		const audioQuery = `SELECT contribution_id, audio_file, COALESCE(duration, 0) AS duration, COALESCE(file_size, 0) AS file_size, transcription FROM audio_contributions WHERE contribution_id = $1 LIMIT 1`
		var audio models.AudioContribution
		if err := r.db.GetContext(ctx, &audio, audioQuery, id); err != nil {
			if err != sql.ErrNoRows {
				return nil, fmt.Errorf("find audio contribution: %w", err)
			}
		} else {
			contribution.Audio = &audio
		}
	}

	return &contribution, nil
}

// List returns contributions matching the filter with total count, newest
// first. The EligibleForUserID filter implements the to-validate contract:
// pending, not owned by the user, not yet validated by the user.
func (r *ContributionRepository) List(ctx context.Context, filter models.ContributionFilter) ([]models.Contribution, int, error) {
	baseQuery := `FROM contributions c
JOIN users u ON u.id = c.user_id
JOIN languages l ON l.id = c.language_id
WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.LanguageCode != "" {
		conditions = append(conditions, fmt.Sprintf("l.code = $%d", len(args)+1))
		args = append(args, filter.LanguageCode)
	}
	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("c.type = $%d", len(args)+1))
		args = append(args, *filter.Type)
	}
	if filter.ContentType != nil {
		conditions = append(conditions, fmt.Sprintf("c.content_type = $%d", len(args)+1))
		args = append(args, *filter.ContentType)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("c.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.OwnerID != "" {
		conditions = append(conditions, fmt.Sprintf("c.user_id = $%d", len(args)+1))
		args = append(args, filter.OwnerID)
	}
	if filter.EligibleForUserID != "" {
		conditions = append(conditions, fmt.Sprintf("c.status = 'pending' AND c.user_id != $%d", len(args)+1))
		args = append(args, filter.EligibleForUserID)
		conditions = append(conditions, fmt.Sprintf("NOT EXISTS (SELECT 1 FROM validations v WHERE v.contribution_id = c.id AND v.validator_id = $%d)", len(args)+1))
		args = append(args, filter.EligibleForUserID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(c.original_text) LIKE $%d OR LOWER(c.translated_text) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
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

	listQuery := fmt.Sprintf(`SELECT c.id, c.user_id, u.username, c.language_id, l.code AS language_code, l.name AS language_name, c.type, c.content_type, c.original_text, c.translated_text, c.context, c.anonymous, c.status, c.validations_count, c.positive_validations, c.created_at, c.updated_at %s ORDER BY c.created_at DESC LIMIT %d OFFSET %d`, baseQuery, pageSize, offset)

	var contributions []models.Contribution
	if err := r.db.SelectContext(ctx, &contributions, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list contributions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count contributions: %w", err)
	}

	return contributions, total, nil
}
