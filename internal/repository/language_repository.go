package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mylugha/mylugha-api/internal/dto"
	"github.com/mylugha/mylugha-api/internal/models"
)

// LanguageRepository provides database access for the language catalog.
type LanguageRepository struct {
	db *sqlx.DB
}

// NewLanguageRepository creates a new instance of LanguageRepository.
func NewLanguageRepository(db *sqlx.DB) *LanguageRepository {
	return &LanguageRepository{db: db}
}

// Create inserts a catalog entry (seeding path).
func (r *LanguageRepository) Create(ctx context.Context, language *models.Language) error {
	if language.ID == "" {
		language.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if language.CreatedAt.IsZero() {
		language.CreatedAt = now
	}
	language.UpdatedAt = now

	const query = `INSERT INTO languages (id, code, name, category, description, contributors_count, words_count, sentences_count, audio_count, created_at, updated_at)
VALUES (:id, :code, :name, :category, :description, :contributors_count, :words_count, :sentences_count, :audio_count, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, language); err != nil {
		return fmt.Errorf("create language: %w", err)
	}
	return nil
}

// FindByCode returns a language by its unique code.
func (r *LanguageRepository) FindByCode(ctx context.Context, code string) (*models.Language, error) {
	const query = `SELECT id, code, name, category, description, contributors_count, words_count, sentences_count, audio_count, created_at, updated_at FROM languages WHERE code = $1 LIMIT 1`
	var language models.Language
	if err := r.db.GetContext(ctx, &language, query, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find language by code: %w", err)
	}
	return &language, nil
}

// List returns catalog entries matching the filter, name-ordered by default.
func (r *LanguageRepository) List(ctx context.Context, filter models.LanguageFilter) ([]models.Language, error) {
	baseQuery := `SELECT id, code, name, category, description, contributors_count, words_count, sentences_count, audio_count, created_at, updated_at FROM languages WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, *filter.Category)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(code) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"name":               true,
		"code":               true,
		"contributors_count": true,
		"words_count":        true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "name"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "ASC"
	}

	query := fmt.Sprintf("%s ORDER BY %s %s", baseQuery, sortBy, sortOrder)

	var languages []models.Language
	if err := r.db.SelectContext(ctx, &languages, query, args...); err != nil {
		return nil, fmt.Errorf("list languages: %w", err)
	}
	return languages, nil
}

// TypeBreakdown returns grouped contribution counts by type and content type
// for the given language.
func (r *LanguageRepository) TypeBreakdown(ctx context.Context, languageID string) ([]dto.TypeBreakdownEntry, error) {
	const query = `SELECT type, content_type, COUNT(*) AS count FROM contributions WHERE language_id = $1 GROUP BY type, content_type ORDER BY count DESC`
	var entries []dto.TypeBreakdownEntry
	if err := r.db.SelectContext(ctx, &entries, query, languageID); err != nil {
		return nil, fmt.Errorf("language type breakdown: %w", err)
	}
	return entries, nil
}

// Reconcile recomputes the language's denormalized counters from the
// contributions table inside one transaction. contributors_count is
// deliberately recomputed as total contributions, matching the increment
// behavior on the write path.
func (r *LanguageRepository) Reconcile(ctx context.Context, languageID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reconcile tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `UPDATE languages SET
	words_count = (SELECT COUNT(*) FROM contributions WHERE language_id = $1 AND type = 'text' AND content_type = 'word'),
	sentences_count = (SELECT COUNT(*) FROM contributions WHERE language_id = $1 AND type = 'text' AND content_type = 'sentence'),
	audio_count = (SELECT COUNT(*) FROM contributions WHERE language_id = $1 AND type = 'audio'),
	contributors_count = (SELECT COUNT(*) FROM contributions WHERE language_id = $1),
	updated_at = $2
WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, languageID, time.Now().UTC()); err != nil {
		return fmt.Errorf("reconcile language counters: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reconcile tx: %w", err)
	}
	return nil
}
