package models

import "time"

// LanguageCategory classifies a language family.
type LanguageCategory string

const (
	CategoryBantu    LanguageCategory = "bantu"
	CategoryNilotic  LanguageCategory = "nilotic"
	CategoryCushitic LanguageCategory = "cushitic"
	CategoryOther    LanguageCategory = "other"
)

// Language represents a language in the catalog. The *_count columns are
// denormalized aggregates derived from the contributions table; they are only
// ever written by the contribution/validation transactions and the
// reconciliation sweep, never directly.
type Language struct {
	ID                string           `db:"id" json:"id"`
	Code              string           `db:"code" json:"code"`
	Name              string           `db:"name" json:"name"`
	Category          LanguageCategory `db:"category" json:"category"`
	Description       string           `db:"description" json:"description"`
	ContributorsCount int              `db:"contributors_count" json:"contributors_count"`
	WordsCount        int              `db:"words_count" json:"words_count"`
	SentencesCount    int              `db:"sentences_count" json:"sentences_count"`
	AudioCount        int              `db:"audio_count" json:"audio_count"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updated_at"`
}

// LanguageFilter captures filtering criteria for listing languages.
type LanguageFilter struct {
	Category  *LanguageCategory
	Search    string
	SortBy    string
	SortOrder string
}
