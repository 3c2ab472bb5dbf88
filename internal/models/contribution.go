package models

import "time"

// ContributionType distinguishes text from audio submissions.
type ContributionType string

const (
	TypeText  ContributionType = "text"
	TypeAudio ContributionType = "audio"
)

// ContentType describes the granularity of the submitted unit.
type ContentType string

const (
	ContentWord      ContentType = "word"
	ContentSentence  ContentType = "sentence"
	ContentParagraph ContentType = "paragraph"
	ContentStory     ContentType = "story"
)

// ContributionStatus is the lifecycle status driven by peer validations.
type ContributionStatus string

const (
	StatusPending   ContributionStatus = "pending"
	StatusValidated ContributionStatus = "validated"
	StatusRejected  ContributionStatus = "rejected"
)

// Contribution is a single user-submitted translation unit. The original and
// translated texts are immutable after creation; the validation counters and
// status are only written inside the validation transaction.
type Contribution struct {
	ID                  string             `db:"id" json:"id"`
	UserID              string             `db:"user_id" json:"user_id"`
	Username            string             `db:"username" json:"username,omitempty"`
	LanguageID          string             `db:"language_id" json:"language_id"`
	LanguageCode        string             `db:"language_code" json:"language_code,omitempty"`
	LanguageName        string             `db:"language_name" json:"language_name,omitempty"`
	Type                ContributionType   `db:"type" json:"type"`
	ContentType         ContentType        `db:"content_type" json:"content_type"`
	OriginalText        string             `db:"original_text" json:"original_text"`
	TranslatedText      string             `db:"translated_text" json:"translated_text"`
	Context             string             `db:"context" json:"context,omitempty"`
	Anonymous           bool               `db:"anonymous" json:"anonymous"`
	Status              ContributionStatus `db:"status" json:"status"`
	ValidationsCount    int                `db:"validations_count" json:"validations_count"`
	PositiveValidations int                `db:"positive_validations" json:"positive_validations"`
	CreatedAt           time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time          `db:"updated_at" json:"updated_at"`

	Audio *AudioContribution `db:"-" json:"audio,omitempty"`
}

// ValidationRatio returns positive_validations / validations_count, or 0 when
// no validations exist. Pure read, no side effects.
func (c *Contribution) ValidationRatio() float64 {
	if c.ValidationsCount == 0 {
		return 0
	}
	return float64(c.PositiveValidations) / float64(c.ValidationsCount)
}

// AudioContribution extends a Contribution of type audio with blob metadata.
// Created atomically with its parent.
type AudioContribution struct {
	ContributionID string  `db:"contribution_id" json:"-"`
	AudioFile      string  `db:"audio_file" json:"audio_file"`
	Duration       float64 `db:"duration" json:"duration,omitempty"`
	FileSize       int64   `db:"file_size" json:"file_size,omitempty"`
	Transcription  string  `db:"transcription" json:"transcription,omitempty"`
}

// ContributionFilter captures the listing filters for contributions.
type ContributionFilter struct {
	LanguageCode string
	Type         *ContributionType
	ContentType  *ContentType
	Status       *ContributionStatus
	// OwnerID restricts results to a single owner (my_contributions).
	OwnerID string
	// EligibleForUserID restricts results to pending contributions the user
	// may validate: not their own, not yet validated by them.
	EligibleForUserID string
	Search            string
	Page              int
	PageSize          int
}
