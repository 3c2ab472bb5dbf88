package models

import "time"

// Validation is a peer's judgment on a contribution. The table carries a
// unique constraint on (contribution_id, validator_id); rows are append-only.
type Validation struct {
	ID             string    `db:"id" json:"id"`
	ContributionID string    `db:"contribution_id" json:"contribution_id"`
	ValidatorID    string    `db:"validator_id" json:"validator_id"`
	IsValid        bool      `db:"is_valid" json:"is_valid"`
	Feedback       string    `db:"feedback" json:"feedback,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ValidationFilter captures listing filters for validations.
type ValidationFilter struct {
	ContributionID string
	IsValid        *bool
	Page           int
	PageSize       int
}
