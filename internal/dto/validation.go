package dto

import "github.com/mylugha/mylugha-api/internal/models"

// CreateValidationRequest is the payload for submitting a peer validation.
type CreateValidationRequest struct {
	ContributionID string `json:"contribution_id" validate:"required"`
	IsValid        *bool  `json:"is_valid" validate:"required"`
	Feedback       string `json:"feedback"`
}

// ValidationResult pairs the stored validation with the contribution status
// that resulted from it.
type ValidationResult struct {
	Validation         models.Validation         `json:"validation"`
	ContributionStatus models.ContributionStatus `json:"contribution_status"`
}
