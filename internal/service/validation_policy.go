package service

import (
	"github.com/mylugha/mylugha-api/internal/models"
	"github.com/mylugha/mylugha-api/pkg/config"
)

// ValidationPolicy holds the peer-review thresholds that drive contribution
// status transitions.
type ValidationPolicy struct {
	MinValidations    int
	ValidateThreshold float64
	RejectThreshold   float64
}

// NewValidationPolicy builds a policy from configuration, falling back to the
// defaults (3 validations, 70% to validate, 30% to reject) when unset.
func NewValidationPolicy(cfg config.ValidationConfig) ValidationPolicy {
	p := ValidationPolicy{
		MinValidations:    cfg.MinValidations,
		ValidateThreshold: cfg.ValidateThreshold,
		RejectThreshold:   cfg.RejectThreshold,
	}
	if p.MinValidations <= 0 {
		p.MinValidations = 3
	}
	if p.ValidateThreshold <= 0 {
		p.ValidateThreshold = 0.7
	}
	if p.RejectThreshold <= 0 {
		p.RejectThreshold = 0.3
	}
	return p
}

// NextStatus computes a contribution's status from its post-increment
// counters. Below the minimum the previous status is kept. Past the minimum
// the ratio is re-evaluated on every validation, so a status can move between
// validated and rejected as judgments accumulate; there is no terminal
// lock-in. Between the two thresholds the previous status also stands.
func (p ValidationPolicy) NextStatus(validationsCount, positiveValidations int, prev models.ContributionStatus) models.ContributionStatus {
	if validationsCount < p.MinValidations {
		return prev
	}
	ratio := float64(positiveValidations) / float64(validationsCount)
	switch {
	case ratio >= p.ValidateThreshold:
		return models.StatusValidated
	case ratio <= p.RejectThreshold:
		return models.StatusRejected
	default:
		return prev
	}
}
