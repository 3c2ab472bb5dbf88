package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mylugha/mylugha-api/internal/dto"
	"github.com/mylugha/mylugha-api/internal/models"
	"github.com/mylugha/mylugha-api/internal/repository"
	appErrors "github.com/mylugha/mylugha-api/pkg/errors"
)

type validationStore interface {
	Create(ctx context.Context, validation *models.Validation) (models.ContributionStatus, error)
	FindVisibleByID(ctx context.Context, id, actorID string) (*models.Validation, error)
	ListVisible(ctx context.Context, actorID string, filter models.ValidationFilter) ([]models.Validation, int, error)
}

type contributionReader interface {
	FindByID(ctx context.Context, id string) (*models.Contribution, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ValidationService is the validation engine: it enforces eligibility rules
// and delegates the atomic counter/status update to the store.
type ValidationService struct {
	repo          validationStore
	contributions contributionReader
	audit         auditLogger
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewValidationService builds a ValidationService with sane defaults.
func NewValidationService(repo validationStore, contributions contributionReader, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *ValidationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ValidationService{
		repo:          repo,
		contributions: contributions,
		audit:         audit,
		validator:     validate,
		logger:        logger,
	}
}

// Submit records a peer validation. Preconditions are checked in order:
// missing contribution, self-validation, duplicate validation. The duplicate
// check is ultimately the store's unique constraint, so two concurrent
// submissions from the same validator cannot both pass.
func (s *ValidationService) Submit(ctx context.Context, claims *models.JWTClaims, req dto.CreateValidationRequest) (*dto.ValidationResult, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid validation payload")
	}

	contribution, err := s.contributions.FindByID(ctx, req.ContributionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "contribution not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contribution")
	}

	if contribution.UserID == claims.UserID {
		return nil, appErrors.ErrSelfValidation
	}

	validation := &models.Validation{
		ContributionID: req.ContributionID,
		ValidatorID:    claims.UserID,
		IsValid:        *req.IsValid,
		Feedback:       req.Feedback,
	}

	newStatus, err := s.repo.Create(ctx, validation)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateValidation) {
			return nil, appErrors.ErrDuplicateValidation
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "contribution not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record validation")
	}

	s.emitAudit(ctx, claims, validation, newStatus)

	return &dto.ValidationResult{
		Validation:         *validation,
		ContributionStatus: newStatus,
	}, nil
}

// Get returns a validation if the actor may see it: validators see their own
// judgments, contribution owners see judgments on their contributions.
func (s *ValidationService) Get(ctx context.Context, id string, claims *models.JWTClaims) (*models.Validation, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	validation, err := s.repo.FindVisibleByID(ctx, id, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "validation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load validation")
	}
	return validation, nil
}

// List returns the validations visible to the actor.
func (s *ValidationService) List(ctx context.Context, claims *models.JWTClaims, filter models.ValidationFilter) ([]models.Validation, *models.Pagination, error) {
	if claims == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	validations, total, err := s.repo.ListVisible(ctx, claims.UserID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list validations")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return validations, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

func (s *ValidationService) emitAudit(ctx context.Context, claims *models.JWTClaims, validation *models.Validation, status models.ContributionStatus) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"contributionId": validation.ContributionID,
		"isValid":        validation.IsValid,
		"status":         status,
	})
	log := &models.AuditLog{
		UserID:     &claims.UserID,
		Action:     models.AuditActionValidationCreate,
		Resource:   "validation",
		ResourceID: &validation.ID,
		NewValues:  payload,
		IPAddress:  "system",
		UserAgent:  "validation-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record validation audit", zap.Error(err))
	}
}
