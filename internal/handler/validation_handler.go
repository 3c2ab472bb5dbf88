package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mylugha/mylugha-api/internal/dto"
	"github.com/mylugha/mylugha-api/internal/models"
	"github.com/mylugha/mylugha-api/internal/service"
	appErrors "github.com/mylugha/mylugha-api/pkg/errors"
	"github.com/mylugha/mylugha-api/pkg/response"
)

// ValidationHandler wires HTTP endpoints to the validation service.
type ValidationHandler struct {
	service *service.ValidationService
	metrics *service.MetricsService
}

// NewValidationHandler creates a new handler.
func NewValidationHandler(svc *service.ValidationService, metrics *service.MetricsService) *ValidationHandler {
	return &ValidationHandler{service: svc, metrics: metrics}
}

// Create godoc
// @Summary Submit a validation
// @Description Record a peer judgment on a pending contribution
// @Tags Validations
// @Accept json
// @Produce json
// @Param payload body dto.CreateValidationRequest true "Validation payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /validations [post]
func (h *ValidationHandler) Create(c *gin.Context) {
	var req dto.CreateValidationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid validation payload"))
		return
	}

	result, err := h.service.Submit(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordValidation(result.Validation.IsValid)
	response.Created(c, result)
}

// Get godoc
// @Summary Get a validation
// @Description Fetch a validation visible to the caller
// @Tags Validations
// @Produce json
// @Param id path string true "Validation ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /validations/{id} [get]
func (h *ValidationHandler) Get(c *gin.Context) {
	validation, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, validation, nil)
}

// List godoc
// @Summary List validations
// @Description List validations visible to the caller
// @Tags Validations
// @Produce json
// @Param contribution query string false "Contribution ID"
// @Param is_valid query bool false "Judgment filter"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /validations [get]
func (h *ValidationHandler) List(c *gin.Context) {
	filter := models.ValidationFilter{
		ContributionID: c.Query("contribution"),
	}
	if v := c.Query("is_valid"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err == nil {
			filter.IsValid = &parsed
		}
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	validations, pagination, err := h.service.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, validations, pagination)
}
