package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mylugha/mylugha-api/internal/dto"
	"github.com/mylugha/mylugha-api/internal/models"
	"github.com/mylugha/mylugha-api/internal/service"
	appErrors "github.com/mylugha/mylugha-api/pkg/errors"
	"github.com/mylugha/mylugha-api/pkg/response"
)

// LanguageHandler wires HTTP endpoints to the language service.
type LanguageHandler struct {
	service *service.LanguageService
}

// NewLanguageHandler creates a new handler.
func NewLanguageHandler(svc *service.LanguageService) *LanguageHandler {
	return &LanguageHandler{service: svc}
}

// List godoc
// @Summary List languages
// @Description List catalog entries with optional category filter and sorting
// @Tags Languages
// @Produce json
// @Param category query string false "Language family" Enums(bantu, nilotic, cushitic, other)
// @Param search query string false "Search in code and name"
// @Param sort_by query string false "Sort column" Enums(name, code, contributors_count, words_count)
// @Param sort_order query string false "Sort direction" Enums(asc, desc)
// @Success 200 {object} response.Envelope
// @Router /languages [get]
func (h *LanguageHandler) List(c *gin.Context) {
	filter := models.LanguageFilter{
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if category := c.Query("category"); category != "" {
		cat := models.LanguageCategory(category)
		filter.Category = &cat
	}

	languages, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, languages, nil)
}

// Get godoc
// @Summary Get a language
// @Description Fetch a single catalog entry by its code
// @Tags Languages
// @Produce json
// @Param code path string true "Language code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /languages/{code} [get]
func (h *LanguageHandler) Get(c *gin.Context) {
	language, err := h.service.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, language, nil)
}

// Create godoc
// @Summary Create a language
// @Description Seed a catalog entry (admin only)
// @Tags Languages
// @Accept json
// @Produce json
// @Param payload body dto.CreateLanguageRequest true "Language payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /languages [post]
func (h *LanguageHandler) Create(c *gin.Context) {
	var req dto.CreateLanguageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid language payload"))
		return
	}

	language, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, language)
}

// Stats godoc
// @Summary Language statistics
// @Description Aggregated counters and contribution type breakdown
// @Tags Languages
// @Produce json
// @Param code path string true "Language code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /languages/{code}/stats [get]
func (h *LanguageHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Reconcile godoc
// @Summary Reconcile language counters
// @Description Schedule a background sweep recomputing the denormalized counters (admin only)
// @Tags Languages
// @Produce json
// @Param code path string true "Language code"
// @Success 202 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /languages/{code}/reconcile [post]
func (h *LanguageHandler) Reconcile(c *gin.Context) {
	if err := h.service.EnqueueReconcile(c.Request.Context(), c.Param("code")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"message": "reconciliation scheduled"}, nil)
}
