package handler

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mylugha/mylugha-api/internal/dto"
	"github.com/mylugha/mylugha-api/internal/models"
	"github.com/mylugha/mylugha-api/internal/service"
	appErrors "github.com/mylugha/mylugha-api/pkg/errors"
	"github.com/mylugha/mylugha-api/pkg/response"
)

// ContributionHandler wires HTTP endpoints to the contribution service.
type ContributionHandler struct {
	service *service.ContributionService
	metrics *service.MetricsService
}

// NewContributionHandler creates a new handler.
func NewContributionHandler(svc *service.ContributionService, metrics *service.MetricsService) *ContributionHandler {
	return &ContributionHandler{service: svc, metrics: metrics}
}

// List godoc
// @Summary List contributions
// @Description List contributions with filters; mine and to_validate scope results to the caller
// @Tags Contributions
// @Produce json
// @Param language query string false "Language code"
// @Param type query string false "Contribution type" Enums(text, audio)
// @Param content_type query string false "Content type" Enums(word, sentence, paragraph, story)
// @Param status query string false "Status" Enums(pending, validated, rejected)
// @Param search query string false "Search in original and translated text"
// @Param mine query bool false "Only the caller's contributions"
// @Param to_validate query bool false "Only contributions the caller may validate"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /contributions [get]
func (h *ContributionHandler) List(c *gin.Context) {
	filter := models.ContributionFilter{
		LanguageCode: c.Query("language"),
		Search:       c.Query("search"),
	}
	if t := c.Query("type"); t != "" {
		ct := models.ContributionType(t)
		filter.Type = &ct
	}
	if ct := c.Query("content_type"); ct != "" {
		v := models.ContentType(ct)
		filter.ContentType = &v
	}
	if s := c.Query("status"); s != "" {
		v := models.ContributionStatus(s)
		filter.Status = &v
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	mine := c.Query("mine") == "true"
	toValidate := c.Query("to_validate") == "true"

	contributions, pagination, err := h.service.List(c.Request.Context(), claimsFromContext(c), filter, mine, toValidate)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, contributions, pagination)
}

// Get godoc
// @Summary Get a contribution
// @Description Fetch a single contribution; audio entries include a signed download reference
// @Tags Contributions
// @Produce json
// @Param id path string true "Contribution ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /contributions/{id} [get]
func (h *ContributionHandler) Get(c *gin.Context) {
	contribution, download, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	var meta map[string]interface{}
	if download != nil {
		meta = map[string]interface{}{"audio_download": download}
	}
	response.JSON(c, http.StatusOK, contribution, nil, meta)
}

// CreateText godoc
// @Summary Submit a text contribution
// @Description Create a text translation unit in pending status
// @Tags Contributions
// @Accept json
// @Produce json
// @Param payload body dto.CreateTextContributionRequest true "Contribution payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /contributions/text [post]
func (h *ContributionHandler) CreateText(c *gin.Context) {
	var req dto.CreateTextContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid contribution payload"))
		return
	}

	contribution, err := h.service.CreateText(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordContribution(string(contribution.Type))
	response.Created(c, contribution)
}

// CreateAudio godoc
// @Summary Submit an audio contribution
// @Description Create an audio translation unit from a multipart form upload
// @Tags Contributions
// @Accept mpfd
// @Produce json
// @Param language_code formData string true "Language code"
// @Param content_type formData string true "Content type" Enums(word, sentence, paragraph, story)
// @Param original_text formData string true "Original text"
// @Param translated_text formData string true "Translated text"
// @Param audio_file formData file true "Audio file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /contributions/audio [post]
func (h *ContributionHandler) CreateAudio(c *gin.Context) {
	var req dto.CreateAudioContributionRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid contribution payload"))
		return
	}

	fileHeader, err := c.FormFile("audio_file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "audio file is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read audio file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read audio file"))
		return
	}

	req.AudioPayload = dto.AudioPayload{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Data:        data,
	}

	contribution, err := h.service.CreateAudio(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordContribution(string(contribution.Type))
	response.Created(c, contribution)
}

// DownloadAudio godoc
// @Summary Download contribution audio
// @Description Stream the stored audio blob for a signed token
// @Tags Contributions
// @Produce octet-stream
// @Param id path string true "Contribution ID"
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /contributions/{id}/audio [get]
func (h *ContributionHandler) DownloadAudio(c *gin.Context) {
	file, err := h.service.OpenAudio(c.Request.Context(), c.Param("id"), c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "audio file not found"))
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+filepath.Base(file.Name()))
	c.DataFromReader(http.StatusOK, info.Size(), "application/octet-stream", file, nil)
}
