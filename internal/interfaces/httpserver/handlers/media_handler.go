package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"mediavault/internal/config"
	domain "mediavault/internal/domain/media"
	"mediavault/internal/infrastructure/auth"
	"mediavault/internal/interfaces/httpserver/requests"
	"mediavault/internal/interfaces/httpserver/responses"
	"mediavault/internal/utils/platformerrors"
)

// MediaHandler exposes media metadata endpoints.
type MediaHandler struct {
	cfg     *config.Config
	service *domain.Service
	log     zerolog.Logger
}

func NewMediaHandler(cfg *config.Config, service *domain.Service, log zerolog.Logger) *MediaHandler {
	return &MediaHandler{
		cfg:     cfg,
		service: service,
		log:     log.With().Str("component", "media-handler").Logger(),
	}
}

// Upload accepts a multipart form with a file part and an optional title,
// stores the payload and schedules analysis. The record is returned in its
// initial processing state.
func (h *MediaHandler) Upload(c *gin.Context) {
	caller, ok := auth.IdentityFrom(c)
	if !ok {
		platformerrors.WriteUnauthorized(c, "missing identity")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		platformerrors.WriteValidationError(c, "multipart form must include a file part")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		platformerrors.WriteValidationError(c, "unreadable file part")
		return
	}
	defer file.Close()

	title := c.PostForm("title")
	if title == "" {
		title = fileHeader.Filename
	}

	record, err := h.service.Upload(c.Request.Context(), caller, title, file, fileHeader.Size)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}

	c.JSON(http.StatusCreated, responses.BuildMediaResponse(record))
}

// List returns the records visible to the caller.
func (h *MediaHandler) List(c *gin.Context) {
	caller, ok := auth.IdentityFrom(c)
	if !ok {
		platformerrors.WriteUnauthorized(c, "missing identity")
		return
	}

	records, err := h.service.List(c.Request.Context(), caller)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}

	c.JSON(http.StatusOK, responses.BuildMediaListResponse(records))
}

// Update edits a record's title or, for admins, its classification.
func (h *MediaHandler) Update(c *gin.Context) {
	caller, ok := auth.IdentityFrom(c)
	if !ok {
		platformerrors.WriteUnauthorized(c, "missing identity")
		return
	}

	var req requests.UpdateMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		platformerrors.WriteValidationError(c, "malformed request body")
		return
	}

	fields, err := req.ToDomain()
	if err != nil {
		platformerrors.WriteValidationError(c, err.Error())
		return
	}

	record, err := h.service.Update(c.Request.Context(), caller, c.Param("id"), fields)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}

	c.JSON(http.StatusOK, responses.BuildMediaResponse(record))
}

// Delete removes a record, its payload and any in-flight analysis.
func (h *MediaHandler) Delete(c *gin.Context) {
	caller, ok := auth.IdentityFrom(c)
	if !ok {
		platformerrors.WriteUnauthorized(c, "missing identity")
		return
	}

	if err := h.service.Delete(c.Request.Context(), caller, c.Param("id")); err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}

	c.Status(http.StatusNoContent)
}
