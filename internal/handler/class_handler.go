package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type classService interface {
	List(ctx context.Context, schoolID string, query dto.ListQuery) ([]models.Class, *models.Pagination, error)
	Get(ctx context.Context, schoolID, id string) (*models.Class, error)
	Create(ctx context.Context, schoolID string, req dto.ClassRequest) (*models.Class, error)
	Update(ctx context.Context, schoolID, id string, req dto.ClassRequest) (*models.Class, error)
	Delete(ctx context.Context, schoolID, id string) error
	Links(ctx context.Context, schoolID, classID string) (*service.ClassLinks, error)
	ReplaceLinks(ctx context.Context, schoolID, classID string, req dto.ReplaceLinksRequest) (*service.ClassLinks, error)
}

// ClassHandler manages classes and their subject/teacher links.
type ClassHandler struct {
	schools schoolGuard
	classes classService
}

// NewClassHandler constructs handler.
func NewClassHandler(schools schoolGuard, classes classService) *ClassHandler {
	return &ClassHandler{schools: schools, classes: classes}
}

// List godoc
// @Summary List classes of a school
// @Tags Classes
// @Produce json
// @Param id path string true "School ID"
// @Param search query string false "Name search"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schools/{id}/classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	schoolID, ok := authorizeSchool(c, h.schools, false)
	if !ok {
		return
	}
	var query dto.ListQuery
	if !bindQuery(c, &query) {
		return
	}
	classes, pagination, err := h.classes.List(c.Request.Context(), schoolID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, pagination)
}

// Get godoc
// @Summary Get class
// @Tags Classes
// @Produce json
// @Param id path string true "School ID"
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schools/{id}/classes/{classId} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	schoolID, ok := authorizeSchool(c, h.schools, false)
	if !ok {
		return
	}
	class, err := h.classes.Get(c.Request.Context(), schoolID, c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, class)
}

// Create godoc
// @Summary Create class
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "School ID"
// @Param payload body dto.ClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /schools/{id}/classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	schoolID, ok := authorizeSchool(c, h.schools, true)
	if !ok {
		return
	}
	var req dto.ClassRequest
	if !bindJSON(c, &req, "invalid class payload") {
		return
	}
	class, err := h.classes.Create(c.Request.Context(), schoolID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// Update godoc
// @Summary Rename class
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "School ID"
// @Param classId path string true "Class ID"
// @Param payload body dto.ClassRequest true "Class payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schools/{id}/classes/{classId} [put]
func (h *ClassHandler) Update(c *gin.Context) {
	schoolID, ok := authorizeSchool(c, h.schools, true)
	if !ok {
		return
	}
	var req dto.ClassRequest
	if !bindJSON(c, &req, "invalid class payload") {
		return
	}
	class, err := h.classes.Update(c.Request.Context(), schoolID, c.Param("classId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, class)
}

// Delete godoc
// @Summary Delete class
// @Tags Classes
// @Param id path string true "School ID"
// @Param classId path string true "Class ID"
// @Success 204
// @Security BearerAuth
// @Router /schools/{id}/classes/{classId} [delete]
func (h *ClassHandler) Delete(c *gin.Context) {
	schoolID, ok := authorizeSchool(c, h.schools, true)
	if !ok {
		return
	}
	if err := h.classes.Delete(c.Request.Context(), schoolID, c.Param("classId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Links godoc
// @Summary List class links
// @Description Subject, teacher and weekly quota per link, in placement order
// @Tags Classes
// @Produce json
// @Param id path string true "School ID"
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schools/{id}/classes/{classId}/links [get]
func (h *ClassHandler) Links(c *gin.Context) {
	schoolID, ok := authorizeSchool(c, h.schools, false)
	if !ok {
		return
	}
	links, err := h.classes.Links(c.Request.Context(), schoolID, c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, links)
}

// ReplaceLinks godoc
// @Summary Replace class links
// @Description Unqualified teachers are accepted and reported as warnings
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "School ID"
// @Param classId path string true "Class ID"
// @Param payload body dto.ReplaceLinksRequest true "Links payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /schools/{id}/classes/{classId}/links [put]
func (h *ClassHandler) ReplaceLinks(c *gin.Context) {
	schoolID, ok := authorizeSchool(c, h.schools, true)
	if !ok {
		return
	}
	var req dto.ReplaceLinksRequest
	if !bindJSON(c, &req, "invalid links payload") {
		return
	}
	links, err := h.classes.ReplaceLinks(c.Request.Context(), schoolID, c.Param("classId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, links)
}
