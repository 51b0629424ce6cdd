package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
	"github.com/noah-isme/sma-timetable-api/pkg/timetable"
)

// schoolGuard resolves a school the actor may read or write.
type schoolGuard interface {
	Authorize(ctx context.Context, actor service.Actor, schoolID string, write bool) (*models.School, error)
}

type schoolService interface {
	schoolGuard
	List(ctx context.Context, actor service.Actor, query dto.ListQuery) ([]models.School, *models.Pagination, error)
	Create(ctx context.Context, actor service.Actor, req dto.SchoolRequest) (*models.School, error)
	Update(ctx context.Context, actor service.Actor, id string, req dto.SchoolRequest) (*models.School, error)
	Delete(ctx context.Context, actor service.Actor, id string) error
	Week(school *models.School) (timetable.Week, error)
}

// SchoolHandler exposes school and week configuration endpoints.
type SchoolHandler struct {
	service schoolService
}

// NewSchoolHandler constructs the handler.
func NewSchoolHandler(svc schoolService) *SchoolHandler {
	return &SchoolHandler{service: svc}
}

// List godoc
// @Summary List schools visible to the caller
// @Tags Schools
// @Produce json
// @Param search query string false "Name search"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param sort_by query string false "Sort field (name,created_at)"
// @Param sort_order query string false "Sort order (asc/desc)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schools [get]
func (h *SchoolHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query dto.ListQuery
	if !bindQuery(c, &query) {
		return
	}
	schools, pagination, err := h.service.List(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schools, pagination)
}

// Get godoc
// @Summary Get school
// @Tags Schools
// @Produce json
// @Param id path string true "School ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /schools/{id} [get]
func (h *SchoolHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	school, err := h.service.Authorize(c.Request.Context(), actor, c.Param("id"), false)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, school)
}

// Week godoc
// @Summary Classified week of a school
// @Description Day labels and slots with their break flag
// @Tags Schools
// @Produce json
// @Param id path string true "School ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schools/{id}/week [get]
func (h *SchoolHandler) Week(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	school, err := h.service.Authorize(c.Request.Context(), actor, c.Param("id"), false)
	if err != nil {
		response.Error(c, err)
		return
	}
	week, err := h.service.Week(school)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, week)
}

// Create godoc
// @Summary Create school
// @Description Days and slots fall back to the configured defaults when omitted
// @Tags Schools
// @Accept json
// @Produce json
// @Param payload body dto.SchoolRequest true "School payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /schools [post]
func (h *SchoolHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.SchoolRequest
	if !bindJSON(c, &req, "invalid school payload") {
		return
	}
	school, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, school)
}

// Update godoc
// @Summary Update school
// @Tags Schools
// @Accept json
// @Produce json
// @Param id path string true "School ID"
// @Param payload body dto.SchoolRequest true "School payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schools/{id} [put]
func (h *SchoolHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.SchoolRequest
	if !bindJSON(c, &req, "invalid school payload") {
		return
	}
	school, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, school)
}

// Delete godoc
// @Summary Delete school
// @Tags Schools
// @Param id path string true "School ID"
// @Success 204
// @Security BearerAuth
// @Router /schools/{id} [delete]
func (h *SchoolHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
