package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type teacherService interface {
	List(ctx context.Context, schoolID string, query dto.ListQuery) ([]models.Teacher, *models.Pagination, error)
	Get(ctx context.Context, schoolID, id string) (*models.Teacher, error)
	Create(ctx context.Context, schoolID string, req dto.TeacherRequest) (*models.Teacher, error)
	Update(ctx context.Context, schoolID, id string, req dto.TeacherRequest) (*models.Teacher, error)
	Delete(ctx context.Context, schoolID, id string) error
}

// TeacherHandler wires teacher services to HTTP routes nested under a school.
type TeacherHandler struct {
	schools  schoolGuard
	teachers teacherService
}

// NewTeacherHandler constructs a new TeacherHandler.
func NewTeacherHandler(schools schoolGuard, teachers teacherService) *TeacherHandler {
	return &TeacherHandler{schools: schools, teachers: teachers}
}

// List godoc
// @Summary List teachers of a school
// @Tags Teachers
// @Produce json
// @Param id path string true "School ID"
// @Param search query string false "Name search"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schools/{id}/teachers [get]
func (h *TeacherHandler) List(c *gin.Context) {
	schoolID, ok := h.authorize(c, false)
	if !ok {
		return
	}
	var query dto.ListQuery
	if !bindQuery(c, &query) {
		return
	}
	teachers, pagination, err := h.teachers.List(c.Request.Context(), schoolID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, pagination)
}

// Get godoc
// @Summary Get teacher
// @Tags Teachers
// @Produce json
// @Param id path string true "School ID"
// @Param teacherId path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schools/{id}/teachers/{teacherId} [get]
func (h *TeacherHandler) Get(c *gin.Context) {
	schoolID, ok := h.authorize(c, false)
	if !ok {
		return
	}
	teacher, err := h.teachers.Get(c.Request.Context(), schoolID, c.Param("teacherId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, teacher)
}

// Create godoc
// @Summary Create teacher
// @Tags Teachers
// @Accept json
// @Produce json
// @Param id path string true "School ID"
// @Param payload body dto.TeacherRequest true "Teacher payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /schools/{id}/teachers [post]
func (h *TeacherHandler) Create(c *gin.Context) {
	schoolID, ok := h.authorize(c, true)
	if !ok {
		return
	}
	var req dto.TeacherRequest
	if !bindJSON(c, &req, "invalid teacher payload") {
		return
	}
	teacher, err := h.teachers.Create(c.Request.Context(), schoolID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, teacher)
}

// Update godoc
// @Summary Update teacher
// @Tags Teachers
// @Accept json
// @Produce json
// @Param id path string true "School ID"
// @Param teacherId path string true "Teacher ID"
// @Param payload body dto.TeacherRequest true "Teacher payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schools/{id}/teachers/{teacherId} [put]
func (h *TeacherHandler) Update(c *gin.Context) {
	schoolID, ok := h.authorize(c, true)
	if !ok {
		return
	}
	var req dto.TeacherRequest
	if !bindJSON(c, &req, "invalid teacher payload") {
		return
	}
	teacher, err := h.teachers.Update(c.Request.Context(), schoolID, c.Param("teacherId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, teacher)
}

// Delete godoc
// @Summary Delete teacher
// @Tags Teachers
// @Param id path string true "School ID"
// @Param teacherId path string true "Teacher ID"
// @Success 204
// @Security BearerAuth
// @Router /schools/{id}/teachers/{teacherId} [delete]
func (h *TeacherHandler) Delete(c *gin.Context) {
	schoolID, ok := h.authorize(c, true)
	if !ok {
		return
	}
	if err := h.teachers.Delete(c.Request.Context(), schoolID, c.Param("teacherId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *TeacherHandler) authorize(c *gin.Context, write bool) (string, bool) {
	return authorizeSchool(c, h.schools, write)
}

func authorizeSchool(c *gin.Context, guard schoolGuard, write bool) (string, bool) {
	actor, ok := actorFromContext(c)
	if !ok {
		return "", false
	}
	school, err := guard.Authorize(c.Request.Context(), actor, c.Param("id"), write)
	if err != nil {
		response.Error(c, err)
		return "", false
	}
	return school.ID, true
}
