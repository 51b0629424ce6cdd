package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type scheduleGenerator interface {
	Generate(ctx context.Context, actor service.Actor, schoolID string, req dto.GenerateTimetableRequest) (*dto.TimetableResponse, error)
	Current(ctx context.Context, actor service.Actor, schoolID string) (*dto.TimetableResponse, bool, error)
	SaveVersion(ctx context.Context, actor service.Actor, schoolID string, req dto.SaveVersionRequest) (*dto.VersionResponse, error)
	ListVersions(ctx context.Context, actor service.Actor, schoolID string) ([]models.ScheduleVersionSummary, error)
	GetVersion(ctx context.Context, actor service.Actor, schoolID, versionID string) (*dto.VersionResponse, error)
	LatestVersion(ctx context.Context, actor service.Actor, schoolID string) (*dto.VersionResponse, error)
	LoadVersion(ctx context.Context, actor service.Actor, schoolID, versionID string) (*dto.TimetableResponse, error)
	DeleteVersion(ctx context.Context, actor service.Actor, schoolID, versionID string) error
}

// ScheduleGeneratorHandler exposes timetable generation and version endpoints.
type ScheduleGeneratorHandler struct {
	service scheduleGenerator
}

// NewScheduleGeneratorHandler constructs the handler.
func NewScheduleGeneratorHandler(svc scheduleGenerator) *ScheduleGeneratorHandler {
	return &ScheduleGeneratorHandler{service: svc}
}

// Generate godoc
// @Summary Generate a timetable proposal
// @Description Validates the school's roster, runs the greedy placer and stores the result as the current proposal
// @Tags Timetable
// @Accept json
// @Produce json
// @Param id path string true "School ID"
// @Param payload body dto.GenerateTimetableRequest false "Strategy"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Security BearerAuth
// @Router /schools/{id}/timetable/generate [post]
func (h *ScheduleGeneratorHandler) Generate(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.GenerateTimetableRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req, "invalid generate payload") {
		return
	}
	result, err := h.service.Generate(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "mode", "preview")
	response.OK(c, result, middleware.ExtractMeta(c))
}

// Current godoc
// @Summary Current timetable of a school
// @Description meta.cached reports whether the grid came from Redis
// @Tags Timetable
// @Produce json
// @Param id path string true "School ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /schools/{id}/timetable/current [get]
func (h *ScheduleGeneratorHandler) Current(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	result, cached, err := h.service.Current(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cached)
	response.OK(c, result, middleware.ExtractMeta(c))
}

// SaveVersion godoc
// @Summary Save a proposal as a numbered version
// @Tags Timetable
// @Accept json
// @Produce json
// @Param id path string true "School ID"
// @Param payload body dto.SaveVersionRequest true "Proposal reference"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /schools/{id}/timetable/versions [post]
func (h *ScheduleGeneratorHandler) SaveVersion(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.SaveVersionRequest
	if !bindJSON(c, &req, "invalid save payload") {
		return
	}
	version, err := h.service.SaveVersion(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, version)
}

// ListVersions godoc
// @Summary List saved versions
// @Tags Timetable
// @Produce json
// @Param id path string true "School ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schools/{id}/timetable/versions [get]
func (h *ScheduleGeneratorHandler) ListVersions(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	versions, err := h.service.ListVersions(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, versions)
}

// LatestVersion godoc
// @Summary Latest saved version
// @Tags Timetable
// @Produce json
// @Param id path string true "School ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /schools/{id}/timetable/versions/latest [get]
func (h *ScheduleGeneratorHandler) LatestVersion(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	version, err := h.service.LatestVersion(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, version)
}

// GetVersion godoc
// @Summary Get saved version
// @Tags Timetable
// @Produce json
// @Param id path string true "School ID"
// @Param versionId path string true "Version ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /schools/{id}/timetable/versions/{versionId} [get]
func (h *ScheduleGeneratorHandler) GetVersion(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	version, err := h.service.GetVersion(c.Request.Context(), actor, c.Param("id"), c.Param("versionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, version)
}

// LoadVersion godoc
// @Summary Restore a version as the current timetable
// @Description Re-injects the saved grid without running generation
// @Tags Timetable
// @Produce json
// @Param id path string true "School ID"
// @Param versionId path string true "Version ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schools/{id}/timetable/versions/{versionId}/load [post]
func (h *ScheduleGeneratorHandler) LoadVersion(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	result, err := h.service.LoadVersion(c.Request.Context(), actor, c.Param("id"), c.Param("versionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "mode", "version")
	response.OK(c, result, middleware.ExtractMeta(c))
}

// DeleteVersion godoc
// @Summary Delete saved version
// @Tags Timetable
// @Param id path string true "School ID"
// @Param versionId path string true "Version ID"
// @Success 204
// @Security BearerAuth
// @Router /schools/{id}/timetable/versions/{versionId} [delete]
func (h *ScheduleGeneratorHandler) DeleteVersion(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.DeleteVersion(c.Request.Context(), actor, c.Param("id"), c.Param("versionId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
