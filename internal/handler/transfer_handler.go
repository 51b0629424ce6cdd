package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type transferService interface {
	ExportSchools(ctx context.Context, actor service.Actor) (string, error)
	ImportSchools(ctx context.Context, actor service.Actor, req dto.RosterImportRequest) (*dto.ImportSummary, error)
	ExportTeachers(ctx context.Context, actor service.Actor, schoolID string) (string, error)
	ImportTeachers(ctx context.Context, actor service.Actor, schoolID string, req dto.RosterImportRequest) (*dto.ImportSummary, error)
	ExportClasses(ctx context.Context, actor service.Actor, schoolID string) (string, error)
	ImportClasses(ctx context.Context, actor service.Actor, schoolID string, req dto.RosterImportRequest) (*dto.ImportSummary, error)
}

// TransferHandler serves the line-based text roster formats.
type TransferHandler struct {
	service transferService
}

// NewTransferHandler constructs the handler.
func NewTransferHandler(svc transferService) *TransferHandler {
	return &TransferHandler{service: svc}
}

// ExportSchools godoc
// @Summary Export schools as text
// @Description One line per school: id|name|dias;d1,d2|slots;s1,s2
// @Tags Roster
// @Produce plain
// @Success 200 {string} string
// @Security BearerAuth
// @Router /schools/export [get]
func (h *TransferHandler) ExportSchools(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	body, err := h.service.ExportSchools(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Text(c, "escolas.txt", body)
}

// ImportSchools godoc
// @Summary Import schools from text
// @Description Upserts the caller's schools by name
// @Tags Roster
// @Accept json
// @Produce json
// @Param payload body dto.RosterImportRequest true "File content"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /schools/import [post]
func (h *TransferHandler) ImportSchools(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.RosterImportRequest
	if !bindJSON(c, &req, "invalid import payload") {
		return
	}
	summary, err := h.service.ImportSchools(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

// ExportTeachers godoc
// @Summary Export teachers as text
// @Description One line per teacher: Name;Subj1,Subj2
// @Tags Roster
// @Produce plain
// @Param id path string true "School ID"
// @Success 200 {string} string
// @Security BearerAuth
// @Router /schools/{id}/roster/teachers [get]
func (h *TransferHandler) ExportTeachers(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	body, err := h.service.ExportTeachers(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Text(c, "professores.txt", body)
}

// ImportTeachers godoc
// @Summary Import teachers from text
// @Tags Roster
// @Accept json
// @Produce json
// @Param id path string true "School ID"
// @Param payload body dto.RosterImportRequest true "File content"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /schools/{id}/roster/teachers [post]
func (h *TransferHandler) ImportTeachers(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.RosterImportRequest
	if !bindJSON(c, &req, "invalid import payload") {
		return
	}
	summary, err := h.service.ImportTeachers(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

// ExportClasses godoc
// @Summary Export classes and links as text
// @Description One line per class: Class;Subject|Teacher|Weekly,...
// @Tags Roster
// @Produce plain
// @Param id path string true "School ID"
// @Success 200 {string} string
// @Security BearerAuth
// @Router /schools/{id}/roster/classes [get]
func (h *TransferHandler) ExportClasses(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	body, err := h.service.ExportClasses(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Text(c, "turmas.txt", body)
}

// ImportClasses godoc
// @Summary Import classes and links from text
// @Description Unknown teachers are created with the linked subjects; replace=true drops existing classes first
// @Tags Roster
// @Accept json
// @Produce json
// @Param id path string true "School ID"
// @Param payload body dto.RosterImportRequest true "File content"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /schools/{id}/roster/classes [post]
func (h *TransferHandler) ImportClasses(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.RosterImportRequest
	if !bindJSON(c, &req, "invalid import payload") {
		return
	}
	summary, err := h.service.ImportClasses(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}
