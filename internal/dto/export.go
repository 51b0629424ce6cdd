package dto

import "github.com/noah-isme/sma-timetable-api/internal/models"

// ExportRequest asks for a rendered grid. Without versionId the current
// proposal is exported.
type ExportRequest struct {
	Format    models.ExportFormat `json:"format" validate:"required,oneof=csv pdf xlsx"`
	VersionID *string             `json:"versionId,omitempty"`
	Classes   []string            `json:"classes,omitempty"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse exposes job progress metadata.
type ExportStatusResponse struct {
	ID        string              `json:"id"`
	SchoolID  string              `json:"schoolId"`
	Status    models.ExportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	Format    models.ExportFormat `json:"format"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
