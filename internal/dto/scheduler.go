package dto

import (
	"time"

	"github.com/noah-isme/sma-timetable-api/pkg/timetable"
)

// GenerateTimetableRequest selects the placement strategy for a run.
type GenerateTimetableRequest struct {
	Strategy string `json:"strategy" validate:"omitempty,oneof=skip-on-conflict flag-on-conflict"`
}

// GenerationStats summarises a run for operators.
type GenerationStats struct {
	Classes       int            `json:"classes"`
	Links         int            `json:"links"`
	Demand        int            `json:"demand"`
	Placed        int            `json:"placed"`
	Unplaced      int            `json:"unplaced"`
	Conflicts     int            `json:"conflicts"`
	TeachingSlots int            `json:"teachingSlots"`
	TeacherLoad   map[string]int `json:"teacherLoad"`
	DurationMS    float64        `json:"durationMs"`
}

// TimetableResponse is the current grid of a school, fresh or reloaded.
type TimetableResponse struct {
	ProposalID  string                 `json:"proposalId"`
	SchoolID    string                 `json:"schoolId"`
	Strategy    timetable.Strategy     `json:"strategy"`
	Week        timetable.Week         `json:"week"`
	Classes     []string               `json:"classes"`
	Grid        timetable.Grid         `json:"grid"`
	Residuals   []timetable.Residual   `json:"residuals"`
	Allocations []timetable.Allocation `json:"allocations,omitempty"`
	Warnings    []string               `json:"warnings,omitempty"`
	Stats       *GenerationStats       `json:"stats,omitempty"`
	VersionID   *string                `json:"versionId,omitempty"`
	GeneratedAt time.Time              `json:"generatedAt"`
}

// SaveVersionRequest snapshots a proposal as a numbered version.
type SaveVersionRequest struct {
	ProposalID string `json:"proposalId" validate:"required"`
}

// VersionResponse describes a stored version with its grid.
type VersionResponse struct {
	ID        string               `json:"id"`
	SchoolID  string               `json:"schoolId"`
	Version   int                  `json:"version"`
	Strategy  timetable.Strategy   `json:"strategy"`
	Week      timetable.Week       `json:"week"`
	Grid      timetable.Grid       `json:"grid"`
	Residuals []timetable.Residual `json:"residuals"`
	SavedBy   *string              `json:"savedBy,omitempty"`
	SavedAt   time.Time            `json:"savedAt"`
}
