package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ScheduleVersion is an immutable snapshot of a generated grid.
type ScheduleVersion struct {
	ID        string         `db:"id" json:"id"`
	SchoolID  string         `db:"school_id" json:"school_id"`
	Version   int            `db:"version" json:"version"`
	Strategy  string         `db:"strategy" json:"strategy"`
	Week      types.JSONText `db:"week" json:"week"`
	Grid      types.JSONText `db:"grid" json:"grid"`
	Residuals types.JSONText `db:"residuals" json:"residuals"`
	SavedBy   *string        `db:"saved_by" json:"saved_by,omitempty"`
	SavedAt   time.Time      `db:"saved_at" json:"saved_at"`
}

// ScheduleVersionSummary is a version row without its payload.
type ScheduleVersionSummary struct {
	ID       string    `db:"id" json:"id"`
	SchoolID string    `db:"school_id" json:"school_id"`
	Version  int       `db:"version" json:"version"`
	Strategy string    `db:"strategy" json:"strategy"`
	SavedBy  *string   `db:"saved_by" json:"saved_by,omitempty"`
	SavedAt  time.Time `db:"saved_at" json:"saved_at"`
}
