package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Teacher is a school's instructor; subjects are informational.
type Teacher struct {
	ID        string         `db:"id" json:"id"`
	SchoolID  string         `db:"school_id" json:"school_id"`
	Name      string         `db:"name" json:"name"`
	Subjects  types.JSONText `db:"subjects" json:"subjects"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// SubjectList decodes the subjects column.
func (t Teacher) SubjectList() ([]string, error) {
	return DecodeLabels(t.Subjects)
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	SchoolID  string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
