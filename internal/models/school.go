package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// School owns a week structure and the rosters generated against it.
type School struct {
	ID        string         `db:"id" json:"id"`
	OwnerID   string         `db:"owner_id" json:"owner_id"`
	Name      string         `db:"name" json:"name"`
	Days      types.JSONText `db:"days" json:"days"`
	Slots     types.JSONText `db:"slots" json:"slots"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// DayLabels returns the configured days in order.
func (s School) DayLabels() ([]string, error) {
	return DecodeLabels(s.Days)
}

// SlotLabels returns the configured slots in order.
func (s School) SlotLabels() ([]string, error) {
	return DecodeLabels(s.Slots)
}

// SchoolFilter captures filtering options for listing schools.
type SchoolFilter struct {
	OwnerID   string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
