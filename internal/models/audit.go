package models

import "time"

// Audit actions. Authentication events are written by the auth service,
// timetable and roster events by the school scoped services.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionLogout         = "LOGOUT"
	AuditActionPasswordChange = "PASSWORD_CHANGE"

	AuditActionUserCreate = "USER_CREATE"
	AuditActionUserUpdate = "USER_UPDATE"
	AuditActionUserDelete = "USER_DELETE"

	AuditActionSchoolCreate = "SCHOOL_CREATE"
	AuditActionSchoolUpdate = "SCHOOL_UPDATE"
	AuditActionSchoolDelete = "SCHOOL_DELETE"
	AuditActionRosterImport = "ROSTER_IMPORT"

	AuditActionVersionSave   = "SCHEDULE_VERSION_SAVE"
	AuditActionVersionLoad   = "SCHEDULE_VERSION_LOAD"
	AuditActionVersionDelete = "SCHEDULE_VERSION_DELETE"
)

// AuditLog is one row of the audit trail.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// NewAuditLog starts an entry for action on resource. Empty ids stay NULL.
func NewAuditLog(action, resource, userID, resourceID string) *AuditLog {
	entry := &AuditLog{Action: action, Resource: resource}
	if userID != "" {
		entry.UserID = &userID
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	return entry
}
