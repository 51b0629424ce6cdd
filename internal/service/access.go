package service

import (
	"encoding/json"
	"strings"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// Actor is the authenticated caller of a use case.
type Actor struct {
	UserID string
	Role   models.UserRole
}

// CanWrite reports whether the actor may change school data at all.
func (a Actor) CanWrite() bool {
	return a.Role.CanWrite()
}

func (a Actor) owns(school *models.School) bool {
	return a.Role == models.RoleSuperAdmin || school.OwnerID == a.UserID
}

func pagination(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func newAuditEntry(actor Actor, action, resource, resourceID string, payload map[string]any) (*models.AuditLog, error) {
	entry := models.NewAuditLog(action, resource, actor.UserID, resourceID)
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		entry.NewValues = raw
	}
	return entry, nil
}
