package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const scheduleVersionColumns = `id, school_id, version, strategy, week, grid, residuals, saved_by, saved_at`

// ScheduleVersionRepository persists saved timetable snapshots.
type ScheduleVersionRepository struct {
	db *sqlx.DB
}

// NewScheduleVersionRepository constructs the repository.
func NewScheduleVersionRepository(db *sqlx.DB) *ScheduleVersionRepository {
	return &ScheduleVersionRepository{db: db}
}

func (r *ScheduleVersionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateVersioned inserts a snapshot assigning the school's next version number.
func (r *ScheduleVersionRepository) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, version *models.ScheduleVersion) error {
	if version == nil {
		return fmt.Errorf("schedule version payload is nil")
	}
	if version.SchoolID == "" {
		return fmt.Errorf("school_id is required")
	}
	if version.ID == "" {
		version.ID = uuid.NewString()
	}
	if len(version.Residuals) == 0 {
		version.Residuals = types.JSONText(`[]`)
	}
	if version.SavedAt.IsZero() {
		version.SavedAt = time.Now().UTC()
	}

	target := r.exec(exec)

	const nextVersionQuery = `SELECT COALESCE(MAX(version), 0) + 1 FROM schedule_versions WHERE school_id = $1`
	if err := sqlx.GetContext(ctx, target, &version.Version, nextVersionQuery, version.SchoolID); err != nil {
		return fmt.Errorf("compute next schedule version: %w", err)
	}

	const insertQuery = `
INSERT INTO schedule_versions (id, school_id, version, strategy, week, grid, residuals, saved_by, saved_at)
VALUES (:id, :school_id, :version, :strategy, :week, :grid, :residuals, :saved_by, :saved_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, version); err != nil {
		return fmt.Errorf("insert schedule version: %w", err)
	}
	return nil
}

// ListBySchool returns version summaries, newest first.
func (r *ScheduleVersionRepository) ListBySchool(ctx context.Context, schoolID string) ([]models.ScheduleVersionSummary, error) {
	const query = `SELECT id, school_id, version, strategy, saved_by, saved_at
FROM schedule_versions WHERE school_id = $1 ORDER BY version DESC`
	var versions []models.ScheduleVersionSummary
	if err := r.db.SelectContext(ctx, &versions, query, schoolID); err != nil {
		return nil, fmt.Errorf("list schedule versions: %w", err)
	}
	return versions, nil
}

// FindByID loads a snapshot scoped to its school.
func (r *ScheduleVersionRepository) FindByID(ctx context.Context, schoolID, id string) (*models.ScheduleVersion, error) {
	query := `SELECT ` + scheduleVersionColumns + ` FROM schedule_versions WHERE school_id = $1 AND id = $2`
	var version models.ScheduleVersion
	if err := r.db.GetContext(ctx, &version, query, schoolID, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find schedule version: %w", err)
	}
	return &version, nil
}

// Latest returns the most recent snapshot of a school.
func (r *ScheduleVersionRepository) Latest(ctx context.Context, schoolID string) (*models.ScheduleVersion, error) {
	query := `SELECT ` + scheduleVersionColumns + ` FROM schedule_versions WHERE school_id = $1 ORDER BY version DESC LIMIT 1`
	var version models.ScheduleVersion
	if err := r.db.GetContext(ctx, &version, query, schoolID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("latest schedule version: %w", err)
	}
	return &version, nil
}

// Delete removes a stored snapshot.
func (r *ScheduleVersionRepository) Delete(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) error {
	const query = `DELETE FROM schedule_versions WHERE school_id = $1 AND id = $2`
	result, err := r.exec(exec).ExecContext(ctx, query, schoolID, id)
	if err != nil {
		return fmt.Errorf("delete schedule version: %w", err)
	}
	return affectedOrNotFound(result)
}
