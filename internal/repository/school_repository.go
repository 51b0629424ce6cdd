package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const schoolColumns = `id, owner_id, name, days, slots, created_at, updated_at`

// SchoolRepository handles persistence for schools and their week layout.
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository constructs a new repository instance.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// List returns schools filtered by owner and name.
func (r *SchoolRepository) List(ctx context.Context, filter models.SchoolFilter) ([]models.School, int, error) {
	base := "FROM schools"
	conditions := []string{}
	args := []interface{}{}

	if filter.OwnerID != "" {
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", len(args)+1))
		args = append(args, filter.OwnerID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, likePattern(filter.Search))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	window := newListWindow(filter.SortBy, filter.SortOrder, filter.Page, filter.PageSize, map[string]string{
		"name":       "name",
		"created_at": "created_at",
	}, "name", "ASC")

	query := fmt.Sprintf("SELECT %s %s%s %s", schoolColumns, base, where, window.clause())
	var schools []models.School
	if err := r.db.SelectContext(ctx, &schools, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schools: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", base, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schools: %w", err)
	}
	return schools, total, nil
}

// FindByID returns a school by id.
func (r *SchoolRepository) FindByID(ctx context.Context, id string) (*models.School, error) {
	query := `SELECT ` + schoolColumns + ` FROM schools WHERE id = $1`
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find school: %w", err)
	}
	return &school, nil
}

// ExistsByName checks whether the owner already has a school with the name.
func (r *SchoolRepository) ExistsByName(ctx context.Context, ownerID, name string, excludeID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM schools WHERE owner_id = $1 AND LOWER(name) = LOWER($2) AND ($3 = '' OR id::text <> $3))`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, ownerID, name, excludeID); err != nil {
		return false, fmt.Errorf("check school name: %w", err)
	}
	return exists, nil
}

// Create inserts a school row.
func (r *SchoolRepository) Create(ctx context.Context, school *models.School) error {
	if school.ID == "" {
		school.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	school.CreatedAt = now
	school.UpdatedAt = now

	query := `INSERT INTO schools (id, owner_id, name, days, slots, created_at, updated_at) VALUES (:id, :owner_id, :name, :days, :slots, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, school); err != nil {
		return fmt.Errorf("create school: %w", err)
	}
	return nil
}

// Update modifies the name and week layout of a school.
func (r *SchoolRepository) Update(ctx context.Context, school *models.School) error {
	school.UpdatedAt = time.Now().UTC()
	query := `UPDATE schools SET name = :name, days = :days, slots = :slots, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, school)
	if err != nil {
		return fmt.Errorf("update school: %w", err)
	}
	return affectedOrNotFound(res)
}

// Delete removes a school; dependent rows cascade.
func (r *SchoolRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schools WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete school: %w", err)
	}
	return affectedOrNotFound(res)
}

func affectedOrNotFound(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
