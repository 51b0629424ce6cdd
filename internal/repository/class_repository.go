package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const classColumns = `id, school_id, name, created_at, updated_at`

// ClassRepository manages persistence for classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository creates a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns a page of classes for a school.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error) {
	base := "FROM classes WHERE school_id = $1"
	args := []interface{}{filter.SchoolID}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND LOWER(name) LIKE $%d", len(args)+1)
		args = append(args, likePattern(filter.Search))
	}

	window := newListWindow(filter.SortBy, filter.SortOrder, filter.Page, filter.PageSize, map[string]string{
		"name":       "name",
		"created_at": "created_at",
	}, "name", "ASC")

	query := fmt.Sprintf("SELECT %s %s %s", classColumns, base, window.clause())
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// ListAll returns every class of a school in creation order.
func (r *ClassRepository) ListAll(ctx context.Context, schoolID string) ([]models.Class, error) {
	query := `SELECT ` + classColumns + ` FROM classes WHERE school_id = $1 ORDER BY created_at ASC, name ASC`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, schoolID); err != nil {
		return nil, fmt.Errorf("list school classes: %w", err)
	}
	return classes, nil
}

// FindByID fetches a class by id.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	query := `SELECT ` + classColumns + ` FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class: %w", err)
	}
	return &class, nil
}

// ExistsByName checks for another class with the same name in a school.
func (r *ClassRepository) ExistsByName(ctx context.Context, schoolID, name, excludeID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM classes WHERE school_id = $1 AND name = $2 AND ($3 = '' OR id::text <> $3))`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, schoolID, name, excludeID); err != nil {
		return false, fmt.Errorf("check class name: %w", err)
	}
	return exists, nil
}

// Create inserts a class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	return r.create(ctx, r.db, class)
}

// CreateTx inserts a class inside a transaction.
func (r *ClassRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, class *models.Class) error {
	return r.create(ctx, tx, class)
}

func (r *ClassRepository) create(ctx context.Context, exec sqlx.ExtContext, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now

	query := `INSERT INTO classes (id, school_id, name, created_at, updated_at) VALUES (:id, :school_id, :name, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update renames a class.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	query := `UPDATE classes SET name = :name, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, class)
	if err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return affectedOrNotFound(res)
}

// Delete removes a class and, by cascade, its links.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return affectedOrNotFound(res)
}

// DeleteBySchoolTx removes every class of a school inside a transaction.
func (r *ClassRepository) DeleteBySchoolTx(ctx context.Context, tx *sqlx.Tx, schoolID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM classes WHERE school_id = $1`, schoolID); err != nil {
		return fmt.Errorf("delete school classes: %w", err)
	}
	return nil
}
