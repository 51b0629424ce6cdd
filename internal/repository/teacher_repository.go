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

const teacherColumns = `id, school_id, name, subjects, created_at, updated_at`

// TeacherRepository handles persistence for a school's teachers.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a new repository instance.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// List returns a page of teachers for a school.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	base := "FROM teachers WHERE school_id = $1"
	args := []interface{}{filter.SchoolID}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND LOWER(name) LIKE $%d", len(args)+1)
		args = append(args, likePattern(filter.Search))
	}

	window := newListWindow(filter.SortBy, filter.SortOrder, filter.Page, filter.PageSize, map[string]string{
		"name":       "name",
		"created_at": "created_at",
	}, "name", "ASC")

	query := fmt.Sprintf("SELECT %s %s %s", teacherColumns, base, window.clause())
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}
	return teachers, total, nil
}

// ListAll returns every teacher of a school ordered by name.
func (r *TeacherRepository) ListAll(ctx context.Context, schoolID string) ([]models.Teacher, error) {
	query := `SELECT ` + teacherColumns + ` FROM teachers WHERE school_id = $1 ORDER BY name ASC`
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, schoolID); err != nil {
		return nil, fmt.Errorf("list school teachers: %w", err)
	}
	return teachers, nil
}

// FindByID returns a teacher by id.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	query := `SELECT ` + teacherColumns + ` FROM teachers WHERE id = $1`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find teacher: %w", err)
	}
	return &teacher, nil
}

// FindByName returns a school's teacher by exact name.
func (r *TeacherRepository) FindByName(ctx context.Context, schoolID, name string) (*models.Teacher, error) {
	query := `SELECT ` + teacherColumns + ` FROM teachers WHERE school_id = $1 AND name = $2`
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, schoolID, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find teacher by name: %w", err)
	}
	return &teacher, nil
}

// ExistsByName checks for another teacher with the same name in a school.
func (r *TeacherRepository) ExistsByName(ctx context.Context, schoolID, name, excludeID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM teachers WHERE school_id = $1 AND name = $2 AND ($3 = '' OR id::text <> $3))`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, schoolID, name, excludeID); err != nil {
		return false, fmt.Errorf("check teacher name: %w", err)
	}
	return exists, nil
}

// Create inserts a teacher row.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	return r.create(ctx, r.db, teacher)
}

// CreateTx inserts a teacher inside a transaction.
func (r *TeacherRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, teacher *models.Teacher) error {
	return r.create(ctx, tx, teacher)
}

func (r *TeacherRepository) create(ctx context.Context, exec sqlx.ExtContext, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now

	query := `INSERT INTO teachers (id, school_id, name, subjects, created_at, updated_at) VALUES (:id, :school_id, :name, :subjects, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

// Update modifies a teacher.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	return r.update(ctx, r.db, teacher)
}

// UpdateTx modifies a teacher inside a transaction.
func (r *TeacherRepository) UpdateTx(ctx context.Context, tx *sqlx.Tx, teacher *models.Teacher) error {
	return r.update(ctx, tx, teacher)
}

func (r *TeacherRepository) update(ctx context.Context, exec sqlx.ExtContext, teacher *models.Teacher) error {
	teacher.UpdatedAt = time.Now().UTC()
	query := `UPDATE teachers SET name = :name, subjects = :subjects, updated_at = :updated_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, exec, query, teacher)
	if err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	return affectedOrNotFound(res)
}

// Delete removes a teacher. Links referencing it block the delete.
func (r *TeacherRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM teachers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}
	return affectedOrNotFound(res)
}

// CountLinks returns how many class links reference a teacher.
func (r *TeacherRepository) CountLinks(ctx context.Context, id string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM class_links WHERE teacher_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count teacher links: %w", err)
	}
	return total, nil
}
