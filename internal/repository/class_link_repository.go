package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const classLinkDetailQuery = `SELECT cl.id, cl.class_id, cl.subject, cl.teacher_id, cl.weekly_quota, cl.position, cl.created_at,
	c.name AS class_name, t.name AS teacher_name
FROM class_links cl
JOIN classes c ON c.id = cl.class_id
JOIN teachers t ON t.id = cl.teacher_id`

// ClassLinkRepository persists the weekly subject demands of classes.
type ClassLinkRepository struct {
	db *sqlx.DB
}

// NewClassLinkRepository constructs the repository.
func NewClassLinkRepository(db *sqlx.DB) *ClassLinkRepository {
	return &ClassLinkRepository{db: db}
}

// ListBySchool returns all links of a school in class then declaration order.
func (r *ClassLinkRepository) ListBySchool(ctx context.Context, schoolID string) ([]models.ClassLinkDetail, error) {
	query := classLinkDetailQuery + ` WHERE c.school_id = $1 ORDER BY c.created_at ASC, c.name ASC, cl.position ASC`
	var links []models.ClassLinkDetail
	if err := r.db.SelectContext(ctx, &links, query, schoolID); err != nil {
		return nil, fmt.Errorf("list school links: %w", err)
	}
	return links, nil
}

// ListByClass returns the links of one class in declaration order.
func (r *ClassLinkRepository) ListByClass(ctx context.Context, classID string) ([]models.ClassLinkDetail, error) {
	query := classLinkDetailQuery + ` WHERE cl.class_id = $1 ORDER BY cl.position ASC`
	var links []models.ClassLinkDetail
	if err := r.db.SelectContext(ctx, &links, query, classID); err != nil {
		return nil, fmt.Errorf("list class links: %w", err)
	}
	return links, nil
}

// ReplaceForClass swaps the links of a class atomically.
func (r *ClassLinkRepository) ReplaceForClass(ctx context.Context, classID string, links []models.ClassLink) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace links: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := r.DeleteByClassTx(ctx, tx, classID); err != nil {
		return err
	}
	for i := range links {
		links[i].ClassID = classID
		links[i].Position = i
		if err := r.InsertTx(ctx, tx, &links[i]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace links: %w", err)
	}
	return nil
}

// DeleteByClassTx removes every link of a class inside a transaction.
func (r *ClassLinkRepository) DeleteByClassTx(ctx context.Context, tx *sqlx.Tx, classID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM class_links WHERE class_id = $1`, classID); err != nil {
		return fmt.Errorf("clear class links: %w", err)
	}
	return nil
}

// InsertTx inserts a single link inside a transaction.
func (r *ClassLinkRepository) InsertTx(ctx context.Context, tx *sqlx.Tx, link *models.ClassLink) error {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO class_links (id, class_id, subject, teacher_id, weekly_quota, position, created_at) VALUES (:id, :class_id, :subject, :teacher_id, :weekly_quota, :position, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, link); err != nil {
		return fmt.Errorf("insert class link: %w", err)
	}
	return nil
}
