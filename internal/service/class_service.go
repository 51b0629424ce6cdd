package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	ExistsByName(ctx context.Context, schoolID, name, excludeID string) (bool, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id string) error
}

type classLinkRepository interface {
	ListByClass(ctx context.Context, classID string) ([]models.ClassLinkDetail, error)
	ReplaceForClass(ctx context.Context, classID string, links []models.ClassLink) error
}

type teacherLookup interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// ClassLinks is the link set of a class with qualification warnings.
type ClassLinks struct {
	Links    []models.ClassLinkDetail `json:"links"`
	Warnings []string                 `json:"warnings,omitempty"`
}

// ClassService orchestrates class and link operations within a school.
type ClassService struct {
	repo      classRepository
	links     classLinkRepository
	teachers  teacherLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs a ClassService.
func NewClassService(repo classRepository, links classLinkRepository, teachers teacherLookup, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, links: links, teachers: teachers, validator: validate, logger: logger}
}

// List returns classes with pagination.
func (s *ClassService) List(ctx context.Context, schoolID string, query dto.ListQuery) ([]models.Class, *models.Pagination, error) {
	classes, total, err := s.repo.List(ctx, models.ClassFilter{
		SchoolID:  schoolID,
		Search:    query.Search,
		Page:      query.Page,
		PageSize:  query.PageSize,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, pagination(query.Page, query.PageSize, total), nil
}

// Get returns a class of the school.
func (s *ClassService) Get(ctx context.Context, schoolID, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if class.SchoolID != schoolID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	return class, nil
}

// Create registers a class.
func (s *ClassService) Create(ctx context.Context, schoolID string, req dto.ClassRequest) (*models.Class, error) {
	class := &models.Class{SchoolID: schoolID}
	if err := s.apply(ctx, class, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	return class, nil
}

// Update renames a class.
func (s *ClassService) Update(ctx context.Context, schoolID, id string, req dto.ClassRequest) (*models.Class, error) {
	class, err := s.Get(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, class, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, class); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	return class, nil
}

// Delete removes a class and its links.
func (s *ClassService) Delete(ctx context.Context, schoolID, id string) error {
	if _, err := s.Get(ctx, schoolID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	return nil
}

// Links returns the link set of a class in declaration order.
func (s *ClassService) Links(ctx context.Context, schoolID, classID string) (*ClassLinks, error) {
	if _, err := s.Get(ctx, schoolID, classID); err != nil {
		return nil, err
	}
	links, err := s.links.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class links")
	}
	return &ClassLinks{Links: links}, nil
}

// ReplaceLinks swaps the link set of a class. Every teacher must belong
// to the school; unqualified teachers are accepted and reported.
func (s *ClassService) ReplaceLinks(ctx context.Context, schoolID, classID string, req dto.ReplaceLinksRequest) (*ClassLinks, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid link payload")
	}
	class, err := s.Get(ctx, schoolID, classID)
	if err != nil {
		return nil, err
	}

	teachers := make(map[string]*models.Teacher)
	links := make([]models.ClassLink, 0, len(req.Links))
	var warnings []string
	for i, item := range req.Links {
		teacher, ok := teachers[item.TeacherID]
		if !ok {
			teacher, err = s.teachers.FindByID(ctx, item.TeacherID)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
			}
			if teacher == nil || teacher.SchoolID != schoolID {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("links[%d]: teacher %s does not belong to this school", i, item.TeacherID))
			}
			teachers[item.TeacherID] = teacher
		}

		subject := strings.TrimSpace(item.Subject)
		if !teaches(teacher, subject) {
			warnings = append(warnings, fmt.Sprintf("%s: %s does not list subject %s", class.Name, teacher.Name, subject))
		}
		links = append(links, models.ClassLink{Subject: subject, TeacherID: teacher.ID, WeeklyQuota: item.WeeklyQuota})
	}

	if err := s.links.ReplaceForClass(ctx, classID, links); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace class links")
	}

	details := make([]models.ClassLinkDetail, len(links))
	for i, link := range links {
		details[i] = models.ClassLinkDetail{ClassLink: link, ClassName: class.Name, TeacherName: teachers[link.TeacherID].Name}
	}
	s.logger.Info("class links replaced", zap.String("class_id", classID), zap.Int("links", len(links)), zap.Int("warnings", len(warnings)))
	return &ClassLinks{Links: details, Warnings: warnings}, nil
}

func (s *ClassService) apply(ctx context.Context, class *models.Class, req dto.ClassRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	name := strings.TrimSpace(req.Name)
	exists, err := s.repo.ExistsByName(ctx, class.SchoolID, name, class.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class name")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "class name already in use")
	}
	class.Name = name
	return nil
}

func teaches(teacher *models.Teacher, subject string) bool {
	subjects, err := teacher.SubjectList()
	if err != nil {
		return false
	}
	for _, s := range subjects {
		if s == subject {
			return true
		}
	}
	return false
}
