package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/timetable"
)

type schoolRepository interface {
	List(ctx context.Context, filter models.SchoolFilter) ([]models.School, int, error)
	FindByID(ctx context.Context, id string) (*models.School, error)
	ExistsByName(ctx context.Context, ownerID, name, excludeID string) (bool, error)
	Create(ctx context.Context, school *models.School) error
	Update(ctx context.Context, school *models.School) error
	Delete(ctx context.Context, id string) error
}

// WeekDefaults seeds schools created without an explicit week.
type WeekDefaults struct {
	Days       []string
	Slots      []string
	Classifier timetable.Classifier
}

// SchoolService manages schools and guards access to everything they own.
type SchoolService struct {
	repo      schoolRepository
	defaults  WeekDefaults
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSchoolService constructs the service.
func NewSchoolService(repo schoolRepository, defaults WeekDefaults, validate *validator.Validate, logger *zap.Logger) *SchoolService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchoolService{repo: repo, defaults: defaults, validator: validate, logger: logger}
}

// Classifier returns the break classifier applied to slot labels.
func (s *SchoolService) Classifier() timetable.Classifier {
	return s.defaults.Classifier
}

// List returns schools visible to the actor. Admins only see their own.
func (s *SchoolService) List(ctx context.Context, actor Actor, query dto.ListQuery) ([]models.School, *models.Pagination, error) {
	filter := models.SchoolFilter{
		Search:    query.Search,
		Page:      query.Page,
		PageSize:  query.PageSize,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	}
	if actor.Role == models.RoleAdmin {
		filter.OwnerID = actor.UserID
	}
	schools, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schools")
	}
	return schools, pagination(query.Page, query.PageSize, total), nil
}

// Authorize loads a school and checks that the actor may read it, or
// change it when write is set.
func (s *SchoolService) Authorize(ctx context.Context, actor Actor, schoolID string, write bool) (*models.School, error) {
	school, err := s.repo.FindByID(ctx, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}
	switch {
	case write && !actor.CanWrite():
		return nil, appErrors.Clone(appErrors.ErrForbidden, "read-only role")
	case actor.Role == models.RoleAdmin && !actor.owns(school):
		return nil, appErrors.Clone(appErrors.ErrForbidden, "school belongs to another administrator")
	}
	return school, nil
}

// Create registers a school owned by the actor.
func (s *SchoolService) Create(ctx context.Context, actor Actor, req dto.SchoolRequest) (*models.School, error) {
	if !actor.CanWrite() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "read-only role")
	}
	school := &models.School{OwnerID: actor.UserID}
	if err := s.apply(ctx, school, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, school); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create school")
	}
	s.logger.Info("school created", zap.String("school_id", school.ID), zap.String("owner_id", school.OwnerID))
	return school, nil
}

// Update changes the name and week of a school.
func (s *SchoolService) Update(ctx context.Context, actor Actor, id string, req dto.SchoolRequest) (*models.School, error) {
	school, err := s.Authorize(ctx, actor, id, true)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, school, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, school); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update school")
	}
	return school, nil
}

// Delete removes a school with its teachers, classes and versions.
func (s *SchoolService) Delete(ctx context.Context, actor Actor, id string) error {
	if _, err := s.Authorize(ctx, actor, id, true); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete school")
	}
	s.logger.Info("school deleted", zap.String("school_id", id))
	return nil
}

// Week builds the classified week of a school.
func (s *SchoolService) Week(school *models.School) (timetable.Week, error) {
	days, err := school.DayLabels()
	if err != nil {
		return timetable.Week{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "corrupt school days")
	}
	slots, err := school.SlotLabels()
	if err != nil {
		return timetable.Week{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "corrupt school slots")
	}
	return timetable.NewWeek(days, slots, s.defaults.Classifier), nil
}

func (s *SchoolService) apply(ctx context.Context, school *models.School, req dto.SchoolRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid school payload")
	}
	name := strings.TrimSpace(req.Name)
	exists, err := s.repo.ExistsByName(ctx, school.OwnerID, name, school.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check school name")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "school name already in use")
	}

	days := trimAll(req.Days)
	if len(days) == 0 {
		days = s.defaults.Days
	}
	slots := trimAll(req.Slots)
	if len(slots) == 0 {
		slots = s.defaults.Slots
	}
	if dup := firstDuplicate(days); dup != "" {
		return appErrors.Clone(appErrors.ErrValidation, "duplicate day "+dup)
	}

	school.Name = name
	school.Days = models.NewLabels(days)
	school.Slots = models.NewLabels(slots)
	return nil
}

func firstDuplicate(values []string) string {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			return v
		}
		seen[v] = struct{}{}
	}
	return ""
}
