package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/roster"
)

type transferSchools interface {
	List(ctx context.Context, actor Actor, query dto.ListQuery) ([]models.School, *models.Pagination, error)
	Authorize(ctx context.Context, actor Actor, schoolID string, write bool) (*models.School, error)
	Create(ctx context.Context, actor Actor, req dto.SchoolRequest) (*models.School, error)
	Update(ctx context.Context, actor Actor, id string, req dto.SchoolRequest) (*models.School, error)
}

type rosterTeacherRepository interface {
	ListAll(ctx context.Context, schoolID string) ([]models.Teacher, error)
	CreateTx(ctx context.Context, tx *sqlx.Tx, teacher *models.Teacher) error
	UpdateTx(ctx context.Context, tx *sqlx.Tx, teacher *models.Teacher) error
}

type rosterClassRepository interface {
	ListAll(ctx context.Context, schoolID string) ([]models.Class, error)
	CreateTx(ctx context.Context, tx *sqlx.Tx, class *models.Class) error
	DeleteBySchoolTx(ctx context.Context, tx *sqlx.Tx, schoolID string) error
}

type rosterLinkRepository interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.ClassLinkDetail, error)
	DeleteByClassTx(ctx context.Context, tx *sqlx.Tx, classID string) error
	InsertTx(ctx context.Context, tx *sqlx.Tx, link *models.ClassLink) error
}

// TransferRepositories groups the stores touched by roster imports.
type TransferRepositories struct {
	Teachers rosterTeacherRepository
	Classes  rosterClassRepository
	Links    rosterLinkRepository
	Audit    auditRecorder
	Tx       txProvider
}

// TransferService moves schools, teachers and classes in and out of the
// line-oriented text formats.
type TransferService struct {
	schools   transferSchools
	repos     TransferRepositories
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTransferService constructs a TransferService.
func NewTransferService(schools transferSchools, repos TransferRepositories, validate *validator.Validate, logger *zap.Logger) *TransferService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransferService{schools: schools, repos: repos, validator: validate, logger: logger}
}

// ExportSchools renders every school visible to the actor.
func (s *TransferService) ExportSchools(ctx context.Context, actor Actor) (string, error) {
	var lines []roster.School
	for page := 1; ; page++ {
		batch, pg, err := s.schools.List(ctx, actor, dto.ListQuery{Page: page, PageSize: 100, SortBy: "created_at", SortOrder: "asc"})
		if err != nil {
			return "", err
		}
		for _, school := range batch {
			days, _ := school.DayLabels()
			slots, _ := school.SlotLabels()
			lines = append(lines, roster.School{ID: school.ID, Name: school.Name, Days: days, Slots: slots})
		}
		if len(batch) == 0 || page*pg.PageSize >= pg.TotalCount {
			break
		}
	}
	return roster.FormatSchools(lines), nil
}

// ImportSchools upserts the actor's schools by name.
func (s *TransferService) ImportSchools(ctx context.Context, actor Actor, req dto.RosterImportRequest) (*dto.ImportSummary, error) {
	if !actor.CanWrite() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "read-only role")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster payload")
	}
	parsed, err := roster.ParseSchools(strings.NewReader(req.Content))
	if err != nil {
		return nil, rosterError(err)
	}

	owned := make(map[string]string)
	for page := 1; ; page++ {
		batch, pg, err := s.schools.List(ctx, actor, dto.ListQuery{Page: page, PageSize: 100})
		if err != nil {
			return nil, err
		}
		for _, school := range batch {
			if school.OwnerID == actor.UserID {
				owned[strings.ToLower(school.Name)] = school.ID
			}
		}
		if len(batch) == 0 || page*pg.PageSize >= pg.TotalCount {
			break
		}
	}

	summary := &dto.ImportSummary{}
	for _, line := range parsed {
		schoolReq := dto.SchoolRequest{Name: line.Name, Days: line.Days, Slots: line.Slots}
		if id, ok := owned[strings.ToLower(line.Name)]; ok {
			if _, err := s.schools.Update(ctx, actor, id, schoolReq); err != nil {
				return nil, err
			}
			summary.Updated++
			continue
		}
		created, err := s.schools.Create(ctx, actor, schoolReq)
		if err != nil {
			return nil, err
		}
		owned[strings.ToLower(created.Name)] = created.ID
		summary.Created++
	}
	s.logger.Info("schools imported", zap.String("user_id", actor.UserID), zap.Int("created", summary.Created), zap.Int("updated", summary.Updated))
	return summary, nil
}

// ExportTeachers renders the teachers of a school.
func (s *TransferService) ExportTeachers(ctx context.Context, actor Actor, schoolID string) (string, error) {
	if _, err := s.schools.Authorize(ctx, actor, schoolID, false); err != nil {
		return "", err
	}
	teachers, err := s.repos.Teachers.ListAll(ctx, schoolID)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	lines := make([]roster.Teacher, len(teachers))
	for i, teacher := range teachers {
		subjects, _ := teacher.SubjectList()
		lines[i] = roster.Teacher{Name: teacher.Name, Subjects: subjects}
	}
	return roster.FormatTeachers(lines), nil
}

// ImportTeachers upserts teachers by name; an existing teacher takes the
// subjects listed in the file.
func (s *TransferService) ImportTeachers(ctx context.Context, actor Actor, schoolID string, req dto.RosterImportRequest) (*dto.ImportSummary, error) {
	if _, err := s.schools.Authorize(ctx, actor, schoolID, true); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster payload")
	}
	parsed, err := roster.ParseTeachers(strings.NewReader(req.Content))
	if err != nil {
		return nil, rosterError(err)
	}
	existing, err := s.teachersByName(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	summary := &dto.ImportSummary{}
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, line := range parsed {
			if teacher, ok := existing[line.Name]; ok {
				teacher.Subjects = models.NewLabels(line.Subjects)
				if err := s.repos.Teachers.UpdateTx(ctx, tx, teacher); err != nil {
					return err
				}
				summary.Updated++
				continue
			}
			teacher := &models.Teacher{SchoolID: schoolID, Name: line.Name, Subjects: models.NewLabels(line.Subjects)}
			if err := s.repos.Teachers.CreateTx(ctx, tx, teacher); err != nil {
				return err
			}
			existing[teacher.Name] = teacher
			summary.Created++
		}
		return s.audit(ctx, tx, actor, schoolID, "teachers", summary)
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import teachers")
	}
	s.logger.Info("teachers imported", zap.String("school_id", schoolID), zap.Int("created", summary.Created), zap.Int("updated", summary.Updated))
	return summary, nil
}

// ExportClasses renders the classes of a school with their links in
// position order.
func (s *TransferService) ExportClasses(ctx context.Context, actor Actor, schoolID string) (string, error) {
	if _, err := s.schools.Authorize(ctx, actor, schoolID, false); err != nil {
		return "", err
	}
	classes, err := s.repos.Classes.ListAll(ctx, schoolID)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	links, err := s.repos.Links.ListBySchool(ctx, schoolID)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class links")
	}
	byClass := make(map[string][]roster.Link, len(classes))
	for _, link := range links {
		byClass[link.ClassID] = append(byClass[link.ClassID], roster.Link{Subject: link.Subject, Teacher: link.TeacherName, Weekly: link.WeeklyQuota})
	}
	lines := make([]roster.Class, len(classes))
	for i, class := range classes {
		lines[i] = roster.Class{Name: class.Name, Links: byClass[class.ID]}
	}
	return roster.FormatClasses(lines), nil
}

// ImportClasses upserts classes by name and replaces the links of every
// class named in the file. Unknown teachers are created with the subjects
// they are linked to. With Replace set, classes missing from the file are
// removed.
func (s *TransferService) ImportClasses(ctx context.Context, actor Actor, schoolID string, req dto.RosterImportRequest) (*dto.ImportSummary, error) {
	if _, err := s.schools.Authorize(ctx, actor, schoolID, true); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster payload")
	}
	parsed, skipped, err := roster.ParseClasses(strings.NewReader(req.Content))
	if err != nil {
		return nil, rosterError(err)
	}
	teachers, err := s.teachersByName(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	classes := make(map[string]string)
	if !req.Replace {
		current, err := s.repos.Classes.ListAll(ctx, schoolID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
		}
		for _, class := range current {
			classes[class.Name] = class.ID
		}
	}

	summary := &dto.ImportSummary{Skipped: skipped}
	missing, order := missingTeachers(parsed, teachers)
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		if req.Replace {
			if err := s.repos.Classes.DeleteBySchoolTx(ctx, tx, schoolID); err != nil {
				return err
			}
		}
		for _, name := range order {
			teacher := &models.Teacher{SchoolID: schoolID, Name: name, Subjects: models.NewLabels(missing[name])}
			if err := s.repos.Teachers.CreateTx(ctx, tx, teacher); err != nil {
				return err
			}
			teachers[name] = teacher
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("teacher %s created with %s", name, strings.Join(missing[name], ", ")))
		}
		for _, line := range parsed {
			classID, ok := classes[line.Name]
			if ok {
				if err := s.repos.Links.DeleteByClassTx(ctx, tx, classID); err != nil {
					return err
				}
				summary.Updated++
			} else {
				class := &models.Class{SchoolID: schoolID, Name: line.Name}
				if err := s.repos.Classes.CreateTx(ctx, tx, class); err != nil {
					return err
				}
				classID = class.ID
				classes[line.Name] = classID
				summary.Created++
			}
			for i, entry := range line.Links {
				link := &models.ClassLink{
					ClassID:     classID,
					Subject:     entry.Subject,
					TeacherID:   teachers[entry.Teacher].ID,
					WeeklyQuota: entry.Weekly,
					Position:    i,
				}
				if err := s.repos.Links.InsertTx(ctx, tx, link); err != nil {
					return err
				}
				summary.Links++
			}
		}
		return s.audit(ctx, tx, actor, schoolID, "classes", summary)
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import classes")
	}
	s.logger.Info("classes imported",
		zap.String("school_id", schoolID),
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("links", summary.Links),
		zap.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

func (s *TransferService) teachersByName(ctx context.Context, schoolID string) (map[string]*models.Teacher, error) {
	teachers, err := s.repos.Teachers.ListAll(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	byName := make(map[string]*models.Teacher, len(teachers))
	for i := range teachers {
		byName[teachers[i].Name] = &teachers[i]
	}
	return byName, nil
}

func (s *TransferService) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	if s.repos.Tx == nil {
		return fn(nil)
	}
	tx, err := s.repos.Tx.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *TransferService) audit(ctx context.Context, tx *sqlx.Tx, actor Actor, schoolID, kind string, summary *dto.ImportSummary) error {
	if s.repos.Audit == nil {
		return nil
	}
	entry, err := newAuditEntry(actor, models.AuditActionRosterImport, "school", schoolID, map[string]any{
		"kind":    kind,
		"created": summary.Created,
		"updated": summary.Updated,
		"links":   summary.Links,
	})
	if err != nil {
		return err
	}
	var exec sqlx.ExtContext
	if tx != nil {
		exec = tx
	}
	return s.repos.Audit.CreateAuditLogWith(ctx, exec, entry)
}

// missingTeachers collects teachers named by links but absent from the
// school, with their subjects in first-seen order.
func missingTeachers(classes []roster.Class, known map[string]*models.Teacher) (map[string][]string, []string) {
	missing := make(map[string][]string)
	var order []string
	for _, class := range classes {
		for _, link := range class.Links {
			if _, ok := known[link.Teacher]; ok {
				continue
			}
			subjects, seen := missing[link.Teacher]
			if !seen {
				order = append(order, link.Teacher)
			}
			if !containsFold(subjects, link.Subject) {
				missing[link.Teacher] = append(subjects, link.Subject)
			}
		}
	}
	return missing, order
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}

func rosterError(err error) error {
	var lineErr *roster.LineError
	if errors.As(err, &lineErr) {
		return appErrors.Clone(appErrors.ErrValidation, lineErr.Error())
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable roster")
}
