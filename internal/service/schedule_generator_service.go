package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/timetable"
)

type generatorSchools interface {
	Authorize(ctx context.Context, actor Actor, schoolID string, write bool) (*models.School, error)
	Week(school *models.School) (timetable.Week, error)
}

type schoolTeacherLister interface {
	ListAll(ctx context.Context, schoolID string) ([]models.Teacher, error)
}

type schoolClassLister interface {
	ListAll(ctx context.Context, schoolID string) ([]models.Class, error)
}

type schoolLinkLister interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.ClassLinkDetail, error)
}

type scheduleVersionRepository interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, version *models.ScheduleVersion) error
	ListBySchool(ctx context.Context, schoolID string) ([]models.ScheduleVersionSummary, error)
	FindByID(ctx context.Context, schoolID, id string) (*models.ScheduleVersion, error)
	Latest(ctx context.Context, schoolID string) (*models.ScheduleVersion, error)
	Delete(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) error
}

type auditRecorder interface {
	CreateAuditLogWith(ctx context.Context, exec sqlx.ExtContext, log *models.AuditLog) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// ScheduleGeneratorConfig controls proposal lifetime and defaults.
type ScheduleGeneratorConfig struct {
	ProposalTTL     time.Duration
	CacheTTL        time.Duration
	DefaultStrategy timetable.Strategy
}

// ScheduleGeneratorRepositories groups the data sources of the generator.
type ScheduleGeneratorRepositories struct {
	Teachers schoolTeacherLister
	Classes  schoolClassLister
	Links    schoolLinkLister
	Versions scheduleVersionRepository
	Audit    auditRecorder
	Tx       txProvider
}

// ScheduleGeneratorService builds timetables for schools, keeps the
// current proposal and manages saved versions.
type ScheduleGeneratorService struct {
	schools   generatorSchools
	repos     ScheduleGeneratorRepositories
	engine    *timetable.Engine
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	store     *proposalStore
	config    ScheduleGeneratorConfig
}

// NewScheduleGeneratorService wires the generator.
func NewScheduleGeneratorService(
	schools generatorSchools,
	repos ScheduleGeneratorRepositories,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ScheduleGeneratorConfig,
) *ScheduleGeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.DefaultStrategy.Valid() {
		cfg.DefaultStrategy = timetable.StrategySkipOnConflict
	}
	return &ScheduleGeneratorService{
		schools:   schools,
		repos:     repos,
		engine:    timetable.New(timetable.WithLogger(logger), timetable.WithDefaultStrategy(cfg.DefaultStrategy)),
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		store:     newProposalStore(cfg.ProposalTTL),
		config:    cfg,
	}
}

func currentCacheKey(schoolID string) string {
	return "current:" + schoolID
}

// Generate runs the engine over the school's data and makes the result
// the school's current proposal.
func (s *ScheduleGeneratorService) Generate(ctx context.Context, actor Actor, schoolID string, req dto.GenerateTimetableRequest) (*dto.TimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generate payload")
	}
	school, err := s.schools.Authorize(ctx, actor, schoolID, true)
	if err != nil {
		return nil, err
	}

	input, err := s.buildInput(ctx, school)
	if err != nil {
		return nil, err
	}
	input.Strategy = timetable.Strategy(req.Strategy)
	if input.Strategy == "" {
		input.Strategy = s.config.DefaultStrategy
	}

	if err := timetable.Validate(input); err != nil {
		var verr *timetable.ValidationError
		if errors.As(err, &verr) {
			details := make([]string, len(verr.Problems))
			for i, p := range verr.Problems {
				details[i] = p.Error()
			}
			return nil, appErrors.Wrap(err, appErrors.ErrUnprocessable.Code, appErrors.ErrUnprocessable.Status, appErrors.ErrUnprocessable.Message).WithDetails(details...)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate timetable input")
	}

	started := time.Now()
	result := s.engine.Generate(input)
	elapsed := time.Since(started)

	stats := generationStats(input, result, elapsed)
	s.metrics.ObserveGeneration(string(result.Strategy), elapsed, stats.Unplaced, stats.Conflicts)

	proposal := &dto.TimetableResponse{
		ProposalID:  uuid.NewString(),
		SchoolID:    school.ID,
		Strategy:    result.Strategy,
		Week:        result.Week,
		Classes:     classNames(input.Classes),
		Grid:        result.Grid,
		Residuals:   result.Residuals,
		Allocations: result.Allocations,
		Warnings:    timetable.QualificationWarnings(input),
		Stats:       stats,
		GeneratedAt: time.Now().UTC(),
	}
	s.publish(ctx, proposal)

	s.logger.Info("timetable generated",
		zap.String("school_id", school.ID),
		zap.String("proposal_id", proposal.ProposalID),
		zap.String("strategy", string(result.Strategy)),
		zap.Int("placed", stats.Placed),
		zap.Int("unplaced", stats.Unplaced),
	)
	return proposal, nil
}

// Current returns the school's current grid and whether it came from the
// shared cache.
func (s *ScheduleGeneratorService) Current(ctx context.Context, actor Actor, schoolID string) (*dto.TimetableResponse, bool, error) {
	if _, err := s.schools.Authorize(ctx, actor, schoolID, false); err != nil {
		return nil, false, err
	}
	proposal, cached, ok := s.lookupCurrent(ctx, schoolID)
	if !ok {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "no timetable generated for this school")
	}
	return proposal, cached, nil
}

// Snapshot resolves the grid to export: a saved version when versionID is
// set, the current proposal otherwise.
func (s *ScheduleGeneratorService) Snapshot(ctx context.Context, schoolID string, versionID *string) (*dto.TimetableResponse, error) {
	if versionID != nil && *versionID != "" {
		version, err := s.findVersion(ctx, schoolID, *versionID)
		if err != nil {
			return nil, err
		}
		return proposalFromVersion(version)
	}
	proposal, _, ok := s.lookupCurrent(ctx, schoolID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no timetable generated for this school")
	}
	return proposal, nil
}

// SaveVersion snapshots a live proposal as the school's next version.
func (s *ScheduleGeneratorService) SaveVersion(ctx context.Context, actor Actor, schoolID string, req dto.SaveVersionRequest) (*dto.VersionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save version payload")
	}
	if _, err := s.schools.Authorize(ctx, actor, schoolID, true); err != nil {
		return nil, err
	}
	proposal, ok := s.store.Get(schoolID, req.ProposalID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}

	version, err := versionFromProposal(proposal)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode timetable")
	}
	if actor.UserID != "" {
		version.SavedBy = &actor.UserID
	}

	err = s.inTx(ctx, func(exec sqlx.ExtContext) error {
		if err := s.repos.Versions.CreateVersioned(ctx, exec, version); err != nil {
			return err
		}
		return s.audit(ctx, exec, actor, models.AuditActionVersionSave, version.ID, map[string]any{
			"version":    version.Version,
			"proposalId": proposal.ProposalID,
			"strategy":   version.Strategy,
		})
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save timetable version")
	}

	saved := *proposal
	saved.VersionID = &version.ID
	s.publish(ctx, &saved)

	s.logger.Info("timetable version saved", zap.String("school_id", schoolID), zap.Int("version", version.Version))
	return versionResponse(version, proposal), nil
}

// ListVersions returns version summaries, newest first.
func (s *ScheduleGeneratorService) ListVersions(ctx context.Context, actor Actor, schoolID string) ([]models.ScheduleVersionSummary, error) {
	if _, err := s.schools.Authorize(ctx, actor, schoolID, false); err != nil {
		return nil, err
	}
	versions, err := s.repos.Versions.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable versions")
	}
	if versions == nil {
		versions = []models.ScheduleVersionSummary{}
	}
	return versions, nil
}

// GetVersion returns one saved version with its grid.
func (s *ScheduleGeneratorService) GetVersion(ctx context.Context, actor Actor, schoolID, versionID string) (*dto.VersionResponse, error) {
	if _, err := s.schools.Authorize(ctx, actor, schoolID, false); err != nil {
		return nil, err
	}
	version, err := s.findVersion(ctx, schoolID, versionID)
	if err != nil {
		return nil, err
	}
	return decodeVersion(version)
}

// LatestVersion returns the highest numbered version.
func (s *ScheduleGeneratorService) LatestVersion(ctx context.Context, actor Actor, schoolID string) (*dto.VersionResponse, error) {
	if _, err := s.schools.Authorize(ctx, actor, schoolID, false); err != nil {
		return nil, err
	}
	version, err := s.repos.Versions.Latest(ctx, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no saved versions")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load latest version")
	}
	return decodeVersion(version)
}

// LoadVersion makes a saved version the current grid without generating.
func (s *ScheduleGeneratorService) LoadVersion(ctx context.Context, actor Actor, schoolID, versionID string) (*dto.TimetableResponse, error) {
	if _, err := s.schools.Authorize(ctx, actor, schoolID, true); err != nil {
		return nil, err
	}
	version, err := s.findVersion(ctx, schoolID, versionID)
	if err != nil {
		return nil, err
	}
	proposal, err := proposalFromVersion(version)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, proposal)
	if err := s.audit(ctx, nil, actor, models.AuditActionVersionLoad, version.ID, map[string]any{"version": version.Version}); err != nil {
		s.logger.Warn("failed to record version load audit log", zap.Error(err))
	}
	return proposal, nil
}

// DeleteVersion removes a saved version.
func (s *ScheduleGeneratorService) DeleteVersion(ctx context.Context, actor Actor, schoolID, versionID string) error {
	if _, err := s.schools.Authorize(ctx, actor, schoolID, true); err != nil {
		return err
	}
	err := s.inTx(ctx, func(exec sqlx.ExtContext) error {
		if err := s.repos.Versions.Delete(ctx, exec, schoolID, versionID); err != nil {
			return err
		}
		return s.audit(ctx, exec, actor, models.AuditActionVersionDelete, versionID, nil)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "version not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable version")
	}
	return nil
}

// Forget drops the current proposal of a school, e.g. after its roster
// was replaced.
func (s *ScheduleGeneratorService) Forget(ctx context.Context, schoolID string) {
	s.store.Forget(schoolID)
	s.cache.Delete(ctx, currentCacheKey(schoolID))
}

func (s *ScheduleGeneratorService) buildInput(ctx context.Context, school *models.School) (timetable.Input, error) {
	week, err := s.schools.Week(school)
	if err != nil {
		return timetable.Input{}, err
	}
	teachers, err := s.repos.Teachers.ListAll(ctx, school.ID)
	if err != nil {
		return timetable.Input{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	classes, err := s.repos.Classes.ListAll(ctx, school.ID)
	if err != nil {
		return timetable.Input{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}
	links, err := s.repos.Links.ListBySchool(ctx, school.ID)
	if err != nil {
		return timetable.Input{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class links")
	}

	input := timetable.Input{
		Week:     week,
		Teachers: make([]timetable.Teacher, 0, len(teachers)),
		Classes:  make([]timetable.Class, 0, len(classes)),
		Links:    make([]timetable.Link, 0, len(links)),
	}
	for _, t := range teachers {
		subjects, err := t.SubjectList()
		if err != nil {
			return timetable.Input{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "corrupt teacher subjects")
		}
		input.Teachers = append(input.Teachers, timetable.Teacher{Name: t.Name, Subjects: subjects})
	}
	for _, c := range classes {
		input.Classes = append(input.Classes, timetable.Class{Name: c.Name})
	}
	for _, l := range links {
		input.Links = append(input.Links, timetable.Link{
			Class:       l.ClassName,
			Subject:     l.Subject,
			Teacher:     l.TeacherName,
			WeeklyQuota: l.WeeklyQuota,
		})
	}
	return input, nil
}

func (s *ScheduleGeneratorService) publish(ctx context.Context, proposal *dto.TimetableResponse) {
	s.store.Save(proposal)
	s.cache.Set(ctx, currentCacheKey(proposal.SchoolID), proposal, s.config.CacheTTL)
}

func (s *ScheduleGeneratorService) lookupCurrent(ctx context.Context, schoolID string) (proposal *dto.TimetableResponse, cached bool, ok bool) {
	var hit dto.TimetableResponse
	if s.cache.Get(ctx, currentCacheKey(schoolID), &hit) {
		return &hit, true, true
	}
	proposal, ok = s.store.Current(schoolID)
	return proposal, false, ok
}

func (s *ScheduleGeneratorService) findVersion(ctx context.Context, schoolID, versionID string) (*models.ScheduleVersion, error) {
	version, err := s.repos.Versions.FindByID(ctx, schoolID, versionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "version not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load version")
	}
	return version, nil
}

func (s *ScheduleGeneratorService) inTx(ctx context.Context, fn func(exec sqlx.ExtContext) error) error {
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

func (s *ScheduleGeneratorService) audit(ctx context.Context, exec sqlx.ExtContext, actor Actor, action, resourceID string, payload map[string]any) error {
	if s.repos.Audit == nil {
		return nil
	}
	entry, err := newAuditEntry(actor, action, "schedule_version", resourceID, payload)
	if err != nil {
		return err
	}
	return s.repos.Audit.CreateAuditLogWith(ctx, exec, entry)
}

func generationStats(in timetable.Input, result timetable.Result, elapsed time.Duration) *dto.GenerationStats {
	stats := &dto.GenerationStats{
		Classes:       len(in.Classes),
		Links:         len(in.Links),
		Placed:        result.Placed(),
		Unplaced:      result.Unplaced(),
		Conflicts:     result.Grid.Count(timetable.CellConflict),
		TeachingSlots: result.Week.TeachingSlots() * len(result.Week.Days),
		TeacherLoad:   make(map[string]int),
		DurationMS:    float64(elapsed.Microseconds()) / 1000,
	}
	for _, link := range in.Links {
		stats.Demand += link.WeeklyQuota
		stats.TeacherLoad[link.Teacher] = result.Ledger.Load(link.Teacher)
	}
	return stats
}

func classNames(classes []timetable.Class) []string {
	names := make([]string, len(classes))
	for i, c := range classes {
		names[i] = c.Name
	}
	return names
}

func versionFromProposal(p *dto.TimetableResponse) (*models.ScheduleVersion, error) {
	week, err := json.Marshal(p.Week)
	if err != nil {
		return nil, err
	}
	grid, err := json.Marshal(p.Grid)
	if err != nil {
		return nil, err
	}
	residuals, err := json.Marshal(p.Residuals)
	if err != nil {
		return nil, err
	}
	return &models.ScheduleVersion{
		SchoolID:  p.SchoolID,
		Strategy:  string(p.Strategy),
		Week:      week,
		Grid:      grid,
		Residuals: residuals,
	}, nil
}

func versionResponse(v *models.ScheduleVersion, p *dto.TimetableResponse) *dto.VersionResponse {
	return &dto.VersionResponse{
		ID:        v.ID,
		SchoolID:  v.SchoolID,
		Version:   v.Version,
		Strategy:  p.Strategy,
		Week:      p.Week,
		Grid:      p.Grid,
		Residuals: p.Residuals,
		SavedBy:   v.SavedBy,
		SavedAt:   v.SavedAt,
	}
}

func decodeVersion(v *models.ScheduleVersion) (*dto.VersionResponse, error) {
	res := &dto.VersionResponse{
		ID:       v.ID,
		SchoolID: v.SchoolID,
		Version:  v.Version,
		Strategy: timetable.Strategy(v.Strategy),
		SavedBy:  v.SavedBy,
		SavedAt:  v.SavedAt,
	}
	if err := v.Week.Unmarshal(&res.Week); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "corrupt version week")
	}
	if err := v.Grid.Unmarshal(&res.Grid); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "corrupt version grid")
	}
	if len(v.Residuals) > 0 {
		if err := v.Residuals.Unmarshal(&res.Residuals); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "corrupt version residuals")
		}
	}
	if res.Residuals == nil {
		res.Residuals = []timetable.Residual{}
	}
	return res, nil
}

// proposalFromVersion rebuilds a current grid from a saved version. Class
// order is not stored, so classes are listed by name.
func proposalFromVersion(v *models.ScheduleVersion) (*dto.TimetableResponse, error) {
	decoded, err := decodeVersion(v)
	if err != nil {
		return nil, err
	}
	classes := make([]string, 0, len(decoded.Grid))
	for name := range decoded.Grid {
		classes = append(classes, name)
	}
	sort.Strings(classes)
	versionID := v.ID
	return &dto.TimetableResponse{
		ProposalID:  uuid.NewString(),
		SchoolID:    v.SchoolID,
		Strategy:    decoded.Strategy,
		Week:        decoded.Week,
		Classes:     classes,
		Grid:        decoded.Grid,
		Residuals:   decoded.Residuals,
		VersionID:   &versionID,
		GeneratedAt: time.Now().UTC(),
	}, nil
}
