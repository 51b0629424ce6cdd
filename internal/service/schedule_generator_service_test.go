package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/timetable"
)

type memVersionRepo struct {
	items []*models.ScheduleVersion
}

func (m *memVersionRepo) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, version *models.ScheduleVersion) error {
	next := 1
	for _, v := range m.items {
		if v.SchoolID == version.SchoolID && v.Version >= next {
			next = v.Version + 1
		}
	}
	version.ID = fmt.Sprintf("version-%d", len(m.items)+1)
	version.Version = next
	version.SavedAt = time.Now().UTC()
	cp := *version
	m.items = append(m.items, &cp)
	return nil
}

func (m *memVersionRepo) ListBySchool(ctx context.Context, schoolID string) ([]models.ScheduleVersionSummary, error) {
	var out []models.ScheduleVersionSummary
	for i := len(m.items) - 1; i >= 0; i-- {
		v := m.items[i]
		if v.SchoolID == schoolID {
			out = append(out, models.ScheduleVersionSummary{ID: v.ID, SchoolID: v.SchoolID, Version: v.Version, Strategy: v.Strategy, SavedBy: v.SavedBy, SavedAt: v.SavedAt})
		}
	}
	return out, nil
}

func (m *memVersionRepo) FindByID(ctx context.Context, schoolID, id string) (*models.ScheduleVersion, error) {
	for _, v := range m.items {
		if v.SchoolID == schoolID && v.ID == id {
			cp := *v
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memVersionRepo) Latest(ctx context.Context, schoolID string) (*models.ScheduleVersion, error) {
	var latest *models.ScheduleVersion
	for _, v := range m.items {
		if v.SchoolID == schoolID && (latest == nil || v.Version > latest.Version) {
			latest = v
		}
	}
	if latest == nil {
		return nil, sql.ErrNoRows
	}
	cp := *latest
	return &cp, nil
}

func (m *memVersionRepo) Delete(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) error {
	for i, v := range m.items {
		if v.SchoolID == schoolID && v.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type memAudit struct {
	entries []*models.AuditLog
}

func (m *memAudit) CreateAuditLogWith(ctx context.Context, exec sqlx.ExtContext, log *models.AuditLog) error {
	m.entries = append(m.entries, log)
	return nil
}

type generatorHarness struct {
	*fixture
	versions *memVersionRepo
	audit    *memAudit
	cache    *memCache
	svc      *ScheduleGeneratorService
}

var owner = Actor{UserID: "owner", Role: models.RoleAdmin}

func newGeneratorHarness(t *testing.T, withCache bool) *generatorHarness {
	t.Helper()
	f := newFixture()
	h := &generatorHarness{fixture: f, versions: &memVersionRepo{}, audit: &memAudit{}, cache: newMemCache()}
	schools := NewSchoolService(f.schools, testDefaults, nil, zap.NewNop())
	h.svc = NewScheduleGeneratorService(schools, ScheduleGeneratorRepositories{
		Teachers: f.teachers,
		Classes:  f.classes,
		Links:    f.links,
		Versions: h.versions,
		Audit:    h.audit,
	}, NewCacheService(h.cache, nil, time.Minute, nil, withCache), NewMetricsService(), nil, zap.NewNop(), ScheduleGeneratorConfig{
		ProposalTTL: time.Hour,
	})
	return h
}

// seed builds one class with five weekly units over two days of three
// teaching slots each.
func (h *generatorHarness) seed() {
	h.school("s1", "owner", []string{"Terca", "Segunda"}, []string{"07:00", "07:50", "Intervalo", "09:00"})
	ana := h.teacher("s1", "Ana", "Matematica")
	bruno := h.teacher("s1", "Bruno", "Historia")
	class := h.class("s1", "1A")
	h.link(class, "Matematica", ana, 3)
	h.link(class, "Historia", bruno, 2)
	h.link(class, "Artes", bruno, 1)
}

func TestGenerateBuildsProposal(t *testing.T) {
	h := newGeneratorHarness(t, false)
	h.seed()

	res, err := h.svc.Generate(context.Background(), owner, "s1", dto.GenerateTimetableRequest{})
	require.NoError(t, err)

	assert.NotEmpty(t, res.ProposalID)
	assert.Equal(t, timetable.StrategySkipOnConflict, res.Strategy)
	assert.Equal(t, []string{"1A"}, res.Classes)
	assert.Equal(t, []string{"Terca", "Segunda"}, res.Week.Days)
	require.Contains(t, res.Grid, "1A")
	assert.Equal(t, timetable.CellBreak, res.Grid["1A"]["Segunda"][2].Kind())

	require.NotNil(t, res.Stats)
	assert.Equal(t, 6, res.Stats.Demand)
	assert.Equal(t, 6, res.Stats.TeachingSlots)
	assert.Equal(t, res.Stats.Demand, res.Stats.Placed+res.Stats.Unplaced)
	assert.Equal(t, res.Stats.Placed, res.Stats.TeacherLoad["Ana"]+res.Stats.TeacherLoad["Bruno"])
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "Artes")

	current, cached, err := h.svc.Current(context.Background(), owner, "s1")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, res.ProposalID, current.ProposalID)
}

func TestGenerateFlagStrategy(t *testing.T) {
	h := newGeneratorHarness(t, false)
	h.seed()

	res, err := h.svc.Generate(context.Background(), owner, "s1", dto.GenerateTimetableRequest{Strategy: "flag-on-conflict"})
	require.NoError(t, err)
	assert.Equal(t, timetable.StrategyFlagOnConflict, res.Strategy)
	assert.Empty(t, res.Residuals)
	assert.NotNil(t, res.Residuals)
}

func TestGenerateRejectsInvalidInput(t *testing.T) {
	h := newGeneratorHarness(t, false)
	h.school("s1", "owner", []string{"Segunda"}, []string{"Intervalo"})

	_, err := h.svc.Generate(context.Background(), owner, "s1", dto.GenerateTimetableRequest{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnprocessable.Code, appErr.Code)
	assert.NotEmpty(t, appErr.Details)

	_, err = h.svc.Generate(context.Background(), owner, "s1", dto.GenerateTimetableRequest{Strategy: "random"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGenerateRequiresWriteAccess(t *testing.T) {
	h := newGeneratorHarness(t, false)
	h.seed()

	_, err := h.svc.Generate(context.Background(), Actor{UserID: "t1", Role: models.RoleTeacher}, "s1", dto.GenerateTimetableRequest{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, _, err = h.svc.Current(context.Background(), Actor{UserID: "t1", Role: models.RoleTeacher}, "s1")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCurrentServedFromCache(t *testing.T) {
	h := newGeneratorHarness(t, true)
	h.seed()

	res, err := h.svc.Generate(context.Background(), owner, "s1", dto.GenerateTimetableRequest{})
	require.NoError(t, err)
	assert.Contains(t, h.cache.data, "current:s1")

	current, cached, err := h.svc.Current(context.Background(), owner, "s1")
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, res.ProposalID, current.ProposalID)
	assert.Equal(t, res.Grid["1A"]["Segunda"][0].String(), current.Grid["1A"]["Segunda"][0].String())

	h.svc.Forget(context.Background(), "s1")
	_, _, err = h.svc.Current(context.Background(), owner, "s1")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestVersionLifecycle(t *testing.T) {
	h := newGeneratorHarness(t, false)
	h.seed()
	ctx := context.Background()

	res, err := h.svc.Generate(ctx, owner, "s1", dto.GenerateTimetableRequest{})
	require.NoError(t, err)

	_, err = h.svc.SaveVersion(ctx, owner, "s1", dto.SaveVersionRequest{ProposalID: "unknown"})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	first, err := h.svc.SaveVersion(ctx, owner, "s1", dto.SaveVersionRequest{ProposalID: res.ProposalID})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)
	require.NotNil(t, first.SavedBy)
	assert.Equal(t, "owner", *first.SavedBy)

	second, err := h.svc.SaveVersion(ctx, owner, "s1", dto.SaveVersionRequest{ProposalID: res.ProposalID})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)

	list, err := h.svc.ListVersions(ctx, owner, "s1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 2, list[0].Version)

	latest, err := h.svc.LatestVersion(ctx, owner, "s1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	stored, err := h.svc.GetVersion(ctx, owner, "s1", first.ID)
	require.NoError(t, err)
	want, _ := json.Marshal(res.Grid)
	got, _ := json.Marshal(stored.Grid)
	assert.JSONEq(t, string(want), string(got))
	assert.Equal(t, res.Week, stored.Week)

	loaded, err := h.svc.LoadVersion(ctx, owner, "s1", first.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.VersionID)
	assert.Equal(t, first.ID, *loaded.VersionID)
	assert.NotEqual(t, res.ProposalID, loaded.ProposalID)

	snapshot, err := h.svc.Snapshot(ctx, "s1", nil)
	require.NoError(t, err)
	assert.Equal(t, loaded.ProposalID, snapshot.ProposalID)

	require.NoError(t, h.svc.DeleteVersion(ctx, owner, "s1", first.ID))
	err = h.svc.DeleteVersion(ctx, owner, "s1", first.ID)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	actions := make([]string, 0, len(h.audit.entries))
	for _, e := range h.audit.entries {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []string{
		models.AuditActionVersionSave,
		models.AuditActionVersionSave,
		models.AuditActionVersionLoad,
		models.AuditActionVersionDelete,
	}, actions)
}

func TestLatestVersionMissing(t *testing.T) {
	h := newGeneratorHarness(t, false)
	h.seed()
	_, err := h.svc.LatestVersion(context.Background(), owner, "s1")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
