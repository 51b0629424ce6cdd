package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func withClaims(userID string, role models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: userID, Role: role})
		c.Next()
	}
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

type generatorStub struct {
	scheduleGenerator
	cached   bool
	strategy string
}

func (g *generatorStub) Generate(ctx context.Context, actor service.Actor, schoolID string, req dto.GenerateTimetableRequest) (*dto.TimetableResponse, error) {
	g.strategy = req.Strategy
	return &dto.TimetableResponse{ProposalID: "p1", SchoolID: schoolID}, nil
}

func (g *generatorStub) Current(ctx context.Context, actor service.Actor, schoolID string) (*dto.TimetableResponse, bool, error) {
	if schoolID == "none" {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "no current timetable")
	}
	return &dto.TimetableResponse{ProposalID: "p1", SchoolID: schoolID}, g.cached, nil
}

func TestScheduleGeneratorCurrentReportsCache(t *testing.T) {
	stub := &generatorStub{cached: true}
	h := NewScheduleGeneratorHandler(stub)
	r := gin.New()
	r.Use(middleware.WithResponseMeta())
	r.GET("/schools/:id/timetable/current", withClaims("u1", models.RoleTeacher), h.Current)

	rec := doJSON(t, r, http.MethodGet, "/schools/s1/timetable/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, true, env.Meta["cached"])

	var grid dto.TimetableResponse
	require.NoError(t, json.Unmarshal(env.Data, &grid))
	assert.Equal(t, "s1", grid.SchoolID)

	rec = doJSON(t, r, http.MethodGet, "/schools/none/timetable/current", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, appErrors.ErrNotFound.Code, decode(t, rec).Error.Code)
}

func TestScheduleGeneratorGenerateBody(t *testing.T) {
	stub := &generatorStub{}
	h := NewScheduleGeneratorHandler(stub)
	r := gin.New()
	r.Use(middleware.WithResponseMeta())
	r.POST("/schools/:id/timetable/generate", withClaims("u1", models.RoleAdmin), h.Generate)

	rec := doJSON(t, r, http.MethodPost, "/schools/s1/timetable/generate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "preview", decode(t, rec).Meta["mode"])
	assert.Empty(t, stub.strategy)

	rec = doJSON(t, r, http.MethodPost, "/schools/s1/timetable/generate", map[string]string{"strategy": "flag-on-conflict"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "flag-on-conflict", stub.strategy)

	unauth := gin.New()
	unauth.POST("/schools/:id/timetable/generate", h.Generate)
	assert.Equal(t, http.StatusUnauthorized, doJSON(t, unauth, http.MethodPost, "/schools/s1/timetable/generate", nil).Code)
}

type guardStub struct{}

func (guardStub) Authorize(ctx context.Context, actor service.Actor, schoolID string, write bool) (*models.School, error) {
	if write && actor.Role == models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "read-only role")
	}
	return &models.School{ID: schoolID, OwnerID: actor.UserID}, nil
}

type teacherStub struct {
	teacherService
	created []string
}

func (s *teacherStub) Create(ctx context.Context, schoolID string, req dto.TeacherRequest) (*models.Teacher, error) {
	s.created = append(s.created, schoolID+"/"+req.Name)
	return &models.Teacher{ID: "t1", SchoolID: schoolID, Name: req.Name}, nil
}

func TestTeacherCreateRequiresWriter(t *testing.T) {
	stub := &teacherStub{}
	h := NewTeacherHandler(guardStub{}, stub)

	admin := gin.New()
	admin.POST("/schools/:id/teachers", withClaims("a1", models.RoleAdmin), h.Create)
	rec := doJSON(t, admin, http.MethodPost, "/schools/s1/teachers", dto.TeacherRequest{Name: "Ana", Subjects: []string{"Matematica"}})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{"s1/Ana"}, stub.created)

	reader := gin.New()
	reader.POST("/schools/:id/teachers", withClaims("t1", models.RoleTeacher), h.Create)
	rec = doJSON(t, reader, http.MethodPost, "/schools/s1/teachers", dto.TeacherRequest{Name: "Bia"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Len(t, stub.created, 1)

	rec = doJSON(t, admin, http.MethodPost, "/schools/s1/teachers", "not an object")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type transferStub struct {
	transferService
}

func (transferStub) ExportTeachers(ctx context.Context, actor service.Actor, schoolID string) (string, error) {
	return "Ana;Matematica,Fisica", nil
}

func (transferStub) ImportClasses(ctx context.Context, actor service.Actor, schoolID string, req dto.RosterImportRequest) (*dto.ImportSummary, error) {
	if req.Content == "bad" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "line 1: missing ';'")
	}
	return &dto.ImportSummary{Created: 1, Links: 2}, nil
}

func TestTransferTextEndpoints(t *testing.T) {
	h := NewTransferHandler(transferStub{})
	r := gin.New()
	r.GET("/schools/:id/roster/teachers", withClaims("u1", models.RoleTeacher), h.ExportTeachers)
	r.POST("/schools/:id/roster/classes", withClaims("u1", models.RoleAdmin), h.ImportClasses)

	rec := doJSON(t, r, http.MethodGet, "/schools/s1/roster/teachers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ana;Matematica,Fisica", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "professores.txt")
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	rec = doJSON(t, r, http.MethodPost, "/schools/s1/roster/classes", dto.RosterImportRequest{Content: "1A;Artes|Ana|2"})
	require.Equal(t, http.StatusOK, rec.Code)
	var summary dto.ImportSummary
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &summary))
	assert.Equal(t, 2, summary.Links)

	rec = doJSON(t, r, http.MethodPost, "/schools/s1/roster/classes", dto.RosterImportRequest{Content: "bad"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec).Error.Message, "line 1")
}

type exportStub struct {
	exportJobs
	path string
}

func (s exportStub) ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error) {
	switch token {
	case "expired":
		return nil, appErrors.Clone(appErrors.ErrLinkExpired, "download link expired")
	case "good":
		file, err := os.Open(s.path)
		if err != nil {
			return nil, err
		}
		return &service.ExportDownload{File: file, Filename: filepath.Base(s.path), Format: models.ExportFormatCSV}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
}

func (s exportStub) CreateJob(ctx context.Context, actor service.Actor, schoolID string, req dto.ExportRequest) (*dto.ExportJobResponse, error) {
	return &dto.ExportJobResponse{ID: "job1", Status: models.ExportStatusQueued}, nil
}

func TestExportDownloadStreamsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timetable.csv")
	require.NoError(t, os.WriteFile(path, []byte("Turma,1A\n"), 0o600))

	h := NewExportHandler(exportStub{path: path})
	r := gin.New()
	r.GET("/timetable/exports/download", h.Download)
	r.POST("/schools/:id/timetable/exports", withClaims("u1", models.RoleTeacher), h.Create)

	rec := doJSON(t, r, http.MethodGet, "/timetable/exports/download?token=good", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Turma,1A\n", rec.Body.String())
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "timetable.csv")

	assert.Equal(t, http.StatusGone, doJSON(t, r, http.MethodGet, "/timetable/exports/download?token=expired", nil).Code)
	assert.Equal(t, http.StatusForbidden, doJSON(t, r, http.MethodGet, "/timetable/exports/download?token=forged", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(t, r, http.MethodGet, "/timetable/exports/download", nil).Code)

	rec = doJSON(t, r, http.MethodPost, "/schools/s1/timetable/exports", dto.ExportRequest{Format: models.ExportFormatPDF})
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestReadyReportsFailingDependency(t *testing.T) {
	h := NewMetricsHandler(nil, map[string]Pinger{
		"postgres": PingFunc(func(ctx context.Context) error { return nil }),
		"redis":    PingFunc(func(ctx context.Context) error { return errors.New("connection refused") }),
		"queue":    nil,
	})
	r := gin.New()
	r.GET("/ready", h.Ready)
	r.GET("/metrics", h.Prometheus)

	rec := doJSON(t, r, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "ok", body.Checks["postgres"])
	assert.Equal(t, "disabled", body.Checks["queue"])

	assert.Equal(t, http.StatusServiceUnavailable, doJSON(t, r, http.MethodGet, "/metrics", nil).Code)
}
