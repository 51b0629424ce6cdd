package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

type exportRepoStub struct {
	jobs map[string]*models.ExportJob
}

func newExportRepoStub() *exportRepoStub {
	return &exportRepoStub{jobs: map[string]*models.ExportJob{}}
}

func (r *exportRepoStub) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *exportRepoStub) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return job, nil
}

func (r *exportRepoStub) Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error {
	job, ok := r.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (r *exportRepoStub) ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error) {
	var queued []models.ExportJob
	for _, job := range r.jobs {
		if job.Status == models.ExportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (r *exportRepoStub) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	var out []models.ExportJob
	for _, job := range r.jobs {
		if job.Status == models.ExportStatusFinished && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			out = append(out, *job)
		}
	}
	return out, nil
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type exportJobHarness struct {
	svc      *ExportJobService
	repo     *exportRepoStub
	queue    *queueStub
	exporter *ExportService
	gen      *generatorHarness
}

func newExportJobHarness(t *testing.T) *exportJobHarness {
	t.Helper()
	exporter, _, gen := newExportServiceForTest(t)
	h := &exportJobHarness{repo: newExportRepoStub(), queue: &queueStub{}, exporter: exporter, gen: gen}
	schools := NewSchoolService(gen.schools, testDefaults, nil, zap.NewNop())
	h.svc = NewExportJobService(schools, gen.svc, h.repo, h.queue, exporter, nil, zap.NewNop(), ExportJobConfig{
		ResultTTL:       time.Hour,
		CleanupInterval: time.Hour,
	})
	return h
}

func TestExportJobServiceCreateJob(t *testing.T) {
	h := newExportJobHarness(t)
	resp, err := h.svc.CreateJob(context.Background(), owner, "s1", dto.ExportRequest{Format: models.ExportFormatPDF})
	require.NoError(t, err)
	require.NotEmpty(t, resp.ID)
	assert.Equal(t, models.ExportStatusQueued, resp.Status)
	require.Len(t, h.queue.jobs, 1)
	assert.Equal(t, ExportJobType, h.queue.jobs[0].Type)

	stored := h.repo.jobs[resp.ID]
	require.NotNil(t, stored.Params.ProposalID)
	assert.Equal(t, "owner", stored.CreatedBy)
}

func TestExportJobServiceCreateJobValidation(t *testing.T) {
	h := newExportJobHarness(t)

	_, err := h.svc.CreateJob(context.Background(), owner, "s1", dto.ExportRequest{Format: "docx"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	missing := "missing"
	_, err = h.svc.CreateJob(context.Background(), owner, "s1", dto.ExportRequest{Format: models.ExportFormatCSV, VersionID: &missing})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	stranger := Actor{UserID: "other", Role: models.RoleAdmin}
	_, err = h.svc.CreateJob(context.Background(), stranger, "s1", dto.ExportRequest{Format: models.ExportFormatCSV})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestExportJobServiceEnqueueFailureMarksJobFailed(t *testing.T) {
	h := newExportJobHarness(t)
	h.queue.err = errors.New("closed")

	_, err := h.svc.CreateJob(context.Background(), owner, "s1", dto.ExportRequest{Format: models.ExportFormatCSV})
	require.Error(t, err)
	require.Len(t, h.repo.jobs, 1)
	for _, job := range h.repo.jobs {
		assert.Equal(t, models.ExportStatusFailed, job.Status)
	}
}

func TestExportJobServiceLifecycle(t *testing.T) {
	h := newExportJobHarness(t)
	ctx := context.Background()
	resp, err := h.svc.CreateJob(ctx, owner, "s1", dto.ExportRequest{Format: models.ExportFormatCSV})
	require.NoError(t, err)

	worker := NewExportWorker(h.repo, h.exporter, NewMetricsService(), 3, zap.NewNop())
	require.NoError(t, worker.Handle(ctx, h.queue.jobs[0]))

	status, err := h.svc.GetStatus(ctx, Actor{UserID: "t1", Role: models.RoleTeacher}, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFinished, status.Status)
	assert.Equal(t, 100, status.Progress)
	require.NotNil(t, status.ResultURL)

	token := extractToken(*status.ResultURL)
	download, err := h.svc.ResolveDownload(ctx, token)
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, models.ExportFormatCSV, download.Format)
	assert.Contains(t, download.Filename, ".csv")

	_, err = h.svc.ResolveDownload(ctx, token+"x")
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestExportJobServiceRemovedFileIsGone(t *testing.T) {
	h := newExportJobHarness(t)
	ctx := context.Background()
	resp, err := h.svc.CreateJob(ctx, owner, "s1", dto.ExportRequest{Format: models.ExportFormatCSV})
	require.NoError(t, err)
	worker := NewExportWorker(h.repo, h.exporter, nil, 3, zap.NewNop())
	require.NoError(t, worker.Handle(ctx, h.queue.jobs[0]))

	token := extractToken(*h.repo.jobs[resp.ID].ResultURL)
	parsed, err := h.exporter.ParseToken(token, false)
	require.NoError(t, err)
	require.NoError(t, h.exporter.Delete(parsed.Path))

	_, err = h.svc.ResolveDownload(ctx, token)
	assert.Equal(t, appErrors.ErrLinkExpired.Code, appErrors.FromError(err).Code)
}

func TestExportJobServiceNotReady(t *testing.T) {
	h := newExportJobHarness(t)
	ctx := context.Background()
	resp, err := h.svc.CreateJob(ctx, owner, "s1", dto.ExportRequest{Format: models.ExportFormatCSV})
	require.NoError(t, err)

	result, err := h.exporter.Generate(ctx, h.repo.jobs[resp.ID])
	require.NoError(t, err)
	h.repo.jobs[resp.ID].ResultURL = &result.URL

	_, err = h.svc.ResolveDownload(ctx, result.Token)
	assert.Equal(t, appErrors.ErrExportNotReady.Code, appErrors.FromError(err).Code)
}

type exportStub struct {
	result *ExportResult
	err    error
}

func (e exportStub) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

func TestExportWorkerRetriesThenFails(t *testing.T) {
	repo := newExportRepoStub()
	repo.jobs["job-1"] = &models.ExportJob{ID: "job-1", SchoolID: "s1", Params: models.ExportJobParams{Format: models.ExportFormatCSV}, Status: models.ExportStatusQueued}
	metrics := NewMetricsService()
	worker := NewExportWorker(repo, exportStub{err: errors.New("boom")}, metrics, 2, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 0})
	require.Error(t, err)
	assert.Equal(t, models.ExportStatusQueued, repo.jobs["job-1"].Status)
	assert.Equal(t, "boom", *repo.jobs["job-1"].ErrorMessage)

	err = worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 2})
	require.Error(t, err)
	assert.Equal(t, models.ExportStatusFailed, repo.jobs["job-1"].Status)
	assert.NotNil(t, repo.jobs["job-1"].FinishedAt)
	assert.Equal(t, uint64(1), metrics.Snapshot().ExportsFailed)
}

func TestExportJobServiceRecoverAndCleanup(t *testing.T) {
	h := newExportJobHarness(t)
	ctx := context.Background()
	h.repo.jobs["queued"] = &models.ExportJob{ID: "queued", SchoolID: "s1", Status: models.ExportStatusQueued}

	h.svc.RecoverPendingJobs(ctx)
	require.Len(t, h.queue.jobs, 1)
	assert.Equal(t, "queued", h.queue.jobs[0].ID)

	job := &models.ExportJob{ID: "old", SchoolID: "s1", Params: models.ExportJobParams{Format: models.ExportFormatCSV}}
	result, err := h.exporter.Generate(ctx, job)
	require.NoError(t, err)
	finished := time.Now().Add(-2 * time.Hour)
	job.Status = models.ExportStatusFinished
	job.FinishedAt = &finished
	job.ResultURL = &result.URL
	h.repo.jobs[job.ID] = job

	h.svc.cleanupExpired(ctx)
	_, err = h.exporter.Open(result.RelativePath)
	assert.Error(t, err)
}
