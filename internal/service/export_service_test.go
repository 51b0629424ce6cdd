package service

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/storage"
)

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage, *generatorHarness) {
	t.Helper()
	h := newGeneratorHarness(t, false)
	h.seed()
	_, err := h.svc.Generate(context.Background(), owner, "s1", dto.GenerateTimetableRequest{})
	require.NoError(t, err)

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := NewExportService(h.svc, store, signer, ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}, zap.NewNop())
	return svc, store, h
}

func TestExportServiceGenerateCSV(t *testing.T) {
	svc, store, _ := newExportServiceForTest(t)
	job := &models.ExportJob{ID: "job-1", SchoolID: "s1", Params: models.ExportJobParams{Format: models.ExportFormatCSV}}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.RelativePath, "s1/timetable_current_"))
	assert.True(t, strings.HasSuffix(result.RelativePath, ".csv"))
	assert.Contains(t, result.URL, "/api/v1/timetable/exports/download?token=")

	file, err := os.Open(filepath.Join(store.Root(), result.RelativePath))
	require.NoError(t, err)
	defer file.Close()
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)

	var breakRow []string
	for _, rec := range records {
		if len(rec) > 0 && rec[0] == "Intervalo" {
			breakRow = rec
		}
	}
	require.NotNil(t, breakRow)
	assert.Equal(t, []string{"Intervalo", "INTERVALO", "INTERVALO"}, breakRow)
}

func TestExportServiceGenerateXLSXAndPDF(t *testing.T) {
	svc, store, _ := newExportServiceForTest(t)
	for _, format := range []models.ExportFormat{models.ExportFormatXLSX, models.ExportFormatPDF} {
		job := &models.ExportJob{ID: "job-" + string(format), SchoolID: "s1", Params: models.ExportJobParams{Format: format}}
		result, err := svc.Generate(context.Background(), job)
		require.NoError(t, err, format)
		info, err := os.Stat(filepath.Join(store.Root(), result.RelativePath))
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func TestExportServiceClassFilter(t *testing.T) {
	svc, _, _ := newExportServiceForTest(t)

	job := &models.ExportJob{ID: "job-2", SchoolID: "s1", Params: models.ExportJobParams{Format: models.ExportFormatCSV, Classes: []string{"9Z"}}}
	_, err := svc.Generate(context.Background(), job)
	assert.Error(t, err)

	job.Params.Format = "odt"
	_, err = svc.Generate(context.Background(), job)
	assert.Error(t, err)
}

func TestExportServiceTokenRoundTrip(t *testing.T) {
	svc, _, _ := newExportServiceForTest(t)
	job := &models.ExportJob{ID: "job-3", SchoolID: "s1", Params: models.ExportJobParams{Format: models.ExportFormatCSV}}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)

	parsed, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-3", parsed.JobID)
	assert.Equal(t, result.RelativePath, parsed.Path)

	require.NoError(t, svc.Delete(parsed.Path))
	_, err = svc.Open(parsed.Path)
	assert.Error(t, err)
}
