package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/sma-timetable-api/pkg/timetable"
)

func sampleDocument(t *testing.T) Document {
	t.Helper()
	in := timetable.Input{
		Week:    timetable.NewWeek([]string{"Segunda", "Terça"}, []string{"07:00", "Intervalo", "08:00"}, timetable.NewClassifier()),
		Classes: []timetable.Class{{Name: "1A"}, {Name: "2B"}},
		Links: []timetable.Link{
			{Class: "1A", Subject: "Matemática", Teacher: "Ana", WeeklyQuota: 1},
			{Class: "2B", Subject: "Física", Teacher: "Ana", WeeklyQuota: 1},
		},
		Strategy: timetable.StrategyFlagOnConflict,
	}
	res := timetable.Generate(in)
	return TimetableDocument("Escola Modelo", res.Week, res.Grid, []string{"1A", "2B"})
}

func TestTimetableDocument(t *testing.T) {
	doc := sampleDocument(t)

	require.Len(t, doc.Tables, 2)
	assert.Equal(t, []string{"Horário", "Segunda", "Terça"}, doc.Tables[0].Headers)
	assert.Equal(t, []string{"07:00", "Matemática (Ana)", ""}, doc.Tables[0].Rows[0])
	assert.Equal(t, []string{"Intervalo", "INTERVALO", "INTERVALO"}, doc.Tables[0].Rows[1])
	assert.Equal(t, "CONFLITO: Física (Ana)", doc.Tables[1].Rows[0][1])
}

func TestCSVExporter(t *testing.T) {
	data, err := NewCSVExporter().Render(sampleDocument(t))
	require.NoError(t, err)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"1A"}, records[0])
	assert.Equal(t, []string{"Horário", "Segunda", "Terça"}, records[1])
	// the blank separator record is skipped by the reader
	require.Len(t, records, 2*5)
	assert.Equal(t, []string{"2B"}, records[5])
}

func TestPDFExporter(t *testing.T) {
	data, err := NewPDFExporter().Render(sampleDocument(t))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestXLSXExporterOneSheetPerClass(t *testing.T) {
	data, err := NewXLSXExporter().Render(sampleDocument(t))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	assert.Equal(t, []string{"1A", "2B"}, f.GetSheetList())
	value, err := f.GetCellValue("1A", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Matemática (Ana)", value)
}

func TestRendererFor(t *testing.T) {
	for _, format := range []string{"csv", "PDF", "xlsx"} {
		r, err := RendererFor(format)
		require.NoError(t, err)
		assert.NotEmpty(t, r.ContentType())
	}
	_, err := RendererFor("docx")
	assert.Error(t, err)

	_, err = NewCSVExporter().Render(Document{})
	assert.Error(t, err)
}

func TestUniqueSheetName(t *testing.T) {
	used := map[string]int{}
	assert.Equal(t, "1_A", uniqueSheetName("1/A", used))
	assert.Equal(t, "1_A (2)", uniqueSheetName("1:A", used))
	assert.Equal(t, "Turma", uniqueSheetName("  ", used))
	long := uniqueSheetName("Terceiro ano do ensino medio integral", used)
	assert.LessOrEqual(t, len([]rune(long)), maxSheetName)
}
