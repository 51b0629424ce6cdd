package timetable

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellJSON(t *testing.T) {
	row := []Cell{{}, BreakCell(), LessonCell("Math", "T1", true), ConflictCell("Art", "T2")}

	payload, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"kind":"empty"},
		{"kind":"break"},
		{"kind":"lesson","subject":"Math","teacher":"T1","double":true},
		{"kind":"conflict","subject":"Art","teacher":"T2"}
	]`, string(payload))

	var decoded []Cell
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, row, decoded)
}

func TestCellUnmarshalRejectsMalformed(t *testing.T) {
	var cell Cell
	assert.Error(t, json.Unmarshal([]byte(`{"kind":"holiday"}`), &cell))
	assert.Error(t, json.Unmarshal([]byte(`{"kind":"lesson","subject":"Math"}`), &cell))
	assert.Error(t, json.Unmarshal([]byte(`{"kind":"conflict","teacher":"T1"}`), &cell))
}

func TestCellBreakCarriesNoLesson(t *testing.T) {
	var cell Cell
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"break","subject":"Math","teacher":"T1","double":true}`), &cell))
	assert.Equal(t, CellBreak, cell.Kind())
	assert.Empty(t, cell.Subject())
	assert.Empty(t, cell.Teacher())
	assert.False(t, cell.Double())
}

func TestCellString(t *testing.T) {
	assert.Equal(t, "", Cell{}.String())
	assert.Equal(t, "INTERVALO", BreakCell().String())
	assert.Equal(t, "Math (T1)", LessonCell("Math", "T1", false).String())
	assert.Equal(t, "CONFLITO: Math (T1)", ConflictCell("Math", "T1").String())
	assert.Equal(t, "lesson", CellLesson.String())
}
