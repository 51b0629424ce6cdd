package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSchool = `name: Escola Modelo
days: [Segunda, Terça]
slots: ["07:00", Intervalo, "08:00"]
teachers:
  - name: Ana
    subjects: [Matematica]
  - name: Bruno
    subjects: [Historia]
classes:
  - name: 1A
    links:
      - {subject: Matematica, teacher: Ana, weekly: 2}
      - {subject: Artes, teacher: Bruno, weekly: 1}
`

func writeSchool(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "school.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGenerateText(t *testing.T) {
	path := writeSchool(t, sampleSchool)
	out, err := execute(t, "generate", "--file", path)
	require.NoError(t, err)

	assert.Contains(t, out, "== 1A ==")
	assert.Contains(t, out, "Matematica (Ana)")
	assert.Contains(t, out, "INTERVALO")
	assert.Contains(t, out, "all lessons placed")
	assert.Contains(t, out, "warning: Bruno is linked to 1A for Artes")
}

func TestGenerateJSONReportsResiduals(t *testing.T) {
	path := writeSchool(t, strings.Replace(sampleSchool, "weekly: 2", "weekly: 5", 1))
	out, err := execute(t, "generate", "-f", path, "-o", "json")
	require.NoError(t, err)

	var report jsonReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "Escola Modelo", report.School)
	require.Len(t, report.Residuals, 1)
	assert.Equal(t, "Matematica", report.Residuals[0].Subject)
	assert.Positive(t, report.Residuals[0].Residual)
	assert.Equal(t, []string{"Segunda", "Terça"}, report.Week.Days)
}

func TestGenerateCSV(t *testing.T) {
	path := writeSchool(t, sampleSchool)
	out, err := execute(t, "generate", "-f", path, "--format", "csv", "--strategy", "flag-on-conflict")
	require.NoError(t, err)
	assert.Contains(t, out, "Intervalo,INTERVALO,INTERVALO")
}

func TestGenerateRejectsUnknownOptions(t *testing.T) {
	path := writeSchool(t, sampleSchool)
	_, err := execute(t, "generate", "-f", path, "--strategy", "random")
	assert.ErrorContains(t, err, "unknown strategy")

	_, err = execute(t, "generate", "-f", path, "-o", "xml")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestValidate(t *testing.T) {
	path := writeSchool(t, sampleSchool)
	out, err := execute(t, "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1 classes, 2 links, 2 teaching slots per day")

	bad := writeSchool(t, strings.Replace(sampleSchool, "weekly: 1", "weekly: 0", 1))
	_, err = execute(t, "validate", "-f", bad)
	assert.ErrorContains(t, err, "school file is invalid")

	unknown := writeSchool(t, sampleSchool+"rooms: 3\n")
	_, err = execute(t, "validate", "-f", unknown)
	assert.ErrorContains(t, err, "decode school file")
}
