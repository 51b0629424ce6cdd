package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/noah-isme/sma-timetable-api/pkg/export"
	"github.com/noah-isme/sma-timetable-api/pkg/timetable"
)

const (
	formatText = "text"
	formatCSV  = "csv"
	formatJSON = "json"
)

type jsonReport struct {
	School    string                 `json:"school,omitempty"`
	Strategy  timetable.Strategy     `json:"strategy"`
	Week      timetable.Week         `json:"week"`
	Grid      timetable.Grid         `json:"grid"`
	Residuals []timetable.Residual   `json:"residuals"`
	Allocs    []timetable.Allocation `json:"allocations"`
	Warnings  []string               `json:"warnings,omitempty"`
}

func writeResult(w io.Writer, format string, sf *schoolFile, result timetable.Result, warnings []string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(jsonReport{
			School:    sf.Name,
			Strategy:  result.Strategy,
			Week:      result.Week,
			Grid:      result.Grid,
			Residuals: result.Residuals,
			Allocs:    result.Allocations,
			Warnings:  warnings,
		})
	case formatCSV:
		payload, err := export.NewCSVExporter().Render(document(sf, result))
		if err != nil {
			return err
		}
		_, err = w.Write(payload)
		return err
	case formatText:
		return writeText(w, sf, result, warnings)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func document(sf *schoolFile, result timetable.Result) export.Document {
	title := sf.Name
	if title == "" {
		title = "Horário escolar"
	}
	return export.TimetableDocument(title, result.Week, result.Grid, sf.classNames())
}

func writeText(w io.Writer, sf *schoolFile, result timetable.Result, warnings []string) error {
	doc := document(sf, result)
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	for _, table := range doc.Tables {
		fmt.Fprintf(tw, "== %s ==\n", table.Title)
		fmt.Fprintln(tw, strings.Join(table.Headers, "\t"))
		for _, row := range table.Rows {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	writeReport(w, result, warnings)
	return nil
}

func writeReport(w io.Writer, result timetable.Result, warnings []string) {
	fmt.Fprintf(w, "strategy: %s, placed: %d, unplaced: %d, conflicts: %d\n",
		result.Strategy, result.Placed(), result.Unplaced(), result.Grid.Count(timetable.CellConflict))
	if len(result.Residuals) == 0 {
		fmt.Fprintln(w, "all lessons placed")
	} else {
		fmt.Fprintln(w, "residuals:")
		for _, res := range result.Residuals {
			fmt.Fprintf(w, "  %s %s (%s): %d\n", res.Class, res.Subject, res.Teacher, res.Residual)
		}
	}
	for _, warning := range warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
}
