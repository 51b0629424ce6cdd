package export

import (
	"fmt"
	"strings"

	"github.com/noah-isme/sma-timetable-api/pkg/timetable"
)

// Table is one titled block of rows, rendered as a CSV section, a PDF page
// or a spreadsheet sheet.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Document is an ordered set of tables sharing a title.
type Document struct {
	Title  string
	Tables []Table
}

// Renderer turns a Document into file bytes.
type Renderer interface {
	Render(doc Document) ([]byte, error)
	ContentType() string
	Extension() string
}

// Supported export formats.
const (
	FormatCSV  = "csv"
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

// RendererFor resolves a renderer by format name.
func RendererFor(format string) (Renderer, error) {
	switch strings.ToLower(format) {
	case FormatCSV:
		return NewCSVExporter(), nil
	case FormatPDF:
		return NewPDFExporter(), nil
	case FormatXLSX:
		return NewXLSXExporter(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// TimetableDocument lays out a grid as one table per class: slots down the
// side, days across in week order.
func TimetableDocument(title string, week timetable.Week, grid timetable.Grid, classes []string) Document {
	headers := append([]string{"Horário"}, week.Days...)
	doc := Document{Title: title, Tables: make([]Table, 0, len(classes))}
	for _, class := range classes {
		table := Table{Title: class, Headers: headers, Rows: make([][]string, len(week.Slots))}
		for i, slot := range week.Slots {
			row := make([]string, 0, len(headers))
			row = append(row, slot.Label)
			for _, day := range week.Days {
				cells := grid.Row(class, day)
				if i < len(cells) {
					row = append(row, cells[i].String())
				} else {
					row = append(row, "")
				}
			}
			table.Rows[i] = row
		}
		doc.Tables = append(doc.Tables, table)
	}
	return doc
}

func validate(doc Document) error {
	if len(doc.Tables) == 0 {
		return fmt.Errorf("document has no tables")
	}
	for _, table := range doc.Tables {
		if len(table.Headers) == 0 {
			return fmt.Errorf("table %q has no headers", table.Title)
		}
	}
	return nil
}
