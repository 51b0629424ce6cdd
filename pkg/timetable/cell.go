package timetable

import (
	"encoding/json"
	"fmt"
)

// CellKind tags the variant held by a Cell.
type CellKind uint8

const (
	CellEmpty CellKind = iota
	CellBreak
	CellLesson
	CellConflict
)

var cellKindNames = map[CellKind]string{
	CellEmpty:    "empty",
	CellBreak:    "break",
	CellLesson:   "lesson",
	CellConflict: "conflict",
}

// String returns the wire name of the kind.
func (k CellKind) String() string {
	if name, ok := cellKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("CellKind(%d)", uint8(k))
}

func parseCellKind(raw string) (CellKind, error) {
	for kind, name := range cellKindNames {
		if name == raw {
			return kind, nil
		}
	}
	return CellEmpty, fmt.Errorf("unknown cell kind %q", raw)
}

// Cell is one grid position. Only the constructors below produce non-empty
// cells, so a break never carries a subject and an empty cell never carries
// a teacher.
type Cell struct {
	kind    CellKind
	subject string
	teacher string
	double  bool
}

// BreakCell returns the placeholder written into break slots.
func BreakCell() Cell { return Cell{kind: CellBreak} }

// LessonCell returns a placed lesson.
func LessonCell(subject, teacher string, double bool) Cell {
	return Cell{kind: CellLesson, subject: subject, teacher: teacher, double: double}
}

// ConflictCell returns a lesson written over a busy teacher.
func ConflictCell(subject, teacher string) Cell {
	return Cell{kind: CellConflict, subject: subject, teacher: teacher}
}

func (c Cell) Kind() CellKind  { return c.kind }
func (c Cell) IsEmpty() bool   { return c.kind == CellEmpty }
func (c Cell) Subject() string { return c.subject }
func (c Cell) Teacher() string { return c.teacher }
func (c Cell) Double() bool    { return c.double }

// String renders the cell the way exports print it.
func (c Cell) String() string {
	switch c.kind {
	case CellBreak:
		return "INTERVALO"
	case CellLesson:
		return fmt.Sprintf("%s (%s)", c.subject, c.teacher)
	case CellConflict:
		return fmt.Sprintf("CONFLITO: %s (%s)", c.subject, c.teacher)
	default:
		return ""
	}
}

type cellJSON struct {
	Kind    string `json:"kind"`
	Subject string `json:"subject,omitempty"`
	Teacher string `json:"teacher,omitempty"`
	Double  bool   `json:"double,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (c Cell) MarshalJSON() ([]byte, error) {
	return json.Marshal(cellJSON{Kind: c.kind.String(), Subject: c.subject, Teacher: c.teacher, Double: c.double})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var raw cellJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	kind, err := parseCellKind(raw.Kind)
	if err != nil {
		return err
	}
	switch kind {
	case CellEmpty:
		*c = Cell{}
	case CellBreak:
		*c = BreakCell()
	case CellLesson:
		if raw.Subject == "" || raw.Teacher == "" {
			return fmt.Errorf("lesson cell requires subject and teacher")
		}
		*c = LessonCell(raw.Subject, raw.Teacher, raw.Double)
	case CellConflict:
		if raw.Subject == "" || raw.Teacher == "" {
			return fmt.Errorf("conflict cell requires subject and teacher")
		}
		*c = ConflictCell(raw.Subject, raw.Teacher)
	}
	return nil
}
