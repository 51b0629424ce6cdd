package timetable

// Grid maps class name to day label to one cell per slot.
type Grid map[string]map[string][]Cell

// NewGrid allocates an empty grid for the classes and writes every break
// slot as a Break cell.
func NewGrid(week Week, classes []Class) Grid {
	grid := make(Grid, len(classes))
	for _, class := range classes {
		days := make(map[string][]Cell, len(week.Days))
		for _, day := range week.Days {
			row := make([]Cell, len(week.Slots))
			for i, slot := range week.Slots {
				if slot.IsBreak {
					row[i] = BreakCell()
				}
			}
			days[day] = row
		}
		grid[class.Name] = days
	}
	return grid
}

// Row returns the cells of a class on a day, or nil when unknown.
func (g Grid) Row(class, day string) []Cell {
	days, ok := g[class]
	if !ok {
		return nil
	}
	return days[day]
}

// Clone returns a deep copy.
func (g Grid) Clone() Grid {
	out := make(Grid, len(g))
	for class, days := range g {
		copied := make(map[string][]Cell, len(days))
		for day, row := range days {
			copied[day] = append([]Cell(nil), row...)
		}
		out[class] = copied
	}
	return out
}

// Count returns how many cells of the given kind exist in the grid.
func (g Grid) Count(kind CellKind) int {
	total := 0
	for _, days := range g {
		for _, row := range days {
			for _, cell := range row {
				if cell.kind == kind {
					total++
				}
			}
		}
	}
	return total
}

// formsTripleRun reports whether writing subject into row[start:start+length]
// would leave three or more consecutive lessons of that subject. Lessons on
// both sides count, so a single directly before a same-subject double is
// rejected too.
func formsTripleRun(row []Cell, start, length int, subject string) bool {
	run := length
	for i := start - 1; i >= 0 && sameSubjectLesson(row[i], subject); i-- {
		run++
	}
	for i := start + length; i < len(row) && sameSubjectLesson(row[i], subject); i++ {
		run++
	}
	return run >= 3
}

func sameSubjectLesson(cell Cell, subject string) bool {
	return cell.kind == CellLesson && cell.subject == subject
}
