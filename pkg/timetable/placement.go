package timetable

// PlaceDoubles runs phase 1. For every allocation it places floor(remaining/2)
// adjacent pairs first-fit, moving to the next day only once the current day
// has no eligible pair left. grid and ledger are updated in place; the
// returned allocations reflect what was placed.
func PlaceDoubles(grid Grid, ledger *Ledger, week Week, days []string, allocs []Allocation) []Allocation {
	out := append([]Allocation(nil), allocs...)
	for idx := range out {
		a := &out[idx]
		pairs := a.Remaining() / 2
		for _, day := range days {
			if pairs == 0 {
				break
			}
			row := grid.Row(a.Class, day)
			for i := 0; i+1 < len(row) && pairs > 0; i++ {
				if !pairEligible(row, ledger, week, day, i, a) {
					continue
				}
				row[i] = LessonCell(a.Subject, a.Teacher, true)
				row[i+1] = LessonCell(a.Subject, a.Teacher, true)
				ledger.Occupy(day, i, a.Teacher)
				ledger.Occupy(day, i+1, a.Teacher)
				a.Placed += 2
				a.Doubles++
				pairs--
				i++
			}
		}
	}
	return out
}

func pairEligible(row []Cell, ledger *Ledger, week Week, day string, i int, a *Allocation) bool {
	for _, slot := range []int{i, i + 1} {
		if week.Slots[slot].IsBreak || !row[slot].IsEmpty() {
			return false
		}
		if ledger.IsBusy(day, slot, a.Teacher) {
			return false
		}
	}
	return !formsTripleRun(row, i, 2, a.Subject)
}

// PlaceSingles runs phase 2. Each allocation with remaining demand takes at
// most one slot per day, the first eligible one in slot order. Demand left
// after the last day becomes residual even when a day still has free,
// eligible slots.
func PlaceSingles(grid Grid, ledger *Ledger, week Week, days []string, allocs []Allocation) []Allocation {
	out := append([]Allocation(nil), allocs...)
	for idx := range out {
		a := &out[idx]
		for _, day := range days {
			if a.Remaining() <= 0 {
				break
			}
			row := grid.Row(a.Class, day)
			slot := firstSingleSlot(row, ledger, week, day, a)
			if slot < 0 {
				continue
			}
			row[slot] = LessonCell(a.Subject, a.Teacher, false)
			ledger.Occupy(day, slot, a.Teacher)
			a.Placed++
			a.Singles++
		}
	}
	return out
}

func firstSingleSlot(row []Cell, ledger *Ledger, week Week, day string, a *Allocation) int {
	for i := range row {
		if week.Slots[i].IsBreak || !row[i].IsEmpty() {
			continue
		}
		if ledger.IsBusy(day, i, a.Teacher) {
			continue
		}
		if formsTripleRun(row, i, 1, a.Subject) {
			continue
		}
		return i
	}
	return -1
}

// PlaceFlagging is the single-pass alternative. Every unit of demand takes
// the first empty teaching slot; a busy teacher turns the cell into a
// Conflict instead of skipping it. Conflicts consume demand and still mark
// the teacher busy.
func PlaceFlagging(grid Grid, ledger *Ledger, week Week, days []string, allocs []Allocation) []Allocation {
	out := append([]Allocation(nil), allocs...)
	for idx := range out {
		a := &out[idx]
	days:
		for _, day := range days {
			row := grid.Row(a.Class, day)
			for i := range row {
				if a.Remaining() <= 0 {
					break days
				}
				if week.Slots[i].IsBreak || !row[i].IsEmpty() {
					continue
				}
				if ledger.IsBusy(day, i, a.Teacher) {
					row[i] = ConflictCell(a.Subject, a.Teacher)
					a.Conflicts++
				} else {
					row[i] = LessonCell(a.Subject, a.Teacher, false)
					a.Singles++
				}
				ledger.Occupy(day, i, a.Teacher)
				a.Placed++
			}
		}
	}
	return out
}

// Residuals collects every allocation with unmet demand.
func Residuals(allocs []Allocation) []Residual {
	residuals := make([]Residual, 0)
	for _, a := range allocs {
		if a.Remaining() > 0 {
			residuals = append(residuals, Residual{
				Class:    a.Class,
				Subject:  a.Subject,
				Teacher:  a.Teacher,
				Residual: a.Remaining(),
			})
		}
	}
	return residuals
}
