package timetable

type ledgerKey struct {
	day  string
	slot int
}

// Ledger records which teachers are committed at each (day, slot) during a
// single generation run. Commitments are never removed.
type Ledger struct {
	busy map[ledgerKey]map[string]struct{}
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{busy: make(map[ledgerKey]map[string]struct{})}
}

// IsBusy reports whether teacher is already committed at day/slot.
func (l *Ledger) IsBusy(day string, slot int, teacher string) bool {
	teachers, ok := l.busy[ledgerKey{day: day, slot: slot}]
	if !ok {
		return false
	}
	_, busy := teachers[teacher]
	return busy
}

// Occupy commits teacher at day/slot. Repeated calls are no-ops.
func (l *Ledger) Occupy(day string, slot int, teacher string) {
	key := ledgerKey{day: day, slot: slot}
	teachers, ok := l.busy[key]
	if !ok {
		teachers = make(map[string]struct{})
		l.busy[key] = teachers
	}
	teachers[teacher] = struct{}{}
}

// Load returns the number of slots teacher is committed to across the week.
func (l *Ledger) Load(teacher string) int {
	total := 0
	for _, teachers := range l.busy {
		if _, ok := teachers[teacher]; ok {
			total++
		}
	}
	return total
}
