package timetable

// Strategy selects the placement policy for a run.
type Strategy string

const (
	// StrategySkipOnConflict runs double-block then single placement and
	// never double-books a teacher.
	StrategySkipOnConflict Strategy = "skip-on-conflict"
	// StrategyFlagOnConflict places every unit first-fit and marks
	// double-booked cells as conflicts.
	StrategyFlagOnConflict Strategy = "flag-on-conflict"
)

// Valid reports whether s names a known strategy.
func (s Strategy) Valid() bool {
	return s == StrategySkipOnConflict || s == StrategyFlagOnConflict
}

// Teacher is informational input; subjects are not enforced during placement.
type Teacher struct {
	Name     string   `json:"name" yaml:"name"`
	Subjects []string `json:"subjects" yaml:"subjects"`
}

// Teaches reports whether subject is listed for the teacher.
func (t Teacher) Teaches(subject string) bool {
	for _, s := range t.Subjects {
		if s == subject {
			return true
		}
	}
	return false
}

// Class identifies a grid owner.
type Class struct {
	Name string `json:"name" yaml:"name"`
}

// Link is a weekly demand of lessons of a subject taught by a teacher to a class.
type Link struct {
	Class       string `json:"class" yaml:"class"`
	Subject     string `json:"subject" yaml:"subject"`
	Teacher     string `json:"teacher" yaml:"teacher"`
	WeeklyQuota int    `json:"weeklyQuota" yaml:"weekly"`
}

// Input is everything a generation run needs.
type Input struct {
	Week     Week
	Teachers []Teacher
	Classes  []Class
	Links    []Link
	Strategy Strategy
}

// Allocation tracks how much of a link's quota a run placed.
type Allocation struct {
	Class     string `json:"class"`
	Subject   string `json:"subject"`
	Teacher   string `json:"teacher"`
	Quota     int    `json:"quota"`
	Placed    int    `json:"placed"`
	Doubles   int    `json:"doubles"`
	Singles   int    `json:"singles"`
	Conflicts int    `json:"conflicts"`
}

// Remaining is the quota not yet placed.
func (a Allocation) Remaining() int {
	return a.Quota - a.Placed
}

// Residual is the unmet demand of a link after a run.
type Residual struct {
	Class    string `json:"class"`
	Subject  string `json:"subject"`
	Teacher  string `json:"teacher"`
	Residual int    `json:"residual"`
}

// Result is the outcome of a run.
type Result struct {
	Strategy    Strategy     `json:"strategy"`
	Week        Week         `json:"week"`
	Grid        Grid         `json:"grid"`
	Allocations []Allocation `json:"allocations"`
	Residuals   []Residual   `json:"residuals"`
	Ledger      *Ledger      `json:"-"`
}

// Placed returns the total number of units placed across all links.
func (r Result) Placed() int {
	total := 0
	for _, a := range r.Allocations {
		total += a.Placed
	}
	return total
}

// Unplaced returns the total residual across all links.
func (r Result) Unplaced() int {
	total := 0
	for _, res := range r.Residuals {
		total += res.Residual
	}
	return total
}

func newAllocations(links []Link) []Allocation {
	allocs := make([]Allocation, len(links))
	for i, link := range links {
		allocs[i] = Allocation{
			Class:   link.Class,
			Subject: link.Subject,
			Teacher: link.Teacher,
			Quota:   link.WeeklyQuota,
		}
	}
	return allocs
}
