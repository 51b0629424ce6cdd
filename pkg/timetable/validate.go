package timetable

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoDays          = errors.New("week has no days")
	ErrNoTeachingSlots = errors.New("week has no teaching slots")
	ErrDuplicateDay    = errors.New("duplicate day")
	ErrDuplicateClass  = errors.New("duplicate class")
	ErrUnknownClass    = errors.New("link references unknown class")
	ErrInvalidQuota    = errors.New("weekly quota must be positive")
	ErrInvalidLink     = errors.New("link requires subject and teacher")
	ErrInvalidStrategy = errors.New("unknown strategy")
)

// ValidationError collects every problem found in an Input.
type ValidationError struct {
	Problems []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return "invalid timetable input: " + strings.Join(msgs, "; ")
}

// Unwrap exposes the individual problems to errors.Is.
func (e *ValidationError) Unwrap() []error {
	return e.Problems
}

// Validate checks the preconditions Generate relies on.
func Validate(in Input) error {
	var problems []error

	if len(in.Week.Days) == 0 {
		problems = append(problems, ErrNoDays)
	}
	seenDays := make(map[string]struct{}, len(in.Week.Days))
	for _, day := range in.Week.Days {
		if _, ok := seenDays[day]; ok {
			problems = append(problems, fmt.Errorf("%w: %s", ErrDuplicateDay, day))
		}
		seenDays[day] = struct{}{}
	}
	if in.Week.TeachingSlots() == 0 {
		problems = append(problems, ErrNoTeachingSlots)
	}
	if in.Strategy != "" && !in.Strategy.Valid() {
		problems = append(problems, fmt.Errorf("%w: %s", ErrInvalidStrategy, in.Strategy))
	}

	classes := make(map[string]struct{}, len(in.Classes))
	for _, class := range in.Classes {
		if _, ok := classes[class.Name]; ok {
			problems = append(problems, fmt.Errorf("%w: %s", ErrDuplicateClass, class.Name))
		}
		classes[class.Name] = struct{}{}
	}

	for i, link := range in.Links {
		if _, ok := classes[link.Class]; !ok {
			problems = append(problems, fmt.Errorf("%w: link %d class %q", ErrUnknownClass, i, link.Class))
		}
		if link.WeeklyQuota <= 0 {
			problems = append(problems, fmt.Errorf("%w: link %d (%s/%s)", ErrInvalidQuota, i, link.Class, link.Subject))
		}
		if strings.TrimSpace(link.Subject) == "" || strings.TrimSpace(link.Teacher) == "" {
			problems = append(problems, fmt.Errorf("%w: link %d", ErrInvalidLink, i))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// QualificationWarnings lists links whose teacher is known but does not
// declare the linked subject. Placement ignores qualifications; callers may
// surface these as advisories.
func QualificationWarnings(in Input) []string {
	teachers := make(map[string]Teacher, len(in.Teachers))
	for _, t := range in.Teachers {
		teachers[t.Name] = t
	}
	var warnings []string
	for _, link := range in.Links {
		teacher, ok := teachers[link.Teacher]
		if !ok || len(teacher.Subjects) == 0 || teacher.Teaches(link.Subject) {
			continue
		}
		warnings = append(warnings, fmt.Sprintf("%s is linked to %s for %s but does not list that subject", link.Teacher, link.Class, link.Subject))
	}
	return warnings
}
