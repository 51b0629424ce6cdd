package timetable

import "strings"

// DefaultBreakKeywords lists the label fragments that mark a slot as a break.
var DefaultBreakKeywords = []string{"intervalo", "break", "recess"}

// Classifier decides whether a slot label denotes a break period.
type Classifier struct {
	keywords []string
}

// NewClassifier builds a classifier from the given keywords. Matching is a
// case-insensitive substring test. With no usable keyword the defaults apply.
func NewClassifier(keywords ...string) Classifier {
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			normalized = append(normalized, kw)
		}
	}
	if len(normalized) == 0 {
		normalized = append(normalized, DefaultBreakKeywords...)
	}
	return Classifier{keywords: normalized}
}

// IsBreak reports whether label denotes a break.
func (c Classifier) IsBreak(label string) bool {
	keywords := c.keywords
	if len(keywords) == 0 {
		keywords = DefaultBreakKeywords
	}
	lower := strings.ToLower(label)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Keywords returns a copy of the configured keywords.
func (c Classifier) Keywords() []string {
	if len(c.keywords) == 0 {
		return append([]string(nil), DefaultBreakKeywords...)
	}
	return append([]string(nil), c.keywords...)
}

// Slot is a labelled period of the school day.
type Slot struct {
	Label   string `json:"label" yaml:"label"`
	IsBreak bool   `json:"isBreak" yaml:"isBreak"`
}

// Week is the ordered day and slot structure shared by every class.
type Week struct {
	Days  []string `json:"days"`
	Slots []Slot   `json:"slots"`
}

// NewWeek classifies slot labels and returns the resulting week.
func NewWeek(days, slotLabels []string, classifier Classifier) Week {
	week := Week{
		Days:  append([]string(nil), days...),
		Slots: make([]Slot, len(slotLabels)),
	}
	for i, label := range slotLabels {
		week.Slots[i] = Slot{Label: label, IsBreak: classifier.IsBreak(label)}
	}
	return week
}

// TeachingSlots counts the non-break slots of a day.
func (w Week) TeachingSlots() int {
	count := 0
	for _, slot := range w.Slots {
		if !slot.IsBreak {
			count++
		}
	}
	return count
}

// SlotLabels returns the slot labels in order.
func (w Week) SlotLabels() []string {
	labels := make([]string, len(w.Slots))
	for i, slot := range w.Slots {
		labels[i] = slot.Label
	}
	return labels
}
