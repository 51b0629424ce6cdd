package timetable

import "sort"

// CanonicalDays returns the days in lexicographic order. Output placement
// follows this order regardless of how the caller listed the days.
func CanonicalDays(days []string) []string {
	ordered := append([]string(nil), days...)
	sort.Strings(ordered)
	return ordered
}

// OrderLinks sorts links by descending weekly quota, keeping input order for
// equal quotas.
func OrderLinks(links []Link) []Link {
	ordered := append([]Link(nil), links...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].WeeklyQuota > ordered[j].WeeklyQuota
	})
	return ordered
}
