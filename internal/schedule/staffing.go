package schedule

import "time"

// DefaultBaseline is the headcount target on days without an override.
const DefaultBaseline = 4

// Staffing decides how many workers a day wants. It depends on the weekday only.
type Staffing struct {
	Baseline  int
	Overrides map[time.Weekday]int
	Closed    map[time.Weekday]bool
}

// Target returns the headcount for a weekday and whether the day is planned at all.
func (s Staffing) Target(wd time.Weekday) (int, bool) {
	if s.Closed[wd] {
		return 0, false
	}
	if n, ok := s.Overrides[wd]; ok {
		return n, true
	}
	if s.Baseline <= 0 {
		return DefaultBaseline, true
	}
	return s.Baseline, true
}
