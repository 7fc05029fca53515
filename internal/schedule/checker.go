package schedule

import (
	"fmt"

	"cloud.google.com/go/civil"

	"shiftline/internal/domain"
)

// DefaultDailyCeiling is the number of assignments a day may hold before the headcount warning fires.
const DefaultDailyCeiling = 3

// Candidate is a proposed (worker, date, pattern) triple, either new or an edit of an existing assignment.
type Candidate struct {
	WorkerID  string
	Date      civil.Date
	PatternID string
}

// Checker evaluates advisory rules against a snapshot of assignments and leave requests.
type Checker struct {
	DailyCeiling int
}

func (c Checker) ceiling() int {
	if c.DailyCeiling <= 0 {
		return DefaultDailyCeiling
	}
	return c.DailyCeiling
}

// Check returns warnings in rule order: leave conflict, headcount ceiling, consecutive run.
// excludeID is the assignment being edited; it never counts against itself. Unknown ids simply match nothing.
func (c Checker) Check(cand Candidate, excludeID string, assignments []domain.Assignment, leave []domain.LeaveRequest) []domain.Warning {
	var warnings []domain.Warning

	for _, lr := range leave {
		if lr.WorkerID == cand.WorkerID && lr.Date == cand.Date {
			warnings = append(warnings, domain.Warning{
				Code:    domain.WarnLeaveConflict,
				Message: "leave requested for this date",
			})
			break
		}
	}

	sameDay := 0
	prev, next := cand.Date.AddDays(-1), cand.Date.AddDays(1)
	var hasPrev, hasNext bool
	for _, a := range assignments {
		if excludeID != "" && a.ID == excludeID {
			continue
		}
		if a.Date == cand.Date {
			sameDay++
		}
		if a.WorkerID != cand.WorkerID {
			continue
		}
		switch a.Date {
		case prev:
			hasPrev = true
		case next:
			hasNext = true
		}
	}
	if sameDay >= c.ceiling() {
		warnings = append(warnings, domain.Warning{
			Code:    domain.WarnHeadcountCeiling,
			Message: fmt.Sprintf("day already has %d assignments", sameDay),
		})
	}
	// Only the immediate neighbours are inspected.
	if hasPrev && hasNext {
		warnings = append(warnings, domain.Warning{
			Code:    domain.WarnConsecutiveRun,
			Message: "this creates a 3-day consecutive run",
		})
	}
	return warnings
}

// LongestRun returns the longest streak of consecutive dates each worker holds in assignments.
func LongestRun(assignments []domain.Assignment) map[string]int {
	dates := map[string]map[civil.Date]bool{}
	for _, a := range assignments {
		if dates[a.WorkerID] == nil {
			dates[a.WorkerID] = map[civil.Date]bool{}
		}
		dates[a.WorkerID][a.Date] = true
	}
	res := make(map[string]int, len(dates))
	for worker, set := range dates {
		best := 0
		for d := range set {
			if set[d.AddDays(-1)] {
				continue
			}
			n := 1
			for set[d.AddDays(n)] {
				n++
			}
			if n > best {
				best = n
			}
		}
		res[worker] = best
	}
	return res
}
