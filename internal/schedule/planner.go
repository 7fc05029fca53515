package schedule

import (
	"sort"

	"cloud.google.com/go/civil"

	"shiftline/internal/domain"
)

// Planner picks the workers and patterns for a single day.
type Planner struct {
	Staffing Staffing
	Catalog  Catalog
}

// PlanDay returns assignment drafts (no IDs) for date. Workers on leave are dropped, full-time workers are
// ordered ahead of everyone else (listing order kept within a category) and the first target-many are given a
// pattern by category and selection-index parity. A worker whose role has no catalog pattern is skipped.
func (p Planner) PlanDay(date civil.Date, workers []domain.Worker, leave []domain.LeaveRequest) []domain.Assignment {
	target, open := p.Staffing.Target(Weekday(date))
	if !open || target <= 0 {
		return nil
	}
	onLeave := map[string]bool{}
	for _, lr := range leave {
		if lr.Date == date {
			onLeave[lr.WorkerID] = true
		}
	}
	pool := make([]domain.Worker, 0, len(workers))
	for _, w := range workers {
		if !onLeave[w.ID] {
			pool = append(pool, w)
		}
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].Category.FullTime() && !pool[j].Category.FullTime()
	})
	if target > len(pool) {
		target = len(pool)
	}

	drafts := make([]domain.Assignment, 0, target)
	for i, w := range pool[:target] {
		pattern, ok := p.Catalog[RoleFor(w.Category, i)]
		if !ok {
			continue
		}
		drafts = append(drafts, domain.Assignment{
			WorkerID:  w.ID,
			Date:      date,
			PatternID: pattern.ID,
		})
	}
	return drafts
}

// PlanMonth runs PlanDay over every day of month in ascending order.
func (p Planner) PlanMonth(month YearMonth, workers []domain.Worker, leave []domain.LeaveRequest) []domain.Assignment {
	var drafts []domain.Assignment
	for _, day := range month.Days() {
		drafts = append(drafts, p.PlanDay(day, workers, leave)...)
	}
	return drafts
}
