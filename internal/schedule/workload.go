package schedule

import "shiftline/internal/domain"

// Summarize totals days and hours per worker. A pattern missing from patterns contributes 0 hours.
func Summarize(assignments []domain.Assignment, patterns []domain.ShiftPattern) map[string]domain.WorkloadSummary {
	hours := make(map[string]float64, len(patterns))
	for _, p := range patterns {
		hours[p.ID] = p.WorkHours
	}
	res := map[string]domain.WorkloadSummary{}
	for _, a := range assignments {
		s := res[a.WorkerID]
		s.DayCount++
		s.TotalHours += hours[a.PatternID]
		res[a.WorkerID] = s
	}
	return res
}
