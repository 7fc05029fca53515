package schedule

import "shiftline/internal/domain"

// Snapshot is the store state a planning or reporting call works from. Workers are in listing order.
type Snapshot struct {
	Workers     []domain.Worker
	Patterns    []domain.ShiftPattern
	Leave       []domain.LeaveRequest
	Assignments []domain.Assignment
}

func (s Snapshot) WorkerByID() map[string]domain.Worker {
	res := make(map[string]domain.Worker, len(s.Workers))
	for _, w := range s.Workers {
		res[w.ID] = w
	}
	return res
}

func (s Snapshot) PatternByID() map[string]domain.ShiftPattern {
	res := make(map[string]domain.ShiftPattern, len(s.Patterns))
	for _, p := range s.Patterns {
		res[p.ID] = p
	}
	return res
}
