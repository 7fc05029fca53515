// Package report turns a month snapshot into the three printable tables: the weekly schedule grid, the
// per-worker workload and the pattern catalog.
package report

import (
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/civil"

	"shiftline/internal/domain"
	"shiftline/internal/schedule"
)

type Cell struct {
	Date    string   `json:"date"`
	InMonth bool     `json:"in_month"`
	Entries []string `json:"entries"`
}

type Week struct {
	Days []Cell `json:"days"`
}

type WorkloadRow struct {
	WorkerID   string  `json:"worker_id"`
	Worker     string  `json:"worker"`
	Category   string  `json:"category,omitempty"`
	Days       int     `json:"days"`
	Hours      float64 `json:"hours"`
	Average    float64 `json:"average"`
	LongestRun int     `json:"longest_run"`
}

type PatternRow struct {
	Name         string  `json:"name"`
	Start        string  `json:"start"`
	End          string  `json:"end"`
	BreakMinutes int     `json:"break_minutes"`
	Hours        float64 `json:"hours"`
}

type MonthReport struct {
	Month    string        `json:"month"`
	Weekdays []string      `json:"weekdays"`
	Weeks    []Week        `json:"weeks"`
	Workload []WorkloadRow `json:"workload"`
	Totals   WorkloadRow   `json:"totals"`
	Patterns []PatternRow  `json:"patterns"`
}

// Build lays out month as full weeks starting on weekStart. Cell entries read "<worker> (<pattern>)" in roster
// order. Every worker gets a workload row, idle ones included.
func Build(month schedule.YearMonth, snap schedule.Snapshot, weekStart time.Weekday) MonthReport {
	rep := MonthReport{Month: month.String()}
	for i := 0; i < 7; i++ {
		rep.Weekdays = append(rep.Weekdays, time.Weekday((int(weekStart)+i)%7).String())
	}

	workers := snap.WorkerByID()
	patterns := snap.PatternByID()
	rank := make(map[string]int, len(snap.Workers))
	for i, w := range snap.Workers {
		rank[w.ID] = i
	}
	byDate := map[civil.Date][]domain.Assignment{}
	for _, a := range snap.Assignments {
		byDate[a.Date] = append(byDate[a.Date], a)
	}

	offset := (int(schedule.Weekday(month.First())) - int(weekStart) + 7) % 7
	day := month.First().AddDays(-offset)
	for !day.After(month.Last()) {
		var wk Week
		for i := 0; i < 7; i++ {
			cell := Cell{Date: day.String(), InMonth: month.Contains(day), Entries: []string{}}
			if cell.InMonth {
				items := byDate[day]
				sortByRank(items, rank)
				for _, a := range items {
					cell.Entries = append(cell.Entries, fmt.Sprintf("%s (%s)", workerName(workers, a.WorkerID), patternName(patterns, a.PatternID)))
				}
			}
			wk.Days = append(wk.Days, cell)
			day = day.AddDays(1)
		}
		rep.Weeks = append(rep.Weeks, wk)
	}

	summary := schedule.Summarize(snap.Assignments, snap.Patterns)
	runs := schedule.LongestRun(snap.Assignments)
	listed := map[string]bool{}
	addRow := func(id, name, category string) {
		s := summary[id]
		rep.Workload = append(rep.Workload, WorkloadRow{
			WorkerID:   id,
			Worker:     name,
			Category:   category,
			Days:       s.DayCount,
			Hours:      s.TotalHours,
			Average:    s.AverageHours(),
			LongestRun: runs[id],
		})
		rep.Totals.Days += s.DayCount
		rep.Totals.Hours += s.TotalHours
		if runs[id] > rep.Totals.LongestRun {
			rep.Totals.LongestRun = runs[id]
		}
		listed[id] = true
	}
	for _, w := range snap.Workers {
		addRow(w.ID, w.Name, string(w.Category))
	}
	// Assignments whose worker is gone from the roster still count.
	for _, a := range snap.Assignments {
		if !listed[a.WorkerID] {
			addRow(a.WorkerID, a.WorkerID, "")
		}
	}
	rep.Totals.Worker = "Total"
	rep.Totals.Average = domain.WorkloadSummary{DayCount: rep.Totals.Days, TotalHours: rep.Totals.Hours}.AverageHours()

	for _, p := range snap.Patterns {
		rep.Patterns = append(rep.Patterns, PatternRow{
			Name:         p.Name,
			Start:        p.Start,
			End:          p.End,
			BreakMinutes: p.BreakMinutes,
			Hours:        p.WorkHours,
		})
	}
	return rep
}

func sortByRank(items []domain.Assignment, rank map[string]int) {
	pos := func(id string) int {
		if r, ok := rank[id]; ok {
			return r
		}
		return len(rank)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return pos(items[i].WorkerID) < pos(items[j].WorkerID)
	})
}

func workerName(workers map[string]domain.Worker, id string) string {
	if w, ok := workers[id]; ok {
		return w.Name
	}
	return id
}

func patternName(patterns map[string]domain.ShiftPattern, id string) string {
	if p, ok := patterns[id]; ok {
		return p.Name
	}
	return id
}
