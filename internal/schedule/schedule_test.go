package schedule_test

import (
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/require"

	"shiftline/internal/domain"
	"shiftline/internal/schedule"
)

func date(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func catalog() (schedule.Catalog, []domain.ShiftPattern) {
	patterns := []domain.ShiftPattern{
		{ID: "E", Name: "Early", Start: "07:00", End: "15:00", WorkHours: 8},
		{ID: "L", Name: "Late", Start: "13:00", End: "21:00", WorkHours: 8},
		{ID: "PA", Name: "Part A", Start: "09:00", End: "13:00", WorkHours: 4},
		{ID: "PB", Name: "Part B", Start: "17:00", End: "21:00", WorkHours: 4},
	}
	cat, err := schedule.ResolveCatalog(map[domain.PatternRole]string{
		domain.RoleEarly: "early",
		domain.RoleLate:  "Late",
		domain.RolePartA: "Part A",
		domain.RolePartB: "part b",
	}, patterns)
	if err != nil {
		panic(err)
	}
	return cat, patterns
}

func workers(n int, category domain.WorkerCategory, prefix string) []domain.Worker {
	res := make([]domain.Worker, n)
	for i := range res {
		res[i] = domain.Worker{ID: fmt.Sprintf("%s%d", prefix, i), Name: fmt.Sprintf("%s %d", prefix, i), Category: category, Position: i}
	}
	return res
}

func TestParseYearMonth(t *testing.T) {
	m, err := schedule.ParseYearMonth("2024-02")
	require.NoError(t, err)
	require.Equal(t, date("2024-02-01"), m.First())
	require.Equal(t, date("2024-02-29"), m.Last())
	require.Len(t, m.Days(), 29)
	require.Equal(t, "2024-02", m.String())
	require.True(t, m.Contains(date("2024-02-10")))
	require.False(t, m.Contains(date("2024-03-01")))

	_, err = schedule.ParseYearMonth("2024-13")
	require.ErrorIs(t, err, schedule.ErrInvalidMonth)
	_, err = schedule.ParseYearMonth("June")
	require.ErrorIs(t, err, schedule.ErrInvalidMonth)
}

func TestStaffingTarget(t *testing.T) {
	s := schedule.Staffing{
		Baseline:  4,
		Overrides: map[time.Weekday]int{time.Wednesday: 3, time.Saturday: 5},
		Closed:    map[time.Weekday]bool{time.Sunday: true},
	}
	n, open := s.Target(time.Monday)
	require.True(t, open)
	require.Equal(t, 4, n)
	n, _ = s.Target(time.Wednesday)
	require.Equal(t, 3, n)
	n, _ = s.Target(time.Saturday)
	require.Equal(t, 5, n)
	_, open = s.Target(time.Sunday)
	require.False(t, open)

	n, _ = schedule.Staffing{}.Target(time.Tuesday)
	require.Equal(t, schedule.DefaultBaseline, n)
}

func TestResolveCatalogReportsUnboundRoles(t *testing.T) {
	_, patterns := catalog()
	_, err := schedule.ResolveCatalog(map[domain.PatternRole]string{
		domain.RoleEarly: "Early",
		domain.RoleLate:  "Night",
	}, patterns)
	require.ErrorIs(t, err, schedule.ErrRoleUnbound)
	require.Contains(t, err.Error(), `"Night"`)
	require.Contains(t, err.Error(), "part_a")

	partial := schedule.ResolveCatalogPartial(map[domain.PatternRole]string{domain.RoleEarly: "Early"}, patterns)
	require.Len(t, partial, 1)
	require.Equal(t, "E", partial[domain.RoleEarly].ID)
}

func TestCheckLeaveConflict(t *testing.T) {
	leave := []domain.LeaveRequest{{ID: "lr1", WorkerID: "w1", Date: date("2025-06-10")}}
	c := schedule.Checker{}

	got := c.Check(schedule.Candidate{WorkerID: "w1", Date: date("2025-06-10"), PatternID: "E"}, "", nil, leave)
	require.Equal(t, []domain.Warning{{Code: domain.WarnLeaveConflict, Message: "leave requested for this date"}}, got)

	require.Empty(t, c.Check(schedule.Candidate{WorkerID: "w2", Date: date("2025-06-10")}, "", nil, leave))
	require.Empty(t, c.Check(schedule.Candidate{WorkerID: "w1", Date: date("2025-06-11")}, "", nil, leave))
}

func TestCheckHeadcountCeiling(t *testing.T) {
	day := date("2025-06-10")
	existing := []domain.Assignment{
		{ID: "a1", WorkerID: "w1", Date: day, PatternID: "E"},
		{ID: "a2", WorkerID: "w2", Date: day, PatternID: "L"},
		{ID: "a3", WorkerID: "w3", Date: day, PatternID: "E"},
	}
	c := schedule.Checker{}

	got := c.Check(schedule.Candidate{WorkerID: "w4", Date: day, PatternID: "L"}, "", existing, nil)
	require.Len(t, got, 1)
	require.Equal(t, domain.WarnHeadcountCeiling, got[0].Code)
	require.Equal(t, "day already has 3 assignments", got[0].Message)

	// Editing one of the three in place does not count itself.
	require.Empty(t, c.Check(schedule.Candidate{WorkerID: "w3", Date: day, PatternID: "L"}, "a3", existing, nil))

	require.Empty(t, schedule.Checker{DailyCeiling: 4}.Check(schedule.Candidate{WorkerID: "w4", Date: day}, "", existing, nil))
}

func TestCheckConsecutiveRun(t *testing.T) {
	existing := []domain.Assignment{
		{ID: "a1", WorkerID: "w1", Date: date("2025-06-09"), PatternID: "E"},
		{ID: "a2", WorkerID: "w1", Date: date("2025-06-11"), PatternID: "E"},
		{ID: "a3", WorkerID: "w2", Date: date("2025-06-13"), PatternID: "E"},
	}
	c := schedule.Checker{}

	got := c.Check(schedule.Candidate{WorkerID: "w1", Date: date("2025-06-10")}, "", existing, nil)
	require.Equal(t, []domain.Warning{{Code: domain.WarnConsecutiveRun, Message: "this creates a 3-day consecutive run"}}, got)

	// N+2: only N+1 is occupied, N+3 is free.
	require.Empty(t, c.Check(schedule.Candidate{WorkerID: "w1", Date: date("2025-06-12")}, "", existing, nil))

	// Another worker's neighbours do not count.
	require.Empty(t, c.Check(schedule.Candidate{WorkerID: "w2", Date: date("2025-06-10")}, "", existing, nil))

	// Moving a1 itself onto the 10th leaves only one neighbour.
	require.Empty(t, c.Check(schedule.Candidate{WorkerID: "w1", Date: date("2025-06-10")}, "a1", existing, nil))
}

func TestCheckAllWarningsInOrder(t *testing.T) {
	day := date("2025-06-10")
	existing := []domain.Assignment{
		{ID: "a1", WorkerID: "w2", Date: day},
		{ID: "a2", WorkerID: "w3", Date: day},
		{ID: "a3", WorkerID: "w4", Date: day},
		{ID: "a4", WorkerID: "w1", Date: day.AddDays(-1)},
		{ID: "a5", WorkerID: "w1", Date: day.AddDays(1)},
	}
	leave := []domain.LeaveRequest{{WorkerID: "w1", Date: day}, {WorkerID: "w1", Date: day}}
	got := schedule.Checker{}.Check(schedule.Candidate{WorkerID: "w1", Date: day, PatternID: "E"}, "", existing, leave)
	require.Len(t, got, 3)
	require.Equal(t, domain.WarnLeaveConflict, got[0].Code)
	require.Equal(t, domain.WarnHeadcountCeiling, got[1].Code)
	require.Equal(t, domain.WarnConsecutiveRun, got[2].Code)
}

func TestLongestRun(t *testing.T) {
	as := []domain.Assignment{
		{WorkerID: "w1", Date: date("2025-06-01")},
		{WorkerID: "w1", Date: date("2025-06-02")},
		{WorkerID: "w1", Date: date("2025-06-03")},
		{WorkerID: "w1", Date: date("2025-06-04")},
		{WorkerID: "w1", Date: date("2025-06-06")},
		{WorkerID: "w2", Date: date("2025-06-30")},
		{WorkerID: "w2", Date: date("2025-07-01")},
	}
	require.Equal(t, map[string]int{"w1": 4, "w2": 2}, schedule.LongestRun(as))
}

func TestPlanDayFullTimeAlternation(t *testing.T) {
	cat, _ := catalog()
	p := schedule.Planner{Staffing: schedule.Staffing{Baseline: 4}, Catalog: cat}
	ws := workers(5, domain.CategoryFullTime, "ft")

	drafts := p.PlanDay(date("2025-06-10"), ws, nil)
	require.Len(t, drafts, 4)
	for i, d := range drafts {
		require.Equal(t, ws[i].ID, d.WorkerID)
		require.Equal(t, date("2025-06-10"), d.Date)
		require.Empty(t, d.ID)
	}
	require.Equal(t, []string{"E", "L", "E", "L"}, patternIDs(drafts))
}

func TestPlanDayOrdersFullTimeFirst(t *testing.T) {
	cat, _ := catalog()
	p := schedule.Planner{Staffing: schedule.Staffing{Baseline: 4}, Catalog: cat}
	ws := []domain.Worker{
		{ID: "p0", Category: domain.CategoryPartTime},
		{ID: "f0", Category: domain.CategoryFullTime},
		{ID: "p1", Category: domain.CategoryPartTime},
		{ID: "f1", Category: domain.CategoryFullTime},
		{ID: "p2", Category: domain.CategoryPartTime},
	}
	drafts := p.PlanDay(date("2025-06-10"), ws, nil)
	require.Equal(t, []string{"f0", "f1", "p0", "p1"}, workerIDs(drafts))
	require.Equal(t, []string{"E", "L", "PA", "PB"}, patternIDs(drafts))
}

func TestPlanDaySkipsLeaveAndCapsAtPool(t *testing.T) {
	cat, _ := catalog()
	p := schedule.Planner{Staffing: schedule.Staffing{Baseline: 4}, Catalog: cat}
	ws := workers(3, domain.CategoryFullTime, "ft")
	leave := []domain.LeaveRequest{
		{WorkerID: "ft1", Date: date("2025-06-10")},
		{WorkerID: "ft2", Date: date("2025-06-11")},
	}
	drafts := p.PlanDay(date("2025-06-10"), ws, leave)
	require.Equal(t, []string{"ft0", "ft2"}, workerIDs(drafts))
	require.Equal(t, []string{"E", "L"}, patternIDs(drafts))
}

func TestPlanDayClosedDayAndMissingRole(t *testing.T) {
	cat, patterns := catalog()
	ws := workers(4, domain.CategoryPartTime, "pt")

	closed := schedule.Planner{
		Staffing: schedule.Staffing{Baseline: 4, Closed: map[time.Weekday]bool{time.Sunday: true}},
		Catalog:  cat,
	}
	require.Empty(t, closed.PlanDay(date("2025-06-08"), ws, nil)) // a Sunday

	partial := schedule.ResolveCatalogPartial(map[domain.PatternRole]string{domain.RolePartA: "Part A"}, patterns)
	p := schedule.Planner{Staffing: schedule.Staffing{Baseline: 4}, Catalog: partial}
	drafts := p.PlanDay(date("2025-06-10"), ws, nil)
	require.Equal(t, []string{"pt0", "pt2"}, workerIDs(drafts))
	require.Equal(t, []string{"PA", "PA"}, patternIDs(drafts))
}

func TestPlanMonthHonoursLeave(t *testing.T) {
	cat, _ := catalog()
	p := schedule.Planner{Staffing: schedule.Staffing{Baseline: 2}, Catalog: cat}
	ws := workers(3, domain.CategoryFullTime, "ft")
	leave := []domain.LeaveRequest{{WorkerID: "ft0", Date: date("2025-06-10")}}

	month, err := schedule.ParseYearMonth("2025-06")
	require.NoError(t, err)
	drafts := p.PlanMonth(month, ws, leave)
	require.Len(t, drafts, 60)
	for _, d := range drafts {
		require.True(t, month.Contains(d.Date))
		if d.Date == date("2025-06-10") {
			require.NotEqual(t, "ft0", d.WorkerID)
		}
	}
	for i := 1; i < len(drafts); i++ {
		require.False(t, drafts[i].Date.Before(drafts[i-1].Date))
	}
}

func TestSummarize(t *testing.T) {
	_, patterns := catalog()
	require.Empty(t, schedule.Summarize(nil, patterns))

	got := schedule.Summarize([]domain.Assignment{{WorkerID: "w1", PatternID: "E"}}, patterns)
	require.Equal(t, map[string]domain.WorkloadSummary{"w1": {DayCount: 1, TotalHours: 8}}, got)

	got = schedule.Summarize([]domain.Assignment{
		{WorkerID: "w1", PatternID: "E"},
		{WorkerID: "w1", PatternID: "PA"},
		{WorkerID: "w1", PatternID: "unknown"},
	}, patterns)
	require.Equal(t, 3, got["w1"].DayCount)
	require.InDelta(t, 12.0, got["w1"].TotalHours, 1e-9)
	require.InDelta(t, 4.0, got["w1"].AverageHours(), 1e-9)
	require.Zero(t, domain.WorkloadSummary{}.AverageHours())
}

func patternIDs(as []domain.Assignment) []string {
	res := make([]string, len(as))
	for i, a := range as {
		res[i] = a.PatternID
	}
	return res
}

func workerIDs(as []domain.Assignment) []string {
	res := make([]string, len(as))
	for i, a := range as {
		res[i] = a.WorkerID
	}
	return res
}
