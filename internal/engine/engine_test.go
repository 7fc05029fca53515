package engine_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/require"

	"shiftline/internal/config"
	"shiftline/internal/db"
	"shiftline/internal/domain"
	"shiftline/internal/engine"
	"shiftline/internal/events"
	"shiftline/internal/migrate"
	"shiftline/internal/repo"
	"shiftline/internal/schedule"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	cfg := config.Default()
	eng := engine.New(conn, cfg)
	eng.Now = func() time.Time { return time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	require.NoError(t, eng.Repo.UpsertConfig(ctx, nil, cfg))
	return testEnv{Engine: eng, Ctx: ctx}
}

func (env testEnv) seedCatalog(t *testing.T) map[string]domain.ShiftPattern {
	t.Helper()
	var seed []engine.PatternCreateOptions
	for _, s := range env.Engine.Config.Patterns.Seed {
		seed = append(seed, engine.PatternCreateOptions{Name: s.Name, Start: s.Start, End: s.End, BreakMinutes: s.BreakMinutes})
	}
	n, err := env.Engine.SeedPatterns(env.Ctx, seed)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	patterns, err := env.Engine.Repo.ListPatterns(env.Ctx)
	require.NoError(t, err)
	byName := map[string]domain.ShiftPattern{}
	for _, p := range patterns {
		byName[p.Name] = p
	}
	return byName
}

func (env testEnv) addWorker(t *testing.T, name, category string) domain.Worker {
	t.Helper()
	w, err := env.Engine.CreateWorker(env.Ctx, engine.WorkerCreateOptions{Name: name, Category: category, ActorID: "tester"})
	require.NoError(t, err)
	return w
}

func date(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func june(t *testing.T) schedule.YearMonth {
	m, err := schedule.ParseYearMonth("2025-06")
	require.NoError(t, err)
	return m
}

func TestSeedPatternsOnlyOnce(t *testing.T) {
	env := newTestEnv(t)
	patterns := env.seedCatalog(t)
	require.InDelta(t, 8, patterns["Early"].WorkHours, 1e-9)
	require.InDelta(t, 5, patterns["Part A"].WorkHours, 1e-9)

	n, err := env.Engine.SeedPatterns(env.Ctx, []engine.PatternCreateOptions{{Name: "Night", Start: "22:00", End: "06:00"}})
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestCreateWorkerValidation(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateWorker(env.Ctx, engine.WorkerCreateOptions{Name: "X", Category: "contractor"})
	require.ErrorIs(t, err, engine.ErrInvalidInput)
	require.ErrorIs(t, err, domain.ErrUnknownCategory)
	_, err = env.Engine.CreateWorker(env.Ctx, engine.WorkerCreateOptions{Name: " ", Category: "ft"})
	require.ErrorIs(t, err, engine.ErrInvalidInput)

	a := env.addWorker(t, "Aiko", "ft")
	b := env.addWorker(t, "Ben", "part-time")
	require.Equal(t, 0, a.Position)
	require.Equal(t, 1, b.Position)
	require.Equal(t, domain.CategoryPartTime, b.Category)

	cat := "full_time"
	b, err = env.Engine.UpdateWorker(env.Ctx, engine.WorkerUpdateOptions{ID: b.ID, Category: &cat})
	require.NoError(t, err)
	require.Equal(t, domain.CategoryFullTime, b.Category)

	ws, err := env.Engine.MoveWorker(env.Ctx, b.ID, 0, "tester")
	require.NoError(t, err)
	require.Equal(t, b.ID, ws[0].ID)
}

func TestGenerateMonthIsIdempotentInCount(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t)
	for i := 0; i < 5; i++ {
		env.addWorker(t, fmt.Sprintf("ft%d", i), "full_time")
	}
	for i := 0; i < 2; i++ {
		env.addWorker(t, fmt.Sprintf("pt%d", i), "part_time")
	}

	first, err := env.Engine.GenerateMonth(env.Ctx, june(t), "tester")
	require.NoError(t, err)
	require.Positive(t, first.Created)
	require.Zero(t, first.Replaced)

	second, err := env.Engine.GenerateMonth(env.Ctx, june(t), "tester")
	require.NoError(t, err)
	require.Equal(t, first.Created, second.Created)
	require.EqualValues(t, first.Created, second.Replaced)

	items, err := env.Engine.Repo.ListAssignments(env.Ctx, repo.AssignmentFilters{})
	require.NoError(t, err)
	require.Len(t, items, second.Created)

	// June 2025 has 4 Wednesdays, 4 Saturdays and 22 other days.
	require.Equal(t, 4*3+4*5+22*4, second.Created)

	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, repo.EventFilters{Type: "month.generated"})
	require.NoError(t, err)
	require.Len(t, evts, 2)
	require.Equal(t, "2025-06", evts[0].EntityID)
}

func TestGenerateMonthRespectsLeave(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t)
	var ft []domain.Worker
	for i := 0; i < 5; i++ {
		ft = append(ft, env.addWorker(t, fmt.Sprintf("ft%d", i), "full_time"))
	}
	_, err := env.Engine.CreateLeaveRequest(env.Ctx, engine.LeaveCreateOptions{WorkerID: ft[0].ID, Date: date("2025-06-10"), Reason: "dentist"})
	require.NoError(t, err)

	_, err = env.Engine.GenerateMonth(env.Ctx, june(t), "tester")
	require.NoError(t, err)

	day, err := env.Engine.Repo.ListAssignments(env.Ctx, repo.AssignmentFilters{
		DateRange: repo.DateRange{From: date("2025-06-10"), To: date("2025-06-10")},
		WorkerID:  ft[0].ID,
	})
	require.NoError(t, err)
	require.Empty(t, day)

	tuesday, err := env.Engine.Repo.ListAssignments(env.Ctx, repo.AssignmentFilters{
		DateRange: repo.DateRange{From: date("2025-06-10"), To: date("2025-06-10")},
	})
	require.NoError(t, err)
	require.Len(t, tuesday, 4)
}

func TestGenerateMonthRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	patterns := env.seedCatalog(t)
	a := env.addWorker(t, "Aiko", "full_time")
	b := env.addWorker(t, "Ben", "part_time")

	_, err := env.Engine.GenerateMonth(env.Ctx, june(t), "tester")
	require.NoError(t, err)

	items, err := env.Engine.Repo.ListAssignments(env.Ctx, repo.AssignmentFilters{
		DateRange: repo.DateRange{From: date("2025-06-02"), To: date("2025-06-02")},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	got := map[string]string{}
	for _, it := range items {
		require.Equal(t, date("2025-06-02"), it.Date)
		require.NotEmpty(t, it.ID)
		got[it.WorkerID] = it.PatternID
	}
	require.Equal(t, map[string]string{a.ID: patterns["Early"].ID, b.ID: patterns["Part B"].ID}, got)
}

func TestGenerateMonthFailsOnUnboundRole(t *testing.T) {
	env := newTestEnv(t)
	patterns := env.seedCatalog(t)
	w := env.addWorker(t, "Aiko", "full_time")
	_, err := env.Engine.AddAssignment(env.Ctx, engine.AssignmentCreateOptions{WorkerID: w.ID, Date: date("2025-06-03"), PatternID: patterns["Late"].ID})
	require.NoError(t, err)
	// Part B is referenced by nothing and can go; the catalog then misses a role.
	require.NoError(t, env.Engine.DeletePattern(env.Ctx, patterns["Part B"].ID, "tester"))

	_, err = env.Engine.GenerateMonth(env.Ctx, june(t), "tester")
	require.ErrorIs(t, err, schedule.ErrRoleUnbound)

	items, err := env.Engine.Repo.ListAssignments(env.Ctx, repo.AssignmentFilters{})
	require.NoError(t, err)
	require.Len(t, items, 1, "failed generation must leave the month untouched")
}

func TestGenerateMonthConcurrentCallsSerialize(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t)
	for i := 0; i < 4; i++ {
		env.addWorker(t, fmt.Sprintf("w%d", i), "full_time")
	}
	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.Engine.GenerateMonth(env.Ctx, june(t), "tester")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	items, err := env.Engine.Repo.ListAssignments(env.Ctx, repo.AssignmentFilters{})
	require.NoError(t, err)
	require.Len(t, items, 4*3+26*4)
}

func TestAddAssignmentWarningsAndDuplicates(t *testing.T) {
	env := newTestEnv(t)
	patterns := env.seedCatalog(t)
	early := patterns["Early"].ID
	var ws []domain.Worker
	for i := 0; i < 4; i++ {
		ws = append(ws, env.addWorker(t, fmt.Sprintf("w%d", i), "full_time"))
	}
	day := date("2025-06-10")
	for i := 0; i < 3; i++ {
		res, err := env.Engine.AddAssignment(env.Ctx, engine.AssignmentCreateOptions{WorkerID: ws[i].ID, Date: day, PatternID: early})
		require.NoError(t, err)
		require.Empty(t, res.Warnings)
	}
	res, err := env.Engine.AddAssignment(env.Ctx, engine.AssignmentCreateOptions{WorkerID: ws[3].ID, Date: day, PatternID: early})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	require.Equal(t, domain.WarnHeadcountCeiling, res.Warnings[0].Code)
	require.Equal(t, "day already has 3 assignments", res.Warnings[0].Message)

	_, err = env.Engine.AddAssignment(env.Ctx, engine.AssignmentCreateOptions{WorkerID: ws[0].ID, Date: day, PatternID: early})
	require.ErrorIs(t, err, engine.ErrDuplicateAssignment)

	_, err = env.Engine.AddAssignment(env.Ctx, engine.AssignmentCreateOptions{WorkerID: "nobody", Date: day, PatternID: early})
	require.ErrorIs(t, err, repo.ErrNotFound)
	_, err = env.Engine.AddAssignment(env.Ctx, engine.AssignmentCreateOptions{WorkerID: ws[0].ID, Date: day.AddDays(1), PatternID: "nope"})
	require.ErrorIs(t, err, repo.ErrNotFound)
	_, err = env.Engine.AddAssignment(env.Ctx, engine.AssignmentCreateOptions{WorkerID: ws[0].ID, PatternID: early})
	require.ErrorIs(t, err, engine.ErrInvalidInput)
}

func TestCheckAssignmentLeaveAndRun(t *testing.T) {
	env := newTestEnv(t)
	patterns := env.seedCatalog(t)
	late := patterns["Late"].ID
	w := env.addWorker(t, "Aiko", "full_time")
	_, err := env.Engine.CreateLeaveRequest(env.Ctx, engine.LeaveCreateOptions{WorkerID: w.ID, Date: date("2025-06-11")})
	require.NoError(t, err)
	for _, d := range []string{"2025-06-10", "2025-06-12"} {
		_, err := env.Engine.AddAssignment(env.Ctx, engine.AssignmentCreateOptions{WorkerID: w.ID, Date: date(d), PatternID: late})
		require.NoError(t, err)
	}

	warnings, err := env.Engine.CheckAssignment(env.Ctx, schedule.Candidate{WorkerID: w.ID, Date: date("2025-06-11"), PatternID: late}, "")
	require.NoError(t, err)
	require.Equal(t, []domain.WarningCode{domain.WarnLeaveConflict, domain.WarnConsecutiveRun}, codes(warnings))

	warnings, err = env.Engine.CheckAssignment(env.Ctx, schedule.Candidate{WorkerID: w.ID, Date: date("2025-06-14"), PatternID: late}, "")
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.NotNil(t, warnings)

	_, err = env.Engine.CheckAssignment(env.Ctx, schedule.Candidate{WorkerID: "ghost", Date: date("2025-06-14"), PatternID: late}, "")
	require.ErrorIs(t, err, repo.ErrNotFound)
}

func TestUpdateAndDeleteAssignment(t *testing.T) {
	env := newTestEnv(t)
	patterns := env.seedCatalog(t)
	a := env.addWorker(t, "Aiko", "full_time")
	b := env.addWorker(t, "Ben", "full_time")
	first, err := env.Engine.AddAssignment(env.Ctx, engine.AssignmentCreateOptions{WorkerID: a.ID, Date: date("2025-06-10"), PatternID: patterns["Early"].ID})
	require.NoError(t, err)
	_, err = env.Engine.AddAssignment(env.Ctx, engine.AssignmentCreateOptions{WorkerID: b.ID, Date: date("2025-06-11"), PatternID: patterns["Early"].ID})
	require.NoError(t, err)

	// Re-saving unchanged must not trip the duplicate rule on itself.
	res, err := env.Engine.UpdateAssignment(env.Ctx, engine.AssignmentUpdateOptions{ID: first.Assignment.ID, PatternID: patterns["Late"].ID})
	require.NoError(t, err)
	require.Equal(t, patterns["Late"].ID, res.Assignment.PatternID)

	_, err = env.Engine.UpdateAssignment(env.Ctx, engine.AssignmentUpdateOptions{ID: first.Assignment.ID, WorkerID: b.ID, Date: date("2025-06-11")})
	require.ErrorIs(t, err, engine.ErrDuplicateAssignment)

	require.ErrorIs(t, env.Engine.DeletePattern(env.Ctx, patterns["Late"].ID, "tester"), engine.ErrPatternInUse)

	require.NoError(t, env.Engine.DeleteAssignment(env.Ctx, first.Assignment.ID, "tester"))
	require.ErrorIs(t, env.Engine.DeleteAssignment(env.Ctx, first.Assignment.ID, "tester"), repo.ErrNotFound)
	_, err = env.Engine.UpdateAssignment(env.Ctx, engine.AssignmentUpdateOptions{ID: "missing"})
	require.ErrorIs(t, err, repo.ErrNotFound)
}

func TestSummaryAndReport(t *testing.T) {
	env := newTestEnv(t)
	patterns := env.seedCatalog(t)
	w := env.addWorker(t, "Aiko", "full_time")
	for _, d := range []string{"2025-06-02", "2025-06-03"} {
		_, err := env.Engine.AddAssignment(env.Ctx, engine.AssignmentCreateOptions{WorkerID: w.ID, Date: date(d), PatternID: patterns["Early"].ID})
		require.NoError(t, err)
	}
	_, err := env.Engine.AddAssignment(env.Ctx, engine.AssignmentCreateOptions{WorkerID: w.ID, Date: date("2025-07-01"), PatternID: patterns["Early"].ID})
	require.NoError(t, err)

	sum, err := env.Engine.Summary(env.Ctx, june(t))
	require.NoError(t, err)
	require.Equal(t, 2, sum[w.ID].DayCount)
	require.InDelta(t, 16, sum[w.ID].TotalHours, 1e-9)

	rep, err := env.Engine.Report(env.Ctx, june(t))
	require.NoError(t, err)
	require.Equal(t, 2, rep.Totals.Days)
	require.Equal(t, []string{"Aiko (Early)"}, rep.Weeks[1].Days[0].Entries)
	require.Len(t, rep.Patterns, 4)
}

func TestUpdatePatternChangesSummaryHours(t *testing.T) {
	env := newTestEnv(t)
	patterns := env.seedCatalog(t)
	early := patterns["Early"]
	w := env.addWorker(t, "Aiko", "full_time")
	for _, d := range []string{"2025-06-02", "2025-06-03"} {
		_, err := env.Engine.AddAssignment(env.Ctx, engine.AssignmentCreateOptions{WorkerID: w.ID, Date: date(d), PatternID: early.ID})
		require.NoError(t, err)
	}
	sum, err := env.Engine.Summary(env.Ctx, june(t))
	require.NoError(t, err)
	require.InDelta(t, 16, sum[w.ID].TotalHours, 1e-9)

	end := "18:00"
	p, err := env.Engine.UpdatePattern(env.Ctx, engine.PatternUpdateOptions{ID: early.ID, End: &end, ActorID: "tester"})
	require.NoError(t, err)
	require.Equal(t, "Early", p.Name)
	require.Equal(t, "07:00", p.Start)
	require.InDelta(t, 10, p.WorkHours, 1e-9)

	sum, err = env.Engine.Summary(env.Ctx, june(t))
	require.NoError(t, err)
	require.Equal(t, 2, sum[w.ID].DayCount)
	require.InDelta(t, 20, sum[w.ID].TotalHours, 1e-9)

	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, repo.EventFilters{Type: events.PatternUpdated})
	require.NoError(t, err)
	require.Len(t, evts, 1)
	require.Equal(t, early.ID, evts[0].EntityID)
	require.Equal(t, "tester", evts[0].ActorID)

	bad := "25:00"
	_, err = env.Engine.UpdatePattern(env.Ctx, engine.PatternUpdateOptions{ID: early.ID, Start: &bad})
	require.ErrorIs(t, err, engine.ErrInvalidInput)
	blank := " "
	_, err = env.Engine.UpdatePattern(env.Ctx, engine.PatternUpdateOptions{ID: early.ID, Name: &blank})
	require.ErrorIs(t, err, engine.ErrInvalidInput)
	_, err = env.Engine.UpdatePattern(env.Ctx, engine.PatternUpdateOptions{ID: "missing", End: &end})
	require.ErrorIs(t, err, repo.ErrNotFound)

	stored, err := env.Engine.Repo.GetPattern(env.Ctx, early.ID)
	require.NoError(t, err)
	require.Equal(t, "18:00", stored.End)
	require.InDelta(t, 10, stored.WorkHours, 1e-9)
}

func TestUpdateLeaveRequestMovesConflict(t *testing.T) {
	env := newTestEnv(t)
	patterns := env.seedCatalog(t)
	late := patterns["Late"].ID
	w := env.addWorker(t, "Aiko", "full_time")
	lr, err := env.Engine.CreateLeaveRequest(env.Ctx, engine.LeaveCreateOptions{WorkerID: w.ID, Date: date("2025-06-11"), Reason: "dentist"})
	require.NoError(t, err)

	moved := date("2025-06-12")
	reason := ""
	lr, err = env.Engine.UpdateLeaveRequest(env.Ctx, engine.LeaveUpdateOptions{ID: lr.ID, Date: &moved, Reason: &reason, ActorID: "tester"})
	require.NoError(t, err)
	require.Equal(t, moved, lr.Date)
	require.Empty(t, lr.Reason)

	stored, err := env.Engine.Repo.GetLeaveRequest(env.Ctx, lr.ID)
	require.NoError(t, err)
	require.Equal(t, moved, stored.Date)
	require.Empty(t, stored.Reason)

	warnings, err := env.Engine.CheckAssignment(env.Ctx, schedule.Candidate{WorkerID: w.ID, Date: date("2025-06-11"), PatternID: late}, "")
	require.NoError(t, err)
	require.Empty(t, warnings)
	warnings, err = env.Engine.CheckAssignment(env.Ctx, schedule.Candidate{WorkerID: w.ID, Date: moved, PatternID: late}, "")
	require.NoError(t, err)
	require.Equal(t, []domain.WarningCode{domain.WarnLeaveConflict}, codes(warnings))

	var zero civil.Date
	_, err = env.Engine.UpdateLeaveRequest(env.Ctx, engine.LeaveUpdateOptions{ID: lr.ID, Date: &zero})
	require.ErrorIs(t, err, engine.ErrInvalidInput)
	_, err = env.Engine.UpdateLeaveRequest(env.Ctx, engine.LeaveUpdateOptions{ID: "missing", Date: &moved})
	require.ErrorIs(t, err, repo.ErrNotFound)
}

func TestUpdateConfigRejectsInvalid(t *testing.T) {
	env := newTestEnv(t)
	cfg := config.Default()
	cfg.Staffing.Baseline = 0
	require.ErrorIs(t, env.Engine.UpdateConfig(env.Ctx, cfg, "tester"), engine.ErrInvalidInput)

	cfg = config.Default()
	cfg.Staffing.Baseline = 2
	require.NoError(t, env.Engine.UpdateConfig(env.Ctx, cfg, "tester"))
	stored, err := env.Engine.Repo.GetConfig(env.Ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stored.Staffing.Baseline)
}

func codes(ws []domain.Warning) []domain.WarningCode {
	res := make([]domain.WarningCode, len(ws))
	for i, w := range ws {
		res[i] = w.Code
	}
	return res
}
