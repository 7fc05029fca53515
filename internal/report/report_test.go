package report_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"shiftline/internal/domain"
	"shiftline/internal/report"
	"shiftline/internal/schedule"
)

func date(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func juneSnapshot() schedule.Snapshot {
	return schedule.Snapshot{
		Workers: []domain.Worker{
			{ID: "w1", Name: "Aiko", Category: domain.CategoryFullTime},
			{ID: "w2", Name: "Ben", Category: domain.CategoryPartTime},
			{ID: "w3", Name: "Chen", Category: domain.CategoryFullTime},
		},
		Patterns: []domain.ShiftPattern{
			{ID: "E", Name: "Early", Start: "07:00", End: "16:00", BreakMinutes: 60, WorkHours: 8},
			{ID: "PA", Name: "Part A", Start: "09:00", End: "14:00", WorkHours: 5},
		},
		Assignments: []domain.Assignment{
			{ID: "a1", WorkerID: "w2", Date: date("2025-06-02"), PatternID: "PA"},
			{ID: "a2", WorkerID: "w1", Date: date("2025-06-02"), PatternID: "E"},
			{ID: "a3", WorkerID: "w1", Date: date("2025-06-03"), PatternID: "E"},
			{ID: "a4", WorkerID: "w1", Date: date("2025-06-04"), PatternID: "E"},
			{ID: "a5", WorkerID: "gone", Date: date("2025-06-30"), PatternID: "X"},
		},
	}
}

func TestBuildGrid(t *testing.T) {
	month, err := schedule.ParseYearMonth("2025-06")
	require.NoError(t, err)
	rep := report.Build(month, juneSnapshot(), time.Monday)

	require.Equal(t, "2025-06", rep.Month)
	require.Equal(t, []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}, rep.Weekdays)
	// June 2025 starts on a Sunday and ends on a Monday: 26 May .. 6 Jul.
	require.Len(t, rep.Weeks, 6)
	first := rep.Weeks[0].Days
	require.Equal(t, "2025-05-26", first[0].Date)
	require.False(t, first[0].InMonth)
	require.Equal(t, "2025-06-01", first[6].Date)
	require.True(t, first[6].InMonth)
	require.Empty(t, first[6].Entries)

	mon := rep.Weeks[1].Days[0]
	require.Equal(t, "2025-06-02", mon.Date)
	require.Equal(t, []string{"Aiko (Early)", "Ben (Part A)"}, mon.Entries)

	last := rep.Weeks[5].Days[0]
	require.Equal(t, "2025-06-30", last.Date)
	require.Equal(t, []string{"gone (X)"}, last.Entries)
}

func TestBuildWeekStartSunday(t *testing.T) {
	month, err := schedule.ParseYearMonth("2025-06")
	require.NoError(t, err)
	rep := report.Build(month, schedule.Snapshot{}, time.Sunday)
	require.Equal(t, "Sunday", rep.Weekdays[0])
	require.Len(t, rep.Weeks, 5)
	require.Equal(t, "2025-06-01", rep.Weeks[0].Days[0].Date)
	require.Empty(t, rep.Workload)
	require.Zero(t, rep.Totals.Average)
}

func TestBuildWorkload(t *testing.T) {
	month, err := schedule.ParseYearMonth("2025-06")
	require.NoError(t, err)
	rep := report.Build(month, juneSnapshot(), time.Monday)

	require.Len(t, rep.Workload, 4)
	aiko := rep.Workload[0]
	require.Equal(t, "Aiko", aiko.Worker)
	require.Equal(t, 3, aiko.Days)
	require.InDelta(t, 24, aiko.Hours, 1e-9)
	require.InDelta(t, 8, aiko.Average, 1e-9)
	require.Equal(t, 3, aiko.LongestRun)

	chen := rep.Workload[2]
	require.Equal(t, "Chen", chen.Worker)
	require.Zero(t, chen.Days)
	require.Zero(t, chen.Average)

	orphan := rep.Workload[3]
	require.Equal(t, "gone", orphan.Worker)
	require.Equal(t, 1, orphan.Days)
	require.Zero(t, orphan.Hours)

	require.Equal(t, 5, rep.Totals.Days)
	require.InDelta(t, 29, rep.Totals.Hours, 1e-9)
	require.InDelta(t, 5.8, rep.Totals.Average, 1e-9)
	require.Equal(t, 3, rep.Totals.LongestRun)

	require.Equal(t, []report.PatternRow{
		{Name: "Early", Start: "07:00", End: "16:00", BreakMinutes: 60, Hours: 8},
		{Name: "Part A", Start: "09:00", End: "14:00", Hours: 5},
	}, rep.Patterns)
}

func TestWriteXLSX(t *testing.T) {
	month, err := schedule.ParseYearMonth("2025-06")
	require.NoError(t, err)
	rep := report.Build(month, juneSnapshot(), time.Monday)

	var buf bytes.Buffer
	require.NoError(t, report.WriteXLSX(&buf, rep))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, []string{report.SheetSchedule, report.SheetWorkload, report.SheetPatterns}, f.GetSheetList())

	rows, err := f.GetRows(report.SheetSchedule)
	require.NoError(t, err)
	require.Equal(t, "Schedule 2025-06", rows[0][0])
	require.Equal(t, "Monday", rows[1][0])
	// week two: date row then entries row
	require.Equal(t, "2025-06-02", rows[4][0])
	require.Equal(t, "Aiko (Early)\nBen (Part A)", rows[5][0])

	rows, err = f.GetRows(report.SheetWorkload)
	require.NoError(t, err)
	require.Equal(t, []string{"Worker", "Days", "Hours", "Average", "Longest run"}, rows[0])
	require.Equal(t, "Aiko", rows[1][0])
	require.Equal(t, "3", rows[1][1])
	require.Equal(t, "Total", rows[len(rows)-1][0])

	rows, err = f.GetRows(report.SheetPatterns)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "Part A", rows[2][0])
}

func TestWriteTables(t *testing.T) {
	month, err := schedule.ParseYearMonth("2025-06")
	require.NoError(t, err)
	var buf bytes.Buffer
	report.WriteTables(&buf, report.Build(month, juneSnapshot(), time.Monday))
	out := buf.String()
	require.True(t, strings.HasPrefix(out, "Schedule 2025-06"))
	require.Contains(t, out, "Aiko (Early)")
	require.Contains(t, out, "Workload")
	require.Contains(t, out, "Part A")
}
