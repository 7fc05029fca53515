package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	SheetSchedule = "Schedule"
	SheetWorkload = "Workload"
	SheetPatterns = "Patterns"
)

// WriteXLSX writes the report as a workbook with one sheet per table.
func WriteXLSX(w io.Writer, rep MonthReport) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetSchedule); err != nil {
		return err
	}
	for _, name := range []string{SheetWorkload, SheetPatterns} {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "top", Color: "#000000", Style: 1},
			{Type: "bottom", Color: "#000000", Style: 2},
			{Type: "left", Color: "#000000", Style: 1},
			{Type: "right", Color: "#000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	wrap, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
		Border: []excelize.Border{
			{Type: "top", Color: "#D0D0D0", Style: 1},
			{Type: "bottom", Color: "#D0D0D0", Style: 1},
			{Type: "left", Color: "#D0D0D0", Style: 1},
			{Type: "right", Color: "#D0D0D0", Style: 1},
		},
	})
	if err != nil {
		return err
	}

	if err := writeSchedule(f, rep, header, wrap); err != nil {
		return fmt.Errorf("schedule sheet: %w", err)
	}
	if err := writeWorkload(f, rep, header); err != nil {
		return fmt.Errorf("workload sheet: %w", err)
	}
	if err := writePatterns(f, rep, header); err != nil {
		return fmt.Errorf("patterns sheet: %w", err)
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}

// writeSchedule puts a date row above an entries row for every week.
func writeSchedule(f *excelize.File, rep MonthReport, header, wrap int) error {
	if err := f.SetCellValue(SheetSchedule, "A1", "Schedule "+rep.Month); err != nil {
		return err
	}
	days := make([]any, len(rep.Weekdays))
	for i, d := range rep.Weekdays {
		days[i] = d
	}
	if err := f.SetSheetRow(SheetSchedule, "A2", &days); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetSchedule, "A2", "G2", header); err != nil {
		return err
	}
	row := 3
	for _, wk := range rep.Weeks {
		dates := make([]any, len(wk.Days))
		entries := make([]any, len(wk.Days))
		for i, c := range wk.Days {
			if c.InMonth {
				dates[i] = c.Date
				entries[i] = strings.Join(c.Entries, "\n")
			} else {
				dates[i] = ""
				entries[i] = ""
			}
		}
		if err := f.SetSheetRow(SheetSchedule, cell(1, row), &dates); err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetSchedule, cell(1, row+1), &entries); err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetSchedule, cell(1, row+1), cell(7, row+1), wrap); err != nil {
			return err
		}
		row += 2
	}
	return f.SetColWidth(SheetSchedule, "A", "G", 24)
}

func writeWorkload(f *excelize.File, rep MonthReport, header int) error {
	if err := f.SetSheetRow(SheetWorkload, "A1", &[]any{"Worker", "Days", "Hours", "Average", "Longest run"}); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetWorkload, "A1", "E1", header); err != nil {
		return err
	}
	rows := append(append([]WorkloadRow{}, rep.Workload...), rep.Totals)
	for i, r := range rows {
		if err := f.SetSheetRow(SheetWorkload, cell(1, i+2), &[]any{r.Worker, r.Days, r.Hours, round2(r.Average), r.LongestRun}); err != nil {
			return err
		}
	}
	return f.SetColWidth(SheetWorkload, "A", "A", 24)
}

func writePatterns(f *excelize.File, rep MonthReport, header int) error {
	if err := f.SetSheetRow(SheetPatterns, "A1", &[]any{"Pattern", "Start", "End", "Break (min)", "Hours"}); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetPatterns, "A1", "E1", header); err != nil {
		return err
	}
	for i, p := range rep.Patterns {
		if err := f.SetSheetRow(SheetPatterns, cell(1, i+2), &[]any{p.Name, p.Start, p.End, p.BreakMinutes, p.Hours}); err != nil {
			return err
		}
	}
	return nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
