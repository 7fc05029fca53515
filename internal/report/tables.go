package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// WriteTables renders the report as three text tables.
func WriteTables(w io.Writer, rep MonthReport) {
	fmt.Fprintf(w, "Schedule %s\n", rep.Month)
	grid := table.NewWriter()
	grid.SetOutputMirror(w)
	header := table.Row{}
	for _, d := range rep.Weekdays {
		header = append(header, d)
	}
	grid.AppendHeader(header)
	for _, wk := range rep.Weeks {
		row := table.Row{}
		for _, c := range wk.Days {
			if !c.InMonth {
				row = append(row, "")
				continue
			}
			row = append(row, strings.Join(append([]string{c.Date[len(c.Date)-2:]}, c.Entries...), "\n"))
		}
		grid.AppendRow(row)
		grid.AppendSeparator()
	}
	grid.Render()

	fmt.Fprintln(w, "\nWorkload")
	load := table.NewWriter()
	load.SetOutputMirror(w)
	load.AppendHeader(table.Row{"Worker", "Days", "Hours", "Average", "Longest run"})
	for _, r := range rep.Workload {
		load.AppendRow(table.Row{r.Worker, r.Days, fmt.Sprintf("%.2f", r.Hours), fmt.Sprintf("%.2f", r.Average), r.LongestRun})
	}
	load.AppendFooter(table.Row{rep.Totals.Worker, rep.Totals.Days, fmt.Sprintf("%.2f", rep.Totals.Hours),
		fmt.Sprintf("%.2f", rep.Totals.Average), rep.Totals.LongestRun})
	load.Render()

	fmt.Fprintln(w, "\nPatterns")
	cat := table.NewWriter()
	cat.SetOutputMirror(w)
	cat.AppendHeader(table.Row{"Pattern", "Start", "End", "Break", "Hours"})
	for _, p := range rep.Patterns {
		cat.AppendRow(table.Row{p.Name, p.Start, p.End, p.BreakMinutes, fmt.Sprintf("%.2f", p.Hours)})
	}
	cat.Render()
}
