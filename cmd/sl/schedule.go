package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"shiftline/internal/domain"
	"shiftline/internal/engine"
	"shiftline/internal/report"
	"shiftline/internal/repo"
	"shiftline/internal/schedule"
)

func shiftCmd() *cobra.Command {
	s := &cobra.Command{
		Use:   "shift",
		Short: "Edit individual assignments",
		Long:  "Manual edits run the constraint checker. Warnings are printed but never block the change.",
	}
	s.AddCommand(shiftAddCmd())
	s.AddCommand(shiftEditCmd())
	s.AddCommand(shiftRemoveCmd())
	s.AddCommand(shiftListCmd())
	s.AddCommand(shiftCheckCmd())
	return s
}

func shiftAddCmd() *cobra.Command {
	var workerID, date, patternID string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Assign a worker to a pattern on a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseDateFlag("date", date)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.AddAssignment(ctx, engine.AssignmentCreateOptions{
					WorkerID:  workerID,
					Date:      d,
					PatternID: patternID,
					ActorID:   viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printAssignmentResult(res)
			})
		},
	}
	cmd.Flags().StringVar(&workerID, "worker", "", "worker id")
	cmd.Flags().StringVar(&date, "date", "", "date YYYY-MM-DD")
	cmd.Flags().StringVar(&patternID, "pattern", "", "pattern id")
	_ = cmd.MarkFlagRequired("worker")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("pattern")
	return cmd
}

func shiftEditCmd() *cobra.Command {
	var workerID, date, patternID string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the worker, date or pattern of an assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.AssignmentUpdateOptions{
				ID:        args[0],
				WorkerID:  workerID,
				PatternID: patternID,
				ActorID:   viper.GetString("actor-id"),
			}
			if date != "" {
				d, err := parseDateFlag("date", date)
				if err != nil {
					return err
				}
				opts.Date = d
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.UpdateAssignment(ctx, opts)
				if err != nil {
					return err
				}
				return printAssignmentResult(res)
			})
		},
	}
	cmd.Flags().StringVar(&workerID, "worker", "", "new worker id")
	cmd.Flags().StringVar(&date, "date", "", "new date YYYY-MM-DD")
	cmd.Flags().StringVar(&patternID, "pattern", "", "new pattern id")
	return cmd
}

func shiftRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete an assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteAssignment(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func shiftListCmd() *cobra.Command {
	var workerID, from, to, month string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assignments by date",
		RunE: func(cmd *cobra.Command, args []string) error {
			rng, err := rangeFlags(month, from, to)
			if err != nil {
				return err
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListAssignments(ctx, repo.AssignmentFilters{DateRange: rng, WorkerID: workerID})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				workers, err := r.ListWorkers(ctx)
				if err != nil {
					return err
				}
				patterns, err := r.ListPatterns(ctx)
				if err != nil {
					return err
				}
				snap := schedule.Snapshot{Workers: workers, Patterns: patterns}
				byWorker, byPattern := snap.WorkerByID(), snap.PatternByID()
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Date", "Worker", "Pattern"})
				for _, a := range items {
					worker, pattern := a.WorkerID, a.PatternID
					if w, ok := byWorker[a.WorkerID]; ok {
						worker = w.Name
					}
					if p, ok := byPattern[a.PatternID]; ok {
						pattern = p.Name
					}
					tw.AppendRow(table.Row{a.ID, a.Date, worker, pattern})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&workerID, "worker", "", "worker id filter")
	cmd.Flags().StringVar(&month, "month", "", "month YYYY-MM (overrides --from/--to)")
	cmd.Flags().StringVar(&from, "from", "", "first date YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date YYYY-MM-DD")
	return cmd
}

func shiftCheckCmd() *cobra.Command {
	var workerID, date, patternID, excludeID string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Show warnings a candidate assignment would raise, without saving",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseDateFlag("date", date)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				cand := schedule.Candidate{WorkerID: workerID, Date: d, PatternID: patternID}
				warnings, err := e.CheckAssignment(ctx, cand, excludeID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"warnings": warnings})
				}
				if len(warnings) == 0 {
					fmt.Println("no warnings")
					return nil
				}
				for _, w := range warnings {
					fmt.Printf("warning [%s]: %s\n", w.Code, w.Message)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&workerID, "worker", "", "worker id")
	cmd.Flags().StringVar(&date, "date", "", "date YYYY-MM-DD")
	cmd.Flags().StringVar(&patternID, "pattern", "", "pattern id")
	cmd.Flags().StringVar(&excludeID, "exclude", "", "assignment id to leave out (the one being edited)")
	_ = cmd.MarkFlagRequired("worker")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("pattern")
	return cmd
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <YYYY-MM>",
		Short: "Replace a month's assignments with a generated plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			month, err := schedule.ParseYearMonth(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.GenerateMonth(ctx, month, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				fmt.Printf("%s: %d assignments created, %d replaced\n", res.Month, res.Created, res.Replaced)
				return nil
			})
		},
	}
	return cmd
}

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary <YYYY-MM>",
		Short: "Days and hours per worker for a month",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			month, err := schedule.ParseYearMonth(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				sums, err := e.Summary(ctx, month)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(sums)
				}
				workers, err := e.Repo.ListWorkers(ctx)
				if err != nil {
					return err
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Worker", "Days", "Hours", "Avg"})
				for _, w := range workers {
					s := sums[w.ID]
					tw.AppendRow(table.Row{w.Name, s.DayCount, s.TotalHours, fmt.Sprintf("%.2f", s.AverageHours())})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <YYYY-MM>",
		Short: "Print the schedule grid, workload and pattern tables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			month, err := schedule.ParseYearMonth(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rep, err := e.Report(ctx, month)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rep)
				}
				report.WriteTables(os.Stdout, rep)
				return nil
			})
		},
	}
	return cmd
}

func exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <YYYY-MM>",
		Short: "Write the month report to an .xlsx workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			month, err := schedule.ParseYearMonth(args[0])
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("schedule-%s.xlsx", month)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rep, err := e.Report(ctx, month)
				if err != nil {
					return err
				}
				if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
					return err
				}
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				if err := report.WriteXLSX(f, rep); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Println("wrote", out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default schedule-<month>.xlsx)")
	return cmd
}

func printAssignmentResult(res engine.AssignmentResult) error {
	if viper.GetBool("json") {
		return printJSON(res)
	}
	if err := printJSONOrTable(res.Assignment); err != nil {
		return err
	}
	printWarnings(res.Warnings)
	return nil
}

func printWarnings(warnings []domain.Warning) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning [%s]: %s\n", w.Code, w.Message)
	}
}

// rangeFlags turns --month or --from/--to into a list filter.
func rangeFlags(month, from, to string) (repo.DateRange, error) {
	var rng repo.DateRange
	if month != "" {
		m, err := schedule.ParseYearMonth(month)
		if err != nil {
			return rng, err
		}
		return repo.DateRange{From: m.First(), To: m.Last()}, nil
	}
	var err error
	if from != "" {
		if rng.From, err = parseDateFlag("from", from); err != nil {
			return rng, err
		}
	}
	if to != "" {
		if rng.To, err = parseDateFlag("to", to); err != nil {
			return rng, err
		}
	}
	return rng, nil
}
