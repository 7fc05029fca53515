package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"shiftline/internal/app"
	"shiftline/internal/config"
	"shiftline/internal/db"
	"shiftline/internal/domain"
	"shiftline/internal/engine"
	"shiftline/internal/migrate"
	"shiftline/internal/repo"
	"shiftline/internal/schedule"
	"shiftline/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "sl",
	Short: "Shiftline CLI",
	Long: `Shiftline builds monthly shift schedules for a small team.
- Workspace: the .shiftline directory holding the database; the scheduling config lives in the DB and is imported explicitly.
- Workers: full-time or part-time staff in a fixed roster order; the order decides who gets picked first.
- Patterns: named shifts with start, end and break. Four roles (early, late, part_a, part_b) bind to pattern names in config.
- Leave: a worker's day off request. Generation skips them; manual edits only warn.
- Shifts: one assignment per worker per day. Manual edits run the checker and report warnings without blocking.
- Generate: replaces a whole month with a fresh plan in one transaction.
- Event log: every change, view with 'sl log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("SHIFTLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log engine activity to stderr")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func registerCommands() {
	rootCmd.AddCommand(workerCmd())
	rootCmd.AddCommand(patternCmd())
	rootCmd.AddCommand(leaveCmd())
	rootCmd.AddCommand(shiftCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func workerCmd() *cobra.Command {
	w := &cobra.Command{Use: "worker", Short: "Manage workers"}
	w.AddCommand(workerAddCmd())
	w.AddCommand(workerListCmd())
	w.AddCommand(workerUpdateCmd())
	w.AddCommand(workerMoveCmd())
	w.AddCommand(workerRemoveCmd())
	return w
}

func workerAddCmd() *cobra.Command {
	var opts engine.WorkerCreateOptions
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a worker at the end of the roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts.ActorID = viper.GetString("actor-id")
				w, err := e.CreateWorker(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(w)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "worker id (generated when empty)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name")
	cmd.Flags().StringVar(&opts.Category, "category", "full_time", "full_time or part_time")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func workerListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workers in roster order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListWorkers(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"#", "ID", "Name", "Category"})
				for _, w := range items {
					tw.AppendRow(table.Row{w.Position, w.ID, w.Name, w.Category})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func workerUpdateCmd() *cobra.Command {
	var name, category string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename a worker or change their category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.WorkerUpdateOptions{ID: args[0], ActorID: viper.GetString("actor-id")}
				if cmd.Flags().Changed("name") {
					opts.Name = &name
				}
				if cmd.Flags().Changed("category") {
					opts.Category = &category
				}
				w, err := e.UpdateWorker(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(w)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&category, "category", "", "full_time or part_time")
	return cmd
}

func workerMoveCmd() *cobra.Command {
	var position int
	cmd := &cobra.Command{
		Use:   "move <id>",
		Short: "Move a worker to a roster position (0 is first)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.MoveWorker(ctx, args[0], position, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().IntVar(&position, "position", 0, "target position")
	_ = cmd.MarkFlagRequired("position")
	return cmd
}

func workerRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a worker with their leave and shifts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteWorker(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func patternCmd() *cobra.Command {
	p := &cobra.Command{Use: "pattern", Short: "Manage shift patterns"}
	p.AddCommand(patternAddCmd())
	p.AddCommand(patternListCmd())
	p.AddCommand(patternUpdateCmd())
	p.AddCommand(patternRemoveCmd())
	return p
}

func patternAddCmd() *cobra.Command {
	var opts engine.PatternCreateOptions
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a shift pattern",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts.ActorID = viper.GetString("actor-id")
				p, err := e.CreatePattern(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "pattern id (generated when empty)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "pattern name")
	cmd.Flags().StringVar(&opts.Start, "start", "", "start time HH:MM")
	cmd.Flags().StringVar(&opts.End, "end", "", "end time HH:MM")
	cmd.Flags().IntVar(&opts.BreakMinutes, "break", 0, "unpaid break in minutes")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func patternListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List shift patterns",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListPatterns(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				roles := map[string]domain.PatternRole{}
				for role, p := range schedule.ResolveCatalogPartial(e.Config.RoleNames(), items) {
					roles[p.ID] = role
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Start", "End", "Break", "Hours", "Role"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.Name, p.Start, p.End, p.BreakMinutes, p.WorkHours, roles[p.ID]})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func patternUpdateCmd() *cobra.Command {
	var name, start, end string
	var breakMinutes int
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a shift pattern; its hours are recomputed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.PatternUpdateOptions{ID: args[0], ActorID: viper.GetString("actor-id")}
				if cmd.Flags().Changed("name") {
					opts.Name = &name
				}
				if cmd.Flags().Changed("start") {
					opts.Start = &start
				}
				if cmd.Flags().Changed("end") {
					opts.End = &end
				}
				if cmd.Flags().Changed("break") {
					opts.BreakMinutes = &breakMinutes
				}
				p, err := e.UpdatePattern(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "pattern name")
	cmd.Flags().StringVar(&start, "start", "", "start time HH:MM")
	cmd.Flags().StringVar(&end, "end", "", "end time HH:MM")
	cmd.Flags().IntVar(&breakMinutes, "break", 0, "unpaid break in minutes")
	return cmd
}

func patternRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a pattern no shift uses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeletePattern(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func leaveCmd() *cobra.Command {
	l := &cobra.Command{Use: "leave", Short: "Manage leave requests"}
	l.AddCommand(leaveAddCmd())
	l.AddCommand(leaveListCmd())
	l.AddCommand(leaveUpdateCmd())
	l.AddCommand(leaveRemoveCmd())
	return l
}

func leaveAddCmd() *cobra.Command {
	var workerID, date, reason string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a day off request",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseDateFlag("date", date)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				lr, err := e.CreateLeaveRequest(ctx, engine.LeaveCreateOptions{
					WorkerID: workerID,
					Date:     d,
					Reason:   reason,
					ActorID:  viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(lr)
			})
		},
	}
	cmd.Flags().StringVar(&workerID, "worker", "", "worker id")
	cmd.Flags().StringVar(&date, "date", "", "date YYYY-MM-DD")
	cmd.Flags().StringVar(&reason, "reason", "", "free text reason")
	_ = cmd.MarkFlagRequired("worker")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func leaveListCmd() *cobra.Command {
	var workerID, from, to, month string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List leave requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			rng, err := rangeFlags(month, from, to)
			if err != nil {
				return err
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListLeaveRequests(ctx, repo.LeaveFilters{DateRange: rng, WorkerID: workerID})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Worker", "Date", "Reason"})
				for _, lr := range items {
					tw.AppendRow(table.Row{lr.ID, lr.WorkerID, lr.Date, lr.Reason})
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

func leaveUpdateCmd() *cobra.Command {
	var date, reason string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Move a leave request or change its reason",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.LeaveUpdateOptions{ID: args[0], ActorID: viper.GetString("actor-id")}
			if cmd.Flags().Changed("date") {
				d, err := parseDateFlag("date", date)
				if err != nil {
					return err
				}
				opts.Date = &d
			}
			if cmd.Flags().Changed("reason") {
				opts.Reason = &reason
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				lr, err := e.UpdateLeaveRequest(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(lr)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date YYYY-MM-DD")
	cmd.Flags().StringVar(&reason, "reason", "", "free text reason (empty clears it)")
	return cmd
}

func leaveRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Withdraw a leave request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteLeaveRequest(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect scheduling config",
		Long:  "Config is the rulebook stored in the DB: staffing baseline and weekday overrides, the daily headcount ceiling and the role to pattern binding. Import from shiftline.yml when you change it.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configImportCmd())
	cfg.AddCommand(configDefaultCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show config stored in DB",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return printJSONOrTable(e.Config)
			})
		},
	}
	return cmd
}

func configImportCmd() *cobra.Command {
	var filePath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import config from YAML into the DB",
		Long:  "Reads --file, or shiftline.yml in the workspace when --file is not set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg *config.Config
			var err error
			if filePath != "" {
				cfg, err = config.FromFile(filePath)
			} else {
				workspace := viper.GetString("workspace")
				cfg, err = config.LoadOptional(workspace)
				if err == nil && cfg == nil {
					err = fmt.Errorf("%s not found; pass --file", config.Path(workspace))
				}
			}
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.UpdateConfig(ctx, cfg, viper.GetString("actor-id")); err != nil {
					return err
				}
				return printJSONOrTable(cfg)
			})
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "path to YAML config")
	return cmd
}

func configDefaultCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "default",
		Short: "Print the default config YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Print(config.GenerateDefault())
			return nil
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate stored config",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.Config.Validate()
			})
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "Every change to workers, patterns, leave, shifts and config, newest first.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				events, err := r.LatestEvents(ctx, repo.EventFilters{
					Type:       evtType,
					EntityKind: entityKind,
					EntityID:   entityID,
					Limit:      n,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "TS", "Type", "Entity", "Actor"})
				for _, evt := range events {
					tw.AppendRow(table.Row{evt.ID, evt.TS, evt.Type, evt.EntityKind + "/" + evt.EntityID, evt.ActorID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		Long:  "Serves the API. Set SHIFTLINE_JWT_SECRET to require HS256 bearer tokens; without it the actor comes from the X-Actor-Id header.",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			logger, err := zap.NewProduction()
			if viper.GetBool("verbose") {
				logger, err = zap.NewDevelopment()
			}
			if err != nil {
				return err
			}
			defer logger.Sync()
			e, err := app.OpenEngine(cmd.Context(), conn, logger)
			if err != nil {
				return err
			}
			authCfg := server.AuthConfig{JWTSecret: viper.GetString("jwt-secret")}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg, Logger: logger})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			logger.Info("serving shiftline api",
				zap.String("addr", addr),
				zap.String("db", db.Path(workspace)),
				zap.String("base_path", basePath),
				zap.Bool("auth", authCfg.JWTSecret != ""),
			)
			fmt.Printf("Serving Shiftline API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

// newLogger writes JSON logs to stderr: warnings only, everything with --verbose.
func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if viper.GetBool("verbose") {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()
	e, err := app.OpenEngine(ctx, conn, logger)
	if err != nil {
		return err
	}
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	r := repo.Repo{DB: conn}
	return fn(ctx, r)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseDateFlag(name, s string) (civil.Date, error) {
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return d, fmt.Errorf("--%s must be YYYY-MM-DD: %w", name, err)
	}
	return d, nil
}
