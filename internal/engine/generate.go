package engine

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shiftline/internal/domain"
	"shiftline/internal/events"
	"shiftline/internal/report"
	"shiftline/internal/repo"
	"shiftline/internal/schedule"
)

// GenerateResult reports one month generation.
type GenerateResult struct {
	Month    string `json:"month"`
	Created  int    `json:"created"`
	Replaced int64  `json:"replaced"`
}

// GenerateMonth replaces every assignment of month with a fresh plan. The delete and the inserts share one
// transaction, and concurrent calls for the same month run one after the other. The checker is not consulted.
func (e Engine) GenerateMonth(ctx context.Context, month schedule.YearMonth, actorID string) (GenerateResult, error) {
	res := GenerateResult{Month: month.String()}
	cfg, err := e.config()
	if err != nil {
		return res, err
	}
	staffing, err := cfg.StaffingPolicy()
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	mu := e.monthLock(month)
	mu.Lock()
	defer mu.Unlock()

	started := e.now()
	err = e.withTx(ctx, func(tx *sql.Tx) error {
		snap, err := e.loadSnapshot(ctx, tx, month, false)
		if err != nil {
			return err
		}
		catalog, err := schedule.ResolveCatalog(cfg.RoleNames(), snap.Patterns)
		if err != nil {
			return err
		}
		planner := schedule.Planner{Staffing: staffing, Catalog: catalog}
		drafts := planner.PlanMonth(month, snap.Workers, snap.Leave)
		now := e.stamp()
		for i := range drafts {
			drafts[i].ID = uuid.NewString()
			drafts[i].CreatedAt = now
			drafts[i].UpdatedAt = now
		}
		replaced, err := e.Repo.ReplaceAssignmentsTx(ctx, tx, month.First(), month.Last(), drafts)
		if err != nil {
			return fmt.Errorf("replace assignments of %s: %w", month, err)
		}
		res.Created = len(drafts)
		res.Replaced = replaced
		return e.Events.Append(ctx, tx, events.MonthGenerated, "month", month.String(), actorID, events.EventPayload{
			"created":  res.Created,
			"replaced": res.Replaced,
			"workers":  len(snap.Workers),
		})
	})
	if err != nil {
		e.log().Warn("month generation failed", zap.Stringer("month", month), zap.Error(err))
		return GenerateResult{Month: month.String()}, err
	}
	e.log().Info("month generated",
		zap.Stringer("month", month),
		zap.Int("created", res.Created),
		zap.Int64("replaced", res.Replaced),
		zap.Duration("took", time.Since(started)),
	)
	return res, nil
}

// LoadSnapshot reads the roster, the catalog and the leave requests and assignments dated within month.
func (e Engine) LoadSnapshot(ctx context.Context, month schedule.YearMonth) (schedule.Snapshot, error) {
	return e.loadSnapshot(ctx, nil, month, true)
}

func (e Engine) loadSnapshot(ctx context.Context, tx *sql.Tx, month schedule.YearMonth, withAssignments bool) (schedule.Snapshot, error) {
	var snap schedule.Snapshot
	var err error
	rng := repo.DateRange{From: month.First(), To: month.Last()}
	if snap.Workers, err = e.Repo.ListWorkersTx(ctx, tx); err != nil {
		return snap, err
	}
	if snap.Patterns, err = e.Repo.ListPatternsTx(ctx, tx); err != nil {
		return snap, err
	}
	if snap.Leave, err = e.Repo.ListLeaveRequestsTx(ctx, tx, repo.LeaveFilters{DateRange: rng}); err != nil {
		return snap, err
	}
	if withAssignments {
		if snap.Assignments, err = e.Repo.ListAssignmentsTx(ctx, tx, repo.AssignmentFilters{DateRange: rng}); err != nil {
			return snap, err
		}
	}
	return snap, nil
}

// Summary totals days and hours per worker for month.
func (e Engine) Summary(ctx context.Context, month schedule.YearMonth) (map[string]domain.WorkloadSummary, error) {
	assignments, err := e.Repo.ListAssignments(ctx, repo.AssignmentFilters{DateRange: repo.DateRange{From: month.First(), To: month.Last()}})
	if err != nil {
		return nil, err
	}
	patterns, err := e.Repo.ListPatterns(ctx)
	if err != nil {
		return nil, err
	}
	return schedule.Summarize(assignments, patterns), nil
}

// Report builds the printable month report.
func (e Engine) Report(ctx context.Context, month schedule.YearMonth) (report.MonthReport, error) {
	snap, err := e.LoadSnapshot(ctx, month)
	if err != nil {
		return report.MonthReport{}, err
	}
	weekStart := time.Monday
	if e.Config != nil {
		weekStart = e.Config.WeekStart()
	}
	return report.Build(month, snap, weekStart), nil
}
