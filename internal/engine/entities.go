package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"shiftline/internal/domain"
	"shiftline/internal/events"
)

type WorkerCreateOptions struct {
	ID       string
	Name     string
	Category string
	ActorID  string
}

func (e Engine) CreateWorker(ctx context.Context, opts WorkerCreateOptions) (domain.Worker, error) {
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		return domain.Worker{}, invalid("worker name is required")
	}
	cat, err := domain.ParseWorkerCategory(opts.Category)
	if err != nil {
		return domain.Worker{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	w := domain.Worker{
		ID:        opts.ID,
		Name:      name,
		Category:  cat,
		CreatedAt: e.stamp(),
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	err = e.withTx(ctx, func(tx *sql.Tx) error {
		pos, err := e.Repo.NextWorkerPosition(ctx, tx)
		if err != nil {
			return err
		}
		w.Position = pos
		if err := e.Repo.InsertWorker(ctx, tx, w); err != nil {
			return fmt.Errorf("insert worker: %w", err)
		}
		return e.Events.Append(ctx, tx, events.WorkerCreated, "worker", w.ID, opts.ActorID, events.EventPayload{
			"name":     w.Name,
			"category": w.Category,
		})
	})
	if err != nil {
		return domain.Worker{}, err
	}
	return w, nil
}

// WorkerUpdateOptions leaves nil fields unchanged.
type WorkerUpdateOptions struct {
	ID       string
	Name     *string
	Category *string
	ActorID  string
}

func (e Engine) UpdateWorker(ctx context.Context, opts WorkerUpdateOptions) (domain.Worker, error) {
	var w domain.Worker
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		w, err = e.Repo.GetWorkerTx(ctx, tx, opts.ID)
		if err != nil {
			return err
		}
		if opts.Name != nil {
			name := strings.TrimSpace(*opts.Name)
			if name == "" {
				return invalid("worker name is required")
			}
			w.Name = name
		}
		if opts.Category != nil {
			cat, err := domain.ParseWorkerCategory(*opts.Category)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidInput, err)
			}
			w.Category = cat
		}
		if err := e.Repo.UpdateWorker(ctx, tx, w); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.WorkerUpdated, "worker", w.ID, opts.ActorID, events.EventPayload{
			"name":     w.Name,
			"category": w.Category,
		})
	})
	return w, err
}

// MoveWorker changes the worker's place in the listing order the planner uses within a category.
func (e Engine) MoveWorker(ctx context.Context, id string, position int, actorID string) ([]domain.Worker, error) {
	var ws []domain.Worker
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		ws, err = e.Repo.MoveWorker(ctx, tx, id, position)
		if err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.WorkerUpdated, "worker", id, actorID, events.EventPayload{"position": position})
	})
	return ws, err
}

// DeleteWorker removes the worker together with their leave requests and assignments.
func (e Engine) DeleteWorker(ctx context.Context, id, actorID string) error {
	return e.withTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.DeleteWorker(ctx, tx, id); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.WorkerDeleted, "worker", id, actorID, nil)
	})
}

type PatternCreateOptions struct {
	ID           string
	Name         string
	Start        string
	End          string
	BreakMinutes int
	ActorID      string
}

func (e Engine) CreatePattern(ctx context.Context, opts PatternCreateOptions) (domain.ShiftPattern, error) {
	p, err := e.newPattern(opts)
	if err != nil {
		return p, err
	}
	err = e.withTx(ctx, func(tx *sql.Tx) error {
		return e.insertPattern(ctx, tx, p, opts.ActorID)
	})
	if err != nil {
		return domain.ShiftPattern{}, err
	}
	return p, nil
}

func (e Engine) newPattern(opts PatternCreateOptions) (domain.ShiftPattern, error) {
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		return domain.ShiftPattern{}, invalid("pattern name is required")
	}
	hours, err := domain.WorkHours(opts.Start, opts.End, opts.BreakMinutes)
	if err != nil {
		return domain.ShiftPattern{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	p := domain.ShiftPattern{
		ID:           opts.ID,
		Name:         name,
		Start:        opts.Start,
		End:          opts.End,
		BreakMinutes: opts.BreakMinutes,
		WorkHours:    hours,
		CreatedAt:    e.stamp(),
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return p, nil
}

func (e Engine) insertPattern(ctx context.Context, tx *sql.Tx, p domain.ShiftPattern, actorID string) error {
	if err := e.Repo.InsertPattern(ctx, tx, p); err != nil {
		return fmt.Errorf("insert pattern %s: %w", p.Name, err)
	}
	return e.Events.Append(ctx, tx, events.PatternCreated, "pattern", p.ID, actorID, events.EventPayload{
		"name":       p.Name,
		"work_hours": p.WorkHours,
	})
}

// SeedPatterns inserts the catalog when the store has no patterns yet and reports how many were added.
func (e Engine) SeedPatterns(ctx context.Context, seed []PatternCreateOptions) (int, error) {
	patterns := make([]domain.ShiftPattern, 0, len(seed))
	for _, opts := range seed {
		p, err := e.newPattern(opts)
		if err != nil {
			return 0, err
		}
		patterns = append(patterns, p)
	}
	added := 0
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		n, err := e.Repo.CountPatterns(ctx, tx)
		if err != nil || n > 0 {
			return err
		}
		for _, p := range patterns {
			if err := e.insertPattern(ctx, tx, p, "system"); err != nil {
				return err
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// PatternUpdateOptions leaves nil fields unchanged.
type PatternUpdateOptions struct {
	ID           string
	Name         *string
	Start        *string
	End          *string
	BreakMinutes *int
	ActorID      string
}

// UpdatePattern edits a catalog entry and recomputes its work hours. Existing
// assignments keep referencing it, so summaries pick up the new hours.
func (e Engine) UpdatePattern(ctx context.Context, opts PatternUpdateOptions) (domain.ShiftPattern, error) {
	var p domain.ShiftPattern
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		p, err = e.Repo.GetPatternTx(ctx, tx, opts.ID)
		if err != nil {
			return err
		}
		if opts.Name != nil {
			name := strings.TrimSpace(*opts.Name)
			if name == "" {
				return invalid("pattern name is required")
			}
			p.Name = name
		}
		if opts.Start != nil {
			p.Start = *opts.Start
		}
		if opts.End != nil {
			p.End = *opts.End
		}
		if opts.BreakMinutes != nil {
			p.BreakMinutes = *opts.BreakMinutes
		}
		hours, err := domain.WorkHours(p.Start, p.End, p.BreakMinutes)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		p.WorkHours = hours
		if err := e.Repo.UpdatePattern(ctx, tx, p); err != nil {
			return fmt.Errorf("update pattern %s: %w", p.Name, err)
		}
		return e.Events.Append(ctx, tx, events.PatternUpdated, "pattern", p.ID, opts.ActorID, events.EventPayload{
			"name":       p.Name,
			"start":      p.Start,
			"end":        p.End,
			"work_hours": p.WorkHours,
		})
	})
	if err != nil {
		return domain.ShiftPattern{}, err
	}
	return p, nil
}

// DeletePattern refuses to remove a pattern that assignments still reference.
func (e Engine) DeletePattern(ctx context.Context, id, actorID string) error {
	return e.withTx(ctx, func(tx *sql.Tx) error {
		n, err := e.Repo.CountAssignmentsForPattern(ctx, tx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %d assignments", ErrPatternInUse, n)
		}
		if err := e.Repo.DeletePattern(ctx, tx, id); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.PatternDeleted, "pattern", id, actorID, nil)
	})
}

type LeaveCreateOptions struct {
	ID       string
	WorkerID string
	Date     civil.Date
	Reason   string
	ActorID  string
}

func (e Engine) CreateLeaveRequest(ctx context.Context, opts LeaveCreateOptions) (domain.LeaveRequest, error) {
	if !opts.Date.IsValid() {
		return domain.LeaveRequest{}, invalid("leave date is required")
	}
	lr := domain.LeaveRequest{
		ID:        opts.ID,
		WorkerID:  opts.WorkerID,
		Date:      opts.Date,
		Reason:    strings.TrimSpace(opts.Reason),
		CreatedAt: e.stamp(),
	}
	if lr.ID == "" {
		lr.ID = uuid.NewString()
	}
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := e.Repo.GetWorkerTx(ctx, tx, lr.WorkerID); err != nil {
			return fmt.Errorf("worker %s: %w", lr.WorkerID, err)
		}
		if err := e.Repo.InsertLeaveRequest(ctx, tx, lr); err != nil {
			return fmt.Errorf("insert leave request: %w", err)
		}
		return e.Events.Append(ctx, tx, events.LeaveCreated, "leave", lr.ID, opts.ActorID, events.EventPayload{
			"worker_id": lr.WorkerID,
			"date":      lr.Date.String(),
		})
	})
	if err != nil {
		return domain.LeaveRequest{}, err
	}
	return lr, nil
}

// LeaveUpdateOptions leaves nil fields unchanged. An empty Reason clears it.
type LeaveUpdateOptions struct {
	ID      string
	Date    *civil.Date
	Reason  *string
	ActorID string
}

func (e Engine) UpdateLeaveRequest(ctx context.Context, opts LeaveUpdateOptions) (domain.LeaveRequest, error) {
	var lr domain.LeaveRequest
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		lr, err = e.Repo.GetLeaveRequestTx(ctx, tx, opts.ID)
		if err != nil {
			return err
		}
		if opts.Date != nil {
			if !opts.Date.IsValid() {
				return invalid("leave date is required")
			}
			lr.Date = *opts.Date
		}
		if opts.Reason != nil {
			lr.Reason = strings.TrimSpace(*opts.Reason)
		}
		if err := e.Repo.UpdateLeaveRequest(ctx, tx, lr); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.LeaveUpdated, "leave", lr.ID, opts.ActorID, events.EventPayload{
			"worker_id": lr.WorkerID,
			"date":      lr.Date.String(),
		})
	})
	if err != nil {
		return domain.LeaveRequest{}, err
	}
	return lr, nil
}

func (e Engine) DeleteLeaveRequest(ctx context.Context, id, actorID string) error {
	return e.withTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.DeleteLeaveRequest(ctx, tx, id); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.LeaveDeleted, "leave", id, actorID, nil)
	})
}
