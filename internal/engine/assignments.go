package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"shiftline/internal/domain"
	"shiftline/internal/events"
	"shiftline/internal/repo"
	"shiftline/internal/schedule"
)

// AssignmentResult carries a persisted assignment and the advisory warnings found for it.
type AssignmentResult struct {
	Assignment domain.Assignment `json:"assignment"`
	Warnings   []domain.Warning  `json:"warnings"`
}

// CheckAssignment evaluates a candidate without persisting it. excludeID names the assignment being edited.
// Unknown workers and patterns are reported as repo.ErrNotFound.
func (e Engine) CheckAssignment(ctx context.Context, cand schedule.Candidate, excludeID string) ([]domain.Warning, error) {
	if err := validateCandidate(cand); err != nil {
		return nil, err
	}
	if err := e.resolveRefs(ctx, nil, cand); err != nil {
		return nil, err
	}
	return e.check(ctx, nil, cand, excludeID)
}

func validateCandidate(cand schedule.Candidate) error {
	switch {
	case cand.WorkerID == "":
		return invalid("worker is required")
	case cand.PatternID == "":
		return invalid("pattern is required")
	case !cand.Date.IsValid():
		return invalid("date is required")
	}
	return nil
}

func (e Engine) resolveRefs(ctx context.Context, tx *sql.Tx, cand schedule.Candidate) error {
	if _, err := e.Repo.GetWorkerTx(ctx, tx, cand.WorkerID); err != nil {
		return fmt.Errorf("worker %s: %w", cand.WorkerID, err)
	}
	if _, err := e.Repo.GetPatternTx(ctx, tx, cand.PatternID); err != nil {
		return fmt.Errorf("pattern %s: %w", cand.PatternID, err)
	}
	return nil
}

// check loads the assignments of date-1..date+1 and the worker's leave on date, which is all the rules look at.
func (e Engine) check(ctx context.Context, tx *sql.Tx, cand schedule.Candidate, excludeID string) ([]domain.Warning, error) {
	window := repo.DateRange{From: cand.Date.AddDays(-1), To: cand.Date.AddDays(1)}
	assignments, err := e.Repo.ListAssignmentsTx(ctx, tx, repo.AssignmentFilters{DateRange: window})
	if err != nil {
		return nil, err
	}
	leave, err := e.Repo.ListLeaveRequestsTx(ctx, tx, repo.LeaveFilters{
		DateRange: repo.DateRange{From: cand.Date, To: cand.Date},
		WorkerID:  cand.WorkerID,
	})
	if err != nil {
		return nil, err
	}
	warnings := e.checker().Check(cand, excludeID, assignments, leave)
	if warnings == nil {
		warnings = []domain.Warning{}
	}
	return warnings, nil
}

func warningCodes(ws []domain.Warning) []string {
	codes := make([]string, len(ws))
	for i, w := range ws {
		codes[i] = string(w.Code)
	}
	return codes
}

type AssignmentCreateOptions struct {
	ID        string
	WorkerID  string
	Date      civil.Date
	PatternID string
	ActorID   string
}

// AddAssignment persists a manual assignment. Warnings never block it; a second assignment for the same worker
// and date does, with ErrDuplicateAssignment.
func (e Engine) AddAssignment(ctx context.Context, opts AssignmentCreateOptions) (AssignmentResult, error) {
	cand := schedule.Candidate{WorkerID: opts.WorkerID, Date: opts.Date, PatternID: opts.PatternID}
	if err := validateCandidate(cand); err != nil {
		return AssignmentResult{}, err
	}
	now := e.stamp()
	a := domain.Assignment{
		ID:        opts.ID,
		WorkerID:  cand.WorkerID,
		Date:      cand.Date,
		PatternID: cand.PatternID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	var warnings []domain.Warning
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		if err := e.resolveRefs(ctx, tx, cand); err != nil {
			return err
		}
		if err := e.ensureFree(ctx, tx, cand.WorkerID, cand.Date, ""); err != nil {
			return err
		}
		var err error
		if warnings, err = e.check(ctx, tx, cand, ""); err != nil {
			return err
		}
		if err := e.Repo.InsertAssignment(ctx, tx, a); err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}
		return e.Events.Append(ctx, tx, events.AssignmentCreated, "assignment", a.ID, opts.ActorID, events.EventPayload{
			"worker_id":  a.WorkerID,
			"date":       a.Date.String(),
			"pattern_id": a.PatternID,
			"warnings":   warningCodes(warnings),
		})
	})
	if err != nil {
		return AssignmentResult{}, err
	}
	e.logWarnings(a, warnings)
	return AssignmentResult{Assignment: a, Warnings: warnings}, nil
}

// ensureFree fails when the worker already holds an assignment on date other than selfID.
func (e Engine) ensureFree(ctx context.Context, tx *sql.Tx, workerID string, date civil.Date, selfID string) error {
	existing, err := e.Repo.FindAssignment(ctx, tx, workerID, date)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID == selfID {
		return nil
	}
	return fmt.Errorf("%w: %s on %s (assignment %s)", ErrDuplicateAssignment, workerID, date, existing.ID)
}

// AssignmentUpdateOptions leaves empty fields unchanged.
type AssignmentUpdateOptions struct {
	ID        string
	WorkerID  string
	Date      civil.Date
	PatternID string
	ActorID   string
}

// UpdateAssignment edits an assignment in place. The checker runs with the assignment itself excluded.
func (e Engine) UpdateAssignment(ctx context.Context, opts AssignmentUpdateOptions) (AssignmentResult, error) {
	var a domain.Assignment
	var warnings []domain.Warning
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		a, err = e.Repo.GetAssignmentTx(ctx, tx, opts.ID)
		if err != nil {
			return err
		}
		if opts.WorkerID != "" {
			a.WorkerID = opts.WorkerID
		}
		if opts.Date.IsValid() {
			a.Date = opts.Date
		}
		if opts.PatternID != "" {
			a.PatternID = opts.PatternID
		}
		cand := schedule.Candidate{WorkerID: a.WorkerID, Date: a.Date, PatternID: a.PatternID}
		if err := e.resolveRefs(ctx, tx, cand); err != nil {
			return err
		}
		if err := e.ensureFree(ctx, tx, a.WorkerID, a.Date, a.ID); err != nil {
			return err
		}
		if warnings, err = e.check(ctx, tx, cand, a.ID); err != nil {
			return err
		}
		a.UpdatedAt = e.stamp()
		if err := e.Repo.UpdateAssignment(ctx, tx, a); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.AssignmentUpdated, "assignment", a.ID, opts.ActorID, events.EventPayload{
			"worker_id":  a.WorkerID,
			"date":       a.Date.String(),
			"pattern_id": a.PatternID,
			"warnings":   warningCodes(warnings),
		})
	})
	if err != nil {
		return AssignmentResult{}, err
	}
	e.logWarnings(a, warnings)
	return AssignmentResult{Assignment: a, Warnings: warnings}, nil
}

func (e Engine) DeleteAssignment(ctx context.Context, id, actorID string) error {
	return e.withTx(ctx, func(tx *sql.Tx) error {
		a, err := e.Repo.GetAssignmentTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := e.Repo.DeleteAssignment(ctx, tx, id); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.AssignmentDeleted, "assignment", id, actorID, events.EventPayload{
			"worker_id": a.WorkerID,
			"date":      a.Date.String(),
		})
	})
}

func (e Engine) logWarnings(a domain.Assignment, warnings []domain.Warning) {
	if len(warnings) == 0 {
		return
	}
	e.log().Info("assignment saved with warnings",
		zap.String("assignment", a.ID),
		zap.String("worker", a.WorkerID),
		zap.Stringer("date", a.Date),
		zap.Strings("warnings", warningCodes(warnings)),
	)
}
