package repo

import (
	"context"
	"database/sql"
	"fmt"

	"cloud.google.com/go/civil"

	"shiftline/internal/domain"
)

type AssignmentFilters struct {
	DateRange
	WorkerID string
}

const assignmentColumns = `id,worker_id,date,pattern_id,created_at,updated_at`

func scanAssignment(scan func(dest ...any) error) (domain.Assignment, error) {
	var a domain.Assignment
	var date string
	if err := scan(&a.ID, &a.WorkerID, &date, &a.PatternID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return a, err
	}
	d, err := parseDate(date)
	if err != nil {
		return a, err
	}
	a.Date = d
	return a, nil
}

func (r Repo) InsertAssignment(ctx context.Context, tx *sql.Tx, a domain.Assignment) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO assignments(`+assignmentColumns+`) VALUES (?,?,?,?,?,?)`,
		a.ID, a.WorkerID, a.Date.String(), a.PatternID, a.CreatedAt, a.UpdatedAt)
	return err
}

// InsertAssignmentsTx bulk-inserts with one prepared statement.
func (r Repo) InsertAssignmentsTx(ctx context.Context, tx *sql.Tx, items []domain.Assignment) error {
	if len(items) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO assignments(`+assignmentColumns+`) VALUES (?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, a := range items {
		if _, err := stmt.ExecContext(ctx, a.ID, a.WorkerID, a.Date.String(), a.PatternID, a.CreatedAt, a.UpdatedAt); err != nil {
			return fmt.Errorf("insert assignment %s on %s: %w", a.WorkerID, a.Date, err)
		}
	}
	return nil
}

// DeleteAssignmentsInRange removes assignments dated within [from, to] and returns how many went.
func (r Repo) DeleteAssignmentsInRange(ctx context.Context, tx *sql.Tx, from, to civil.Date) (int64, error) {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM assignments WHERE date>=? AND date<=?`, from.String(), to.String())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReplaceAssignmentsTx swaps the assignments of [from, to] for items inside tx. Nothing is visible to other
// readers until the caller commits, and a failed insert rolls the delete back with it.
func (r Repo) ReplaceAssignmentsTx(ctx context.Context, tx *sql.Tx, from, to civil.Date, items []domain.Assignment) (int64, error) {
	if tx == nil {
		return 0, fmt.Errorf("replace assignments requires a transaction")
	}
	for _, a := range items {
		if a.Date.Before(from) || a.Date.After(to) {
			return 0, fmt.Errorf("assignment for %s on %s outside %s..%s", a.WorkerID, a.Date, from, to)
		}
	}
	deleted, err := r.DeleteAssignmentsInRange(ctx, tx, from, to)
	if err != nil {
		return 0, err
	}
	if err := r.InsertAssignmentsTx(ctx, tx, items); err != nil {
		return 0, err
	}
	return deleted, nil
}

func (r Repo) GetAssignment(ctx context.Context, id string) (domain.Assignment, error) {
	return r.GetAssignmentTx(ctx, nil, id)
}

func (r Repo) GetAssignmentTx(ctx context.Context, tx *sql.Tx, id string) (domain.Assignment, error) {
	a, err := scanAssignment(r.q(tx).QueryRowContext(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id=?`, id).Scan)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	return a, err
}

// FindAssignment returns the assignment a worker holds on date.
func (r Repo) FindAssignment(ctx context.Context, tx *sql.Tx, workerID string, date civil.Date) (domain.Assignment, error) {
	a, err := scanAssignment(r.q(tx).QueryRowContext(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE worker_id=? AND date=?`,
		workerID, date.String()).Scan)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	return a, err
}

func (r Repo) ListAssignments(ctx context.Context, f AssignmentFilters) ([]domain.Assignment, error) {
	return r.listAssignments(ctx, r.DB, f)
}

func (r Repo) ListAssignmentsTx(ctx context.Context, tx *sql.Tx, f AssignmentFilters) ([]domain.Assignment, error) {
	return r.listAssignments(ctx, r.q(tx), f)
}

func (r Repo) listAssignments(ctx context.Context, q querier, f AssignmentFilters) ([]domain.Assignment, error) {
	clauses, args := f.clauses("date")
	if f.WorkerID != "" {
		clauses = append(clauses, "worker_id=?")
		args = append(args, f.WorkerID)
	}
	rows, err := q.QueryContext(ctx, `SELECT `+assignmentColumns+` FROM assignments `+where(clauses)+` ORDER BY date ASC, created_at ASC, id ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (r Repo) UpdateAssignment(ctx context.Context, tx *sql.Tx, a domain.Assignment) error {
	res, err := r.q(tx).ExecContext(ctx, `UPDATE assignments SET worker_id=?, date=?, pattern_id=?, updated_at=? WHERE id=?`,
		a.WorkerID, a.Date.String(), a.PatternID, a.UpdatedAt, a.ID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (r Repo) DeleteAssignment(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM assignments WHERE id=?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}
