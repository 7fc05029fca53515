package repo

import (
	"context"
	"database/sql"

	"shiftline/internal/domain"
)

type LeaveFilters struct {
	DateRange
	WorkerID string
}

func scanLeave(scan func(dest ...any) error) (domain.LeaveRequest, error) {
	var lr domain.LeaveRequest
	var date string
	var reason sql.NullString
	if err := scan(&lr.ID, &lr.WorkerID, &date, &reason, &lr.CreatedAt); err != nil {
		return lr, err
	}
	d, err := parseDate(date)
	if err != nil {
		return lr, err
	}
	lr.Date = d
	if reason.Valid {
		lr.Reason = reason.String
	}
	return lr, nil
}

func (r Repo) InsertLeaveRequest(ctx context.Context, tx *sql.Tx, lr domain.LeaveRequest) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO leave_requests(id,worker_id,date,reason,created_at) VALUES (?,?,?,?,?)`,
		lr.ID, lr.WorkerID, lr.Date.String(), nullable(lr.Reason), lr.CreatedAt)
	return err
}

func (r Repo) GetLeaveRequest(ctx context.Context, id string) (domain.LeaveRequest, error) {
	return r.GetLeaveRequestTx(ctx, nil, id)
}

func (r Repo) GetLeaveRequestTx(ctx context.Context, tx *sql.Tx, id string) (domain.LeaveRequest, error) {
	lr, err := scanLeave(r.q(tx).QueryRowContext(ctx, `SELECT id,worker_id,date,reason,created_at FROM leave_requests WHERE id=?`, id).Scan)
	if err == sql.ErrNoRows {
		return lr, ErrNotFound
	}
	return lr, err
}

func (r Repo) ListLeaveRequests(ctx context.Context, f LeaveFilters) ([]domain.LeaveRequest, error) {
	return r.listLeave(ctx, r.DB, f)
}

func (r Repo) ListLeaveRequestsTx(ctx context.Context, tx *sql.Tx, f LeaveFilters) ([]domain.LeaveRequest, error) {
	return r.listLeave(ctx, r.q(tx), f)
}

func (r Repo) listLeave(ctx context.Context, q querier, f LeaveFilters) ([]domain.LeaveRequest, error) {
	clauses, args := f.clauses("date")
	if f.WorkerID != "" {
		clauses = append(clauses, "worker_id=?")
		args = append(args, f.WorkerID)
	}
	rows, err := q.QueryContext(ctx, `SELECT id,worker_id,date,reason,created_at FROM leave_requests `+where(clauses)+` ORDER BY date ASC, created_at ASC, id ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.LeaveRequest
	for rows.Next() {
		lr, err := scanLeave(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, lr)
	}
	return res, rows.Err()
}

func (r Repo) UpdateLeaveRequest(ctx context.Context, tx *sql.Tx, lr domain.LeaveRequest) error {
	res, err := r.q(tx).ExecContext(ctx, `UPDATE leave_requests SET date=?, reason=? WHERE id=?`,
		lr.Date.String(), nullable(lr.Reason), lr.ID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (r Repo) DeleteLeaveRequest(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM leave_requests WHERE id=?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}
