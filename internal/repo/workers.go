package repo

import (
	"context"
	"database/sql"
	"fmt"

	"shiftline/internal/domain"
)

const workerColumns = `id,name,category,position,created_at`

func scanWorker(scan func(dest ...any) error) (domain.Worker, error) {
	var w domain.Worker
	var category string
	if err := scan(&w.ID, &w.Name, &category, &w.Position, &w.CreatedAt); err != nil {
		return w, err
	}
	cat, err := domain.ParseWorkerCategory(category)
	if err != nil {
		return w, fmt.Errorf("worker %s: %w", w.ID, err)
	}
	w.Category = cat
	return w, nil
}

func (r Repo) InsertWorker(ctx context.Context, tx *sql.Tx, w domain.Worker) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO workers(`+workerColumns+`) VALUES (?,?,?,?,?)`,
		w.ID, w.Name, string(w.Category), w.Position, w.CreatedAt)
	return err
}

func (r Repo) GetWorker(ctx context.Context, id string) (domain.Worker, error) {
	return r.GetWorkerTx(ctx, nil, id)
}

func (r Repo) GetWorkerTx(ctx context.Context, tx *sql.Tx, id string) (domain.Worker, error) {
	w, err := scanWorker(r.q(tx).QueryRowContext(ctx, `SELECT `+workerColumns+` FROM workers WHERE id=?`, id).Scan)
	if err == sql.ErrNoRows {
		return w, ErrNotFound
	}
	return w, err
}

// ListWorkers returns the roster in listing order.
func (r Repo) ListWorkers(ctx context.Context) ([]domain.Worker, error) {
	return r.listWorkers(ctx, r.DB)
}

func (r Repo) ListWorkersTx(ctx context.Context, tx *sql.Tx) ([]domain.Worker, error) {
	return r.listWorkers(ctx, r.q(tx))
}

func (r Repo) listWorkers(ctx context.Context, q querier) ([]domain.Worker, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+workerColumns+` FROM workers ORDER BY position ASC, created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Worker
	for rows.Next() {
		w, err := scanWorker(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, w)
	}
	return res, rows.Err()
}

func (r Repo) UpdateWorker(ctx context.Context, tx *sql.Tx, w domain.Worker) error {
	res, err := r.q(tx).ExecContext(ctx, `UPDATE workers SET name=?, category=?, position=? WHERE id=?`,
		w.Name, string(w.Category), w.Position, w.ID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (r Repo) DeleteWorker(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM workers WHERE id=?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// NextWorkerPosition returns the position after the current last worker.
func (r Repo) NextWorkerPosition(ctx context.Context, tx *sql.Tx) (int, error) {
	var n int
	err := r.q(tx).QueryRowContext(ctx, `SELECT COALESCE(MAX(position)+1,0) FROM workers`).Scan(&n)
	return n, err
}

// MoveWorker places a worker at index position of the roster and renumbers everyone densely from 0.
func (r Repo) MoveWorker(ctx context.Context, tx *sql.Tx, id string, position int) ([]domain.Worker, error) {
	q := r.q(tx)
	ws, err := r.listWorkers(ctx, q)
	if err != nil {
		return nil, err
	}
	from := -1
	for i, w := range ws {
		if w.ID == id {
			from = i
			break
		}
	}
	if from < 0 {
		return nil, ErrNotFound
	}
	if position < 0 {
		position = 0
	}
	if position > len(ws)-1 {
		position = len(ws) - 1
	}
	moved := ws[from]
	ws = append(ws[:from], ws[from+1:]...)
	ws = append(ws[:position], append([]domain.Worker{moved}, ws[position:]...)...)
	for i := range ws {
		ws[i].Position = i
		if _, err := q.ExecContext(ctx, `UPDATE workers SET position=? WHERE id=?`, i, ws[i].ID); err != nil {
			return nil, err
		}
	}
	return ws, nil
}
