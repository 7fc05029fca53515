package repo

import (
	"context"
	"database/sql"

	"shiftline/internal/domain"
)

const patternColumns = `id,name,start_time,end_time,break_minutes,work_hours,created_at`

func scanPattern(scan func(dest ...any) error) (domain.ShiftPattern, error) {
	var p domain.ShiftPattern
	err := scan(&p.ID, &p.Name, &p.Start, &p.End, &p.BreakMinutes, &p.WorkHours, &p.CreatedAt)
	return p, err
}

func (r Repo) InsertPattern(ctx context.Context, tx *sql.Tx, p domain.ShiftPattern) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO shift_patterns(`+patternColumns+`) VALUES (?,?,?,?,?,?,?)`,
		p.ID, p.Name, p.Start, p.End, p.BreakMinutes, p.WorkHours, p.CreatedAt)
	return err
}

func (r Repo) GetPattern(ctx context.Context, id string) (domain.ShiftPattern, error) {
	return r.GetPatternTx(ctx, nil, id)
}

func (r Repo) GetPatternTx(ctx context.Context, tx *sql.Tx, id string) (domain.ShiftPattern, error) {
	p, err := scanPattern(r.q(tx).QueryRowContext(ctx, `SELECT `+patternColumns+` FROM shift_patterns WHERE id=?`, id).Scan)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

// ListPatterns returns the catalog ordered by start time.
func (r Repo) ListPatterns(ctx context.Context) ([]domain.ShiftPattern, error) {
	return r.ListPatternsTx(ctx, nil)
}

func (r Repo) ListPatternsTx(ctx context.Context, tx *sql.Tx) ([]domain.ShiftPattern, error) {
	rows, err := r.q(tx).QueryContext(ctx, `SELECT `+patternColumns+` FROM shift_patterns ORDER BY start_time ASC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ShiftPattern
	for rows.Next() {
		p, err := scanPattern(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) CountPatterns(ctx context.Context, tx *sql.Tx) (int, error) {
	var n int
	err := r.q(tx).QueryRowContext(ctx, `SELECT count(*) FROM shift_patterns`).Scan(&n)
	return n, err
}

func (r Repo) UpdatePattern(ctx context.Context, tx *sql.Tx, p domain.ShiftPattern) error {
	res, err := r.q(tx).ExecContext(ctx, `UPDATE shift_patterns SET name=?, start_time=?, end_time=?, break_minutes=?, work_hours=? WHERE id=?`,
		p.Name, p.Start, p.End, p.BreakMinutes, p.WorkHours, p.ID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (r Repo) DeletePattern(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM shift_patterns WHERE id=?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// CountAssignmentsForPattern reports how many assignments reference a pattern.
func (r Repo) CountAssignmentsForPattern(ctx context.Context, tx *sql.Tx, patternID string) (int, error) {
	var n int
	err := r.q(tx).QueryRowContext(ctx, `SELECT count(*) FROM assignments WHERE pattern_id=?`, patternID).Scan(&n)
	return n, err
}
