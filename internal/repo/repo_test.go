package repo_test

import (
	"context"
	"database/sql"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/require"

	"shiftline/internal/config"
	"shiftline/internal/db"
	"shiftline/internal/domain"
	"shiftline/internal/migrate"
	"shiftline/internal/repo"
)

const ts = "2025-01-01T00:00:00Z"

func newRepo(t *testing.T) (repo.Repo, context.Context) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	return repo.Repo{DB: conn}, context.Background()
}

func seed(t *testing.T, r repo.Repo, ctx context.Context) {
	t.Helper()
	for i, w := range []domain.Worker{
		{ID: "w1", Name: "Aiko", Category: domain.CategoryFullTime},
		{ID: "w2", Name: "Ben", Category: domain.CategoryPartTime},
		{ID: "w3", Name: "Chen", Category: domain.CategoryFullTime},
	} {
		w.Position = i
		w.CreatedAt = ts
		require.NoError(t, r.InsertWorker(ctx, nil, w))
	}
	require.NoError(t, r.InsertPattern(ctx, nil, domain.ShiftPattern{ID: "E", Name: "Early", Start: "07:00", End: "15:00", WorkHours: 8, CreatedAt: ts}))
	require.NoError(t, r.InsertPattern(ctx, nil, domain.ShiftPattern{ID: "L", Name: "Late", Start: "13:00", End: "21:00", WorkHours: 8, CreatedAt: ts}))
}

func d(s string) civil.Date {
	v, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestWorkerCRUDAndMove(t *testing.T) {
	r, ctx := newRepo(t)
	seed(t, r, ctx)

	ws, err := r.ListWorkers(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"w1", "w2", "w3"}, ids(ws))

	ws, err = r.MoveWorker(ctx, nil, "w3", 0)
	require.NoError(t, err)
	require.Equal(t, []string{"w3", "w1", "w2"}, ids(ws))
	ws, err = r.ListWorkers(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"w3", "w1", "w2"}, ids(ws))

	next, err := r.NextWorkerPosition(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 3, next)

	_, err = r.MoveWorker(ctx, nil, "nope", 1)
	require.ErrorIs(t, err, repo.ErrNotFound)

	w, err := r.GetWorker(ctx, "w2")
	require.NoError(t, err)
	w.Category = domain.CategoryFullTime
	require.NoError(t, r.UpdateWorker(ctx, nil, w))
	w, err = r.GetWorker(ctx, "w2")
	require.NoError(t, err)
	require.Equal(t, domain.CategoryFullTime, w.Category)

	require.NoError(t, r.DeleteWorker(ctx, nil, "w2"))
	require.ErrorIs(t, r.DeleteWorker(ctx, nil, "w2"), repo.ErrNotFound)
	_, err = r.GetWorker(ctx, "w2")
	require.ErrorIs(t, err, repo.ErrNotFound)
}

func TestAssignmentsRangeAndUniqueness(t *testing.T) {
	r, ctx := newRepo(t)
	seed(t, r, ctx)

	a := domain.Assignment{ID: "a1", WorkerID: "w1", Date: d("2025-06-10"), PatternID: "E", CreatedAt: ts, UpdatedAt: ts}
	require.NoError(t, r.InsertAssignment(ctx, nil, a))
	dup := a
	dup.ID = "a2"
	require.Error(t, r.InsertAssignment(ctx, nil, dup))

	require.NoError(t, r.InsertAssignment(ctx, nil, domain.Assignment{ID: "a3", WorkerID: "w1", Date: d("2025-07-01"), PatternID: "L", CreatedAt: ts, UpdatedAt: ts}))

	june, err := r.ListAssignments(ctx, repo.AssignmentFilters{DateRange: repo.DateRange{From: d("2025-06-01"), To: d("2025-06-30")}})
	require.NoError(t, err)
	require.Len(t, june, 1)
	require.Equal(t, a, june[0])

	got, err := r.FindAssignment(ctx, nil, "w1", d("2025-07-01"))
	require.NoError(t, err)
	require.Equal(t, "a3", got.ID)
	_, err = r.FindAssignment(ctx, nil, "w2", d("2025-07-01"))
	require.ErrorIs(t, err, repo.ErrNotFound)

	n, err := r.CountAssignmentsForPattern(ctx, nil, "L")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	deleted, err := r.DeleteAssignmentsInRange(ctx, nil, d("2025-06-01"), d("2025-06-30"))
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)
	all, err := r.ListAssignments(ctx, repo.AssignmentFilters{})
	require.NoError(t, err)
	require.Equal(t, []string{"a3"}, assignmentIDs(all))
}

func TestReplaceAssignmentsRollsBackOnInsertFailure(t *testing.T) {
	r, ctx := newRepo(t)
	seed(t, r, ctx)
	require.NoError(t, r.InsertAssignment(ctx, nil, domain.Assignment{ID: "keep", WorkerID: "w1", Date: d("2025-06-02"), PatternID: "E", CreatedAt: ts, UpdatedAt: ts}))

	replace := func(items []domain.Assignment) error {
		tx, err := r.DB.BeginTx(ctx, nil)
		require.NoError(t, err)
		defer tx.Rollback()
		if _, err := r.ReplaceAssignmentsTx(ctx, tx, d("2025-06-01"), d("2025-06-30"), items); err != nil {
			return err
		}
		return tx.Commit()
	}

	// The second row references an unknown pattern and violates the foreign key.
	err := replace([]domain.Assignment{
		{ID: "n1", WorkerID: "w1", Date: d("2025-06-03"), PatternID: "E", CreatedAt: ts, UpdatedAt: ts},
		{ID: "n2", WorkerID: "w3", Date: d("2025-06-03"), PatternID: "missing", CreatedAt: ts, UpdatedAt: ts},
	})
	require.Error(t, err)
	all, err := r.ListAssignments(ctx, repo.AssignmentFilters{})
	require.NoError(t, err)
	require.Equal(t, []string{"keep"}, assignmentIDs(all))

	require.Error(t, replace([]domain.Assignment{{ID: "x", WorkerID: "w1", Date: d("2025-07-01"), PatternID: "E"}}))

	require.NoError(t, replace([]domain.Assignment{
		{ID: "n1", WorkerID: "w1", Date: d("2025-06-03"), PatternID: "E", CreatedAt: ts, UpdatedAt: ts},
	}))
	all, err = r.ListAssignments(ctx, repo.AssignmentFilters{})
	require.NoError(t, err)
	require.Equal(t, []string{"n1"}, assignmentIDs(all))

	_, err = r.ReplaceAssignmentsTx(ctx, (*sql.Tx)(nil), d("2025-06-01"), d("2025-06-30"), nil)
	require.Error(t, err)
}

func TestLeaveRequests(t *testing.T) {
	r, ctx := newRepo(t)
	seed(t, r, ctx)
	require.NoError(t, r.InsertLeaveRequest(ctx, nil, domain.LeaveRequest{ID: "l1", WorkerID: "w1", Date: d("2025-06-10"), Reason: "dentist", CreatedAt: ts}))
	require.NoError(t, r.InsertLeaveRequest(ctx, nil, domain.LeaveRequest{ID: "l2", WorkerID: "w2", Date: d("2025-06-20"), CreatedAt: ts}))

	items, err := r.ListLeaveRequests(ctx, repo.LeaveFilters{WorkerID: "w1"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "dentist", items[0].Reason)
	require.Equal(t, d("2025-06-10"), items[0].Date)

	items, err = r.ListLeaveRequests(ctx, repo.LeaveFilters{DateRange: repo.DateRange{From: d("2025-06-15")}})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Empty(t, items[0].Reason)

	require.NoError(t, r.DeleteLeaveRequest(ctx, nil, "l1"))
	_, err = r.GetLeaveRequest(ctx, "l1")
	require.ErrorIs(t, err, repo.ErrNotFound)
}

func TestConfigRoundTrip(t *testing.T) {
	r, ctx := newRepo(t)
	_, err := r.GetConfig(ctx)
	require.ErrorIs(t, err, repo.ErrNotFound)

	cfg := config.Default()
	cfg.Staffing.Baseline = 6
	require.NoError(t, r.UpsertConfig(ctx, nil, cfg))
	got, err := r.GetConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, 6, got.Staffing.Baseline)
	require.Equal(t, cfg.Patterns.Roles, got.Patterns.Roles)

	cfg.Rules.DailyCeiling = 0
	require.Error(t, r.UpsertConfig(ctx, nil, cfg))
}

func ids(ws []domain.Worker) []string {
	res := make([]string, len(ws))
	for i, w := range ws {
		res[i] = w.ID
	}
	return res
}

func assignmentIDs(as []domain.Assignment) []string {
	res := make([]string, len(as))
	for i, a := range as {
		res[i] = a.ID
	}
	return res
}
