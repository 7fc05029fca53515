package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"shiftline/internal/config"
	"shiftline/internal/events"
	"shiftline/internal/repo"
	"shiftline/internal/schedule"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrDuplicateAssignment = errors.New("worker already has an assignment on this date")
	ErrPatternInUse        = errors.New("pattern is used by assignments")
)

// Engine orchestrates the store, the event log and the pure scheduling functions. Copies share the
// per-month generation locks.
type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
	Logger *zap.Logger

	locks *xsync.Map[string, *sync.Mutex]
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
		Logger: zap.NewNop(),
		locks:  xsync.NewMap[string, *sync.Mutex](),
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) stamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) log() *zap.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return zap.NewNop()
}

func (e Engine) config() (*config.Config, error) {
	if e.Config == nil {
		return nil, errors.New("config not loaded")
	}
	return e.Config, nil
}

// monthLock returns the mutex guarding generation of one month. An Engine not built by New has no lock map
// and gets an unshared mutex.
func (e Engine) monthLock(month schedule.YearMonth) *sync.Mutex {
	if e.locks == nil {
		return &sync.Mutex{}
	}
	mu, _ := e.locks.LoadOrStore(month.String(), &sync.Mutex{})
	return mu
}

func (e Engine) checker() schedule.Checker {
	if e.Config == nil {
		return schedule.Checker{}
	}
	return schedule.Checker{DailyCeiling: e.Config.Rules.DailyCeiling}
}

// withTx runs fn in a transaction and commits when it returns nil.
func (e Engine) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// UpdateConfig validates and stores cfg and logs the change.
func (e Engine) UpdateConfig(ctx context.Context, cfg *config.Config, actorID string) error {
	if cfg == nil {
		return invalid("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return e.withTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.UpsertConfig(ctx, tx, cfg); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.ConfigUpdated, "config", "scheduling", actorID, events.EventPayload{
			"baseline":      cfg.Staffing.Baseline,
			"daily_ceiling": cfg.Rules.DailyCeiling,
		})
	})
}
