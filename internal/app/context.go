package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"shiftline/internal/config"
	"shiftline/internal/engine"
	"shiftline/internal/repo"
)

// ResolveConfig returns the scheduling config stored in the DB, seeding the default on first use.
func ResolveConfig(ctx context.Context, r repo.Repo) (*config.Config, error) {
	cfg, err := r.GetConfig(ctx)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	cfg = config.Default()
	if err := r.UpsertConfig(ctx, nil, cfg); err != nil {
		return nil, fmt.Errorf("seed config: %w", err)
	}
	return cfg, nil
}

// OpenEngine resolves the config, seeds the pattern catalog when the store has none and returns a ready engine.
func OpenEngine(ctx context.Context, conn *sql.DB, logger *zap.Logger) (engine.Engine, error) {
	r := repo.Repo{DB: conn}
	cfg, err := ResolveConfig(ctx, r)
	if err != nil {
		return engine.Engine{}, err
	}
	e := engine.New(conn, cfg)
	if logger != nil {
		e.Logger = logger
	}
	added, err := e.SeedPatterns(ctx, SeedOptions(cfg))
	if err != nil {
		return engine.Engine{}, fmt.Errorf("seed patterns: %w", err)
	}
	if added > 0 {
		e.Logger.Info("seeded pattern catalog", zap.Int("patterns", added))
	}
	return e, nil
}

// SeedOptions converts the configured catalog seed.
func SeedOptions(cfg *config.Config) []engine.PatternCreateOptions {
	res := make([]engine.PatternCreateOptions, 0, len(cfg.Patterns.Seed))
	for _, s := range cfg.Patterns.Seed {
		res = append(res, engine.PatternCreateOptions{
			Name:         s.Name,
			Start:        s.Start,
			End:          s.End,
			BreakMinutes: s.BreakMinutes,
		})
	}
	return res
}
