package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Layout of a shiftline workspace: <workspace>/.shiftline/shiftline.db holds workers,
// the pattern catalog, leave requests, assignments, the event log and the stored config.
const (
	StateDir = ".shiftline"
	File     = "shiftline.db"
)

// Pragmas applied on every connection. Cascading deletes of a worker's leave and
// assignments rely on foreign_keys being on.
const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

type Config struct {
	// Workspace is the directory holding StateDir; empty means the current directory.
	Workspace string
}

func (c Config) stateDir() string {
	ws := c.Workspace
	if ws == "" {
		ws = "."
	}
	return filepath.Join(ws, StateDir)
}

// EnsureWorkspace creates <workspace>/.shiftline and returns its path.
func EnsureWorkspace(workspace string) (string, error) {
	dir := Config{Workspace: workspace}.stateDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	return dir, nil
}

// Open returns a handle on the workspace schedule database, creating the state
// directory first. The pool is capped at one connection: a month generation
// replaces every assignment of the month in one transaction, and reads issued
// inside it must share that connection.
func Open(cfg Config) (*sql.DB, error) {
	if _, err := EnsureWorkspace(cfg.Workspace); err != nil {
		return nil, err
	}
	conn, err := sql.Open("sqlite", "file:"+Path(cfg.Workspace)+"?"+pragmas)
	if err != nil {
		return nil, fmt.Errorf("open schedule db: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("open schedule db %s: %w", Path(cfg.Workspace), err)
	}
	return conn, nil
}

// Path returns the schedule database file for the workspace.
func Path(workspace string) string {
	return filepath.Join(Config{Workspace: workspace}.stateDir(), File)
}
