package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

// DefaultDir holds the Postgres migrations, relative to the repository root.
const DefaultDir = "pkg/migrate/migrations"

// Commands that go through goose unchanged.
const (
	CmdUp     = "up"
	CmdDown   = "down"
	CmdStatus = "status"
	CmdRedo   = "redo"
)

// Runner applies goose migrations from one directory to one database.
// The migrations target Postgres; sqlite databases use ApplySQLite.
type Runner struct {
	db  *sql.DB
	dir string
}

func NewRunner(db *sql.DB, dir string) (*Runner, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	return &Runner{db: db, dir: dir}, nil
}

// Exec runs a plain goose command such as up, down, status or redo.
func (r *Runner) Exec(ctx context.Context, command string, args ...string) error {
	if err := goose.RunContext(ctx, command, r.db, r.dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// Current returns the version recorded in the goose version table.
func (r *Runner) Current() (int64, error) {
	v, err := goose.GetDBVersion(r.db)
	if err != nil {
		return 0, fmt.Errorf("get db version: %w", err)
	}
	return v, nil
}

// To moves the schema up or down until it sits exactly at target.
func (r *Runner) To(ctx context.Context, target int64) error {
	current, err := r.Current()
	if err != nil {
		return err
	}
	switch {
	case target > current:
		err = goose.UpToContext(ctx, r.db, r.dir, target)
	case target < current:
		err = goose.DownToContext(ctx, r.db, r.dir, target)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %d -> %d: %w", current, target, err)
	}
	return nil
}
