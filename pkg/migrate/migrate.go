// Package migrate drives goose against the postgres schema under
// migrations/ and ships the file helpers used by cmd/migrate.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/foodops-backend/pkg/logger"
)

const DefaultDir = "pkg/migrate/migrations"

type Command string

const (
	CommandUp     Command = "up"
	CommandDown   Command = "down"
	CommandRedo   Command = "redo"
	CommandStatus Command = "status"
)

// ParseCommand accepts the commands that need a database connection.
func ParseCommand(raw string) (Command, bool) {
	switch cmd := Command(raw); cmd {
	case CommandUp, CommandDown, CommandRedo, CommandStatus:
		return cmd, true
	}
	return "", false
}

func newProvider(db *sql.DB, dir string) (*goose.Provider, error) {
	if db == nil {
		return nil, errors.New("migrate: database handle is required")
	}
	if dir == "" {
		return nil, errors.New("migrate: directory is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("migrate: load %s: %w", dir, err)
	}
	return provider, nil
}

// Run executes cmd and logs one line per migration touched.
func Run(ctx context.Context, logg *logger.Logger, db *sql.DB, dir string, cmd Command) error {
	provider, err := newProvider(db, dir)
	if err != nil {
		return err
	}

	switch cmd {
	case CommandUp:
		results, err := provider.Up(ctx)
		logResults(ctx, logg, results...)
		return wrapGoose(cmd, err)
	case CommandDown:
		result, err := provider.Down(ctx)
		logResults(ctx, logg, result)
		return wrapGoose(cmd, err)
	case CommandRedo:
		down, err := provider.Down(ctx)
		logResults(ctx, logg, down)
		if err != nil {
			return wrapGoose(cmd, err)
		}
		up, err := provider.UpByOne(ctx)
		logResults(ctx, logg, up)
		return wrapGoose(cmd, err)
	case CommandStatus:
		statuses, err := provider.Status(ctx)
		if err != nil {
			return wrapGoose(cmd, err)
		}
		for _, st := range statuses {
			fields := map[string]any{"version": st.Source.Version, "file": st.Source.Path, "state": string(st.State)}
			if !st.AppliedAt.IsZero() {
				fields["applied_at"] = st.AppliedAt
			}
			logg.Info(logg.WithFields(ctx, fields), "migration status")
		}
		return nil
	default:
		return fmt.Errorf("migrate: unsupported command %q", cmd)
	}
}

// MigrateToVersion moves the schema up or down until target is the current
// version. target uses the YYYYMMDDHHMMSS prefix of the file name.
func MigrateToVersion(ctx context.Context, logg *logger.Logger, db *sql.DB, dir, target string) error {
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil || len(target) != len(versionLayout) {
		return fmt.Errorf("migrate: version %q is not a YYYYMMDDHHMMSS timestamp", target)
	}

	provider, err := newProvider(db, dir)
	if err != nil {
		return err
	}
	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("migrate: read current version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current < version:
		results, err = provider.UpTo(ctx, version)
	case current > version:
		results, err = provider.DownTo(ctx, version)
	}
	logResults(ctx, logg, results...)
	if err != nil {
		return fmt.Errorf("migrate: %d -> %d: %w", current, version, err)
	}
	return nil
}

func logResults(ctx context.Context, logg *logger.Logger, results ...*goose.MigrationResult) {
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		logg.Info(logg.WithFields(ctx, map[string]any{
			"version":     r.Source.Version,
			"file":        r.Source.Path,
			"direction":   r.Direction,
			"duration_ms": r.Duration.Milliseconds(),
		}), "migration applied")
	}
}

func wrapGoose(cmd Command, err error) error {
	if err == nil || errors.Is(err, goose.ErrNoNextVersion) {
		return nil
	}
	return fmt.Errorf("migrate: goose %s: %w", cmd, err)
}
