package store

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
)

// migrations[i] переводит схему с версии i на i+1.
var migrations = []string{
	`CREATE TABLE bots (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		username   TEXT NOT NULL,
		server     TEXT NOT NULL,
		port       INTEGER NOT NULL DEFAULT 25565,
		version    TEXT NOT NULL DEFAULT '1.20.2',
		status     TEXT NOT NULL DEFAULT 'offline',
		config     TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`ALTER TABLE bots ADD COLUMN last_seen DATETIME`,
	`CREATE INDEX IF NOT EXISTS idx_bots_status ON bots(status)`,
}

func (s *Store) migrate(ctx context.Context) error {
	var version int
	if err := s.db.GetContext(ctx, &version, `PRAGMA user_version`); err != nil {
		return errors.Wrap(err, "reading schema version")
	}
	for i := version; i < len(migrations); i++ {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return errors.WithStack(err)
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "migration %d", i+1)
		}
		// PRAGMA не принимает параметры
		if _, err := tx.ExecContext(ctx, "PRAGMA user_version = "+strconv.Itoa(i+1)); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "migration %d", i+1)
		}
		if err := tx.Commit(); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}
