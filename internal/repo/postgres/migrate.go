package postgres

import (
	"context"
	"fmt"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS heartbeat_subjects (
  name              TEXT PRIMARY KEY,
  description       TEXT NOT NULL DEFAULT '',
  last_seen_at      TIMESTAMPTZ NOT NULL,
  frequency_minutes INTEGER NOT NULL CHECK (frequency_minutes > 0),
  tolerance_seconds INTEGER NOT NULL DEFAULT 0,
  down_notified     BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS backup_subjects (
  name                          TEXT PRIMARY KEY,
  source_token                  TEXT NOT NULL DEFAULT '',
  frequency_minutes             INTEGER NOT NULL CHECK (frequency_minutes > 0),
  most_recent_artifact_at       TIMESTAMPTZ NOT NULL,
  most_recent_artifact_checksum TEXT NOT NULL DEFAULT '',
  description                   TEXT NOT NULL DEFAULT '',
  down_notified                 BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS probe_subjects (
  url           TEXT PRIMARY KEY,
  state         TEXT NOT NULL DEFAULT 'Up' CHECK (state IN ('Up', 'Down')),
  down_notified BOOLEAN NOT NULL DEFAULT FALSE
);
`

// Migrate creates the tables if they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
