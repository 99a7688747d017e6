package db

import "fmt"

// migrate runs database migrations.
func (s *SQLite) migrate() error {
	query := `
		CREATE TABLE IF NOT EXISTS snapshots (
			id           INTEGER PRIMARY KEY CHECK(id = 1),
			payload      TEXT NOT NULL,
			group_count  INTEGER NOT NULL DEFAULT 0,
			exam_count   INTEGER NOT NULL DEFAULT 0,
			saved_at     DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS settlements (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			outcome      TEXT NOT NULL CHECK(outcome IN ('committed', 'cancelled', 'failed')),
			entity_kind  TEXT NOT NULL,
			group_id     INTEGER NOT NULL,
			label        TEXT NOT NULL,
			target_date  DATE,
			target_slot  TEXT,
			room         TEXT,
			exam_id      INTEGER,
			error        TEXT,
			recorded_at  DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_settlements_recorded ON settlements(recorded_at);
		CREATE INDEX IF NOT EXISTS idx_settlements_group ON settlements(group_id);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}

	return nil
}
