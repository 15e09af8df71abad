package db

import "fmt"

// migrations run in order; PRAGMA user_version records how many have run.
var migrations = []string{
	`
		CREATE TABLE IF NOT EXISTS tasks (
			user_id    TEXT NOT NULL,
			id         TEXT NOT NULL,
			title      TEXT NOT NULL CHECK(length(trim(title)) > 0),
			completed  INTEGER NOT NULL DEFAULT 0,
			ord        INTEGER NOT NULL DEFAULT 0 CHECK(ord >= 0),
			date       TEXT,
			hour       TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, id)
		);

		CREATE INDEX IF NOT EXISTS idx_tasks_slot ON tasks(user_id, date, hour);
	`,
	`
		ALTER TABLE tasks ADD COLUMN updated_at DATETIME;
	`,
}

// migrate brings the schema up to date.
func (s *SQLite) migrate() error {
	var version int
	if err := s.db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for i := version; i < len(migrations); i++ {
		if _, err := s.db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("applying migration %d: %w", i+1, err)
		}
		// PRAGMA does not take bound parameters.
		if _, err := s.db.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, i+1)); err != nil {
			return fmt.Errorf("recording schema version %d: %w", i+1, err)
		}
	}

	return nil
}
