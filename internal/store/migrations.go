package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// One row per finished session
		`CREATE TABLE IF NOT EXISTS training_sessions (
			id TEXT PRIMARY KEY,
			exercise_type TEXT NOT NULL,
			target_reps INTEGER NOT NULL,
			target_sets INTEGER NOT NULL,
			rest_ms INTEGER NOT NULL,
			outcome TEXT NOT NULL CHECK(outcome IN ('completed', 'stopped', 'errored')),
			error TEXT NOT NULL DEFAULT '',
			started_at DATETIME NOT NULL,
			ended_at DATETIME NOT NULL
		)`,

		// Completed sets, in order
		`CREATE TABLE IF NOT EXISTS session_sets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES training_sessions(id) ON DELETE CASCADE,
			set_number INTEGER NOT NULL,
			reps INTEGER NOT NULL,
			average_score REAL NOT NULL,
			best_rep_score REAL,
			worst_rep_score REAL,
			duration_ms INTEGER NOT NULL,
			UNIQUE(session_id, set_number)
		)`,

		// Per-set issue counts
		`CREATE TABLE IF NOT EXISTS set_issues (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			set_id INTEGER NOT NULL REFERENCES session_sets(id) ON DELETE CASCADE,
			issue_type TEXT NOT NULL,
			message TEXT NOT NULL,
			priority TEXT NOT NULL,
			count INTEGER NOT NULL,
			position INTEGER NOT NULL
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_training_sessions_started_at ON training_sessions(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_training_sessions_exercise ON training_sessions(exercise_type)`,
		`CREATE INDEX IF NOT EXISTS idx_session_sets_session_id ON session_sets(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_set_issues_set_id ON set_issues(set_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
