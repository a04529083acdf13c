package store

// runMigrations creates the history schema.
func (s *Store) runMigrations() error {
	migrations := []string{
		// One row per coaching run (a replay or a live pipeline).
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL DEFAULT '',
			reference_id TEXT NOT NULL DEFAULT '',
			reference_kind TEXT NOT NULL DEFAULT '' CHECK(reference_kind IN ('', 'pose', 'sequence')),
			tolerance REAL NOT NULL DEFAULT 1.0,
			started_at DATETIME NOT NULL,
			ended_at DATETIME
		)`,

		// One row per evaluated frame.
		`CREATE TABLE IF NOT EXISTS evaluations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			frame INTEGER NOT NULL,
			elapsed_ms INTEGER NOT NULL DEFAULT 0,
			reference_index INTEGER NOT NULL DEFAULT 0,
			condition TEXT NOT NULL DEFAULT '',
			feedback TEXT NOT NULL CHECK(feedback IN ('good', 'bad', 'no_evaluation')),
			reason TEXT NOT NULL DEFAULT '',
			method TEXT NOT NULL DEFAULT '',
			avg_distance REAL,
			max_distance REAL,
			distance_quality TEXT NOT NULL DEFAULT '',
			confidence REAL,
			advised INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_evaluations_session_id ON evaluations(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
