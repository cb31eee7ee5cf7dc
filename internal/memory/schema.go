package memory

// migrate creates the necessary tables and indexes if they don't exist.
func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS memory_schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM memory_schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return err
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Records},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := s.db.Begin()
		if err != nil {
			return err
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return err
		}

		if _, err := tx.Exec("INSERT INTO memory_schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}

const migrationV1Records = `
CREATE TABLE IF NOT EXISTS memory_records (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	content TEXT NOT NULL,
	embedding TEXT NOT NULL,
	context_tag TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL,
	last_accessed_at DATETIME,
	access_count INTEGER NOT NULL DEFAULT 0,
	relevance_score REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_memory_records_kind ON memory_records(kind);
CREATE INDEX IF NOT EXISTS idx_memory_records_context_tag ON memory_records(context_tag);
CREATE INDEX IF NOT EXISTS idx_memory_records_created_at ON memory_records(created_at);
`
