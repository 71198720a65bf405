package manifest

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SourceStatus is a row from the manifest_sources table: one configured
// manifest source and the outcome of its last fetch and availability
// check.
type SourceStatus struct {
	Name       string
	URL        string
	LastFetch  *int64
	LastStatus *int
	LastError  *string
	RowCount   *int
	UpdatedAt  int64
}

// SourceDB tracks manifest sources in SQLite. Diagnostics only: the
// resolver never consults it.
type SourceDB struct {
	db *sql.DB
}

// OpenSourceDB opens (or creates) the SQLite database at path and
// ensures the manifest_sources table exists.
func OpenSourceDB(path string) (*SourceDB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open source db: %w", err)
	}

	const ddl = `CREATE TABLE IF NOT EXISTS manifest_sources (
		name        TEXT PRIMARY KEY,
		url         TEXT NOT NULL,
		last_fetch  INTEGER,
		last_status INTEGER,
		last_error  TEXT,
		row_count   INTEGER,
		updated_at  INTEGER NOT NULL
	)`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("create manifest_sources table: %w", err)
	}

	return &SourceDB{db: db}, nil
}

// Close closes the SQLite connection.
func (s *SourceDB) Close() error {
	return s.db.Close()
}

// Seed registers a source if it is not known yet (existing rows are
// left untouched so manual URL overrides survive restarts).
func (s *SourceDB) Seed(name, url string) error {
	const q = `INSERT OR IGNORE INTO manifest_sources (name, url, updated_at) VALUES (?, ?, ?)`
	if _, err := s.db.Exec(q, name, url, time.Now().Unix()); err != nil {
		return fmt.Errorf("seed source %s: %w", name, err)
	}
	return nil
}

// RecordFetch persists the outcome of a manifest fetch.
func (s *SourceDB) RecordFetch(name string, status int, fetchErr string, rows int) error {
	now := time.Now().Unix()
	var errPtr *string
	if fetchErr != "" {
		errPtr = &fetchErr
	}
	res, err := s.db.Exec(
		`UPDATE manifest_sources
		 SET last_fetch = ?, last_status = ?, last_error = ?, row_count = ?, updated_at = ?
		 WHERE name = ?`,
		now, status, errPtr, rows, now, name,
	)
	if err != nil {
		return fmt.Errorf("record fetch for %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("source %s not found in manifest_sources", name)
	}
	return nil
}

// RecordCheck persists the result of an availability probe.
func (s *SourceDB) RecordCheck(name string, status int, checkErr string) error {
	var errPtr *string
	if checkErr != "" {
		errPtr = &checkErr
	}
	_, err := s.db.Exec(
		`UPDATE manifest_sources SET last_status = ?, last_error = ?, updated_at = ? WHERE name = ?`,
		status, errPtr, time.Now().Unix(), name,
	)
	if err != nil {
		return fmt.Errorf("record check for %s: %w", name, err)
	}
	return nil
}

// List returns all tracked sources ordered by name.
func (s *SourceDB) List() ([]SourceStatus, error) {
	rows, err := s.db.Query(`SELECT name, url, last_fetch, last_status, last_error, row_count, updated_at
		FROM manifest_sources ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []SourceStatus
	for rows.Next() {
		var st SourceStatus
		if err := rows.Scan(&st.Name, &st.URL, &st.LastFetch, &st.LastStatus,
			&st.LastError, &st.RowCount, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
