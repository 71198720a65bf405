// Package deck stages slide selections and assembles them into a 16:9
// PPTX document: one slide per selected image, with a title, optional
// link, company logo and the product picture.
package deck

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Slide is one staged selection: a product image plus the title and
// link it will carry on its slide.
type Slide struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Link     string `json:"link,omitempty"`
	ImageURL string `json:"image_url"`
	Company  string `json:"company,omitempty"`
}

// Store persists the staged slide queue in SQLite so a half-built
// selection survives a restart. Single-user: the database serializes
// the occasional concurrent write.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the staging database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open staging db: %w", err)
	}

	const ddl = `CREATE TABLE IF NOT EXISTS slides (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		title     TEXT NOT NULL,
		link      TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL,
		company   TEXT NOT NULL DEFAULT ''
	)`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("create slides table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the SQLite connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add appends a slide to the queue and returns its id.
func (s *Store) Add(sl Slide) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO slides (title, link, image_url, company) VALUES (?, ?, ?, ?)`,
		sl.Title, sl.Link, sl.ImageURL, sl.Company,
	)
	if err != nil {
		return 0, fmt.Errorf("stage slide: %w", err)
	}
	return res.LastInsertId()
}

// List returns the staged slides in insertion order.
func (s *Store) List() ([]Slide, error) {
	rows, err := s.db.Query(`SELECT id, title, link, image_url, company FROM slides ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list slides: %w", err)
	}
	defer rows.Close()

	var slides []Slide
	for rows.Next() {
		var sl Slide
		if err := rows.Scan(&sl.ID, &sl.Title, &sl.Link, &sl.ImageURL, &sl.Company); err != nil {
			return nil, fmt.Errorf("scan slide: %w", err)
		}
		slides = append(slides, sl)
	}
	return slides, rows.Err()
}

// Remove deletes one staged slide.
func (s *Store) Remove(id int64) error {
	res, err := s.db.Exec(`DELETE FROM slides WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("remove slide %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("slide %d not staged", id)
	}
	return nil
}

// Clear empties the queue.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM slides`); err != nil {
		return fmt.Errorf("clear slides: %w", err)
	}
	return nil
}

// Count returns the number of staged slides.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM slides`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count slides: %w", err)
	}
	return n, nil
}
