package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/geometry"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Kind identifies which recognizer library an entry belongs to.
type Kind string

const (
	// KindGesture is a motion trajectory for the gesture recognizer.
	KindGesture Kind = "gesture"
	// KindShape is a contour template for the shape matcher.
	KindShape Kind = "shape"
)

// Entry is a named library item. Only the raw points are stored; derived
// data such as resampled references or feature vectors is rebuilt by the
// recognizers on load.
type Entry struct {
	ID        string
	Kind      Kind
	Name      string
	Tolerance float64 // gesture entries only
	Samples   int     // number of recorded training samples
	Points    []geometry.Point
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EntryRepository provides CRUD operations for library entries.
type EntryRepository struct {
	db *sql.DB
}

// Entries returns the entry repository for this store.
func (s *Store) Entries() *EntryRepository {
	return &EntryRepository{db: s.db}
}

// Create inserts a new entry and its points. An empty ID is filled with a
// fresh UUID.
func (r *EntryRepository) Create(e *Entry) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := createEntry(tx, e); err != nil {
		return err
	}
	return tx.Commit()
}

func createEntry(tx *sql.Tx, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now
	e.Samples = 0

	_, err := tx.Exec(
		`INSERT INTO entries (id, kind, name, tolerance, samples, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Kind), e.Name, e.Tolerance, e.Samples, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert entry %q: %w", e.Name, err)
	}

	return insertPoints(tx, e.ID, e.Points)
}

// GetByID retrieves an entry and its points by ID.
func (r *EntryRepository) GetByID(id string) (*Entry, error) {
	return r.get(`SELECT id, kind, name, tolerance, samples, created_at, updated_at
		 FROM entries WHERE id = ?`, id)
}

// GetByName retrieves an entry and its points by kind and name.
func (r *EntryRepository) GetByName(kind Kind, name string) (*Entry, error) {
	return r.get(`SELECT id, kind, name, tolerance, samples, created_at, updated_at
		 FROM entries WHERE kind = ? AND name = ?`, string(kind), name)
}

func (r *EntryRepository) get(query string, args ...interface{}) (*Entry, error) {
	e := &Entry{}
	var kind string

	err := r.db.QueryRow(query, args...).
		Scan(&e.ID, &kind, &e.Name, &e.Tolerance, &e.Samples, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	e.Kind = Kind(kind)

	e.Points, err = r.points(e.ID)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// List retrieves all entries of a kind, with points, ordered by name.
func (r *EntryRepository) List(kind Kind) ([]*Entry, error) {
	rows, err := r.db.Query(
		`SELECT id, kind, name, tolerance, samples, created_at, updated_at
		 FROM entries WHERE kind = ? ORDER BY name`,
		string(kind),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		var k string

		if err := rows.Scan(&e.ID, &k, &e.Name, &e.Tolerance, &e.Samples, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}

		e.Kind = Kind(k)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Load points once the cursor is released.
	rows.Close()
	for _, e := range entries {
		if e.Points, err = r.points(e.ID); err != nil {
			return nil, err
		}
	}

	return entries, nil
}

// Update replaces an existing entry's name, tolerance and points. Recorded
// samples belong to the old points and are dropped.
func (r *EntryRepository) Update(e *Entry) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := updateEntry(tx, e); err != nil {
		return err
	}
	return tx.Commit()
}

func updateEntry(tx *sql.Tx, e *Entry) error {
	e.UpdatedAt = time.Now()
	e.Samples = 0

	result, err := tx.Exec(
		`UPDATE entries SET name = ?, tolerance = ?, samples = ?, updated_at = ?
		 WHERE id = ?`,
		e.Name, e.Tolerance, e.Samples, e.UpdatedAt, e.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(`DELETE FROM entry_samples WHERE entry_id = ?`, e.ID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM entry_points WHERE entry_id = ?`, e.ID); err != nil {
		return err
	}
	return insertPoints(tx, e.ID, e.Points)
}

// Save creates the entry, or updates the existing entry with the same kind
// and name in place, keeping its ID and creation time. Samples recorded for
// the previous points are dropped.
func (r *EntryRepository) Save(e *Entry) error {
	return r.SaveWithSamples(e, nil)
}

// SaveWithSamples saves the entry like Save and stores paths as its
// recorded samples, all in one transaction.
func (r *EntryRepository) SaveWithSamples(e *Entry, paths [][]geometry.Point) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id string
	var createdAt time.Time
	err = tx.QueryRow(`SELECT id, created_at FROM entries WHERE kind = ? AND name = ?`,
		string(e.Kind), e.Name).Scan(&id, &createdAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = createEntry(tx, e)
	case err == nil:
		e.ID = id
		err = updateEntry(tx, e)
		e.CreatedAt = createdAt
	}
	if err != nil {
		return err
	}

	if len(paths) > 0 {
		if err := replaceSamples(tx, e.ID, paths); err != nil {
			return err
		}
		e.Samples = len(paths)
	}

	return tx.Commit()
}

// Delete removes an entry, its points and its samples by ID.
func (r *EntryRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Count returns the number of entries of a kind.
func (r *EntryRepository) Count(kind Kind) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM entries WHERE kind = ?`, string(kind)).Scan(&n)
	return n, err
}

func (r *EntryRepository) points(entryID string) ([]geometry.Point, error) {
	rows, err := r.db.Query(
		`SELECT x, y FROM entry_points WHERE entry_id = ? ORDER BY sequence`,
		entryID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []geometry.Point
	for rows.Next() {
		var p geometry.Point
		if err := rows.Scan(&p.X, &p.Y); err != nil {
			return nil, err
		}
		points = append(points, p)
	}

	return points, rows.Err()
}

func insertPoints(tx *sql.Tx, entryID string, points []geometry.Point) error {
	stmt, err := tx.Prepare(`INSERT INTO entry_points (entry_id, sequence, x, y) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, p := range points {
		if _, err := stmt.Exec(entryID, i, p.X, p.Y); err != nil {
			return fmt.Errorf("insert point %d: %w", i, err)
		}
	}
	return nil
}
