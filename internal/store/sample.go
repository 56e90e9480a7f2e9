package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/geometry"
)

// Sample is a recorded training trajectory for a gesture entry.
type Sample struct {
	ID          int64           `json:"id"`
	EntryID     string          `json:"entry_id"`
	SampleIndex int             `json:"sample_index"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Points decodes the sample data as a point array.
func (s Sample) Points() ([]geometry.Point, error) {
	var points []geometry.Point
	if err := json.Unmarshal(s.Data, &points); err != nil {
		return nil, fmt.Errorf("decode sample %d: %w", s.SampleIndex, err)
	}
	return points, nil
}

// SampleRepository provides CRUD operations for training samples.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Create replaces the samples of an entry in a single transaction and
// updates the sample count on the entry.
func (r *SampleRepository) Create(entryID string, paths [][]geometry.Point) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := replaceSamples(tx, entryID, paths); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceSamples(tx *sql.Tx, entryID string, paths [][]geometry.Point) error {
	if _, err := tx.Exec(`DELETE FROM entry_samples WHERE entry_id = ?`, entryID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO entry_samples (entry_id, sample_index, data) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, path := range paths {
		data, err := json.Marshal(path)
		if err != nil {
			return fmt.Errorf("encode sample %d: %w", i, err)
		}
		if _, err := stmt.Exec(entryID, i, string(data)); err != nil {
			return err
		}
	}

	result, err := tx.Exec(`UPDATE entries SET samples = ?, updated_at = ? WHERE id = ?`,
		len(paths), time.Now(), entryID)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByEntryID retrieves all samples for a given entry in recording order.
func (r *SampleRepository) GetByEntryID(entryID string) ([]Sample, error) {
	rows, err := r.db.Query(
		`SELECT id, entry_id, sample_index, data, created_at
		 FROM entry_samples
		 WHERE entry_id = ?
		 ORDER BY sample_index`,
		entryID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		var data string
		if err := rows.Scan(&s.ID, &s.EntryID, &s.SampleIndex, &data, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Data = json.RawMessage(data)
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// DeleteByEntryID removes all samples for a given entry and resets its
// sample count.
func (r *SampleRepository) DeleteByEntryID(entryID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM entry_samples WHERE entry_id = ?`, entryID); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE entries SET samples = 0 WHERE id = ?`, entryID); err != nil {
		return err
	}
	return tx.Commit()
}
