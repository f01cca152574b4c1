package offline

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Record is one stored mapping.
type Record struct {
	Key       string
	Location  string
	UpdatedAt time.Time
}

// SQLite stores locations in a table of an existing database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite creates the offline_locations table if needed.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS offline_locations (
			key TEXT PRIMARY KEY,
			location TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Put(ctx context.Context, key, location string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO offline_locations (key, location, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			location = excluded.location,
			updated_at = excluded.updated_at
	`, key, location, time.Now().Unix())
	return err
}

func (s *SQLite) Get(ctx context.Context, key string) (string, error) {
	var loc string
	err := s.db.QueryRowContext(ctx, `SELECT location FROM offline_locations WHERE key = ?`, key).Scan(&loc)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return loc, nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM offline_locations WHERE key = ?`, key)
	return err
}

// List returns every record, most recently updated first.
func (s *SQLite) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, location, updated_at
		FROM offline_locations
		ORDER BY updated_at DESC, key
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var updated int64
		if err := rows.Scan(&r.Key, &r.Location, &updated); err != nil {
			return nil, err
		}
		r.UpdatedAt = time.Unix(updated, 0)
		out = append(out, r)
	}
	return out, rows.Err()
}

var _ Locations = (*SQLite)(nil)
