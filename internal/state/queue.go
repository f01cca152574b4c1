package state

import (
	"context"
	"database/sql"
	"errors"

	dbutil "github.com/llehouerou/riptide/internal/db"
	"github.com/llehouerou/riptide/internal/media"
)

// QueueState represents the saved queue state.
type QueueState struct {
	CurrentIndex int
	Loop         bool
	Items        []media.Item
}

func getQueue(db *sql.DB) (*QueueState, error) {
	var currentIndex int
	var loop bool
	row := db.QueryRow(`SELECT current_index, loop FROM queue_state WHERE id = 1`)
	err := row.Scan(&currentIndex, &loop)
	if errors.Is(err, sql.ErrNoRows) {
		return &QueueState{CurrentIndex: -1}, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT identifier, url, title, artist, artwork_url, mime_type, is_live
		FROM queue_items
		ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []media.Item
	for rows.Next() {
		var it media.Item
		var title, artist, artwork, mime sql.NullString

		err := rows.Scan(&it.Identifier, &it.URL, &title, &artist, &artwork, &mime, &it.IsLive)
		if err != nil {
			return nil, err
		}

		it.Title = dbutil.NullStringValue(title)
		it.Artist = dbutil.NullStringValue(artist)
		it.ArtworkURL = dbutil.NullStringValue(artwork)
		it.MimeType = dbutil.NullStringValue(mime)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &QueueState{
		CurrentIndex: currentIndex,
		Loop:         loop,
		Items:        items,
	}, nil
}

func saveQueue(sqlDB *sql.DB, state QueueState) error {
	return dbutil.WithTx(context.Background(), sqlDB, func(tx *sql.Tx) error {
		// Clear existing queue
		_, err := tx.Exec(`DELETE FROM queue_items`)
		if err != nil {
			return err
		}

		_, err = tx.Exec(`
			INSERT INTO queue_state (id, current_index, loop)
			VALUES (1, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				current_index = excluded.current_index,
				loop = excluded.loop
		`, state.CurrentIndex, state.Loop)
		if err != nil {
			return err
		}

		stmt, err := tx.Prepare(`
			INSERT INTO queue_items (position, identifier, url, title, artist, artwork_url, mime_type, is_live)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, it := range state.Items {
			_, err = stmt.Exec(i, it.Identifier, it.URL,
				dbutil.NullString(it.Title), dbutil.NullString(it.Artist),
				dbutil.NullString(it.ArtworkURL), dbutil.NullString(it.MimeType), it.IsLive)
			if err != nil {
				return err
			}
		}
		return nil
	})
}
