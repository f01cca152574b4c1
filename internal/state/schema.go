package state

import (
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// The queue_state row doubles as the settings row: one queue per user.
const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS queue_state (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	current_index INTEGER NOT NULL DEFAULT -1,
	loop          INTEGER NOT NULL DEFAULT 0,
	volume        REAL    NOT NULL DEFAULT 1.0,
	muted         INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS queue_items (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	position    INTEGER NOT NULL UNIQUE,
	identifier  TEXT    NOT NULL,
	url         TEXT    NOT NULL,
	title       TEXT,
	artist      TEXT,
	artwork_url TEXT,
	mime_type   TEXT,
	is_live     INTEGER NOT NULL DEFAULT 0
);
`

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	if _, err := db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}
