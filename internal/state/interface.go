package state

import "database/sql"

// Interface is what the runtime and TUI need from the state store.
type Interface interface {
	// DB exposes the connection so the cache index and offline
	// bookkeeping can live in the same file.
	DB() *sql.DB

	SaveQueue(state QueueState) error
	SaveQueueDebounced(state QueueState)
	GetQueue() (*QueueState, error)

	GetVolume() (*VolumeState, error)
	SaveVolume(volume float64, muted bool) error

	Close() error
}

var _ Interface = (*Manager)(nil)
