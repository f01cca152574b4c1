package state

import (
	"database/sql"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"

	dbutil "github.com/llehouerou/riptide/internal/db"
)

const (
	appName      = "riptide"
	dbFileName   = "riptide.db"
	saveDebounce = 500 * time.Millisecond
)

type Manager struct {
	db        *sql.DB
	saveMu    sync.Mutex
	saveTimer *time.Timer
	pending   *QueueState
	saveErr   func(error)
}

// Open opens the state database in the XDG data directory.
func Open() (*Manager, error) {
	dbPath, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return OpenPath(dbPath)
}

// OpenPath opens the state database at path. Use db.Memory for a
// throwaway database.
func OpenPath(path string) (*Manager, error) {
	db, err := dbutil.Open(path)
	if err != nil {
		return nil, err
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Manager{db: db}, nil
}

// OnSaveError registers a handler for failures of debounced saves.
func (m *Manager) OnSaveError(fn func(error)) {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()
	m.saveErr = fn
}

func (m *Manager) Close() error {
	m.saveMu.Lock()
	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}
	pending := m.pending
	m.pending = nil
	m.saveMu.Unlock()

	// Flush pending state
	if pending != nil {
		_ = saveQueue(m.db, *pending)
	}

	return m.db.Close()
}

func (m *Manager) DB() *sql.DB {
	return m.db
}

func (m *Manager) GetQueue() (*QueueState, error) {
	return getQueue(m.db)
}

func (m *Manager) SaveQueue(state QueueState) error {
	return saveQueue(m.db, state)
}

// SaveQueueDebounced coalesces rapid queue changes into one write.
func (m *Manager) SaveQueueDebounced(state QueueState) {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	m.pending = &state

	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}

	m.saveTimer = time.AfterFunc(saveDebounce, func() {
		m.saveMu.Lock()
		pending := m.pending
		m.pending = nil
		onErr := m.saveErr
		m.saveMu.Unlock()

		if pending == nil {
			return
		}
		if err := saveQueue(m.db, *pending); err != nil && onErr != nil {
			onErr(err)
		}
	})
}

// DefaultPath returns the state database location.
func DefaultPath() (string, error) {
	return xdg.DataFile(filepath.Join(appName, dbFileName))
}
