package state

import (
	"database/sql"
	"errors"
	"fmt"
)

// VolumeState is the saved output level.
type VolumeState struct {
	Volume float64 // 0..1
	Muted  bool
}

var defaultVolume = VolumeState{Volume: 1}

// GetVolume returns the saved volume, full volume when nothing was saved.
func (m *Manager) GetVolume() (*VolumeState, error) {
	v := defaultVolume
	err := m.db.QueryRow(`SELECT volume, muted FROM queue_state WHERE id = 1`).Scan(&v.Volume, &v.Muted)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		v = defaultVolume
	case err != nil:
		return nil, fmt.Errorf("load volume: %w", err)
	}
	return &v, nil
}

// SaveVolume stores volume clamped to 0..1. The queue columns are left alone.
func (m *Manager) SaveVolume(volume float64, muted bool) error {
	volume = min(max(volume, 0), 1)
	_, err := m.db.Exec(`
		INSERT INTO queue_state (id, volume, muted) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET volume = excluded.volume, muted = excluded.muted`,
		volume, muted)
	if err != nil {
		return fmt.Errorf("save volume: %w", err)
	}
	return nil
}
