//go:build !linux

package mpris

import "github.com/llehouerou/riptide/internal/playback"

// Adapter is a no-op on platforms without a session bus.
type Adapter struct{}

func New(_ playback.Service, _ Options) (*Adapter, error) {
	return &Adapter{}, nil
}

func (a *Adapter) Close() error {
	return nil
}
