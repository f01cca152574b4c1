//go:build linux

package mpris

import (
	"github.com/quarckster/go-mpris-server/pkg/server"

	"github.com/llehouerou/riptide/internal/playback"
)

// Adapter serves the playback service over D-Bus.
type Adapter struct {
	server *server.Server
}

// New starts serving service on the session bus. Listen errors, such as a
// missing session bus, are logged rather than returned.
func New(service playback.Service, opts Options) (*Adapter, error) {
	player := newPlayerAdapter(service, opts)
	a := &Adapter{server: server.NewServer(busName, &rootAdapter{}, player)}

	go func() {
		if err := a.server.Listen(); err != nil {
			player.opts.Logger.WithError(err).Debug("mpris server stopped")
		}
	}()
	return a, nil
}

// Close releases the bus name.
func (a *Adapter) Close() error {
	return a.server.Stop()
}
