// Package app contains the TUI model and the runtime that wires the
// playback service to its cache, engine and state.
package app

import (
	"time"

	"github.com/llehouerou/riptide/internal/engine"
	"github.com/llehouerou/riptide/internal/playback"
)

// TickMsg refreshes playback progress.
type TickMsg time.Time

// PlaybackEventMsg carries a snapshot from the playback subscription.
type PlaybackEventMsg playback.Event

// ServiceClosedMsg is sent once the playback service shuts down.
type ServiceClosedMsg struct{}

// DownloadProgressMsg reports an offline download's progress.
type DownloadProgressMsg struct {
	Key      string
	Progress engine.Progress
}

// DownloadDoneMsg is sent when an offline download finishes or fails.
type DownloadDoneMsg struct {
	Key   string
	Title string
	Err   error
}

// OfflineRemovedMsg is sent after an offline copy was removed.
type OfflineRemovedMsg struct {
	Title string
	Err   error
}

// PreloadedMsg reports the keys a manual preload scheduled.
type PreloadedMsg struct {
	Keys []string
}

// ClearStatusMsg clears the status line if it still shows version.
type ClearStatusMsg struct {
	Version int
}
