// Package mpris exposes the playback service on the session bus as an
// MPRIS media player.
package mpris

import (
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/types"
	"github.com/sirupsen/logrus"

	"github.com/llehouerou/riptide/internal/media"
	"github.com/llehouerou/riptide/internal/playback"
	"github.com/llehouerou/riptide/internal/state"
)

const (
	busName  = "riptide"
	identity = "Riptide"

	minRate = 0.25
	maxRate = 4.0
)

// VolumeStore reads and persists the user volume.
type VolumeStore interface {
	GetVolume() (*state.VolumeState, error)
	SaveVolume(volume float64, muted bool) error
}

var _ VolumeStore = state.Interface(nil)

// Options configures an Adapter.
type Options struct {
	Volume VolumeStore
	// OnLoop is called after a client changes the loop status.
	OnLoop func(enabled bool)
	Logger logrus.FieldLogger
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct{}

func (r *rootAdapter) Raise() error { return nil }

// Quit is ignored; the terminal owns the lifecycle.
func (r *rootAdapter) Quit() error { return nil }

func (r *rootAdapter) CanQuit() (bool, error)      { return false, nil }
func (r *rootAdapter) CanRaise() (bool, error)     { return false, nil }
func (r *rootAdapter) HasTrackList() (bool, error) { return false, nil }
func (r *rootAdapter) Identity() (string, error)   { return identity, nil }

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"file", "http", "https"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{
		"audio/mpeg", "audio/flac", "audio/ogg", "audio/aac", "audio/mp4",
		"video/mp4", "application/x-mpegURL", "application/vnd.apple.mpegurl",
		"application/dash+xml",
	}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter and the loop
// status extension.
type playerAdapter struct {
	service playback.Service
	opts    Options
}

func newPlayerAdapter(service playback.Service, opts Options) *playerAdapter {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &playerAdapter{service: service, opts: opts}
}

func (p *playerAdapter) Next() error {
	p.service.Next()
	return nil
}

func (p *playerAdapter) Previous() error {
	p.service.Previous()
	return nil
}

func (p *playerAdapter) Pause() error {
	return ignoreNoItem(p.service.Pause())
}

func (p *playerAdapter) PlayPause() error {
	return ignoreNoItem(p.service.Toggle())
}

func (p *playerAdapter) Stop() error {
	return p.service.Stop(false)
}

func (p *playerAdapter) Play() error {
	return ignoreNoItem(p.service.Play())
}

func (p *playerAdapter) Seek(offset types.Microseconds) error {
	return ignoreNoItem(p.service.Seek(time.Duration(offset) * time.Microsecond))
}

// SetPosition is ignored unless trackID names the current item.
func (p *playerAdapter) SetPosition(trackID string, position types.Microseconds) error {
	item, ok := p.service.Current()
	if !ok || trackID != formatTrackID(item) {
		return nil
	}
	return ignoreNoItem(p.service.SeekTo(time.Duration(position) * time.Microsecond))
}

// OpenUri replaces the queue with uri and plays it.
//
//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(uri string) error {
	item := media.Item{Identifier: uri, URL: uri}
	if err := item.Validate(); err != nil {
		return err
	}
	if err := p.service.SetQueue([]media.Item{item}, 0); err != nil {
		return err
	}
	return p.service.Play()
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	return playbackStatus(p.service.Snapshot().State), nil
}

func playbackStatus(s playback.State) types.PlaybackStatus {
	switch s {
	case playback.StatePlaying, playback.StateBuffering:
		return types.PlaybackStatusPlaying
	case playback.StatePaused:
		return types.PlaybackStatusPaused
	case playback.StateIdle, playback.StateEnded, playback.StateError:
		return types.PlaybackStatusStopped
	}
	return types.PlaybackStatusStopped
}

func (p *playerAdapter) Rate() (float64, error) {
	if speed := p.service.Snapshot().Speed; speed > 0 {
		return speed, nil
	}
	return 1.0, nil
}

func (p *playerAdapter) SetRate(rate float64) error {
	// A rate of zero means pause.
	if rate == 0 {
		return p.Pause()
	}
	return ignoreNoItem(p.service.SetSpeed(min(max(rate, minRate), maxRate)))
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	snap := p.service.Snapshot()
	if !snap.HasItem() {
		return types.Metadata{}, nil
	}
	return metadata(snap), nil
}

func metadata(snap playback.Event) types.Metadata {
	item := snap.Item
	meta := types.Metadata{
		TrackId: dbus.ObjectPath(formatTrackID(item)),
		Length:  types.Microseconds(snap.Duration.Microseconds()),
		Title:   item.DisplayTitle(),
	}
	if item.Artist != "" {
		meta.Artist = []string{item.Artist}
	}
	if art := ArtworkURL(item); art != "" {
		meta.ArtUrl = art
	}
	return meta
}

func (p *playerAdapter) Volume() (float64, error) {
	if p.opts.Volume == nil {
		return 1.0, nil
	}
	v, err := p.opts.Volume.GetVolume()
	if err != nil || v == nil {
		return 1.0, err
	}
	if v.Muted {
		return 0, nil
	}
	return v.Volume, nil
}

func (p *playerAdapter) SetVolume(volume float64) error {
	volume = min(max(volume, 0), 1)
	if err := p.service.SetVolume(volume); err != nil {
		return err
	}
	if p.opts.Volume != nil {
		if err := p.opts.Volume.SaveVolume(volume, false); err != nil {
			p.opts.Logger.WithError(err).Warn("saving volume failed")
		}
	}
	return nil
}

func (p *playerAdapter) Position() (int64, error) {
	return p.service.Snapshot().Position.Microseconds(), nil
}

func (p *playerAdapter) MinimumRate() (float64, error) { return minRate, nil }
func (p *playerAdapter) MaximumRate() (float64, error) { return maxRate, nil }

func (p *playerAdapter) CanGoNext() (bool, error) {
	n := len(p.service.QueueItems())
	return n > 0 && (p.service.Loop() || p.service.QueueIndex() < n-1), nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	n := len(p.service.QueueItems())
	return n > 0 && (p.service.Loop() || p.service.QueueIndex() > 0), nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	_, ok := p.service.Current()
	return ok, nil
}

func (p *playerAdapter) CanPause() (bool, error) {
	return p.service.Snapshot().State.IsActive(), nil
}

// CanSeek is false for live items and while nothing is loaded.
func (p *playerAdapter) CanSeek() (bool, error) {
	snap := p.service.Snapshot()
	return snap.State.IsActive() && !snap.Item.IsLive, nil
}

func (p *playerAdapter) CanControl() (bool, error) { return true, nil }

// LoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
// The queue only loops as a whole, so Track reads back as Playlist.
func (p *playerAdapter) LoopStatus() (types.LoopStatus, error) {
	if p.service.Loop() {
		return types.LoopStatusPlaylist, nil
	}
	return types.LoopStatusNone, nil
}

// SetLoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) SetLoopStatus(status types.LoopStatus) error {
	enabled := status != types.LoopStatusNone
	p.service.SetLoop(enabled)
	if p.opts.OnLoop != nil {
		p.opts.OnLoop(enabled)
	}
	return nil
}

// ignoreNoItem turns "nothing loaded" into a no-op, as MPRIS clients
// expect for controls on an empty player.
func ignoreNoItem(err error) error {
	if errors.Is(err, playback.ErrNoCurrentItem) {
		return nil
	}
	return err
}

func formatTrackID(item media.Item) string {
	h := fnv.New64a()
	h.Write([]byte(item.Identifier))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/riptide/track/%x", h.Sum64())
}
