package app

import (
	"context"
	"fmt"
	"math"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/llehouerou/riptide/internal/app/handler"
	"github.com/llehouerou/riptide/internal/cachepolicy"
	"github.com/llehouerou/riptide/internal/errmsg"
	"github.com/llehouerou/riptide/internal/keymap"
)

const (
	seekShort  = 5 * time.Second
	seekLong   = 30 * time.Second
	speedStep  = 0.25
	minSpeed   = 0.25
	maxSpeed   = 4
	volumeStep = 0.05
)

// handleKey routes a key through the handler groups.
func (m *Model) handleKey(key string) (bool, tea.Cmd) {
	return handler.Chain(key,
		m.handleQuitKeys,
		m.handleHelpKeys,
		m.handlePlaybackKeys,
		m.handleQueueKeys,
		m.handleCacheKeys,
	)
}

func (m *Model) handleQuitKeys(key string) handler.Result {
	if m.Keys.Resolve(key) != keymap.ActionQuit {
		return handler.NotHandled
	}
	m.cancelDownloads()
	return handler.Handled(tea.Quit)
}

func (m *Model) handleHelpKeys(key string) handler.Result {
	if m.Keys.Resolve(key) != keymap.ActionHelp {
		return handler.NotHandled
	}
	m.showHelp = !m.showHelp
	return handler.HandledNoCmd
}

// handlePlaybackKeys handles transport, seek, speed, volume and loop.
func (m *Model) handlePlaybackKeys(key string) handler.Result {
	svc := m.Playback
	switch m.Keys.Resolve(key) { //nolint:exhaustive // only handling playback actions
	case keymap.ActionPlayPause:
		return m.result(errmsg.OpPlaybackStart, svc.Toggle())
	case keymap.ActionStop:
		return m.result(errmsg.OpPlaybackStop, svc.Stop(false))
	case keymap.ActionRelease:
		return m.result(errmsg.OpPlaybackStop, svc.Stop(true))
	case keymap.ActionNextTrack:
		svc.Next()
		return handler.HandledNoCmd
	case keymap.ActionPrevTrack:
		svc.Previous()
		return handler.HandledNoCmd
	case keymap.ActionSeekForward:
		return m.seek(seekShort)
	case keymap.ActionSeekBack:
		return m.seek(-seekShort)
	case keymap.ActionSeekForwardLong:
		return m.seek(seekLong)
	case keymap.ActionSeekBackLong:
		return m.seek(-seekLong)
	case keymap.ActionToggleLoop:
		loop := !svc.Loop()
		svc.SetLoop(loop)
		m.saver.setLoop(loop)
		return handler.HandledNoCmd
	case keymap.ActionSpeedUp:
		return m.changeSpeed(speedStep)
	case keymap.ActionSpeedDown:
		return m.changeSpeed(-speedStep)
	case keymap.ActionVolumeUp:
		return m.changeVolume(volumeStep)
	case keymap.ActionVolumeDown:
		return m.changeVolume(-volumeStep)
	}
	return handler.NotHandled
}

// handleQueueKeys moves the cursor, jumps and walks the queue history.
func (m *Model) handleQueueKeys(key string) handler.Result {
	switch m.Keys.Resolve(key) { //nolint:exhaustive // only handling queue actions
	case keymap.ActionMoveUp:
		if m.cursor > 0 {
			m.cursor--
		}
		return handler.HandledNoCmd
	case keymap.ActionMoveDown:
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
		return handler.HandledNoCmd
	case keymap.ActionSelect:
		if len(m.items) == 0 {
			return handler.HandledNoCmd
		}
		return m.result(errmsg.OpQueueJump, m.Playback.JumpTo(m.cursor))
	case keymap.ActionUndo:
		if !m.Playback.Undo() {
			return handler.Handled(m.setStatus("Nothing to undo"))
		}
		return handler.HandledNoCmd
	case keymap.ActionRedo:
		if !m.Playback.Redo() {
			return handler.Handled(m.setStatus("Nothing to redo"))
		}
		return handler.HandledNoCmd
	}
	return handler.NotHandled
}

// handleCacheKeys starts preloads and offline downloads for the item under
// the cursor.
func (m *Model) handleCacheKeys(key string) handler.Result {
	switch m.Keys.Resolve(key) { //nolint:exhaustive // only handling cache actions
	case keymap.ActionPreload:
		return handler.Handled(preloadCmd(m.Playback))
	case keymap.ActionDownloadOffline:
		return handler.Handled(m.startDownload())
	case keymap.ActionRemoveOffline:
		if m.cursor >= len(m.items) {
			return handler.HandledNoCmd
		}
		return handler.Handled(removeOfflineCmd(m.Playback, m.items[m.cursor]))
	}
	return handler.NotHandled
}

func (m *Model) startDownload() tea.Cmd {
	if m.cursor >= len(m.items) {
		return nil
	}
	item := m.items[m.cursor]
	key := cachepolicy.KeyFor(item)
	if _, busy := m.downloads[key]; busy {
		return m.setStatus("Already downloading " + item.DisplayTitle())
	}
	task, err := m.Playback.DownloadOffline(context.Background(), item)
	if err != nil {
		return m.setError(errmsg.FormatWith(errmsg.OpOfflineDownload, item.DisplayTitle(), err))
	}
	m.downloads[key] = &download{title: item.DisplayTitle(), task: task}
	return tea.Batch(
		m.setStatus("Downloading "+item.DisplayTitle()),
		watchDownload(key, item.DisplayTitle(), task),
	)
}

func (m *Model) seek(delta time.Duration) handler.Result {
	return m.result(errmsg.OpPlaybackSeek, m.Playback.Seek(delta))
}

func (m *Model) changeSpeed(delta float64) handler.Result {
	speed := m.snap.Speed
	if speed <= 0 {
		speed = 1
	}
	speed = math.Round((speed+delta)/speedStep) * speedStep
	speed = min(max(speed, minSpeed), maxSpeed)
	return m.result(errmsg.OpPlaybackSpeed, m.Playback.SetSpeed(speed))
}

func (m *Model) changeVolume(delta float64) handler.Result {
	volume := math.Round((m.volume+delta)*100) / 100
	volume = min(max(volume, 0), 1)
	if err := m.Playback.SetVolume(volume); err != nil {
		return handler.Handled(m.setError(errmsg.Format(errmsg.OpVolume, err)))
	}
	m.volume = volume
	if err := m.StateMgr.SaveVolume(volume, false); err != nil {
		m.log.WithError(err).Warn("saving volume failed")
	}
	return handler.HandledNoCmd
}

// result turns an operation error into a status message.
func (m *Model) result(op errmsg.Op, err error) handler.Result {
	if err != nil {
		return handler.Handled(m.setError(errmsg.Format(op, err)))
	}
	return handler.HandledNoCmd
}

func preloadStatus(n int) string {
	switch n {
	case 0:
		return "Nothing to preload"
	case 1:
		return "Preloading 1 item"
	default:
		return fmt.Sprintf("Preloading %d items", n)
	}
}
