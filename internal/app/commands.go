package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/llehouerou/riptide/internal/engine"
	"github.com/llehouerou/riptide/internal/media"
	"github.com/llehouerou/riptide/internal/notify"
	"github.com/llehouerou/riptide/internal/playback"
)

const statusTimeout = 4 * time.Second

// TickCmd returns a command that sends TickMsg after 1 second.
func TickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// clearStatusCmd clears a status message after it has been shown long enough.
func clearStatusCmd(version int) tea.Cmd {
	return tea.Tick(statusTimeout, func(time.Time) tea.Msg {
		return ClearStatusMsg{Version: version}
	})
}

// WatchServiceEvents waits for the next playback snapshot.
func WatchServiceEvents(sub *playback.Subscription) tea.Cmd {
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case e := <-sub.Events:
			return PlaybackEventMsg(e)
		case <-sub.Done:
			return ServiceClosedMsg{}
		}
	}
}

// watchDownload waits for the next progress report of task. The final
// message is a DownloadDoneMsg.
func watchDownload(key, title string, task *engine.Task) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-task.Progress()
		if ok {
			return DownloadProgressMsg{Key: key, Progress: p}
		}
		return DownloadDoneMsg{Key: key, Title: title, Err: task.Err()}
	}
}

// removeOfflineCmd deletes the offline copy of item in the background.
func removeOfflineCmd(svc playback.Service, item media.Item) tea.Cmd {
	return func() tea.Msg {
		err := svc.RemoveOffline(context.Background(), item.Identifier)
		return OfflineRemovedMsg{Title: item.DisplayTitle(), Err: err}
	}
}

// preloadCmd runs one preload evaluation in the background.
func preloadCmd(svc playback.Service) tea.Cmd {
	return func() tea.Msg {
		return PreloadedMsg{Keys: svc.Preload(context.Background())}
	}
}

// notifyCmd sends n in the background. Returns nil when notifier is nil.
func notifyCmd(notifier notify.Notifier, n notify.Notification, log logrus.FieldLogger) tea.Cmd {
	if notifier == nil {
		return nil
	}
	return func() tea.Msg {
		if _, err := notifier.Notify(n); err != nil {
			log.WithError(err).Debug("desktop notification failed")
		}
		return nil
	}
}
