package app

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/llehouerou/riptide/internal/engine"
	"github.com/llehouerou/riptide/internal/errmsg"
	"github.com/llehouerou/riptide/internal/keymap"
	"github.com/llehouerou/riptide/internal/media"
	"github.com/llehouerou/riptide/internal/notify"
	"github.com/llehouerou/riptide/internal/playback"
	"github.com/llehouerou/riptide/internal/state"
)

// download is an offline download started from the TUI.
type download struct {
	title string
	task  *engine.Task
	last  engine.Progress
}

// Model is the root TUI model.
type Model struct {
	Playback playback.Service
	StateMgr state.Interface
	Keys     *keymap.Resolver

	playbackSub *playback.Subscription
	saver       *queueSaver
	notifier    notify.Notifier // nil when notifications are off
	log         logrus.FieldLogger

	snap      playback.Event
	items     []media.Item
	cursor    int
	lastIndex int
	volume    float64
	downloads map[string]*download

	status        string
	statusVersion int
	showHelp      bool

	Width  int
	Height int
}

func newModel(svc playback.Service, st state.Interface, saver *queueSaver, log logrus.FieldLogger, volume float64) Model {
	if saver == nil {
		saver = &queueSaver{st: st, index: -1}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	m := Model{
		Playback:    svc,
		StateMgr:    st,
		Keys:        keymap.NewResolver(keymap.Bindings),
		playbackSub: svc.Subscribe(),
		saver:       saver,
		log:         log.WithField("component", "tui"),
		volume:      volume,
		downloads:   make(map[string]*download),
		lastIndex:   -1,
	}
	m.syncQueue(svc.Snapshot())
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(WatchServiceEvents(m.playbackSub), TickCmd())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case tea.KeyMsg:
		_, cmd := m.handleKey(msg.String())
		return m, cmd

	case PlaybackEventMsg:
		m.syncQueue(playback.Event(msg))
		return m, WatchServiceEvents(m.playbackSub)

	case ServiceClosedMsg:
		m.playbackSub = nil
		return m, tea.Quit

	case TickMsg:
		m.snap = m.Playback.Snapshot()
		m.syncVolume()
		return m, TickCmd()

	case DownloadProgressMsg:
		d, ok := m.downloads[msg.Key]
		if !ok {
			return m, nil
		}
		d.last = msg.Progress
		return m, watchDownload(msg.Key, d.title, d.task)

	case DownloadDoneMsg:
		delete(m.downloads, msg.Key)
		notice := notifyCmd(m.notifier, notify.DownloadDone(msg.Title, msg.Err), m.log)
		if msg.Err != nil {
			return m, tea.Batch(m.setError(errmsg.FormatWith(errmsg.OpOfflineDownload, msg.Title, msg.Err)), notice)
		}
		return m, tea.Batch(m.setStatus("Downloaded "+msg.Title), notice)

	case OfflineRemovedMsg:
		if msg.Err != nil {
			return m, m.setError(errmsg.FormatWith(errmsg.OpOfflineRemove, msg.Title, msg.Err))
		}
		return m, m.setStatus("Removed offline copy of " + msg.Title)

	case PreloadedMsg:
		return m, m.setStatus(preloadStatus(len(msg.Keys)))

	case ClearStatusMsg:
		if msg.Version == m.statusVersion {
			m.status = ""
		}
		return m, nil
	}
	return m, nil
}

// syncQueue applies a snapshot and refreshes the queue copy. The cursor
// follows the current item whenever it changes.
func (m *Model) syncQueue(e playback.Event) {
	m.snap = e
	m.items = m.Playback.QueueItems()
	if e.Index >= 0 && e.Index != m.lastIndex {
		m.cursor = e.Index
	}
	m.lastIndex = e.Index
	m.cursor = min(max(m.cursor, 0), max(len(m.items)-1, 0))
}

// syncVolume picks up volume changes made outside the TUI, e.g. over MPRIS.
func (m *Model) syncVolume() {
	v, err := m.StateMgr.GetVolume()
	if err != nil || v == nil {
		return
	}
	if v.Muted {
		m.volume = 0
		return
	}
	m.volume = v.Volume
}

// setStatus shows msg until it is replaced or times out.
func (m *Model) setStatus(msg string) tea.Cmd {
	m.status = msg
	m.statusVersion++
	return clearStatusCmd(m.statusVersion)
}

// setError logs and shows a user-facing error message.
func (m *Model) setError(msg string) tea.Cmd {
	m.log.Warn(msg)
	return m.setStatus(msg)
}

// cancelDownloads stops every download started from the TUI.
func (m *Model) cancelDownloads() {
	for _, d := range m.downloads {
		d.task.Cancel()
	}
}
