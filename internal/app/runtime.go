package app

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/llehouerou/riptide/internal/config"
	"github.com/llehouerou/riptide/internal/device"
	"github.com/llehouerou/riptide/internal/engine"
	"github.com/llehouerou/riptide/internal/engine/mpv"
	"github.com/llehouerou/riptide/internal/filecache"
	"github.com/llehouerou/riptide/internal/keylock"
	"github.com/llehouerou/riptide/internal/logging"
	"github.com/llehouerou/riptide/internal/media"
	"github.com/llehouerou/riptide/internal/mpris"
	"github.com/llehouerou/riptide/internal/notify"
	"github.com/llehouerou/riptide/internal/offline"
	"github.com/llehouerou/riptide/internal/playback"
	"github.com/llehouerou/riptide/internal/preload"
	"github.com/llehouerou/riptide/internal/state"
)

// Deps overrides the pieces a Runtime would otherwise build from the
// environment. Zero values select the real implementations.
type Deps struct {
	Fs        afero.Fs
	StatePath string // default: state.DefaultPath
	LogDir    string
	Stderr    io.Writer // log destination when file logging is off
	Engine    engine.Interface
	Signals   device.Signals
	Client    *http.Client
}

// Runtime owns every long-lived component of a session.
type Runtime struct {
	Config   *config.Config
	Logger   *logrus.Logger
	State    state.Interface
	Store    *filecache.Store
	Offline  offline.Locations
	Playback playback.Service

	saver     *queueSaver
	stream    *filecache.Server
	mpris     *mpris.Adapter
	notifier  notify.Notifier
	logCloser io.Closer
	closeOnce sync.Once
	closeErr  error
}

// NewRuntime opens state, cache and engine for cfg. The engine process is
// started lazily by the first prepare.
func NewRuntime(cfg *config.Config, deps Deps) (*Runtime, error) {
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}

	logger, logCloser, err := logging.Setup(cfg.Log, logging.Target{
		Fs:     deps.Fs,
		Dir:    deps.LogDir,
		Stderr: deps.Stderr,
	})
	if err != nil {
		return nil, err
	}

	var st *state.Manager
	if deps.StatePath != "" {
		st, err = state.OpenPath(deps.StatePath)
	} else {
		st, err = state.Open()
	}
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("open state: %w", err)
	}
	st.OnSaveError(func(err error) {
		logger.WithError(err).Warn("saving queue failed")
	})

	fail := func(err error) (*Runtime, error) {
		st.Close()
		logCloser.Close()
		return nil, err
	}

	locks := keylock.New()
	store, err := filecache.Open(deps.Fs, st.DB(), cfg.CacheDir(), filecache.Options{
		Client: deps.Client,
		Logger: logger,
		Locks:  locks,
	})
	if err != nil {
		return fail(fmt.Errorf("open cache: %w", err))
	}
	stream, err := store.Serve("127.0.0.1:0")
	if err != nil {
		return fail(fmt.Errorf("start stream server: %w", err))
	}
	fail = func(err error) (*Runtime, error) {
		stream.Close()
		st.Close()
		logCloser.Close()
		return nil, err
	}

	var locations offline.Locations
	switch cfg.OfflineBackend() {
	case config.BackendKeyring:
		locations = offline.NewKeyring(offline.DefaultKeyringService)
	default:
		locations, err = offline.NewSQLite(st.DB())
		if err != nil {
			return fail(fmt.Errorf("open offline index: %w", err))
		}
	}

	eng := deps.Engine
	if eng == nil {
		eng = mpv.New(mpv.Options{
			Launcher: mpv.ProcessLauncher{Path: cfg.Engine.MpvPath, ExtraArgs: cfg.Engine.ExtraArgs},
			Logger:   logger,
		})
	}
	signals := deps.Signals
	if signals == nil {
		signals = device.NewSystem()
	}

	saver := &queueSaver{st: st, index: -1}
	svc := playback.New(eng, store, cfg.Signals(signals), playback.Options{
		Logger:        logger,
		CachePolicy:   mo.Some(cfg.GetCachePolicy()),
		PreloadPolicy: mo.Some(cfg.GetPreloadPolicy()),
		Preload: preload.Options{
			Concurrency: cfg.PreloadConcurrency(),
			AssumedKbps: cfg.AssumedKbps(),
			Logger:      logger,
		},
		PreloadInterval: cfg.PreloadInterval(),
		Offline:         locations,
		Locks:           locks,
		Streamer:        stream,
		OnQueueChange:   saver.queueChanged,
	})

	return &Runtime{
		Config:    cfg,
		Logger:    logger,
		State:     st,
		Store:     store,
		Offline:   locations,
		Playback:  svc,
		saver:     saver,
		stream:    stream,
		logCloser: logCloser,
	}, nil
}

// Restore reloads the saved queue, loop flag and volume. The restored
// current item is prepared but not played. Returns the restored volume.
func (r *Runtime) Restore() (float64, error) {
	volume := 1.0
	if v, err := r.State.GetVolume(); err == nil && v != nil {
		volume = v.Volume
		if v.Muted {
			volume = 0
		}
	}
	if err := r.Playback.SetVolume(volume); err != nil {
		return volume, err
	}

	q, err := r.State.GetQueue()
	if err != nil {
		return volume, fmt.Errorf("load queue: %w", err)
	}
	r.Playback.SetLoop(q.Loop)
	if len(q.Items) > 0 {
		start := min(max(q.CurrentIndex, 0), len(q.Items)-1)
		if err := r.Playback.SetQueue(q.Items, start); err != nil {
			return volume, fmt.Errorf("restore queue: %w", err)
		}
	}
	r.saver.setLoop(q.Loop)
	return volume, nil
}

// EnableDesktop starts the session bus integrations the configuration
// enables. Only the interactive player calls it.
func (r *Runtime) EnableDesktop() error {
	if r.Config.NotificationsEnabled() && r.notifier == nil {
		n, err := notify.New()
		if err != nil {
			return fmt.Errorf("notifications: %w", err)
		}
		r.notifier = n
	}
	if r.Config.MPRISEnabled() && r.mpris == nil {
		a, err := mpris.New(r.Playback, mpris.Options{
			Volume: r.State,
			OnLoop: r.saver.setLoop,
			Logger: r.Logger,
		})
		if err != nil {
			return fmt.Errorf("mpris: %w", err)
		}
		r.mpris = a
	}
	return nil
}

// Model returns the TUI model for this runtime.
func (r *Runtime) Model(volume float64) Model {
	m := newModel(r.Playback, r.State, r.saver, r.Logger, volume)
	m.notifier = r.notifier
	return m
}

// Close stops playback and flushes pending state. Safe to call twice.
func (r *Runtime) Close() error {
	r.closeOnce.Do(func() {
		var desktop error
		if r.mpris != nil {
			desktop = r.mpris.Close()
		}
		r.closeErr = errors.Join(
			desktop,
			r.Playback.Close(),
			r.stream.Close(),
			r.State.Close(),
			r.logCloser.Close(),
		)
	})
	return r.closeErr
}

// queueSaver persists the queue whenever the playback service reports a
// change. It runs under the service lock and never calls back into it.
type queueSaver struct {
	st state.Interface

	mu    sync.Mutex
	items []media.Item
	index int
	loop  bool
}

func (q *queueSaver) queueChanged(items []media.Item, index int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = items
	q.index = index
	q.saveLocked()
}

func (q *queueSaver) setLoop(loop bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.loop == loop {
		return
	}
	q.loop = loop
	q.saveLocked()
}

func (q *queueSaver) saveLocked() {
	q.st.SaveQueueDebounced(state.QueueState{
		CurrentIndex: q.index,
		Loop:         q.loop,
		Items:        q.items,
	})
}
