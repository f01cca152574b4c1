// Package mpv drives an mpv process over its JSON IPC socket. The process is
// started by the first Prepare and killed by Stop(true).
package mpv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/llehouerou/riptide/internal/cachepolicy"
	"github.com/llehouerou/riptide/internal/engine"
)

const (
	eventBuffer    = 16
	commandTimeout = 2 * time.Second
)

// ErrExited is reported when the mpv process goes away on its own.
var ErrExited = errors.New("mpv exited unexpectedly")

var observed = []string{
	"pause",
	"paused-for-cache",
	"time-pos",
	"duration",
	"demuxer-cache-time",
	"eof-reached",
}

// Options configures an Engine.
type Options struct {
	Launcher Launcher
	Logger   logrus.FieldLogger
}

// Engine implements engine.Interface.
type Engine struct {
	launcher Launcher
	log      logrus.FieldLogger
	events   chan engine.Event
	emitMu   sync.Mutex

	launchMu sync.Mutex

	mu       sync.Mutex
	cl       *client
	proc     io.Closer
	waiter   chan error
	loaded   bool
	eof      bool // paused on the last frame; keep-open holds the file
	paused   bool
	position time.Duration
	duration time.Duration
	buffered time.Duration
	speed    float64
	volume   float64
}

func New(opts Options) *Engine {
	if opts.Launcher == nil {
		opts.Launcher = ProcessLauncher{}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Engine{
		launcher: opts.Launcher,
		log:      opts.Logger.WithField("component", "mpv"),
		events:   make(chan engine.Event, eventBuffer),
		paused:   true,
		speed:    1,
		volume:   1,
	}
}

func (e *Engine) current() *client {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cl
}

// ensure starts mpv if it is not running. e.mu is never held across IPC
// calls since the read loop needs it to dispatch events.
func (e *Engine) ensure(ctx context.Context) (*client, error) {
	e.launchMu.Lock()
	defer e.launchMu.Unlock()
	if cl := e.current(); cl != nil {
		return cl, nil
	}

	conn, proc, err := e.launcher.Launch(ctx)
	if err != nil {
		return nil, err
	}
	cl := newClient(conn, e.handle)
	for i, name := range observed {
		if _, err := cl.call(ctx, "observe_property", i+1, name); err != nil {
			_ = cl.close()
			_ = proc.Close()
			return nil, fmt.Errorf("observe %s: %w", name, err)
		}
	}

	e.mu.Lock()
	e.cl, e.proc = cl, proc
	speed, volume := e.speed, e.volume
	e.mu.Unlock()
	go e.watch(cl)

	// Ended files stay loaded so a replay can seek back instead of reloading.
	if _, err := cl.call(ctx, "set_property", "keep-open", "yes"); err != nil {
		return nil, err
	}
	if _, err := cl.call(ctx, "set_property", "speed", speed); err != nil {
		return nil, err
	}
	if _, err := cl.call(ctx, "set_property", "volume", volume*100); err != nil {
		return nil, err
	}
	e.log.Debug("mpv started")
	return cl, nil
}

// watch reports a process that died while still owned by the engine.
func (e *Engine) watch(cl *client) {
	<-cl.done
	e.mu.Lock()
	if e.cl != cl {
		e.mu.Unlock()
		return
	}
	proc := e.proc
	e.cl, e.proc, e.loaded, e.eof = nil, nil, false, false
	waiter := e.waiter
	e.waiter = nil
	e.mu.Unlock()

	if proc != nil {
		_ = proc.Close()
	}
	e.log.Warn("mpv exited")
	if waiter != nil {
		waiter <- ErrExited
		return
	}
	e.emit(engine.Event{State: engine.StateIdle, Err: ErrExited})
}

// emit never blocks: a full buffer drops its oldest event.
func (e *Engine) emit(ev engine.Event) {
	e.emitMu.Lock()
	defer e.emitMu.Unlock()
	select {
	case e.events <- ev:
		return
	default:
	}
	select {
	case <-e.events:
	default:
	}
	select {
	case e.events <- ev:
	default:
	}
}

func seconds(raw json.RawMessage) (time.Duration, bool) {
	var f *float64
	if err := json.Unmarshal(raw, &f); err != nil || f == nil || math.IsNaN(*f) {
		return 0, false
	}
	return time.Duration(*f * float64(time.Second)), true
}

func flag(raw json.RawMessage) bool {
	var b bool
	_ = json.Unmarshal(raw, &b)
	return b
}

// handle runs on the IPC read loop.
func (e *Engine) handle(msg ipcMessage) {
	switch msg.Event {
	case "file-loaded":
		e.mu.Lock()
		e.loaded = true
		waiter := e.waiter
		e.waiter = nil
		playWhenReady := !e.paused
		e.mu.Unlock()
		if waiter != nil {
			waiter <- nil
		}
		e.emit(engine.Event{State: engine.StateReady, PlayWhenReady: playWhenReady})

	case "end-file":
		switch msg.Reason {
		case "eof":
			e.mu.Lock()
			reported := e.eof
			e.loaded, e.eof = false, false
			e.mu.Unlock()
			if !reported {
				e.emit(engine.Event{State: engine.StateEnded})
			}
		case "error":
			err := fmt.Errorf("mpv: %s", msg.FileError)
			e.mu.Lock()
			e.loaded, e.eof = false, false
			waiter := e.waiter
			e.waiter = nil
			e.mu.Unlock()
			if waiter != nil {
				waiter <- err
				return
			}
			e.emit(engine.Event{State: engine.StateIdle, Err: err})
		}

	case "property-change":
		e.property(msg.Name, msg.Data)
	}
}

func (e *Engine) property(name string, data json.RawMessage) {
	e.mu.Lock()
	loaded := e.loaded
	ended := false
	switch name {
	case "eof-reached":
		ended = flag(data) && loaded && !e.eof
		e.eof = flag(data) && loaded
	case "pause":
		e.paused = flag(data)
	case "time-pos":
		if d, ok := seconds(data); ok {
			e.position = d
		}
	case "duration":
		if d, ok := seconds(data); ok {
			e.duration = d
		}
	case "demuxer-cache-time":
		if d, ok := seconds(data); ok {
			e.buffered = d
		}
	}
	playWhenReady := !e.paused
	eof := e.eof
	e.mu.Unlock()

	if !loaded {
		return
	}
	switch name {
	case "eof-reached":
		if ended {
			e.emit(engine.Event{State: engine.StateEnded})
		}
	case "pause":
		if eof {
			return
		}
		e.emit(engine.Event{State: engine.StateReady, PlayWhenReady: playWhenReady})
	case "paused-for-cache":
		state := engine.StateReady
		if flag(data) {
			state = engine.StateBuffering
		}
		e.emit(engine.Event{State: state, PlayWhenReady: playWhenReady})
	}
}

func (e *Engine) Prepare(ctx context.Context, uri string, d engine.Directives) error {
	cl, err := e.ensure(ctx)
	if err != nil {
		return err
	}
	waiter := make(chan error, 1)
	e.mu.Lock()
	e.waiter = waiter
	e.loaded, e.eof = false, false
	e.position, e.duration, e.buffered = 0, 0, 0
	e.mu.Unlock()
	e.emit(engine.Event{State: engine.StateBuffering})

	cache := "yes"
	if d.Mode == cachepolicy.ModeNone {
		cache = "no"
	}
	cmds := [][]any{
		{"set_property", "cache", cache},
		{"set_property", "pause", true},
		{"loadfile", uri, "replace"},
	}
	for _, c := range cmds {
		if _, err := cl.call(ctx, c...); err != nil {
			e.clearWaiter(waiter)
			return err
		}
	}

	select {
	case err := <-waiter:
		return err
	case <-ctx.Done():
		e.clearWaiter(waiter)
		return ctx.Err()
	}
}

func (e *Engine) clearWaiter(w chan error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.waiter == w {
		e.waiter = nil
	}
}

// command runs one IPC call against the live process.
func (e *Engine) command(args ...any) error {
	cl := e.current()
	if cl == nil {
		return engine.ErrReleased
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	_, err := cl.call(ctx, args...)
	return err
}

func (e *Engine) Play() error {
	return e.command("set_property", "pause", false)
}

func (e *Engine) Pause() error {
	return e.command("set_property", "pause", true)
}

func (e *Engine) Stop(release bool) error {
	if !release {
		err := e.command("stop")
		if errors.Is(err, engine.ErrReleased) {
			err = nil
		}
		e.mu.Lock()
		e.loaded, e.eof = false, false
		e.mu.Unlock()
		e.emit(engine.Event{State: engine.StateIdle})
		return err
	}

	e.launchMu.Lock()
	defer e.launchMu.Unlock()
	e.mu.Lock()
	cl, proc := e.cl, e.proc
	e.cl, e.proc, e.loaded, e.eof = nil, nil, false, false
	e.paused = true
	e.mu.Unlock()
	if cl == nil {
		return nil
	}
	_ = cl.close()
	err := proc.Close()
	e.log.Debug("mpv released")
	e.emit(engine.Event{State: engine.StateIdle})
	return err
}

func (e *Engine) SeekTo(pos time.Duration) error {
	if err := e.command("seek", pos.Seconds(), "absolute"); err != nil {
		return err
	}
	e.mu.Lock()
	e.position = pos
	e.eof = false
	e.mu.Unlock()
	return nil
}

// SetSpeed is remembered while released and applied on the next start.
func (e *Engine) SetSpeed(speed float64) error {
	e.mu.Lock()
	e.speed = speed
	e.mu.Unlock()
	if err := e.command("set_property", "speed", speed); !errors.Is(err, engine.ErrReleased) {
		return err
	}
	return nil
}

// SetVolume takes a 0..1 volume. mpv counts in percent.
func (e *Engine) SetVolume(volume float64) error {
	e.mu.Lock()
	e.volume = volume
	e.mu.Unlock()
	if err := e.command("set_property", "volume", volume*100); !errors.Is(err, engine.ErrReleased) {
		return err
	}
	return nil
}

func (e *Engine) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

func (e *Engine) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

// Buffered returns the media time the demuxer cache reaches.
func (e *Engine) Buffered() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buffered
}

func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

func (e *Engine) Events() <-chan engine.Event { return e.events }

// Verify Engine implements engine.Interface at compile time.
var _ engine.Interface = (*Engine)(nil)
