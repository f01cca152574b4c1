package app

import (
	"errors"
	"strings"
	"testing"
	"testing/synctest"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/llehouerou/riptide/internal/cachepolicy"
	"github.com/llehouerou/riptide/internal/device"
	"github.com/llehouerou/riptide/internal/engine"
	"github.com/llehouerou/riptide/internal/media"
	"github.com/llehouerou/riptide/internal/notify"
	"github.com/llehouerou/riptide/internal/playback"
	"github.com/llehouerou/riptide/internal/state"
)

type testEnv struct {
	m     *Model
	eng   *engine.Mock
	store *engine.MockStore
	st    *state.Mock
}

// newTestEnv builds a model over mocks. Call it inside a synctest bubble.
func newTestEnv(t *testing.T, ids ...string) *testEnv {
	t.Helper()
	logger, _ := test.NewNullLogger()
	env := &testEnv{
		eng:   engine.NewMock(),
		store: engine.NewMockStore(),
		st:    state.NewMock(),
	}
	// Battery 0 keeps the preloader quiet unless a test asks for it.
	svc := playback.New(env.eng, env.store, device.NewStatic(0, true), playback.Options{Logger: logger})
	t.Cleanup(func() { _ = svc.Close() })

	if len(ids) > 0 {
		if err := svc.SetQueue(testItems(ids...), 0); err != nil {
			t.Fatalf("SetQueue() error = %v", err)
		}
		synctest.Wait()
	}

	m := newModel(svc, env.st, nil, logger, 0.5)
	m.Width, m.Height = 80, 24
	env.m = &m
	return env
}

func testItems(ids ...string) []media.Item {
	items := make([]media.Item, len(ids))
	for i, id := range ids {
		items[i] = media.Item{
			Identifier: id,
			URL:        "https://cdn.test/" + id + ".mp3",
			Title:      "Title " + id,
		}
	}
	return items
}

// press sends a key through Update and keeps the resulting model.
func (e *testEnv) press(key string) tea.Cmd {
	var msg tea.KeyMsg
	switch key {
	case " ":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, cmd := e.m.Update(msg)
	m := next.(Model)
	e.m = &m
	return cmd
}

func (e *testEnv) send(msg tea.Msg) tea.Cmd {
	next, cmd := e.m.Update(msg)
	m := next.(Model)
	e.m = &m
	return cmd
}

func TestHandleQuitKeys(t *testing.T) {
	tests := []struct {
		key      string
		wantQuit bool
	}{
		{"q", true},
		{"ctrl+c", true},
		{"x", false},
		{"Q", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			synctest.Test(t, func(t *testing.T) {
				env := newTestEnv(t)
				result := env.m.handleQuitKeys(tt.key)

				if result.Handled != tt.wantQuit {
					t.Errorf("handleQuitKeys(%q).Handled = %v, want %v", tt.key, result.Handled, tt.wantQuit)
				}
				if tt.wantQuit && result.Cmd == nil {
					t.Error("expected quit command")
				}
			})
		})
	}
}

func TestHandleHelpKeys_Toggles(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		env := newTestEnv(t)

		env.press("?")
		if !env.m.showHelp {
			t.Fatal("showHelp = false after '?', want true")
		}
		if view := env.m.View(); !strings.Contains(view, "Toggle loop") {
			t.Errorf("help view missing bindings:\n%s", view)
		}
		env.press("?")
		if env.m.showHelp {
			t.Error("showHelp = true after second '?', want false")
		}
	})
}

func TestPlaybackKeys_PlayPause(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		env := newTestEnv(t, "a", "b")

		env.press(" ")
		synctest.Wait()
		if got := env.m.Playback.Snapshot().State; got != playback.StatePlaying {
			t.Fatalf("State after space = %v, want Playing", got)
		}
		if env.eng.PlayCalls() != 1 {
			t.Errorf("PlayCalls() = %d, want 1", env.eng.PlayCalls())
		}

		env.press(" ")
		if got := env.m.Playback.Snapshot().State; got != playback.StatePaused {
			t.Errorf("State after second space = %v, want Paused", got)
		}
	})
}

func TestPlaybackKeys_NextPrevious(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		env := newTestEnv(t, "a", "b", "c")

		env.press("n")
		synctest.Wait()
		if got := env.m.Playback.QueueIndex(); got != 1 {
			t.Errorf("QueueIndex() after n = %d, want 1", got)
		}

		env.press("p")
		synctest.Wait()
		if got := env.m.Playback.QueueIndex(); got != 0 {
			t.Errorf("QueueIndex() after p = %d, want 0", got)
		}
	})
}

func TestPlaybackKeys_Stop(t *testing.T) {
	tests := []struct {
		key         string
		wantRelease bool
	}{
		{"s", false},
		{"S", true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			synctest.Test(t, func(t *testing.T) {
				env := newTestEnv(t, "a")
				env.press(tt.key)

				calls := env.eng.StopCalls()
				if len(calls) != 1 || calls[0] != tt.wantRelease {
					t.Errorf("StopCalls() = %v, want [%v]", calls, tt.wantRelease)
				}
			})
		})
	}
}

func TestPlaybackKeys_Seek(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		env := newTestEnv(t, "a")
		env.eng.SetProgress(time.Minute, 3*time.Minute, 0)

		tests := []struct {
			key  string
			want time.Duration
		}{
			{"right", 65 * time.Second},
			{"left", time.Minute},
			{"shift+right", 90 * time.Second},
			{"shift+left", time.Minute},
		}
		for _, tt := range tests {
			if ok, _ := env.m.handleKey(tt.key); !ok {
				t.Fatalf("handleKey(%q) not handled", tt.key)
			}
			if got := env.m.Playback.Snapshot().Position; got != tt.want {
				t.Errorf("after %q: Position = %v, want %v", tt.key, got, tt.want)
			}
		}
	})
}

func TestPlaybackKeys_SeekWithoutItemShowsError(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		env := newTestEnv(t)

		env.m.handleKey("right")

		if !strings.Contains(env.m.status, "nothing is loaded") {
			t.Errorf("status = %q, want it to explain nothing is loaded", env.m.status)
		}
	})
}

func TestPlaybackKeys_ToggleLoopPersists(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		env := newTestEnv(t, "a")

		env.press("l")

		if !env.m.Playback.Loop() {
			t.Error("Loop() = false after l, want true")
		}
		q, _ := env.st.GetQueue()
		if !q.Loop {
			t.Error("saved queue Loop = false, want true")
		}
	})
}

func TestPlaybackKeys_Speed(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		env := newTestEnv(t, "a")

		env.press("]")
		env.send(PlaybackEventMsg(env.m.Playback.Snapshot()))
		env.press("]")
		if got := env.m.Playback.Snapshot().Speed; got != 1.5 {
			t.Errorf("Speed after two ] = %v, want 1.5", got)
		}

		for range 10 {
			env.send(PlaybackEventMsg(env.m.Playback.Snapshot()))
			env.press("[")
		}
		if got := env.m.Playback.Snapshot().Speed; got != minSpeed {
			t.Errorf("Speed after many [ = %v, want %v", got, minSpeed)
		}
	})
}

func TestPlaybackKeys_Volume(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		env := newTestEnv(t, "a")

		env.press("+")
		if env.m.volume != 0.55 {
			t.Errorf("volume = %v, want 0.55", env.m.volume)
		}
		if env.eng.Volume() != 0.55 {
			t.Errorf("engine volume = %v, want 0.55", env.eng.Volume())
		}
		if v, _ := env.st.GetVolume(); v.Volume != 0.55 {
			t.Errorf("saved volume = %v, want 0.55", v.Volume)
		}

		for range 20 {
			env.press("-")
		}
		if env.m.volume != 0 {
			t.Errorf("volume after many - = %v, want 0", env.m.volume)
		}
	})
}

func TestQueueKeys_CursorAndSelect(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		env := newTestEnv(t, "a", "b", "c")

		env.press("k")
		if env.m.cursor != 0 {
			t.Errorf("cursor after k at top = %d, want 0", env.m.cursor)
		}
		env.press("j")
		env.press("j")
		env.press("j")
		if env.m.cursor != 2 {
			t.Errorf("cursor after jjj = %d, want 2", env.m.cursor)
		}

		env.press("enter")
		synctest.Wait()
		if got := env.m.Playback.QueueIndex(); got != 2 {
			t.Errorf("QueueIndex() after enter = %d, want 2", got)
		}
		if got := env.m.Playback.Snapshot().State; got != playback.StatePlaying {
			t.Errorf("State after enter = %v, want Playing", got)
		}
	})
}

func TestQueueKeys_UndoWithoutHistory(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		env := newTestEnv(t, "a")

		env.press("u")
		if env.m.status != "Nothing to undo" {
			t.Errorf("status = %q, want %q", env.m.status, "Nothing to undo")
		}
		env.m.handleKey("ctrl+r")
		if env.m.status != "Nothing to redo" {
			t.Errorf("status = %q, want %q", env.m.status, "Nothing to redo")
		}
	})
}

func TestCacheKeys_DownloadOffline(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		env := newTestEnv(t, "a", "b")
		env.press("j")

		cmd := env.press("d")
		if cmd == nil {
			t.Fatal("expected download command")
		}
		key := cachepolicy.KeyForID("b")
		if _, ok := env.m.downloads[key]; !ok {
			t.Fatalf("downloads = %v, want entry for %s", env.m.downloads, key)
		}
		if !strings.Contains(env.m.View(), "↓") {
			t.Error("view does not mark the downloading row")
		}

		env.press("d")
		if !strings.HasPrefix(env.m.status, "Already downloading") {
			t.Errorf("status = %q, want already downloading", env.m.status)
		}

		d := env.m.downloads[key]
		_ = d.task.Wait(t.Context())
		msg := watchDownload(key, d.title, d.task)()
		for {
			if _, done := msg.(DownloadDoneMsg); done {
				break
			}
			env.send(msg)
			msg = watchDownload(key, d.title, d.task)()
		}
		env.send(msg)

		if len(env.m.downloads) != 0 {
			t.Errorf("downloads = %d after done, want 0", len(env.m.downloads))
		}
		if env.m.status != "Downloaded Title b" {
			t.Errorf("status = %q, want %q", env.m.status, "Downloaded Title b")
		}
		if n := len(env.store.Calls(engine.OpFull)); n != 1 {
			t.Errorf("full downloads = %d, want 1", n)
		}
	})
}

func TestCacheKeys_DownloadLiveItemFails(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		logger, _ := test.NewNullLogger()
		svc := playback.New(engine.NewMock(), engine.NewMockStore(), device.NewStatic(0, true), playback.Options{Logger: logger})
		t.Cleanup(func() { _ = svc.Close() })
		live := media.Item{Identifier: "radio", URL: "https://radio.test/stream", IsLive: true}
		_ = svc.SetQueue([]media.Item{live}, 0)
		synctest.Wait()

		m := newModel(svc, state.NewMock(), nil, logger, 1)
		m.handleKey("d")

		if !strings.Contains(m.status, "live streams cannot be downloaded") {
			t.Errorf("status = %q, want live stream error", m.status)
		}
		if len(m.downloads) != 0 {
			t.Errorf("downloads = %d, want 0", len(m.downloads))
		}
	})
}

func TestDownloadDone_Error(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		env := newTestEnv(t)
		env.m.downloads["k"] = &download{title: "x"}

		env.send(DownloadDoneMsg{Key: "k", Title: "x", Err: errors.New("HTTP 503")})

		if !strings.Contains(env.m.status, "HTTP 503") {
			t.Errorf("status = %q, want the cause", env.m.status)
		}
		if len(env.m.downloads) != 0 {
			t.Error("failed download was not forgotten")
		}
	})
}

func TestDownloadDone_SendsNotification(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		env := newTestEnv(t)
		rec := &notify.Recorder{}
		env.m.notifier = rec
		env.m.downloads["k"] = &download{title: "x"}

		cmd := env.send(DownloadDoneMsg{Key: "k", Title: "x"})
		msg := cmd()
		batch, ok := msg.(tea.BatchMsg)
		if !ok {
			t.Fatalf("cmd() = %T, want tea.BatchMsg", msg)
		}
		for _, c := range batch {
			if c != nil {
				c()
			}
		}

		sent := rec.Sent()
		if len(sent) != 1 || sent[0].Body != "x" {
			t.Errorf("notifications = %+v, want one for x", sent)
		}
	})
}

func TestTick_PicksUpExternalVolume(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.st.SaveVolume(0.2, false); err != nil {
			t.Fatal(err)
		}

		env.send(TickMsg(time.Now()))

		if env.m.volume != 0.2 {
			t.Errorf("volume = %v, want 0.2", env.m.volume)
		}
	})
}

func TestPlaybackEvent_CursorFollowsCurrent(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		env := newTestEnv(t, "a", "b", "c")

		if cmd := env.send(PlaybackEventMsg(env.m.Playback.Snapshot())); cmd == nil {
			t.Error("expected the subscription to be watched again")
		}
		env.m.Playback.Next()
		synctest.Wait()
		env.send(PlaybackEventMsg(env.m.Playback.Snapshot()))

		if env.m.cursor != 1 {
			t.Errorf("cursor = %d, want 1", env.m.cursor)
		}

		// The cursor stays where the user moved it while the index is unchanged.
		env.press("j")
		env.send(PlaybackEventMsg(env.m.Playback.Snapshot()))
		if env.m.cursor != 2 {
			t.Errorf("cursor = %d, want 2", env.m.cursor)
		}
	})
}

func TestWatchServiceEvents(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		env := newTestEnv(t, "a")

		msg := WatchServiceEvents(env.m.playbackSub)()
		ev, ok := msg.(PlaybackEventMsg)
		if !ok {
			t.Fatalf("msg = %T, want PlaybackEventMsg", msg)
		}
		if ev.Item.Identifier != "a" {
			t.Errorf("event item = %q, want a", ev.Item.Identifier)
		}

		_ = env.m.Playback.Close()
		for {
			if _, closed := WatchServiceEvents(env.m.playbackSub)().(ServiceClosedMsg); closed {
				break
			}
		}
		if WatchServiceEvents(nil) != nil {
			t.Error("WatchServiceEvents(nil) should be nil")
		}
	})
}

func TestTick_RefreshesProgress(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		env := newTestEnv(t, "a")
		_ = env.m.Playback.Play()
		env.eng.SetProgress(12*time.Second, time.Minute, 0)

		cmd := env.send(TickMsg(time.Now()))

		if env.m.snap.Position != 12*time.Second {
			t.Errorf("Position = %v, want 12s", env.m.snap.Position)
		}
		if cmd == nil {
			t.Error("expected next tick")
		}
	})
}

func TestClearStatus_OnlyCurrentVersion(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		env := newTestEnv(t)
		env.m.setStatus("first")
		stale := env.m.statusVersion
		env.m.setStatus("second")

		env.send(ClearStatusMsg{Version: stale})
		if env.m.status != "second" {
			t.Errorf("status = %q, want second", env.m.status)
		}
		env.send(ClearStatusMsg{Version: env.m.statusVersion})
		if env.m.status != "" {
			t.Errorf("status = %q, want empty", env.m.status)
		}
	})
}

func TestView(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		empty := newTestEnv(t)
		if view := empty.m.View(); !strings.Contains(view, "Queue is empty") {
			t.Errorf("empty view = %q", view)
		}

		env := newTestEnv(t, "a", "b")
		view := ansi.Strip(env.m.View())
		for _, want := range []string{"Queue (2)", "Title a", "Title b", "? for help"} {
			if !strings.Contains(view, want) {
				t.Errorf("view missing %q:\n%s", want, view)
			}
		}

		env.m.Width = 0
		if env.m.View() != "" {
			t.Error("view before the first resize should be empty")
		}
	})
}

func TestVisibleRange(t *testing.T) {
	tests := []struct {
		cursor, total, rows int
		wantStart, wantEnd  int
	}{
		{0, 5, 10, 0, 5},
		{0, 20, 10, 0, 10},
		{10, 20, 10, 5, 15},
		{19, 20, 10, 10, 20},
	}
	for _, tt := range tests {
		start, end := visibleRange(tt.cursor, tt.total, tt.rows)
		if start != tt.wantStart || end != tt.wantEnd {
			t.Errorf("visibleRange(%d, %d, %d) = %d, %d, want %d, %d",
				tt.cursor, tt.total, tt.rows, start, end, tt.wantStart, tt.wantEnd)
		}
	}
}

func TestDownloadLabel(t *testing.T) {
	tests := []struct {
		progress engine.Progress
		want     string
	}{
		{engine.Progress{BytesCached: 50, BytesTotal: 200}, "↓ 25%"},
		{engine.Progress{BytesCached: 300, BytesTotal: 200}, "↓ 100%"},
		{engine.Progress{BytesCached: 2048, BytesTotal: -1}, "↓ 2.0 KiB"},
	}
	for _, tt := range tests {
		if got := downloadLabel(&download{last: tt.progress}); got != tt.want {
			t.Errorf("downloadLabel(%+v) = %q, want %q", tt.progress, got, tt.want)
		}
	}
}

func TestPreloadStatus(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "Nothing to preload"},
		{1, "Preloading 1 item"},
		{3, "Preloading 3 items"},
	}
	for _, tt := range tests {
		if got := preloadStatus(tt.n); got != tt.want {
			t.Errorf("preloadStatus(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
