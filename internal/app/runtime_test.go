package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/llehouerou/riptide/internal/config"
	"github.com/llehouerou/riptide/internal/device"
	"github.com/llehouerou/riptide/internal/engine"
	"github.com/llehouerou/riptide/internal/offline"
	"github.com/llehouerou/riptide/internal/playback"
	"github.com/llehouerou/riptide/internal/state"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Cache.Dir = "/cache"
	return cfg
}

func newTestRuntime(t *testing.T, cfg *config.Config, statePath string) (*Runtime, *engine.Mock) {
	t.Helper()
	eng := engine.NewMock()
	rt, err := NewRuntime(cfg, Deps{
		Fs:        afero.NewMemMapFs(),
		StatePath: statePath,
		Engine:    eng,
		// Low battery keeps the preloader off the network.
		Signals: device.NewStatic(0, false),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return rt, eng
}

// waitPrepared waits until the item at index is prepared and paused.
func waitPrepared(t *testing.T, rt *Runtime, index int) {
	t.Helper()
	require.Eventually(t, func() bool {
		snap := rt.Playback.Snapshot()
		return snap.Index == index && snap.State == playback.StatePaused
	}, time.Second, 5*time.Millisecond)
}

func TestNewRuntime_Defaults(t *testing.T) {
	rt, _ := newTestRuntime(t, testConfig(t), filepath.Join(t.TempDir(), "state.db"))

	assert.IsType(t, &offline.SQLite{}, rt.Offline)
	assert.NotNil(t, rt.Store)

	usage, err := rt.Store.Usage(t.Context())
	require.NoError(t, err)
	assert.Zero(t, usage.Entries)
}

func TestNewRuntime_KeyringBackend(t *testing.T) {
	keyring.MockInit()
	cfg := testConfig(t)
	cfg.Offline.Backend = config.BackendKeyring

	rt, _ := newTestRuntime(t, cfg, filepath.Join(t.TempDir(), "state.db"))

	assert.IsType(t, &offline.Keyring{}, rt.Offline)
}

func TestRuntime_RestoreEmpty(t *testing.T) {
	rt, eng := newTestRuntime(t, testConfig(t), filepath.Join(t.TempDir(), "state.db"))

	volume, err := rt.Restore()
	require.NoError(t, err)

	assert.Equal(t, 1.0, volume)
	assert.Equal(t, 1.0, eng.Volume())
	assert.Empty(t, rt.Playback.QueueItems())
	assert.Equal(t, -1, rt.Playback.QueueIndex())
}

func TestRuntime_QueueSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	first, _ := newTestRuntime(t, testConfig(t), path)
	require.NoError(t, first.Playback.SetQueue(testItems("a", "b", "c"), 1))
	waitPrepared(t, first, 1)
	first.Playback.SetLoop(true)
	first.saver.setLoop(true)
	require.NoError(t, first.State.SaveVolume(0.4, false))
	require.NoError(t, first.Close())

	second, eng := newTestRuntime(t, testConfig(t), path)
	volume, err := second.Restore()
	require.NoError(t, err)

	assert.Equal(t, 0.4, volume)
	assert.Equal(t, 0.4, eng.Volume())
	assert.Len(t, second.Playback.QueueItems(), 3)
	assert.Equal(t, 1, second.Playback.QueueIndex())
	assert.True(t, second.Playback.Loop())
	waitPrepared(t, second, 1)
	assert.Equal(t, 0, eng.PlayCalls(), "restored item must not start playing")
}

func TestRuntime_EnableDesktopRespectsConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Desktop.MPRIS = lo.ToPtr(false)
	cfg.Desktop.Notifications = lo.ToPtr(false)
	rt, _ := newTestRuntime(t, cfg, filepath.Join(t.TempDir(), "state.db"))

	require.NoError(t, rt.EnableDesktop())

	assert.Nil(t, rt.mpris)
	assert.Nil(t, rt.notifier)
	assert.Nil(t, rt.Model(1).notifier)
}

func TestRuntime_CloseIsIdempotent(t *testing.T) {
	rt, _ := newTestRuntime(t, testConfig(t), filepath.Join(t.TempDir(), "state.db"))

	require.NoError(t, rt.Close())
	assert.NoError(t, rt.Close())
}

func TestQueueSaver(t *testing.T) {
	st := state.NewMock()
	saver := &queueSaver{st: st, index: -1}

	saver.queueChanged(testItems("a", "b"), 1)
	q, err := st.GetQueue()
	require.NoError(t, err)
	assert.Equal(t, 1, q.CurrentIndex)
	assert.Len(t, q.Items, 2)
	assert.False(t, q.Loop)

	saver.setLoop(true)
	saver.setLoop(true)
	assert.Equal(t, 2, st.Saves(), "an unchanged loop flag is not saved again")

	q, _ = st.GetQueue()
	assert.True(t, q.Loop)
	assert.Equal(t, 1, q.CurrentIndex)
}
