package offline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	dbutil "github.com/llehouerou/riptide/internal/db"
)

func backends(t *testing.T) map[string]Locations {
	t.Helper()
	keyring.MockInit()

	db, err := dbutil.Open(dbutil.Memory)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sqlite, err := NewSQLite(db)
	require.NoError(t, err)

	return map[string]Locations{
		"memory":  NewMemory(),
		"sqlite":  sqlite,
		"keyring": NewKeyring(""),
	}
}

func TestLocations_PutGet(t *testing.T) {
	for name, locs := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, locs.Put(ctx, "mp_key_a", "/cache/a.mp3"))
			loc, err := locs.Get(ctx, "mp_key_a")

			require.NoError(t, err)
			assert.Equal(t, "/cache/a.mp3", loc)
		})
	}
}

func TestLocations_PutOverwrites(t *testing.T) {
	for name, locs := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, locs.Put(ctx, "mp_key_b", "/old"))
			require.NoError(t, locs.Put(ctx, "mp_key_b", "/new"))
			loc, err := locs.Get(ctx, "mp_key_b")

			require.NoError(t, err)
			assert.Equal(t, "/new", loc)
		})
	}
}

func TestLocations_GetUnknown(t *testing.T) {
	for name, locs := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := locs.Get(context.Background(), "mp_key_missing")

			assert.True(t, errors.Is(err, ErrNotFound), "Get() = %v, want ErrNotFound", err)
		})
	}
}

func TestLocations_Delete(t *testing.T) {
	for name, locs := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, locs.Put(ctx, "mp_key_c", "/c"))

			require.NoError(t, locs.Delete(ctx, "mp_key_c"))

			_, err := locs.Get(ctx, "mp_key_c")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestLocations_DeleteUnknown(t *testing.T) {
	for name, locs := range backends(t) {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, locs.Delete(context.Background(), "mp_key_never"))
		})
	}
}

func TestSQLite_List(t *testing.T) {
	db, err := dbutil.Open(dbutil.Memory)
	require.NoError(t, err)
	defer db.Close()
	s, err := NewSQLite(db)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "mp_key_b", "/b"))
	require.NoError(t, s.Put(ctx, "mp_key_a", "/a"))

	recs, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	keys := []string{recs[0].Key, recs[1].Key}
	assert.ElementsMatch(t, []string{"mp_key_a", "mp_key_b"}, keys)
}

func TestNewSQLite_Idempotent(t *testing.T) {
	db, err := dbutil.Open(dbutil.Memory)
	require.NoError(t, err)
	defer db.Close()

	_, err = NewSQLite(db)
	require.NoError(t, err)
	_, err = NewSQLite(db)
	assert.NoError(t, err)
}

func TestKeyring_CancelledContext(t *testing.T) {
	keyring.MockInit()
	k := NewKeyring("riptide-test")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, k.Put(ctx, "k", "v"), context.Canceled)
	_, err := k.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}
