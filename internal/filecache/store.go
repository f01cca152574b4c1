// Package filecache is the on-disk cache store shared by every queue item.
// Files live on an afero filesystem and an SQLite table indexes them by
// cache key.
package filecache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/llehouerou/riptide/internal/cachepolicy"
	dbutil "github.com/llehouerou/riptide/internal/db"
	"github.com/llehouerou/riptide/internal/engine"
	"github.com/llehouerou/riptide/internal/keylock"
)

var (
	ErrNotFound          = errors.New("cache entry not found")
	ErrUnsupportedScheme = errors.New("cache store only fetches http(s) uris")
)

const tmpDir = "tmp"

// Options configures a Store. Zero values select defaults.
type Options struct {
	Client *http.Client
	Logger logrus.FieldLogger
	// Now is the clock used for access times.
	Now func() time.Time
	// Locks is shared with every caller of the store. Eviction skips keys
	// someone holds.
	Locks *keylock.Locker
}

// Store implements engine.Store on top of a local directory.
type Store struct {
	fs     afero.Fs
	db     *sql.DB
	dir    string
	client *http.Client
	log    logrus.FieldLogger
	now    func() time.Time
	locks  *keylock.Locker

	mu     sync.Mutex
	active map[string]int
}

// Open prepares dir and the index table. db is usually the state database.
func Open(fs afero.Fs, db *sql.DB, dir string, opts Options) (*Store, error) {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if err := fs.MkdirAll(filepath.Join(dir, tmpDir), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	if err := initIndex(db); err != nil {
		return nil, fmt.Errorf("init cache index: %w", err)
	}
	return &Store{
		fs:     fs,
		db:     db,
		dir:    dir,
		client: opts.Client,
		log:    opts.Logger.WithField("component", "filecache"),
		now:    opts.Now,
		locks:  opts.Locks,
		active: make(map[string]int),
	}, nil
}

func initIndex(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS cache_entries (
			key TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			bytes INTEGER NOT NULL DEFAULT 0,
			total INTEGER NOT NULL DEFAULT -1,
			complete INTEGER NOT NULL DEFAULT 0,
			offline INTEGER NOT NULL DEFAULT 0,
			location TEXT,
			last_access INTEGER NOT NULL
		)
	`)
	return err
}

// fileName maps a cache key to a stable file system name.
func fileName(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func (s *Store) pathFor(key string) string {
	return filepath.Join(s.dir, fileName(key))
}

type record struct {
	engine.Entry
	Path       string
	Offline    bool
	LastAccess time.Time
}

func (s *Store) get(ctx context.Context, key string) (record, error) {
	var r record
	var complete, offline int
	var location sql.NullString
	var access int64
	err := s.db.QueryRowContext(ctx, `
		SELECT key, path, bytes, total, complete, offline, location, last_access
		FROM cache_entries WHERE key = ?
	`, key).Scan(&r.Key, &r.Path, &r.Bytes, &r.Total, &complete, &offline, &location, &access)
	if errors.Is(err, sql.ErrNoRows) {
		return record{}, ErrNotFound
	}
	if err != nil {
		return record{}, err
	}
	r.Complete = complete == 1
	r.Offline = offline == 1
	r.Location = dbutil.NullStringValue(location)
	r.LastAccess = time.Unix(access, 0)
	return r, nil
}

func (s *Store) put(ctx context.Context, r record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, path, bytes, total, complete, offline, location, last_access)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			path = excluded.path,
			bytes = excluded.bytes,
			total = excluded.total,
			complete = excluded.complete,
			offline = MAX(cache_entries.offline, excluded.offline),
			location = excluded.location,
			last_access = excluded.last_access
	`, r.Key, r.Path, r.Bytes, r.Total, boolInt(r.Complete), boolInt(r.Offline),
		dbutil.NullString(r.Location), s.now().Unix())
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Lookup returns the indexed entry for key and records the access.
func (s *Store) Lookup(ctx context.Context, key string) (engine.Entry, bool, error) {
	r, err := s.get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return engine.Entry{}, false, nil
	}
	if err != nil {
		return engine.Entry{}, false, err
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE cache_entries SET last_access = ? WHERE key = ?`,
		s.now().Unix(), key); err != nil {
		return engine.Entry{}, false, err
	}
	return r.Entry, true, nil
}

// RemoveByKey deletes the files and index row for key.
func (s *Store) RemoveByKey(ctx context.Context, key string) error {
	r, err := s.get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.remove(ctx, r)
}

func (s *Store) remove(ctx context.Context, r record) error {
	if err := s.fs.RemoveAll(r.Path); err != nil {
		return fmt.Errorf("remove %s: %w", r.Key, err)
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, r.Key)
	return err
}

// Usage summarises what the store holds.
type Usage struct {
	Entries      int
	Bytes        int64
	OfflineBytes int64
}

func (s *Store) Usage(ctx context.Context) (Usage, error) {
	var u Usage
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(bytes), 0),
			COALESCE(SUM(CASE WHEN offline = 1 THEN bytes ELSE 0 END), 0)
		FROM cache_entries
	`).Scan(&u.Entries, &u.Bytes, &u.OfflineBytes)
	return u, err
}

// begin marks key as being written so eviction leaves it alone.
func (s *Store) begin(key string) func() {
	s.mu.Lock()
	s.active[key]++
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.active[key]--; s.active[key] <= 0 {
			delete(s.active, key)
		}
	}
}

func (s *Store) isActive(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[key] > 0
}

// run wraps a store operation in a task and evicts once it finishes.
func (s *Store) run(ctx context.Context, req engine.Request, fn func(ctx context.Context, report engine.Reporter) error) *engine.Task {
	if err := checkScheme(req.URI); err != nil {
		return engine.Failed(err)
	}
	done := s.begin(req.Key)
	return engine.Go(ctx, func(ctx context.Context, report engine.Reporter) error {
		err := fn(ctx, report)
		done()
		if evictErr := s.Evict(context.WithoutCancel(ctx), req.Directives); evictErr != nil {
			s.log.WithError(evictErr).Warn("eviction failed")
		}
		return err
	})
}

func isOffline(d engine.Directives) bool {
	return d.Mode == cachepolicy.ModeFullOffline || d.Mode == cachepolicy.ModePartialOffline
}

var _ engine.Store = (*Store)(nil)
