package filecache

import (
	"context"

	"github.com/llehouerou/riptide/internal/engine"
)

func (s *Store) records(ctx context.Context, oldestFirst bool) ([]record, error) {
	order := "ASC"
	if !oldestFirst {
		order = "DESC"
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT key FROM cache_entries ORDER BY last_access `+order+`, key`)
	if err != nil {
		return nil, err
	}
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			rows.Close()
			return nil, err
		}
		keys = append(keys, k)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	out := make([]record, 0, len(keys))
	for _, k := range keys {
		r, err := s.get(ctx, k)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Evict removes entries in last-access order until the store fits in
// d.MaxBytes. Skipped: the entry named by d.CacheKey, entries being written
// or streamed, keys locked by another operation, and offline entries needed
// to keep d.ReservedOfflineBytes.
func (s *Store) Evict(ctx context.Context, d engine.Directives) error {
	if d.MaxBytes <= 0 {
		return nil
	}
	recs, err := s.records(ctx, d.EvictOldestFirst)
	if err != nil {
		return err
	}
	var total, offline int64
	for _, r := range recs {
		total += r.Bytes
		if r.Offline {
			offline += r.Bytes
		}
	}

	for _, r := range recs {
		if total <= d.MaxBytes {
			break
		}
		if r.Key == d.CacheKey || s.isActive(r.Key) {
			continue
		}
		if r.Offline && offline-r.Bytes < d.ReservedOfflineBytes {
			continue
		}
		unlock, ok := s.tryLock(r.Key)
		if !ok {
			continue
		}
		err := s.remove(ctx, r)
		unlock()
		if err != nil {
			return err
		}
		total -= r.Bytes
		if r.Offline {
			offline -= r.Bytes
		}
		s.log.WithField("key", r.Key).WithField("bytes", r.Bytes).Debug("evicted")
	}
	return nil
}

// tryLock claims key for removal without waiting.
func (s *Store) tryLock(key string) (func(), bool) {
	if s.locks == nil {
		return func() {}, true
	}
	return s.locks.TryLock(key)
}
