// Package cachepolicy maps queue items to cache keys and byte budgets.
// Everything here is pure and synchronous.
package cachepolicy

import (
	"time"

	"github.com/samber/mo"
)

// Mode selects how much of an item the cache is allowed to keep.
type Mode int

const (
	ModeNone Mode = iota
	ModeStreamCache
	ModePartialOffline
	ModeFullOffline
)

// String returns the mode name used in config files.
func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeStreamCache:
		return "stream"
	case ModePartialOffline:
		return "partial_offline"
	case ModeFullOffline:
		return "full_offline"
	default:
		return "unknown"
	}
}

// ParseMode parses a config mode name. Unknown names fall back to stream caching.
func ParseMode(s string) Mode {
	switch s {
	case "none", "off":
		return ModeNone
	case "partial_offline", "partial":
		return ModePartialOffline
	case "full_offline", "full":
		return ModeFullOffline
	default:
		return ModeStreamCache
	}
}

// CachePolicy bounds the shared cache store. The eviction fields are
// directives: the store does the evicting.
type CachePolicy struct {
	Mode                 Mode
	DiskMaxBytes         int64
	ReservedOfflineBytes int64 // eviction never reclaims offline content below this
	EvictOldestFirst     bool
}

// DefaultCachePolicy returns the policy used when nothing is configured.
func DefaultCachePolicy() CachePolicy {
	return CachePolicy{
		Mode:                 ModeStreamCache,
		DiskMaxBytes:         512 << 20,
		ReservedOfflineBytes: 0,
		EvictOldestFirst:     true,
	}
}

// PreloadPolicy controls what the preloader fetches ahead of playback.
type PreloadPolicy struct {
	AheadCount        int           // upcoming items to prefetch
	PreloadHead       time.Duration // per-item time budget
	WifiOnly          bool
	MinBatteryPercent int // 0-100
}

// DefaultPreloadPolicy returns the policy used when nothing is configured.
func DefaultPreloadPolicy() PreloadPolicy {
	return PreloadPolicy{
		AheadCount:        2,
		PreloadHead:       30 * time.Second,
		WifiOnly:          true,
		MinBatteryPercent: 20,
	}
}

// Normalize clamps out-of-range fields.
func (p PreloadPolicy) Normalize() PreloadPolicy {
	p.AheadCount = max(p.AheadCount, 0)
	p.PreloadHead = max(p.PreloadHead, 0)
	p.MinBatteryPercent = min(max(p.MinBatteryPercent, 0), 100)
	return p
}

// CacheInfo describes what the cache holds for one item. It is computed on
// demand and never persisted.
type CacheInfo struct {
	BytesCached  int64
	TotalBytes   mo.Option[int64]
	OfflineReady bool
}

// Fraction returns the cached fraction in [0,1], if the total is known.
func (c CacheInfo) Fraction() mo.Option[float64] {
	total, ok := c.TotalBytes.Get()
	if !ok || total <= 0 {
		return mo.None[float64]()
	}
	return mo.Some(min(float64(c.BytesCached)/float64(total), 1))
}
