package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/samber/mo"

	"github.com/llehouerou/riptide/internal/cachepolicy"
	"github.com/llehouerou/riptide/internal/device"
)

type Config struct {
	Cache   CacheConfig   `koanf:"cache"`
	Preload PreloadConfig `koanf:"preload"`
	Engine  EngineConfig  `koanf:"engine"`
	Device  DeviceConfig  `koanf:"device"`
	Offline OfflineConfig `koanf:"offline"`
	Log     LogConfig     `koanf:"log"`
	Desktop DesktopConfig `koanf:"desktop"`
}

// CacheConfig bounds the shared on-disk cache.
type CacheConfig struct {
	Mode                 string `koanf:"mode"`                   // "none", "stream", "partial_offline", "full_offline"
	Dir                  string `koanf:"dir"`                    // default: $XDG_CACHE_HOME/riptide
	MaxBytes             int64  `koanf:"max_bytes"`              // default: 512 MiB
	ReservedOfflineBytes int64  `koanf:"reserved_offline_bytes"` // default: 0
	EvictOldestFirst     *bool  `koanf:"evict_oldest_first"`     // default: true
}

// PreloadConfig controls prefetching of upcoming items.
type PreloadConfig struct {
	AheadCount        *int  `koanf:"ahead_count"`         // 0-10, default: 2
	HeadMs            int   `koanf:"head_ms"`             // default: 30000
	WifiOnly          *bool `koanf:"wifi_only"`           // default: true
	MinBatteryPercent *int  `koanf:"min_battery_percent"` // 0-100, default: 20
	IntervalMs        int   `koanf:"interval_ms"`         // 0 disables periodic ticks
	Concurrency       int   `koanf:"concurrency"`         // 1-8, default: 2
	AssumedKbps       int   `koanf:"assumed_kbps"`        // default: 256
}

// EngineConfig selects the mpv binary.
type EngineConfig struct {
	MpvPath   string   `koanf:"mpv_path"`
	ExtraArgs []string `koanf:"extra_args"`
}

// DeviceConfig pins device signals, mainly for machines without sensors.
type DeviceConfig struct {
	OverrideBattery   *int  `koanf:"override_battery"`
	OverrideUnmetered *bool `koanf:"override_unmetered"`
}

// OfflineConfig selects where offline locations are recorded.
type OfflineConfig struct {
	Backend string `koanf:"backend"` // "sqlite" (default) or "keyring"
}

// LogConfig configures logrus.
type LogConfig struct {
	Level string `koanf:"level"` // default: "info"
	JSON  bool   `koanf:"json"`
	File  bool   `koanf:"file"` // write to $XDG_STATE_HOME/riptide instead of stderr
}

// DesktopConfig toggles session bus integrations while the player runs.
type DesktopConfig struct {
	MPRIS         *bool `koanf:"mpris"`         // default: true
	Notifications *bool `koanf:"notifications"` // default: true
}

const (
	BackendSQLite  = "sqlite"
	BackendKeyring = "keyring"
)

func Load() (*Config, error) {
	return LoadPaths(getConfigPaths()...)
}

// LoadPaths loads the given files in order, later files overriding earlier
// ones. Missing files are skipped.
func LoadPaths(paths ...string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if cfg.Cache.Dir != "" {
		cfg.Cache.Dir = expandPath(cfg.Cache.Dir)
	}
	if cfg.Engine.MpvPath != "" {
		cfg.Engine.MpvPath = expandPath(cfg.Engine.MpvPath)
	}
	cfg.Offline.Backend = strings.ToLower(strings.TrimSpace(cfg.Offline.Backend))

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/riptide/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "riptide", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// GetCachePolicy returns the cache policy with defaults applied.
func (c *Config) GetCachePolicy() cachepolicy.CachePolicy {
	p := cachepolicy.DefaultCachePolicy()
	if c.Cache.Mode != "" {
		p.Mode = cachepolicy.ParseMode(strings.ToLower(c.Cache.Mode))
	}
	if c.Cache.MaxBytes > 0 {
		p.DiskMaxBytes = c.Cache.MaxBytes
	}
	if c.Cache.ReservedOfflineBytes > 0 {
		p.ReservedOfflineBytes = min(c.Cache.ReservedOfflineBytes, p.DiskMaxBytes)
	}
	if c.Cache.EvictOldestFirst != nil {
		p.EvictOldestFirst = *c.Cache.EvictOldestFirst
	}
	return p
}

// CacheDir returns the cache directory, defaulting to the XDG cache home.
func (c *Config) CacheDir() string {
	if c.Cache.Dir != "" {
		return c.Cache.Dir
	}
	return filepath.Join(xdg.CacheHome, "riptide")
}

// GetPreloadPolicy returns the preload policy with defaults applied.
func (c *Config) GetPreloadPolicy() cachepolicy.PreloadPolicy {
	p := cachepolicy.DefaultPreloadPolicy()
	cfg := c.Preload
	if cfg.AheadCount != nil {
		p.AheadCount = min(max(*cfg.AheadCount, 0), 10)
	}
	if cfg.HeadMs > 0 {
		p.PreloadHead = time.Duration(cfg.HeadMs) * time.Millisecond
	}
	if cfg.WifiOnly != nil {
		p.WifiOnly = *cfg.WifiOnly
	}
	if cfg.MinBatteryPercent != nil {
		p.MinBatteryPercent = *cfg.MinBatteryPercent
	}
	return p.Normalize()
}

// PreloadInterval returns the periodic preload interval, zero when disabled.
func (c *Config) PreloadInterval() time.Duration {
	return time.Duration(max(c.Preload.IntervalMs, 0)) * time.Millisecond
}

// PreloadConcurrency returns the prefetch fan-out width (1-8, default: 2).
func (c *Config) PreloadConcurrency() int {
	if c.Preload.Concurrency <= 0 {
		return 2
	}
	return min(c.Preload.Concurrency, 8)
}

// AssumedKbps returns the bitrate used for byte budgets.
func (c *Config) AssumedKbps() int {
	if c.Preload.AssumedKbps <= 0 {
		return cachepolicy.DefaultAssumedKbps
	}
	return c.Preload.AssumedKbps
}

// Signals wraps base with the configured overrides.
func (c *Config) Signals(base device.Signals) device.Signals {
	o := device.Overridden{Base: base}
	if c.Device.OverrideBattery != nil {
		o.Battery = mo.Some(*c.Device.OverrideBattery)
	}
	if c.Device.OverrideUnmetered != nil {
		o.Unmetered = mo.Some(*c.Device.OverrideUnmetered)
	}
	return o
}

// OfflineBackend returns the configured backend name, defaulting to sqlite.
func (c *Config) OfflineBackend() string {
	if c.Offline.Backend == BackendKeyring {
		return BackendKeyring
	}
	return BackendSQLite
}

// MPRISEnabled reports whether to expose the player over MPRIS.
func (c *Config) MPRISEnabled() bool {
	return c.Desktop.MPRIS == nil || *c.Desktop.MPRIS
}

// NotificationsEnabled reports whether finished downloads raise a desktop
// notification.
func (c *Config) NotificationsEnabled() bool {
	return c.Desktop.Notifications == nil || *c.Desktop.Notifications
}
