package device

import (
	"path"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/spf13/afero"
)

const (
	powerSupplyDir = "/sys/class/power_supply"
	netClassDir    = "/sys/class/net"
)

// Interface name prefixes for links that are billed per byte.
var meteredPrefixes = []string{"wwan", "rmnet", "ppp", "ccmni", "usb"}

// Interface name prefixes for wired and wireless LAN links.
var unmeteredPrefixes = []string{"wl", "en", "eth"}

// InterfaceLister lists network interfaces.
type InterfaceLister func() (net.InterfaceStatList, error)

// System reads battery state from sysfs and classifies active network
// interfaces by name and sysfs wireless markers.
type System struct {
	fs         afero.Fs
	interfaces InterfaceLister
}

// NewSystem creates a provider backed by the OS.
func NewSystem() *System {
	return NewSystemWith(afero.NewOsFs(), net.Interfaces)
}

// NewSystemWith creates a provider over an arbitrary filesystem and lister.
func NewSystemWith(fs afero.Fs, lister InterfaceLister) *System {
	return &System{fs: fs, interfaces: lister}
}

// BatteryPercentage returns the lowest capacity among batteries, or 100
// when no battery is present or readable.
func (s *System) BatteryPercentage() int {
	entries, err := afero.ReadDir(s.fs, powerSupplyDir)
	if err != nil {
		return 100
	}
	level, found := 100, false
	for _, e := range entries {
		dir := path.Join(powerSupplyDir, e.Name())
		if s.readTrimmed(path.Join(dir, "type")) != "Battery" {
			continue
		}
		capacity, err := strconv.Atoi(s.readTrimmed(path.Join(dir, "capacity")))
		if err != nil {
			continue
		}
		level = min(level, clampPercent(capacity))
		found = true
	}
	if !found {
		return 100
	}
	return level
}

// IsOnUnmeteredNetwork reports whether an up, non-loopback LAN interface
// with an address exists.
func (s *System) IsOnUnmeteredNetwork() bool {
	ifaces, err := s.interfaces()
	if err != nil {
		return false
	}
	return lo.SomeBy(ifaces, func(i net.InterfaceStat) bool {
		if !lo.Contains(i.Flags, "up") || lo.Contains(i.Flags, "loopback") || len(i.Addrs) == 0 {
			return false
		}
		return s.isUnmetered(i.Name)
	})
}

func (s *System) isUnmetered(name string) bool {
	if hasAnyPrefix(name, meteredPrefixes) {
		return false
	}
	if ok, _ := afero.DirExists(s.fs, path.Join(netClassDir, name, "wireless")); ok {
		return true
	}
	return hasAnyPrefix(name, unmeteredPrefixes)
}

func (s *System) readTrimmed(p string) string {
	b, err := afero.ReadFile(s.fs, p)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func hasAnyPrefix(name string, prefixes []string) bool {
	return lo.SomeBy(prefixes, func(p string) bool { return strings.HasPrefix(name, p) })
}

var _ Signals = (*System)(nil)
