// Package device reports the device conditions that gate background downloads.
package device

import (
	"sync"

	"github.com/samber/mo"
)

// Signals is a pure query over current device conditions.
type Signals interface {
	// BatteryPercentage returns 0-100. Devices without a battery report 100.
	BatteryPercentage() int
	// IsOnUnmeteredNetwork reports Wi-Fi or wired connectivity.
	IsOnUnmeteredNetwork() bool
}

// Static returns fixed values. It is safe for concurrent use and can be
// updated at runtime, which tests use to simulate changing conditions.
type Static struct {
	mu        sync.RWMutex
	battery   int
	unmetered bool
}

// NewStatic creates a Static provider.
func NewStatic(battery int, unmetered bool) *Static {
	return &Static{battery: clampPercent(battery), unmetered: unmetered}
}

func (s *Static) BatteryPercentage() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.battery
}

func (s *Static) IsOnUnmeteredNetwork() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unmetered
}

// Set replaces both values.
func (s *Static) Set(battery int, unmetered bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.battery = clampPercent(battery)
	s.unmetered = unmetered
}

// Overridden pins some signals to configured values and delegates the rest.
type Overridden struct {
	Base      Signals
	Battery   mo.Option[int]
	Unmetered mo.Option[bool]
}

func (o Overridden) BatteryPercentage() int {
	if v, ok := o.Battery.Get(); ok {
		return clampPercent(v)
	}
	return o.Base.BatteryPercentage()
}

func (o Overridden) IsOnUnmeteredNetwork() bool {
	if v, ok := o.Unmetered.Get(); ok {
		return v
	}
	return o.Base.IsOnUnmeteredNetwork()
}

func clampPercent(v int) int {
	return min(max(v, 0), 100)
}

var (
	_ Signals = (*Static)(nil)
	_ Signals = Overridden{}
)
