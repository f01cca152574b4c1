//go:build !linux

package notify

type stubNotifier struct{}

// New returns a no-op notifier on platforms without a session bus.
func New() (Notifier, error) {
	return &stubNotifier{}, nil
}

func (s *stubNotifier) Notify(Notification) (uint32, error) { return 0, nil }
func (s *stubNotifier) Close(uint32) error                  { return nil }
