//go:build linux

package notify

import (
	"os"
	"testing"
)

func sessionNotifier(t *testing.T) Notifier {
	t.Helper()
	if os.Getenv("DBUS_SESSION_BUS_ADDRESS") == "" {
		t.Skip("no D-Bus session available")
	}
	n, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return n
}

func TestNew_WithoutSessionBus(t *testing.T) {
	t.Setenv("DBUS_SESSION_BUS_ADDRESS", "unix:path=/nonexistent/riptide-bus")

	n, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if id, err := n.Notify(Notification{Title: "x"}); err != nil || id != 0 {
		t.Errorf("Notify() = %d, %v, want a silent no-op", id, err)
	}
}

func TestNotify_ReplacesExisting(t *testing.T) {
	n := sessionNotifier(t)

	id1, err := n.Notify(Notification{Title: "Downloading", Body: "Night Drive", Timeout: 2000})
	if err != nil {
		t.Fatalf("first Notify() error: %v", err)
	}
	id2, err := n.Notify(Notification{Title: "Available offline", Body: "Night Drive", Timeout: 1000, ReplacesID: id1})
	if err != nil {
		t.Fatalf("second Notify() error: %v", err)
	}
	if id2 != id1 {
		t.Errorf("replacing notification got id=%d, want id=%d", id2, id1)
	}
	if err := n.Close(id2); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}
