// Package notify sends desktop notifications via D-Bus.
package notify

import (
	"fmt"
	"sync"
)

// Urgency represents notification priority levels per the freedesktop
// notification protocol.
type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

// Notification contains data for a desktop notification.
type Notification struct {
	Title      string  // summary text (required)
	Body       string  // body text (optional)
	Icon       string  // image path or icon name (optional)
	Timeout    int32   // ms, -1 = server default, 0 = never expire
	ReplacesID uint32  // 0 = new notification, >0 = replace existing
	Urgency    Urgency // Low, Normal, Critical
}

// Notifier sends desktop notifications.
type Notifier interface {
	// Notify sends a notification and returns its ID.
	// Returns 0 and nil error if notifications are unavailable.
	Notify(n Notification) (uint32, error)
	// Close closes a notification by ID.
	Close(id uint32) error
}

// DownloadDone builds the notification for a finished offline download.
func DownloadDone(title string, err error) Notification {
	if err != nil {
		return Notification{
			Title:   "Download failed",
			Body:    fmt.Sprintf("%s: %v", title, err),
			Icon:    "dialog-error",
			Timeout: -1,
			Urgency: UrgencyNormal,
		}
	}
	return Notification{
		Title:   "Available offline",
		Body:    title,
		Icon:    "folder-download",
		Timeout: -1,
		Urgency: UrgencyLow,
	}
}

// Recorder is a Notifier that keeps what it was sent. Used in tests.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

var _ Notifier = (*Recorder)(nil)

func (r *Recorder) Notify(n Notification) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return uint32(len(r.sent)), nil
}

func (r *Recorder) Close(uint32) error { return nil }

// Sent returns a copy of the notifications sent so far.
func (r *Recorder) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.sent))
	copy(out, r.sent)
	return out
}
