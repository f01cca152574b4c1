package playback

// Subscription delivers the latest player snapshot. Events holds at most one
// value: a newer snapshot replaces an unread older one, so slow readers
// always see the most recent state and never block the player.
type Subscription struct {
	Events <-chan Event
	Done   <-chan struct{}

	eventCh chan Event
	doneCh  chan struct{}
}

func newSubscription() *Subscription {
	s := &Subscription{
		eventCh: make(chan Event, 1),
		doneCh:  make(chan struct{}),
	}
	s.Events = s.eventCh
	s.Done = s.doneCh
	return s
}

// close signals subscribers to stop by closing doneCh.
func (s *Subscription) close() {
	close(s.doneCh)
}

// send replaces any unread snapshot with e. Callers serialize sends.
func (s *Subscription) send(e Event) {
	select {
	case <-s.eventCh:
	default:
	}
	select {
	case s.eventCh <- e:
	default:
	}
}
