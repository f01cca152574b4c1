package playlist

import "github.com/llehouerou/riptide/internal/media"

// Snapshot is a saved queue: its items and the position within them.
type Snapshot struct {
	Items []media.Item
	Index int
}

func (s Snapshot) clone() Snapshot {
	items := make([]media.Item, len(s.Items))
	copy(items, s.Items)
	return Snapshot{Items: items, Index: s.Index}
}

// History maintains previous queue states for undo/redo.
type History struct {
	states  []Snapshot
	current int // index of current state (-1 = before any state)
	maxSize int
}

// NewHistory creates a new history with the given maximum size.
func NewHistory(maxSize int) *History {
	return &History{
		states:  make([]Snapshot, 0, maxSize),
		current: -1,
		maxSize: maxSize,
	}
}

// Push saves a snapshot. Clears any redo states and trims if over limit.
func (h *History) Push(s Snapshot) {
	if h.current < len(h.states)-1 {
		h.states = h.states[:h.current+1]
	}

	h.states = append(h.states, s.clone())
	h.current = len(h.states) - 1

	if len(h.states) > h.maxSize {
		excess := len(h.states) - h.maxSize
		h.states = h.states[excess:]
		h.current -= excess
	}
}

// Undo returns the previous state, or false if there is nothing to undo.
func (h *History) Undo() (Snapshot, bool) {
	if !h.CanUndo() {
		return Snapshot{}, false
	}
	h.current--
	return h.states[h.current].clone(), true
}

// Redo returns the next state, or false if there is nothing to redo.
func (h *History) Redo() (Snapshot, bool) {
	if !h.CanRedo() {
		return Snapshot{}, false
	}
	h.current++
	return h.states[h.current].clone(), true
}

// CanUndo returns true if there is a previous state to undo to.
func (h *History) CanUndo() bool {
	return h.current > 0
}

// CanRedo returns true if there is a next state to redo to.
func (h *History) CanRedo() bool {
	return h.current < len(h.states)-1
}
