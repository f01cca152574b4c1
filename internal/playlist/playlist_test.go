//nolint:goconst // test file with repeated string literals
package playlist

import (
	"testing"

	"github.com/llehouerou/riptide/internal/media"
)

func TestNewPlaylist(t *testing.T) {
	p := NewPlaylist()

	if p.Len() != 0 {
		t.Errorf("Len() = %d, want 0", p.Len())
	}
	if p.Items() == nil {
		t.Error("Items() should return empty slice, not nil")
	}
}

func TestPlaylist_Add(t *testing.T) {
	p := NewPlaylist()

	p.Add(items("a", "b")...)

	if p.Len() != 2 {
		t.Errorf("Len() = %d, want 2", p.Len())
	}
	got := p.Items()
	if got[0].Identifier != "a" || got[1].Identifier != "b" {
		t.Errorf("Items() = %v, want [a b]", got)
	}
}

func TestPlaylist_Items_ReturnsCopy(t *testing.T) {
	p := NewPlaylist()
	p.Add(items("a")...)

	got := p.Items()
	got[0].Identifier = "mutated"

	if item, _ := p.Item(0); item.Identifier != "a" {
		t.Error("Items() should return a copy")
	}
}

func TestPlaylist_Item_InvalidIndex(t *testing.T) {
	p := NewPlaylist()
	p.Add(items("a")...)

	for _, idx := range []int{-1, 1, 100} {
		if _, ok := p.Item(idx); ok {
			t.Errorf("Item(%d) should be absent", idx)
		}
	}
}

func TestPlaylist_Slice(t *testing.T) {
	p := NewPlaylist()
	p.Add(items("a", "b", "c")...)

	tests := []struct {
		name     string
		from, to int
		want     int
	}{
		{"inner", 1, 3, 2},
		{"clamped end", 2, 10, 1},
		{"clamped start", -2, 1, 1},
		{"empty range", 2, 2, 0},
		{"inverted", 3, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Slice(tt.from, tt.to); len(got) != tt.want {
				t.Errorf("Slice(%d,%d) = %d items, want %d", tt.from, tt.to, len(got), tt.want)
			}
		})
	}
}

func TestPlaylist_Clear(t *testing.T) {
	p := NewPlaylist()
	p.Add(items("a", "b")...)

	p.Clear()

	if p.Len() != 0 {
		t.Errorf("Len() = %d, want 0", p.Len())
	}
}

func snap(index int, ids ...string) Snapshot {
	return Snapshot{Items: items(ids...), Index: index}
}

func TestNewHistory(t *testing.T) {
	h := NewHistory(10)

	if h.CanUndo() {
		t.Error("new history should not be able to undo")
	}
	if h.CanRedo() {
		t.Error("new history should not be able to redo")
	}
}

func TestHistory_Undo(t *testing.T) {
	h := NewHistory(10)
	h.Push(snap(0, "a"))
	h.Push(snap(1, "a", "b"))

	s, ok := h.Undo()

	if !ok {
		t.Fatal("Undo() should succeed")
	}
	if len(s.Items) != 1 || s.Index != 0 {
		t.Errorf("Undo() = %d items at %d, want 1 at 0", len(s.Items), s.Index)
	}
	if h.CanUndo() {
		t.Error("should not be able to undo past the first state")
	}
}

func TestHistory_Undo_Empty(t *testing.T) {
	h := NewHistory(10)

	if _, ok := h.Undo(); ok {
		t.Error("Undo() on empty history should fail")
	}
}

func TestHistory_Redo(t *testing.T) {
	h := NewHistory(10)
	h.Push(snap(0, "a"))
	h.Push(snap(1, "a", "b"))
	h.Undo()

	s, ok := h.Redo()

	if !ok {
		t.Fatal("Redo() should succeed")
	}
	if len(s.Items) != 2 || s.Index != 1 {
		t.Errorf("Redo() = %d items at %d, want 2 at 1", len(s.Items), s.Index)
	}
	if _, ok := h.Redo(); ok {
		t.Error("Redo() at end should fail")
	}
}

func TestHistory_PushClearsRedo(t *testing.T) {
	h := NewHistory(10)
	h.Push(snap(0, "a"))
	h.Push(snap(0, "b"))
	h.Undo()

	h.Push(snap(0, "c"))

	if h.CanRedo() {
		t.Error("Push should clear redo states")
	}
	s, _ := h.Undo()
	if s.Items[0].Identifier != "a" {
		t.Errorf("Undo() = %q, want a", s.Items[0].Identifier)
	}
}

func TestHistory_MaxSize(t *testing.T) {
	h := NewHistory(3)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		h.Push(snap(0, id))
	}

	var seen []string
	for h.CanUndo() {
		s, _ := h.Undo()
		seen = append(seen, s.Items[0].Identifier)
	}

	if len(seen) != 2 || seen[0] != "d" || seen[1] != "c" {
		t.Errorf("undo sequence = %v, want [d c]", seen)
	}
}

func TestHistory_ReturnsCopy(t *testing.T) {
	h := NewHistory(10)
	original := []media.Item{{Identifier: "a"}}
	h.Push(Snapshot{Items: original})
	h.Push(snap(0, "b"))

	original[0].Identifier = "mutated"
	s, _ := h.Undo()
	s.Items[0].Identifier = "mutated-again"
	h.Redo()
	again, _ := h.Undo()

	if again.Items[0].Identifier != "a" {
		t.Errorf("history leaked a reference: got %q", again.Items[0].Identifier)
	}
}
