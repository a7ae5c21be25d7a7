package canvas

import "satupapan/internal/shape"

// HistoryCapacity bounds the number of snapshots kept, baseline included.
const HistoryCapacity = 50

// History is a bounded undo/redo stack of full collection snapshots. The first entry is the
// baseline the document was loaded with; it can be returned to but never undone past.
type History struct {
	entries  [][]shape.Shape
	cursor   int
	capacity int
}

func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = HistoryCapacity
	}
	h := &History{capacity: capacity}
	h.Reset(nil)
	return h
}

// Reset drops every entry and installs baseline.
func (h *History) Reset(baseline []shape.Shape) {
	h.entries = make([][]shape.Shape, 1, h.capacity+1)
	h.entries[0] = snapshot(baseline)
	h.cursor = 0
}

// Push records a settled state, truncating the redo tail and evicting the oldest entry when over
// capacity.
func (h *History) Push(shapes []shape.Shape) {
	h.entries = append(h.entries[:h.cursor+1], snapshot(shapes))
	if len(h.entries) > h.capacity {
		// Copy so the evicted snapshots are not pinned by the old backing array.
		kept := make([][]shape.Shape, h.capacity, h.capacity+1)
		copy(kept, h.entries[len(h.entries)-h.capacity:])
		h.entries = kept
	}
	h.cursor = len(h.entries) - 1
}

func (h *History) Undo() ([]shape.Shape, bool) {
	if !h.CanUndo() {
		return nil, false
	}
	h.cursor--
	return shape.CloneAll(h.entries[h.cursor]), true
}

func (h *History) Redo() ([]shape.Shape, bool) {
	if !h.CanRedo() {
		return nil, false
	}
	h.cursor++
	return shape.CloneAll(h.entries[h.cursor]), true
}

func (h *History) CanUndo() bool { return h.cursor > 0 }
func (h *History) CanRedo() bool { return h.cursor < len(h.entries)-1 }
func (h *History) Len() int      { return len(h.entries) }
func (h *History) Cursor() int   { return h.cursor }

func snapshot(shapes []shape.Shape) []shape.Shape {
	out := make([]shape.Shape, len(shapes))
	for i, s := range shapes {
		out[i] = s.Detached()
	}
	return out
}
